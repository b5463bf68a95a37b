package auth

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/seastarlegal/seastar/internal/password"
	"github.com/seastarlegal/seastar/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	password.Cost = bcrypt.MinCost
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestAuth(t *testing.T) (*Authenticator, *store.Store, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)}
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "seastar.db"),
		store.WithClock(c.Now), store.WithAdmin("admin", "admin123"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, WithClock(c.Now)), s, c
}

func TestRegister(t *testing.T) {
	a, s, _ := newTestAuth(t)
	ctx := context.Background()

	key, err := a.Register(ctx, NewUser{Username: " sara ", Password: "pw-123", Name: "Sara", Role: "محامي"})
	require.NoError(t, err)

	rec, err := s.Get(ctx, store.Users, key)
	require.NoError(t, err)
	assert.Equal(t, "sara", rec["username"])
	assert.NotContains(t, rec, "password")
	assert.True(t, password.Verify(rec.String("passwordHash"), "pw-123"))
}

func TestRegister_Duplicate(t *testing.T) {
	a, _, _ := newTestAuth(t)
	_, err := a.Register(context.Background(), NewUser{Username: "admin", Password: "x", Name: "Other"})
	assert.ErrorIs(t, err, ErrUserExists)
}

func TestRegister_MissingFields(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()
	for _, u := range []NewUser{
		{Password: "x", Name: "n"},
		{Username: "u", Name: "n"},
		{Username: "u", Password: "x", Name: "  "},
	} {
		_, err := a.Register(ctx, u)
		assert.ErrorIs(t, err, ErrMissingField)
	}
}

func TestLogin(t *testing.T) {
	a, _, _ := newTestAuth(t)

	user, err := a.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", user["username"])
	assert.NotContains(t, user, "passwordHash")
	assert.Equal(t, "2026-03-15T10:00:00Z", user["lastLogin"])
}

func TestLogin_WrongPassword(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := a.Login(ctx, "admin", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Contains(t, err.Error(), "4 attempts left")

	_, err = a.Login(ctx, "ghost", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_LocksAfterFailures(t *testing.T) {
	a, _, c := newTestAuth(t)
	ctx := context.Background()

	for i := 1; i < MaxAttempts; i++ {
		_, err := a.Login(ctx, "admin", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	_, err := a.Login(ctx, "admin", "wrong")
	require.ErrorIs(t, err, ErrLocked)

	// Correct credentials are refused while locked.
	c.Advance(5 * time.Minute)
	_, err = a.Login(ctx, "admin", "admin123")
	require.ErrorIs(t, err, ErrLocked)
	assert.Contains(t, err.Error(), "10 minutes")

	c.Advance(11 * time.Minute)
	_, err = a.Login(ctx, "admin", "admin123")
	require.NoError(t, err)

	// The counter was reset by the successful login.
	_, err = a.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUsers_HidesHashes(t *testing.T) {
	a, _, _ := newTestAuth(t)
	ctx := context.Background()
	_, err := a.Register(ctx, NewUser{Username: "sara", Password: "pw", Name: "Sara"})
	require.NoError(t, err)

	users, err := a.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotContains(t, u, "passwordHash")
	}
}
