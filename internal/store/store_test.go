package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/seastarlegal/seastar/internal/model"
	"github.com/seastarlegal/seastar/internal/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	password.Cost = bcrypt.MinCost
}

var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: testNow} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testPath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "seastar.db")
}

func openAt(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	base := []Option{WithClock(func() time.Time { return testNow }), WithLocation(time.UTC)}
	s, err := Open(context.Background(), path, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return openAt(t, testPath(t), opts...)
}

func tableCount(t *testing.T, s *Store, name string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE name = ?`, name,
	).Scan(&n))
	return n
}

// --- Open / upgrade tests ---

func TestOpen_CreatesCollectionsAndSeeds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Equal(t, DefaultSchemaVersion, s.SchemaVersion())
	for _, name := range s.Collections() {
		assert.Equal(t, 1, tableCount(t, s, name), name)
	}
	assert.Equal(t, 1, tableCount(t, s, "idx_cases_caseNumber"))

	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"appName":  "SeaStar Legal",
		"theme":    "light",
		"language": "ar",
		"autoSync": true,
	}, settings)

	users, err := s.GetAll(ctx, Users)
	require.NoError(t, err)
	require.Len(t, users, 1)
	admin := users[0]
	assert.Equal(t, "admin", admin["username"])
	assert.NotContains(t, admin, "password")
	assert.True(t, password.Verify(admin.String("passwordHash"), "admin123"))
	assert.Equal(t, "2026-03-15T10:30:00.000Z", admin[model.FieldCreatedAt])
}

func TestOpen_WithAdminCredentials(t *testing.T) {
	s := newTestStore(t, WithAdmin("root", "s3cret!"))
	users, err := s.Search(context.Background(), Users, "root", "username")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, password.Verify(users[0].String("passwordHash"), "s3cret!"))
	assert.False(t, password.Verify(users[0].String("passwordHash"), "admin123"))
}

func TestOpen_ReopenDoesNotReseed(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.UpdateSetting(ctx, "theme", "dark"))
	require.NoError(t, s.Delete(ctx, Users, 1))
	require.NoError(t, s.Close())

	s = openAt(t, path)
	settings, err := s.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "dark", settings["theme"])

	n, err := s.Count(ctx, Users)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpen_HigherVersionKeepsData(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Add(ctx, Cases, model.Record{"caseNumber": "2026/1"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = openAt(t, path, WithSchemaVersion(DefaultSchemaVersion+1))
	assert.Equal(t, DefaultSchemaVersion+1, s.SchemaVersion())

	cases, err := s.GetAll(ctx, Cases)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "2026/1", cases[0]["caseNumber"])

	users, err := s.Count(ctx, Users)
	require.NoError(t, err)
	assert.Equal(t, 1, users, "existing users must not be reseeded")
}

func TestOpen_UpgradeAddsCollectionAndIndex(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	schema := DefaultSchema()
	schema.Collections = append(schema.Collections, autoKeyed("archive", index("caseId")))
	s = openAt(t, path, WithSchemaVersion(9), WithSchema(schema))

	_, err = s.Add(ctx, "archive", model.Record{"caseId": 3})
	require.NoError(t, err)
	got, err := s.GetByIndex(ctx, "archive", "caseId", 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOpen_SameVersionIsNoop(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	for range 3 {
		s, err := Open(ctx, path)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
	s := openAt(t, path)
	n, err := s.Count(ctx, Settings)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestOpen_LowerVersionFails(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, path, WithSchemaVersion(DefaultSchemaVersion-1))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestOpen_RejectsVersionBelowOne(t *testing.T) {
	for _, v := range []int{0, -1} {
		path := testPath(t)
		s, err := Open(context.Background(), path, WithSchemaVersion(v))
		assert.ErrorIs(t, err, ErrSchemaUpgradeFailed, "version %d", v)
		assert.Nil(t, s)
		assert.NoFileExists(t, path)
	}
}

func TestOpen_DirectoryPathFails(t *testing.T) {
	_, err := Open(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestOpen_EmptyPathFails(t *testing.T) {
	_, err := Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestOpen_InvalidSchema(t *testing.T) {
	schema := Schema{Collections: []CollectionSpec{{Name: "bad name", KeyField: "id", AutoIncrement: true}}}
	_, err := Open(context.Background(), testPath(t), WithSchema(schema))
	assert.ErrorIs(t, err, ErrSchemaUpgradeFailed)
}

func TestOpen_FailedUpgradeRollsBack(t *testing.T) {
	ctx := context.Background()
	path := testPath(t)

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.Add(ctx, Clients, model.Record{"name": "A", "email": "same@example.com"})
	require.NoError(t, err)
	_, err = s.Add(ctx, Clients, model.Record{"name": "B", "email": "same@example.com"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	schema := DefaultSchema()
	for i, c := range schema.Collections {
		if c.Name == Clients {
			schema.Collections[i].Indexes = append(c.Indexes, IndexSpec{Name: "emailUnique", Field: "email", Unique: true})
		}
	}
	schema.Collections = append(schema.Collections, autoKeyed("archive"))

	_, err = Open(ctx, path, WithSchemaVersion(9), WithSchema(schema))
	require.ErrorIs(t, err, ErrSchemaUpgradeFailed)

	// Version 8 is still the stored one, so reopening at 8 succeeds.
	s = openAt(t, path)
	assert.Zero(t, tableCount(t, s, "archive"))
	assert.Zero(t, tableCount(t, s, "idx_clients_emailUnique"))

	clients, err := s.GetAll(ctx, Clients)
	require.NoError(t, err)
	assert.Len(t, clients, 2)
}

// --- Collection resolution tests ---

func TestUnknownCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, "widgets", model.Record{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = s.Get(ctx, "widgets", 1)
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = s.GetAll(ctx, "widgets")
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = s.Update(ctx, "widgets", model.Record{"id": 1})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	assert.ErrorIs(t, s.Delete(ctx, "widgets", 1), ErrUnknownCollection)
	_, err = s.Search(ctx, "widgets", "x", "name")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(context.Background(), testPath(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.GetAll(context.Background(), Cases)
	assert.ErrorIs(t, err, ErrClosed)
}
