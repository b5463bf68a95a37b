// Package auth registers users and checks their credentials against the
// users collection. Failed logins are counted in settings; five in a row
// lock logins for fifteen minutes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/seastarlegal/seastar/internal/model"
	"github.com/seastarlegal/seastar/internal/password"
	"go.uber.org/zap"
)

const (
	MaxAttempts  = 5
	LockDuration = 15 * time.Minute

	usersCollection = "users"
	attemptsKey     = "loginAttempts"
	lastAttemptKey  = "lastLoginAttempt"
	hashField       = "passwordHash"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrLocked             = errors.New("login temporarily locked")
	ErrUserExists         = errors.New("username already taken")
	ErrMissingField       = errors.New("missing required field")
)

// Store is the part of the record store the authenticator needs.
type Store interface {
	Add(ctx context.Context, collection string, rec model.Record) (any, error)
	Update(ctx context.Context, collection string, rec model.Record) (any, error)
	GetAll(ctx context.Context, collection string) ([]model.Record, error)
	Setting(ctx context.Context, key string) (any, bool, error)
	UpdateSetting(ctx context.Context, key string, value any) error
}

type Authenticator struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*Authenticator)

func WithLogger(l *zap.Logger) Option {
	return func(a *Authenticator) {
		if l != nil {
			a.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

func New(store Store, opts ...Option) *Authenticator {
	a := &Authenticator{store: store, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// NewUser is the registration form.
type NewUser struct {
	Username string
	Password string
	Name     string
	Email    string
	Phone    string
	Role     string
}

// Register stores a new user with a hashed password and returns its key.
func (a *Authenticator) Register(ctx context.Context, u NewUser) (any, error) {
	u.Username = strings.TrimSpace(u.Username)
	u.Name = strings.TrimSpace(u.Name)
	switch {
	case u.Username == "":
		return nil, fmt.Errorf("%w: username", ErrMissingField)
	case u.Password == "":
		return nil, fmt.Errorf("%w: password", ErrMissingField)
	case u.Name == "":
		return nil, fmt.Errorf("%w: name", ErrMissingField)
	}

	existing, err := a.findUser(ctx, u.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrUserExists, u.Username)
	}

	hash, err := password.Hash(u.Password)
	if err != nil {
		return nil, err
	}
	rec := model.Record{
		"username": u.Username,
		hashField:  hash,
		"name":     u.Name,
		"email":    strings.TrimSpace(u.Email),
		"phone":    strings.TrimSpace(u.Phone),
		"role":     u.Role,
	}
	key, err := a.store.Add(ctx, usersCollection, rec)
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", u.Username, err)
	}
	a.log.Info("user registered", zap.String("username", u.Username))
	return key, nil
}

// Login checks credentials and returns the user without its password hash.
func (a *Authenticator) Login(ctx context.Context, username, plain string) (model.Record, error) {
	stored, last, err := a.attempts(ctx)
	if err != nil {
		return nil, err
	}
	attempts := stored
	now := a.now()
	if attempts >= MaxAttempts {
		if remaining := last.Add(LockDuration).Sub(now); remaining > 0 {
			return nil, fmt.Errorf("%w: try again in %d minutes", ErrLocked, minutesCeil(remaining))
		}
		attempts = 0
	}

	user, err := a.findUser(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if user == nil || !password.Verify(user.String(hashField), plain) {
		attempts++
		if err := a.saveAttempts(ctx, attempts, now); err != nil {
			return nil, err
		}
		a.log.Warn("login failed", zap.String("username", username), zap.Int("attempts", attempts))
		if attempts >= MaxAttempts {
			return nil, fmt.Errorf("%w: too many failed attempts, try again in %d minutes", ErrLocked, int(LockDuration.Minutes()))
		}
		return nil, fmt.Errorf("%w (%d attempts left)", ErrInvalidCredentials, MaxAttempts-attempts)
	}

	if stored > 0 {
		if err := a.saveAttempts(ctx, 0, time.Time{}); err != nil {
			return nil, err
		}
	}
	user["lastLogin"] = now.UTC().Format(time.RFC3339)
	if _, err := a.store.Update(ctx, usersCollection, user); err != nil {
		return nil, fmt.Errorf("recording login: %w", err)
	}
	a.log.Info("login", zap.String("username", user.String("username")))
	return Public(user), nil
}

// Users lists registered users without their password hashes.
func (a *Authenticator) Users(ctx context.Context) ([]model.Record, error) {
	all, err := a.store.GetAll(ctx, usersCollection)
	if err != nil {
		return nil, err
	}
	out := make([]model.Record, len(all))
	for i, u := range all {
		out[i] = Public(u)
	}
	return out, nil
}

// Public returns a copy of a user record safe to display.
func Public(user model.Record) model.Record {
	out := user.Clone()
	delete(out, hashField)
	delete(out, "password")
	return out
}

func (a *Authenticator) findUser(ctx context.Context, username string) (model.Record, error) {
	users, err := a.store.GetAll(ctx, usersCollection)
	if err != nil {
		return nil, fmt.Errorf("reading users: %w", err)
	}
	for _, u := range users {
		if u.String("username") == username {
			return u, nil
		}
	}
	return nil, nil
}

func (a *Authenticator) attempts(ctx context.Context) (int, time.Time, error) {
	v, _, err := a.store.Setting(ctx, attemptsKey)
	if err != nil {
		return 0, time.Time{}, err
	}
	n := int(model.Record{attemptsKey: v}.Number(attemptsKey))

	var last time.Time
	raw, _, err := a.store.Setting(ctx, lastAttemptKey)
	if err != nil {
		return 0, time.Time{}, err
	}
	if s, ok := raw.(string); ok && s != "" {
		last, _ = time.Parse(time.RFC3339Nano, s)
	}
	return n, last, nil
}

func (a *Authenticator) saveAttempts(ctx context.Context, n int, at time.Time) error {
	if err := a.store.UpdateSetting(ctx, attemptsKey, n); err != nil {
		return err
	}
	stamp := ""
	if !at.IsZero() {
		stamp = at.UTC().Format(time.RFC3339Nano)
	}
	return a.store.UpdateSetting(ctx, lastAttemptKey, stamp)
}

func minutesCeil(d time.Duration) int {
	m := int((d + time.Minute - 1) / time.Minute)
	return max(m, 1)
}
