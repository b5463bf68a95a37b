// Package store is the local record store: a schema-versioned, multi-collection
// embedded database over SQLite with indexed lookups, aggregate statistics and
// snapshot backup/restore.
//
// Each collection is a table holding JSON records keyed by an integer or
// string primary key. Declared indexes are SQLite expression indexes over
// json_extract, so unique indexes are enforced by the engine.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/seastarlegal/seastar/internal/model"
	"go.uber.org/zap"
)

// timeLayout matches what the browser client wrote (Date.toISOString).
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// AdminSeed holds the credentials of the administrative user created the
// first time the users collection is created. Only a hash is persisted.
type AdminSeed struct {
	Username string
	Password string
}

// Store is an open handle on the record database. It is safe for concurrent
// use; the engine serializes writers.
type Store struct {
	db      *sql.DB
	path    string
	schema  Schema
	version int
	admin   AdminSeed
	log     *zap.Logger
	now     func() time.Time
	loc     *time.Location

	mu     sync.RWMutex
	closed bool
}

// Option configures Open.
type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock replaces time.Now for timestamps and date windows.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLocation sets the zone that decides what "today" means.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithSchemaVersion(v int) Option {
	return func(s *Store) { s.version = v }
}

func WithSchema(schema Schema) Option {
	return func(s *Store) { s.schema = schema }
}

func WithAdmin(username, password string) Option {
	return func(s *Store) { s.admin = AdminSeed{Username: username, Password: password} }
}

// Open opens (creating if needed) the database at path and runs the schema
// upgrade when the requested version is newer than the stored one.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:    path,
		schema:  DefaultSchema(),
		version: DefaultSchemaVersion,
		admin:   AdminSeed{Username: "admin", Password: "admin123"},
		log:     zap.NewNop(),
		now:     time.Now,
		loc:     time.Local,
	}
	for _, o := range opts {
		o(s)
	}
	if err := s.schema.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaUpgradeFailed, err)
	}
	if s.version < 1 {
		return nil, fmt.Errorf("%w: schema version must be at least 1, got %d", ErrSchemaUpgradeFailed, s.version)
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrStoreUnavailable)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrStoreUnavailable, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating directory: %w", ErrStoreUnavailable, err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	// One connection: the engine is the single writer and every
	// transaction sees the previous one's effects.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.db = db

	if err := s.upgrade(ctx); err != nil {
		db.Close()
		s.log.Error("opening store failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	s.log.Debug("store opened", zap.String("path", path), zap.Int("version", s.version))
	return s, nil
}

// Close releases the database. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *Store) Path() string             { return s.path }
func (s *Store) SchemaVersion() int       { return s.version }
func (s *Store) Location() *time.Location { return s.loc }

// Collections returns the declared collection names.
func (s *Store) Collections() []string {
	return s.schema.Names()
}

// KeyField returns the field that holds a collection's key.
func (s *Store) KeyField(collection string) (string, error) {
	c, err := s.collection(collection)
	if err != nil {
		return "", err
	}
	return c.KeyField, nil
}

// collection resolves a declared collection, failing on a closed store or an
// undeclared name.
func (s *Store) collection(name string) (CollectionSpec, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return CollectionSpec{}, ErrClosed
	}
	c, ok := s.schema.Collection(name)
	if !ok {
		return CollectionSpec{}, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

// stamp sets the managed timestamps on a record of an auto-keyed
// collection. createdAt is kept when non-empty.
func (s *Store) stamp(rec model.Record, createdAt string) model.Record {
	ts := s.timestamp()
	if createdAt == "" {
		createdAt = ts
	}
	rec[model.FieldCreatedAt] = createdAt
	rec[model.FieldUpdatedAt] = ts
	return rec
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// normalizeKey converts a caller-supplied key to the column type of the
// collection. A nil result means "no key".
func normalizeKey(c CollectionSpec, key any) (any, error) {
	if key == nil {
		return nil, nil
	}
	if !c.AutoIncrement {
		switch k := key.(type) {
		case string:
			if k == "" {
				return nil, nil
			}
			return k, nil
		default:
			return fmt.Sprint(k), nil
		}
	}
	switch k := key.(type) {
	case int:
		return int64(k), nil
	case int32:
		return int64(k), nil
	case int64:
		return k, nil
	case uint:
		return int64(k), nil
	case uint32:
		return int64(k), nil
	case float64:
		if k != math.Trunc(k) {
			return nil, fmt.Errorf("invalid key %v for %s: not an integer", k, c.Name)
		}
		return int64(k), nil
	case json.Number:
		n, err := k.Int64()
		if err != nil {
			return nil, fmt.Errorf("invalid key %v for %s: %w", k, c.Name, err)
		}
		return n, nil
	case string:
		if k == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q for %s: %w", k, c.Name, err)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("invalid key %v (%T) for %s", key, key, c.Name)
	}
}

// encode splits a record into its primary key and JSON body. The key field
// lives in the pk column only and is injected back on read.
func encode(c CollectionSpec, rec model.Record) (any, []byte, error) {
	key, err := normalizeKey(c, rec[c.KeyField])
	if err != nil {
		return nil, nil, err
	}
	body := make(model.Record, len(rec))
	for k, v := range rec {
		if k != c.KeyField {
			body[k] = v
		}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding %s record: %w", c.Name, err)
	}
	return key, data, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func decode(c CollectionSpec, row scanner) (model.Record, error) {
	var (
		intKey int64
		strKey string
		data   string
		err    error
	)
	if c.AutoIncrement {
		err = row.Scan(&intKey, &data)
	} else {
		err = row.Scan(&strKey, &data)
	}
	if err != nil {
		return nil, err
	}
	rec := model.Record{}
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("decoding %s record: %w", c.Name, err)
	}
	if c.AutoIncrement {
		rec[c.KeyField] = intKey
	} else {
		rec[c.KeyField] = strKey
	}
	return rec, nil
}

func decodeRows(c CollectionSpec, rows *sql.Rows) ([]model.Record, error) {
	defer rows.Close()
	records := []model.Record{}
	for rows.Next() {
		rec, err := decode(c, rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// insert adds a new row. Without a key the engine assigns the next one.
func (s *Store) insert(ctx context.Context, q querier, c CollectionSpec, rec model.Record) (any, error) {
	key, data, err := encode(c, rec)
	if err != nil {
		return nil, err
	}
	if key == nil {
		if !c.AutoIncrement {
			return nil, fmt.Errorf("%w: %s requires %q", ErrMissingKey, c.Name, c.KeyField)
		}
		res, err := q.ExecContext(ctx, `INSERT INTO `+tableName(c)+` (data) VALUES (?)`, string(data))
		if err != nil {
			return nil, mapSQLiteError(err)
		}
		return res.LastInsertId()
	}
	if _, err := q.ExecContext(ctx, `INSERT INTO `+tableName(c)+` (pk, data) VALUES (?, ?)`, key, string(data)); err != nil {
		return nil, mapSQLiteError(err)
	}
	return key, nil
}

// put inserts or replaces the row with the record's key.
func (s *Store) put(ctx context.Context, q querier, c CollectionSpec, rec model.Record) (any, error) {
	key, data, err := encode(c, rec)
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("%w: %s requires %q", ErrMissingKey, c.Name, c.KeyField)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO `+tableName(c)+` (pk, data) VALUES (?, ?)
		 ON CONFLICT(pk) DO UPDATE SET data = excluded.data`,
		key, string(data),
	)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	return key, nil
}

func (s *Store) getAll(ctx context.Context, q querier, c CollectionSpec) ([]model.Record, error) {
	rows, err := q.QueryContext(ctx, `SELECT pk, data FROM `+tableName(c)+` ORDER BY pk`)
	if err != nil {
		return nil, err
	}
	return decodeRows(c, rows)
}
