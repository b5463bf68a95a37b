package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/seastarlegal/seastar/internal/model"
	"github.com/seastarlegal/seastar/internal/password"
	"go.uber.org/zap"
)

// DefaultSchemaVersion is the version the application ships with.
const DefaultSchemaVersion = 8

// Collection names.
const (
	Users         = "users"
	Cases         = "cases"
	Clients       = "clients"
	Sessions      = "sessions"
	Documents     = "documents"
	Tasks         = "tasks"
	Notifications = "notifications"
	Settings      = "settings"
	Financial     = "financial"
	Reports       = "reports"
	Backups       = "backups"
)

// IndexSpec declares a secondary equality index over one record field.
type IndexSpec struct {
	Name   string
	Field  string
	Unique bool
}

// CollectionSpec declares a collection and its key policy. AutoIncrement
// collections get store-assigned integer keys and managed timestamps;
// the others are keyed by the string value of KeyField.
type CollectionSpec struct {
	Name          string
	KeyField      string
	AutoIncrement bool
	Indexes       []IndexSpec
}

// Index returns the named index.
func (c CollectionSpec) Index(name string) (IndexSpec, bool) {
	for _, ix := range c.Indexes {
		if ix.Name == name {
			return ix, true
		}
	}
	return IndexSpec{}, false
}

// Schema is the full set of collections, in declaration order.
type Schema struct {
	Collections []CollectionSpec
}

func autoKeyed(name string, indexes ...IndexSpec) CollectionSpec {
	return CollectionSpec{Name: name, KeyField: model.FieldID, AutoIncrement: true, Indexes: indexes}
}

func index(field string) IndexSpec  { return IndexSpec{Name: field, Field: field} }
func unique(field string) IndexSpec { return IndexSpec{Name: field, Field: field, Unique: true} }

// DefaultSchema returns the eleven application collections and their
// indexes.
func DefaultSchema() Schema {
	return Schema{Collections: []CollectionSpec{
		autoKeyed(Users),
		autoKeyed(Cases, unique("caseNumber"), index("clientId"), index("status"), index("type"), index(model.FieldCreatedAt)),
		autoKeyed(Clients, unique("phone"), index("email"), index("type")),
		autoKeyed(Sessions, index("caseId"), index("date"), index("status")),
		autoKeyed(Documents),
		autoKeyed(Tasks),
		autoKeyed(Notifications),
		{Name: Settings, KeyField: model.FieldKey},
		autoKeyed(Financial),
		autoKeyed(Reports),
		autoKeyed(Backups),
	}}
}

// Collection looks up a collection by name.
func (s Schema) Collection(name string) (CollectionSpec, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return CollectionSpec{}, false
}

// Names returns the collection names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Collections))
	for i, c := range s.Collections {
		names[i] = c.Name
	}
	return names
}

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Validate checks that every name can be used as an SQL identifier and a
// JSON path segment. Collection and field names are interpolated into DDL.
func (s Schema) Validate() error {
	seen := make(map[string]bool)
	for _, c := range s.Collections {
		if !identPattern.MatchString(c.Name) {
			return fmt.Errorf("invalid collection name %q", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate collection %q", c.Name)
		}
		seen[c.Name] = true
		if c.KeyField == "" {
			return fmt.Errorf("collection %q has no key field", c.Name)
		}
		ixSeen := make(map[string]bool)
		for _, ix := range c.Indexes {
			if !identPattern.MatchString(ix.Name) || !identPattern.MatchString(ix.Field) {
				return fmt.Errorf("invalid index %q on %q", ix.Name, c.Name)
			}
			if ixSeen[ix.Name] {
				return fmt.Errorf("duplicate index %q on %q", ix.Name, c.Name)
			}
			ixSeen[ix.Name] = true
		}
	}
	return nil
}

func tableName(c CollectionSpec) string {
	return `"` + c.Name + `"`
}

func indexName(c CollectionSpec, ix IndexSpec) string {
	return `"idx_` + c.Name + "_" + ix.Name + `"`
}

// fieldExpr is the expression both the index definition and the lookup
// query use, so the planner can match them.
func fieldExpr(field string) string {
	return "json_extract(data, '$." + field + "')"
}

const metaTable = "_seastar_meta"

// upgrade runs the versioned schema pass in a single transaction. Every step
// receives the transaction explicitly; nothing is created outside it.
func (s *Store) upgrade(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning upgrade: %w", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+metaTable+` (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("%w: creating meta table: %w", ErrStoreUnavailable, err)
	}

	persisted, err := persistedVersion(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: reading schema version: %w", ErrStoreUnavailable, err)
	}
	if s.version < persisted {
		return fmt.Errorf("%w: requested version %d is older than stored version %d", ErrStoreUnavailable, s.version, persisted)
	}
	if s.version == persisted {
		return tx.Commit()
	}

	s.log.Info("upgrading schema", zap.Int("from", persisted), zap.Int("to", s.version))

	created, err := createCollections(ctx, tx, s.schema)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaUpgradeFailed, err)
	}
	if err := createIndexes(ctx, tx, s.schema); err != nil {
		return fmt.Errorf("%w: %w", ErrSchemaUpgradeFailed, err)
	}
	if created[Settings] && created[Users] {
		if err := s.seed(ctx, tx); err != nil {
			return fmt.Errorf("%w: seeding defaults: %w", ErrSchemaUpgradeFailed, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+metaTable+` (name, value) VALUES ('schema_version', ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(s.version),
	); err != nil {
		return fmt.Errorf("%w: recording version: %w", ErrSchemaUpgradeFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", ErrSchemaUpgradeFailed, err)
	}
	s.log.Info("schema upgraded", zap.Int("version", s.version), zap.Int("collectionsCreated", len(created)))
	return nil
}

func persistedVersion(ctx context.Context, tx *sql.Tx) (int, error) {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT value FROM `+metaTable+` WHERE name = 'schema_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func tableExists(ctx context.Context, tx *sql.Tx, name string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	return n > 0, err
}

// createCollections creates every missing table and reports which ones were
// created in this pass.
func createCollections(ctx context.Context, tx *sql.Tx, schema Schema) (map[string]bool, error) {
	created := make(map[string]bool)
	for _, c := range schema.Collections {
		exists, err := tableExists(ctx, tx, c.Name)
		if err != nil {
			return nil, fmt.Errorf("checking %s: %w", c.Name, err)
		}
		if exists {
			continue
		}
		pk := "pk TEXT PRIMARY KEY NOT NULL"
		if c.AutoIncrement {
			pk = "pk INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		ddl := fmt.Sprintf(`CREATE TABLE %s (
			%s,
			data TEXT NOT NULL
		)`, tableName(c), pk)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return nil, fmt.Errorf("creating collection %s: %w", c.Name, err)
		}
		created[c.Name] = true
	}
	return created, nil
}

// createIndexes creates every missing index. A unique index over existing
// duplicate values fails, which aborts the whole upgrade.
func createIndexes(ctx context.Context, tx *sql.Tx, schema Schema) error {
	for _, c := range schema.Collections {
		for _, ix := range c.Indexes {
			kind := "INDEX"
			if ix.Unique {
				kind = "UNIQUE INDEX"
			}
			ddl := fmt.Sprintf(`CREATE %s IF NOT EXISTS %s ON %s(%s)`,
				kind, indexName(c, ix), tableName(c), fieldExpr(ix.Field))
			if _, err := tx.ExecContext(ctx, ddl); err != nil {
				return fmt.Errorf("creating index %s.%s: %w", c.Name, ix.Name, mapSQLiteError(err))
			}
		}
	}
	return nil
}

// defaultSettings are written the first time the settings collection is
// created.
var defaultSettings = []model.Record{
	{model.FieldKey: "appName", "value": "SeaStar Legal"},
	{model.FieldKey: "theme", "value": "light"},
	{model.FieldKey: "language", "value": "ar"},
	{model.FieldKey: "autoSync", "value": true},
}

func (s *Store) seed(ctx context.Context, tx *sql.Tx) error {
	settings, _ := s.schema.Collection(Settings)
	for _, rec := range defaultSettings {
		if _, err := s.put(ctx, tx, settings, rec.Clone()); err != nil {
			return err
		}
	}

	hash, err := password.Hash(s.admin.Password)
	if err != nil {
		return err
	}
	users, _ := s.schema.Collection(Users)
	admin := model.Record{
		"username":     s.admin.Username,
		"passwordHash": hash,
		"name":         "محمد الأحمدي",
		"role":         "محامي رئيسي",
		"email":        "admin@seastar.com",
		"phone":        "123456789",
	}
	if _, err := s.insert(ctx, tx, users, s.stamp(admin, "")); err != nil {
		return err
	}
	s.log.Info("seeded defaults", zap.Int("settings", len(defaultSettings)), zap.String("admin", s.admin.Username))
	return nil
}
