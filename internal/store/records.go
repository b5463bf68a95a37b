package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/seastarlegal/seastar/internal/model"
	"go.uber.org/zap"
)

// Add inserts rec and returns the assigned key. Auto-keyed collections get
// fresh createdAt/updatedAt stamps. The caller's map is not modified.
func (s *Store) Add(ctx context.Context, collection string, rec model.Record) (any, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()
	if rec == nil {
		rec = model.Record{}
	}
	if c.AutoIncrement {
		s.stamp(rec, "")
	}
	key, err := s.insert(ctx, s.db, c, rec)
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			s.log.Warn("add rejected", zap.String("collection", collection), zap.Error(err))
		}
		return nil, fmt.Errorf("adding to %s: %w", collection, err)
	}
	return key, nil
}

// Get returns the record stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, collection string, key any) (model.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	k, err := normalizeKey(c, key)
	if err != nil {
		return nil, err
	}
	if k == nil {
		return nil, ErrNotFound
	}
	return s.get(ctx, s.db, c, k)
}

func (s *Store) get(ctx context.Context, q querier, c CollectionSpec, key any) (model.Record, error) {
	row := q.QueryRowContext(ctx, `SELECT pk, data FROM `+tableName(c)+` WHERE pk = ?`, key)
	rec, err := decode(c, row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s/%v: %w", c.Name, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s/%v: %w", c.Name, key, err)
	}
	return rec, nil
}

// GetAll returns every record of a collection in primary-key order.
func (s *Store) GetAll(ctx context.Context, collection string) ([]model.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	records, err := s.getAll(ctx, s.db, c)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	return records, nil
}

// GetByIndex returns the records whose indexed field equals value, in index
// order (value, then key).
func (s *Store) GetByIndex(ctx context.Context, collection, index string, value any) ([]model.Record, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	ix, ok := c.Index(index)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownIndex, collection, index)
	}
	expr := fieldExpr(ix.Field)
	rows, err := s.db.QueryContext(ctx,
		`SELECT pk, data FROM `+tableName(c)+` WHERE `+expr+` = ? ORDER BY `+expr+`, pk`,
		indexValue(value),
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s.%s: %w", collection, index, err)
	}
	return decodeRows(c, rows)
}

// indexValue maps Go values onto what json_extract yields for the same
// JSON value.
func indexValue(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

// Update writes rec under its key, inserting when the key is new. In
// auto-keyed collections updatedAt is refreshed and the stored createdAt is
// carried over, read in the same transaction as the write.
func (s *Store) Update(ctx context.Context, collection string, rec model.Record) (any, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	rec = rec.Clone()
	key, err := normalizeKey(c, rec[c.KeyField])
	if err != nil {
		return nil, err
	}
	if key == nil {
		return nil, fmt.Errorf("updating %s: %w: %q is required", collection, ErrMissingKey, c.KeyField)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if c.AutoIncrement {
			createdAt, err := storedCreatedAt(ctx, tx, c, key)
			if err != nil {
				return err
			}
			if createdAt == "" {
				createdAt, _ = rec[model.FieldCreatedAt].(string)
			}
			s.stamp(rec, createdAt)
		}
		_, err := s.put(ctx, tx, c, rec)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrConstraintViolation) {
			s.log.Warn("update rejected", zap.String("collection", collection), zap.Any("key", key), zap.Error(err))
		}
		return nil, fmt.Errorf("updating %s/%v: %w", collection, key, err)
	}
	return key, nil
}

func storedCreatedAt(ctx context.Context, tx *sql.Tx, c CollectionSpec, key any) (string, error) {
	var createdAt sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT json_extract(data, '$.`+model.FieldCreatedAt+`') FROM `+tableName(c)+` WHERE pk = ?`, key,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return createdAt.String, nil
}

// Delete removes the record under key. An absent key is not an error.
func (s *Store) Delete(ctx context.Context, collection string, key any) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	k, err := normalizeKey(c, key)
	if err != nil {
		return err
	}
	if k == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+tableName(c)+` WHERE pk = ?`, k); err != nil {
		return fmt.Errorf("deleting %s/%v: %w", collection, k, err)
	}
	return nil
}

// Count returns the number of records in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	c, err := s.collection(collection)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM `+tableName(c)).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}
