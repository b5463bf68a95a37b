package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/seastarlegal/seastar/internal/model"
	"go.uber.org/zap"
)

const backupNamePrefix = "نسخة احتياطية "

// CreateBackup snapshots every collection and stores the snapshot as a new
// record in backups. Both happen in one transaction, so the snapshot's
// backups section holds the state before this entry.
func (s *Store) CreateBackup(ctx context.Context) (*model.Backup, error) {
	backups, err := s.collection(Backups)
	if err != nil {
		return nil, err
	}

	b := &model.Backup{
		Timestamp:     s.timestamp(),
		SchemaVersion: s.version,
		Data:          make(map[string][]model.Record, len(s.schema.Collections)),
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range s.schema.Collections {
			records, err := s.getAll(ctx, tx, c)
			if err != nil {
				return fmt.Errorf("reading %s: %w", c.Name, err)
			}
			b.Data[c.Name] = records
		}

		payload, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("encoding snapshot: %w", err)
		}
		rec := model.Record{
			"name": backupNamePrefix + s.now().In(s.loc).Format("2006-01-02"),
			"data": json.RawMessage(payload),
			"size": len(payload),
		}
		key, err := s.insert(ctx, tx, backups, s.stamp(rec, ""))
		if err != nil {
			return fmt.Errorf("storing snapshot: %w", err)
		}
		b.ID = key.(int64)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating backup: %w", err)
	}
	s.log.Info("backup created", zap.Int64("id", b.ID), zap.Int("collections", len(b.Data)))
	return b, nil
}

// GetBackup loads a stored snapshot.
func (s *Store) GetBackup(ctx context.Context, id int64) (*model.Backup, error) {
	backups, err := s.collection(Backups)
	if err != nil {
		return nil, err
	}
	return s.loadBackup(ctx, s.db, backups, id)
}

func (s *Store) loadBackup(ctx context.Context, q querier, backups CollectionSpec, id int64) (*model.Backup, error) {
	var raw sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT json_extract(data, '$.data') FROM `+tableName(backups)+` WHERE pk = ?`, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrBackupNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup %d: %w", id, err)
	}
	if !raw.Valid {
		return nil, fmt.Errorf("backup %d has no snapshot", id)
	}
	b := &model.Backup{}
	if err := json.Unmarshal([]byte(raw.String), b); err != nil {
		return nil, fmt.Errorf("decoding backup %d: %w", id, err)
	}
	b.ID = id
	return b, nil
}

// ListBackups returns the stored backups, newest first, without their
// payloads.
func (s *Store) ListBackups(ctx context.Context) ([]model.BackupSummary, error) {
	backups, err := s.collection(Backups)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT pk,
		json_extract(data, '$.name'),
		json_extract(data, '$.size'),
		json_extract(data, '$.data.schemaVersion'),
		json_extract(data, '$.createdAt')
		FROM `+tableName(backups)+` ORDER BY pk DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	defer rows.Close()

	out := []model.BackupSummary{}
	for rows.Next() {
		var (
			sum       model.BackupSummary
			name      sql.NullString
			size      sql.NullInt64
			version   sql.NullInt64
			createdAt sql.NullString
		)
		if err := rows.Scan(&sum.ID, &name, &size, &version, &createdAt); err != nil {
			return nil, fmt.Errorf("listing backups: %w", err)
		}
		sum.Name = name.String
		sum.Size = size.Int64
		sum.SchemaVersion = int(version.Int64)
		sum.CreatedAt = createdAt.String
		out = append(out, sum)
	}
	return out, rows.Err()
}

// RestoreBackup replaces the contents of every collection except backups
// with the snapshot stored under id. Collections missing from the snapshot
// end up empty. Any failure rolls the whole restore back.
func (s *Store) RestoreBackup(ctx context.Context, id int64) error {
	backups, err := s.collection(Backups)
	if err != nil {
		return err
	}

	var restored int
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		b, err := s.loadBackup(ctx, tx, backups, id)
		if err != nil {
			return err
		}
		for name := range b.Data {
			if _, ok := s.schema.Collection(name); !ok {
				s.log.Warn("snapshot collection not in schema, skipped", zap.String("collection", name))
			}
		}
		for _, c := range s.schema.Collections {
			if c.Name == Backups {
				continue
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+tableName(c)); err != nil {
				return fmt.Errorf("clearing %s: %w", c.Name, err)
			}
			for _, rec := range b.Data[c.Name] {
				if _, err := s.insert(ctx, tx, c, rec); err != nil {
					return fmt.Errorf("restoring %s: %w", c.Name, err)
				}
				restored++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error("restore failed, rolled back", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("restoring backup %d: %w", id, err)
	}
	s.log.Info("backup restored", zap.Int64("id", id), zap.Int("records", restored))
	return nil
}

// DeleteBackup removes a stored backup.
func (s *Store) DeleteBackup(ctx context.Context, id int64) error {
	backups, err := s.collection(Backups)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+tableName(backups)+` WHERE pk = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting backup %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrBackupNotFound, id)
	}
	return nil
}
