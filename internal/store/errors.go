package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrStoreUnavailable means the database could not be opened.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrSchemaUpgradeFailed means the upgrade pass was rolled back.
	ErrSchemaUpgradeFailed = errors.New("schema upgrade failed")

	ErrUnknownCollection = errors.New("unknown collection")
	ErrUnknownIndex      = errors.New("unknown index")

	// ErrConstraintViolation is returned when a unique index or primary key
	// rejects a write.
	ErrConstraintViolation = errors.New("constraint violation")

	ErrBackupNotFound = errors.New("backup not found")

	// ErrNotFound is soft: Get returns it for an absent key, Delete never does.
	ErrNotFound = errors.New("record not found")

	ErrMissingKey = errors.New("record has no key")
	ErrClosed     = errors.New("store is closed")
)

// mapSQLiteError converts engine constraint failures into
// ErrConstraintViolation, keeping the driver message.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %s", ErrConstraintViolation, sqliteErr.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
