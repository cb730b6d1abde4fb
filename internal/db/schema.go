package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LatestSchemaVersion is the highest migration embedded in this binary.
const LatestSchemaVersion = 1

var (
	ErrSchemaDirty    = errors.New("db: schema migration left dirty")
	ErrSchemaOutdated = errors.New("db: schema is behind this binary")
)

const selectSchemaVersionSQL = `SELECT version, dirty FROM schema_migrations LIMIT 1`

// OpenSQL opens a database/sql handle on the lib/pq driver. It does not ping.
func OpenSQL(dsn string) (*sql.DB, error) {
	return openDB(dsn)
}

// SchemaVersion reads golang-migrate's bookkeeping row. A database that was
// never migrated reports version 0.
func SchemaVersion(ctx context.Context, sqlDB *sql.DB) (uint, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := sqlDB.QueryRowContext(ctx, selectSchemaVersionSQL).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return uint(version), dirty, nil
}

// CheckSchema fails when the schema is dirty or older than LatestSchemaVersion.
func CheckSchema(ctx context.Context, sqlDB *sql.DB) error {
	version, dirty, err := SchemaVersion(ctx, sqlDB)
	if err != nil {
		return err
	}
	if dirty {
		return fmt.Errorf("%w at version %d", ErrSchemaDirty, version)
	}
	if version < LatestSchemaVersion {
		return fmt.Errorf("%w: have %d, want %d", ErrSchemaOutdated, version, LatestSchemaVersion)
	}
	return nil
}
