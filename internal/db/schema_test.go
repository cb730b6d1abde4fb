package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB, mock
}

func TestCheckSchema_Current(t *testing.T) {
	sqlDB, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSchemaVersionSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(LatestSchemaVersion, false))

	require.NoError(t, CheckSchema(context.Background(), sqlDB))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSchema_Dirty(t *testing.T) {
	sqlDB, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSchemaVersionSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}).AddRow(1, true))

	err := CheckSchema(context.Background(), sqlDB)
	require.ErrorIs(t, err, ErrSchemaDirty)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSchema_NeverMigrated(t *testing.T) {
	sqlDB, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSchemaVersionSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "dirty"}))

	err := CheckSchema(context.Background(), sqlDB)
	require.ErrorIs(t, err, ErrSchemaOutdated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaVersion_QueryError(t *testing.T) {
	sqlDB, mock := newSQLMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectSchemaVersionSQL)).
		WillReturnError(errors.New("relation \"schema_migrations\" does not exist"))

	_, _, err := SchemaVersion(context.Background(), sqlDB)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read schema version")
}
