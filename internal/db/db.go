package db

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // Register postgres driver for migrations
)

// DBTX is the subset of pgx methods shared by *pgxpool.Pool and pgx.Tx.
// Repositories take one explicitly so the caller decides the transaction boundary.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is a unit of work. pgx.Tx satisfies it.
type Tx interface {
	DBTX
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner opens transactions.
type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

// TxPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type TxPool interface {
	DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PoolBeginner starts read-committed transactions on a pool. Stock rows are
// locked with SELECT ... FOR UPDATE and guarded by a version column, so the
// default isolation level is enough.
type PoolBeginner struct {
	Pool TxPool
}

func NewPoolBeginner(pool TxPool) *PoolBeginner {
	return &PoolBeginner{Pool: pool}
}

func (b *PoolBeginner) Begin(ctx context.Context) (Tx, error) {
	return b.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
}

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// openDB opens a database connection without pinging.
func openDB(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}
