// Package store opens the local database, applies migrations and wires the
// repositories that sit on top of it.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finnysync/internal/client/migrations"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/budgets"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finnysync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finnysync/internal/dbx"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(0)"

type Store struct {
	DB      *sql.DB
	Dialect dbx.Dialect

	Budgets      budgets.Repository
	Transactions transactions.Repository
	Metadata     metadata.Repository
}

// Open connects to dsn, migrates the schema and builds the repositories.
func Open(ctx context.Context, dialect dbx.Dialect, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}
	if dialect == dbx.SQLite {
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect, err)
	}
	if dialect == dbx.SQLite {
		// a single connection keeps :memory: databases shared and makes
		// SQLite writers queue instead of failing with SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect, err)
	}

	if err := migrations.Up(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, err
	}

	return New(db, dialect), nil
}

// New wires repositories over an already migrated database.
func New(db *sql.DB, dialect dbx.Dialect) *Store {
	txs := transactions.NewSQLRepository(db, dialect)
	return &Store{
		DB:           db,
		Dialect:      dialect,
		Budgets:      budgets.NewSQLRepository(db, dialect).WithDependents(txs),
		Transactions: txs,
		Metadata:     metadata.NewSQLRepository(db, dialect),
	}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqlitePragmas
	}
	return dsn + "?" + sqlitePragmas
}
