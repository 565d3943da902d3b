package migrations

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/finnysync/internal/dbx"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	require.NoError(t, err)
	return n > 0
}

func TestUp_CreatesSchemaAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "finny.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Up(ctx, db, dbx.SQLite))
	require.NoError(t, Up(ctx, db, dbx.SQLite), "second run must be a no-op")

	for _, table := range []string{"goose_db_version", "budgets", "transactions", "metadata"} {
		require.True(t, tableExists(t, db, table), table)
	}
}

func TestUp_EmbedsBothDialects(t *testing.T) {
	for _, dir := range []string{dbx.SQLite.MigrationsDir(), dbx.Postgres.MigrationsDir()} {
		entries, err := Migrations.ReadDir(dir)
		require.NoError(t, err)
		require.NotEmpty(t, entries, dir)
	}
}

func TestUp_PropagatesGooseError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	boom := errors.New("boom")
	var gotDir string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		gotDir = dir
		return boom
	}

	err := Up(context.Background(), nil, dbx.Postgres)
	require.ErrorIs(t, err, boom)
	require.Equal(t, "postgres", gotDir)
}
