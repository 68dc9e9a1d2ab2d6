package main

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookresale/internal/book"
)

// repoMigrationsDir resolves db/migrations from this file, which lives two
// levels below the repo root.
func repoMigrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	require.True(t, ok, "runtime.Caller failed")
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "db", "migrations")
}

func readMigration(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(repoMigrationsDir(t), name))
	require.NoError(t, err)
	return string(b)
}

func TestCollectMigrations(t *testing.T) {
	migrations, err := goose.CollectMigrations(repoMigrationsDir(t), 0, goose.MaxVersion)
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, int64(1), migrations[0].Version)
}

func TestBooksMigration_Schema(t *testing.T) {
	sql := readMigration(t, "00001_create_books.sql")

	assert.Contains(t, sql, "isbn                TEXT PRIMARY KEY")
	assert.Contains(t, sql, "CONSTRAINT "+book.PriceOrderConstraint)
	assert.Contains(t, sql, "highest_price >= sell_price")
	assert.Contains(t, sql, "CHECK (source IN ('google', 'openlibrary', 'none'))")
	assert.Contains(t, sql, "sell_price          NUMERIC(10, 2)")
	assert.Contains(t, sql, "idx_books_last_price_check")
	assert.Contains(t, sql, "DROP TABLE IF EXISTS books")
}
