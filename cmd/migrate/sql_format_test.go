package main

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var migrationName = regexp.MustCompile(`^\d{5}_[a-z0-9_]+\.sql$`)

func TestSQLMigrations_Format(t *testing.T) {
	dir := repoMigrationsDir(t)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		t.Run(e.Name(), func(t *testing.T) {
			assert.Regexp(t, migrationName, e.Name())

			b, err := os.ReadFile(filepath.Join(dir, e.Name()))
			require.NoError(t, err)
			sql := string(b)

			up := strings.Index(sql, "-- +goose Up")
			down := strings.Index(sql, "-- +goose Down")
			require.GreaterOrEqual(t, up, 0, "missing '-- +goose Up'")
			require.Greater(t, down, up, "'-- +goose Down' must follow '-- +goose Up'")
			assert.NotEmpty(t, strings.TrimSpace(sql[down+len("-- +goose Down"):]), "empty Down section")
		})
	}
}
