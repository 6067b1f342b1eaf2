package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	src, err := iofs.New(migrationsFS, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, _, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
}

func TestMigrations_Schema(t *testing.T) {
	sql, err := fs.ReadFile(migrationsFS, "migrations/000001_create_uploads.up.sql")
	require.NoError(t, err)

	schema := strings.ToLower(string(sql))
	assert.Contains(t, schema, "create table if not exists images")
	assert.Contains(t, schema, "create table if not exists audio")
	assert.Contains(t, schema, "unique (author, filename)")
}
