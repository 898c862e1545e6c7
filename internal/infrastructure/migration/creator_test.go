package migration

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add webhook archive", "add_webhook_archive"},
		{"Add-Webhook-Archive", "add_webhook_archive"},
		{"ADD__ORDERS__INDEX", "add_orders_index"},
		{"Pargo points 2", "pargo_points_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "create quotes", "Quotes and their lines")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_create_quotes.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_create_quotes.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- create_quotes")
	assert.Contains(t, string(up), "-- Quotes and their lines")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback: create_quotes")

	second, err := CreateMigration(dir, "create orders", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.True(t, strings.HasPrefix(filepath.Base(second.UpPath), "000002_"))
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		list, err := ListMigrations(filepath.Join(t.TempDir(), "nope"))
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("orders by version and pairs files", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000002_create_orders.up.sql",
			"000002_create_orders.down.sql",
			"000001_create_quotes.up.sql",
			"000010_only_up.up.sql",
			"README.md",
			"not_a_version.up.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- sql"), 0o644))
		}

		list, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, MigrationInfo{Version: 1, Name: "create_quotes"}, list[0])
		assert.Equal(t, MigrationInfo{Version: 2, Name: "create_orders", HasDown: true}, list[1])
		assert.Equal(t, uint(10), list[2].Version)
	})
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations.FS, "*"+upSuffix)
	require.NoError(t, err)
	require.NotEmpty(t, ups)

	for _, up := range ups {
		down := strings.TrimSuffix(up, upSuffix) + downSuffix
		_, err := fs.Stat(migrations.FS, down)
		assert.NoError(t, err, "missing rollback for %s", up)
	}

	schema, err := fs.ReadFile(migrations.FS, "000001_create_oauth_credentials.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(schema), "WHERE is_active", "one active credential per backend")
}
