package integration

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/infrastructure/migration"
)

func TestEmbeddedMigrations_RoundTrip(t *testing.T) {
	testDB := NewTestDB(t)

	sqlDB, err := sql.Open("postgres", testDB.DSN)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, "", zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)
	assert.False(t, dirty)

	require.NoError(t, m.Down())
	var tables int64
	require.NoError(t, testDB.DB.Raw(`
		SELECT COUNT(*) FROM pg_tables
		WHERE schemaname = 'public' AND tablename IN ('quotes', 'orders', 'oauth_credentials')
	`).Scan(&tables).Error)
	assert.Zero(t, tables)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "a second Up is a no-op")
	assert.Equal(t, int64(0), testDB.Count("quotes", ""))
}
