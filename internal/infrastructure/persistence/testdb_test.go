package persistence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
)

var repoTestNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

// newTestDB opens an in-memory sqlite database with the persistence schema.
// A single connection keeps every statement on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return repoTestNow },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.OAuthCredentialModel{},
		&models.QuoteModel{},
		&models.QuoteItemModel{},
		&models.QuoteStatusHistoryModel{},
		&models.OrderModel{},
		&models.OrderItemModel{},
	))
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX ux_oauth_credentials_one_active ON oauth_credentials (backend) WHERE is_active`,
	).Error)
	return db
}

// newTestQuote builds an unsaved DRAFT quote: 2 x 100.00 + 1 x 50.00 at 15% VAT
func newTestQuote(t *testing.T, number string, expiresAt *time.Time) *sales.Quote {
	t.Helper()
	widget, err := sales.NewQuoteItem(nil, "WID-1", "Widget", decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.NoError(t, err)
	gadget, err := sales.NewQuoteItem(nil, "GAD-1", "Gadget", decimal.NewFromInt(1), decimal.NewFromInt(50))
	require.NoError(t, err)

	q, err := sales.NewQuote(number, sales.Customer{
		Name:    "Sipho Dlamini",
		Company: "Dlamini Hardware",
		Email:   "sipho@dlamini.co.za",
	}, []sales.QuoteItem{widget, gadget}, decimal.RequireFromString("0.15"), "ZAR", expiresAt, repoTestNow)
	require.NoError(t, err)
	return q
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
