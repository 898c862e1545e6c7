package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
)

func TestGormQuoteRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	q := newTestQuote(t, "QT-000001", ptrTime(repoTestNow.Add(72*time.Hour)))
	require.NoError(t, repo.Save(ctx, q))
	assert.Equal(t, 1, q.Version, "insert keeps the initial version")

	found, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "QT-000001", found.QuoteNumber)
	assert.Equal(t, sales.QuoteStatusDraft, found.Status)
	assert.Equal(t, "Dlamini Hardware", found.Customer.Company)
	assert.Equal(t, "ZAR", found.Currency)
	assert.True(t, decimal.NewFromInt(250).Equal(found.Subtotal))
	assert.True(t, decimal.RequireFromString("37.5").Equal(found.TaxAmount))
	assert.True(t, decimal.RequireFromString("287.5").Equal(found.Total))
	require.Len(t, found.Items, 2)
	assert.Equal(t, "WID-1", found.Items[0].SKU)
	assert.Equal(t, "GAD-1", found.Items[1].SKU)
	require.Len(t, found.History, 1)
	assert.Equal(t, sales.QuoteStatusDraft, found.History[0].Status)

	byNumber, err := repo.FindByNumber(ctx, "QT-000001")
	require.NoError(t, err)
	assert.Equal(t, q.ID, byNumber.ID)
}

func TestGormQuoteRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = repo.FindByNumber(ctx, "QT-404")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormQuoteRepository_TransitionsAppendHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	q := newTestQuote(t, "QT-000002", nil)
	require.NoError(t, repo.Save(ctx, q))

	loaded, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Send(repoTestNow.Add(time.Minute)))
	require.NoError(t, repo.Save(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)

	loaded, err = repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Accept(repoTestNow.Add(2*time.Minute)))
	require.NoError(t, repo.Save(ctx, loaded))

	stored, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.QuoteStatusAccepted, stored.Status)
	assert.Equal(t, 3, stored.Version)
	require.NotNil(t, stored.SentAt)
	require.NotNil(t, stored.AcceptedAt)

	statuses := make([]sales.QuoteStatus, len(stored.History))
	for i, h := range stored.History {
		statuses[i] = h.Status
	}
	assert.Equal(t, []sales.QuoteStatus{
		sales.QuoteStatusDraft,
		sales.QuoteStatusSent,
		sales.QuoteStatusAccepted,
	}, statuses)

	var itemRows int64
	require.NoError(t, repo.db.Model(&models.QuoteItemModel{}).Where("quote_id = ?", q.ID).Count(&itemRows).Error)
	assert.Equal(t, int64(2), itemRows, "rewriting items must not duplicate lines")
}

func TestGormQuoteRepository_StaleSaveConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	q := newTestQuote(t, "QT-000003", nil)
	require.NoError(t, repo.Save(ctx, q))

	first, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)

	require.NoError(t, first.Send(repoTestNow))
	require.NoError(t, repo.Save(ctx, first))

	require.NoError(t, second.Reject("Too expensive", repoTestNow))
	err = repo.Save(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	stored, err := repo.FindByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.QuoteStatusSent, stored.Status)
	assert.Len(t, stored.History, 2)
}

func TestGormQuoteRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	for _, number := range []string{"QT-000010", "QT-000011", "QT-000012"} {
		q := newTestQuote(t, number, nil)
		if number == "QT-000011" {
			require.NoError(t, q.Send(repoTestNow))
		}
		require.NoError(t, repo.Save(ctx, q))
	}

	t.Run("status filter", func(t *testing.T) {
		sent := sales.QuoteStatusSent
		quotes, total, err := repo.List(ctx, sales.QuoteFilter{Status: &sent})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, quotes, 1)
		assert.Equal(t, "QT-000011", quotes[0].QuoteNumber)
	})

	t.Run("pagination keeps the full total", func(t *testing.T) {
		quotes, total, err := repo.List(ctx, sales.QuoteFilter{
			Filter: shared.Filter{Page: 2, PageSize: 2, OrderBy: "quote_number", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, quotes, 1)
		assert.Equal(t, "QT-000012", quotes[0].QuoteNumber)
		assert.Len(t, quotes[0].Items, 2)
	})

	t.Run("sort by quote number descending", func(t *testing.T) {
		quotes, _, err := repo.List(ctx, sales.QuoteFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "quote_number", OrderDir: "desc"},
		})
		require.NoError(t, err)
		require.Len(t, quotes, 3)
		assert.Equal(t, "QT-000012", quotes[0].QuoteNumber)
		assert.Equal(t, "QT-000010", quotes[2].QuoteNumber)
	})

	t.Run("unknown sort column falls back", func(t *testing.T) {
		quotes, total, err := repo.List(ctx, sales.QuoteFilter{
			Filter: shared.Filter{Page: 1, PageSize: 10, OrderBy: "quote_number; DROP TABLE quotes", OrderDir: "asc"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Len(t, quotes, 3)
	})

	t.Run("customer search", func(t *testing.T) {
		_, total, err := repo.List(ctx, sales.QuoteFilter{Customer: "dlamini"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)

		_, total, err = repo.List(ctx, sales.QuoteFilter{Customer: "nobody"})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestGormQuoteRepository_FindExpirable(t *testing.T) {
	ctx := context.Background()
	repo := NewGormQuoteRepository(newTestDB(t))

	soon := newTestQuote(t, "QT-000020", ptrTime(repoTestNow.Add(time.Hour)))
	later := newTestQuote(t, "QT-000021", ptrTime(repoTestNow.Add(48*time.Hour)))
	accepted := newTestQuote(t, "QT-000022", ptrTime(repoTestNow.Add(30*time.Minute)))
	require.NoError(t, accepted.Send(repoTestNow))
	require.NoError(t, accepted.Accept(repoTestNow))
	noExpiry := newTestQuote(t, "QT-000023", nil)

	for _, q := range []*sales.Quote{soon, later, accepted, noExpiry} {
		require.NoError(t, repo.Save(ctx, q))
	}

	due, err := repo.FindExpirable(ctx, repoTestNow.Add(2*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "QT-000020", due[0].QuoteNumber)

	due, err = repo.FindExpirable(ctx, repoTestNow.Add(72*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, due, 1, "limit caps the batch")
	assert.Equal(t, "QT-000020", due[0].QuoteNumber, "oldest expiry first")
}
