package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
)

// GormQuoteRepository implements sales.QuoteRepository using GORM
type GormQuoteRepository struct {
	db *gorm.DB
}

// NewGormQuoteRepository creates a new GormQuoteRepository
func NewGormQuoteRepository(db *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormQuoteRepository) WithTx(tx *gorm.DB) *GormQuoteRepository {
	return &GormQuoteRepository{db: tx}
}

// preloadQuote loads items in line order and history in append order
func preloadQuote(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("seq ASC") })
}

// FindByID finds a quote by its ID
func (r *GormQuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Quote, error) {
	var model models.QuoteModel
	if err := preloadQuote(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a quote by its quote number
func (r *GormQuoteRepository) FindByNumber(ctx context.Context, number string) (*sales.Quote, error) {
	var model models.QuoteModel
	if err := preloadQuote(r.db.WithContext(ctx)).First(&model, "quote_number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns one page of quotes and the total matching the filter
func (r *GormQuoteRepository) List(ctx context.Context, filter sales.QuoteFilter) ([]sales.Quote, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.QuoteModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", filter.Status.String())
	}
	if c := strings.TrimSpace(filter.Customer); c != "" {
		pattern := "%" + strings.ToLower(c) + "%"
		query = query.Where("LOWER(customer_name) LIKE ? OR LOWER(customer_company) LIKE ?", pattern, pattern)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(quote_number) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	orderBy := ValidateSortField(filter.OrderBy, QuoteSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.QuoteModel
	if err := preloadQuote(query).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	quotes := make([]sales.Quote, len(rows))
	for i := range rows {
		quotes[i] = *rows[i].ToDomain()
	}
	return quotes, total, nil
}

// FindExpirable returns DRAFT/SENT/VIEWED quotes whose expiry is before now,
// oldest expiry first
func (r *GormQuoteRepository) FindExpirable(ctx context.Context, now time.Time, limit int) ([]sales.Quote, error) {
	var rows []models.QuoteModel
	if err := preloadQuote(r.db.WithContext(ctx)).
		Where("status IN ?", []string{
			sales.QuoteStatusDraft.String(),
			sales.QuoteStatusSent.String(),
			sales.QuoteStatusViewed.String(),
		}).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	quotes := make([]sales.Quote, len(rows))
	for i := range rows {
		quotes[i] = *rows[i].ToDomain()
	}
	return quotes, nil
}

// Save inserts a new quote or updates an existing one at its loaded
// version. Items are rewritten; history rows already stored are never
// touched, only new entries are appended.
func (r *GormQuoteRepository) Save(ctx context.Context, q *sales.Quote) error {
	currentVersion := q.Version
	model := models.QuoteModelFromDomain(q)
	updated := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.QuoteModel{}).
			Where("id = ? AND version = ?", q.ID, currentVersion).
			Updates(map[string]any{
				"customer_id":           model.CustomerID,
				"customer_name":         model.CustomerName,
				"customer_company":      model.CustomerCompany,
				"customer_email":        model.CustomerEmail,
				"customer_phone":        model.CustomerPhone,
				"tax_rate":              model.TaxRate,
				"subtotal":              model.Subtotal,
				"tax_amount":            model.TaxAmount,
				"total":                 model.Total,
				"currency":              model.Currency,
				"status":                model.Status,
				"notes":                 model.Notes,
				"expires_at":            model.ExpiresAt,
				"sent_at":               model.SentAt,
				"viewed_at":             model.ViewedAt,
				"accepted_at":           model.AcceptedAt,
				"rejected_at":           model.RejectedAt,
				"rejection_reason":      model.RejectionReason,
				"converted_to_order_id": model.ConvertedToOrderID,
				"converted_at":          model.ConvertedAt,
				"updated_at":            model.UpdatedAt,
				"version":               currentVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.QuoteModel{}).Where("id = ?", q.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return shared.ErrConcurrencyConflict
			}
			if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
				return err
			}
		} else {
			updated = true
			if err := tx.Where("quote_id = ?", q.ID).Delete(&models.QuoteItemModel{}).Error; err != nil {
				return err
			}
		}

		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}
		if len(model.History) > 0 {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&model.History).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if updated {
		q.IncrementVersion()
	}
	return nil
}

var _ sales.QuoteRepository = (*GormQuoteRepository)(nil)
