package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements sales.OrderRepository and
// sales.ConversionStore using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*sales.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByNumber finds an order by its order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, number string) (*sales.Order, error) {
	return r.findOne(ctx, "order_number = ?", number)
}

// FindByQuoteID finds the order a quote was converted into
func (r *GormOrderRepository) FindByQuoteID(ctx context.Context, quoteID uuid.UUID) (*sales.Order, error) {
	return r.findOne(ctx, "quote_id = ?", quoteID)
}

// Save inserts a new order or updates the payment state of an existing one
// at its loaded version. Order lines are immutable once stored.
func (r *GormOrderRepository) Save(ctx context.Context, o *sales.Order) error {
	currentVersion := o.Version
	model := models.OrderModelFromDomain(o)

	result := r.db.WithContext(ctx).
		Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", o.ID, currentVersion).
		Updates(map[string]any{
			"status":            model.Status,
			"note":              model.Note,
			"payment_provider":  model.PaymentProvider,
			"payment_reference": model.PaymentReference,
			"checkout_url":      model.CheckoutURL,
			"paid_amount":       model.PaidAmount,
			"paid_at":           model.PaidAt,
			"cancel_reason":     model.CancelReason,
			"updated_at":        model.UpdatedAt,
			"version":           currentVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		o.IncrementVersion()
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrConcurrencyConflict
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return insertOrder(tx, model)
	})
}

// CommitConversion links the quote to the order and inserts the order in
// one transaction. The quote update only matches an ACCEPTED, unconverted
// row at the loaded version, so a concurrent conversion makes it miss and
// nothing is written.
func (r *GormOrderRepository) CommitConversion(ctx context.Context, q *sales.Quote, o *sales.Order) error {
	if q.ConvertedToOrderID == nil || *q.ConvertedToOrderID != o.ID {
		return shared.NewValidationError("quote must be linked to the order being committed")
	}
	currentVersion := q.Version

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.QuoteModel{}).
			Where("id = ? AND version = ? AND status = ? AND converted_to_order_id IS NULL",
				q.ID, currentVersion, sales.QuoteStatusAccepted.String()).
			Updates(map[string]any{
				"converted_to_order_id": o.ID,
				"converted_at":          q.ConvertedAt,
				"accepted_at":           q.AcceptedAt,
				"updated_at":            q.UpdatedAt,
				"version":               currentVersion + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewStateError(fmt.Sprintf("quote %s was changed or converted concurrently", q.QuoteNumber))
		}
		return insertOrder(tx, models.OrderModelFromDomain(o))
	})
	if err != nil {
		return err
	}
	q.IncrementVersion()
	return nil
}

func insertOrder(tx *gorm.DB, model *models.OrderModel) error {
	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	if len(model.Items) == 0 {
		return nil
	}
	return tx.Create(&model.Items).Error
}

var (
	_ sales.OrderRepository = (*GormOrderRepository)(nil)
	_ sales.ConversionStore = (*GormOrderRepository)(nil)
)
