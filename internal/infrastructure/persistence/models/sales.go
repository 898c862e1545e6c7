package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/sales"
)

// QuoteModel is the persistence model for the Quote aggregate root
type QuoteModel struct {
	AggregateModel
	QuoteNumber        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID         *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerName       string          `gorm:"type:varchar(200);not null"`
	CustomerCompany    string          `gorm:"type:varchar(200)"`
	CustomerEmail      string          `gorm:"type:varchar(200)"`
	CustomerPhone      string          `gorm:"type:varchar(30)"`
	TaxRate            decimal.Decimal `gorm:"type:decimal(6,4);not null"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TaxAmount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Total              decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency           string          `gorm:"type:varchar(3);not null"`
	Status             string          `gorm:"type:varchar(20);not null;index:idx_quotes_status_expires,priority:1"`
	Notes              string          `gorm:"type:text"`
	ExpiresAt          *time.Time      `gorm:"index:idx_quotes_status_expires,priority:2"`
	SentAt             *time.Time
	ViewedAt           *time.Time
	AcceptedAt         *time.Time
	RejectedAt         *time.Time
	RejectionReason    string     `gorm:"type:text"`
	ConvertedToOrderID *uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	ConvertedAt        *time.Time
	Items              []QuoteItemModel          `gorm:"foreignKey:QuoteID"`
	History            []QuoteStatusHistoryModel `gorm:"foreignKey:QuoteID"`
}

// TableName returns the table name for GORM
func (QuoteModel) TableName() string {
	return "quotes"
}

// QuoteItemModel is the persistence model for a quote line
type QuoteItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	QuoteID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo    int             `gorm:"not null"`
	ProductID *uuid.UUID      `gorm:"type:uuid"`
	SKU       string          `gorm:"column:sku;type:varchar(64)"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (QuoteItemModel) TableName() string {
	return "quote_items"
}

// QuoteStatusHistoryModel is one append-only audit row
type QuoteStatusHistoryModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	QuoteID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_quote_status_history_seq,priority:1"`
	Seq       int       `gorm:"not null;uniqueIndex:idx_quote_status_history_seq,priority:2"`
	Status    string    `gorm:"type:varchar(20);not null"`
	Note      string    `gorm:"type:text"`
	ChangedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (QuoteStatusHistoryModel) TableName() string {
	return "quote_status_history"
}

// ToDomain converts the persistence model to a domain Quote.
// Items and History must be preloaded in order.
func (m *QuoteModel) ToDomain() *sales.Quote {
	q := &sales.Quote{
		BaseAggregateRoot: m.ToAggregateRoot(),
		QuoteNumber:       m.QuoteNumber,
		Customer: sales.Customer{
			ID:      m.CustomerID,
			Name:    m.CustomerName,
			Company: m.CustomerCompany,
			Email:   m.CustomerEmail,
			Phone:   m.CustomerPhone,
		},
		Items:              make([]sales.QuoteItem, len(m.Items)),
		TaxRate:            m.TaxRate,
		Subtotal:           m.Subtotal,
		TaxAmount:          m.TaxAmount,
		Total:              m.Total,
		Currency:           m.Currency,
		Status:             sales.QuoteStatus(m.Status),
		Notes:              m.Notes,
		ExpiresAt:          m.ExpiresAt,
		SentAt:             m.SentAt,
		ViewedAt:           m.ViewedAt,
		AcceptedAt:         m.AcceptedAt,
		RejectedAt:         m.RejectedAt,
		RejectionReason:    m.RejectionReason,
		ConvertedToOrderID: m.ConvertedToOrderID,
		ConvertedAt:        m.ConvertedAt,
		History:            make([]sales.StatusHistoryEntry, len(m.History)),
	}
	for i, it := range m.Items {
		q.Items[i] = sales.QuoteItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		}
	}
	for i, h := range m.History {
		q.History[i] = sales.StatusHistoryEntry{
			ID:        h.ID,
			QuoteID:   h.QuoteID,
			Status:    sales.QuoteStatus(h.Status),
			Note:      h.Note,
			ChangedAt: h.ChangedAt,
		}
	}
	return q
}

// QuoteModelFromDomain creates a persistence model, with items and history,
// from a domain Quote
func QuoteModelFromDomain(q *sales.Quote) *QuoteModel {
	m := &QuoteModel{
		QuoteNumber:        q.QuoteNumber,
		CustomerID:         q.Customer.ID,
		CustomerName:       q.Customer.Name,
		CustomerCompany:    q.Customer.Company,
		CustomerEmail:      q.Customer.Email,
		CustomerPhone:      q.Customer.Phone,
		TaxRate:            q.TaxRate,
		Subtotal:           q.Subtotal,
		TaxAmount:          q.TaxAmount,
		Total:              q.Total,
		Currency:           q.Currency,
		Status:             q.Status.String(),
		Notes:              q.Notes,
		ExpiresAt:          q.ExpiresAt,
		SentAt:             q.SentAt,
		ViewedAt:           q.ViewedAt,
		AcceptedAt:         q.AcceptedAt,
		RejectedAt:         q.RejectedAt,
		RejectionReason:    q.RejectionReason,
		ConvertedToOrderID: q.ConvertedToOrderID,
		ConvertedAt:        q.ConvertedAt,
		Items:              make([]QuoteItemModel, len(q.Items)),
		History:            make([]QuoteStatusHistoryModel, len(q.History)),
	}
	m.FromDomainAggregateRoot(q.BaseAggregateRoot)
	for i, it := range q.Items {
		m.Items[i] = QuoteItemModel{
			ID:        it.ID,
			QuoteID:   q.ID,
			LineNo:    i + 1,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		}
	}
	for i, h := range q.History {
		m.History[i] = QuoteStatusHistoryModel{
			ID:        h.ID,
			QuoteID:   q.ID,
			Seq:       i + 1,
			Status:    h.Status.String(),
			Note:      h.Note,
			ChangedAt: h.ChangedAt,
		}
	}
	return m
}

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	AggregateModel
	OrderNumber      string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	QuoteID          *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	CustomerID       *uuid.UUID      `gorm:"type:uuid;index"`
	CustomerName     string          `gorm:"type:varchar(200);not null"`
	CustomerCompany  string          `gorm:"type:varchar(200)"`
	CustomerEmail    string          `gorm:"type:varchar(200)"`
	CustomerPhone    string          `gorm:"type:varchar(30)"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TaxAmount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Total            decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	Status           string          `gorm:"type:varchar(20);not null;index"`
	Note             string          `gorm:"type:text"`
	PaymentProvider  string          `gorm:"type:varchar(50)"`
	PaymentReference string          `gorm:"type:varchar(100);index"`
	CheckoutURL      string          `gorm:"type:text"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAt           *time.Time
	CancelReason     string           `gorm:"type:text"`
	Items            []OrderItemModel `gorm:"foreignKey:OrderID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	LineNo    int             `gorm:"not null"`
	ProductID *uuid.UUID      `gorm:"type:uuid"`
	SKU       string          `gorm:"column:sku;type:varchar(64)"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *sales.Order {
	o := &sales.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		QuoteID:           m.QuoteID,
		Customer: sales.Customer{
			ID:      m.CustomerID,
			Name:    m.CustomerName,
			Company: m.CustomerCompany,
			Email:   m.CustomerEmail,
			Phone:   m.CustomerPhone,
		},
		Items:            make([]sales.OrderItem, len(m.Items)),
		Subtotal:         m.Subtotal,
		TaxAmount:        m.TaxAmount,
		Total:            m.Total,
		Currency:         m.Currency,
		Status:           sales.OrderStatus(m.Status),
		Note:             m.Note,
		PaymentProvider:  m.PaymentProvider,
		PaymentReference: m.PaymentReference,
		CheckoutURL:      m.CheckoutURL,
		PaidAmount:       m.PaidAmount,
		PaidAt:           m.PaidAt,
		CancelReason:     m.CancelReason,
	}
	for i, it := range m.Items {
		o.Items[i] = sales.OrderItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		}
	}
	return o
}

// OrderModelFromDomain creates a persistence model, with items, from a domain Order
func OrderModelFromDomain(o *sales.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:      o.OrderNumber,
		QuoteID:          o.QuoteID,
		CustomerID:       o.Customer.ID,
		CustomerName:     o.Customer.Name,
		CustomerCompany:  o.Customer.Company,
		CustomerEmail:    o.Customer.Email,
		CustomerPhone:    o.Customer.Phone,
		Subtotal:         o.Subtotal,
		TaxAmount:        o.TaxAmount,
		Total:            o.Total,
		Currency:         o.Currency,
		Status:           o.Status.String(),
		Note:             o.Note,
		PaymentProvider:  o.PaymentProvider,
		PaymentReference: o.PaymentReference,
		CheckoutURL:      o.CheckoutURL,
		PaidAmount:       o.PaidAmount,
		PaidAt:           o.PaidAt,
		CancelReason:     o.CancelReason,
		Items:            make([]OrderItemModel, len(o.Items)),
	}
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	for i, it := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:        it.ID,
			OrderID:   o.ID,
			LineNo:    i + 1,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Amount:    it.Amount,
		}
	}
	return m
}
