package accounting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/accounting"
	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/domain/shared"
)

// LedgerSyncService pushes sales orders to accounting backends as invoices
type LedgerSyncService struct {
	registry    *accounting.Registry
	credentials *CredentialManager
	orders      sales.OrderRepository
	logger      *zap.Logger
	now         func() time.Time
}

// NewLedgerSyncService creates a new LedgerSyncService
func NewLedgerSyncService(
	registry *accounting.Registry,
	credentials *CredentialManager,
	orders sales.OrderRepository,
	logger *zap.Logger,
) *LedgerSyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerSyncService{
		registry:    registry,
		credentials: credentials,
		orders:      orders,
		logger:      logger,
		now:         time.Now,
	}
}

// PushOrderInvoice pushes the order to backend as a sales invoice. When the
// order is already paid the payment is recorded against the invoice too.
func (s *LedgerSyncService) PushOrderInvoice(ctx context.Context, backend string, orderID uuid.UUID) (*InvoiceSyncResult, error) {
	ledger, err := s.registry.GetConfigured(backend)
	if err != nil {
		return nil, err
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == sales.OrderStatusCancelled {
		return nil, shared.NewStateError(fmt.Sprintf("order %s is cancelled", order.OrderNumber))
	}

	cred, err := s.credentials.GetActiveToken(ctx, backend)
	if err != nil {
		return nil, err
	}

	inv := s.invoiceFromOrder(order)
	res, err := ledger.PushInvoice(ctx, cred.AccessToken, inv)
	if err != nil {
		s.logger.Warn("Failed to push invoice",
			zap.String("backend", backend),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return nil, err
	}

	if order.Status == sales.OrderStatusPaid {
		paidAt := s.now()
		if order.PaidAt != nil {
			paidAt = *order.PaidAt
		}
		err := ledger.RecordPayment(ctx, cred.AccessToken, &accounting.PaymentRecord{
			InvoiceID: res.InvoiceID,
			Amount:    order.PaidAmount,
			PaidAt:    paidAt,
			Reference: order.PaymentReference,
		})
		if err != nil {
			// The invoice exists upstream; the payment can be reconciled there.
			s.logger.Warn("Invoice pushed but payment not recorded",
				zap.String("backend", backend),
				zap.String("invoice_id", res.InvoiceID),
				zap.Error(err))
		}
	}

	s.logger.Info("Order pushed to ledger",
		zap.String("backend", backend),
		zap.String("order_number", order.OrderNumber),
		zap.String("invoice_id", res.InvoiceID))

	return &InvoiceSyncResult{
		Backend:     backend,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		InvoiceID:   res.InvoiceID,
		Number:      res.Number,
		Status:      res.Status,
		Total:       order.Total.StringFixed(2),
	}, nil
}

func (s *LedgerSyncService) invoiceFromOrder(o *sales.Order) *accounting.Invoice {
	contact := o.Customer.Name
	if strings.TrimSpace(o.Customer.Company) != "" {
		contact = o.Customer.Company
	}
	issued := o.CreatedAt
	if issued.IsZero() {
		issued = s.now()
	}
	// Lines carry tax-exclusive prices; the ledger applies VAT per line.
	lines := make([]accounting.InvoiceLine, 0, len(o.Items))
	for _, it := range o.Items {
		desc := it.Name
		if it.SKU != "" {
			desc = it.SKU + " " + it.Name
		}
		lines = append(lines, accounting.InvoiceLine{
			Description: desc,
			Quantity:    it.Quantity,
			UnitAmount:  it.UnitPrice,
		})
	}
	return &accounting.Invoice{
		Reference:    o.OrderNumber,
		ContactName:  contact,
		ContactEmail: o.Customer.Email,
		IssueDate:    issued,
		DueDate:      issued,
		Currency:     o.Currency,
		Lines:        lines,
	}
}
