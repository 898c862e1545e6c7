package sales

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/sales"
	"github.com/storeops/backend/internal/domain/shared"
)

// OrderPaymentService applies verified gateway notifications to orders
type OrderPaymentService struct {
	orders sales.OrderRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewOrderPaymentService creates a new OrderPaymentService
func NewOrderPaymentService(orders sales.OrderRepository, logger *zap.Logger) *OrderPaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderPaymentService{orders: orders, logger: logger, now: time.Now}
}

// ApplyPayment moves the order named by the notification. A success must
// match the order total exactly; failures and cancellations mark the
// attempt failed so the customer can pay again. Pending changes nothing.
func (s *OrderPaymentService) ApplyPayment(ctx context.Context, result *payment.WebhookResult) error {
	if result.Status == payment.StatusPending {
		return nil
	}
	order, err := s.findOrder(ctx, result.OrderID)
	if err != nil {
		return err
	}
	now := s.now()

	switch result.Status {
	case payment.StatusSuccess:
		if order.Status == sales.OrderStatusPaid && order.PaymentReference == result.PaymentID {
			return nil
		}
		if result.Currency != "" && !strings.EqualFold(result.Currency, order.Currency) {
			return shared.NewValidationError(fmt.Sprintf("paid currency %s does not match order currency %s", result.Currency, order.Currency))
		}
		if err := order.MarkPaid(result.Provider, result.PaymentID, result.Amount, now); err != nil {
			return err
		}
	case payment.StatusFailed, payment.StatusCancelled:
		if order.Status == sales.OrderStatusPaid {
			// A late failure for an abandoned attempt must not undo a payment.
			s.logger.Info("Ignoring payment failure for paid order",
				zap.String("order_number", order.OrderNumber),
				zap.String("payment_id", result.PaymentID))
			return nil
		}
		if err := order.MarkPaymentFailed(result.Provider, result.PaymentID, now); err != nil {
			return err
		}
	default:
		return shared.NewValidationError(fmt.Sprintf("unknown payment status %q", result.Status))
	}

	if err := s.orders.Save(ctx, order); err != nil {
		return err
	}
	s.logger.Info("Order payment updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", order.Status.String()),
		zap.String("provider", result.Provider))
	return nil
}

// findOrder accepts the order ID gateways echo back, or an order number
func (s *OrderPaymentService) findOrder(ctx context.Context, ref string) (*sales.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, shared.NewValidationError("notification does not name an order")
	}
	if id, err := uuid.Parse(ref); err == nil {
		return s.orders.FindByID(ctx, id)
	}
	return s.orders.FindByNumber(ctx, ref)
}
