// Package supplier finds stock across upstream suppliers and places
// purchase orders with them.
package supplier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/supplier"
	"github.com/storeops/backend/internal/infrastructure/telemetry"
)

const defaultSupplierTimeout = 15 * time.Second

// SourcingServiceConfig holds configuration for the SourcingService
type SourcingServiceConfig struct {
	Registry        *supplier.Registry
	SupplierTimeout time.Duration
	Metrics         *telemetry.IntegrationMetrics
	Logger          *zap.Logger
}

// SourcingService compares stock offers from every configured supplier
type SourcingService struct {
	registry *supplier.Registry
	timeout  time.Duration
	metrics  *telemetry.IntegrationMetrics
	logger   *zap.Logger
}

// NewSourcingService creates a new SourcingService
func NewSourcingService(cfg SourcingServiceConfig) *SourcingService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.SupplierTimeout
	if timeout <= 0 {
		timeout = defaultSupplierTimeout
	}
	return &SourcingService{
		registry: cfg.Registry,
		timeout:  timeout,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// FindStock asks every configured supplier for sku concurrently and returns
// the offers that can fill qty, cheapest first. Equal costs keep supplier
// registration order. Suppliers that fail or do not stock the SKU are left out.
func (s *SourcingService) FindStock(ctx context.Context, sku string, qty int) ([]supplier.StockLevel, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Op: "FindStock", Message: supplier.ErrInvalidSKU.Error(), Err: supplier.ErrInvalidSKU}
	}
	if qty <= 0 {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Op: "FindStock", Message: supplier.ErrInvalidQuantity.Error(), Err: supplier.ErrInvalidQuantity}
	}

	suppliers := s.registry.Configured()
	slots := make([]*supplier.StockLevel, len(suppliers))

	g := new(errgroup.Group)
	for i, sup := range suppliers {
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			start := time.Now()
			level, err := sup.CheckStock(callCtx, sku)
			s.metrics.ObserveProviderCall(ctx, "supplier", sup.Name(), "CheckStock", time.Since(start), err)
			if err != nil {
				if !shared.IsKind(err, shared.KindNotFound) {
					s.logger.Warn("Supplier stock check failed",
						zap.String("supplier", sup.Name()),
						zap.String("sku", sku),
						zap.Error(err))
				}
				return nil
			}
			if level == nil || !level.CanFulfil(qty) {
				return nil
			}
			offer := *level
			offer.Supplier = sup.Name()
			slots[i] = &offer
			return nil
		})
	}
	_ = g.Wait()

	offers := make([]supplier.StockLevel, 0, len(slots))
	for _, o := range slots {
		if o != nil {
			offers = append(offers, *o)
		}
	}
	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].UnitCost.LessThan(offers[j].UnitCost)
	})
	return offers, nil
}

// PlaceOrder sends po to the named supplier. With no name the cheapest
// supplier able to fill a single-line order is used.
func (s *SourcingService) PlaceOrder(ctx context.Context, supplierName string, po *supplier.PurchaseOrder) (*supplier.PurchaseConfirmation, error) {
	if err := po.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: supplierName, Op: "PlaceOrder", Message: err.Error(), Err: err}
	}

	if supplierName == "" {
		if len(po.Lines) != 1 {
			return nil, shared.NewValidationError("a supplier must be named for multi-line purchase orders")
		}
		offers, err := s.FindStock(ctx, po.Lines[0].SKU, po.Lines[0].Quantity)
		if err != nil {
			return nil, err
		}
		if len(offers) == 0 {
			return nil, shared.NewNotFoundError(fmt.Sprintf("no supplier can fill %d x %s", po.Lines[0].Quantity, po.Lines[0].SKU))
		}
		supplierName = offers[0].Supplier
	}

	sup, err := s.registry.GetConfigured(supplierName)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	conf, err := sup.PlaceOrder(callCtx, po)
	s.metrics.ObserveProviderCall(ctx, "supplier", sup.Name(), "PlaceOrder", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Purchase order placed",
		zap.String("supplier", sup.Name()),
		zap.String("reference", po.Reference),
		zap.String("supplier_order_id", conf.SupplierOrderID))
	return conf, nil
}
