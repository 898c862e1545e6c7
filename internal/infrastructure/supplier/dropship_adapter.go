package supplier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/supplier"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/signature"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// DropshipName is the registry key of the dropship wholesaler feed
const DropshipName = "dropship"

// Request authentication headers. The signature is an HMAC-SHA256 over
// the api key, timestamp and request parameters keyed by the API secret.
const (
	dsHeaderKey       = "X-Api-Key"
	dsHeaderTimestamp = "X-Timestamp"
	dsHeaderSignature = "X-Signature"
)

type dsStockResponse struct {
	SKU       string          `json:"sku"`
	Available int             `json:"available"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	LeadDays  int             `json:"lead_days"`
}

type dsOrderLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type dsOrderRequest struct {
	Reference string        `json:"reference"`
	ShipTo    string        `json:"ship_to,omitempty"`
	Lines     []dsOrderLine `json:"lines"`
}

type dsOrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// DropshipAdapter implements supplier.Supplier for a wholesaler JSON feed
type DropshipAdapter struct {
	config config.DropshipConfig
	api    *upstream.Client
	codec  *signature.Codec
	logger *zap.Logger
	now    func() time.Time
}

// NewDropshipAdapter creates the adapter
func NewDropshipAdapter(cfg config.DropshipConfig, api *upstream.Client, logger *zap.Logger) *DropshipAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DropshipAdapter{
		config: cfg,
		api:    api,
		codec:  signature.NewHMACSHA256Codec(),
		logger: logger,
		now:    time.Now,
	}
}

func (a *DropshipAdapter) Name() string        { return DropshipName }
func (a *DropshipAdapter) DisplayName() string { return "Dropship Wholesale" }
func (a *DropshipAdapter) IsConfigured() bool  { return a.config.IsConfigured() && a.api != nil }

func (a *DropshipAdapter) ensureConfigured() error {
	if !a.IsConfigured() {
		return shared.NewConfigurationError(DropshipName, "API key or secret is not configured")
	}
	return nil
}

// signedHeaders signs params together with the key and a timestamp
func (a *DropshipAdapter) signedHeaders(params url.Values) map[string]string {
	ts := strconv.FormatInt(a.now().Unix(), 10)
	signed := url.Values{}
	for k, v := range params {
		signed[k] = v
	}
	signed.Set("api_key", a.config.APIKey)
	signed.Set("timestamp", ts)
	return map[string]string{
		dsHeaderKey:       a.config.APIKey,
		dsHeaderTimestamp: ts,
		dsHeaderSignature: a.codec.Sign(signed, a.config.APISecret),
	}
}

// CheckStock returns availability and cost for one SKU
func (a *DropshipAdapter) CheckStock(ctx context.Context, sku string) (*supplier.StockLevel, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sku) == "" {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: DropshipName, Op: "CheckStock", Message: "invalid SKU", Err: supplier.ErrInvalidSKU}
	}

	var resp dsStockResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:      "CheckStock",
		Path:    "/stock/" + url.PathEscape(sku),
		Headers: a.signedHeaders(url.Values{"sku": {sku}}),
	}, &resp); err != nil {
		if upstream.StatusCode(err) == http.StatusNotFound {
			return nil, shared.NewNotFoundError(fmt.Sprintf("dropship: SKU %s not stocked", sku))
		}
		return nil, err
	}

	currency := resp.Currency
	if currency == "" {
		currency = "ZAR"
	}
	return &supplier.StockLevel{
		Supplier:  DropshipName,
		SKU:       sku,
		Available: resp.Available,
		UnitCost:  resp.Price,
		Currency:  strings.ToUpper(currency),
		LeadDays:  resp.LeadDays,
	}, nil
}

// PlaceOrder submits a purchase order
func (a *DropshipAdapter) PlaceOrder(ctx context.Context, po *supplier.PurchaseOrder) (*supplier.PurchaseConfirmation, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if err := po.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: DropshipName, Op: "PlaceOrder", Message: "invalid purchase order", Err: err}
	}

	lines := make([]dsOrderLine, 0, len(po.Lines))
	for _, l := range po.Lines {
		lines = append(lines, dsOrderLine{SKU: l.SKU, Quantity: l.Quantity})
	}

	var resp dsOrderResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:      "PlaceOrder",
		Method:  http.MethodPost,
		Path:    "/orders",
		JSON:    dsOrderRequest{Reference: po.Reference, ShipTo: po.ShipTo, Lines: lines},
		Headers: a.signedHeaders(url.Values{"reference": {po.Reference}}),
	}, &resp); err != nil {
		return nil, err
	}

	a.logger.Info("Purchase order placed",
		zap.String("reference", po.Reference),
		zap.String("supplier_order_id", resp.OrderID),
	)
	return &supplier.PurchaseConfirmation{
		Supplier:        DropshipName,
		SupplierOrderID: resp.OrderID,
		Status:          resp.Status,
	}, nil
}

var _ supplier.Supplier = (*DropshipAdapter)(nil)
