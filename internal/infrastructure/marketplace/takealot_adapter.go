package marketplace

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/marketplace"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// TakealotName is the registry key of the Takealot seller channel
const TakealotName = "takealot"

// takealotBatchSize is the most offers one stock update call accepts
const takealotBatchSize = 100

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type takealotOffer struct {
	SKU           string          `json:"sku"`
	Title         string          `json:"title,omitempty"`
	Barcode       string          `json:"barcode,omitempty"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	LeadtimeStock []takealotStock `json:"leadtime_stock"`
}

type takealotStock struct {
	MerchantWarehouseID int `json:"merchant_warehouse_id"`
	Quantity            int `json:"quantity"`
}

type takealotOfferResponse struct {
	OfferID int64  `json:"offer_id"`
	Status  string `json:"status"`
}

type takealotStockUpdate struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

type takealotBatchRequest struct {
	Offers []takealotStockUpdate `json:"offers"`
}

type takealotBatchResponse struct {
	Updated int `json:"updated"`
	Failed  []struct {
		SKU    string `json:"sku"`
		Reason string `json:"reason"`
	} `json:"failed"`
}

type takealotSale struct {
	OrderID        int64           `json:"order_id"`
	OrderItemID    int64           `json:"order_item_id"`
	SKU            string          `json:"sku"`
	Quantity       int             `json:"quantity"`
	SellingPrice   decimal.Decimal `json:"selling_price"`
	SaleStatus     string          `json:"sale_status"`
	CustomerName   string          `json:"customer"`
	OrderDate      time.Time       `json:"order_date"`
	DeliveryCity   string          `json:"delivery_city"`
	DeliveryPostal string          `json:"delivery_postal_code"`
}

type takealotSalesResponse struct {
	Sales []takealotSale `json:"sales"`
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// TakealotAdapter implements marketplace.Channel against the Takealot
// seller API. api must already carry the "Key" authorization header.
type TakealotAdapter struct {
	config config.TakealotConfig
	api    *upstream.Client
	logger *zap.Logger
}

// NewTakealotAdapter creates the adapter
func NewTakealotAdapter(cfg config.TakealotConfig, api *upstream.Client, logger *zap.Logger) *TakealotAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TakealotAdapter{config: cfg, api: api, logger: logger}
}

func (a *TakealotAdapter) Name() string        { return TakealotName }
func (a *TakealotAdapter) DisplayName() string { return "Takealot" }
func (a *TakealotAdapter) IsConfigured() bool  { return a.config.IsConfigured() && a.api != nil }

func (a *TakealotAdapter) ensureConfigured() error {
	if !a.IsConfigured() {
		return shared.NewConfigurationError(TakealotName, "API key is not configured")
	}
	return nil
}

// PushListing creates or updates the offer for a SKU
func (a *TakealotAdapter) PushListing(ctx context.Context, listing *marketplace.Listing) (*marketplace.ListingResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if err := listing.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: TakealotName, Op: "PushListing", Message: "invalid listing", Err: err}
	}

	var resp takealotOfferResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:     "PushListing",
		Method: http.MethodPost,
		Path:   "/offers",
		JSON: takealotOffer{
			SKU:           listing.SKU,
			Title:         listing.Title,
			Barcode:       listing.Barcode,
			SellingPrice:  listing.Price,
			LeadtimeStock: []takealotStock{{Quantity: listing.Quantity}},
		},
	}, &resp); err != nil {
		return nil, err
	}

	return &marketplace.ListingResult{
		Channel: TakealotName,
		SKU:     listing.SKU,
		OfferID: strconv.FormatInt(resp.OfferID, 10),
		Status:  resp.Status,
	}, nil
}

// UpdateInventory sends stock levels in batches. A failed batch aborts the
// remaining ones; SKUs the channel rejects are reported in Failed.
func (a *TakealotAdapter) UpdateInventory(ctx context.Context, updates []marketplace.InventoryUpdate) (*marketplace.SyncResult, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	for _, u := range updates {
		if err := u.Validate(); err != nil {
			return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: TakealotName, Op: "UpdateInventory", Message: "invalid inventory update", Err: err}
		}
	}

	result := &marketplace.SyncResult{Channel: TakealotName}
	for start := 0; start < len(updates); start += takealotBatchSize {
		end := min(start+takealotBatchSize, len(updates))
		batch := make([]takealotStockUpdate, 0, end-start)
		for _, u := range updates[start:end] {
			batch = append(batch, takealotStockUpdate{SKU: u.SKU, Quantity: u.Quantity})
		}

		var resp takealotBatchResponse
		if err := a.api.Do(ctx, upstream.Request{
			Op:     "UpdateInventory",
			Method: http.MethodPatch,
			Path:   "/offers/batch",
			JSON:   takealotBatchRequest{Offers: batch},
		}, &resp); err != nil {
			return result, err
		}
		result.Updated += resp.Updated
		for _, f := range resp.Failed {
			result.Failed = append(result.Failed, f.SKU)
		}
	}

	result.Succeeded = len(result.Failed) == 0
	if !result.Succeeded {
		a.logger.Warn("Takealot rejected some stock updates",
			zap.Int("updated", result.Updated),
			zap.Strings("failed", result.Failed),
		)
	}
	return result, nil
}

// PullOrders lists sales in the window, grouping sale lines by order
func (a *TakealotAdapter) PullOrders(ctx context.Context, req *marketplace.OrderPullRequest) ([]marketplace.ChannelOrder, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: TakealotName, Op: "PullOrders", Message: "invalid order window", Err: err}
	}

	var resp takealotSalesResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:   "PullOrders",
		Path: "/sales",
		Query: url.Values{
			"filters":     {fmt.Sprintf("start_date:%s;end_date:%s", req.Since.Format(time.DateOnly), req.Until.Format(time.DateOnly))},
			"page_number": {strconv.Itoa(req.Page)},
			"page_size":   {"100"},
		},
	}, &resp); err != nil {
		return nil, err
	}

	orders := make([]marketplace.ChannelOrder, 0)
	index := make(map[int64]int)
	for _, s := range resp.Sales {
		i, ok := index[s.OrderID]
		if !ok {
			orders = append(orders, marketplace.ChannelOrder{
				Channel:      TakealotName,
				OrderID:      strconv.FormatInt(s.OrderID, 10),
				Status:       s.SaleStatus,
				BuyerName:    s.CustomerName,
				Total:        decimal.Zero,
				Currency:     "ZAR",
				PlacedAt:     s.OrderDate,
				ShipToCity:   s.DeliveryCity,
				ShipToPostal: s.DeliveryPostal,
			})
			i = len(orders) - 1
			index[s.OrderID] = i
		}
		o := &orders[i]
		o.Lines = append(o.Lines, marketplace.OrderLine{SKU: s.SKU, Quantity: s.Quantity, UnitPrice: s.SellingPrice})
		o.Total = o.Total.Add(s.SellingPrice.Mul(decimal.NewFromInt(int64(s.Quantity))))
	}
	return orders, nil
}

var _ marketplace.Channel = (*TakealotAdapter)(nil)
