package shipping

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/shipping"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// PargoName is the registry key of Pargo
const PargoName = "pargo"

// PargoAdapter implements shipping.Carrier for delivery to Pargo pickup
// points. Requests without a chosen pickup point are rated to the point
// nearest the destination postal code.
type PargoAdapter struct {
	config config.PargoConfig
	api    *upstream.Client
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewPargoAdapter creates the adapter
func NewPargoAdapter(cfg config.PargoConfig, api *upstream.Client, logger *zap.Logger) *PargoAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PargoAdapter{config: cfg, api: api, logger: logger, now: time.Now}
}

func (a *PargoAdapter) Name() string        { return PargoName }
func (a *PargoAdapter) DisplayName() string { return "Pargo" }
func (a *PargoAdapter) IsConfigured() bool  { return a.config.IsConfigured() && a.api != nil }

// Capabilities declares standard pickup-point delivery up to 20kg
func (a *PargoAdapter) Capabilities() shipping.Capabilities {
	return shipping.Capabilities{
		MaxWeightKg:      pargoMaxWeightKg,
		ServiceTypes:     []shipping.ServiceType{shipping.ServiceStandard},
		CollectionPoints: true,
	}
}

// accessToken returns a cached bearer token, authenticating when it is
// missing or about to lapse.
func (a *PargoAdapter) accessToken(ctx context.Context) (string, error) {
	if !a.IsConfigured() {
		return "", shared.NewConfigurationError(PargoName, "username or password is not configured")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && a.now().Add(pargoTokenSkew).Before(a.tokenExpiry) {
		return a.token, nil
	}

	var resp pargoAuthResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:     "Authenticate",
		Method: http.MethodPost,
		Path:   "/auth",
		JSON:   pargoAuthRequest{Username: a.config.Username, Password: a.config.Password},
	}, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", shared.NewUpstreamError(PargoName, "Authenticate", fmt.Errorf("response has no access token"))
	}
	a.token = resp.AccessToken
	a.tokenExpiry = a.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	return a.token, nil
}

func (a *PargoAdapter) do(ctx context.Context, req upstream.Request, out any) error {
	token, err := a.accessToken(ctx)
	if err != nil {
		return err
	}
	req.Headers = map[string]string{"Authorization": "Bearer " + token}
	err = a.api.Do(ctx, req, out)
	if upstream.StatusCode(err) == http.StatusUnauthorized {
		a.mu.Lock()
		a.token = ""
		a.mu.Unlock()
	}
	return err
}

// SearchCollectionPoints lists pickup points near a postal code, nearest first
func (a *PargoAdapter) SearchCollectionPoints(ctx context.Context, postalCode string) ([]shipping.CollectionPoint, error) {
	if strings.TrimSpace(postalCode) == "" {
		return nil, shared.NewValidationError("postal code is required")
	}
	var resp pargoPickupPointsResponse
	if err := a.do(ctx, upstream.Request{
		Op:    "SearchCollectionPoints",
		Path:  "/pickup_points",
		Query: url.Values{"postalcode": {postalCode}},
	}, &resp); err != nil {
		return nil, err
	}
	points := make([]shipping.CollectionPoint, 0, len(resp.Data))
	for _, p := range resp.Data {
		points = append(points, p.toCollectionPoint())
	}
	return points, nil
}

func (a *PargoAdapter) resolvePoint(ctx context.Context, req *shipping.QuoteRequest) (*shipping.CollectionPoint, error) {
	if req.CollectionPointID != "" {
		return &shipping.CollectionPoint{ID: req.CollectionPointID}, nil
	}
	points, err := a.SearchCollectionPoints(ctx, req.Destination.PostalCode)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, shared.NewUpstreamError(PargoName, "GetQuote", fmt.Errorf("no pickup point near %s", req.Destination.PostalCode))
	}
	return &points[0], nil
}

// GetQuote rates delivery to the requested or nearest pickup point
func (a *PargoAdapter) GetQuote(ctx context.Context, req *shipping.QuoteRequest) (*shipping.Quote, error) {
	if !a.IsConfigured() {
		return nil, shared.NewConfigurationError(PargoName, "username or password is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ServiceType != "" && req.ServiceType != shipping.ServiceStandard {
		return nil, shared.NewValidationError(fmt.Sprintf("service type %q is not offered", req.ServiceType))
	}

	point, err := a.resolvePoint(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp pargoRateResponse
	if err := a.do(ctx, upstream.Request{
		Op:     "GetQuote",
		Method: http.MethodPost,
		Path:   "/rates",
		JSON: pargoRateRequest{
			PickupPointCode: point.ID,
			FromPostalCode:  req.Origin.PostalCode,
			WeightKg:        req.WeightKg,
		},
	}, &resp); err != nil {
		return nil, err
	}

	return &shipping.Quote{
		Provider:        PargoName,
		ServiceType:     shipping.ServiceStandard,
		EstimatedDays:   resp.Data.TransitDays,
		Cost:            resp.Data.Price,
		Currency:        "ZAR",
		CollectionPoint: point,
	}, nil
}

// CreateWaybill books delivery to a pickup point. The request must name one.
func (a *PargoAdapter) CreateWaybill(ctx context.Context, req *shipping.WaybillRequest) (*shipping.Waybill, error) {
	if !a.IsConfigured() {
		return nil, shared.NewConfigurationError(PargoName, "username or password is not configured")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.Quote.CollectionPointID == "" {
		return nil, shared.NewValidationError("collection_point_id is required for pickup point delivery")
	}

	first, last, _ := strings.Cut(strings.TrimSpace(req.Recipient.Name), " ")
	var resp pargoOrderResponse
	if err := a.do(ctx, upstream.Request{
		Op:     "CreateWaybill",
		Method: http.MethodPost,
		Path:   "/orders",
		JSON: pargoOrderRequest{
			Type:            pargoOrderType,
			Version:         1,
			ExternalRef:     req.Reference,
			PickupPointCode: req.Quote.CollectionPointID,
			Consignee: pargoConsignee{
				FirstName: first,
				LastName:  strings.TrimSpace(last),
				Email:     req.Recipient.Email,
				Phone:     req.Recipient.Phone,
			},
			WeightKg:    req.Quote.WeightKg,
			Description: req.Description,
		},
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Data.WaybillNumber == "" {
		return nil, shared.NewUpstreamError(PargoName, "CreateWaybill", fmt.Errorf("response has no waybill number"))
	}

	a.logger.Info("Pargo order booked",
		zap.String("reference", req.Reference),
		zap.String("waybill", resp.Data.WaybillNumber),
		zap.String("pickup_point", req.Quote.CollectionPointID),
	)

	return &shipping.Waybill{
		Provider:      PargoName,
		WaybillNumber: resp.Data.WaybillNumber,
		TrackingURL:   resp.Data.TrackingURL,
		LabelURL:      resp.Data.LabelURL,
		Cost:          resp.Data.Price,
		Currency:      "ZAR",
	}, nil
}

// Track returns the status of a pickup-point delivery
func (a *PargoAdapter) Track(ctx context.Context, waybillNumber string) (*shipping.TrackingInfo, error) {
	if strings.TrimSpace(waybillNumber) == "" {
		return nil, shared.NewValidationError("waybill number is required")
	}
	var resp pargoTrackingResponse
	if err := a.do(ctx, upstream.Request{
		Op:   "Track",
		Path: "/orders/" + url.PathEscape(waybillNumber) + "/tracking",
	}, &resp); err != nil {
		return nil, err
	}

	info := &shipping.TrackingInfo{
		Provider:      PargoName,
		WaybillNumber: waybillNumber,
		Status:        resp.Data.Status,
		Delivered:     strings.EqualFold(resp.Data.Status, "collected"),
		Events:        make([]shipping.TrackingEvent, 0, len(resp.Data.Events)),
	}
	for _, e := range resp.Data.Events {
		info.Events = append(info.Events, shipping.TrackingEvent{
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			OccurredAt:  e.Timestamp,
		})
	}
	return info, nil
}

// Cancel cancels an order not yet dropped off
func (a *PargoAdapter) Cancel(ctx context.Context, waybillNumber string) error {
	if strings.TrimSpace(waybillNumber) == "" {
		return shared.NewValidationError("waybill number is required")
	}
	return a.do(ctx, upstream.Request{
		Op:     "Cancel",
		Method: http.MethodPost,
		Path:   "/orders/" + url.PathEscape(waybillNumber) + "/cancel",
	}, nil)
}

var _ shipping.Carrier = (*PargoAdapter)(nil)
