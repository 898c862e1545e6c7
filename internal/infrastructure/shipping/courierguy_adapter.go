package shipping

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/domain/shipping"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

// CourierGuyName is the registry key of The Courier Guy
const CourierGuyName = "courierguy"

const cgTrackingURL = "https://portal.thecourierguy.co.za/track?ref="

// CourierGuyAdapter implements shipping.Carrier for door-to-door road
// freight. It is the heavy-freight carrier: parcels up to 70kg.
type CourierGuyAdapter struct {
	config config.CourierGuyConfig
	api    *upstream.Client
	logger *zap.Logger
}

// NewCourierGuyAdapter creates the adapter. api must already carry the
// bearer token header.
func NewCourierGuyAdapter(cfg config.CourierGuyConfig, api *upstream.Client, logger *zap.Logger) *CourierGuyAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourierGuyAdapter{config: cfg, api: api, logger: logger}
}

func (a *CourierGuyAdapter) Name() string        { return CourierGuyName }
func (a *CourierGuyAdapter) DisplayName() string { return "The Courier Guy" }
func (a *CourierGuyAdapter) IsConfigured() bool  { return a.config.IsConfigured() && a.api != nil }

// Capabilities declares road freight up to 70kg in every service tier
func (a *CourierGuyAdapter) Capabilities() shipping.Capabilities {
	return shipping.Capabilities{
		MaxWeightKg:  cgMaxWeightKg,
		ServiceTypes: []shipping.ServiceType{shipping.ServiceStandard, shipping.ServiceExpress, shipping.ServiceOvernight},
		HeavyFreight: true,
	}
}

func (a *CourierGuyAdapter) ensureConfigured() error {
	if !a.IsConfigured() {
		return shared.NewConfigurationError(CourierGuyName, "API key is not configured")
	}
	return nil
}

// GetQuote rates the parcel and picks the requested service level
// (standard when none is requested).
func (a *CourierGuyAdapter) GetQuote(ctx context.Context, req *shipping.QuoteRequest) (*shipping.Quote, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	service := req.ServiceType
	if service == "" {
		service = shipping.ServiceStandard
	}
	code, ok := cgServiceCodes[service]
	if !ok {
		return nil, shared.NewValidationError(fmt.Sprintf("service type %q is not offered", service))
	}

	var resp cgRateResponse
	err := a.api.Do(ctx, upstream.Request{
		Op:     "GetQuote",
		Method: http.MethodPost,
		Path:   "/rates",
		JSON: cgRateRequest{
			CollectionAddress: toCGAddress("", req.Origin),
			DeliveryAddress:   toCGAddress("", req.Destination),
			Parcels:           toCGParcels(req),
		},
	}, &resp)
	if err != nil {
		return nil, err
	}

	for _, r := range resp.Rates {
		if strings.EqualFold(r.ServiceLevel.Code, code) {
			return &shipping.Quote{
				Provider:      CourierGuyName,
				ServiceType:   service,
				EstimatedDays: r.ServiceLevel.TransitDays,
				Cost:          r.Rate,
				Currency:      "ZAR",
			}, nil
		}
	}
	return nil, shared.NewUpstreamError(CourierGuyName, "GetQuote", fmt.Errorf("no rate returned for service level %s", code))
}

// CreateWaybill books a collection
func (a *CourierGuyAdapter) CreateWaybill(ctx context.Context, req *shipping.WaybillRequest) (*shipping.Waybill, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	service := req.Quote.ServiceType
	if service == "" {
		service = shipping.ServiceStandard
	}

	body := cgShipmentRequest{
		cgRateRequest: cgRateRequest{
			CollectionAddress: toCGAddress(req.Sender.Street, req.Quote.Origin),
			DeliveryAddress:   toCGAddress(req.Recipient.Street, req.Quote.Destination),
			Parcels:           toCGParcels(&req.Quote),
		},
		CollectionContact:   cgContact{Name: req.Sender.Name, MobileNumber: req.Sender.Phone, Email: req.Sender.Email},
		DeliveryContact:     cgContact{Name: req.Recipient.Name, MobileNumber: req.Recipient.Phone, Email: req.Recipient.Email},
		ServiceLevelCode:    cgServiceCodes[service],
		CustomerReference:   req.Reference,
		SpecialInstructions: req.Description,
	}

	var resp cgShipmentResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:     "CreateWaybill",
		Method: http.MethodPost,
		Path:   "/shipments",
		JSON:   body,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.ShortTrackingReference == "" {
		return nil, shared.NewUpstreamError(CourierGuyName, "CreateWaybill", fmt.Errorf("response has no tracking reference"))
	}

	a.logger.Info("Courier Guy shipment booked",
		zap.String("reference", req.Reference),
		zap.String("waybill", resp.ShortTrackingReference),
	)

	return &shipping.Waybill{
		Provider:       CourierGuyName,
		WaybillNumber:  resp.ShortTrackingReference,
		TrackingURL:    cgTrackingURL + url.QueryEscape(resp.ShortTrackingReference),
		Cost:           resp.Rate,
		Currency:       "ZAR",
		EstimatedDays:  resp.ServiceLevel.TransitDays,
		CollectionDate: resp.CollectionMinDate,
	}, nil
}

// Track returns the scan history of a waybill
func (a *CourierGuyAdapter) Track(ctx context.Context, waybillNumber string) (*shipping.TrackingInfo, error) {
	if err := a.ensureConfigured(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(waybillNumber) == "" {
		return nil, shared.NewValidationError("waybill number is required")
	}

	var resp cgTrackingResponse
	if err := a.api.Do(ctx, upstream.Request{
		Op:    "Track",
		Path:  "/tracking/shipments",
		Query: url.Values{"tracking_reference": {waybillNumber}},
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Shipments) == 0 {
		return nil, shared.NewNotFoundError(fmt.Sprintf("courierguy: waybill %s not found", waybillNumber))
	}

	s := resp.Shipments[0]
	info := &shipping.TrackingInfo{
		Provider:      CourierGuyName,
		WaybillNumber: waybillNumber,
		Status:        s.Status,
		Delivered:     strings.EqualFold(s.Status, "delivered"),
		Events:        make([]shipping.TrackingEvent, 0, len(s.TrackingEvents)),
	}
	for _, e := range s.TrackingEvents {
		info.Events = append(info.Events, shipping.TrackingEvent{
			Status:      e.Status,
			Description: e.Message,
			Location:    e.Location,
			OccurredAt:  e.Date,
		})
	}
	return info, nil
}

// Cancel cancels a booked shipment that has not been collected
func (a *CourierGuyAdapter) Cancel(ctx context.Context, waybillNumber string) error {
	if err := a.ensureConfigured(); err != nil {
		return err
	}
	if strings.TrimSpace(waybillNumber) == "" {
		return shared.NewValidationError("waybill number is required")
	}
	return a.api.Do(ctx, upstream.Request{
		Op:     "Cancel",
		Method: http.MethodPost,
		Path:   "/shipments/cancel",
		JSON:   cgCancelRequest{TrackingReference: waybillNumber},
	}, nil)
}

// SearchCollectionPoints is not offered by door-to-door freight
func (a *CourierGuyAdapter) SearchCollectionPoints(ctx context.Context, postalCode string) ([]shipping.CollectionPoint, error) {
	return nil, &shared.IntegrationError{Kind: shared.KindValidation, Provider: CourierGuyName, Op: "SearchCollectionPoints", Message: "collection points are not offered"}
}

var _ shipping.Carrier = (*CourierGuyAdapter)(nil)
