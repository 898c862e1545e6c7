// Package shipping contains the carrier port and the quote request shapes the
// aggregator filters and ranks.
package shipping

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/shared"
)

// HeavyParcelThresholdKg is the weight above which a heavy-freight carrier is preferred
const HeavyParcelThresholdKg = 20.0

// ServiceType is a delivery speed tier
type ServiceType string

const (
	ServiceStandard  ServiceType = "standard"
	ServiceExpress   ServiceType = "express"
	ServiceOvernight ServiceType = "overnight"
)

// IsValid returns true if the service type is known
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceStandard, ServiceExpress, ServiceOvernight:
		return true
	default:
		return false
	}
}

// String returns the string representation of ServiceType
func (s ServiceType) String() string {
	return string(s)
}

// Address is the part of a postal address carriers rate on
type Address struct {
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
}

func (a Address) validate(field string) error {
	switch {
	case strings.TrimSpace(a.City) == "":
		return shared.NewValidationError(field + ".city is required")
	case strings.TrimSpace(a.Province) == "":
		return shared.NewValidationError(field + ".province is required")
	case strings.TrimSpace(a.PostalCode) == "":
		return shared.NewValidationError(field + ".postal_code is required")
	}
	return nil
}

// Dimensions of a parcel in centimetres
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// VolumetricWeightKg uses the common 5000 cm³/kg divisor
func (d Dimensions) VolumetricWeightKg() float64 {
	return d.Length * d.Width * d.Height / 5000
}

// QuoteRequest asks carriers to rate a single parcel
type QuoteRequest struct {
	Origin            Address
	Destination       Address
	WeightKg          float64
	Dimensions        *Dimensions
	ServiceType       ServiceType
	CollectionPointID string
}

// Validate rejects malformed requests before any carrier is contacted
func (r *QuoteRequest) Validate() error {
	if err := r.Origin.validate("origin"); err != nil {
		return err
	}
	if err := r.Destination.validate("destination"); err != nil {
		return err
	}
	if r.WeightKg <= 0 {
		return shared.NewValidationError("weight must be greater than zero")
	}
	if r.ServiceType != "" && !r.ServiceType.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("unknown service type %q", r.ServiceType))
	}
	if d := r.Dimensions; d != nil && (d.Length < 0 || d.Width < 0 || d.Height < 0) {
		return shared.NewValidationError("dimensions must not be negative")
	}
	return nil
}

// CollectionPoint is a pickup location offered by a carrier
type CollectionPoint struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	PostalCode string   `json:"postal_code"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Quote is one carrier's price for a request
type Quote struct {
	Provider        string
	ServiceType     ServiceType
	EstimatedDays   int
	Cost            decimal.Decimal
	Currency        string
	CollectionPoint *CollectionPoint
}

// Capabilities declares what a carrier can handle
type Capabilities struct {
	MaxWeightKg      float64       `json:"max_weight_kg"`
	ServiceTypes     []ServiceType `json:"service_types"`
	CollectionPoints bool          `json:"collection_points"`
	HeavyFreight     bool          `json:"heavy_freight"`
}

// Supports reports whether the service type is offered
func (c Capabilities) Supports(s ServiceType) bool {
	return slices.Contains(c.ServiceTypes, s)
}

// Accepts reports whether a request passes this carrier's capability filter
func (c Capabilities) Accepts(req *QuoteRequest) bool {
	if c.MaxWeightKg < req.WeightKg {
		return false
	}
	if req.ServiceType != "" && !c.Supports(req.ServiceType) {
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Waybills & tracking
// ---------------------------------------------------------------------------

// Party is a sender or recipient on a waybill
type Party struct {
	Name    string
	Phone   string
	Email   string
	Street  string
	Address Address
}

// WaybillRequest books a collection for one parcel
type WaybillRequest struct {
	Quote       QuoteRequest
	Reference   string
	Sender      Party
	Recipient   Party
	Description string
}

// Validate validates the waybill request
func (r *WaybillRequest) Validate() error {
	if err := r.Quote.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Reference) == "" {
		return shared.NewValidationError("reference is required")
	}
	if strings.TrimSpace(r.Recipient.Name) == "" {
		return shared.NewValidationError("recipient name is required")
	}
	return nil
}

// Waybill is a booked shipment
type Waybill struct {
	Provider       string
	WaybillNumber  string
	TrackingURL    string
	LabelURL       string
	Cost           decimal.Decimal
	Currency       string
	EstimatedDays  int
	CollectionDate *time.Time
}

// TrackingEvent is one scan on a shipment's journey
type TrackingEvent struct {
	Status      string
	Description string
	Location    string
	OccurredAt  time.Time
}

// TrackingInfo is the current state of a shipment
type TrackingInfo struct {
	Provider      string
	WaybillNumber string
	Status        string
	Delivered     bool
	Events        []TrackingEvent
}

// ---------------------------------------------------------------------------
// Port
// ---------------------------------------------------------------------------

// Carrier is the capability set every shipping backend implements
type Carrier interface {
	integration.Provider

	Capabilities() Capabilities
	GetQuote(ctx context.Context, req *QuoteRequest) (*Quote, error)
	CreateWaybill(ctx context.Context, req *WaybillRequest) (*Waybill, error)
	Track(ctx context.Context, waybillNumber string) (*TrackingInfo, error)
	Cancel(ctx context.Context, waybillNumber string) error
	SearchCollectionPoints(ctx context.Context, postalCode string) ([]CollectionPoint, error)
}

// Registry is the shipping-domain provider registry
type Registry = integration.Registry[Carrier]

// NewRegistry creates an empty shipping registry
func NewRegistry(opts ...integration.RegistryOption) *Registry {
	return integration.NewRegistry[Carrier](integration.DomainShipping, opts...)
}

// ---------------------------------------------------------------------------
// Ranking
// ---------------------------------------------------------------------------

// Preference selects how the best quote is chosen
type Preference string

const (
	PreferCheapest Preference = "cheapest"
	PreferFastest  Preference = "fastest"
)

// IsValid returns true if the preference is known
func (p Preference) IsValid() bool {
	return p == PreferCheapest || p == PreferFastest
}

// Best reduces quotes by preference. Ties keep the first seen.
// Returns nil for an empty slice.
func Best(quotes []Quote, pref Preference) *Quote {
	if len(quotes) == 0 {
		return nil
	}
	best := quotes[0]
	for _, q := range quotes[1:] {
		switch pref {
		case PreferFastest:
			if q.EstimatedDays < best.EstimatedDays {
				best = q
			}
		default:
			if q.Cost.LessThan(best.Cost) {
				best = q
			}
		}
	}
	return &best
}
