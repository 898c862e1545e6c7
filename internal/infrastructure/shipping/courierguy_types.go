package shipping

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/shipping"
)

// Service level codes used by the Courier Guy rates API
const (
	cgServiceEconomy   = "ECO"
	cgServiceExpress   = "EXP"
	cgServiceOvernight = "ONX"
)

// cgMaxWeightKg is the heaviest single parcel accepted on road freight
const cgMaxWeightKg = 70.0

var cgServiceCodes = map[shipping.ServiceType]string{
	shipping.ServiceStandard:  cgServiceEconomy,
	shipping.ServiceExpress:   cgServiceExpress,
	shipping.ServiceOvernight: cgServiceOvernight,
}

// ---------------------------------------------------------------------------
// Request Types
// ---------------------------------------------------------------------------

type cgAddress struct {
	StreetAddress string `json:"street_address,omitempty"`
	City          string `json:"city"`
	Zone          string `json:"zone"`
	Code          string `json:"code"`
	Country       string `json:"country"`
}

type cgParcel struct {
	LengthCm float64 `json:"submitted_length_cm,omitempty"`
	WidthCm  float64 `json:"submitted_width_cm,omitempty"`
	HeightCm float64 `json:"submitted_height_cm,omitempty"`
	WeightKg float64 `json:"submitted_weight_kg"`
}

type cgRateRequest struct {
	CollectionAddress cgAddress  `json:"collection_address"`
	DeliveryAddress   cgAddress  `json:"delivery_address"`
	Parcels           []cgParcel `json:"parcels"`
}

type cgContact struct {
	Name         string `json:"name"`
	MobileNumber string `json:"mobile_number,omitempty"`
	Email        string `json:"email,omitempty"`
}

type cgShipmentRequest struct {
	cgRateRequest
	CollectionContact   cgContact `json:"collection_contact"`
	DeliveryContact     cgContact `json:"delivery_contact"`
	ServiceLevelCode    string    `json:"service_level_code"`
	CustomerReference   string    `json:"customer_reference"`
	SpecialInstructions string    `json:"special_instructions_delivery,omitempty"`
}

type cgCancelRequest struct {
	TrackingReference string `json:"tracking_reference"`
}

// ---------------------------------------------------------------------------
// Response Types
// ---------------------------------------------------------------------------

type cgServiceLevel struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	TransitDays int    `json:"transit_days"`
}

type cgRate struct {
	Rate         decimal.Decimal `json:"rate"`
	ServiceLevel cgServiceLevel  `json:"service_level"`
}

type cgRateResponse struct {
	Rates []cgRate `json:"rates"`
}

type cgShipmentResponse struct {
	ID                     int64           `json:"id"`
	ShortTrackingReference string          `json:"short_tracking_reference"`
	Rate                   decimal.Decimal `json:"rate"`
	ServiceLevel           cgServiceLevel  `json:"service_level"`
	CollectionMinDate      *time.Time      `json:"collection_min_date,omitempty"`
}

type cgTrackingEvent struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
}

type cgTrackedShipment struct {
	ShortTrackingReference string            `json:"short_tracking_reference"`
	Status                 string            `json:"status"`
	TrackingEvents         []cgTrackingEvent `json:"tracking_events"`
}

type cgTrackingResponse struct {
	Shipments []cgTrackedShipment `json:"shipments"`
}

func toCGAddress(street string, a shipping.Address) cgAddress {
	return cgAddress{
		StreetAddress: street,
		City:          a.City,
		Zone:          a.Province,
		Code:          a.PostalCode,
		Country:       "ZA",
	}
}

func toCGParcels(req *shipping.QuoteRequest) []cgParcel {
	p := cgParcel{WeightKg: req.WeightKg}
	if d := req.Dimensions; d != nil {
		p.LengthCm, p.WidthCm, p.HeightCm = d.Length, d.Width, d.Height
	}
	return []cgParcel{p}
}
