package shipping

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storeops/backend/internal/domain/shipping"
)

// pargoMaxWeightKg is the heaviest parcel a pickup point accepts
const pargoMaxWeightKg = 20.0

// pargoOrderType is warehouse-to-pickup-point delivery
const pargoOrderType = "W2P"

// pargoTokenSkew renews the bearer token slightly before it lapses
const pargoTokenSkew = 30 * time.Second

type pargoAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type pargoAuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type pargoPickupPoint struct {
	PickupPointCode string   `json:"pickupPointCode"`
	StoreName       string   `json:"storeName"`
	Address1        string   `json:"address1"`
	Suburb          string   `json:"suburb"`
	PostalCode      string   `json:"postalcode"`
	Distance        *float64 `json:"distance,omitempty"`
}

type pargoPickupPointsResponse struct {
	Data []pargoPickupPoint `json:"data"`
}

type pargoRateRequest struct {
	PickupPointCode string  `json:"pickupPointCode"`
	FromPostalCode  string  `json:"fromPostalCode"`
	WeightKg        float64 `json:"weight"`
}

type pargoRateResponse struct {
	Data struct {
		Price       decimal.Decimal `json:"price"`
		TransitDays int             `json:"transitDays"`
	} `json:"data"`
}

type pargoConsignee struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phoneNumbers,omitempty"`
}

type pargoOrderRequest struct {
	Type            string         `json:"type"`
	Version         int            `json:"version"`
	ExternalRef     string         `json:"externalReference"`
	PickupPointCode string         `json:"pickupPointCode"`
	Consignee       pargoConsignee `json:"consignee"`
	WeightKg        float64        `json:"weight"`
	Description     string         `json:"description,omitempty"`
}

type pargoOrderResponse struct {
	Data struct {
		WaybillNumber string          `json:"waybillNumber"`
		TrackingURL   string          `json:"trackingUrl"`
		LabelURL      string          `json:"labelUrl"`
		Price         decimal.Decimal `json:"price"`
	} `json:"data"`
}

type pargoTrackingEvent struct {
	Status      string    `json:"status"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Timestamp   time.Time `json:"timestamp"`
}

type pargoTrackingResponse struct {
	Data struct {
		Status string               `json:"status"`
		Events []pargoTrackingEvent `json:"events"`
	} `json:"data"`
}

func (p pargoPickupPoint) toCollectionPoint() shipping.CollectionPoint {
	addr := p.Address1
	if p.Suburb != "" {
		addr += ", " + p.Suburb
	}
	return shipping.CollectionPoint{
		ID:         p.PickupPointCode,
		Name:       p.StoreName,
		Address:    addr,
		PostalCode: p.PostalCode,
		DistanceKm: p.Distance,
	}
}
