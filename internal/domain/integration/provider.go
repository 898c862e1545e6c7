package integration

// Domain identifies a family of interchangeable external backends
type Domain string

const (
	DomainPayment     Domain = "payment"
	DomainShipping    Domain = "shipping"
	DomainMarketplace Domain = "marketplace"
	DomainAccounting  Domain = "accounting"
	DomainSupplier    Domain = "supplier"
)

// AllDomains lists every integration domain in display order
func AllDomains() []Domain {
	return []Domain{DomainPayment, DomainShipping, DomainMarketplace, DomainAccounting, DomainSupplier}
}

// IsValid returns true if the domain is known
func (d Domain) IsValid() bool {
	switch d {
	case DomainPayment, DomainShipping, DomainMarketplace, DomainAccounting, DomainSupplier:
		return true
	default:
		return false
	}
}

// String returns the string representation of Domain
func (d Domain) String() string {
	return string(d)
}

// Provider is implemented by every external backend regardless of domain
type Provider interface {
	// Name is the stable registry key, e.g. "payfast"
	Name() string
	// DisplayName is a human-readable label for admin screens
	DisplayName() string
	// IsConfigured reports whether the credentials the backend needs are present
	IsConfigured() bool
}

// Descriptor is a read-only summary of a registered provider
type Descriptor struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Configured  bool   `json:"configured"`
	Default     bool   `json:"default"`
}
