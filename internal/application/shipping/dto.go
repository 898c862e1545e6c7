package shipping

import (
	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/domain/shipping"
)

// CarrierInfo is a registered carrier and what it can handle
type CarrierInfo struct {
	integration.Descriptor
	Capabilities shipping.Capabilities `json:"capabilities"`
}
