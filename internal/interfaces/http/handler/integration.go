package handler

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/storeops/backend/internal/domain/integration"
	"github.com/storeops/backend/internal/interfaces/http/dto"
)

// DescriptorSource is a provider registry as seen by the admin API
type DescriptorSource interface {
	Domain() integration.Domain
	Descriptors() []integration.Descriptor
}

// IntegrationHandler lists the providers registered in each domain
type IntegrationHandler struct {
	BaseHandler
	registries map[integration.Domain]DescriptorSource
}

// NewIntegrationHandler creates a new IntegrationHandler
func NewIntegrationHandler(registries ...DescriptorSource) *IntegrationHandler {
	h := &IntegrationHandler{registries: make(map[integration.Domain]DescriptorSource, len(registries))}
	for _, r := range registries {
		h.registries[r.Domain()] = r
	}
	return h
}

// ProviderList is the body of the providers endpoint
type ProviderList struct {
	Domain    integration.Domain       `json:"domain"`
	Providers []integration.Descriptor `json:"providers"`
}

// Providers lists a domain's providers with their configured and default flags.
//
// GET /integrations/:domain/providers
func (h *IntegrationHandler) Providers(c *gin.Context) {
	domain := integration.Domain(c.Param("domain"))
	reg, ok := h.registries[domain]
	if !ok {
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "Unknown integration domain: "+string(domain))
		return
	}
	h.Success(c, ProviderList{Domain: domain, Providers: reg.Descriptors()})
}

// Domains lists every domain with its providers.
//
// GET /integrations
func (h *IntegrationHandler) Domains(c *gin.Context) {
	out := make([]ProviderList, 0, len(h.registries))
	for domain, reg := range h.registries {
		out = append(out, ProviderList{Domain: domain, Providers: reg.Descriptors()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Domain < out[j].Domain })
	h.Success(c, out)
}
