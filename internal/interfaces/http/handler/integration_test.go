package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/integration"
)

type staticRegistry struct {
	domain      integration.Domain
	descriptors []integration.Descriptor
}

func (s staticRegistry) Domain() integration.Domain { return s.domain }
func (s staticRegistry) Descriptors() []integration.Descriptor { return s.descriptors }

func TestIntegrationHandler(t *testing.T) {
	h := NewIntegrationHandler(
		staticRegistry{domain: integration.DomainPayment, descriptors: []integration.Descriptor{
			{Name: "payfast", DisplayName: "PayFast", Configured: true, Default: true},
			{Name: "stripe", DisplayName: "Stripe"},
		}},
		staticRegistry{domain: integration.DomainAccounting, descriptors: []integration.Descriptor{
			{Name: "xero", DisplayName: "Xero", Configured: true, Default: true},
		}},
	)
	r := newTestEngine()
	r.GET("/integrations", h.Domains)
	r.GET("/integrations/:domain/providers", h.Providers)

	t.Run("providers of one domain", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/integrations/payment/providers", "")
		assert.Equal(t, http.StatusOK, w.Code)

		list := decodeData[ProviderList](t, w)
		assert.Equal(t, integration.DomainPayment, list.Domain)
		require.Len(t, list.Providers, 2)
		assert.True(t, list.Providers[0].Default)
		assert.False(t, list.Providers[1].Configured)
	})

	t.Run("unknown domain", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/integrations/crm/providers", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("all domains sorted", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/integrations", "")
		all := decodeData[[]ProviderList](t, w)
		require.Len(t, all, 2)
		assert.Equal(t, integration.DomainAccounting, all[0].Domain)
		assert.Equal(t, integration.DomainPayment, all[1].Domain)
	})
}
