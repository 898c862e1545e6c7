package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/marketplace"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/infrastructure/config"
	"github.com/storeops/backend/internal/infrastructure/upstream"
)

func newTakealot(t *testing.T, handler http.HandlerFunc) *TakealotAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.TakealotConfig{BaseURL: srv.URL, APIKey: "tk-key"}
	api, err := upstream.New(upstream.Config{
		Provider: TakealotName,
		BaseURL:  cfg.BaseURL,
		Headers:  map[string]string{"Authorization": "Key " + cfg.APIKey},
	})
	require.NoError(t, err)
	return NewTakealotAdapter(cfg, api, nil)
}

func TestTakealot_PushListing(t *testing.T) {
	a := newTakealot(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/offers", r.URL.Path)
		assert.Equal(t, "Key tk-key", r.Header.Get("Authorization"))
		var body takealotOffer
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "RB-500", body.SKU)
		assert.True(t, decimal.RequireFromString("89.90").Equal(body.SellingPrice))
		_, _ = w.Write([]byte(`{"offer_id":778899,"status":"Buyable"}`))
	})

	res, err := a.PushListing(context.Background(), &marketplace.Listing{
		SKU: "RB-500", Title: "Rooibos 500g", Price: decimal.RequireFromString("89.90"), Quantity: 12,
	})
	require.NoError(t, err)
	assert.Equal(t, "778899", res.OfferID)
	assert.Equal(t, "Buyable", res.Status)
}

func TestTakealot_UpdateInventory_Batches(t *testing.T) {
	var calls atomic.Int32
	a := newTakealot(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPatch, r.Method)
		var body takealotBatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Offers[0].SKU == "SKU-100" {
			_, _ = fmt.Fprintf(w, `{"updated":%d,"failed":[{"sku":"SKU-101","reason":"unknown offer"}]}`, len(body.Offers)-1)
			return
		}
		_, _ = fmt.Fprintf(w, `{"updated":%d}`, len(body.Offers))
	})

	updates := make([]marketplace.InventoryUpdate, 150)
	for i := range updates {
		updates[i] = marketplace.InventoryUpdate{SKU: fmt.Sprintf("SKU-%d", i), Quantity: i}
	}

	res, err := a.UpdateInventory(context.Background(), updates)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 149, res.Updated)
	assert.Equal(t, []string{"SKU-101"}, res.Failed)
	assert.False(t, res.Succeeded)
}

func TestTakealot_UpdateInventory_RejectsNegative(t *testing.T) {
	a := newTakealot(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	_, err := a.UpdateInventory(context.Background(), []marketplace.InventoryUpdate{{SKU: "A", Quantity: -1}})
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestTakealot_PullOrders_GroupsLines(t *testing.T) {
	a := newTakealot(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "start_date:2026-03-01;end_date:2026-03-08", r.URL.Query().Get("filters"))
		_, _ = w.Write([]byte(`{"sales":[
			{"order_id":1,"order_item_id":11,"sku":"A","quantity":2,"selling_price":"10.00","sale_status":"Shipped","customer":"Lerato","order_date":"2026-03-02T08:00:00Z"},
			{"order_id":1,"order_item_id":12,"sku":"B","quantity":1,"selling_price":"5.50","sale_status":"Shipped","customer":"Lerato","order_date":"2026-03-02T08:00:00Z"},
			{"order_id":2,"order_item_id":21,"sku":"A","quantity":1,"selling_price":"10.00","sale_status":"New","customer":"Pieter","order_date":"2026-03-03T08:00:00Z"}]}`))
	})

	orders, err := a.PullOrders(context.Background(), &marketplace.OrderPullRequest{
		Since: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Len(t, orders[0].Lines, 2)
	assert.True(t, decimal.RequireFromString("25.50").Equal(orders[0].Total))
	assert.Equal(t, "2", orders[1].OrderID)
}

func TestTakealot_Unconfigured(t *testing.T) {
	a := NewTakealotAdapter(config.TakealotConfig{}, nil, nil)
	_, err := a.UpdateInventory(context.Background(), nil)
	assert.True(t, shared.IsKind(err, shared.KindConfiguration))
}

func TestMockChannel(t *testing.T) {
	m := NewMockChannel()
	_, err := m.PushListing(context.Background(), &marketplace.Listing{SKU: "A", Title: "A", Price: decimal.NewFromInt(1), Quantity: 3})
	require.NoError(t, err)

	res, err := m.UpdateInventory(context.Background(), []marketplace.InventoryUpdate{{SKU: "A", Quantity: 7}, {SKU: "Z", Quantity: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, []string{"Z"}, res.Failed)

	q, ok := m.Stock("A")
	assert.True(t, ok)
	assert.Equal(t, 7, q)
}
