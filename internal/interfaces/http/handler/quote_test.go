package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	salesapp "github.com/storeops/backend/internal/application/sales"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/interfaces/http/dto"
)

// MockQuoteService implements QuoteService for testing
type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) CreateQuote(ctx context.Context, req salesapp.CreateQuoteRequest) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) GetQuote(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error) {
	return m.quote(m.Called(ctx, id))
}

func (m *MockQuoteService) ListQuotes(ctx context.Context, filter salesapp.QuoteListFilter) (*shared.Paginated[salesapp.QuoteResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[salesapp.QuoteResponse]), args.Error(1)
}

func (m *MockQuoteService) SendQuote(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error) {
	return m.quote(m.Called(ctx, id))
}

func (m *MockQuoteService) MarkViewed(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error) {
	return m.quote(m.Called(ctx, id))
}

func (m *MockQuoteService) AcceptQuote(ctx context.Context, id uuid.UUID) (*salesapp.QuoteResponse, error) {
	return m.quote(m.Called(ctx, id))
}

func (m *MockQuoteService) RejectQuote(ctx context.Context, id uuid.UUID, reason string) (*salesapp.QuoteResponse, error) {
	return m.quote(m.Called(ctx, id, reason))
}

func (m *MockQuoteService) ExpireOverdueQuotes(ctx context.Context) (*salesapp.ExpirySweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.ExpirySweepResult), args.Error(1)
}

func (m *MockQuoteService) ConvertQuoteToOrder(ctx context.Context, id uuid.UUID) (*salesapp.ConversionResult, error) {
	return m.conversion(m.Called(ctx, id))
}

func (m *MockQuoteService) AcceptQuoteAndConvert(ctx context.Context, id uuid.UUID) (*salesapp.ConversionResult, error) {
	return m.conversion(m.Called(ctx, id))
}

func (m *MockQuoteService) GetOrderForQuote(ctx context.Context, quoteID uuid.UUID) (*salesapp.OrderResponse, error) {
	args := m.Called(ctx, quoteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.OrderResponse), args.Error(1)
}

func (m *MockQuoteService) quote(args mock.Arguments) (*salesapp.QuoteResponse, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.QuoteResponse), args.Error(1)
}

func (m *MockQuoteService) conversion(args mock.Arguments) (*salesapp.ConversionResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*salesapp.ConversionResult), args.Error(1)
}

func setupQuoteRouter(svc QuoteService) *gin.Engine {
	h := NewQuoteHandler(svc)
	r := newTestEngine()
	r.POST("/quotes", h.Create)
	r.GET("/quotes", h.List)
	r.POST("/quotes/expire", h.Expire)
	r.GET("/quotes/:id", h.Get)
	r.POST("/quotes/:id/send", h.Send)
	r.POST("/quotes/:id/view", h.View)
	r.POST("/quotes/:id/accept", h.Accept)
	r.POST("/quotes/:id/reject", h.Reject)
	r.POST("/quotes/:id/convert", h.Convert)
	r.POST("/quotes/:id/accept-and-convert", h.AcceptAndConvert)
	r.GET("/quotes/:id/order", h.Order)
	return r
}

func sampleQuote(id uuid.UUID, status string) *salesapp.QuoteResponse {
	return &salesapp.QuoteResponse{
		ID:           id,
		QuoteNumber:  "QT-000042",
		CustomerName: "Thandi Nkosi",
		Subtotal:     decimal.RequireFromString("200.00"),
		TaxAmount:    decimal.RequireFromString("30.00"),
		Total:        decimal.RequireFromString("230.00"),
		Currency:     "ZAR",
		Status:       status,
		Version:      1,
	}
}

func TestQuoteHandler_Create(t *testing.T) {
	t.Run("creates a draft", func(t *testing.T) {
		svc := new(MockQuoteService)
		id := uuid.New()
		svc.On("CreateQuote", mock.Anything, mock.MatchedBy(func(req salesapp.CreateQuoteRequest) bool {
			return req.Customer.Name == "Thandi Nkosi" &&
				len(req.Items) == 1 &&
				req.Items[0].Quantity.Equal(decimal.NewFromInt(2)) &&
				req.TaxRate.Equal(decimal.RequireFromString("0.15"))
		})).Return(sampleQuote(id, "DRAFT"), nil)

		body := `{
			"customer": {"name": "Thandi Nkosi", "email": "thandi@example.co.za"},
			"items": [{"sku": "WID-1", "name": "Widget", "quantity": "2", "unit_price": "100.00"}],
			"tax_rate": "0.15"
		}`
		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes", body)

		assert.Equal(t, http.StatusCreated, w.Code)
		got := decodeData[salesapp.QuoteResponse](t, w)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "DRAFT", got.Status)
		assert.True(t, got.Total.Equal(decimal.RequireFromString("230")))
		svc.AssertExpectations(t)
	})

	t.Run("rejects non-positive quantity before the service", func(t *testing.T) {
		svc := new(MockQuoteService)
		body := `{"customer": {"name": "A"}, "items": [{"name": "Widget", "quantity": "-1", "unit_price": "10"}]}`
		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotEmpty(t, resp.Error.Details)
		assert.Equal(t, "items[0].quantity", resp.Error.Details[0].Field)
		svc.AssertNotCalled(t, "CreateQuote", mock.Anything, mock.Anything)
	})

	t.Run("rejects a quote without items", func(t *testing.T) {
		svc := new(MockQuoteService)
		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes", `{"customer": {"name": "A"}, "items": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQuoteHandler_List(t *testing.T) {
	svc := new(MockQuoteService)
	page := shared.NewPaginated([]salesapp.QuoteResponse{*sampleQuote(uuid.New(), "SENT")}, 41, 2, 20)
	svc.On("ListQuotes", mock.Anything, salesapp.QuoteListFilter{Status: "SENT", Page: 2, PageSize: 20}).
		Return(&page, nil)

	w := serve(setupQuoteRouter(svc), http.MethodGet, "/quotes?status=SENT&page=2&page_size=20", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	t.Run("unknown status", func(t *testing.T) {
		w := serve(setupQuoteRouter(new(MockQuoteService)), http.MethodGet, "/quotes?status=CONVERTED", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQuoteHandler_Transitions(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name   string
		method string
		path   string
		status string
	}{
		{"get", "GetQuote", "", "DRAFT"},
		{"send", "SendQuote", "/send", "SENT"},
		{"view", "MarkViewed", "/view", "VIEWED"},
		{"accept", "AcceptQuote", "/accept", "ACCEPTED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockQuoteService)
			svc.On(tt.method, mock.Anything, id).Return(sampleQuote(id, tt.status), nil)

			httpMethod := http.MethodPost
			if tt.path == "" {
				httpMethod = http.MethodGet
			}
			w := serve(setupQuoteRouter(svc), httpMethod, "/quotes/"+id.String()+tt.path, "")

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.status, decodeData[salesapp.QuoteResponse](t, w).Status)
			svc.AssertExpectations(t)
		})
	}

	t.Run("illegal transition is 422", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("AcceptQuote", mock.Anything, id).
			Return(nil, shared.NewStateError("cannot accept a DRAFT quote"))

		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes/"+id.String()+"/accept", "")

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInvalidState, resp.Error.Code)
		assert.Equal(t, "cannot accept a DRAFT quote", resp.Error.Message)
	})

	t.Run("missing quote is 404", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("GetQuote", mock.Anything, id).Return(nil, shared.ErrNotFound)

		w := serve(setupQuoteRouter(svc), http.MethodGet, "/quotes/"+id.String(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		w := serve(setupQuoteRouter(new(MockQuoteService)), http.MethodGet, "/quotes/QT-000042", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestQuoteHandler_Reject(t *testing.T) {
	id := uuid.New()
	svc := new(MockQuoteService)
	svc.On("RejectQuote", mock.Anything, id, "Found a cheaper supplier").
		Return(sampleQuote(id, "REJECTED"), nil)
	r := setupQuoteRouter(svc)

	w := serve(r, http.MethodPost, "/quotes/"+id.String()+"/reject", `{"reason": "Found a cheaper supplier"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodPost, "/quotes/"+id.String()+"/reject", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNumberOfCalls(t, "RejectQuote", 1)
}

func TestQuoteHandler_Convert(t *testing.T) {
	id := uuid.New()
	orderID := uuid.New()
	result := &salesapp.ConversionResult{
		Quote: *sampleQuote(id, "ACCEPTED"),
		Order: salesapp.OrderResponse{
			ID:          orderID,
			OrderNumber: "SO-000042",
			QuoteID:     &id,
			Total:       decimal.RequireFromString("230.00"),
			Currency:    "ZAR",
			Status:      "PENDING",
			CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		Provider:    "payfast",
		CheckoutURL: "https://sandbox.payfast.co.za/eng/process?m_payment_id=SO-000042",
	}

	t.Run("convert", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("ConvertQuoteToOrder", mock.Anything, id).Return(result, nil)

		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes/"+id.String()+"/convert", "")

		assert.Equal(t, http.StatusCreated, w.Code)
		got := decodeData[salesapp.ConversionResult](t, w)
		assert.Equal(t, orderID, got.Order.ID)
		assert.Equal(t, "payfast", got.Provider)
		assert.Contains(t, got.CheckoutURL, "m_payment_id=SO-000042")
	})

	t.Run("accept and convert", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("AcceptQuoteAndConvert", mock.Anything, id).Return(result, nil)

		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes/"+id.String()+"/accept-and-convert", "")
		assert.Equal(t, http.StatusCreated, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("lost race is 422", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("ConvertQuoteToOrder", mock.Anything, id).
			Return(nil, shared.NewStateError("quote already converted"))

		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes/"+id.String()+"/convert", "")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("gateway not configured is 503", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("ConvertQuoteToOrder", mock.Anything, id).
			Return(nil, shared.NewConfigurationError("payfast", "merchant credentials missing"))

		w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes/"+id.String()+"/convert", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, dto.ErrCodeConfiguration, decodeResponse(t, w).Error.Code)
	})

	t.Run("order for quote", func(t *testing.T) {
		svc := new(MockQuoteService)
		svc.On("GetOrderForQuote", mock.Anything, id).Return(&result.Order, nil)

		w := serve(setupQuoteRouter(svc), http.MethodGet, "/quotes/"+id.String()+"/order", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "SO-000042", decodeData[salesapp.OrderResponse](t, w).OrderNumber)
	})
}

func TestQuoteHandler_Expire(t *testing.T) {
	svc := new(MockQuoteService)
	svc.On("ExpireOverdueQuotes", mock.Anything).Return(&salesapp.ExpirySweepResult{
		Scanned:     3,
		Expired:     2,
		Failed:      1,
		FailedIDs:   []string{"b1"},
		ProcessedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}, nil)

	w := serve(setupQuoteRouter(svc), http.MethodPost, "/quotes/expire", "")

	assert.Equal(t, http.StatusOK, w.Code)
	got := decodeData[salesapp.ExpirySweepResult](t, w)
	assert.Equal(t, 2, got.Expired)
	assert.Equal(t, []string{"b1"}, got.FailedIDs)
}
