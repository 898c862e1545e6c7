package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentapp "github.com/storeops/backend/internal/application/payment"
	"github.com/storeops/backend/internal/domain/payment"
	"github.com/storeops/backend/internal/domain/shared"
	"github.com/storeops/backend/internal/interfaces/http/dto"
)

// maxWebhookPayloadSize bounds gateway notifications; both PayFast ITNs and
// Stripe events are a few kilobytes
const maxWebhookPayloadSize = 64 << 10

// WebhookProcessor runs one gateway delivery through the ingestion pipeline
type WebhookProcessor interface {
	Handle(ctx context.Context, provider string, req *payment.WebhookRequest) (*paymentapp.WebhookOutcome, error)
}

// WebhookHandler receives payment gateway notifications. The routes are
// public; authenticity comes from each gateway's signature.
type WebhookHandler struct {
	BaseHandler
	processor WebhookProcessor
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(processor WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// HandlePayment answers with the gateway's own acknowledgement format.
// Signature and payload failures get 400 with the gateway's failure
// acknowledgement, leaving redelivery to the gateway's retry policy;
// failures on our side get 5xx.
//
// POST /webhooks/payments/:provider
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}
	if len(body) > maxWebhookPayloadSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Payload too large")
		return
	}

	outcome, err := h.processor.Handle(c.Request.Context(), provider, &payment.WebhookRequest{
		Body:       body,
		Header:     c.Request.Header.Clone(),
		RemoteAddr: c.ClientIP(),
	})
	if outcome == nil {
		// the provider itself could not be resolved
		h.HandleError(c, err)
		return
	}

	status := http.StatusOK
	if err != nil {
		_ = c.Error(err)
		status = webhookStatus(err)
	}
	c.Data(status, outcome.ContentType, outcome.Ack)
}

func webhookStatus(err error) int {
	switch shared.KindOf(err) {
	case shared.KindSignature, shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindState:
		return http.StatusUnprocessableEntity
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
