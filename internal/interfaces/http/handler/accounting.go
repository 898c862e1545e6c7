package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	accountingapp "github.com/storeops/backend/internal/application/accounting"
	"github.com/storeops/backend/internal/infrastructure/logger"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// AuthorizationFlow runs the OAuth authorization-code flow for a ledger
type AuthorizationFlow interface {
	BeginAuthorization(ctx context.Context, backend string) (*accountingapp.AuthorizationStart, error)
	CompleteAuthorization(ctx context.Context, backend, code, state string) (*accountingapp.ConnectionStatus, error)
}

// CredentialAdmin reports on and revokes stored ledger credentials
type CredentialAdmin interface {
	Status(ctx context.Context, backend string) (*accountingapp.ConnectionStatus, error)
	Disconnect(ctx context.Context, backend string) (int64, error)
	History(ctx context.Context, backend string, limit int) ([]accountingapp.CredentialSummary, error)
}

// InvoicePusher pushes a paid order to a ledger
type InvoicePusher interface {
	PushOrderInvoice(ctx context.Context, backend string, orderID uuid.UUID) (*accountingapp.InvoiceSyncResult, error)
}

// AccountingHandler serves the ledger connection and invoice sync endpoints
type AccountingHandler struct {
	BaseHandler
	flow        AuthorizationFlow
	credentials CredentialAdmin
	invoices    InvoicePusher
}

// NewAccountingHandler creates a new AccountingHandler
func NewAccountingHandler(flow AuthorizationFlow, credentials CredentialAdmin, invoices InvoicePusher) *AccountingHandler {
	return &AccountingHandler{
		flow:        flow,
		credentials: credentials,
		invoices:    invoices,
	}
}

// DisconnectResponse reports how many credentials were deactivated
type DisconnectResponse struct {
	Backend     string `json:"backend"`
	Deactivated int64  `json:"deactivated"`
}

// Connect returns the URL the administrator must visit to grant access.
//
// POST /integrations/accounting/:backend/connect
func (h *AccountingHandler) Connect(c *gin.Context) {
	start, err := h.flow.BeginAuthorization(c.Request.Context(), c.Param("backend"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, start)
}

// Callback receives the provider's redirect after consent. A denied
// consent arrives as ?error=access_denied and is reported as a 400.
//
// GET /integrations/accounting/:backend/callback
func (h *AccountingHandler) Callback(c *gin.Context) {
	backend := c.Param("backend")
	if denied := c.Query("error"); denied != "" {
		logger.GetGinLogger(c).Warn("Ledger authorization denied",
			zap.String("backend", backend),
			zap.String("error", denied),
			zap.String("description", c.Query("error_description")),
		)
		h.BadRequest(c, "Authorization was not granted: "+denied)
		return
	}

	status, err := h.flow.CompleteAuthorization(c.Request.Context(), backend, c.Query("code"), c.Query("state"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// Status reports whether the backend holds a usable credential.
//
// GET /integrations/accounting/:backend/status
func (h *AccountingHandler) Status(c *gin.Context) {
	status, err := h.credentials.Status(c.Request.Context(), c.Param("backend"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// Credentials lists the backend's credentials, newest first, without token material.
//
// GET /integrations/accounting/:backend/credentials?limit=
func (h *AccountingHandler) Credentials(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(maxHistoryLimit))
			return
		}
		limit = n
	}

	history, err := h.credentials.History(c.Request.Context(), c.Param("backend"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, history)
}

// Disconnect deactivates every credential of the backend.
//
// POST /integrations/accounting/:backend/disconnect
func (h *AccountingHandler) Disconnect(c *gin.Context) {
	backend := c.Param("backend")
	n, err := h.credentials.Disconnect(c.Request.Context(), backend)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, DisconnectResponse{Backend: backend, Deactivated: n})
}

// PushInvoice pushes one order to the ledger as an invoice.
//
// POST /integrations/accounting/:backend/invoices/:order_id
func (h *AccountingHandler) PushInvoice(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "order_id")
	if !ok {
		return
	}
	result, err := h.invoices.PushOrderInvoice(c.Request.Context(), c.Param("backend"), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}
