package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storeops/backend/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeUnknown, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidJSON, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeSignature, http.StatusBadRequest},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConfiguration, http.StatusServiceUnavailable},
		{ErrCodeUpstream, http.StatusBadGateway},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestCodeForKind(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{"validation", shared.NewValidationError("weight must be greater than zero"), ErrCodeValidation, http.StatusBadRequest},
		{"signature", shared.NewSignatureError("payfast", "signature mismatch"), ErrCodeSignature, http.StatusBadRequest},
		{"state", shared.NewStateError("quote already converted"), ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"domain state", shared.ErrInvalidState, ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{"not found", fmt.Errorf("load quote: %w", shared.ErrNotFound), ErrCodeNotFound, http.StatusNotFound},
		{"configuration", shared.NewConfigurationError("xero", "client id is required"), ErrCodeConfiguration, http.StatusServiceUnavailable},
		{"upstream", shared.NewUpstreamError("courierguy", "quote", errors.New("503")), ErrCodeUpstream, http.StatusBadGateway},
		{"unclassified", errors.New("boom"), ErrCodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := CodeForKind(shared.KindOf(tt.err))
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.status, GetHTTPStatus(code))
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-42", []ValidationDetail{
		{Field: "customer.name", Message: "customer.name is required", Tag: "required"},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, false, decoded["success"])
	assert.NotContains(t, decoded, "data")

	errObj := decoded["error"].(map[string]interface{})
	assert.Equal(t, ErrCodeValidation, errObj["code"])
	assert.Equal(t, "req-42", errObj["request_id"])
	details := errObj["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "customer.name", details[0].(map[string]interface{})["field"])
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	tests := []struct {
		total      int64
		pageSize   int
		totalPages int
	}{
		{0, 20, 0},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta([]string{}, tt.total, 1, tt.pageSize)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, tt.totalPages, resp.Meta.TotalPages, "total=%d size=%d", tt.total, tt.pageSize)
	}
}
