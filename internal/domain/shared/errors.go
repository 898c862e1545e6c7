package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// ErrorKind classifies failures crossing the integration layer so callers can
// tell "drop and continue" apart from "must surface".
type ErrorKind string

const (
	KindConfiguration ErrorKind = "CONFIGURATION"
	KindUpstream      ErrorKind = "UPSTREAM"
	KindValidation    ErrorKind = "VALIDATION"
	KindSignature     ErrorKind = "SIGNATURE"
	KindState         ErrorKind = "STATE"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindUnknown       ErrorKind = "UNKNOWN"
)

// String returns the kind name
func (k ErrorKind) String() string {
	return string(k)
}

// IntegrationError is an error with an explicit kind, optionally attributed
// to a provider and the operation that failed.
type IntegrationError struct {
	Kind     ErrorKind
	Provider string
	Op       string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *IntegrationError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Provider != "" {
		msg = e.Provider + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *IntegrationError) Unwrap() error {
	return e.Err
}

// WithProvider returns a copy attributed to the given provider
func (e *IntegrationError) WithProvider(provider string) *IntegrationError {
	cp := *e
	cp.Provider = provider
	return &cp
}

// WithOp returns a copy attributed to the given operation
func (e *IntegrationError) WithOp(op string) *IntegrationError {
	cp := *e
	cp.Op = op
	return &cp
}

// NewConfigurationError reports a provider missing required credentials
func NewConfigurationError(provider, message string) *IntegrationError {
	return &IntegrationError{Kind: KindConfiguration, Provider: provider, Message: message}
}

// NewUpstreamError reports a failed or non-successful vendor call
func NewUpstreamError(provider, op string, err error) *IntegrationError {
	return &IntegrationError{Kind: KindUpstream, Provider: provider, Op: op, Message: "upstream call failed", Err: err}
}

// NewValidationError reports a malformed request rejected before any network call
func NewValidationError(message string) *IntegrationError {
	return &IntegrationError{Kind: KindValidation, Message: message}
}

// NewSignatureError reports a missing or mismatched webhook signature
func NewSignatureError(provider, message string) *IntegrationError {
	return &IntegrationError{Kind: KindSignature, Provider: provider, Message: message}
}

// NewStateError reports an operation that violates an entity lifecycle
func NewStateError(message string) *IntegrationError {
	return &IntegrationError{Kind: KindState, Message: message}
}

// NewNotFoundError reports a missing provider or record
func NewNotFoundError(message string) *IntegrationError {
	return &IntegrationError{Kind: KindNotFound, Message: message}
}

// KindOf returns the kind of the first classified error in the chain.
// DomainError codes are mapped onto the same taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var ie *IntegrationError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	var de *DomainError
	if errors.As(err, &de) {
		switch de.Code {
		case ErrInvalidState.Code, ErrConcurrencyConflict.Code:
			return KindState
		case ErrInvalidInput.Code:
			return KindValidation
		case ErrNotFound.Code:
			return KindNotFound
		}
	}
	return KindUnknown
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
