package service

import (
	"errors"
	"fmt"

	"github.com/amissa/backend/internal/repository"
)

var (
	// ErrNotFound is the repository sentinel, re-exported for callers of the services.
	ErrNotFound = repository.ErrNotFound

	ErrNotBookable          = errors.New("occurrence not bookable")
	ErrPaymentSettled       = errors.New("payment already settled")
	ErrMalformedEvent       = errors.New("malformed gateway event")
	ErrUnknownTransaction   = errors.New("unknown transaction")
	ErrReferenceExhausted   = errors.New("could not allocate a unique reference")
	ErrForbidden            = errors.New("forbidden")
	ErrGenerationInProgress = errors.New("occurrence generation already running for this mass")
)

// ValidationError is a rejected input. Message is safe to show to the requester.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// GatewayError wraps a failure of the payment gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
