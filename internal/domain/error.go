package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidAmount     = errors.New("total amount must be at least 1 minor unit")
	ErrInvalidCycleCount = errors.New("cycle count out of allowed range")
	ErrConfiguration     = errors.New("service is not configured")
	ErrSignature         = errors.New("webhook signature verification failed")
	ErrParse             = errors.New("webhook payload is malformed")
)

// ProviderError carries a rejection reported by the payment provider.
// The provider's message is preserved verbatim for caller diagnostics.
type ProviderError struct {
	Op      string // gateway operation that failed
	Code    string // provider error code, if any
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider %s failed: %s (%s)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("provider %s failed: %s", e.Op, e.Message)
}
