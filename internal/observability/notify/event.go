// Package notify defines the contract for validation failure notifications.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// ValidationFailurePayload captures the canonical data emitted when a
// validation job reaches the failed state.
type ValidationFailurePayload struct {
	JobID          string
	ValidationType string
	CorrelationID  string
	Submitter      string
	Error          string
	ErrorClass     string
	Severity       string
	OccurredAt     time.Time
}

// Sink describes a destination capable of consuming failure notifications.
type Sink interface {
	SendValidationFailure(ctx context.Context, payload ValidationFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload ValidationFailurePayload) error

// SendValidationFailure implements the Sink interface.
func (f SinkFunc) SendValidationFailure(ctx context.Context, payload ValidationFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
