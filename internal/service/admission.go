package service

import (
	"context"
	"fmt"

	"github.com/entropix/entropy-certify/internal/core"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
)

// DefaultAdmissionLimit is the maximum number of non-terminal jobs one
// submitter may hold at once.
const DefaultAdmissionLimit = 3

// AdmissionPolicy enforces the per-submitter cap on active jobs.
//
// The check is a count followed by an insert in a separate transaction, so
// two concurrent submissions from the same submitter can both pass and leave
// the submitter one over the limit. That window is accepted: the cap protects
// against runaway queues, not adversarial races, and an atomic reservation
// would put a serialized hot row in front of every submit.
type AdmissionPolicy struct {
	jobs  core.ValidationJobRepository
	limit int
}

// NewAdmissionPolicy creates an AdmissionPolicy. A non-positive limit falls
// back to DefaultAdmissionLimit.
func NewAdmissionPolicy(jobs core.ValidationJobRepository, limit int) *AdmissionPolicy {
	if limit <= 0 {
		limit = DefaultAdmissionLimit
	}
	return &AdmissionPolicy{jobs: jobs, limit: limit}
}

// TryAdmit returns a capacity_exceeded error when the submitter already has
// limit or more queued/running jobs.
func (a *AdmissionPolicy) TryAdmit(ctx context.Context, submitter string) error {
	count, err := a.jobs.CountActiveBySubmitter(ctx, submitter)
	if err != nil {
		return fmt.Errorf("count active jobs: %w", err)
	}
	if count >= a.limit {
		return apperrors.CapacityExceededf(
			"submitter %s already has %d active validations (limit %d)", submitter, count, a.limit)
	}
	return nil
}

// Limit returns the configured cap.
func (a *AdmissionPolicy) Limit() int {
	return a.limit
}
