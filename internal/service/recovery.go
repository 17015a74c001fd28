package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/model"
	"github.com/entropix/entropy-certify/internal/observability/statsd"
)

// Failure messages written by the recovery sweep. Job state lives only in
// the database and in process memory; a restart loses the memory half, so
// every non-terminal job found at boot is unrecoverable by definition.
const (
	recoveryQueuedMessage  = "process restarted before job could start"
	recoveryRunningMessage = "process restarted during job processing"
)

// RecoveryOptions groups dependencies for RecoveryService.
type RecoveryOptions struct {
	Jobs    core.ValidationJobRepository
	Logger  *slog.Logger
	Metrics statsd.Sink
}

// RecoveryService closes out jobs orphaned by a process restart. It must run
// to completion before the HTTP server accepts traffic and before any worker
// starts, so the sweep can never race a live worker.
type RecoveryService struct {
	jobs    core.ValidationJobRepository
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewRecoveryService constructs a new RecoveryService.
func NewRecoveryService(opts RecoveryOptions) (*RecoveryService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("ValidationJobRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RecoveryService{
		jobs:    opts.Jobs,
		logger:  logger.With("component", "recovery"),
		metrics: opts.Metrics,
	}, nil
}

// Reconcile fails every queued and running job left over from the previous
// process. Queued jobs never started; running jobs died mid-flight. Both end
// up failed with completed_at set to now.
func (r *RecoveryService) Reconcile(ctx context.Context) error {
	sweeps := []struct {
		status  model.JobStatus
		message string
	}{
		{model.JobStatusQueued, recoveryQueuedMessage},
		{model.JobStatusRunning, recoveryRunningMessage},
	}

	for _, sweep := range sweeps {
		n, err := r.jobs.FailAllWithStatus(ctx, sweep.status, sweep.message)
		if err != nil {
			return fmt.Errorf("sweep %s jobs: %w", sweep.status, err)
		}
		if n > 0 {
			r.logger.WarnContext(ctx, "recovered orphaned jobs",
				"status", sweep.status, "count", n, "reason", sweep.message)
		}
		if r.metrics != nil {
			r.metrics.Count("recovery.swept", n, map[string]string{"from_status": string(sweep.status)})
		}
	}

	r.logger.InfoContext(ctx, "startup recovery sweep complete")
	return nil
}
