package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/chunker"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
	obserrors "github.com/entropix/entropy-certify/internal/observability/errors"
	"github.com/entropix/entropy-certify/internal/observability/metrics"
	"github.com/entropix/entropy-certify/internal/observability/notify"
	"github.com/entropix/entropy-certify/internal/observability/statsd"
	"github.com/entropix/entropy-certify/internal/service/failurenotifier"
)

// WorkerOptions groups dependencies for WorkerService.
type WorkerOptions struct {
	Jobs            core.ValidationJobRepository            // Required
	Chunks          core.ChunkResultRepository              // Required
	Samples         core.SampleSource                       // Required
	Executors       map[model.ValidationType]core.TestExecutor // Required
	Policies        map[model.ValidationType]chunker.Policy    // Required
	ChunkTimeout    time.Duration                           // Optional: defaults to DefaultChunkTimeout
	Logger          *slog.Logger                            // Optional
	Metrics         statsd.Sink                             // Optional
	FailureNotifier *failurenotifier.Service                // Optional
}

// WorkerService drives one accepted job from queued to a terminal state.
// Chunks are processed sequentially; the first executor error fails the whole
// job and later chunks are never attempted.
type WorkerService struct {
	pipeline

	jobs     core.ValidationJobRepository
	logger   *slog.Logger
	metrics  statsd.Sink
	notifier *failurenotifier.Service
}

// NewWorkerService constructs a new WorkerService.
func NewWorkerService(opts WorkerOptions) (*WorkerService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("ValidationJobRepository is required")
	}
	if opts.Chunks == nil {
		return nil, errors.New("ChunkResultRepository is required")
	}
	if opts.Samples == nil {
		return nil, errors.New("SampleSource is required")
	}
	if len(opts.Executors) == 0 {
		return nil, errors.New("at least one executor is required")
	}
	if len(opts.Policies) == 0 {
		return nil, errors.New("at least one chunk policy is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WorkerService{
		pipeline: pipeline{
			samples:      opts.Samples,
			chunks:       opts.Chunks,
			executors:    opts.Executors,
			policies:     opts.Policies,
			chunkTimeout: opts.ChunkTimeout,
		},
		jobs:     opts.Jobs,
		logger:   logger.With("component", "validation_worker"),
		metrics:  opts.Metrics,
		notifier: opts.FailureNotifier,
	}, nil
}

// MustNewWorkerService constructs a new WorkerService and panics on error.
func MustNewWorkerService(opts WorkerOptions) *WorkerService {
	svc, err := NewWorkerService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create WorkerService: %v", err))
	}
	return svc
}

// Process runs one job to a terminal state. It never returns an error: every
// failure is recorded on the job row, and a job that cannot be found or is no
// longer queued is a logged no-op.
func (w *WorkerService) Process(ctx context.Context, jobID string) {
	started := time.Now()

	job, err := w.jobs.GetByID(ctx, jobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			w.logger.WarnContext(ctx, "dispatched job not found", "job_id", jobID)
			return
		}
		w.logger.ErrorContext(ctx, "load dispatched job failed", "job_id", jobID, "error", err)
		return
	}

	ok, err := w.jobs.MarkRunning(ctx, jobID)
	if err != nil {
		w.logger.ErrorContext(ctx, "mark running failed", "job_id", jobID, "error", err)
		return
	}
	if !ok {
		// Already picked up, or swept by recovery between commit and here.
		w.logger.WarnContext(ctx, "job no longer queued, skipping", "job_id", jobID, "status", job.Status)
		metrics.EmitValidationLifecycle(w.metrics, metrics.ValidationMetric{
			ValidationType: string(job.Type),
			Transition:     "started",
			Result:         metrics.ResultNoop,
		})
		return
	}

	w.logger.InfoContext(ctx, "validation started",
		"job_id", jobID, "validation_type", job.Type,
		"window_start", job.WindowStart, "window_end", job.WindowEnd)

	if runErr := w.run(ctx, job); runErr != nil {
		w.fail(ctx, job, runErr, time.Since(started))
		return
	}

	completed, err := w.jobs.MarkCompleted(ctx, jobID)
	if err != nil {
		w.logger.ErrorContext(ctx, "mark completed failed", "job_id", jobID, "error", err)
		return
	}
	if !completed {
		w.logger.WarnContext(ctx, "job not running at completion time", "job_id", jobID)
		return
	}

	metrics.EmitValidationLifecycle(w.metrics, metrics.ValidationMetric{
		ValidationType: string(job.Type),
		Transition:     "completed",
		Result:         metrics.ResultSuccess,
		Duration:       time.Since(started),
	})
	w.logger.InfoContext(ctx, "validation completed", "job_id", jobID, "duration", time.Since(started))
}

// run executes the chunk pipeline for a job already marked running.
func (w *WorkerService) run(ctx context.Context, job *model.ValidationJob) error {
	executor, err := w.executorFor(job.Type)
	if err != nil {
		return err
	}

	chunks, err := w.plan(ctx, job.Type, job.WindowStart, job.WindowEnd)
	if err != nil {
		return err
	}

	total := len(chunks)
	if err := w.jobs.SetChunkTotal(ctx, job.ID, total); err != nil {
		return fmt.Errorf("record chunk total: %w", err)
	}

	// The correlation id goes down before the first chunk so a crash
	// mid-loop still leaves partial rows discoverable from the job row.
	correlationID := uuid.NewString()
	if err := w.jobs.SetCorrelationID(ctx, job.ID, correlationID); err != nil {
		return fmt.Errorf("record correlation id: %w", err)
	}

	for i, chunk := range chunks {
		index := i + 1
		if _, err := w.runChunk(ctx, chunkRun{
			executor:      executor,
			correlationID: correlationID,
			index:         index,
			total:         total,
		}, chunk); err != nil {
			return err
		}

		progress := index * 100 / total
		if err := w.jobs.UpdateProgress(ctx, job.ID, index, progress); err != nil {
			return fmt.Errorf("update progress after chunk %d: %w", index, err)
		}
		metrics.EmitChunkProgress(w.metrics, string(job.Type), index, total)
	}

	return nil
}

// fail records the terminal failed state. Both this method and the repository
// guard against overwriting a completed job; the re-read covers callers whose
// repository lacks the guarded UPDATE.
func (w *WorkerService) fail(ctx context.Context, job *model.ValidationJob, cause error, elapsed time.Duration) {
	if current, err := w.jobs.GetByID(ctx, job.ID); err == nil && current.Status == model.JobStatusCompleted {
		w.logger.WarnContext(ctx, "skipping failure write, job already completed",
			"job_id", job.ID, "error", cause)
		return
	}

	marked, err := w.jobs.MarkFailed(ctx, job.ID, cause.Error())
	if err != nil {
		w.logger.ErrorContext(ctx, "mark failed errored", "job_id", job.ID, "error", err, "cause", cause)
		return
	}
	if !marked {
		w.logger.WarnContext(ctx, "failure write skipped by terminal guard", "job_id", job.ID, "cause", cause)
		return
	}

	metrics.EmitValidationLifecycle(w.metrics, metrics.ValidationMetric{
		ValidationType: string(job.Type),
		Transition:     "failed",
		Result:         metrics.ResultError,
		Duration:       elapsed,
		Err:            cause,
	})
	w.logger.ErrorContext(ctx, "validation failed", "job_id", job.ID, "error", cause)

	w.notifier.NotifyValidationFailure(ctx, notify.ValidationFailurePayload{
		JobID:          job.ID,
		ValidationType: string(job.Type),
		Submitter:      job.CreatedBy,
		Error:          cause.Error(),
		ErrorClass:     obserrors.Classify(cause),
		OccurredAt:     time.Now().UTC(),
	})
}
