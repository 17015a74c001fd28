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
	"github.com/entropix/entropy-certify/internal/observability/metrics"
	"github.com/entropix/entropy-certify/internal/observability/statsd"
)

// SyncValidationRequest describes an inline validation. There is no
// submitter: the caller waits for the answer, so admission control and job
// bookkeeping do not apply.
type SyncValidationRequest struct {
	Type        model.ValidationType `json:"validation_type"`
	WindowStart time.Time            `json:"window_start"`
	WindowEnd   time.Time            `json:"window_end"`
}

// Validate checks the request fields.
func (r *SyncValidationRequest) Validate() error {
	switch {
	case !r.Type.Valid():
		return apperrors.ValidationField("validation_type", fmt.Sprintf("invalid validation type %q", r.Type))
	case r.WindowStart.IsZero() || r.WindowEnd.IsZero():
		return apperrors.Validation("window start and end are required")
	case !r.WindowEnd.After(r.WindowStart):
		return apperrors.ValidationField("window_end", "window end must be after window start")
	}
	return nil
}

// SyncValidationOptions groups dependencies for SyncValidationService.
type SyncValidationOptions struct {
	Chunks       core.ChunkResultRepository
	Samples      core.SampleSource
	Executors    map[model.ValidationType]core.TestExecutor
	Policies     map[model.ValidationType]chunker.Policy
	ChunkTimeout time.Duration
	Logger       *slog.Logger
	Metrics      statsd.Sink
}

// SyncValidationService runs a validation inline and returns the aggregate.
// It shares the chunk pipeline with the asynchronous worker but creates no
// job row; the run is identified only by its fresh correlation id.
type SyncValidationService struct {
	pipeline

	logger  *slog.Logger
	metrics statsd.Sink
}

// NewSyncValidationService constructs a new SyncValidationService.
func NewSyncValidationService(opts SyncValidationOptions) (*SyncValidationService, error) {
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

	return &SyncValidationService{
		pipeline: pipeline{
			samples:      opts.Samples,
			chunks:       opts.Chunks,
			executors:    opts.Executors,
			policies:     opts.Policies,
			chunkTimeout: opts.ChunkTimeout,
		},
		logger:  logger.With("component", "sync_validation"),
		metrics: opts.Metrics,
	}, nil
}

// MustNewSyncValidationService constructs a new SyncValidationService and panics on error.
func MustNewSyncValidationService(opts SyncValidationOptions) *SyncValidationService {
	svc, err := NewSyncValidationService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create SyncValidationService: %v", err))
	}
	return svc
}

// Validate runs the full pipeline inline. Chunk rows are persisted as they
// complete, so a failed run still leaves the chunks that finished.
func (s *SyncValidationService) Validate(
	ctx context.Context,
	req *SyncValidationRequest,
) (*model.ValidationResult, error) {
	if req == nil {
		return nil, apperrors.Validation("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	executor, err := s.executorFor(req.Type)
	if err != nil {
		return nil, err
	}

	chunks, err := s.plan(ctx, req.Type, req.WindowStart, req.WindowEnd)
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	total := len(chunks)

	var rows []*model.ChunkResult
	for i, chunk := range chunks {
		chunkRows, err := s.runChunk(ctx, chunkRun{
			executor:      executor,
			correlationID: correlationID,
			index:         i + 1,
			total:         total,
		}, chunk)
		if err != nil {
			metrics.EmitValidationLifecycle(s.metrics, metrics.ValidationMetric{
				ValidationType: string(req.Type),
				Transition:     "sync_validated",
				Result:         metrics.ResultError,
				Duration:       time.Since(started),
				Err:            err,
			})
			return nil, err
		}
		rows = append(rows, chunkRows...)
	}

	result := aggregateResult(req.Type, correlationID, rows)

	metrics.EmitValidationLifecycle(s.metrics, metrics.ValidationMetric{
		ValidationType: string(req.Type),
		Transition:     "sync_validated",
		Result:         metrics.ResultSuccess,
		Duration:       time.Since(started),
	})
	s.logger.InfoContext(ctx, "synchronous validation finished",
		"correlation_id", correlationID, "validation_type", req.Type,
		"chunks", total, "passed", result.Passed)
	return result, nil
}
