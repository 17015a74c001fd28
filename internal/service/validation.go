package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/chunker"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
	"github.com/entropix/entropy-certify/internal/observability/metrics"
	"github.com/entropix/entropy-certify/internal/observability/statsd"
)

// Dispatcher persists an accepted job and schedules its asynchronous
// processing. Implemented by the dispatch adapter.
type Dispatcher interface {
	CreateAndDispatch(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error)
}

// DefaultResultCacheTTL bounds how long aggregated results stay cached.
// Results are immutable once a job completes, so the TTL only limits memory.
const DefaultResultCacheTTL = 24 * time.Hour

// ValidationServiceOptions groups dependencies for ValidationService.
type ValidationServiceOptions struct {
	Jobs       core.ValidationJobRepository          // Required
	Chunks     core.ChunkResultRepository            // Required
	Dispatcher Dispatcher                            // Required
	Policies   map[model.ValidationType]chunker.Policy // Required: per-type chunk policies
	Admission  *AdmissionPolicy                      // Optional: defaults to limit 3 on Jobs
	Cache      core.ResultCache                      // Optional: nil disables result caching
	CacheTTL   time.Duration                         // Optional: defaults to DefaultResultCacheTTL
	Logger     *slog.Logger                          // Optional
	Metrics    statsd.Sink                           // Optional
}

// ValidationService exposes the submission and read operations of the
// validation system: Submit, GetStatus, GetResult.
type ValidationService struct {
	jobs       core.ValidationJobRepository
	chunks     core.ChunkResultRepository
	dispatcher Dispatcher
	policies   map[model.ValidationType]chunker.Policy
	admission  *AdmissionPolicy
	cache      core.ResultCache
	cacheTTL   time.Duration
	logger     *slog.Logger
	metrics    statsd.Sink
}

// NewValidationService constructs a new ValidationService.
func NewValidationService(opts ValidationServiceOptions) (*ValidationService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("ValidationJobRepository is required")
	}
	if opts.Chunks == nil {
		return nil, errors.New("ChunkResultRepository is required")
	}
	if opts.Dispatcher == nil {
		return nil, errors.New("Dispatcher is required")
	}
	if len(opts.Policies) == 0 {
		return nil, errors.New("at least one chunk policy is required")
	}

	admission := opts.Admission
	if admission == nil {
		admission = NewAdmissionPolicy(opts.Jobs, DefaultAdmissionLimit)
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = DefaultResultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ValidationService{
		jobs:       opts.Jobs,
		chunks:     opts.Chunks,
		dispatcher: opts.Dispatcher,
		policies:   opts.Policies,
		admission:  admission,
		cache:      opts.Cache,
		cacheTTL:   cacheTTL,
		logger:     logger.With("component", "validation_service"),
		metrics:    opts.Metrics,
	}, nil
}

// MustNewValidationService constructs a new ValidationService and panics on error.
func MustNewValidationService(opts ValidationServiceOptions) *ValidationService {
	svc, err := NewValidationService(opts)
	if err != nil {
		panic(fmt.Sprintf("failed to create ValidationService: %v", err))
	}
	return svc
}

// Submit validates the request, checks the chunk policy and the submitter's
// admission budget, then persists and dispatches a queued job. The returned
// job is in the queued state; processing happens asynchronously.
func (s *ValidationService) Submit(
	ctx context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if req == nil {
		return nil, apperrors.Validation("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// A misconfigured policy is the operator's fault, not the submitter's;
	// reject before burning an admission slot.
	policy, ok := s.policies[req.Type]
	if !ok {
		return nil, apperrors.Configuration(fmt.Sprintf("no chunk policy configured for %s", req.Type))
	}
	if err := policy.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "invalid chunk policy")
	}

	if err := s.admission.TryAdmit(ctx, req.CreatedBy); err != nil {
		return nil, err
	}

	job, err := s.dispatcher.CreateAndDispatch(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.EmitValidationLifecycle(s.metrics, metrics.ValidationMetric{
		ValidationType: string(job.Type),
		Transition:     "submitted",
		Result:         metrics.ResultSuccess,
	})
	s.logger.InfoContext(ctx, "validation submitted",
		"job_id", job.ID, "validation_type", job.Type, "created_by", job.CreatedBy)
	return job, nil
}

// GetStatus returns the submitter-facing view of a job.
func (s *ValidationService) GetStatus(ctx context.Context, id string) (*model.JobStatusView, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return job.StatusView(), nil
}

// GetResult returns the aggregated outcome of a completed job. Jobs that are
// queued, running, or failed yield a not_completed error; results of
// completed jobs are immutable and may be served from cache.
func (s *ValidationService) GetResult(ctx context.Context, id string) (*model.ValidationResult, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusCompleted {
		return nil, apperrors.NotCompleted(
			fmt.Sprintf("validation job %s is %s, result available only after completion", id, job.Status))
	}
	if job.CorrelationID == nil || *job.CorrelationID == "" {
		return nil, apperrors.Internal("completed job has no correlation id")
	}
	correlationID := *job.CorrelationID

	if cached, ok := s.cachedResult(ctx, correlationID); ok {
		cached.JobID = job.ID
		return cached, nil
	}

	rows, err := s.chunks.ListByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, fmt.Errorf("list chunk results: %w", err)
	}

	result := aggregateResult(job.Type, correlationID, rows)
	result.JobID = job.ID

	s.storeResult(ctx, correlationID, result)
	return result, nil
}

func (s *ValidationService) cachedResult(ctx context.Context, correlationID string) (*model.ValidationResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, ok, err := s.cache.Get(ctx, correlationID)
	if err != nil {
		s.logger.WarnContext(ctx, "result cache read failed", "correlation_id", correlationID, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var result model.ValidationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		s.logger.WarnContext(ctx, "result cache payload corrupt", "correlation_id", correlationID, "error", err)
		return nil, false
	}
	return &result, true
}

func (s *ValidationService) storeResult(ctx context.Context, correlationID string, result *model.ValidationResult) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.WarnContext(ctx, "result cache encode failed", "correlation_id", correlationID, "error", err)
		return
	}
	if err := s.cache.Set(ctx, correlationID, payload, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "result cache write failed", "correlation_id", correlationID, "error", err)
	}
}
