package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
)

// stubJobRepo is an in-memory ValidationJobRepository with the same state
// transition guards as the SQL implementation.
type stubJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ValidationJob
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[string]*model.ValidationJob)}
}

func (r *stubJobRepo) Create(
	_ context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	job := &model.ValidationJob{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Status:      model.JobStatusQueued,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.jobs[job.ID] = job
	return copyJob(job), nil
}

func (r *stubJobRepo) GetByID(_ context.Context, id string) (*model.ValidationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("validation job %s not found", id)
	}
	return copyJob(job), nil
}

func (r *stubJobRepo) CountActiveBySubmitter(_ context.Context, submitter string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, job := range r.jobs {
		if job.CreatedBy == submitter && !job.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

func (r *stubJobRepo) MarkRunning(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status != model.JobStatusQueued {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = model.JobStatusRunning
	job.StartedAt = &now
	job.UpdatedAt = now
	return true, nil
}

func (r *stubJobRepo) SetChunkTotal(_ context.Context, id string, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.TotalChunks = &total
		job.CurrentChunk = 0
		job.ProgressPercent = 0
	}
	return nil
}

func (r *stubJobRepo) SetCorrelationID(_ context.Context, id, correlationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.CorrelationID = &correlationID
	}
	return nil
}

func (r *stubJobRepo) UpdateProgress(_ context.Context, id string, currentChunk, progressPercent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if job, ok := r.jobs[id]; ok {
		job.CurrentChunk = currentChunk
		job.ProgressPercent = progressPercent
	}
	return nil
}

func (r *stubJobRepo) MarkCompleted(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status != model.JobStatusRunning {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = model.JobStatusCompleted
	job.CompletedAt = &now
	job.ProgressPercent = 100
	job.UpdatedAt = now
	return true, nil
}

func (r *stubJobRepo) MarkFailed(_ context.Context, id, errMsg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Status == model.JobStatusCompleted {
		return false, nil
	}
	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.ErrorMessage = &errMsg
	if job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	job.UpdatedAt = now
	return true, nil
}

func (r *stubJobRepo) FailAllWithStatus(
	_ context.Context,
	status model.JobStatus,
	errMsg string,
) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, job := range r.jobs {
		if job.Status != status {
			continue
		}
		job.Status = model.JobStatusFailed
		job.ErrorMessage = &errMsg
		job.CompletedAt = &now
		job.UpdatedAt = now
		n++
	}
	return n, nil
}

// force sets a job's status directly, bypassing the guards.
func (r *stubJobRepo) force(id string, status model.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = status
	}
}

func copyJob(job *model.ValidationJob) *model.ValidationJob {
	cp := *job
	return &cp
}

// stubDispatcher invokes the worker inline, which keeps submit-path tests
// deterministic without a running pool.
type stubDispatcher struct {
	repo    *stubJobRepo
	process func(ctx context.Context, jobID string)
	err     error
}

func (d *stubDispatcher) CreateAndDispatch(
	ctx context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if d.err != nil {
		return nil, d.err
	}
	job, err := d.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if d.process != nil {
		d.process(ctx, job.ID)
	}
	return job, nil
}
