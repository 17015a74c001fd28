package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/data/pgxutil"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
)

// ProcessFunc runs one accepted job to a terminal state.
type ProcessFunc func(ctx context.Context, jobID string)

// JobCreator is the slice of the job repository the dispatcher needs: the
// transactional create for the commit-synchronized path and the plain create
// for the degraded immediate path.
type JobCreator interface {
	core.ValidationJobRepositoryTx
	Create(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error)
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	DB      *sql.DB
	Jobs    JobCreator
	Pool    *Pool
	Process ProcessFunc
	Logger  *slog.Logger
}

// Dispatcher creates job rows and hands them to the pool. The worker task is
// enqueued strictly after the creating transaction commits, so a worker can
// never look up a job the database does not have yet.
type Dispatcher struct {
	db      *sql.DB
	jobs    JobCreator
	pool    *Pool
	process ProcessFunc
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher with the given options.
func NewDispatcher(opts DispatcherOptions) (*Dispatcher, error) {
	if opts.DB == nil {
		return nil, errors.New("database connection is required")
	}
	if opts.Jobs == nil {
		return nil, errors.New("job repository is required")
	}
	if opts.Pool == nil {
		return nil, errors.New("worker pool is required")
	}
	if opts.Process == nil {
		return nil, errors.New("process function is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		db:      opts.DB,
		jobs:    opts.Jobs,
		pool:    opts.Pool,
		process: opts.Process,
		logger:  logger.With("component", "dispatcher"),
	}, nil
}

// CreateAndDispatch persists a queued job and schedules its processing.
//
// Capacity is reserved before the transaction opens: a submission the pool
// cannot hold is rejected without leaving an orphaned queued row, and a
// reservation matched with a committed row always fits in the queue.
func (d *Dispatcher) CreateAndDispatch(
	ctx context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if !d.pool.Reserve() {
		return nil, apperrors.CapacityExceeded("validation queue is full, retry later")
	}

	var job *model.ValidationJob
	err := pgxutil.WithSQLTx(ctx, d.db, pgxutil.SQLTxConfig{Fn: func(tx *sql.Tx) error {
		created, createErr := d.jobs.CreateInTx(ctx, tx, req)
		if createErr != nil {
			return createErr
		}
		job = created
		return nil
	}})
	if err != nil {
		d.pool.Release()
		return nil, err
	}

	jobID := job.ID
	if enqueueErr := d.pool.Enqueue(func(taskCtx context.Context) {
		d.process(taskCtx, jobID)
	}); enqueueErr != nil {
		// Only reachable if reservations were bypassed. The row is committed,
		// so the job stays queued and the recovery sweep will fail it on the
		// next boot.
		d.logger.ErrorContext(ctx, "enqueue after commit failed", "job_id", jobID, "error", enqueueErr)
		return nil, apperrors.Wrap(enqueueErr, apperrors.ErrCodeInternal, "enqueue validation job")
	}

	d.logger.InfoContext(ctx, "validation job dispatched",
		"job_id", jobID, "validation_type", job.Type, "created_by", job.CreatedBy)
	return job, nil
}

// DispatchNow persists the job outside any transaction and enqueues it
// immediately. Degraded path for callers without transactional storage; the
// commit-synchronization guarantee of CreateAndDispatch does not apply, but
// the insert still completes before the enqueue.
func (d *Dispatcher) DispatchNow(
	ctx context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if !d.pool.Reserve() {
		return nil, apperrors.CapacityExceeded("validation queue is full, retry later")
	}

	job, err := d.jobs.Create(ctx, req)
	if err != nil {
		d.pool.Release()
		return nil, err
	}

	jobID := job.ID
	if enqueueErr := d.pool.Enqueue(func(taskCtx context.Context) {
		d.process(taskCtx, jobID)
	}); enqueueErr != nil {
		d.logger.ErrorContext(ctx, "enqueue after create failed", "job_id", jobID, "error", enqueueErr)
		return nil, apperrors.Wrap(enqueueErr, apperrors.ErrCodeInternal, "enqueue validation job")
	}

	d.logger.InfoContext(ctx, "validation job dispatched without transaction",
		"job_id", jobID, "validation_type", job.Type, "created_by", job.CreatedBy)
	return job, nil
}
