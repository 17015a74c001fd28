// Package data provides PostgreSQL-backed repositories for validation jobs,
// chunk results, and raw entropy samples.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/entropix/entropy-certify/internal/errors"

	"github.com/entropix/entropy-certify/internal/data/pgxutil"
	"github.com/entropix/entropy-certify/internal/domain/model"
)

// RepoConfig holds configuration options shared by the repositories.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// ValidationJobRepo provides database operations for validation-job management.
type ValidationJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewValidationJobRepo creates a new ValidationJobRepo with the given database
// connection and configuration.
func NewValidationJobRepo(db *sql.DB, cfg RepoConfig) *ValidationJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &ValidationJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const validationJobColumns = `
  id,
  validation_type,
  status,
  window_start,
  window_end,
  created_by,
  created_at,
  started_at,
  completed_at,
  total_chunks,
  current_chunk,
  progress_percent,
  correlation_id,
  error_message,
  updated_at
`

const insertValidationJobSQL = `
  INSERT INTO validation_jobs (
    id, validation_type, status, window_start, window_end, created_by, created_at, updated_at
  )
  VALUES ($1, $2, 'queued', $3, $4, $5, $6, $6)
  RETURNING ` + validationJobColumns

// Create inserts a queued job in its own transaction. Callers that need
// commit-synchronized dispatch should use CreateInTx instead.
func (r *ValidationJobRepo) Create(
	ctx context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	row := r.DB.QueryRowContext(ctx, insertValidationJobSQL,
		uuid.NewString(), req.Type, req.WindowStart.UTC(), req.WindowEnd.UTC(), req.CreatedBy, now)

	job, err := scanValidationJob(row)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// CreateInTx inserts a queued job within an existing SQL transaction so the
// caller can couple dispatch to the commit.
func (r *ValidationJobRepo) CreateInTx(
	ctx context.Context,
	tx *sql.Tx,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if tx == nil {
		return nil, errors.New("transaction is required")
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	row := tx.QueryRowContext(ctx, insertValidationJobSQL,
		uuid.NewString(), req.Type, req.WindowStart.UTC(), req.WindowEnd.UTC(), req.CreatedBy, now)

	job, err := scanValidationJob(row)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

func validateCreateRequest(req *model.CreateValidationJobRequest) error {
	if req == nil {
		return errors.New("create validation job request is required")
	}
	return req.Validate()
}

// GetByID loads a job by id, returning a NotFound AppError when it does not exist.
func (r *ValidationJobRepo) GetByID(ctx context.Context, id string) (*model.ValidationJob, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+validationJobColumns+` FROM validation_jobs WHERE id = $1`, id)

	job, err := scanValidationJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("validation job %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// CountActiveBySubmitter counts a submitter's queued and running jobs.
// This is a plain read, not a reservation: concurrent submissions from the
// same submitter can race past the admission limit.
func (r *ValidationJobRepo) CountActiveBySubmitter(ctx context.Context, submitter string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM validation_jobs
		WHERE created_by = $1 AND status IN ('queued', 'running')
	`, submitter).Scan(&count)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return count, nil
}

// MarkRunning transitions queued → running, stamping started_at once.
func (r *ValidationJobRepo) MarkRunning(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	return r.execBool(ctx, `
		UPDATE validation_jobs
		SET status = 'running', started_at = COALESCE(started_at, $2), updated_at = $2
		WHERE id = $1 AND status = 'queued'
	`, id, now)
}

// SetChunkTotal records the chunk count once the split is known.
func (r *ValidationJobRepo) SetChunkTotal(ctx context.Context, id string, total int) error {
	if total <= 0 {
		return fmt.Errorf("chunk total must be positive, got %d", total)
	}
	_, err := r.execBool(ctx, `
		UPDATE validation_jobs
		SET total_chunks = $2, current_chunk = 0, progress_percent = 0, updated_at = $3
		WHERE id = $1
	`, id, total, r.timeProvider.Now().UTC())
	return err
}

// SetCorrelationID stamps the run's correlation id. It is written before any
// chunk is processed so a crash mid-loop still leaves a discoverable group.
func (r *ValidationJobRepo) SetCorrelationID(ctx context.Context, id, correlationID string) error {
	_, err := r.execBool(ctx, `
		UPDATE validation_jobs
		SET correlation_id = $2, updated_at = $3
		WHERE id = $1
	`, id, correlationID, r.timeProvider.Now().UTC())
	return err
}

// UpdateProgress advances current_chunk and progress_percent after a chunk is
// durably persisted.
func (r *ValidationJobRepo) UpdateProgress(ctx context.Context, id string, currentChunk, progressPercent int) error {
	_, err := r.execBool(ctx, `
		UPDATE validation_jobs
		SET current_chunk = $2, progress_percent = $3, updated_at = $4
		WHERE id = $1
	`, id, currentChunk, progressPercent, r.timeProvider.Now().UTC())
	return err
}

// MarkCompleted transitions running → completed with progress 100.
func (r *ValidationJobRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	return r.execBool(ctx, `
		UPDATE validation_jobs
		SET status = 'completed', completed_at = $2, progress_percent = 100, updated_at = $2
		WHERE id = $1 AND status = 'running'
	`, id, now)
}

// MarkFailed writes the terminal failed state. The WHERE clause excludes
// completed jobs so a late failure can never clobber a reported success.
func (r *ValidationJobRepo) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	return r.execBool(ctx, `
		UPDATE validation_jobs
		SET status = 'failed', error_message = $2, completed_at = COALESCE(completed_at, $3), updated_at = $3
		WHERE id = $1 AND status <> 'completed'
	`, id, errMsg, now)
}

// FailAllWithStatus bulk-fails every job in the given status. Only the startup
// recovery sweep uses this, before any worker is running.
func (r *ValidationJobRepo) FailAllWithStatus(
	ctx context.Context,
	status model.JobStatus,
	errMsg string,
) (int64, error) {
	if status.Terminal() {
		return 0, fmt.Errorf("refusing to sweep terminal status %q", status)
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE validation_jobs
		SET status = 'failed', error_message = $2, completed_at = $3, updated_at = $3
		WHERE status = $1
	`, status, errMsg, now)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return res.RowsAffected()
}

func (r *ValidationJobRepo) execBool(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanValidationJob(row rowScanner) (*model.ValidationJob, error) {
	var (
		job           model.ValidationJob
		startedAt     sql.NullTime
		completedAt   sql.NullTime
		totalChunks   sql.NullInt64
		correlationID sql.NullString
		errorMessage  sql.NullString
	)

	if err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.WindowStart,
		&job.WindowEnd,
		&job.CreatedBy,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&totalChunks,
		&job.CurrentChunk,
		&job.ProgressPercent,
		&correlationID,
		&errorMessage,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if totalChunks.Valid {
		n := int(totalChunks.Int64)
		job.TotalChunks = &n
	}
	if correlationID.Valid {
		s := correlationID.String
		job.CorrelationID = &s
	}
	if errorMessage.Valid {
		s := errorMessage.String
		job.ErrorMessage = &s
	}

	return &job, nil
}

// WithTx runs fn inside a database/sql transaction on this repo's pool.
// Exposed so the dispatcher can couple job creation to the commit without
// owning a *sql.DB of its own.
func (r *ValidationJobRepo) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	return pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{Fn: fn})
}

var _ interface {
	Now() time.Time
} = (*RealTimeProvider)(nil)
