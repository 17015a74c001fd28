// Package core defines the ports between the service layer and the data layer
// and the contracts of the external collaborators (raw data source, test
// executors). Services depend on these interfaces, never on concrete types.
package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/entropix/entropy-certify/internal/domain/model"
)

// ValidationJobRepository defines the interface for validation-job data operations.
type ValidationJobRepository interface {
	Create(ctx context.Context, req *model.CreateValidationJobRequest) (*model.ValidationJob, error)
	GetByID(ctx context.Context, id string) (*model.ValidationJob, error)

	// CountActiveBySubmitter counts a submitter's queued and running jobs.
	CountActiveBySubmitter(ctx context.Context, submitter string) (int, error)

	// MarkRunning transitions queued → running and stamps started_at.
	// Returns false when the job is no longer queued.
	MarkRunning(ctx context.Context, id string) (bool, error)

	// SetChunkTotal records the chunk count once the split is known.
	SetChunkTotal(ctx context.Context, id string, total int) error

	// SetCorrelationID stamps the run's correlation id before the chunk loop starts.
	SetCorrelationID(ctx context.Context, id, correlationID string) error

	// UpdateProgress advances current_chunk and progress_percent.
	UpdateProgress(ctx context.Context, id string, currentChunk, progressPercent int) error

	// MarkCompleted transitions running → completed with progress 100.
	// Returns false when the job is not running.
	MarkCompleted(ctx context.Context, id string) (bool, error)

	// MarkFailed writes the terminal failed state. The write is guarded: a job
	// already completed is never overwritten, and false is returned instead.
	MarkFailed(ctx context.Context, id, errMsg string) (bool, error)

	// FailAllWithStatus closes out every job currently in the given status,
	// returning the number of rows swept. Used only by the startup recovery sweep.
	FailAllWithStatus(ctx context.Context, status model.JobStatus, errMsg string) (int64, error)
}

// ValidationJobRepositoryTx defines transactional job creation support for the
// commit-synchronized dispatch path.
type ValidationJobRepositoryTx interface {
	CreateInTx(ctx context.Context, tx *sql.Tx, req *model.CreateValidationJobRequest) (*model.ValidationJob, error)
}

// ChunkResultRepository defines the interface for per-chunk result rows.
type ChunkResultRepository interface {
	// InsertBatch persists all sub-test rows of one chunk. Rows are write-once.
	InsertBatch(ctx context.Context, results []*model.ChunkResult) error

	// ListByCorrelationID returns all rows of one run ordered by chunk index.
	ListByCorrelationID(ctx context.Context, correlationID string) ([]*model.ChunkResult, error)
}

// SampleSource fetches raw entropy measurements for a time window.
// An empty result is a valid, meaningful response (no data).
type SampleSource interface {
	FetchWindow(ctx context.Context, start, end time.Time) ([]*model.EntropySample, error)
}

// TestExecutor evaluates one chunk of data against an external statistical
// randomness test suite.
type TestExecutor interface {
	Run(ctx context.Context, chunk []byte) (*model.SuiteOutcome, error)
}

// ResultCache caches immutable aggregated results keyed by correlation id.
// Implementations must treat a miss as (nil, false, nil).
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
