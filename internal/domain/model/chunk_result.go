package model

import "time"

// ChunkResult is one sub-test outcome for one chunk of a validation run.
// Rows are keyed by the run's correlation id rather than the job id so that
// results survive job-row churn. Rows are never mutated after creation.
type ChunkResult struct {
	ID            string    `json:"id"                    db:"id"`
	CorrelationID string    `json:"correlation_id"        db:"correlation_id"`
	TestName      string    `json:"test_name"             db:"test_name"`
	Passed        bool      `json:"passed"                db:"passed"`
	PValue        *float64  `json:"p_value,omitempty"     db:"p_value"`
	MinEntropy    *float64  `json:"min_entropy,omitempty" db:"min_entropy"`
	Detail        *string   `json:"detail,omitempty"      db:"detail"`
	ChunkIndex    int       `json:"chunk_index"           db:"chunk_index"`
	ChunkCount    int       `json:"chunk_count"           db:"chunk_count"`
	CreatedAt     time.Time `json:"created_at"            db:"created_at"`
}

// TestOutcome is a single sub-test/estimator outcome as returned by an
// external test executor, before it is tagged with a correlation id.
type TestOutcome struct {
	TestName   string   `json:"test_name"`
	Passed     bool     `json:"passed"`
	PValue     *float64 `json:"p_value,omitempty"`
	MinEntropy *float64 `json:"min_entropy,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

// SuiteOutcome is the full executor verdict for one chunk.
type SuiteOutcome struct {
	Passed   bool          `json:"passed"`
	Outcomes []TestOutcome `json:"outcomes"`
}

// ValidationResult is the aggregated outcome of a completed validation run,
// grouped by correlation id.
type ValidationResult struct {
	JobID              string         `json:"job_id,omitempty"`
	CorrelationID      string         `json:"correlation_id"`
	Type               ValidationType `json:"validation_type"`
	Passed             bool           `json:"passed"`
	ChunkCount         int            `json:"chunk_count"`
	TestCount          int            `json:"test_count"`
	MinPValue          *float64       `json:"min_p_value,omitempty"`
	MinEntropyEstimate *float64       `json:"min_entropy_estimate,omitempty"`
	Results            []*ChunkResult `json:"results"`
}
