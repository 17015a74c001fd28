// Package model defines the core data types for the entropy validation job system.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidationType selects which external test suite (and chunk-size policy) a job uses.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type ValidationType string

// JobStatus represents the lifecycle state of a validation job.
type JobStatus string

const (
	// ValidationTypeSuiteA runs the frequency/pattern statistical test suite.
	ValidationTypeSuiteA ValidationType = "suite_a"
	// ValidationTypeSuiteB runs the min-entropy estimation suite.
	ValidationTypeSuiteB ValidationType = "suite_b"

	// JobStatusQueued indicates a job is waiting for a worker.
	JobStatusQueued JobStatus = "queued"
	// JobStatusRunning indicates a worker is processing the job.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job finished successfully. Terminal.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed. Terminal.
	JobStatusFailed JobStatus = "failed"
)

// UnmarshalText implements encoding.TextUnmarshaler for ValidationType to allow env/JSON parsing.
func (t *ValidationType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	vt := ValidationType(v)
	if vt.Valid() {
		*t = vt
		return nil
	}
	return fmt.Errorf("invalid ValidationType: %q", v)
}

// Valid returns true if the ValidationType is valid.
func (t ValidationType) Valid() bool {
	return t == ValidationTypeSuiteA || t == ValidationTypeSuiteB
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusRunning || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal returns true once a status can never change again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ValidationJob is the persisted record of one asynchronous validation request.
// The row is created by the submission path and mutated exclusively by the
// worker processing it (plus the startup recovery sweep).
type ValidationJob struct {
	ID              string         `json:"id"                         db:"id"`
	Type            ValidationType `json:"validation_type"            db:"validation_type"`
	Status          JobStatus      `json:"status"                     db:"status"`
	WindowStart     time.Time      `json:"window_start"               db:"window_start"`
	WindowEnd       time.Time      `json:"window_end"                 db:"window_end"`
	CreatedBy       string         `json:"created_by"                 db:"created_by"`
	CreatedAt       time.Time      `json:"created_at"                 db:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty"       db:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"     db:"completed_at"`
	TotalChunks     *int           `json:"total_chunks,omitempty"     db:"total_chunks"`
	CurrentChunk    int            `json:"current_chunk"              db:"current_chunk"`
	ProgressPercent int            `json:"progress_percent"           db:"progress_percent"`
	CorrelationID   *string        `json:"correlation_id,omitempty"   db:"correlation_id"`
	ErrorMessage    *string        `json:"error_message,omitempty"    db:"error_message"`
	UpdatedAt       time.Time      `json:"updated_at"                 db:"updated_at"`
}

// CreateValidationJobRequest carries the caller-supplied fields of a new job.
type CreateValidationJobRequest struct {
	Type        ValidationType `json:"validation_type"`
	WindowStart time.Time      `json:"window_start"`
	WindowEnd   time.Time      `json:"window_end"`
	CreatedBy   string         `json:"created_by"`
}

// Validate validates the CreateValidationJobRequest fields.
func (r *CreateValidationJobRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid validation type")
	}
	if r.WindowStart.IsZero() || r.WindowEnd.IsZero() {
		return errors.New("window start and end are required")
	}
	if !r.WindowEnd.After(r.WindowStart) {
		return errors.New("window end must be after window start")
	}
	if strings.TrimSpace(r.CreatedBy) == "" {
		return errors.New("submitter is required")
	}
	return nil
}

// JobStatusView is the status-polling projection of a ValidationJob.
type JobStatusView struct {
	ID              string     `json:"id"`
	Status          JobStatus  `json:"status"`
	ProgressPercent int        `json:"progress_percent"`
	CurrentChunk    int        `json:"current_chunk"`
	TotalChunks     *int       `json:"total_chunks,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	ErrorMessage    *string    `json:"error_message,omitempty"`
}

// StatusView projects the job into its polling DTO.
func (j *ValidationJob) StatusView() *JobStatusView {
	return &JobStatusView{
		ID:              j.ID,
		Status:          j.Status,
		ProgressPercent: j.ProgressPercent,
		CurrentChunk:    j.CurrentChunk,
		TotalChunks:     j.TotalChunks,
		CreatedAt:       j.CreatedAt,
		StartedAt:       j.StartedAt,
		CompletedAt:     j.CompletedAt,
		ErrorMessage:    j.ErrorMessage,
	}
}
