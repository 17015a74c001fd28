// Package httpx provides HTTP handlers and routing for the entropy validation API.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/entropix/entropy-certify/internal/domain/model"
	"github.com/entropix/entropy-certify/internal/service"
)

// requestValidator checks struct tags on inbound DTOs. Shared across handlers;
// the validator caches struct metadata internally.
var requestValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidationHandlers provides HTTP handlers for validation job operations.
type ValidationHandlers struct {
	Svc  *service.ValidationService
	Sync *service.SyncValidationService
}

// createValidationRequest is the submission DTO. The window is half-open:
// samples captured at exactly window_end are excluded.
type createValidationRequest struct {
	ValidationType model.ValidationType `json:"validation_type" validate:"required"`
	WindowStart    time.Time            `json:"window_start"    validate:"required"`
	WindowEnd      time.Time            `json:"window_end"      validate:"required,gtfield=WindowStart"`
	CreatedBy      string               `json:"created_by"      validate:"required,max=128"`
}

// createValidationResponse acknowledges an accepted submission.
type createValidationResponse struct {
	JobID  string          `json:"job_id"`
	Status model.JobStatus `json:"status"`
}

// Create handles POST /api/validations. Accepted jobs return 202 with the job
// id; processing happens asynchronously and is observed via the status route.
func (h *ValidationHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createValidationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), &model.CreateValidationJobRequest{
		Type:        req.ValidationType,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, createValidationResponse{JobID: job.ID, Status: job.Status})
}

// GetStatus handles GET /api/validations/{id}/status.
func (h *ValidationHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	view, err := h.Svc.GetStatus(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// GetResult handles GET /api/validations/{id}/result. Only completed jobs
// have a result; everything else maps to a conflict via the not_completed code.
func (h *ValidationHandlers) GetResult(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("job id is required")},
		)
		return
	}

	result, err := h.Svc.GetResult(r.Context(), jobID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// syncValidationRequest is the inline validation DTO.
type syncValidationRequest struct {
	ValidationType model.ValidationType `json:"validation_type" validate:"required"`
	WindowStart    time.Time            `json:"window_start"    validate:"required"`
	WindowEnd      time.Time            `json:"window_end"      validate:"required,gtfield=WindowStart"`
}

// SyncValidate handles POST /api/validations/sync. The caller blocks for the
// whole run, so this route is for small windows and operator tooling.
func (h *ValidationHandlers) SyncValidate(w http.ResponseWriter, r *http.Request) {
	var req syncValidationRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if !checkRequest(w, &req) {
		return
	}

	result, err := h.Sync.Validate(r.Context(), &service.SyncValidationRequest{
		Type:        req.ValidationType,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
	})
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}

// checkRequest runs struct-tag validation and writes a 400 naming the first
// offending field. Returns true when the DTO is valid.
func checkRequest(w http.ResponseWriter, dto any) bool {
	err := requestValidator.Struct(dto)
	if err == nil {
		return true
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "validation",
			Err:     fmt.Errorf("%s failed on the %q rule", strings.ToLower(fe.Field()), fe.Tag()),
			Field:   strings.ToLower(fe.Field()),
		})
		return false
	}

	WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
	return false
}
