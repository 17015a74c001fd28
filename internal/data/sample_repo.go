package data

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	apperrors "github.com/entropix/entropy-certify/internal/errors"

	"github.com/entropix/entropy-certify/internal/domain/model"
)

// SampleRepo reads raw entropy measurements from the capture table. It is the
// in-database implementation of core.SampleSource; the capture pipeline that
// writes these rows is a separate system.
type SampleRepo struct {
	DB     *sql.DB
	logger *slog.Logger
}

// NewSampleRepo creates a new SampleRepo.
func NewSampleRepo(db *sql.DB, cfg RepoConfig) *SampleRepo {
	return &SampleRepo{
		DB:     db,
		logger: cfg.Logger,
	}
}

// FetchWindow returns all samples captured in [start, end), oldest first.
// Ties on captured_at break on id so re-reads of the same window concatenate
// to the same bitstream. An empty window returns an empty slice, not an error.
func (r *SampleRepo) FetchWindow(
	ctx context.Context,
	start, end time.Time,
) ([]*model.EntropySample, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, captured_at, payload
		FROM entropy_samples
		WHERE captured_at >= $1 AND captured_at < $2
		ORDER BY captured_at, id
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer func() { _ = rows.Close() }()

	var samples []*model.EntropySample
	for rows.Next() {
		var s model.EntropySample
		if err := rows.Scan(&s.ID, &s.CapturedAt, &s.Payload); err != nil {
			return nil, apperrors.MapDBError(err)
		}
		samples = append(samples, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return samples, nil
}
