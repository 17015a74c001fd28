package data

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/entropix/entropy-certify/internal/errors"

	"github.com/entropix/entropy-certify/internal/domain/model"
)

// ChunkResultRepo provides database operations for per-chunk test results.
// Rows are write-once; there is no update path.
type ChunkResultRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewChunkResultRepo creates a new ChunkResultRepo.
func NewChunkResultRepo(db *sql.DB, cfg RepoConfig) *ChunkResultRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &ChunkResultRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const chunkResultColumns = `
  id,
  correlation_id,
  test_name,
  passed,
  p_value,
  min_entropy,
  detail,
  chunk_index,
  chunk_count,
  created_at
`

// InsertBatch persists every sub-test row of one chunk in a single statement.
// The worker calls this exactly once per chunk, before advancing progress.
func (r *ChunkResultRepo) InsertBatch(ctx context.Context, results []*model.ChunkResult) error {
	if len(results) == 0 {
		return nil
	}

	now := r.timeProvider.Now().UTC()

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`INSERT INTO chunk_results (
		id, correlation_id, test_name, passed, p_value, min_entropy, detail, chunk_index, chunk_count, created_at
	) VALUES `)

	for i, cr := range results {
		if err := validateChunkResult(cr); err != nil {
			return err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 10
		sb.WriteString(placeholderGroup(base, 10))
		args = append(args,
			uuid.NewString(), cr.CorrelationID, cr.TestName, cr.Passed,
			cr.PValue, cr.MinEntropy, cr.Detail, cr.ChunkIndex, cr.ChunkCount, now)
	}

	if _, err := r.DB.ExecContext(ctx, sb.String(), args...); err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// ListByCorrelationID returns every row of one run, ordered by chunk index and
// then test name so aggregation output is deterministic.
func (r *ChunkResultRepo) ListByCorrelationID(
	ctx context.Context,
	correlationID string,
) ([]*model.ChunkResult, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+chunkResultColumns+`
		FROM chunk_results
		WHERE correlation_id = $1
		ORDER BY chunk_index, test_name
	`, correlationID)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer func() { _ = rows.Close() }()

	var results []*model.ChunkResult
	for rows.Next() {
		cr, err := scanChunkResult(rows)
		if err != nil {
			return nil, apperrors.MapDBError(err)
		}
		results = append(results, cr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return results, nil
}

func validateChunkResult(cr *model.ChunkResult) error {
	switch {
	case cr == nil:
		return errors.New("chunk result is required")
	case cr.CorrelationID == "":
		return errors.New("chunk result correlation id is required")
	case cr.TestName == "":
		return errors.New("chunk result test name is required")
	case cr.ChunkIndex < 1 || cr.ChunkIndex > cr.ChunkCount:
		return apperrors.Validationf("chunk index %d out of range 1..%d", cr.ChunkIndex, cr.ChunkCount)
	}
	return nil
}

func scanChunkResult(row rowScanner) (*model.ChunkResult, error) {
	var (
		cr         model.ChunkResult
		pValue     sql.NullFloat64
		minEntropy sql.NullFloat64
		detail     sql.NullString
	)

	if err := row.Scan(
		&cr.ID,
		&cr.CorrelationID,
		&cr.TestName,
		&cr.Passed,
		&pValue,
		&minEntropy,
		&detail,
		&cr.ChunkIndex,
		&cr.ChunkCount,
		&cr.CreatedAt,
	); err != nil {
		return nil, err
	}

	if pValue.Valid {
		v := pValue.Float64
		cr.PValue = &v
	}
	if minEntropy.Valid {
		v := minEntropy.Float64
		cr.MinEntropy = &v
	}
	if detail.Valid {
		s := detail.String
		cr.Detail = &s
	}

	return &cr, nil
}

// placeholderGroup renders "($n, $n+1, ...)" for multi-row inserts.
func placeholderGroup(base, width int) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i := 0; i < width; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('$')
		sb.WriteString(strconv.Itoa(base + i + 1))
	}
	sb.WriteByte(')')
	return sb.String()
}
