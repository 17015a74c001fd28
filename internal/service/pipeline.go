// Package service implements the validation business logic: admission
// control, job submission, asynchronous processing, synchronous validation,
// result aggregation, and the startup recovery sweep.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/chunker"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
)

// DefaultChunkTimeout bounds a single executor call. Statistical batteries
// are slow on large chunks but anything past this is a hung call.
const DefaultChunkTimeout = 10 * time.Minute

// pipeline holds the steps shared by the asynchronous worker and the
// synchronous validation path: window fetch, bitstream assembly, minimum-size
// check, chunking, and per-chunk executor execution with persistence.
type pipeline struct {
	samples      core.SampleSource
	chunks       core.ChunkResultRepository
	executors    map[model.ValidationType]core.TestExecutor
	policies     map[model.ValidationType]chunker.Policy
	chunkTimeout time.Duration
}

func (p *pipeline) policyFor(vtype model.ValidationType) (chunker.Policy, error) {
	policy, ok := p.policies[vtype]
	if !ok {
		return chunker.Policy{}, apperrors.Configuration(fmt.Sprintf("no chunk policy configured for %s", vtype))
	}
	if err := policy.Validate(); err != nil {
		return chunker.Policy{}, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "invalid chunk policy")
	}
	return policy, nil
}

func (p *pipeline) executorFor(vtype model.ValidationType) (core.TestExecutor, error) {
	exec, ok := p.executors[vtype]
	if !ok || exec == nil {
		return nil, apperrors.Configuration(fmt.Sprintf("no executor configured for %s", vtype))
	}
	return exec, nil
}

// plan fetches the window, assembles the bitstream, and splits it into
// chunks. It returns insufficient_data when the window is empty or the
// stream is below the policy's minimum bit count.
func (p *pipeline) plan(
	ctx context.Context,
	vtype model.ValidationType,
	start, end time.Time,
) ([][]byte, error) {
	policy, err := p.policyFor(vtype)
	if err != nil {
		return nil, err
	}

	samples, err := p.samples.FetchWindow(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch sample window: %w", err)
	}
	if len(samples) == 0 {
		return nil, apperrors.InsufficientData("no data in window")
	}

	total := 0
	for _, s := range samples {
		total += len(s.Payload)
	}
	data := make([]byte, 0, total)
	for _, s := range samples {
		data = append(data, s.Payload...)
	}

	if bits := len(data) * 8; bits < policy.MinBits {
		return nil, apperrors.InsufficientDataf("need at least %d bits, have %d", policy.MinBits, bits)
	}

	chunks, err := chunker.Split(data, policy)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConfiguration, "split bitstream")
	}
	return chunks, nil
}

// runChunk executes one chunk against the suite under the per-chunk deadline
// and persists its result rows. The returned rows are already stored.
func (p *pipeline) runChunk(
	ctx context.Context,
	run chunkRun,
	chunk []byte,
) ([]*model.ChunkResult, error) {
	timeout := p.chunkTimeout
	if timeout <= 0 {
		timeout = DefaultChunkTimeout
	}
	chunkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, err := run.executor.Run(chunkCtx, chunk)
	if err != nil {
		return nil, fmt.Errorf("chunk %d/%d: %w", run.index, run.total, err)
	}

	rows := make([]*model.ChunkResult, 0, len(outcome.Outcomes))
	for _, out := range outcome.Outcomes {
		row := &model.ChunkResult{
			CorrelationID: run.correlationID,
			TestName:      out.TestName,
			Passed:        out.Passed,
			PValue:        out.PValue,
			MinEntropy:    out.MinEntropy,
			ChunkIndex:    run.index,
			ChunkCount:    run.total,
		}
		if out.Detail != "" {
			detail := out.Detail
			row.Detail = &detail
		}
		rows = append(rows, row)
	}

	if err := p.chunks.InsertBatch(ctx, rows); err != nil {
		return nil, fmt.Errorf("persist chunk %d/%d results: %w", run.index, run.total, err)
	}
	return rows, nil
}

// chunkRun identifies one chunk's position within a validation run.
type chunkRun struct {
	executor      core.TestExecutor
	correlationID string
	index         int // 1-based
	total         int
}

// aggregateResult folds persisted chunk rows into the run-level verdict.
// Overall pass requires every row to have passed.
func aggregateResult(
	vtype model.ValidationType,
	correlationID string,
	rows []*model.ChunkResult,
) *model.ValidationResult {
	result := &model.ValidationResult{
		CorrelationID: correlationID,
		Type:          vtype,
		Passed:        len(rows) > 0,
		TestCount:     len(rows),
		Results:       rows,
	}

	for _, row := range rows {
		if !row.Passed {
			result.Passed = false
		}
		if row.ChunkCount > result.ChunkCount {
			result.ChunkCount = row.ChunkCount
		}
		if row.PValue != nil && (result.MinPValue == nil || *row.PValue < *result.MinPValue) {
			v := *row.PValue
			result.MinPValue = &v
		}
		if row.MinEntropy != nil && (result.MinEntropyEstimate == nil || *row.MinEntropy < *result.MinEntropyEstimate) {
			v := *row.MinEntropy
			result.MinEntropyEstimate = &v
		}
	}
	return result
}
