package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
	"github.com/entropix/entropy-certify/internal/mocks"
	"github.com/entropix/entropy-certify/internal/testutil"
)

type syncFixture struct {
	samples  *mocks.MockSampleSource
	chunks   *mocks.MockChunkResultRepository
	executor *mocks.MockTestExecutor
	svc      *SyncValidationService
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &syncFixture{
		samples:  mocks.NewMockSampleSource(ctrl),
		chunks:   mocks.NewMockChunkResultRepository(ctrl),
		executor: mocks.NewMockTestExecutor(ctrl),
	}
	f.svc = MustNewSyncValidationService(SyncValidationOptions{
		Chunks:  f.chunks,
		Samples: f.samples,
		Executors: map[model.ValidationType]core.TestExecutor{
			model.ValidationTypeSuiteA: f.executor,
		},
		Policies: testPolicies(),
	})
	return f
}

func syncRequest() *SyncValidationRequest {
	end := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	return &SyncValidationRequest{
		Type:        model.ValidationTypeSuiteA,
		WindowStart: end.Add(-time.Hour),
		WindowEnd:   end,
	}
}

func TestSyncValidationService_Validate(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	req := syncRequest()

	// 250 samples are 8000 bytes: two 4000-byte chunks.
	f.samples.EXPECT().FetchWindow(gomock.Any(), req.WindowStart, req.WindowEnd).
		Return(testutil.NewSamples(req.WindowStart).Build(250), nil)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Len(4000)).
		Return(passingOutcome("frequency", 0.3), nil).Times(2)
	f.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Len(1)).Return(nil).Times(2)

	result, err := f.svc.Validate(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, result.JobID)
	assert.NotEmpty(t, result.CorrelationID)
	assert.Equal(t, model.ValidationTypeSuiteA, result.Type)
	assert.True(t, result.Passed)
	assert.Equal(t, 2, result.ChunkCount)
	assert.Equal(t, 2, result.TestCount)
	require.NotNil(t, result.MinPValue)
	assert.Equal(t, 0.3, *result.MinPValue)
}

func TestSyncValidationService_Validate_FailingTest(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	req := syncRequest()

	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.NewSamples(req.WindowStart).Build(125), nil)

	p := 0.0001
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&model.SuiteOutcome{
		Passed: false,
		Outcomes: []model.TestOutcome{
			{TestName: "frequency", Passed: true, PValue: func() *float64 { v := 0.6; return &v }()},
			{TestName: "runs", Passed: false, PValue: &p},
		},
	}, nil)
	f.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Len(2)).Return(nil)

	result, err := f.svc.Validate(ctx, req)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Equal(t, 1, result.ChunkCount)
	assert.Equal(t, 2, result.TestCount)
	require.NotNil(t, result.MinPValue)
	assert.Equal(t, p, *result.MinPValue)
}

func TestSyncValidationService_Validate_ExecutorError(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	req := syncRequest()

	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.NewSamples(req.WindowStart).Build(125), nil)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.ExecutorUnavailable("suite_a executor unreachable"))

	_, err := f.svc.Validate(ctx, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsExecutorUnavailable(err))
}

func TestSyncValidationService_Validate_InsufficientData(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	req := syncRequest()

	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	_, err := f.svc.Validate(ctx, req)
	require.Error(t, err)
	assert.True(t, apperrors.IsInsufficientData(err))
}

func TestSyncValidationRequest_Validate(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	tests := []struct {
		name string
		req  SyncValidationRequest
		ok   bool
	}{
		{name: "valid", req: SyncValidationRequest{Type: model.ValidationTypeSuiteB, WindowStart: start, WindowEnd: end}, ok: true},
		{name: "bad type", req: SyncValidationRequest{Type: "suite_c", WindowStart: start, WindowEnd: end}},
		{name: "zero window", req: SyncValidationRequest{Type: model.ValidationTypeSuiteA}},
		{name: "inverted window", req: SyncValidationRequest{Type: model.ValidationTypeSuiteA, WindowStart: end, WindowEnd: start}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestSyncValidationService_Validate_NilRequest(t *testing.T) {
	f := newSyncFixture(t)

	_, err := f.svc.Validate(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
