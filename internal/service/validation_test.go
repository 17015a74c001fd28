package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/entropix/entropy-certify/internal/domain/chunker"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
	"github.com/entropix/entropy-certify/internal/mocks"
	"github.com/entropix/entropy-certify/internal/testutil"
)

func testPolicies() map[model.ValidationType]chunker.Policy {
	return map[model.ValidationType]chunker.Policy{
		model.ValidationTypeSuiteA: {MaxChunkBytes: 4000, MinChunkBytes: 1000, MinBits: 8000},
		model.ValidationTypeSuiteB: {MaxChunkBytes: 8000, MinChunkBytes: 2000, MinBits: 16000},
	}
}

func newValidationService(t *testing.T, repo *stubJobRepo, opts ValidationServiceOptions) *ValidationService {
	t.Helper()

	if opts.Jobs == nil {
		opts.Jobs = repo
	}
	if opts.Chunks == nil {
		ctrl := gomock.NewController(t)
		opts.Chunks = mocks.NewMockChunkResultRepository(ctrl)
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = &stubDispatcher{repo: repo}
	}
	if opts.Policies == nil {
		opts.Policies = testPolicies()
	}

	svc, err := NewValidationService(opts)
	require.NoError(t, err)
	return svc
}

func TestValidationService_Submit(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{})

	job, err := svc.Submit(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusQueued, job.Status)
	assert.Equal(t, model.ValidationTypeSuiteA, job.Type)

	stored, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusQueued, stored.Status)
}

func TestValidationService_Submit_InvalidRequest(t *testing.T) {
	ctx := context.Background()
	svc := newValidationService(t, newStubJobRepo(), ValidationServiceOptions{})

	_, err := svc.Submit(ctx, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Submit(ctx, testutil.NewJobRequest().WithSubmitter("").Build())
	require.Error(t, err)
}

func TestValidationService_Submit_NoPolicyForType(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{
		Policies: map[model.ValidationType]chunker.Policy{
			model.ValidationTypeSuiteB: {MaxChunkBytes: 8000, MinBits: 16000},
		},
	})

	_, err := svc.Submit(ctx, testutil.NewJobRequest().WithType(model.ValidationTypeSuiteA).Build())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))

	// Nothing was persisted on the configuration error.
	count, err := repo.CountActiveBySubmitter(ctx, "tester")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestValidationService_Submit_InvalidPolicy(t *testing.T) {
	ctx := context.Background()
	svc := newValidationService(t, newStubJobRepo(), ValidationServiceOptions{
		Policies: map[model.ValidationType]chunker.Policy{
			// Max chunk cannot hold the minimum bit count.
			model.ValidationTypeSuiteA: {MaxChunkBytes: 100, MinBits: 8000},
		},
	})

	_, err := svc.Submit(ctx, testutil.NewJobRequest().Build())
	require.Error(t, err)
	assert.True(t, apperrors.IsConfiguration(err))
}

func TestValidationService_Submit_AdmissionLimit(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{})

	for i := 0; i < DefaultAdmissionLimit; i++ {
		_, err := svc.Submit(ctx, testutil.NewJobRequest().WithSubmitter("lab-7").Build())
		require.NoError(t, err)
	}

	_, err := svc.Submit(ctx, testutil.NewJobRequest().WithSubmitter("lab-7").Build())
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacityExceeded(err))

	// The limit is per submitter; lab-8 still gets in.
	_, err = svc.Submit(ctx, testutil.NewJobRequest().WithSubmitter("lab-8").Build())
	assert.NoError(t, err)
}

func TestValidationService_Submit_AdmissionFreesOnCompletion(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{})

	var jobs []*model.ValidationJob
	for i := 0; i < DefaultAdmissionLimit; i++ {
		job, err := svc.Submit(ctx, testutil.NewJobRequest().WithSubmitter("lab-7").Build())
		require.NoError(t, err)
		jobs = append(jobs, job)
	}

	repo.force(jobs[0].ID, model.JobStatusCompleted)

	_, err := svc.Submit(ctx, testutil.NewJobRequest().WithSubmitter("lab-7").Build())
	assert.NoError(t, err)
}

func TestValidationService_Submit_DispatcherError(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{
		Dispatcher: &stubDispatcher{repo: repo, err: apperrors.CapacityExceeded("validation queue is full, retry later")},
	})

	_, err := svc.Submit(ctx, testutil.NewJobRequest().Build())
	require.Error(t, err)
	assert.True(t, apperrors.IsCapacityExceeded(err))
}

func TestValidationService_GetStatus(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{})

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)
	ok, err := repo.MarkRunning(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.SetChunkTotal(ctx, job.ID, 4))
	require.NoError(t, repo.UpdateProgress(ctx, job.ID, 2, 50))

	view, err := svc.GetStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, view.ID)
	assert.Equal(t, model.JobStatusRunning, view.Status)
	assert.Equal(t, 50, view.ProgressPercent)
	assert.Equal(t, 2, view.CurrentChunk)
	require.NotNil(t, view.TotalChunks)
	assert.Equal(t, 4, *view.TotalChunks)
	assert.NotNil(t, view.StartedAt)
}

func TestValidationService_GetStatus_NotFound(t *testing.T) {
	svc := newValidationService(t, newStubJobRepo(), ValidationServiceOptions{})

	_, err := svc.GetStatus(context.Background(), "missing-id")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestValidationService_GetResult_NotCompleted(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{})

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)

	for _, status := range []model.JobStatus{model.JobStatusQueued, model.JobStatusRunning, model.JobStatusFailed} {
		repo.force(job.ID, status)
		_, err := svc.GetResult(ctx, job.ID)
		require.Error(t, err, "status %s", status)
		assert.True(t, apperrors.IsNotCompleted(err), "status %s", status)
	}
}

func TestValidationService_GetResult_Aggregates(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := newStubJobRepo()
	chunks := mocks.NewMockChunkResultRepository(ctrl)
	svc := newValidationService(t, repo, ValidationServiceOptions{Chunks: chunks})

	job := completedJob(t, repo, "corr-1")

	p1, p2 := 0.8, 0.02
	rows := []*model.ChunkResult{
		{CorrelationID: "corr-1", TestName: "frequency", Passed: true, PValue: &p1, ChunkIndex: 1, ChunkCount: 2},
		{CorrelationID: "corr-1", TestName: "frequency", Passed: false, PValue: &p2, ChunkIndex: 2, ChunkCount: 2},
	}
	chunks.EXPECT().ListByCorrelationID(gomock.Any(), "corr-1").Return(rows, nil)

	result, err := svc.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, result.JobID)
	assert.Equal(t, "corr-1", result.CorrelationID)
	assert.False(t, result.Passed)
	assert.Equal(t, 2, result.ChunkCount)
	assert.Equal(t, 2, result.TestCount)
	require.NotNil(t, result.MinPValue)
	assert.Equal(t, p2, *result.MinPValue)
}

func TestValidationService_GetResult_EmptyRows(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := newStubJobRepo()
	chunks := mocks.NewMockChunkResultRepository(ctrl)
	svc := newValidationService(t, repo, ValidationServiceOptions{Chunks: chunks})

	job := completedJob(t, repo, "corr-empty")
	chunks.EXPECT().ListByCorrelationID(gomock.Any(), "corr-empty").Return(nil, nil)

	result, err := svc.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.Zero(t, result.TestCount)
}

func TestValidationService_GetResult_CacheHit(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := newStubJobRepo()
	chunks := mocks.NewMockChunkResultRepository(ctrl)
	cache := mocks.NewMockResultCache(ctrl)
	svc := newValidationService(t, repo, ValidationServiceOptions{Chunks: chunks, Cache: cache})

	job := completedJob(t, repo, "corr-cached")

	cached := &model.ValidationResult{
		CorrelationID: "corr-cached",
		Type:          model.ValidationTypeSuiteA,
		Passed:        true,
		ChunkCount:    4,
		TestCount:     8,
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	cache.EXPECT().Get(gomock.Any(), "corr-cached").Return(payload, true, nil)
	// No ListByCorrelationID expectation: a cache hit must not touch the repository.

	result, err := svc.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, result.JobID)
	assert.True(t, result.Passed)
	assert.Equal(t, 4, result.ChunkCount)
}

func TestValidationService_GetResult_CacheMissStoresResult(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := newStubJobRepo()
	chunks := mocks.NewMockChunkResultRepository(ctrl)
	cache := mocks.NewMockResultCache(ctrl)
	svc := newValidationService(t, repo, ValidationServiceOptions{Chunks: chunks, Cache: cache})

	job := completedJob(t, repo, "corr-miss")

	rows := []*model.ChunkResult{
		{CorrelationID: "corr-miss", TestName: "runs", Passed: true, ChunkIndex: 1, ChunkCount: 1},
	}
	cache.EXPECT().Get(gomock.Any(), "corr-miss").Return(nil, false, nil)
	chunks.EXPECT().ListByCorrelationID(gomock.Any(), "corr-miss").Return(rows, nil)
	cache.EXPECT().Set(gomock.Any(), "corr-miss", gomock.Any(), DefaultResultCacheTTL).Return(nil)

	result, err := svc.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestValidationService_GetResult_CacheErrorsFallThrough(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	repo := newStubJobRepo()
	chunks := mocks.NewMockChunkResultRepository(ctrl)
	cache := mocks.NewMockResultCache(ctrl)
	svc := newValidationService(t, repo, ValidationServiceOptions{Chunks: chunks, Cache: cache})

	job := completedJob(t, repo, "corr-broken")

	cache.EXPECT().Get(gomock.Any(), "corr-broken").Return(nil, false, errors.New("redis down"))
	chunks.EXPECT().ListByCorrelationID(gomock.Any(), "corr-broken").Return([]*model.ChunkResult{
		{CorrelationID: "corr-broken", TestName: "runs", Passed: true, ChunkIndex: 1, ChunkCount: 1},
	}, nil)
	cache.EXPECT().Set(gomock.Any(), "corr-broken", gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	result, err := svc.GetResult(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, result.Passed)
}

func TestValidationService_GetResult_MissingCorrelationID(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc := newValidationService(t, repo, ValidationServiceOptions{})

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)
	repo.force(job.ID, model.JobStatusCompleted)

	_, err = svc.GetResult(ctx, job.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternal, apperrors.GetCode(err))
}

// completedJob creates a job, walks it to completed, and stamps the
// correlation id.
func completedJob(t *testing.T, repo *stubJobRepo, correlationID string) *model.ValidationJob {
	t.Helper()
	ctx := context.Background()

	job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)
	ok, err := repo.MarkRunning(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, repo.SetCorrelationID(ctx, job.ID, correlationID))
	ok, err = repo.MarkCompleted(ctx, job.ID)
	require.NoError(t, err)
	require.True(t, ok)
	return job
}
