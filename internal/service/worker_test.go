package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
	"github.com/entropix/entropy-certify/internal/mocks"
	"github.com/entropix/entropy-certify/internal/observability/notify"
	"github.com/entropix/entropy-certify/internal/service/failurenotifier"
	"github.com/entropix/entropy-certify/internal/testutil"
)

type workerFixture struct {
	repo     *stubJobRepo
	samples  *mocks.MockSampleSource
	chunks   *mocks.MockChunkResultRepository
	executor *mocks.MockTestExecutor
	worker   *WorkerService
}

func newWorkerFixture(t *testing.T, opts WorkerOptions) *workerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &workerFixture{
		repo:     newStubJobRepo(),
		samples:  mocks.NewMockSampleSource(ctrl),
		chunks:   mocks.NewMockChunkResultRepository(ctrl),
		executor: mocks.NewMockTestExecutor(ctrl),
	}

	if opts.Jobs == nil {
		opts.Jobs = f.repo
	}
	if opts.Chunks == nil {
		opts.Chunks = f.chunks
	}
	if opts.Samples == nil {
		opts.Samples = f.samples
	}
	if opts.Executors == nil {
		opts.Executors = map[model.ValidationType]core.TestExecutor{
			model.ValidationTypeSuiteA: f.executor,
		}
	}
	if opts.Policies == nil {
		opts.Policies = testPolicies()
	}

	f.worker = MustNewWorkerService(opts)
	return f
}

func (f *workerFixture) queuedJob(t *testing.T) *model.ValidationJob {
	t.Helper()
	job, err := f.repo.Create(context.Background(), testutil.NewJobRequest().Build())
	require.NoError(t, err)
	return job
}

func passingOutcome(testName string, pValue float64) *model.SuiteOutcome {
	p := pValue
	return &model.SuiteOutcome{
		Passed: true,
		Outcomes: []model.TestOutcome{
			{TestName: testName, Passed: true, PValue: &p},
		},
	}
}

func TestWorkerService_Process_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{})
	job := f.queuedJob(t)

	// 500 samples of 32 bytes make a 16000-byte stream, four 4000-byte chunks
	// under the suite_a test policy.
	samples := testutil.NewSamples(job.WindowStart).Build(500)
	f.samples.EXPECT().FetchWindow(gomock.Any(), job.WindowStart, job.WindowEnd).Return(samples, nil)

	var mu sync.Mutex
	var inserted []*model.ChunkResult
	f.executor.EXPECT().Run(gomock.Any(), gomock.Len(4000)).
		Return(passingOutcome("frequency", 0.4), nil).Times(4)
	f.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, rows []*model.ChunkResult) error {
			mu.Lock()
			defer mu.Unlock()
			inserted = append(inserted, rows...)
			return nil
		}).Times(4)

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Equal(t, 100, final.ProgressPercent)
	assert.Equal(t, 4, final.CurrentChunk)
	require.NotNil(t, final.TotalChunks)
	assert.Equal(t, 4, *final.TotalChunks)
	assert.NotNil(t, final.StartedAt)
	assert.NotNil(t, final.CompletedAt)
	require.NotNil(t, final.CorrelationID)

	require.Len(t, inserted, 4)
	for i, row := range inserted {
		assert.Equal(t, *final.CorrelationID, row.CorrelationID)
		assert.Equal(t, i+1, row.ChunkIndex)
		assert.Equal(t, 4, row.ChunkCount)
	}
}

func TestWorkerService_Process_EmptyWindowFails(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{})
	job := f.queuedJob(t)

	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*model.EntropySample{}, nil)

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "no data in window")
	assert.NotNil(t, final.CompletedAt)
}

func TestWorkerService_Process_BelowMinimumBitsFails(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{})
	job := f.queuedJob(t)

	// 10 samples are 2560 bits, under the 8000-bit test policy floor.
	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.NewSamples(job.WindowStart).Build(10), nil)

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "need at least 8000 bits")
}

func TestWorkerService_Process_FailsFastOnChunkError(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{})
	job := f.queuedJob(t)

	// 375 samples make a 12000-byte stream: exactly three 4000-byte chunks.
	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.NewSamples(job.WindowStart).Build(375), nil)

	gomock.InOrder(
		f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).Return(passingOutcome("frequency", 0.5), nil),
		f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).
			Return(nil, apperrors.ExecutorUnavailable("suite_a executor unreachable")),
	)
	// Only the first chunk's rows are persisted; chunk three is never attempted.
	f.chunks.EXPECT().InsertBatch(gomock.Any(), gomock.Len(1)).Return(nil)

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	assert.Equal(t, 1, final.CurrentChunk)
	assert.Equal(t, 33, final.ProgressPercent)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, "chunk 2/3")
	assert.Contains(t, *final.ErrorMessage, "executor unreachable")
}

func TestWorkerService_Process_UnknownJobIsNoop(t *testing.T) {
	f := newWorkerFixture(t, WorkerOptions{})

	// No executor or sample expectations: the worker must bail out silently.
	f.worker.Process(context.Background(), "no-such-job")
}

func TestWorkerService_Process_NotQueuedIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{})
	job := f.queuedJob(t)
	f.repo.force(job.ID, model.JobStatusRunning)

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, final.Status)
}

func TestWorkerService_Process_FailureNeverOverwritesCompleted(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{})
	job := f.queuedJob(t)

	// The executor flips the row to completed before erroring, standing in for
	// a concurrent writer racing the failure path.
	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.NewSamples(job.WindowStart).Build(500), nil)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, []byte) (*model.SuiteOutcome, error) {
			f.repo.force(job.ID, model.JobStatusCompleted)
			return nil, apperrors.ExecutorCall("executor rejected chunk")
		})

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Nil(t, final.ErrorMessage)
}

func TestWorkerService_Process_FailureNotifiesSinks(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	var payloads []notify.ValidationFailurePayload
	sink := notify.SinkFunc(func(_ context.Context, p notify.ValidationFailurePayload) error {
		mu.Lock()
		defer mu.Unlock()
		payloads = append(payloads, p)
		return nil
	})
	notifier := failurenotifier.NewService(failurenotifier.Options{
		Sinks: []failurenotifier.SinkRegistration{{Name: "test", Sink: sink}},
	})

	f := newWorkerFixture(t, WorkerOptions{FailureNotifier: notifier})
	job := f.queuedJob(t)

	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*model.EntropySample{}, nil)

	f.worker.Process(ctx, job.ID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 1)
	assert.Equal(t, job.ID, payloads[0].JobID)
	assert.Equal(t, string(model.ValidationTypeSuiteA), payloads[0].ValidationType)
	assert.Equal(t, "tester", payloads[0].Submitter)
	assert.Equal(t, "insufficient_data", payloads[0].ErrorClass)
	assert.Contains(t, payloads[0].Error, "no data in window")
	assert.False(t, payloads[0].OccurredAt.IsZero())
}

func TestWorkerService_Process_ChunkDeadlineApplied(t *testing.T) {
	ctx := context.Background()
	f := newWorkerFixture(t, WorkerOptions{ChunkTimeout: 50 * time.Millisecond})
	job := f.queuedJob(t)

	f.samples.EXPECT().FetchWindow(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(testutil.NewSamples(job.WindowStart).Build(500), nil)
	f.executor.EXPECT().Run(gomock.Any(), gomock.Any()).
		DoAndReturn(func(chunkCtx context.Context, _ []byte) (*model.SuiteOutcome, error) {
			deadline, ok := chunkCtx.Deadline()
			require.True(t, ok)
			require.LessOrEqual(t, time.Until(deadline), 50*time.Millisecond)
			<-chunkCtx.Done()
			return nil, chunkCtx.Err()
		})

	f.worker.Process(ctx, job.ID)

	final, err := f.repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, final.Status)
	require.NotNil(t, final.ErrorMessage)
	assert.Contains(t, *final.ErrorMessage, context.DeadlineExceeded.Error())
}
