package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/entropix/entropy-certify/internal/core"
	"github.com/entropix/entropy-certify/internal/domain/chunker"
	"github.com/entropix/entropy-certify/internal/domain/model"
	apperrors "github.com/entropix/entropy-certify/internal/errors"
	"github.com/entropix/entropy-certify/internal/mocks"
	"github.com/entropix/entropy-certify/internal/service"
)

// fakeJobRepo is a minimal in-memory job repository for router tests. Only
// the methods exercised through the HTTP surface carry real behavior.
type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.ValidationJob
}

func newFakeJobRepo() *fakeJobRepo {
	return &fakeJobRepo{jobs: make(map[string]*model.ValidationJob)}
}

func (r *fakeJobRepo) Create(
	_ context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	job := &model.ValidationJob{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Status:      model.JobStatusQueued,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.jobs[job.ID] = job
	cp := *job
	return &cp, nil
}

func (r *fakeJobRepo) GetByID(_ context.Context, id string) (*model.ValidationJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.NotFoundf("validation job %s not found", id)
	}
	cp := *job
	return &cp, nil
}

func (r *fakeJobRepo) CountActiveBySubmitter(_ context.Context, submitter string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, job := range r.jobs {
		if job.CreatedBy == submitter && !job.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (r *fakeJobRepo) MarkRunning(context.Context, string) (bool, error) { return false, nil }

func (r *fakeJobRepo) SetChunkTotal(context.Context, string, int) error { return nil }

func (r *fakeJobRepo) SetCorrelationID(_ context.Context, id, correlationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.CorrelationID = &correlationID
	}
	return nil
}

func (r *fakeJobRepo) UpdateProgress(context.Context, string, int, int) error { return nil }

func (r *fakeJobRepo) MarkCompleted(context.Context, string) (bool, error) { return false, nil }

func (r *fakeJobRepo) MarkFailed(context.Context, string, string) (bool, error) {
	return false, nil
}

func (r *fakeJobRepo) FailAllWithStatus(context.Context, model.JobStatus, string) (int64, error) {
	return 0, nil
}

// force sets a job's status directly.
func (r *fakeJobRepo) force(id string, status model.JobStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job, ok := r.jobs[id]; ok {
		job.Status = status
	}
}

// createOnlyDispatcher persists the job without scheduling anything, keeping
// router tests free of background goroutines.
type createOnlyDispatcher struct {
	repo *fakeJobRepo
}

func (d *createOnlyDispatcher) CreateAndDispatch(
	ctx context.Context,
	req *model.CreateValidationJobRequest,
) (*model.ValidationJob, error) {
	return d.repo.Create(ctx, req)
}

// routerFixture bundles the router with the fakes behind it.
type routerFixture struct {
	repo     *fakeJobRepo
	chunks   *mocks.MockChunkResultRepository
	samples  *mocks.MockSampleSource
	executor *mocks.MockTestExecutor
	handler  http.Handler
}

func routerPolicies() map[model.ValidationType]chunker.Policy {
	return map[model.ValidationType]chunker.Policy{
		model.ValidationTypeSuiteA: {MaxChunkBytes: 4000, MinChunkBytes: 1000, MinBits: 8000},
		model.ValidationTypeSuiteB: {MaxChunkBytes: 8000, MinChunkBytes: 2000, MinBits: 16000},
	}
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &routerFixture{
		repo:     newFakeJobRepo(),
		chunks:   mocks.NewMockChunkResultRepository(ctrl),
		samples:  mocks.NewMockSampleSource(ctrl),
		executor: mocks.NewMockTestExecutor(ctrl),
	}

	executors := map[model.ValidationType]core.TestExecutor{
		model.ValidationTypeSuiteA: f.executor,
	}

	validations := service.MustNewValidationService(service.ValidationServiceOptions{
		Jobs:       f.repo,
		Chunks:     f.chunks,
		Dispatcher: &createOnlyDispatcher{repo: f.repo},
		Policies:   routerPolicies(),
	})
	syncSvc := service.MustNewSyncValidationService(service.SyncValidationOptions{
		Chunks:    f.chunks,
		Samples:   f.samples,
		Executors: executors,
		Policies:  routerPolicies(),
	})

	f.handler = NewRouter(RouterServices{Validations: validations, Sync: syncSvc})
	return f
}

func (f *routerFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func requireJSONField(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
