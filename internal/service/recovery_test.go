package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropix/entropy-certify/internal/domain/model"
	"github.com/entropix/entropy-certify/internal/testutil"
)

func TestRecoveryService_Reconcile(t *testing.T) {
	ctx := context.Background()
	repo := newStubJobRepo()
	svc, err := NewRecoveryService(RecoveryOptions{Jobs: repo})
	require.NoError(t, err)

	var queued []*model.ValidationJob
	for i := 0; i < 2; i++ {
		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		queued = append(queued, job)
	}

	running, err := repo.Create(ctx, testutil.NewJobRequest().Build())
	require.NoError(t, err)
	ok, err := repo.MarkRunning(ctx, running.ID)
	require.NoError(t, err)
	require.True(t, ok)

	completed := completedJob(t, repo, "corr-done")

	require.NoError(t, svc.Reconcile(ctx))

	for _, job := range queued {
		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusFailed, got.Status)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "process restarted before job could start", *got.ErrorMessage)
		assert.NotNil(t, got.CompletedAt)
	}

	got, err := repo.GetByID(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "process restarted during job processing", *got.ErrorMessage)

	got, err = repo.GetByID(ctx, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Nil(t, got.ErrorMessage)
}

func TestRecoveryService_Reconcile_EmptyTable(t *testing.T) {
	svc, err := NewRecoveryService(RecoveryOptions{Jobs: newStubJobRepo()})
	require.NoError(t, err)
	assert.NoError(t, svc.Reconcile(context.Background()))
}

func TestNewRecoveryService_RequiresRepo(t *testing.T) {
	_, err := NewRecoveryService(RecoveryOptions{})
	require.Error(t, err)
}
