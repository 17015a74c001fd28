package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropix/entropy-certify/internal/domain/model"
	"github.com/entropix/entropy-certify/internal/testutil"
)

func seedSamples(t *testing.T, db *sql.DB, samples []*model.EntropySample) {
	t.Helper()
	ctx := context.Background()
	for _, s := range samples {
		_, err := db.ExecContext(ctx,
			`INSERT INTO entropy_samples (captured_at, payload) VALUES ($1, $2)`,
			s.CapturedAt.UTC(), s.Payload)
		require.NoError(t, err)
	}
}

func TestSampleRepo_FetchWindow(t *testing.T) {
	testutil.SkipIfNoTestDB(t)
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewSampleRepo(db, RepoConfig{})
	ctx := context.Background()

	start := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	inWindow := testutil.NewSamples(start).Build(5)
	seedSamples(t, db, inWindow)
	// One sample before the window and one at the (exclusive) end boundary.
	seedSamples(t, db, testutil.NewSamples(start.Add(-time.Minute)).Build(1))
	seedSamples(t, db, testutil.NewSamples(end).Build(1))

	got, err := repo.FetchWindow(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, got, 5)

	for i, s := range got {
		assert.Equal(t, inWindow[i].CapturedAt, s.CapturedAt.UTC(), "index %d", i)
		assert.Equal(t, inWindow[i].Payload, s.Payload, "index %d", i)
		assert.Len(t, s.Payload, model.SamplePayloadBytes)
	}

	// Start boundary is inclusive.
	assert.Equal(t, start, got[0].CapturedAt.UTC())
}

func TestSampleRepo_FetchWindow_Empty(t *testing.T) {
	testutil.SkipIfNoTestDB(t)
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewSampleRepo(db, RepoConfig{})

	start := time.Date(2026, 1, 15, 11, 0, 0, 0, time.UTC)
	got, err := repo.FetchWindow(context.Background(), start, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSampleRepo_FetchWindow_StableOrderOnTies(t *testing.T) {
	testutil.SkipIfNoTestDB(t)
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewSampleRepo(db, RepoConfig{})
	ctx := context.Background()

	ts := time.Date(2026, 1, 15, 11, 30, 0, 0, time.UTC)
	// Same capture time; BIGSERIAL ids preserve insert order.
	seedSamples(t, db, []*model.EntropySample{
		{CapturedAt: ts, Payload: []byte{1}},
		{CapturedAt: ts, Payload: []byte{2}},
		{CapturedAt: ts, Payload: []byte{3}},
	})

	first, err := repo.FetchWindow(ctx, ts, ts.Add(time.Second))
	require.NoError(t, err)
	second, err := repo.FetchWindow(ctx, ts, ts.Add(time.Second))
	require.NoError(t, err)

	require.Len(t, first, 3)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].Payload, second[i].Payload)
	}
	assert.Equal(t, []byte{1}, first[0].Payload)
	assert.Equal(t, []byte{2}, first[1].Payload)
	assert.Equal(t, []byte{3}, first[2].Payload)
}
