package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	surplus "energy-surplus/internal/surplus/domain"
	"energy-surplus/internal/surplus/infrastructure/repotest"
	timeseries "energy-surplus/internal/timeseries/domain"
)

func TestRepository_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	require.NoError(t, repo.CreateRun(ctx, &surplus.Run{ID: "r1", Status: surplus.RunSucceeded}))
	require.NoError(t, repo.CreateRun(ctx, &surplus.Run{ID: "r2", Status: surplus.RunRunning}))

	latest, err := repo.LatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)

	succeeded, err := repo.LatestRun(ctx, surplus.RunSucceeded)
	require.NoError(t, err)
	assert.Equal(t, "r1", succeeded.ID)

	_, err = repo.LatestRun(ctx, surplus.RunFailed)
	assert.ErrorIs(t, err, surplus.ErrRunNotFound)

	latest.Status = surplus.RunFailed
	stored, err := repo.GetRun(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, surplus.RunRunning, stored.Status)

	require.NoError(t, repo.UpdateRun(ctx, latest))
	stored, err = repo.GetRun(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, surplus.RunFailed, stored.Status)

	counts, err := repo.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"succeeded": 1, "failed": 1}, counts)

	assert.ErrorIs(t, repo.UpdateRun(ctx, &surplus.Run{ID: "nope"}), surplus.ErrRunNotFound)
	assert.ErrorIs(t, repo.CreateRun(ctx, nil), surplus.ErrNilRun)
	assert.ErrorIs(t, repo.CreateRun(ctx, &surplus.Run{}), surplus.ErrEmptyRunID)
}

func TestRepository_QueryRows(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	require.NoError(t, repo.CreateRun(ctx, &surplus.Run{ID: "r1"}))

	h0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	corpus := surplus.AssembleCorpus([]timeseries.CountryCode{"DE", "HU"}, map[timeseries.CountryCode][]surplus.SurplusRow{
		"DE": {{Hour: h0, Surplus: 1}, {Hour: h0.Add(time.Hour), Surplus: 2}},
		"HU": {{Hour: h0, Surplus: 3}},
	})
	diags := []surplus.Diagnostic{surplus.NewDiagnostic("SE", "", surplus.StageLoad, surplus.ErrNoLoad)}
	require.NoError(t, repo.SaveResult(ctx, "r1", corpus, diags))

	rows, err := repo.QueryRows(ctx, surplus.RowQuery{RunID: "r1", Country: "DE", From: h0.Add(time.Hour)})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.InDelta(t, 2.0, rows[0].Surplus, 1e-9)

	all, err := repo.QueryRows(ctx, surplus.RowQuery{RunID: "r1"})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	stored, err := repo.Diagnostics(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, diags, stored)

	_, err = repo.QueryRows(ctx, surplus.RowQuery{RunID: "missing"})
	assert.ErrorIs(t, err, surplus.ErrRunNotFound)
	assert.ErrorIs(t, repo.SaveResult(ctx, "missing", corpus, nil), surplus.ErrRunNotFound)
}

func TestRepository_KeepsCorpusOrder(t *testing.T) {
	repotest.RunCorpusOrder(t, NewRepository(), "ordered")
}
