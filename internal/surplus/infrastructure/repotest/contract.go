// Package repotest holds behaviour every surplus.Repository must share.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

// RunCorpusOrder saves a corpus whose groups are not in alphabetical order
// and checks that queries return rows in corpus order.
func RunCorpusOrder(t *testing.T, repo surplus.Repository, runID string) {
	t.Helper()
	ctx := context.Background()
	h0 := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.CreateRun(ctx, &surplus.Run{ID: runID, Trigger: "manual", Status: surplus.RunRunning, CreatedAt: h0}))

	corpus := surplus.AssembleCorpus([]timeseries.CountryCode{"SE", "DE", "HU"}, map[timeseries.CountryCode][]surplus.SurplusRow{
		"SE": {{Hour: h0, Surplus: 1}, {Hour: h0.Add(time.Hour), Surplus: 2}},
		"DE": {{Hour: h0, Surplus: 3}},
		"HU": {{Hour: h0, Surplus: 4}},
	})
	require.NoError(t, repo.SaveResult(ctx, runID, corpus, nil))

	rows, err := repo.QueryRows(ctx, surplus.RowQuery{RunID: runID})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	var countries []timeseries.CountryCode
	for _, row := range rows {
		countries = append(countries, row.Country)
	}
	assert.Equal(t, []timeseries.CountryCode{"SE", "SE", "DE", "HU"}, countries)
	assert.True(t, rows[0].Hour.Before(rows[1].Hour))

	var groups []timeseries.CountryCode
	for _, group := range surplus.GroupRows(rows).Groups {
		groups = append(groups, group.Country)
	}
	assert.Equal(t, []timeseries.CountryCode{"SE", "DE", "HU"}, groups)
}
