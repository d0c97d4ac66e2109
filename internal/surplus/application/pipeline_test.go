package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

func findDiagnostic(diags []surplus.Diagnostic, country timeseries.CountryCode, stage surplus.Stage) (surplus.Diagnostic, bool) {
	for _, d := range diags {
		if d.Country == country && d.Stage == stage {
			return d, true
		}
	}
	return surplus.Diagnostic{}, false
}

func TestComputeSurplusCorpus_EndToEnd(t *testing.T) {
	src := newMemSource()
	src.addGeneration("A", "B16", regular(24, 15, 10))
	src.addGeneration("A", "B19", regular(24, 15, 5))
	src.addLoad("A", regular(24, 60, 30))
	src.addGeneration("B", "B16", regular(24, 15, 10))
	src.addLoad("B", regular(1, 60, 30))

	pipeline, err := NewPipeline(src)
	require.NoError(t, err)

	result, err := pipeline.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, 24, result.Corpus.Len())
	assert.Equal(t, []timeseries.CountryCode{"A"}, result.Corpus.Countries())
	group, ok := result.Corpus.Group("A")
	require.True(t, ok)
	require.Len(t, group.Rows, 24)
	assert.Equal(t, day, group.Rows[0].Hour)
	assert.InDelta(t, 60.0, group.Rows[0].Generation, 1e-9)
	assert.InDelta(t, 30.0, group.Rows[0].Load, 1e-9)
	assert.InDelta(t, 30.0, group.Rows[0].Surplus, 1e-9)

	_, ok = result.Corpus.Group("B")
	assert.False(t, ok)
	diag, ok := findDiagnostic(result.Diagnostics, "B", surplus.StageCadence)
	require.True(t, ok)
	assert.ErrorIs(t, diag.Err, timeseries.ErrCadenceUndetectable)
	assert.Equal(t, []timeseries.CountryCode{"B"}, result.OmittedCountries())
}

func TestComputeSurplusCorpus_NoCountries(t *testing.T) {
	pipeline, err := NewPipeline(newMemSource())
	require.NoError(t, err)

	_, err = pipeline.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	assert.ErrorIs(t, err, surplus.ErrNoCountries)
}

func TestComputeSurplusCorpus_ListingErrorIsFatal(t *testing.T) {
	src := newMemSource()
	src.listErr = errors.New("disk gone")
	pipeline, err := NewPipeline(src)
	require.NoError(t, err)

	_, err = pipeline.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	assert.ErrorIs(t, err, src.listErr)
}

func TestComputeSurplusCorpus_ExclusionsAndUnadmittedTypes(t *testing.T) {
	src := newMemSource()
	src.addGeneration("SP", "B16", regular(2, 60, 10))
	src.addGeneration("SP", "B10", regular(1, 60, 99))
	src.addGeneration("SP", "B14", regular(1, 60, 99))
	src.addLoad("SP", regular(2, 60, 4))
	pipeline, err := NewPipeline(src)
	require.NoError(t, err)

	result, err := pipeline.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	require.NoError(t, err)

	require.Equal(t, 2, result.Corpus.Len())
	assert.InDelta(t, 6.0, result.Corpus.Rows()[0].Surplus, 1e-9)
	diag, ok := findDiagnostic(result.Diagnostics, "SP", surplus.StagePolicy)
	require.True(t, ok)
	assert.Equal(t, timeseries.EnergyType("B10"), diag.EnergyType)
	assert.Len(t, result.Diagnostics, 1)
}

func TestComputeSurplusCorpus_EmptyPolicyOmitsEveryCountry(t *testing.T) {
	src := newMemSource()
	src.addGeneration("DE", "B16", regular(2, 60, 10))
	src.addLoad("DE", regular(2, 60, 4))
	pipeline, err := NewPipeline(src)
	require.NoError(t, err)

	result, err := pipeline.ComputeSurplusCorpus(context.Background(), surplus.Policy{})
	require.NoError(t, err)

	assert.Zero(t, result.Corpus.Len())
	diag, ok := findDiagnostic(result.Diagnostics, "DE", surplus.StageCompose)
	require.True(t, ok)
	assert.ErrorIs(t, diag.Err, surplus.ErrNoAdmittedGeneration)
}

func TestComputeSurplusCorpus_CountryLevelFailures(t *testing.T) {
	src := newMemSource()
	// generation leg that cannot be normalized
	src.addGeneration("HU", "B16", regular(2, 60, 10))
	src.addGeneration("HU", "B19", regular(1, 60, 10))
	src.addLoad("HU", regular(2, 60, 1))
	// generation without load
	src.addGeneration("IT", "B16", regular(2, 60, 10))
	// load without generation
	src.addLoad("NE", regular(2, 60, 1))
	// no common hour between generation and load
	src.addGeneration("DK", "B16", regular(2, 60, 10))
	src.addLoad("DK", timeseries.Series{
		timeseries.NewSample(day.Add(5*time.Hour), 1),
		timeseries.NewSample(day.Add(6*time.Hour), 1),
	})
	// source failure
	src.addGeneration("PO", "B16", nil)
	src.generateErr[surplus.SeriesKey{Country: "PO", EnergyType: "B16"}] = errors.New("read failed")
	src.addLoad("PO", regular(2, 60, 1))

	pipeline, err := NewPipeline(src, WithWorkers(2))
	require.NoError(t, err)

	result, err := pipeline.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	require.NoError(t, err)
	assert.Zero(t, result.Corpus.Len())

	cases := []struct {
		country timeseries.CountryCode
		stage   surplus.Stage
		err     error
	}{
		{"HU", surplus.StageCadence, timeseries.ErrCadenceUndetectable},
		{"HU", surplus.StageCompose, surplus.ErrIncompleteGeneration},
		{"IT", surplus.StageLoad, surplus.ErrNoLoad},
		{"NE", surplus.StageCompose, surplus.ErrNoAdmittedGeneration},
		{"DK", surplus.StageJoin, surplus.ErrNoSurplusCoverage},
		{"PO", surplus.StageCompose, surplus.ErrIncompleteGeneration},
	}
	for _, tc := range cases {
		diag, ok := findDiagnostic(result.Diagnostics, tc.country, tc.stage)
		require.True(t, ok, "%s/%s", tc.country, tc.stage)
		assert.ErrorIs(t, diag.Err, tc.err, "%s/%s", tc.country, tc.stage)
	}
	_, ok := findDiagnostic(result.Diagnostics, "PO", surplus.StageSource)
	assert.True(t, ok)
	assert.Equal(t, []timeseries.CountryCode{"HU", "IT", "DK", "PO", "NE"}, result.OmittedCountries())
}

func TestComputeSurplusCorpus_DeterministicAcrossWorkerCounts(t *testing.T) {
	src := newMemSource()
	for _, country := range []timeseries.CountryCode{"DE", "HU", "IT", "NE", "SE"} {
		src.addGeneration(country, "B16", regular(6, 15, 2))
		src.addGeneration(country, "B01", regular(6, 30, 1))
		src.addLoad(country, regular(6, 60, 3))
	}
	src.addLoad("UK", regular(1, 60, 3))

	sequential, err := NewPipeline(src, WithWorkers(1))
	require.NoError(t, err)
	parallel, err := NewPipeline(src, WithWorkers(8))
	require.NoError(t, err)

	first, err := sequential.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	require.NoError(t, err)
	second, err := parallel.ComputeSurplusCorpus(context.Background(), surplus.DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []timeseries.CountryCode{"DE", "HU", "IT", "NE", "SE"}, first.Corpus.Countries())
	assert.Equal(t, 30, first.Corpus.Len())
	assert.InDelta(t, 8.0+2.0-3.0, first.Corpus.Rows()[0].Surplus, 1e-9)
}

func TestNewPipeline_NilSource(t *testing.T) {
	_, err := NewPipeline(nil)
	assert.Error(t, err)
}
