package application

import (
	"context"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

// SeriesSource supplies the pre-fetched raw series of one batch.
type SeriesSource interface {
	// GenerationKeys lists every (country, energy type) generation series available.
	GenerationKeys(ctx context.Context) ([]surplus.SeriesKey, error)
	RawGeneration(ctx context.Context, country timeseries.CountryCode, energyType timeseries.EnergyType) (timeseries.Series, error)
	LoadCountries(ctx context.Context) ([]timeseries.CountryCode, error)
	RawLoad(ctx context.Context, country timeseries.CountryCode) (timeseries.Series, error)
}
