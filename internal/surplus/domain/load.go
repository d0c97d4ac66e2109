package surplus

import timeseries "energy-surplus/internal/timeseries/domain"

// NormalizeLoad brings one country's raw load series to hourly resolution.
func NormalizeLoad(country timeseries.CountryCode, raw timeseries.Series) (timeseries.HourlySeries, error) {
	return timeseries.Normalize(raw.WithAttributes(country, ""))
}
