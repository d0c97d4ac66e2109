package surplus

import (
	"sort"
	"time"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// GenerationSeries is the total generation of one country per hour.
type GenerationSeries struct {
	Country timeseries.CountryCode
	Hours   timeseries.HourlySeries
}

// ComposeGeneration joins the admitted sub-series of a country on their
// hour and sums them. An hour survives only when every sub-series reported
// it; partial coverage narrows the result instead of producing partial sums.
func ComposeGeneration(country timeseries.CountryCode, parts []timeseries.HourlySeries) (GenerationSeries, error) {
	if len(parts) == 0 {
		return GenerationSeries{Country: country}, ErrNoAdmittedGeneration
	}

	seen := make(map[time.Time]int)
	sums := make(map[time.Time]float64)
	for _, part := range parts {
		for hour, quantity := range part.Index() {
			seen[hour]++
			sums[hour] += quantity
		}
	}

	hours := make([]time.Time, 0, len(seen))
	for hour, count := range seen {
		if count == len(parts) {
			hours = append(hours, hour)
		}
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Before(hours[j]) })

	out := make(timeseries.HourlySeries, len(hours))
	for i, hour := range hours {
		out[i] = timeseries.HourlyValue{Hour: hour, Quantity: sums[hour], Country: country}
	}
	return GenerationSeries{Country: country, Hours: out}, nil
}
