package surplus

import (
	"time"

	timeseries "energy-surplus/internal/timeseries/domain"
)

var day = time.Date(2023, 2, 24, 0, 0, 0, 0, time.UTC)

func hour(h int) time.Time {
	return day.Add(time.Duration(h) * time.Hour)
}

func hourly(values map[int]float64) timeseries.HourlySeries {
	out := make(timeseries.HourlySeries, 0, len(values))
	for h := 0; h < 48; h++ {
		if v, ok := values[h]; ok {
			out = append(out, timeseries.HourlyValue{Hour: hour(h), Quantity: v})
		}
	}
	return out
}
