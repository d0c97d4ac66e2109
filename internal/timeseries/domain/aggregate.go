package timeseries

import "time"

// HourlyValue is one hourly bucket of a normalized series.
type HourlyValue struct {
	Hour       time.Time
	Quantity   float64
	Country    CountryCode
	EnergyType EnergyType
}

// HourlySeries holds at most one value per hour in ascending order.
type HourlySeries []HourlyValue

// HourBucket truncates a timestamp to the top of its UTC hour.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// AggregateHourly collapses a series to hourly buckets. Quantities are summed,
// categorical attributes keep the last non-empty value observed in the hour.
// Hours without samples are not emitted.
func AggregateHourly(s Series) HourlySeries {
	ordered := s.known()
	out := make(HourlySeries, 0, len(ordered))
	for _, smp := range ordered {
		hour := HourBucket(smp.At)
		n := len(out)
		if n == 0 || !out[n-1].Hour.Equal(hour) {
			out = append(out, HourlyValue{Hour: hour})
			n++
		}
		bucket := &out[n-1]
		bucket.Quantity += smp.Quantity
		if smp.Country != "" {
			bucket.Country = smp.Country
		}
		if smp.EnergyType != "" {
			bucket.EnergyType = smp.EnergyType
		}
	}
	return out
}

// Series converts hourly values back to samples stamped at the hour.
func (h HourlySeries) Series() Series {
	out := make(Series, len(h))
	for i, v := range h {
		out[i] = Sample{At: v.Hour, Quantity: v.Quantity, Valid: true, Country: v.Country, EnergyType: v.EnergyType}
	}
	return out
}

// Index maps hour buckets to their quantity.
func (h HourlySeries) Index() map[time.Time]float64 {
	index := make(map[time.Time]float64, len(h))
	for _, v := range h {
		index[v.Hour] = v.Quantity
	}
	return index
}

// Normalize runs cadence detection, gap repair and hourly aggregation.
func Normalize(s Series) (HourlySeries, error) {
	if len(s.known()) == 0 {
		return nil, ErrEmptySeries
	}
	cadence, err := DetectCadence(s)
	if err != nil {
		return nil, err
	}
	filled, err := FillGaps(s, cadence)
	if err != nil {
		return nil, err
	}
	return AggregateHourly(filled), nil
}
