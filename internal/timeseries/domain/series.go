package timeseries

import (
	"sort"
	"time"
)

// CountryCode identifies a bidding region, e.g. "DE".
type CountryCode string

// EnergyType is an ENTSO-E production type code (psrType), e.g. "B16".
type EnergyType string

// Sample is one time-stamped quantity of a raw series.
// Valid is false when the quantity is null.
type Sample struct {
	At           time.Time
	Quantity     float64
	Valid        bool
	Country      CountryCode
	EnergyType   EnergyType
	Interpolated bool
}

// NewSample builds a valid sample.
func NewSample(at time.Time, quantity float64) Sample {
	return Sample{At: at, Quantity: quantity, Valid: true}
}

// Series is an ordered sequence of samples. Ordering is not guaranteed
// for series read from a collaborator; every operation sorts a copy.
type Series []Sample

// WithAttributes returns a copy tagged with the given categorical attributes.
func (s Series) WithAttributes(country CountryCode, energyType EnergyType) Series {
	out := make(Series, len(s))
	for i, smp := range s {
		smp.Country = country
		smp.EnergyType = energyType
		out[i] = smp
	}
	return out
}

// InterpolatedCount returns how many samples were filled by the resampler.
func (s Series) InterpolatedCount() int {
	count := 0
	for _, smp := range s {
		if smp.Interpolated {
			count++
		}
	}
	return count
}

// known returns the valid samples sorted by time; duplicate timestamps keep
// the last occurrence in input order.
func (s Series) known() Series {
	out := make(Series, 0, len(s))
	for _, smp := range s {
		if smp.Valid {
			out = append(out, smp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	deduped := out[:0]
	for _, smp := range out {
		if n := len(deduped); n > 0 && deduped[n-1].At.Equal(smp.At) {
			deduped[n-1] = smp
			continue
		}
		deduped = append(deduped, smp)
	}
	return deduped
}
