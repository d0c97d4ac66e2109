package surplus

import (
	"fmt"
	"strings"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// SeriesKey identifies one generation sub-series.
type SeriesKey struct {
	Country    timeseries.CountryCode
	EnergyType timeseries.EnergyType
}

// String renders the key as COUNTRY/TYPE.
func (k SeriesKey) String() string {
	return string(k.Country) + "/" + string(k.EnergyType)
}

// Validate ensures both parts of the key are set.
func (k SeriesKey) Validate() error {
	if k.Country == "" || k.EnergyType == "" {
		return ErrInvalidSeriesKey
	}
	return nil
}

// ParseSeriesKey parses COUNTRY/TYPE.
func ParseSeriesKey(value string) (SeriesKey, error) {
	country, energyType, ok := strings.Cut(strings.TrimSpace(value), "/")
	key := SeriesKey{Country: timeseries.CountryCode(country), EnergyType: timeseries.EnergyType(energyType)}
	if !ok || key.Validate() != nil {
		return SeriesKey{}, fmt.Errorf("%w: %q", ErrInvalidSeriesKey, value)
	}
	return key, nil
}

// Policy is the data-quality configuration of a run: which energy types
// contribute to generation, and which country/type combinations are known to
// be unreliable.
type Policy struct {
	AdmittedTypes []timeseries.EnergyType
	Exclusions    []SeriesKey
}

// DefaultAdmittedTypes lists the production types summed into generation.
var DefaultAdmittedTypes = []timeseries.EnergyType{
	"B01", "B09", "B10", "B11", "B12", "B13", "B15", "B16", "B18", "B19",
}

// DefaultExclusions lists country/type series dropped as unreliable.
var DefaultExclusions = []SeriesKey{
	{Country: "SP", EnergyType: "B10"},
	{Country: "SE", EnergyType: "B13"},
}

// DefaultPolicy returns the stock policy.
func DefaultPolicy() Policy {
	return Policy{
		AdmittedTypes: append([]timeseries.EnergyType(nil), DefaultAdmittedTypes...),
		Exclusions:    append([]SeriesKey(nil), DefaultExclusions...),
	}
}

// Admits reports whether a generation sub-series takes part in composition.
func (p Policy) Admits(key SeriesKey) bool {
	if p.Rank(key.EnergyType) < 0 {
		return false
	}
	for _, excluded := range p.Exclusions {
		if excluded == key {
			return false
		}
	}
	return true
}

// Excluded reports whether the key is on the exclusion list.
func (p Policy) Excluded(key SeriesKey) bool {
	for _, excluded := range p.Exclusions {
		if excluded == key {
			return true
		}
	}
	return false
}

// Rank returns the position of an energy type in the admitted list, or -1.
func (p Policy) Rank(energyType timeseries.EnergyType) int {
	for i, admitted := range p.AdmittedTypes {
		if admitted == energyType {
			return i
		}
	}
	return -1
}
