package entsoe

import (
	"fmt"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// Region maps a country code to its ENTSO-E bidding zone EIC code.
type Region struct {
	Country timeseries.CountryCode `yaml:"country" validate:"required,len=2"`
	Area    string                 `yaml:"area" validate:"required,len=16"`
}

// DefaultRegions returns the regions fetched when no override is configured.
func DefaultRegions() []Region {
	return []Region{
		{Country: "HU", Area: "10YHU-MAVIR----U"},
		{Country: "IT", Area: "10YIT-GRTN-----B"},
		{Country: "PO", Area: "10YPL-AREA-----S"},
		{Country: "SP", Area: "10YES-REE------0"},
		{Country: "UK", Area: "10Y1001A1001A92E"},
		{Country: "DE", Area: "10Y1001A1001A83F"},
		{Country: "DK", Area: "10Y1001A1001A65H"},
		{Country: "SE", Area: "10YSE-1--------K"},
		{Country: "NE", Area: "10YNL----------L"},
	}
}

// SelectRegions filters regions by country. An empty filter returns all.
func SelectRegions(regions []Region, countries []timeseries.CountryCode) ([]Region, error) {
	if len(countries) == 0 {
		return append([]Region(nil), regions...), nil
	}
	index := make(map[timeseries.CountryCode]Region, len(regions))
	for _, region := range regions {
		index[region.Country] = region
	}
	out := make([]Region, 0, len(countries))
	for _, country := range countries {
		region, ok := index[country]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRegion, country)
		}
		out = append(out, region)
	}
	return out, nil
}
