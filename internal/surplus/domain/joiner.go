package surplus

import (
	"time"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// SurplusRow is generation minus load for one country and hour.
type SurplusRow struct {
	Country    timeseries.CountryCode `json:"country_code"`
	Hour       time.Time              `json:"hour"`
	Generation float64                `json:"generation"`
	Load       float64                `json:"load"`
	Surplus    float64                `json:"surplus"`
}

// JoinSurplus inner-joins generation and load on the hour.
func JoinSurplus(generation GenerationSeries, load timeseries.HourlySeries) ([]SurplusRow, error) {
	loadByHour := load.Index()
	rows := make([]SurplusRow, 0, len(generation.Hours))
	for _, gen := range generation.Hours {
		demand, ok := loadByHour[gen.Hour]
		if !ok {
			continue
		}
		rows = append(rows, SurplusRow{
			Country:    generation.Country,
			Hour:       gen.Hour,
			Generation: gen.Quantity,
			Load:       demand,
			Surplus:    gen.Quantity - demand,
		})
	}
	if len(rows) == 0 {
		return nil, ErrNoSurplusCoverage
	}
	return rows, nil
}
