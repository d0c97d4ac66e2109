package export

import (
	"math"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

// CountrySummary aggregates the rows of one country.
type CountrySummary struct {
	Country         timeseries.CountryCode `json:"country_code"`
	Rows            int                    `json:"rows"`
	From            time.Time              `json:"from"`
	To              time.Time              `json:"to"`
	TotalGeneration float64                `json:"total_generation"`
	TotalLoad       float64                `json:"total_load"`
	TotalSurplus    float64                `json:"total_surplus"`
	MinSurplus      float64                `json:"min_surplus"`
	MaxSurplus      float64                `json:"max_surplus"`
	SurplusHours    int                    `json:"surplus_hours"`
}

// Summary describes a run for reports and notifications.
type Summary struct {
	RunID       string                   `json:"run_id,omitempty"`
	Trigger     string                   `json:"trigger,omitempty"`
	GeneratedAt time.Time                `json:"generated_at"`
	Rows        int                      `json:"rows"`
	Countries   []CountrySummary         `json:"countries"`
	Diagnostics map[surplus.Stage]int    `json:"diagnostics_by_stage"`
	Omitted     []timeseries.CountryCode `json:"omitted,omitempty"`
}

// BuildSummary summarizes a corpus and its diagnostics. run may be nil.
func BuildSummary(run *surplus.Run, corpus surplus.Corpus, diagnostics []surplus.Diagnostic, now time.Time) Summary {
	summary := Summary{
		GeneratedAt: now.UTC(),
		Rows:        corpus.Len(),
		Countries:   make([]CountrySummary, 0, len(corpus.Groups)),
		Diagnostics: make(map[surplus.Stage]int),
	}
	if run != nil {
		summary.RunID = run.ID
		summary.Trigger = run.Trigger
	}
	for _, group := range corpus.Groups {
		cs := CountrySummary{Country: group.Country, Rows: len(group.Rows), MinSurplus: math.Inf(1), MaxSurplus: math.Inf(-1)}
		for i, row := range group.Rows {
			if i == 0 {
				cs.From = row.Hour
			}
			cs.To = row.Hour
			cs.TotalGeneration += row.Generation
			cs.TotalLoad += row.Load
			cs.TotalSurplus += row.Surplus
			cs.MinSurplus = math.Min(cs.MinSurplus, row.Surplus)
			cs.MaxSurplus = math.Max(cs.MaxSurplus, row.Surplus)
			if row.Surplus > 0 {
				cs.SurplusHours++
			}
		}
		if cs.Rows == 0 {
			cs.MinSurplus, cs.MaxSurplus = 0, 0
		}
		summary.Countries = append(summary.Countries, cs)
	}
	seen := make(map[timeseries.CountryCode]bool)
	for _, d := range diagnostics {
		summary.Diagnostics[d.Stage]++
		if d.OmitsCountry() && !seen[d.Country] {
			seen[d.Country] = true
			summary.Omitted = append(summary.Omitted, d.Country)
		}
	}
	return summary
}
