package surplus

import (
	"sort"

	timeseries "energy-surplus/internal/timeseries/domain"
)

// CountryGroup holds the surplus rows of one country in ascending hour order.
type CountryGroup struct {
	Country timeseries.CountryCode `json:"country_code"`
	Rows    []SurplusRow           `json:"rows"`
}

// Corpus is the consolidated result of a run, grouped by country.
type Corpus struct {
	Groups []CountryGroup `json:"groups"`
}

// AssembleCorpus stacks per-country rows in the given country order. Countries
// without rows are skipped; rows are tagged with their country.
func AssembleCorpus(order []timeseries.CountryCode, rows map[timeseries.CountryCode][]SurplusRow) Corpus {
	corpus := Corpus{Groups: make([]CountryGroup, 0, len(order))}
	for _, country := range order {
		countryRows := rows[country]
		if len(countryRows) == 0 {
			continue
		}
		group := CountryGroup{Country: country, Rows: make([]SurplusRow, len(countryRows))}
		copy(group.Rows, countryRows)
		for i := range group.Rows {
			group.Rows[i].Country = country
		}
		sort.SliceStable(group.Rows, func(i, j int) bool {
			return group.Rows[i].Hour.Before(group.Rows[j].Hour)
		})
		corpus.Groups = append(corpus.Groups, group)
	}
	return corpus
}

// GroupRows rebuilds a corpus from flattened rows in first-seen country order.
func GroupRows(rows []SurplusRow) Corpus {
	var order []timeseries.CountryCode
	grouped := make(map[timeseries.CountryCode][]SurplusRow)
	for _, row := range rows {
		if _, ok := grouped[row.Country]; !ok {
			order = append(order, row.Country)
		}
		grouped[row.Country] = append(grouped[row.Country], row)
	}
	return AssembleCorpus(order, grouped)
}

// Rows flattens the corpus in group order.
func (c Corpus) Rows() []SurplusRow {
	out := make([]SurplusRow, 0, c.Len())
	for _, group := range c.Groups {
		out = append(out, group.Rows...)
	}
	return out
}

// Len returns the total row count.
func (c Corpus) Len() int {
	total := 0
	for _, group := range c.Groups {
		total += len(group.Rows)
	}
	return total
}

// Countries returns the country codes in group order.
func (c Corpus) Countries() []timeseries.CountryCode {
	out := make([]timeseries.CountryCode, len(c.Groups))
	for i, group := range c.Groups {
		out[i] = group.Country
	}
	return out
}

// Group returns the rows of one country.
func (c Corpus) Group(country timeseries.CountryCode) (CountryGroup, bool) {
	for _, group := range c.Groups {
		if group.Country == country {
			return group, true
		}
	}
	return CountryGroup{}, false
}
