package application

import (
	"context"
	"errors"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

var day = time.Date(2023, 2, 24, 0, 0, 0, 0, time.UTC)

type memSource struct {
	keys        []surplus.SeriesKey
	generation  map[surplus.SeriesKey]timeseries.Series
	load        map[timeseries.CountryCode]timeseries.Series
	loadOrder   []timeseries.CountryCode
	listErr     error
	generateErr map[surplus.SeriesKey]error
}

func newMemSource() *memSource {
	return &memSource{
		generation:  make(map[surplus.SeriesKey]timeseries.Series),
		load:        make(map[timeseries.CountryCode]timeseries.Series),
		generateErr: make(map[surplus.SeriesKey]error),
	}
}

func (s *memSource) addGeneration(country timeseries.CountryCode, energyType timeseries.EnergyType, series timeseries.Series) {
	key := surplus.SeriesKey{Country: country, EnergyType: energyType}
	s.keys = append(s.keys, key)
	s.generation[key] = series
}

func (s *memSource) addLoad(country timeseries.CountryCode, series timeseries.Series) {
	s.loadOrder = append(s.loadOrder, country)
	s.load[country] = series
}

func (s *memSource) GenerationKeys(ctx context.Context) ([]surplus.SeriesKey, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.keys, nil
}

func (s *memSource) RawGeneration(ctx context.Context, country timeseries.CountryCode, energyType timeseries.EnergyType) (timeseries.Series, error) {
	key := surplus.SeriesKey{Country: country, EnergyType: energyType}
	if err := s.generateErr[key]; err != nil {
		return nil, err
	}
	series, ok := s.generation[key]
	if !ok {
		return nil, errors.New("missing generation")
	}
	return series, nil
}

func (s *memSource) LoadCountries(ctx context.Context) ([]timeseries.CountryCode, error) {
	return s.loadOrder, nil
}

func (s *memSource) RawLoad(ctx context.Context, country timeseries.CountryCode) (timeseries.Series, error) {
	series, ok := s.load[country]
	if !ok {
		return nil, errors.New("missing load")
	}
	return series, nil
}

// regular returns hours worth of samples every step minutes, all equal to value.
func regular(hours, step int, value float64) timeseries.Series {
	var out timeseries.Series
	for m := 0; m < hours*60; m += step {
		out = append(out, timeseries.NewSample(day.Add(time.Duration(m)*time.Minute), value))
	}
	return out
}
