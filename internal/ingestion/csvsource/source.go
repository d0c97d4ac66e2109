package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

// Source reads a corpus directory of gen_<CC>_<PSR>.csv and load_<CC>.csv files.
type Source struct {
	dir    string
	logger *log.Logger
}

// NewSource constructs a source over dir.
func NewSource(dir string, logger *log.Logger) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csvsource: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	return &Source{dir: dir, logger: logger}, nil
}

// GenerationKeys lists generation series sorted by country then type.
func (s *Source) GenerationKeys(ctx context.Context) ([]surplus.SeriesKey, error) {
	names, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	var keys []surplus.SeriesKey
	for _, name := range names {
		if key, ok := ParseGenerationFileName(name); ok {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Country != keys[j].Country {
			return keys[i].Country < keys[j].Country
		}
		return keys[i].EnergyType < keys[j].EnergyType
	})
	return keys, nil
}

// LoadCountries lists countries with a load file, sorted.
func (s *Source) LoadCountries(ctx context.Context) ([]timeseries.CountryCode, error) {
	names, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	var countries []timeseries.CountryCode
	for _, name := range names {
		if country, ok := ParseLoadFileName(name); ok {
			countries = append(countries, country)
		}
	}
	sort.Slice(countries, func(i, j int) bool { return countries[i] < countries[j] })
	return countries, nil
}

// RawGeneration reads one generation series.
func (s *Source) RawGeneration(ctx context.Context, country timeseries.CountryCode, energyType timeseries.EnergyType) (timeseries.Series, error) {
	key := surplus.SeriesKey{Country: country, EnergyType: energyType}
	series, err := s.read(ctx, GenerationFileName(key), generationHeader, 3)
	if err != nil {
		return nil, err
	}
	return series.WithAttributes(country, energyType), nil
}

// RawLoad reads one load series.
func (s *Source) RawLoad(ctx context.Context, country timeseries.CountryCode) (timeseries.Series, error) {
	series, err := s.read(ctx, LoadFileName(country), loadHeader, 2)
	if err != nil {
		return nil, err
	}
	return series.WithAttributes(country, ""), nil
}

func (s *Source) list(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("csvsource: list %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *Source) read(ctx context.Context, name string, header []string, quantityCol int) (timeseries.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSeriesMissing, name)
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	first, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", ErrBadHeader, name)
		}
		return nil, err
	}
	if err := checkHeader(first, header); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	var (
		series  timeseries.Series
		skipped int
	)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		if len(record) <= quantityCol {
			return nil, fmt.Errorf("%s:%d: %w: %d columns", name, line, ErrBadRecord, len(record))
		}
		at, err := ParseEndTime(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		quantity, valid, err := parseQuantity(record[quantityCol])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, line, err)
		}
		if !valid {
			skipped++
		}
		series = append(series, timeseries.Sample{At: at, Quantity: quantity, Valid: valid})
	}
	if skipped > 0 && s.logger != nil {
		s.logger.Printf("event=csv_null_quantities file=%s count=%d", name, skipped)
	}
	return series, nil
}
