package csvsource

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

var (
	ErrNotDirectory  = errors.New("csvsource: not a directory")
	ErrSeriesMissing = errors.New("csvsource: series file not found")
	ErrBadHeader     = errors.New("csvsource: unexpected header")
	ErrBadRecord     = errors.New("csvsource: malformed record")
)

var (
	generationFile = regexp.MustCompile(`^gen_([A-Z]{2})_([A-Z][0-9]{2})\.csv$`)
	loadFile       = regexp.MustCompile(`^load_([A-Z]{2})\.csv$`)
)

var (
	generationHeader = []string{"EndTime", "AreaID", "PsrType", "quantity"}
	loadHeader       = []string{"EndTime", "AreaID", "Load"}
)

// timestampWidth is the prefix of EndTime that carries the instant; longer
// values hold trailing zone markers that are ignored.
const timestampWidth = 22

const writeLayout = "2006-01-02T15:04-07:00"

var readLayouts = []string{
	"2006-01-02T15:04-07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02T15:04:05-07",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// GenerationFileName returns the file name of a generation series.
func GenerationFileName(key surplus.SeriesKey) string {
	return fmt.Sprintf("gen_%s_%s.csv", key.Country, key.EnergyType)
}

// LoadFileName returns the file name of a load series.
func LoadFileName(country timeseries.CountryCode) string {
	return fmt.Sprintf("load_%s.csv", country)
}

// ParseGenerationFileName extracts the series key from a generation file name.
func ParseGenerationFileName(name string) (surplus.SeriesKey, bool) {
	match := generationFile.FindStringSubmatch(name)
	if match == nil {
		return surplus.SeriesKey{}, false
	}
	return surplus.SeriesKey{
		Country:    timeseries.CountryCode(match[1]),
		EnergyType: timeseries.EnergyType(match[2]),
	}, true
}

// ParseLoadFileName extracts the country from a load file name.
func ParseLoadFileName(name string) (timeseries.CountryCode, bool) {
	match := loadFile.FindStringSubmatch(name)
	if match == nil {
		return "", false
	}
	return timeseries.CountryCode(match[1]), true
}

// ParseEndTime parses an EndTime cell. Only the first 22 characters are read.
func ParseEndTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(value) > timestampWidth {
		value = value[:timestampWidth]
	}
	for _, layout := range readLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: end time %q", ErrBadRecord, value)
}

func parseQuantity(value string) (float64, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "nan") {
		return 0, false, nil
	}
	quantity, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: quantity %q", ErrBadRecord, value)
	}
	return quantity, true, nil
}

func checkHeader(got, want []string) error {
	if len(got) < len(want) {
		return fmt.Errorf("%w: %v", ErrBadHeader, got)
	}
	for i, name := range want {
		if strings.TrimPrefix(strings.TrimSpace(got[i]), "\ufeff") != name {
			return fmt.Errorf("%w: %v", ErrBadHeader, got)
		}
	}
	return nil
}
