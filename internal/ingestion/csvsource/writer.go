package csvsource

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
	timeseries "energy-surplus/internal/timeseries/domain"
)

// Record is one row of a raw series file. Valid=false writes an empty quantity.
type Record struct {
	EndTime  time.Time
	AreaID   string
	PsrType  timeseries.EnergyType
	Quantity float64
	Valid    bool
}

// Writer writes raw series files into a corpus directory.
type Writer struct {
	dir string
}

// NewWriter constructs a writer, creating dir when needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvsource: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteGeneration writes gen_<CC>_<PSR>.csv.
func (w *Writer) WriteGeneration(key surplus.SeriesKey, records []Record) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return w.write(GenerationFileName(key), generationHeader, records, func(r Record) []string {
		return []string{r.EndTime.UTC().Format(writeLayout), r.AreaID, string(key.EnergyType), formatQuantity(r)}
	})
}

// WriteLoad writes load_<CC>.csv.
func (w *Writer) WriteLoad(country timeseries.CountryCode, records []Record) error {
	if country == "" {
		return surplus.ErrInvalidSeriesKey
	}
	return w.write(LoadFileName(country), loadHeader, records, func(r Record) []string {
		return []string{r.EndTime.UTC().Format(writeLayout), r.AreaID, formatQuantity(r)}
	})
}

func (w *Writer) write(name string, header []string, records []Record, row func(Record) []string) error {
	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		_ = tmp.Close()
		return err
	}
	for _, record := range records {
		if err := writer.Write(row(record)); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(w.dir, name))
}

func formatQuantity(r Record) string {
	if !r.Valid {
		return ""
	}
	return strconv.FormatFloat(r.Quantity, 'f', -1, 64)
}
