package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	surplus "energy-surplus/internal/surplus/domain"
)

const timeLayout = time.RFC3339

var (
	surplusHeader    = []string{"country_code", "hour", "generation", "load", "surplus"}
	diagnosticHeader = []string{"country_code", "energy_type", "stage", "reason"}
)

// WriteSurplusCSV writes rows with a header line.
func WriteSurplusCSV(w io.Writer, rows []surplus.SurplusRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(surplusHeader); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write([]string{
			string(row.Country),
			row.Hour.UTC().Format(timeLayout),
			formatFloat(row.Generation),
			formatFloat(row.Load),
			formatFloat(row.Surplus),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDiagnosticsCSV writes diagnostics with a header line.
func WriteDiagnosticsCSV(w io.Writer, diagnostics []surplus.Diagnostic) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(diagnosticHeader); err != nil {
		return err
	}
	for _, d := range diagnostics {
		if err := writer.Write([]string{string(d.Country), string(d.EnergyType), string(d.Stage), d.Reason}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
