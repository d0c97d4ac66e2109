package export

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"

	surplus "energy-surplus/internal/surplus/domain"
)

// BuildSummaryPDF renders a one-page run summary.
func BuildSummaryPDF(summary Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Surplus Run")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if summary.RunID != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Run: %s", summary.RunID))
		pdf.Ln(5)
	}
	if summary.Trigger != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Trigger: %s", summary.Trigger))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", summary.GeneratedAt.Format(timeLayout)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Rows: %d", summary.Rows))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(20, 6, "Country", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Hours", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Generation", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Load", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Surplus", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, cs := range summary.Countries {
		pdf.CellFormat(20, 6, string(cs.Country), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", cs.Rows), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", cs.TotalGeneration), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", cs.TotalLoad), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", cs.TotalSurplus), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(summary.Diagnostics) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.Cell(0, 6, "Diagnostics")
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		stages := make([]string, 0, len(summary.Diagnostics))
		for stage := range summary.Diagnostics {
			stages = append(stages, string(stage))
		}
		sort.Strings(stages)
		for _, stage := range stages {
			pdf.Cell(0, 6, fmt.Sprintf("%s: %d", stage, summary.Diagnostics[surplus.Stage(stage)]))
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
