package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	surplus "energy-surplus/internal/surplus/domain"
)

// BuildSurplusXLSX renders a workbook with a summary, the rows and the diagnostics.
func BuildSurplusXLSX(summary Summary, rows []surplus.SurplusRow, diagnostics []surplus.Diagnostic) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	summarySheet := "summary"
	rowsSheet := "surplus"
	diagSheet := "diagnostics"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(rowsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(diagSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Energy Surplus")
	_ = f.SetCellValue(summarySheet, "A3", "Run")
	_ = f.SetCellValue(summarySheet, "B3", summary.RunID)
	_ = f.SetCellValue(summarySheet, "A4", "Generated")
	_ = f.SetCellValue(summarySheet, "B4", summary.GeneratedAt.Format(timeLayout))
	_ = f.SetCellValue(summarySheet, "A5", "Rows")
	_ = f.SetCellValue(summarySheet, "B5", summary.Rows)
	header := []string{"Country", "Rows", "From", "To", "Generation", "Load", "Surplus", "Surplus hours"}
	for i, title := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 7)
		_ = f.SetCellValue(summarySheet, cell, title)
	}
	for i, cs := range summary.Countries {
		row := i + 8
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), string(cs.Country))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), cs.Rows)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), cs.From.Format(timeLayout))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("D%d", row), cs.To.Format(timeLayout))
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("E%d", row), cs.TotalGeneration)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("F%d", row), cs.TotalLoad)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("G%d", row), cs.TotalSurplus)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("H%d", row), cs.SurplusHours)
	}

	for i, title := range surplusHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(rowsSheet, cell, title)
	}
	for i, r := range rows {
		row := i + 2
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("A%d", row), string(r.Country))
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("B%d", row), r.Hour.UTC().Format(timeLayout))
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("C%d", row), r.Generation)
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("D%d", row), r.Load)
		_ = f.SetCellValue(rowsSheet, fmt.Sprintf("E%d", row), r.Surplus)
	}

	for i, title := range diagnosticHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(diagSheet, cell, title)
	}
	for i, d := range diagnostics {
		row := i + 2
		_ = f.SetCellValue(diagSheet, fmt.Sprintf("A%d", row), string(d.Country))
		_ = f.SetCellValue(diagSheet, fmt.Sprintf("B%d", row), string(d.EnergyType))
		_ = f.SetCellValue(diagSheet, fmt.Sprintf("C%d", row), string(d.Stage))
		_ = f.SetCellValue(diagSheet, fmt.Sprintf("D%d", row), d.Reason)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
