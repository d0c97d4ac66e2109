package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"energy-surplus/internal/observability/metrics"
	surplus "energy-surplus/internal/surplus/domain"
)

const (
	surplusFile     = "surplus.csv"
	diagnosticsFile = "diagnostics.csv"
	summaryJSONFile = "summary.json"
	summaryPDFFile  = "summary.pdf"
	parquetFile     = "surplus.parquet"
	archiveFile     = "report.zip"
)

var reportEntries = []string{surplusFile, diagnosticsFile, summaryJSONFile, summaryPDFFile, parquetFile}

// Reporter writes run reports to a directory and zips them.
type Reporter struct {
	now func() time.Time
}

// NewReporter constructs a Reporter.
func NewReporter() *Reporter {
	return &Reporter{now: time.Now}
}

// WriteReport renders every report file into dir and returns the archive path.
func (r *Reporter) WriteReport(dir string, run *surplus.Run, corpus surplus.Corpus, diagnostics []surplus.Diagnostic) (string, error) {
	started := time.Now()
	path, err := r.writeReport(dir, run, corpus, diagnostics)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport("report", result, time.Since(started))
	return path, err
}

func (r *Reporter) writeReport(dir string, run *surplus.Run, corpus surplus.Corpus, diagnostics []surplus.Diagnostic) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	rows := corpus.Rows()
	summary := BuildSummary(run, corpus, diagnostics, r.now())

	var csvBuf bytes.Buffer
	if err := WriteSurplusCSV(&csvBuf, rows); err != nil {
		return "", err
	}
	var diagBuf bytes.Buffer
	if err := WriteDiagnosticsCSV(&diagBuf, diagnostics); err != nil {
		return "", err
	}
	summaryJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", err
	}
	summaryPDF, err := BuildSummaryPDF(summary)
	if err != nil {
		return "", err
	}
	parquetData, err := BuildSurplusParquet(rows)
	if err != nil {
		return "", err
	}

	files := map[string][]byte{
		surplusFile:     csvBuf.Bytes(),
		diagnosticsFile: diagBuf.Bytes(),
		summaryJSONFile: summaryJSON,
		summaryPDFFile:  summaryPDF,
		parquetFile:     parquetData,
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return "", err
		}
	}
	return writeArchive(dir)
}

func writeArchive(dir string) (string, error) {
	archivePath := filepath.Join(dir, archiveFile)
	file, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	zipWriter := zip.NewWriter(file)
	for _, name := range reportEntries {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		fw, err := zipWriter.Create(name)
		if err != nil {
			return "", err
		}
		if _, err := fw.Write(data); err != nil {
			return "", err
		}
	}
	if err := zipWriter.Close(); err != nil {
		return "", err
	}
	return archivePath, nil
}
