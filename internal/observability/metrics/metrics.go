package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "surplus_"

	resultSuccess = "success"
	resultError   = "error"
	resultSkipped = "skipped"
)

var (
	registerOnce sync.Once

	seriesProcessed  *prometheus.CounterVec
	countriesOmitted *prometheus.CounterVec
	corpusRows       prometheus.Gauge
	corpusCountries  prometheus.Gauge

	runTotal   *prometheus.CounterVec
	runLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	fetchTotal   *prometheus.CounterVec
	fetchLatency *prometheus.HistogramVec

	notifyTotal *prometheus.CounterVec
)

// Init registers service metrics.
func Init() {
	registerOnce.Do(func() {
		seriesProcessed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "series_processed_total",
				Help: "Raw series processed by stage and result",
			},
			[]string{"stage", "result"},
		)
		countriesOmitted = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "countries_omitted_total",
				Help: "Countries left out of the corpus by stage",
			},
			[]string{"stage"},
		)
		corpusRows = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "corpus_rows",
			Help: "Rows in the latest corpus",
		})
		corpusCountries = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "corpus_countries",
			Help: "Countries in the latest corpus",
		})

		runTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "runs_total",
				Help: "Corpus runs by status",
			},
			[]string{"status"},
		)
		runLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "run_latency_seconds",
				Help:    "Corpus run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Corpus exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Corpus export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		fetchTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "entsoe_requests_total",
				Help: "ENTSO-E API requests by document type and result",
			},
			[]string{"document", "result"},
		)
		fetchLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "entsoe_request_latency_seconds",
				Help:    "ENTSO-E API request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"document"},
		)

		notifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Run notifications by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			seriesProcessed,
			countriesOmitted,
			corpusRows,
			corpusCountries,
			runTotal,
			runLatency,
			exportTotal,
			exportLatency,
			fetchTotal,
			fetchLatency,
			notifyTotal,
		)
	})
}

// IncSeries counts one processed series.
func IncSeries(stage, result string) {
	if stage == "" {
		stage = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if seriesProcessed != nil {
		seriesProcessed.WithLabelValues(stage, result).Inc()
	}
}

// IncCountryOmitted counts a country dropped from the corpus.
func IncCountryOmitted(stage string) {
	if stage == "" {
		stage = "unknown"
	}
	if countriesOmitted != nil {
		countriesOmitted.WithLabelValues(stage).Inc()
	}
}

// SetCorpusSize records the size of the latest corpus.
func SetCorpusSize(countries, rows int) {
	if corpusRows != nil {
		corpusRows.Set(float64(rows))
	}
	if corpusCountries != nil {
		corpusCountries.Set(float64(countries))
	}
}

// ObserveRun records run latency and final status.
func ObserveRun(status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	if runTotal != nil {
		runTotal.WithLabelValues(status).Inc()
	}
	if runLatency != nil {
		runLatency.WithLabelValues(status).Observe(duration.Seconds())
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// ObserveFetch records an ENTSO-E request.
func ObserveFetch(document, result string, duration time.Duration) {
	if document == "" {
		document = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if fetchTotal != nil {
		fetchTotal.WithLabelValues(document, result).Inc()
	}
	if fetchLatency != nil {
		fetchLatency.WithLabelValues(document).Observe(duration.Seconds())
	}
}

// IncNotify counts a notification attempt.
func IncNotify(result string) {
	if result == "" {
		result = resultSuccess
	}
	if notifyTotal != nil {
		notifyTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultSkipped = resultSkipped
)
