package metrics

import (
	"context"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RunCounter reports stored runs grouped by status.
type RunCounter interface {
	CountRuns(ctx context.Context) (map[string]int, error)
}

var runsStoredDesc = prometheus.NewDesc(
	metricPrefix+"runs_stored",
	"Runs held by the run store by status",
	[]string{"status"},
	nil,
)

type runStoreCollector struct {
	store   RunCounter
	logger  *log.Logger
	timeout time.Duration
}

// RegisterRunStore exposes stored run counts, queried on every scrape.
func RegisterRunStore(store RunCounter, logger *log.Logger) error {
	if store == nil {
		return nil
	}
	return prometheus.Register(&runStoreCollector{store: store, logger: logger, timeout: 5 * time.Second})
}

func (c *runStoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- runsStoredDesc
}

func (c *runStoreCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	counts, err := c.store.CountRuns(ctx)
	if err != nil {
		if c.logger != nil {
			c.logger.Printf("event=metrics_run_count_failed error=%v", err)
		}
		return
	}
	for status, count := range counts {
		ch <- prometheus.MustNewConstMetric(runsStoredDesc, prometheus.GaugeValue, float64(count), status)
	}
}
