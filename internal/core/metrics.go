package core

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Strategy names used as metric labels.
const (
	strategyWhole  = "whole"
	strategyStream = "stream"
)

// Failure kinds used as metric labels.
const (
	failureRead    = "read"
	failureParse   = "parse"
	failureProcess = "process"
	failureSize    = "size"
)

// metricsLoader holds Prometheus metrics for the ingestion subsystem.
type metricsLoader struct {
	once sync.Once

	filesLoaded       *prometheus.CounterVec
	filesUnrecognized prometheus.Counter
	loadFailures      *prometheus.CounterVec
	bytesRead         prometheus.Counter
	loadDuration      *prometheus.HistogramVec
}

var loadMetrics metricsLoader

func (m *metricsLoader) init() {
	m.once.Do(func() {
		m.filesLoaded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapload_files_loaded_total",
			Help: "Files loaded into a cache, by format and ingestion strategy",
		}, []string{"format", "strategy"})
		m.filesUnrecognized = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapload_files_unrecognized_total",
			Help: "Files that parsed but matched no known format",
		})
		m.loadFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mapload_load_failures_total",
			Help: "Failed file loads, by failure kind",
		}, []string{"kind"})
		m.bytesRead = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mapload_bytes_read_total",
			Help: "Raw file bytes read by the loader",
		})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.loadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mapload_load_seconds",
			Help:    "Duration of a single file load",
			Buckets: buckets,
		}, []string{"strategy"})

		prometheus.MustRegister(
			m.filesLoaded, m.filesUnrecognized, m.loadFailures,
			m.bytesRead, m.loadDuration,
		)
	})
}

// record helpers - used by the loader
func recordLoaded(f Format, strategy string) {
	loadMetrics.init()
	loadMetrics.filesLoaded.WithLabelValues(string(f), strategy).Inc()
}

func recordUnrecognized() { loadMetrics.init(); loadMetrics.filesUnrecognized.Inc() }

func recordFailure(kind string) {
	loadMetrics.init()
	loadMetrics.loadFailures.WithLabelValues(kind).Inc()
}

func recordBytesRead(n int64) {
	if n <= 0 {
		return
	}
	loadMetrics.init()
	loadMetrics.bytesRead.Add(float64(n))
}

func recordDuration(strategy string, d time.Duration) {
	loadMetrics.init()
	loadMetrics.loadDuration.WithLabelValues(strategy).Observe(d.Seconds())
}
