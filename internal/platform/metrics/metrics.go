package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	ReportRuns          prometheus.Counter
	ReportRunFailures   prometheus.Counter
	ReportRunDuration   prometheus.Histogram
	ReportCacheHits     prometheus.Counter
	ReportCacheMisses   prometheus.Counter
	ExcludedPatients    *prometheus.CounterVec
	SkippedRecords      prometheus.Counter
	SuspectDates        prometheus.Counter
	UnresolvedDocuments prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ReportRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_report_runs_total",
			Help: "Total number of completed report runs",
		}),
		ReportRunFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_report_run_failures_total",
			Help: "Total number of report runs that failed",
		}),
		ReportRunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dwhmon_report_run_duration_seconds",
			Help:    "Wall time of a full report run including extraction",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ReportCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_report_cache_hits_total",
			Help: "Report requests served from the cache",
		}),
		ReportCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_report_cache_misses_total",
			Help: "Report requests that required a fresh run",
		}),
		ExcludedPatients: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dwhmon_excluded_patients_total",
			Help: "Patient records excluded during reconciliation, by reason",
		}, []string{"reason"}),
		SkippedRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_skipped_records_total",
			Help: "Malformed raw records skipped during reconciliation",
		}),
		SuspectDates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_suspect_dates_total",
			Help: "Documents whose resolved date fell outside sanity bounds",
		}),
		UnresolvedDocuments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dwhmon_unresolved_documents_total",
			Help: "Documents with no usable date field",
		}),
	}
}

// ObserveRun records the outcome of one report run.
func (m *Metrics) ObserveRun(d time.Duration, err error) {
	if err != nil {
		m.ReportRunFailures.Inc()
		return
	}
	m.ReportRuns.Inc()
	m.ReportRunDuration.Observe(d.Seconds())
}
