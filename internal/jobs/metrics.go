package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for the background jobs.
type Metrics struct {
	runs            *prometheus.CounterVec
	failures        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	inconsistencias prometheus.Counter
	sincronizados   *prometheus.CounterVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers the job metrics against the provided registerer.
// When the registerer is nil the default Prometheus registerer is used.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track spawns a tracker for the given task type.
func (m *Metrics) Track(job string) *Tracker {
	if m == nil {
		return &Tracker{job: job, start: time.Now()}
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End finalises the tracker, recording duration and success/failure
// counts, and returns the provided error untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil || t.job == "" {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
		t.metrics.failures.WithLabelValues(t.job).Inc()
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddInconsistencia counts one ledger drift found by the integrity scan.
func (m *Metrics) AddInconsistencia() {
	if m == nil {
		return
	}
	m.inconsistencias.Inc()
}

// AddSync counts one bridge sync attempt by outcome.
func (m *Metrics) AddSync(status string) {
	if m == nil {
		return
	}
	m.sincronizados.WithLabelValues(status).Inc()
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contable_jobs_total",
		Help: "Total job executions partitioned by task and status.",
	}, []string{"job", "status"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contable_jobs_failures_total",
		Help: "Total failures observed for background jobs.",
	}, []string{"job"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "contable_job_duration_seconds",
		Help:    "Duration in seconds of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	inconsistencias := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "contable_ledger_inconsistencias_total",
		Help: "Ledger drifts detected by the nightly integrity scan.",
	})
	sincronizados := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "contable_siigo_sync_total",
		Help: "Bridge sync attempts partitioned by outcome.",
	}, []string{"status"})
	registerer.MustRegister(runs, failures, duration, inconsistencias, sincronizados)
	return &Metrics{
		runs:            runs,
		failures:        failures,
		duration:        duration,
		inconsistencias: inconsistencias,
		sincronizados:   sincronizados,
	}
}
