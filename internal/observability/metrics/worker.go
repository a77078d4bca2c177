package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	jobTotal    *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
	jobInFlight prometheus.Gauge
	sweepMoves  *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	jobTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Total processed background jobs by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexvault",
			Subsystem: "worker",
			Name:      "job_duration_seconds",
			Help:      "Background job duration in seconds by kind and status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "kind", "status"},
	)
	jobInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lexvault",
			Subsystem: "worker",
			Name:      "jobs_in_flight",
			Help:      "Number of in-flight background jobs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	sweepMoves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "worker",
			Name:      "sweep_reassignments_total",
			Help:      "Total batch moves performed by the scheduled stall sweep.",
		},
		[]string{"service"},
	)

	registry.MustRegister(jobTotal, jobDuration, jobInFlight, sweepMoves)

	return &WorkerMetrics{
		registry:    registry,
		jobTotal:    jobTotal,
		jobDuration: jobDuration,
		jobInFlight: jobInFlight,
		sweepMoves:  sweepMoves,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartJob() {
	m.jobInFlight.Inc()
}

func (m *WorkerMetrics) FinishJob(service, kind string, duration time.Duration, err error) {
	m.jobInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	if kind == "" {
		kind = "unknown"
	}

	m.jobTotal.WithLabelValues(service, kind, status).Inc()
	m.jobDuration.WithLabelValues(service, kind, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) RecordSweepMoves(service string, moves int) {
	if moves <= 0 {
		return
	}
	m.sweepMoves.WithLabelValues(service).Add(float64(moves))
}
