package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	batchesReassignedTotal  *prometheus.CounterVec
	stalledBatchesGauge     *prometheus.GaugeVec
	clusterValidationsTotal *prometheus.CounterVec
	clusterMergesTotal      *prometheus.CounterVec
	documentsCategorized    *prometheus.CounterVec
	extractionTriggersTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexvault",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lexvault",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	batchesReassignedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "import",
			Name:      "batches_reassigned_total",
			Help:      "Total batch ownership changes by mode (targeted or auto).",
		},
		[]string{"service", "mode"},
	)
	stalledBatchesGauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lexvault",
			Subsystem: "import",
			Name:      "stalled_batches",
			Help:      "Stalled batches observed by the last reassignment-info call per session.",
		},
		[]string{"service", "session_id"},
	)
	clusterValidationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "import",
			Name:      "cluster_validations_total",
			Help:      "Total cluster review actions by action name.",
		},
		[]string{"service", "action"},
	)
	clusterMergesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "import",
			Name:      "cluster_merges_total",
			Help:      "Total completed cluster merges.",
		},
		[]string{"service"},
	)
	documentsCategorized := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "import",
			Name:      "documents_categorized_total",
			Help:      "Total documents categorized or skipped by outcome.",
		},
		[]string{"service", "outcome"},
	)
	extractionTriggersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexvault",
			Subsystem: "import",
			Name:      "extraction_triggers_total",
			Help:      "Total template extraction jobs triggered by cluster validation.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		batchesReassignedTotal,
		stalledBatchesGauge,
		clusterValidationsTotal,
		clusterMergesTotal,
		documentsCategorized,
		extractionTriggersTotal,
	)

	return &HTTPServerMetrics{
		registry:                registry,
		requestTotal:            requestTotal,
		requestDuration:         requestDuration,
		requestInFlight:         requestInFlight,
		batchesReassignedTotal:  batchesReassignedTotal,
		stalledBatchesGauge:     stalledBatchesGauge,
		clusterValidationsTotal: clusterValidationsTotal,
		clusterMergesTotal:      clusterMergesTotal,
		documentsCategorized:    documentsCategorized,
		extractionTriggersTotal: extractionTriggersTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses entity ids so the path label stays low cardinality.
func normalizePath(path string) string {
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		switch parts[i-1] {
		case "sessions":
			parts[i] = "{session_id}"
		case "clusters":
			if parts[i] != "merge" {
				parts[i] = "{cluster_id}"
			}
		case "documents":
			parts[i] = "{document_id}"
		case "categories":
			if parts[i] != "merge" {
				parts[i] = "{category_id}"
			}
		}
	}
	return strings.Join(parts, "/")
}

func (m *HTTPServerMetrics) RecordReassignments(service, mode string, count int) {
	if count <= 0 {
		return
	}
	if mode == "" {
		mode = "auto"
	}
	m.batchesReassignedTotal.WithLabelValues(service, mode).Add(float64(count))
}

func (m *HTTPServerMetrics) RecordStalledBatches(service, sessionID string, count int) {
	m.stalledBatchesGauge.WithLabelValues(service, sessionID).Set(float64(count))
}

func (m *HTTPServerMetrics) RecordClusterValidation(service, action string) {
	if action == "" {
		action = "unknown"
	}
	m.clusterValidationsTotal.WithLabelValues(service, action).Inc()
}

func (m *HTTPServerMetrics) RecordClusterMerge(service string) {
	m.clusterMergesTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordCategorization(service, outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.documentsCategorized.WithLabelValues(service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordExtractionTrigger(service string) {
	m.extractionTriggersTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
