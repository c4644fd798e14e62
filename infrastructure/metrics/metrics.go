// Package metrics exposes Prometheus collectors for extension calls, the
// price feeder and the host HTTP surface.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/hostfuncs"
)

const namespace = "reglet_oracle"

// Metrics holds the collectors of one host process.
type Metrics struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	feederRuns     *prometheus.CounterVec
	feederDuration prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "extension",
				Name:      "calls_total",
				Help:      "Total number of dispatched extension calls by operation and status code.",
			},
			[]string{"operation", "status"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "extension",
				Name:      "call_duration_seconds",
				Help:      "Duration of extension call handlers.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
			},
			[]string{"operation"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "extension",
				Name:      "inflight_calls",
				Help:      "Current number of extension calls being handled.",
			},
		),
		feederRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "feeder",
				Name:      "runs_total",
				Help:      "Total number of price feeder runs.",
			},
			[]string{"success"},
		),
		feederDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "feeder",
				Name:      "run_duration_seconds",
				Help:      "Duration of price feeder runs.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "path"},
		),
	}

	m.registry.MustRegister(
		m.calls,
		m.callDuration,
		m.inFlight,
		m.feederRuns,
		m.feederDuration,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware returns a dispatcher middleware counting calls by operation and
// the status code the dispatcher will report.
func (m *Metrics) Middleware() hostfuncs.Middleware {
	return func(next hostfuncs.OperationHandler) hostfuncs.OperationHandler {
		return func(ctx context.Context, input []byte) ([]byte, error) {
			op, v := "unknown", entities.DefaultProtocol
			if hc, ok := ctx.(hostfuncs.HostContext); ok {
				op, v = hc.OperationName(), hc.Version()
			}

			m.inFlight.Inc()
			defer m.inFlight.Dec()

			start := time.Now()
			out, err := next(ctx, input)
			m.callDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

			status := domainerrors.StatusFor(v, err)
			m.calls.WithLabelValues(op, strconv.FormatUint(uint64(status), 10)).Inc()
			return out, err
		}
	}
}

// ObserveFeederRun records one feeder run.
func (m *Metrics) ObserveFeederRun(d time.Duration, err error) {
	m.feederRuns.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
	m.feederDuration.Observe(d.Seconds())
}

// InstrumentHandler wraps next with HTTP metrics collection.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// canonicalPath keeps the first path segment so storage lookups do not
// create one series per key.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	first, _, _ := strings.Cut(trimmed, "/")
	return "/" + first
}
