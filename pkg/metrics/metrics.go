// Package metrics holds the service's Prometheus collectors on a private
// registry and serves them at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marquee"

// Registry is the set of collectors the service records into.
type Registry struct {
	reg *prometheus.Registry

	// AskTotal counts chat requests by resolved intent and outcome.
	AskTotal *prometheus.CounterVec
	// AskDuration measures end-to-end chat latency by stage.
	AskDuration *prometheus.HistogramVec
	// NLUErrors counts failed NLU parses.
	NLUErrors prometheus.Counter
	// HTTPRequests counts HTTP requests by route pattern and status class.
	HTTPRequests *prometheus.CounterVec
	// HTTPDuration measures HTTP latency by route pattern.
	HTTPDuration *prometheus.HistogramVec
	// CatalogSize is the number of records loaded.
	CatalogSize prometheus.Gauge
	// WSConnections is the number of open websocket sessions.
	WSConnections prometheus.Gauge
	// BusRequests counts requests answered over NATS, by subject and outcome.
	BusRequests *prometheus.CounterVec
}

// New creates a Registry with Go runtime and process collectors attached.
func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Registry{
		reg: reg,
		AskTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ask_total",
			Help:      "Chat requests by intent and outcome.",
		}, []string{"intent", "outcome"}),
		AskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "Chat request latency by stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		NLUErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nlu_errors_total",
			Help:      "Failed NLU parses.",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		CatalogSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_records",
			Help:      "Movie records loaded into the catalog.",
		}),
		WSConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections",
			Help:      "Open websocket chat sessions.",
		}),
		BusRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_requests_total",
			Help:      "NATS requests by subject and outcome.",
		}, []string{"subject", "outcome"}),
	}
}

// ObserveStage records the time spent in one stage of a chat request.
func (r *Registry) ObserveStage(stage string, start time.Time) {
	r.AskDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
