package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/aviarycare/internal/model"
)

const namespace = "aviarycare"

// Prom holds every collector on a private registry.
type Prom struct {
	reg *prometheus.Registry

	Fetches       *prometheus.CounterVec
	LastValue     *prometheus.GaugeVec
	Refreshes     prometheus.Counter
	Pulses        prometheus.Counter
	StreamClients prometheus.Gauge
	StreamDropped prometheus.Counter

	Requests     *prometheus.CounterVec
	QueryLatency *prometheus.HistogramVec
}

// NewProm creates and registers all collectors.
func NewProm() *Prom {
	reg := prometheus.NewRegistry()
	p := &Prom{
		reg: reg,
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_fetches_total",
			Help:      "Widget metric fetches by metric and result",
		}, []string{"metric", "result"}),
		LastValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "widget_last_value",
			Help:      "Last successfully fetched value per metric",
		}, []string{"metric"}),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_refresh_triggers_total",
			Help:      "Off-schedule subscription refreshes",
		}),
		Pulses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "widget_pulses_total",
			Help:      "Subscription card change pulses",
		}),
		StreamClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Connected snapshot stream clients",
		}),
		StreamDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_clients_dropped_total",
			Help:      "Stream clients disconnected for write errors or slowness",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"endpoint", "status"}),
		QueryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "metricsd_query_seconds",
			Help:      "Backend count query latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
	}
	reg.MustRegister(
		p.Fetches, p.LastValue, p.Refreshes, p.Pulses,
		p.StreamClients, p.StreamDropped,
		p.Requests, p.QueryLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Handler serves the registry in Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests.
func (p *Prom) Registry() *prometheus.Registry { return p.reg }

// FetchSucceeded records a successful widget fetch.
func (p *Prom) FetchSucceeded(key model.MetricKey, value int64) {
	p.Fetches.WithLabelValues(string(key), "ok").Inc()
	p.LastValue.WithLabelValues(string(key)).Set(float64(value))
}

// FetchFailed records a failed widget fetch.
func (p *Prom) FetchFailed(key model.MetricKey) {
	p.Fetches.WithLabelValues(string(key), "error").Inc()
}

// RefreshTriggered records an off-schedule refresh.
func (p *Prom) RefreshTriggered() { p.Refreshes.Inc() }

// Pulsed records a subscriptions card pulse.
func (p *Prom) Pulsed() { p.Pulses.Inc() }

// ClientConnected records a new stream client.
func (p *Prom) ClientConnected() { p.StreamClients.Inc() }

// ClientDisconnected records a stream client leaving. dropped is true when the
// connection failed instead of closing cleanly.
func (p *Prom) ClientDisconnected(dropped bool) {
	p.StreamClients.Dec()
	if dropped {
		p.StreamDropped.Inc()
	}
}

// RequestServed records an HTTP response for a route.
func (p *Prom) RequestServed(endpoint string, status int) {
	p.Requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

// QueryObserved records a count query duration.
func (p *Prom) QueryObserved(query string, d time.Duration) {
	p.QueryLatency.WithLabelValues(query).Observe(d.Seconds())
}
