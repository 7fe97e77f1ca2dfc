package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventradar"

// Recorder owns the Prometheus collectors for the service. A nil Recorder is
// valid and records nothing, which keeps tests free of registry plumbing.
type Recorder struct {
	registry       *prometheus.Registry
	cacheLookups   *prometheus.CounterVec
	fetches        *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	cacheWrites    *prometheus.CounterVec
	streamMessages *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Category shard lookups by outcome.",
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_fetches_total",
			Help:      "External category fetches by outcome.",
		}, []string{"outcome"}),
		fetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_fetch_duration_seconds",
			Help:      "Latency of external category fetches.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 45, 90},
		}, []string{"outcome"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Shard and day bucket writes by target and outcome.",
		}, []string{"target", "outcome"}),
		streamMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Progressive search messages emitted by type.",
		}, []string{"type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(r.cacheLookups, r.fetches, r.fetchLatency, r.cacheWrites, r.streamMessages, r.httpRequests, r.httpLatency)
	return r
}

// Handler exposes the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// CacheLookup counts shard lookups; hits and misses are recorded separately.
func (r *Recorder) CacheLookup(hits, misses int) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	r.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// CacheLookupFailed counts lookups that errored and were treated as misses.
func (r *Recorder) CacheLookupFailed() {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues("error").Inc()
}

// UpstreamFetch records one category fetch against the source gateway.
func (r *Recorder) UpstreamFetch(duration time.Duration, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.fetches.WithLabelValues(outcome).Inc()
	r.fetchLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// CacheWrite records a best-effort write to a shard ("shard") or day bucket ("day_bucket").
func (r *Recorder) CacheWrite(target string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.cacheWrites.WithLabelValues(target, outcome).Inc()
}

// StreamMessage counts progressive messages by type.
func (r *Recorder) StreamMessage(kind string) {
	if r == nil {
		return
	}
	r.streamMessages.WithLabelValues(kind).Inc()
}

// HTTPRequest tracks basic HTTP metrics.
func (r *Recorder) HTTPRequest(method, route string, status int, duration time.Duration) {
	if r == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}
