package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppiankov/unearth/internal/model"
)

// Metrics holds the service collectors on a private registry, so several
// instances can coexist in one process (tests, embedded servers)
type Metrics struct {
	registry *prometheus.Registry

	storeLookups  *prometheus.CounterVec
	analyses      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	resolverTiers *prometheus.CounterVec
	degraded      prometheus.Counter
	mediaFetches  *prometheus.CounterVec
	votes         *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

// New registers every collector plus the Go and process collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unearth_store_lookups_total",
			Help: "Content-addressed store lookups by result.",
		}, []string{"result"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unearth_analyses_total",
			Help: "Analysis submissions by content kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unearth_analysis_duration_seconds",
			Help:    "Submission latency by content kind.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
		resolverTiers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unearth_resolver_tier_total",
			Help: "Resolution strategy attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		degraded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unearth_resolver_degraded_total",
			Help: "Artifacts analyzed by URL only after every resolution strategy failed.",
		}),
		mediaFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unearth_media_fetches_total",
			Help: "Privileged media fetches by outcome.",
		}, []string{"outcome"}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unearth_votes_total",
			Help: "Recorded community votes by direction.",
		}, []string{"direction"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unearth_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeLookups, m.analyses, m.duration, m.resolverTiers,
		m.degraded, m.mediaFetches, m.votes, m.httpRequests,
	)
	return m
}

// Handler serves the scrape endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StoreLookup counts a hit or a miss
func (m *Metrics) StoreLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.storeLookups.WithLabelValues(result).Inc()
}

// Analysis records one submission outcome and its latency
func (m *Metrics) Analysis(kind model.ContentKind, outcome string, elapsed time.Duration) {
	m.analyses.WithLabelValues(string(kind), outcome).Inc()
	m.duration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ResolverStep records one strategy attempt
func (m *Metrics) ResolverStep(strategy, outcome string) {
	m.resolverTiers.WithLabelValues(strategy, outcome).Inc()
}

// Degraded counts a URL-only analysis after resolution was exhausted
func (m *Metrics) Degraded() {
	m.degraded.Inc()
}

// MediaFetch records a privileged fetch outcome
func (m *Metrics) MediaFetch(outcome string) {
	m.mediaFetches.WithLabelValues(outcome).Inc()
}

// Vote counts one recorded vote
func (m *Metrics) Vote(dir model.VoteDirection) {
	m.votes.WithLabelValues(string(dir)).Inc()
}

// HTTPRequest counts one served request
func (m *Metrics) HTTPRequest(route string, code int) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
