package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watchwherelive"

// Run results
const (
	ResultOK          = "ok"
	ResultFetchFailed = "fetch_failed"
	ResultPartial     = "partial" // some records failed to store
)

// Game outcomes within a run
const (
	OutcomeCreated      = "created"
	OutcomeUpdated      = "updated"
	OutcomeUnchanged    = "unchanged"
	OutcomeSkipped      = "skipped"
	OutcomeStoreFailure = "store_failure"
)

// Recorder holds the process metrics. A nil *Recorder discards everything.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	games         *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	lastSuccess   *prometheus.GaugeVec
	queueSize     *prometheus.GaugeVec
	rulesApplied  prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDurations *prometheus.HistogramVec
}

// New creates a Recorder on its own registry, with Go runtime and process collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auto := promauto.With(reg)
	return &Recorder{
		registry: reg,
		runs: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "runs_total",
			Help:      "Scrape runs by league and result",
		}, []string{"league", "result"}),
		games: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "games_total",
			Help:      "Games processed by league and outcome",
		}, []string{"league", "outcome"}),
		runDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one league run, fetch included",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"league"}),
		lastSuccess: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scrape",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run without a fetch failure",
		}, []string{"league"}),
		queueSize: auto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "curation",
			Name:      "queue_size",
			Help:      "Unvalidated games returned by the last queue read",
		}, []string{"sport"}),
		rulesApplied: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "curation",
			Name:      "rule_applications_total",
			Help:      "Regional mappings written to games by saved DMA rules",
		}),
		httpRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDurations: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordRun counts one finished league run
func (r *Recorder) RecordRun(league, result string, took time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(league, result).Inc()
	r.runDuration.WithLabelValues(league).Observe(took.Seconds())
	if result != ResultFetchFailed {
		r.lastSuccess.WithLabelValues(league).SetToCurrentTime()
	}
}

// AddGames adds n games with the given outcome
func (r *Recorder) AddGames(league, outcome string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.games.WithLabelValues(league, outcome).Add(float64(n))
}

// SetQueueSize records how many unvalidated games a sport has pending
func (r *Recorder) SetQueueSize(sport string, n int) {
	if r == nil {
		return
	}
	r.queueSize.WithLabelValues(sport).Set(float64(n))
}

// AddRuleApplications counts games touched by a saved rule
func (r *Recorder) AddRuleApplications(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.rulesApplied.Add(float64(n))
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(method, route string, status int, took time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDurations.WithLabelValues(method, route).Observe(took.Seconds())
}
