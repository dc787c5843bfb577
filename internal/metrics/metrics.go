package metrics

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shortstrend"

// Metrics holds the Prometheus collectors of the pipelines and the HTTP API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PipelineRuns       *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	Videos             *prometheus.CounterVec
	ExtractionBatches  *prometheus.CounterVec
	ChannelAnalyses    *prometheus.CounterVec
	ChannelsCleaned    prometheus.Counter
	RankingsStored     prometheus.Counter
	CacheLookups       *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestsInFlight   prometheus.Gauge
	WorkerQueueDepth   prometheus.Gauge
	WorkerJobsRejected prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		PipelineRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_runs_total",
			Help:      "Video collection runs, by result.",
		}, []string{"result"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_stage_duration_seconds",
			Help:      "Duration of each collection stage.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"stage"}),
		Videos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "videos_total",
			Help:      "Videos seen by the collection pipeline, by outcome.",
		}, []string{"outcome"}),
		ExtractionBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyword_extraction_batches_total",
			Help:      "Keyword extraction batches, by result.",
		}, []string{"result"}),
		ChannelAnalyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_analyses_total",
			Help:      "Background channel analyses, by result.",
		}, []string{"result"}),
		ChannelsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channels_cleaned_total",
			Help:      "Abandoned incomplete channels deleted by the cleanup sweep.",
		}),
		RankingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keyword_rankings_stored_total",
			Help:      "Keyword ranking rows written.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_cache_lookups_total",
			Help:      "Ranking cache lookups, by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds, by route, method and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		RequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
		WorkerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_queue_depth",
			Help:      "Jobs waiting in the background worker queue.",
		}),
		WorkerJobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_jobs_rejected_total",
			Help:      "Jobs rejected because the worker queue was full.",
		}),
	}

	reg.MustRegister(
		m.PipelineRuns,
		m.StageDuration,
		m.Videos,
		m.ExtractionBatches,
		m.ChannelAnalyses,
		m.ChannelsCleaned,
		m.RankingsStored,
		m.CacheLookups,
		m.RequestDuration,
		m.RequestsInFlight,
		m.WorkerQueueDepth,
		m.WorkerJobsRejected,
	)
	return m
}

// RegisterPool exposes live pgxpool statistics
func (m *Metrics) RegisterPool(pool *pgxpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_acquired",
			Help:      "Database connections currently in use.",
		}, func() float64 { return float64(pool.Stat().AcquiredConns()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Idle database connections.",
		}, func() float64 { return float64(pool.Stat().IdleConns()) }),
	)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveStage records how long a collection stage took
func (m *Metrics) ObserveStage(stage string, started time.Time) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// CountRun records the outcome of one collection run
func (m *Metrics) CountRun(err error) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(result(err)).Inc()
}

// AddVideos increments the video counter for an outcome such as persisted or failed
func (m *Metrics) AddVideos(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Videos.WithLabelValues(outcome).Add(float64(n))
}

// CountExtraction records the outcome of one extraction batch
func (m *Metrics) CountExtraction(err error) {
	if m == nil {
		return
	}
	m.ExtractionBatches.WithLabelValues(result(err)).Inc()
}

// CountChannelAnalysis records the outcome of one background channel analysis
func (m *Metrics) CountChannelAnalysis(err error) {
	if m == nil {
		return
	}
	m.ChannelAnalyses.WithLabelValues(result(err)).Inc()
}

// AddChannelsCleaned records rows removed by the cleanup sweep
func (m *Metrics) AddChannelsCleaned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ChannelsCleaned.Add(float64(n))
}

// AddRankingsStored records ranking rows written
func (m *Metrics) AddRankingsStored(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.RankingsStored.Add(float64(n))
}

// CountCacheLookup records a ranking cache hit or miss
func (m *Metrics) CountCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.CacheLookups.WithLabelValues("miss").Inc()
}

// SetQueueDepth records the number of queued background jobs
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.WorkerQueueDepth.Set(float64(n))
}

// CountRejectedJob records a job refused by a full worker queue
func (m *Metrics) CountRejectedJob() {
	if m == nil {
		return
	}
	m.WorkerJobsRejected.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
