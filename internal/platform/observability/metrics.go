package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navigator_session_queue_depth",
		Help: "Number of operations waiting on the shared session queue",
	})

	SessionActiveOps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navigator_session_active_ops",
		Help: "Number of operations currently executing on the shared session (0 or 1)",
	})

	SessionReauthsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_session_reauths_total",
		Help: "Total number of re-authentication attempts on the shared session",
	}, []string{"result"})

	SearchQueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_search_queries_total",
		Help: "Total number of keyword search queries issued",
	}, []string{"source", "status"})

	SearchQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "navigator_search_query_duration_seconds",
		Help:    "Duration of keyword search queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	EntitiesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_entities_discovered_total",
		Help: "Total number of entity sightings by outcome",
	}, []string{"outcome"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navigator_detail_cache_hits_total",
		Help: "Total number of detail cache hits within the freshness window",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navigator_detail_cache_misses_total",
		Help: "Total number of detail cache misses (stale or never fetched)",
	})

	DetailFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigator_detail_fetch_duration_seconds",
		Help:    "Duration of individual detail fetches",
		Buckets: prometheus.DefBuckets,
	})

	DetailFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_detail_fetches_total",
		Help: "Total number of detail fetches by result",
	}, []string{"result"})

	FetcherWorkersActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "navigator_fetcher_workers_active",
		Help: "Number of detail-fetch workers currently running",
	})

	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_jobs_total",
		Help: "Total number of acquisition jobs by outcome",
	}, []string{"outcome"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "navigator_job_duration_seconds",
		Help:    "End-to-end duration of acquisition jobs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
	})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigator_embedding_requests_total",
		Help: "Total number of embedding requests",
	}, []string{"provider", "status"})

	StatusEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "navigator_status_events_dropped_total",
		Help: "Total number of progress events dropped because the bus was full",
	})
)
