package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trending engine metrics
var (
	// RecomputeTriggers counts ScheduleRecompute calls by event source
	RecomputeTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_trending_recompute_triggers_total",
			Help: "Debounced recompute triggers by source event",
		},
		[]string{"source"},
	)

	// RecomputeJobs counts executed recompute jobs by outcome
	// (updated, unchanged, not_found, failed)
	RecomputeJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_trending_recompute_jobs_total",
			Help: "Executed recompute jobs by outcome",
		},
		[]string{"outcome"},
	)

	// RecomputeDuration tracks a single post recompute, retries included
	RecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forum_trending_recompute_duration_seconds",
			Help:    "Duration of one post recompute",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
	)

	// DebouncePending is the number of posts waiting in the debounce table
	DebouncePending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forum_trending_debounce_pending",
			Help: "Posts waiting in the debounce table",
		},
	)

	// DeadLetters counts jobs that exhausted their retries
	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_trending_dead_letters_total",
			Help: "Trending jobs that exhausted retries",
		},
		[]string{"job"},
	)
)

// Reconciliation sweep metrics
var (
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_trending_sweep_runs_total",
			Help: "Reconciliation sweeps by result",
		},
		[]string{"result"},
	)

	SweepPostsUpdated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forum_trending_sweep_posts_updated",
			Help: "Posts rewritten by the last sweep",
		},
	)

	SweepPostsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "forum_trending_sweep_posts_total",
			Help: "Posts visited by the last sweep",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forum_trending_sweep_duration_seconds",
			Help:    "Reconciliation sweep duration",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

// External services
var (
	// N8NRequests tracks calls to the n8n automation webhooks
	N8NRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_n8n_requests_total",
			Help: "n8n webhook calls by workflow and status",
		},
		[]string{"workflow", "status"},
	)

	// EventsPublished tracks score change events pushed to NATS
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_events_published_total",
			Help: "Events published by subject and status",
		},
		[]string{"subject", "status"},
	)

	// AlertsSent tracks operator alerts by channel and status
	AlertsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forum_operator_alerts_total",
			Help: "Operator alerts by channel and status",
		},
		[]string{"channel", "status"},
	)
)
