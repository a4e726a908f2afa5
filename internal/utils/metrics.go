package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks the counters the feed pipeline cares about. Cache
// corruptions in particular are a first-class signal: a non-zero value means
// a decorated payload reached the page cache and was self-healed.
type Metrics struct {
	FeedRequests           *prometheus.CounterVec
	PageCacheHits          prometheus.Counter
	PageCacheMisses        prometheus.Counter
	PageCacheCorruptions   prometheus.Counter
	SnapshotRebuilds       prometheus.Counter
	ScoreRecomputeFailures prometheus.Counter
	RequestDuration        *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FeedRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Feed page requests by variant.",
		}, []string{"variant"}),
		PageCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_page_cache_hits_total",
			Help: "Feed page cache hits that passed shape validation.",
		}),
		PageCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_page_cache_misses_total",
			Help: "Feed page cache misses, including degraded cache reads.",
		}),
		PageCacheCorruptions: factory.NewCounter(prometheus.CounterOpts{
			Name: "feed_page_cache_corruptions_total",
			Help: "Cache entries found in decorated shape and self-healed.",
		}),
		SnapshotRebuilds: factory.NewCounter(prometheus.CounterOpts{
			Name: "relationship_snapshot_rebuilds_total",
			Help: "Relationship snapshots rebuilt from the user record.",
		}),
		ScoreRecomputeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "engagement_score_recompute_failures_total",
			Help: "Best-effort score recomputes that failed after a mutation.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "feed_request_duration_seconds",
			Help:    "End-to-end feed request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),
	}
}
