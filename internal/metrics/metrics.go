// Package metrics holds the Prometheus collectors of the pictures API.
// Collectors exist from package init so callers can record unconditionally;
// Register exposes them on the default registry.
package metrics

import (
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pictures_votes_total",
			Help: "Vote mutations, by requested polarity and resulting state.",
		},
		[]string{"polarity", "state"},
	)

	VoteConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pictures_vote_conflicts_total",
			Help: "Vote mutations that hit a concurrent-write conflict.",
		},
	)

	FeedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pictures_feed_requests_total",
			Help: "Personalised feed requests, by outcome.",
		},
		[]string{"outcome"},
	)

	FeedPageSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pictures_feed_page_size",
			Help:    "Number of pictures returned per feed page.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pictures_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pictures_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pictures_cache_hits_total",
			Help: "Total listing cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pictures_cache_misses_total",
			Help: "Total listing cache misses.",
		},
	)

	ScoreRefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pictures_score_refresh_duration_seconds",
			Help:    "Duration of a full popularity score refresh pass.",
			Buckets: prometheus.DefBuckets,
		},
	)

	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pictures_vote_events_total",
			Help: "Vote events handed to the broker, by result.",
		},
		[]string{"result"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pictures_rate_limited_total",
			Help: "Requests rejected by a route rate limiter, by route class.",
		},
		[]string{"route"},
	)
)

var registerOnce sync.Once

// Register adds all collectors to the default registry, plus pool gauges when
// pool is non-nil. Safe to call more than once.
func Register(pool *pgxpool.Pool) {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			VotesTotal,
			VoteConflicts,
			FeedRequests,
			FeedPageSize,
			RequestDuration,
			RequestsInFlight,
			CacheHits,
			CacheMisses,
			ScoreRefreshDuration,
			EventsPublished,
			RateLimited,
		)

		if pool == nil {
			return
		}
		prometheus.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "pictures_db_connection_pool_active",
					Help: "Number of active database connections.",
				},
				func() float64 { return float64(pool.Stat().AcquiredConns()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "pictures_db_connection_pool_idle",
					Help: "Number of idle database connections.",
				},
				func() float64 { return float64(pool.Stat().IdleConns()) },
			),
		)
	})
}
