package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ratingProcessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "trustmod_rating_duration_sec",
	Help: "Total duration of rating pipeline processing",
}, []string{"platform"})

var ratingProcessCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustmod_ratings_processed",
	Help: "Number of ratings processed",
}, []string{"platform"})

var ratingErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustmod_rating_errors",
	Help: "Number of ratings which failed processing",
}, []string{"type"})

var ratingAppliedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustmod_ratings_applied",
	Help: "Number of ratings folded into platform aggregates",
}, []string{"platform", "polarity"})

var rateLimitedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustmod_ratings_rate_limited",
	Help: "Number of ratings rejected by the per-device daily ceiling",
})

var commitRetryCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustmod_commit_retries",
	Help: "Number of retried rating commit transactions",
})

var reviewQueuedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustmod_review_queued",
	Help: "Number of new manual-review entries",
})

var reviewQueueErrorCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustmod_review_queue_errors",
	Help: "Number of failed writes to the manual-review queue",
})

var forwardCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustmod_forwarded",
	Help: "Side-channel deliveries, by channel and result",
}, []string{"channel", "result"})
