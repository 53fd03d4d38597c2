package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var jobRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "trustmod_job_duration_sec",
	Help: "Duration of scheduled job runs",
}, []string{"job"})

var jobErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "trustmod_job_errors",
	Help: "Number of scheduled job runs which failed",
}, []string{"job"})

var retentionPurgedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "trustmod_retention_purged",
	Help: "Number of expired rate-limit counters deleted",
})
