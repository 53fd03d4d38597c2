package judge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var judgeCallCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "judge_calls",
	Help: "Judge service calls, by result",
}, []string{"result"})

var judgeCallDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name: "judge_call_duration_sec",
	Help: "Duration of judge service calls",
})
