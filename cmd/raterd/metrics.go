package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fakeSubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "raterd_fake_submit_duration_seconds",
	Help:    "Round-trip time of synthetic rating submissions",
	Buckets: prometheus.DefBuckets,
})
