package databox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for databox generation.
var (
	generateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "databox_generate_total",
		Help: "Databox requests by outcome",
	}, []string{"outcome"})

	generateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "databox_generate_duration_seconds",
		Help:    "Time to serve a databox, including upstream calls on a miss",
		Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 3, 10, 30},
	})
)
