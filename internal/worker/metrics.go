package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dnaTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plotforge_dna_tasks_total",
			Help: "Total number of processed DNA extraction tasks by outcome.",
		},
		[]string{"status"}, // ok, fallback, skipped, error, dead_letter
	)

	dnaExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "plotforge_dna_extraction_duration_seconds",
			Help:    "Duration of DNA extraction including the AI call.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
