// Package metrics exposes Prometheus counters and histograms for
// selection calls, feedback events, and rating updates. Grounded on
// Shannon's internal/policy/metrics.go: package-level promauto vectors
// registered against the default registry, with small Record* helper
// functions rather than a struct callers must thread through.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_selections_total",
			Help: "Total number of selection calls, by whether the tag prefilter matched.",
		},
		[]string{"prefilter"},
	)

	selectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "memory_selection_duration_seconds",
			Help:    "Time spent running a selection call end to end.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"kernel_id"},
	)

	feedbackEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_feedback_events_total",
			Help: "Total number of feedback events applied, by reward sign.",
		},
		[]string{"reward"},
	)

	ratingUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "memory_rating_updates_total",
			Help: "Total number of Bayesian rating posterior updates.",
		},
		[]string{"kernel_id"},
	)
)

// RecordSelection records one completed selection call.
func RecordSelection(kernelID string, prefilterMatched bool, durationSeconds float64) {
	label := "matched"
	if !prefilterMatched {
		label = "fallback"
	}
	selectionsTotal.WithLabelValues(label).Inc()
	selectionDuration.WithLabelValues(kernelID).Observe(durationSeconds)
}

// RecordFeedback records one applied feedback event.
func RecordFeedback(reward int) {
	label := "zero"
	switch {
	case reward > 0:
		label = "positive"
	case reward < 0:
		label = "negative"
	}
	feedbackEventsTotal.WithLabelValues(label).Inc()
}

// RecordRatingUpdate records one posterior update for kernelID.
func RecordRatingUpdate(kernelID string) {
	ratingUpdatesTotal.WithLabelValues(kernelID).Inc()
}
