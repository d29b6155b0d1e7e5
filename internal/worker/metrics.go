package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Segment results
const (
	resultDubbed   = "dubbed"
	resultReverted = "reverted"
	resultSkipped  = "skipped"
)

var (
	// segmentsTotal counts fabrication attempts by outcome.
	segmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabricator",
		Name:      "segments_total",
		Help:      "Segment fabrication attempts by result",
	}, []string{"result"})

	craftDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fabricator",
		Name:      "craft_duration_seconds",
		Help:      "Time spent crafting one segment",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	segmentReverts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fabricator",
		Name:      "segment_reverts_total",
		Help:      "Segments reverted to Planned after a failed craft or dub",
	})

	// choicesTotal counts committed choices by program type.
	choicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fabricator",
		Name:      "choices_total",
		Help:      "Segment choices committed by program type",
	}, []string{"type"})
)
