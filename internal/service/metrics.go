package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes used as metric labels and span attributes.
const (
	outcomeSuccess      = "success"
	outcomeRejected     = "rejected"
	outcomeInvalid      = "invalid"
	outcomeUploadFailed = "upload_failed"
	outcomeRemoteFailed = "remote_failed"
	outcomePanic        = "panic"
	outcomeError        = "error"
)

var (
	reviewSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "review",
			Name:      "submissions_total",
			Help:      "Total number of review submissions by outcome",
		},
		[]string{"outcome"},
	)

	reviewSubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "review",
			Name:      "submission_duration_seconds",
			Help:      "Duration of review submissions in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	reviewTotalScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "review",
			Name:      "total_score",
			Help:      "Distribution of submitted review scores",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		},
	)

	feedLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "review",
			Name:      "feed_loads_total",
			Help:      "Total number of testimonial feed loads by resulting state",
		},
		[]string{"state"},
	)
)
