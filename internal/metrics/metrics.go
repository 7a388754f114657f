package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AggregateCreatedTotal tracks created quizzes and polls by kind
	AggregateCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzie_aggregate_created_total",
			Help: "Total number of quizzes and polls created, by kind",
		},
		[]string{"kind"},
	)

	// StatsBatchTotal tracks applied stats batches by kind
	StatsBatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzie_stats_batch_total",
			Help: "Total number of stats batches persisted, by kind",
		},
		[]string{"kind"},
	)

	// StatsResultSkippedTotal tracks results dropped because the question id or option index was unknown
	StatsResultSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzie_stats_result_skipped_total",
			Help: "Total number of stats results skipped, by kind",
		},
		[]string{"kind"},
	)

	// ImpressionTotal tracks impression increments by kind
	ImpressionTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzie_impression_total",
			Help: "Total number of impressions recorded, by kind",
		},
		[]string{"kind"},
	)

	// LoginTotal tracks the total number of user logins
	LoginTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizzie_login_total",
			Help: "Total number of user logins",
		},
	)

	// RegistrationTotal tracks the total number of user registrations
	RegistrationTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quizzie_registration_total",
			Help: "Total number of user registrations",
		},
	)

	// CleanupJobTotal tracks image cleanup jobs by outcome (done, retried, dead)
	CleanupJobTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quizzie_image_cleanup_job_total",
			Help: "Total number of image cleanup jobs by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordAggregateCreated records a created quiz or poll
func RecordAggregateCreated(kind string) {
	AggregateCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordStatsBatch records a persisted stats batch and the number of skipped results
func RecordStatsBatch(kind string, skipped int) {
	StatsBatchTotal.WithLabelValues(kind).Inc()
	if skipped > 0 {
		StatsResultSkippedTotal.WithLabelValues(kind).Add(float64(skipped))
	}
}

// RecordImpression records an impression increment
func RecordImpression(kind string) {
	ImpressionTotal.WithLabelValues(kind).Inc()
}

// RecordLogin records a user login
func RecordLogin() {
	LoginTotal.Inc()
}

// RecordRegistration records a user registration
func RecordRegistration() {
	RegistrationTotal.Inc()
}

// RecordCleanupJob records an image cleanup job outcome
func RecordCleanupJob(outcome string) {
	CleanupJobTotal.WithLabelValues(outcome).Inc()
}
