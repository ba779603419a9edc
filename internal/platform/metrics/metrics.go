package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the lifecycle engine.
type Metrics struct {
	RegistrationsCreated     prometheus.Counter
	RegistrationsReactivated prometheus.Counter
	RegistrationsCancelled   prometheus.Counter
	RegistrationsRejected    *prometheus.CounterVec

	DeletionsScheduled prometheus.Counter
	AccountsErased     prometheus.Counter
	ErasureFailures    prometheus.Counter
	SweepDuration      prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convene_registrations_created_total",
			Help: "Total registrations admitted, fresh rows only.",
		}),
		RegistrationsReactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convene_registrations_reactivated_total",
			Help: "Total cancelled registrations reactivated for the same pairing.",
		}),
		RegistrationsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convene_registrations_cancelled_total",
			Help: "Total registrations cancelled.",
		}),
		RegistrationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "convene_registrations_rejected_total",
			Help: "Registration attempts rejected, by precondition.",
		}, []string{"reason"}),

		DeletionsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convene_deletions_scheduled_total",
			Help: "Total accounts blocked and scheduled for deferred erasure.",
		}),
		AccountsErased: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convene_accounts_erased_total",
			Help: "Total accounts archived and erased.",
		}),
		ErasureFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "convene_erasure_failures_total",
			Help: "Per-account erasure failures; the account stays pending for the next run.",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "convene_sweep_duration_seconds",
			Help:    "Wall time of one full deletion sweep.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
