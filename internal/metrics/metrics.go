// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContactsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialer_contacts_dispatched_total",
		Help: "Contacts claimed and pushed to the dial queue.",
	})

	DialsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialer_dials_admitted_total",
		Help: "Dial attempts admitted by the CPS limiter.",
	})

	DialsRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialer_dials_rate_limited_total",
		Help: "Dial attempts denied by the CPS limiter.",
	})

	RateStoreFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialer_rate_store_failures_total",
		Help: "Rate-counter store errors that caused a fail-open admit.",
	})

	DialFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialer_dial_failures_total",
		Help: "Dial commands rejected or timed out by the telephony adapter.",
	})

	ContactsReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dialer_contacts_reclaimed_total",
		Help: "Stale in-progress contacts forced to failed by the monitor.",
	})

	AdmissionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialer_admission_rejected_total",
		Help: "Campaign activations rejected by admission control.",
	}, []string{"resource_class"})

	CampaignsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dialer_campaigns_completed_total",
		Help: "Campaigns transitioned to completed, by reason.",
	}, []string{"reason"})
)
