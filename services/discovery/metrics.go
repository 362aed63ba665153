package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodisco_submissions_total",
		Help: "Discovery submissions accepted.",
	})

	dispatchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodisco_dispatch_failures_total",
		Help: "Dispatch attempts that exhausted the gateway's retry budget.",
	})

	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodisco_completions_total",
		Help: "Completion reports applied, by outcome.",
	}, []string{"outcome"})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prodisco_notifications_total",
		Help: "Completion webhook deliveries, by outcome.",
	}, []string{"outcome"})

	sweepExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodisco_sweep_expired_total",
		Help: "Discoveries marked expired by the sweeper.",
	})

	sweepReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prodisco_sweep_reclaimed_total",
		Help: "Expired discoveries whose artifacts were reclaimed.",
	})
)
