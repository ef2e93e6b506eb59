package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchBatchesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "axis_dispatch",
			Name:      "batches_total",
			Help:      "Total aggregator batch submissions.",
		},
		[]string{"outcome"}, // "accepted" or "rejected"
	)

	dispatchRecipientsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "axis_dispatch",
			Name:      "recipients_total",
			Help:      "Total recipient rows resolved.",
		},
		[]string{"state"}, // "sent" or "failed"
	)

	dispatchCampaignsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "axis_dispatch",
			Name:      "campaigns_total",
			Help:      "Total campaign runs by terminal status.",
		},
		[]string{"status"}, // "complete" or "partial"
	)

	aggregatorRequestDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "axis_dispatch",
			Name:      "aggregator_request_duration_seconds",
			Help:      "Duration of aggregator batch send calls.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	staleReleasedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "axis_dispatch",
			Name:      "stale_recipients_released_total",
			Help:      "Recipient rows reset to pending by the reconciliation sweep.",
		},
	)
)
