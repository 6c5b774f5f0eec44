package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of workflow catalog requests by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Duration of workflow catalog requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CatalogCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Template listing cache lookups by result",
		},
		[]string{"result"},
	)

	SubmissionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_transitions_total",
			Help: "Submission dialog state transitions",
		},
		[]string{"from", "to"},
	)

	SubmissionRejectedCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_rejected_calls_total",
			Help: "Dialog calls ignored because the current state does not allow them",
		},
		[]string{"operation", "state"},
	)

	SubmissionPrompts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_prompts_total",
			Help: "Confirmation prompts raised before dispatch, by reason",
		},
		[]string{"reason"},
	)

	SubmissionDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_dispatch_total",
			Help: "Workflow execution dispatches by outcome",
		},
		[]string{"outcome"},
	)

	OpenDialogs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "submission_open_dialogs",
			Help: "Number of dialogs currently held by the HTTP host",
		},
	)
)
