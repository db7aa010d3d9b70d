package profileapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "profileapi_requests_total",
			Help: "Total number of profile API requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "profileapi_request_duration_seconds",
			Help:    "Duration of profile API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)
