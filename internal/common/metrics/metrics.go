package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_proxy_requests_total",
			Help: "Total number of requests relayed to the backend",
		},
		[]string{"route", "status"},
	)

	ProxyRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "portal_proxy_request_duration_seconds",
			Help: "Duration of proxied backend requests in seconds",
		},
		[]string{"route"},
	)

	WizardStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_wizard_steps_total",
			Help: "Total number of wizard step transitions",
		},
		[]string{"step", "result"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_uploads_total",
			Help: "Total number of requirement file uploads",
		},
		[]string{"result"},
	)

	UploadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "portal_uploads_in_flight",
			Help: "Number of requirement uploads currently in flight",
		},
	)

	NotificationPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_notification_polls_total",
			Help: "Total number of notification-count polls",
		},
		[]string{"result"},
	)
)
