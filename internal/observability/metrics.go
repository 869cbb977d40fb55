// README: Prometheus metrics shared by the HTTP layer and dispatch.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Admissions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "toda", Name: "booking_admissions_total", Help: "Booking requests by admission outcome"},
		[]string{"outcome"},
	)
	Transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "toda", Name: "booking_transitions_total", Help: "Booking lifecycle transitions by result"},
		[]string{"transition", "result"},
	)
	ChannelFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "toda", Name: "chat_channel_failures_total", Help: "Chat channels that could not be opened after acceptance"})
	ActiveStreams   = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "toda", Name: "active_booking_streams", Help: "Open websocket booking feeds"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "toda", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "toda",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
