// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clonerp",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code.",
	}, []string{"route", "code"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clonerp",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clonerp",
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	Registrations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clonerp",
		Name:      "registrations_total",
		Help:      "Accounts created.",
	})

	TopicsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clonerp",
		Name:      "topics_created_total",
		Help:      "Topics created.",
	})

	TopicViews = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clonerp",
		Name:      "topic_views_total",
		Help:      "Topic page views.",
	})

	RequestLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "clonerp",
		Name:      "request_log_failures_total",
		Help:      "Request log entries that could not be persisted.",
	})
)
