// Package metrics Prometheus 指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideagraph_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ideagraph_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// QueueLatency 入队到处理完成的耗时，queue = replicator | dispatcher | fanout
	QueueLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ideagraph_queue_latency_seconds",
			Help:    "Time from enqueue to completion for background jobs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"queue"},
	)

	QueueDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideagraph_queue_dropped_total",
			Help: "Jobs dropped because a queue was full",
		},
		[]string{"queue"},
	)

	PushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideagraph_push_total",
			Help: "Push deliveries by result",
		},
		[]string{"result"},
	)

	FanoutNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ideagraph_fanout_notifications_total",
			Help: "new_idea notifications written by the fanout worker",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ideagraph_cache_lookups_total",
			Help: "Cache lookups by cache and result",
		},
		[]string{"cache", "result"},
	)
)
