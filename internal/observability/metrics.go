package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "inspector",
		Name:      "api_request_duration_seconds",
		Help:      "Duration of requests to the analysis backend",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	UploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inspector",
		Name:      "upload_bytes_total",
		Help:      "Total number of media bytes sent to the backend",
	})

	PollTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspector",
		Name:      "poll_ticks_total",
		Help:      "Media status fetches issued by the orchestrator",
	}, []string{"outcome"})

	PollsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspector",
		Name:      "polls_finished_total",
		Help:      "Watches that reached a terminal state",
	}, []string{"state"})

	ChatQuestions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspector",
		Name:      "chat_questions_total",
		Help:      "Questions sent through chat sessions",
	}, []string{"outcome"})

	PageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "inspector",
		Name:      "page_renders_total",
		Help:      "Web UI pages rendered",
	}, []string{"page"})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "inspector",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a subscriber buffer was full",
	})
)
