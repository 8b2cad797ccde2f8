package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mover_commands_total",
			Help: "Move commands ingested",
		},
		[]string{"outcome"}, // accepted|ignored|rejected
	)

	MovesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mover_moves_total",
			Help: "Moves reported via feedback",
		},
		[]string{"status"}, // success|failure
	)

	MoveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mover_move_duration_seconds",
			Help:    "Wall time from move start to completion",
			Buckets: prometheus.DefBuckets,
		},
	)

	PublishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mover_feedback_publish_failures_total",
			Help: "Feedback messages that could not be published",
		},
	)

	ObservedCommands = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mover_broker_observed_commands_total",
			Help: "Command publishes seen by the broker observer hook",
		},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(MovesTotal)
	prometheus.MustRegister(MoveDuration)
	prometheus.MustRegister(PublishFailures)
	prometheus.MustRegister(ObservedCommands)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}
