package services

import "github.com/prometheus/client_golang/prometheus"

var (
	challengeCompletions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "challenge_completions_total",
			Help: "Total number of challenge completions dispatched",
		},
	)
	badgesGranted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "badges_granted_total",
			Help: "Total number of badges granted to users",
		},
	)
	recalculations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "progress_recalculations_total",
			Help: "Total number of full progress recalculations",
		},
	)
)

// InitMetrics registers the engine metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(challengeCompletions)
	prometheus.MustRegister(badgesGranted)
	prometheus.MustRegister(recalculations)
}
