package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Dispatch metrics
	SkillDispatches *prometheus.CounterVec
	SkillFailures   *prometheus.CounterVec
	DispatchLatency prometheus.Histogram

	// Calendar metrics
	CalendarEvents    prometheus.Counter
	TokenRefreshes    *prometheus.CounterVec // result: "success" or "failure"
	AuthURLsIssued    prometheus.Counter
	CompletionLatency prometheus.Histogram
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		SkillDispatches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillchat_skill_dispatches_total",
			Help: "Total number of dispatched messages by skill",
		}, []string{"skill_id"}),

		SkillFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillchat_skill_failures_total",
			Help: "Total number of skill execution failures by skill",
		}, []string{"skill_id"}),

		DispatchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillchat_dispatch_duration_seconds",
			Help:    "Dispatch latency in seconds, including skill execution",
			Buckets: []float64{0.005, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		CalendarEvents: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchat_calendar_events_created_total",
			Help: "Total number of calendar events created",
		}),

		TokenRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "skillchat_token_refreshes_total",
			Help: "Total number of OAuth token refresh exchanges by result",
		}, []string{"result"}),

		AuthURLsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "skillchat_auth_urls_issued_total",
			Help: "Total number of authorization URLs issued",
		}),

		CompletionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "skillchat_completion_duration_seconds",
			Help:    "Conversational fallback completion latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil before InitMetrics)
func GetMetrics() *Metrics {
	return globalMetrics
}
