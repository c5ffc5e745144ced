package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ActionsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_actions_applied_total",
	Help: "Number of moderation actions applied",
}, []string{"action_type"})

var ActionsReversed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_actions_reversed_total",
	Help: "Number of moderation actions reversed",
})

var ReversalConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_reversal_conflicts_total",
	Help: "Number of reversal attempts on already reversed actions",
})

var ReportsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_reports_reviewed_total",
	Help: "Number of reports reviewed, by resulting status",
}, []string{"status"})

var LogFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "moderation_log_fetch_duration_seconds",
	Help:    "Time spent fetching filtered moderation logs",
	Buckets: prometheus.DefBuckets,
})

var ExportRows = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_export_rows_total",
	Help: "Number of action rows written to CSV exports",
})

var StaleLogResponses = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moderation_stale_log_responses_total",
	Help: "Number of live log responses dropped because a newer request was issued",
})

var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_cache_lookups_total",
	Help: "Cache lookups by cache name and result",
}, []string{"name", "result"})

var NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moderation_notifications_total",
	Help: "Telegram notices sent to users, by outcome",
}, []string{"outcome"})
