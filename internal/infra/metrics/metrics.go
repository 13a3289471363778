// Package metrics provides Prometheus metrics for Blank.
// Counters, gauges and histograms for XP flow, logins, missions, the reward
// shop, persistence, the HTTP API and health checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "blank"

// ─── XP ─────────────────────────────────────────────────────────────────────

// XPAwarded tracks XP granted by source (login, streak_milestone, mission, manual).
var XPAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "xp_awarded_total",
	Help:      "Total XP awarded by source.",
}, []string{"source"})

// XPTotal tracks the lifetime XP of the served store.
var XPTotal = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "xp_total",
	Help:      "Lifetime XP earned.",
})

// XPBalance tracks the spendable XP balance.
var XPBalance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "xp_balance",
	Help:      "Spendable XP balance.",
})

// AchievementsUnlocked tracks achievement unlocks.
var AchievementsUnlocked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "achievements_unlocked_total",
	Help:      "Total achievements unlocked.",
})

// ─── Engagement ─────────────────────────────────────────────────────────────

// Logins tracks login calls by kind (first, consecutive, reset, repeat).
var Logins = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "logins_total",
	Help:      "Total recorded logins by kind.",
}, []string{"kind"})

// MissionsCompleted tracks daily mission completions.
var MissionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "missions_completed_total",
	Help:      "Total daily missions completed.",
}, []string{"mission"})

// DayRollovers tracks scheduled day boundary passes.
var DayRollovers = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "day_rollovers_total",
	Help:      "Total scheduled day rollovers that cleared missions.",
})

// ─── Shop ───────────────────────────────────────────────────────────────────

// RewardsPurchased tracks successful purchases by reward.
var RewardsPurchased = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "rewards_purchased_total",
	Help:      "Total rewards purchased.",
}, []string{"reward"})

// RewardsRejected tracks refused purchases by reason.
var RewardsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "rewards_rejected_total",
	Help:      "Total reward purchases refused.",
}, []string{"reason"})

// BonusAnalysisConsumed tracks spent bonus-analysis credits.
var BonusAnalysisConsumed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "bonus_analysis_consumed_total",
	Help:      "Total bonus-analysis credits consumed.",
})

// ─── Persistence ────────────────────────────────────────────────────────────

// PersistFailures tracks repository failures by operation (load, save, flush, delete).
var PersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "persist_failures_total",
	Help:      "Total progression persistence failures by operation.",
}, []string{"op"})

// ─── API ────────────────────────────────────────────────────────────────────

// HTTPRequestDuration tracks API latency by route pattern and status.
var HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"route", "status"})

// LiveClients tracks connected websocket widgets.
var LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "live_clients",
	Help:      "Number of connected live-update clients.",
})

// ─── Health ─────────────────────────────────────────────────────────────────

// HealthCheckStatus tracks health check results (1=healthy, 0=unhealthy).
var HealthCheckStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "health_check_status",
	Help:      "Health check result per component (1=healthy, 0=unhealthy).",
}, []string{"check"})

// HealthRecoveries tracks auto-recovery attempts.
var HealthRecoveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "health_recoveries_total",
	Help:      "Total auto-recovery attempts per check.",
}, []string{"check"})
