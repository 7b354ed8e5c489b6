package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "decisionjar"

var (
	// SpinsTotal counts selection requests by outcome
	// (selected, no_match, conflict, error).
	SpinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spins_total",
			Help:      "Selection requests by outcome.",
		},
		[]string{"outcome"},
	)

	// SideEffectFailuresTotal counts best-effort effects that failed after a commit.
	SideEffectFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "side_effect_failures_total",
			Help:      "Post-selection effects that failed (notify, reward, achievement).",
		},
		[]string{"effect"},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Outbox jobs handled by the worker, by type and result.",
		},
		[]string{"type", "result"},
	)

	PointsAwardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_awarded_total",
			Help:      "Reward points credited to jars.",
		},
	)

	AchievementsUnlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked across all jars.",
		},
	)
)
