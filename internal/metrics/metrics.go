package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ContributionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_contributions_total",
			Help: "Total number of contribution attempts by outcome",
		},
		[]string{"result"},
	)
	ChallengeTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_transitions_total",
			Help: "Total number of challenge status transitions",
		},
		[]string{"status", "trigger"},
	)
	RewardCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_reward_credits_total",
			Help: "Total number of reward credits by kind and delivery result",
		},
		[]string{"kind", "result"},
	)
	RewardPoints = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_reward_points_total",
			Help: "Total reward points credited to users",
		},
		[]string{"kind"},
	)
	SideEffectFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "challenge_side_effect_failures_total",
			Help: "Total number of best-effort side effects that failed",
		},
		[]string{"effect"},
	)
	StreaksExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "challenge_streaks_expired_total",
			Help: "Total number of streaks marked inactive",
		},
	)
	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "challenge_sweep_duration_seconds",
			Help:    "Duration of maintenance sweeps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job", "result"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ContributionsTotal)
		prometheus.MustRegister(ChallengeTransitions)
		prometheus.MustRegister(RewardCredits)
		prometheus.MustRegister(RewardPoints)
		prometheus.MustRegister(SideEffectFailures)
		prometheus.MustRegister(StreaksExpired)
		prometheus.MustRegister(SweepDuration)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
