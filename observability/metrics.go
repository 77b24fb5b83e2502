package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// LoginAttemptsTotal counts login attempts by outcome
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captchauth_login_attempts_total",
			Help: "Login attempts",
		},
		[]string{"outcome"},
	)

	// LoginDuration records how long the authentication pipeline takes
	LoginDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "captchauth_login_duration_seconds",
			Help:    "Authentication pipeline duration",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ChallengesIssuedTotal counts issued challenges
	ChallengesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "captchauth_challenges_issued_total",
			Help: "Challenges issued",
		},
	)

	// ChallengeConsumeTotal counts challenge verification attempts by result
	ChallengeConsumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "captchauth_challenge_consume_total",
			Help: "Challenge verification attempts",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		LoginAttemptsTotal,
		LoginDuration,
		ChallengesIssuedTotal,
		ChallengeConsumeTotal,
	)
}
