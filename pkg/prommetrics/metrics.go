package prommetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SolcronNamespace is the namespace for all protocol metrics.
const SolcronNamespace = "solcron"

var (
	JobsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "jobs_registered",
		Help:      "Count of jobs registered",
	})
	JobsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "jobs_cancelled",
		Help:      "Count of jobs cancelled by their owners",
	})
	JobsDeactivated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "jobs_deactivated",
		Help:      "Count of jobs auto-deactivated for falling below their minimum balance",
	})
	KeepersRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "keepers_registered",
		Help:      "Count of keepers registered",
	})
	ExecutionsSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "executions_succeeded",
		Help:      "Count of settled executions whose target call succeeded",
	})
	ExecutionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "executions_failed",
		Help:      "Count of settled executions whose target call failed downstream",
	})
	ExecutionFeesLamports = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "execution_fees_lamports",
		Help:      "Total lamports charged as execution fees",
	})
	RewardsClaimedLamports = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "rewards_claimed_lamports",
		Help:      "Total lamports paid out through reward claims",
	})
	KeepersSlashed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: SolcronNamespace,
		Name:      "keepers_slashed",
		Help:      "Count of slashing actions applied to keepers",
	})
)
