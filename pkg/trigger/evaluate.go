// Package trigger decides whether a job's trigger condition currently
// holds. Evaluate is the pure predicate used during execution settlement;
// the predicate helpers in this package are the off-chain side keepers use
// to produce the observations Evaluate consumes.
package trigger

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/solcron/solcron-go/pkg/types"
)

// Observations carries the externally supplied inputs for the condition and
// log leaves of a trigger. The registry stores only condition descriptions;
// it cannot verify these assertions, so they form the protocol's trust
// boundary.
type Observations struct {
	// PredicateHolds is the keeper's off-chain evaluation of conditional
	// leaves.
	PredicateHolds bool
	// ObservedEvents lists event signatures (or their keccak ids) the
	// keeper has seen, matched against log leaves.
	ObservedEvents []string
}

// Observed reports whether the condition's event signature is in the
// observation set, by raw signature or keccak id.
func (o Observations) Observed(c types.LogCondition) bool {
	id := c.EventID()
	for _, ev := range o.ObservedEvents {
		if ev == c.EventSignature || ev == id {
			return true
		}
	}
	return false
}

// Evaluate reports whether the trigger condition holds at the given unix
// time. lastExecution is zero when the job has never run; the first
// execution of a time trigger is eligible immediately.
func Evaluate(t types.Trigger, now, lastExecution int64, obs Observations) bool {
	switch t.Type {
	case types.TimeTrigger:
		if t.Time == nil {
			return false
		}
		return timeEligible(*t.Time, now, lastExecution)
	case types.ConditionalTrigger:
		return t.Condition != nil && obs.PredicateHolds
	case types.LogTrigger:
		return t.Log != nil && obs.Observed(*t.Log)
	case types.HybridTrigger:
		if t.Hybrid == nil || len(t.Hybrid.SubTriggers) == 0 {
			return false
		}
		return hybridEligible(*t.Hybrid, now, lastExecution, obs)
	default:
		return false
	}
}

func timeEligible(c types.TimeCondition, now, lastExecution int64) bool {
	if lastExecution == 0 {
		return true
	}
	if c.Schedule != "" {
		sched, err := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow).Parse(c.Schedule)
		if err != nil {
			return false
		}
		next := sched.Next(time.Unix(lastExecution, 0).UTC())
		return !next.After(time.Unix(now, 0).UTC())
	}
	return now-lastExecution >= c.Interval
}

func hybridEligible(c types.HybridCondition, now, lastExecution int64, obs Observations) bool {
	for _, sub := range c.SubTriggers {
		eligible := Evaluate(sub, now, lastExecution, obs)
		if c.Combinator == types.CombinatorAnd && !eligible {
			return false
		}
		if c.Combinator == types.CombinatorOr && eligible {
			return true
		}
	}
	return c.Combinator == types.CombinatorAnd
}
