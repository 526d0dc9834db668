package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solcron/solcron-go/pkg/types"
)

func timeTrigger(interval int64) types.Trigger {
	return types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Interval: interval}}
}

func TestEvaluateTimeTrigger(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name          string
		trigger       types.Trigger
		lastExecution int64
		eligible      bool
	}{
		{"never executed is eligible immediately", timeTrigger(3600), 0, true},
		{"interval elapsed exactly", timeTrigger(60), now - 60, true},
		{"interval elapsed", timeTrigger(60), now - 90, true},
		{"interval not elapsed", timeTrigger(60), now - 59, false},
		{"missing condition", types.Trigger{Type: types.TimeTrigger}, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.eligible, Evaluate(tc.trigger, now, tc.lastExecution, Observations{}))
		})
	}
}

func TestEvaluateCronSchedule(t *testing.T) {
	hourly := types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Schedule: "0 * * * *"}}

	lastExecution := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Unix()

	t.Run("next activation passed", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 13, 0, 5, 0, time.UTC).Unix()
		assert.True(t, Evaluate(hourly, now, lastExecution, Observations{}))
	})

	t.Run("next activation still ahead", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC).Unix()
		assert.False(t, Evaluate(hourly, now, lastExecution, Observations{}))
	})

	t.Run("first execution is eligible immediately", func(t *testing.T) {
		now := time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC).Unix()
		assert.True(t, Evaluate(hourly, now, 0, Observations{}))
	})
}

func TestEvaluateConditionalTrigger(t *testing.T) {
	trig := types.Trigger{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
		Expression: "price", Operator: "<", Threshold: "100",
	}}

	assert.True(t, Evaluate(trig, 0, 0, Observations{PredicateHolds: true}))
	assert.False(t, Evaluate(trig, 0, 0, Observations{PredicateHolds: false}))
	assert.False(t, Evaluate(types.Trigger{Type: types.ConditionalTrigger}, 0, 0, Observations{PredicateHolds: true}))
}

func TestEvaluateLogTrigger(t *testing.T) {
	cond := types.LogCondition{EventSignature: "DepositReceived"}
	trig := types.Trigger{Type: types.LogTrigger, Log: &cond}

	t.Run("matched by raw signature", func(t *testing.T) {
		assert.True(t, Evaluate(trig, 0, 0, Observations{ObservedEvents: []string{"DepositReceived"}}))
	})

	t.Run("matched by keccak id", func(t *testing.T) {
		assert.True(t, Evaluate(trig, 0, 0, Observations{ObservedEvents: []string{cond.EventID()}}))
	})

	t.Run("unmatched", func(t *testing.T) {
		assert.False(t, Evaluate(trig, 0, 0, Observations{ObservedEvents: []string{"Withdrawal"}}))
		assert.False(t, Evaluate(trig, 0, 0, Observations{}))
	})
}

func TestEvaluateHybridTrigger(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Unix()

	timeLeaf := timeTrigger(60)
	condLeaf := types.Trigger{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
		Expression: "price", Operator: "<", Threshold: "100",
	}}

	hybrid := func(c types.Combinator) types.Trigger {
		return types.Trigger{Type: types.HybridTrigger, Hybrid: &types.HybridCondition{
			Combinator:  c,
			SubTriggers: []types.Trigger{timeLeaf, condLeaf},
		}}
	}

	tests := []struct {
		name          string
		trigger       types.Trigger
		lastExecution int64
		holds         bool
		eligible      bool
	}{
		{"and: both hold", hybrid(types.CombinatorAnd), now - 120, true, true},
		{"and: time leaf fails", hybrid(types.CombinatorAnd), now - 30, true, false},
		{"and: predicate fails", hybrid(types.CombinatorAnd), now - 120, false, false},
		{"or: only time holds", hybrid(types.CombinatorOr), now - 120, false, true},
		{"or: only predicate holds", hybrid(types.CombinatorOr), now - 30, true, true},
		{"or: neither holds", hybrid(types.CombinatorOr), now - 30, false, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			obs := Observations{PredicateHolds: tc.holds}
			assert.Equal(t, tc.eligible, Evaluate(tc.trigger, now, tc.lastExecution, obs))
		})
	}

	t.Run("empty hybrid never fires", func(t *testing.T) {
		empty := types.Trigger{Type: types.HybridTrigger, Hybrid: &types.HybridCondition{Combinator: types.CombinatorAnd}}
		assert.False(t, Evaluate(empty, now, 0, Observations{PredicateHolds: true}))
	})
}

func TestEvaluateUnknownType(t *testing.T) {
	assert.False(t, Evaluate(types.Trigger{Type: types.TriggerType(9)}, 0, 0, Observations{}))
}
