package keeper

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/registry"
	"github.com/solcron/solcron-go/pkg/trigger"
	"github.com/solcron/solcron-go/pkg/types"
)

type harness struct {
	ctx    context.Context
	mem    *ledger.Memory
	reg    *registry.Registry
	owner  solana.PublicKey
	wallet solana.PublicKey
}

func newHarness(t *testing.T, opts ...registry.Option) *harness {
	t.Helper()

	h := &harness{
		ctx:    context.Background(),
		mem:    ledger.NewMemory(),
		owner:  solana.NewWallet().PublicKey(),
		wallet: solana.NewWallet().PublicKey(),
	}
	h.reg = registry.New(h.mem, solana.NewWallet().PublicKey(), opts...)

	require.NoError(t, h.reg.Initialize(h.ctx, registry.InitParams{
		Admin:          solana.NewWallet().PublicKey(),
		Treasury:       solana.NewWallet().PublicKey(),
		BaseFee:        5_000,
		MinStake:       types.LamportsPerSOL,
		ProtocolFeeBps: 250,
	}))

	h.mem.Fund(h.owner, 100*types.LamportsPerSOL)
	h.mem.Fund(h.wallet, 10*types.LamportsPerSOL)
	require.NoError(t, h.reg.RegisterKeeper(h.ctx, h.wallet, 2*types.LamportsPerSOL))

	return h
}

func (h *harness) registerJob(t *testing.T, trig types.Trigger) types.JobID {
	t.Helper()

	id, err := h.reg.RegisterJob(h.ctx, h.owner, registry.RegisterJobParams{
		TargetProgram:     solana.NewWallet().PublicKey(),
		TargetInstruction: "harvest",
		Trigger:           trig,
		GasLimit:          300_000,
		InitialFunding:    types.LamportsPerSOL,
	})
	require.NoError(t, err)
	return id
}

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig(solana.NewWallet().PublicKey())
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty wallet", func(c *Config) { c.Wallet = solana.PublicKey{} }},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"zero queue size", func(c *Config) { c.QueueSize = 0 }},
		{"zero gas price", func(c *Config) { c.GasPrice = 0 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEstimateGas(t *testing.T) {
	assert.Equal(t, uint64(300), EstimateGas("transfer"))
	assert.Equal(t, uint64(10_000), EstimateGas("Harvest"))
	assert.Equal(t, uint64(15_000), EstimateGas("liquidate"))
	assert.Equal(t, uint64(5_000), EstimateGas("somethingelse"))
}

func TestFeedSource(t *testing.T) {
	source := NewFeedSource(nil)
	source.SetFeed(trigger.Feed{"price": decimal.NewFromFloat(92.25)})
	source.ObserveEvent("DepositReceived")

	condTrigger := types.Trigger{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
		Expression: "price", Operator: "<", Threshold: "95",
	}}

	jobWith := func(t *testing.T, trig types.Trigger) types.AutomationJob {
		t.Helper()
		params, err := trig.EncodeParams()
		require.NoError(t, err)
		return types.AutomationJob{JobID: 1, TriggerType: trig.Type, TriggerParams: params}
	}

	t.Run("predicate holds against the feed", func(t *testing.T) {
		obs := source.Observations(jobWith(t, condTrigger))
		assert.True(t, obs.PredicateHolds)
		assert.Contains(t, obs.ObservedEvents, "DepositReceived")
	})

	t.Run("predicate fails against the feed", func(t *testing.T) {
		trig := types.Trigger{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
			Expression: "price", Operator: ">", Threshold: "95",
		}}
		obs := source.Observations(jobWith(t, trig))
		assert.False(t, obs.PredicateHolds)
	})

	t.Run("time trigger asserts nothing", func(t *testing.T) {
		trig := types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Interval: 60}}
		obs := source.Observations(jobWith(t, trig))
		assert.False(t, obs.PredicateHolds)
	})

	t.Run("hybrid leaves are all evaluated", func(t *testing.T) {
		trig := types.Trigger{Type: types.HybridTrigger, Hybrid: &types.HybridCondition{
			Combinator: types.CombinatorAnd,
			SubTriggers: []types.Trigger{
				condTrigger,
				{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
					Expression: "price", Operator: ">", Threshold: "90",
				}},
			},
		}}
		obs := source.Observations(jobWith(t, trig))
		assert.True(t, obs.PredicateHolds)
	})

	t.Run("unknown variable never asserts", func(t *testing.T) {
		trig := types.Trigger{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
			Expression: "missing", Operator: ">", Threshold: "0",
		}}
		obs := source.Observations(jobWith(t, trig))
		assert.False(t, obs.PredicateHolds)
	})
}

func TestMonitorScan(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Unix(1_700_000_000, 0))
	h := newHarness(t, registry.WithClock(clock))

	eligible := h.registerJob(t, types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Interval: 60}})
	h.registerJob(t, types.Trigger{Type: types.ConditionalTrigger, Condition: &types.PredicateCondition{
		Expression: "price", Operator: ">", Threshold: "100",
	}})

	source := NewFeedSource(nil)
	source.SetFeed(trigger.Feed{"price": decimal.NewFromFloat(50)})

	monitor := NewMonitor(h.reg, source, clock, time.Second, 16, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		monitor.Run(ctx)
	}()

	clock.BlockUntil(1)
	clock.Advance(time.Second)

	select {
	case req := <-monitor.Requests():
		assert.Equal(t, eligible, req.JobID)
		assert.Equal(t, "harvest", req.Instruction)
		assert.Equal(t, PriorityNormal, req.Priority)
		assert.NotEmpty(t, req.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an execution request for the eligible job")
	}

	// the conditional job's predicate does not hold, so nothing else is queued
	select {
	case req := <-monitor.Requests():
		t.Fatalf("unexpected request for job %d", req.JobID)
	default:
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not stop")
	}

	_, open := <-monitor.Requests()
	assert.False(t, open, "request channel closes when the monitor stops")
}

func TestExecutorSubmits(t *testing.T) {
	h := newHarness(t)
	id := h.registerJob(t, types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Interval: 60}})

	cfg := DefaultConfig(h.wallet)
	cfg.Workers = 2
	cfg.ClaimThreshold = 0

	exec := NewExecutor(h.reg, cfg, testLogger())

	requests := make(chan Request, 4)
	requests <- Request{ID: "a", JobID: id, Instruction: "harvest", GasLimit: 300_000}
	// the second attempt on the same window loses the race
	requests <- Request{ID: "b", JobID: id, Instruction: "harvest", GasLimit: 300_000}
	close(requests)

	exec.Run(context.Background(), requests)

	stats := exec.Stats()
	assert.Equal(t, uint64(2), stats.Submitted)
	assert.Equal(t, uint64(1), stats.Settled)
	assert.Equal(t, uint64(1), stats.RaceLosses)
	assert.Equal(t, uint64(0), stats.Failures)

	job, err := h.reg.Job(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), job.ExecutionCount)
}

func TestExecutorClaimsAtThreshold(t *testing.T) {
	h := newHarness(t)
	id := h.registerJob(t, types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Interval: 60}})

	cfg := DefaultConfig(h.wallet)
	cfg.Workers = 1
	cfg.ClaimThreshold = 1

	exec := NewExecutor(h.reg, cfg, testLogger())

	requests := make(chan Request, 1)
	requests <- Request{ID: "a", JobID: id, Instruction: "harvest", GasLimit: 300_000}
	close(requests)

	exec.Run(context.Background(), requests)

	stats := exec.Stats()
	assert.Equal(t, uint64(1), stats.Settled)
	assert.NotZero(t, stats.Claimed)

	kp, err := h.reg.Keeper(h.ctx, h.wallet)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), kp.PendingRewards)
	assert.Equal(t, stats.Claimed, kp.TotalEarnings)
}

func TestNodeSettlesEligibleJobs(t *testing.T) {
	h := newHarness(t)
	id := h.registerJob(t, types.Trigger{Type: types.TimeTrigger, Time: &types.TimeCondition{Interval: 3_600}})

	cfg := DefaultConfig(h.wallet)
	cfg.PollInterval = 10 * time.Millisecond
	cfg.ClaimThreshold = 0

	node, err := NewNode(h.reg, NewFeedSource(nil), cfg)
	require.NoError(t, err)

	node.Start()
	defer node.Stop()

	require.Eventually(t, func() bool {
		job, err := h.reg.Job(h.ctx, id)
		return err == nil && job.ExecutionCount == 1
	}, 5*time.Second, 10*time.Millisecond, "the node settles the first eligibility window")

	// the interval gates any further settlement
	time.Sleep(50 * time.Millisecond)
	job, err := h.reg.Job(h.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), job.ExecutionCount)

	node.Stop()
	stats := node.Stats()
	assert.Equal(t, uint64(1), stats.Settled)
}

func TestNodeRejectsInvalidConfig(t *testing.T) {
	h := newHarness(t)
	cfg := DefaultConfig(h.wallet)
	cfg.Workers = 0

	_, err := NewNode(h.reg, NewFeedSource(nil), cfg)
	assert.Error(t, err)
}

func TestNodeStopBeforeStart(t *testing.T) {
	h := newHarness(t)

	node, err := NewNode(h.reg, NewFeedSource(nil), DefaultConfig(h.wallet))
	require.NoError(t, err)

	node.Stop()
}
