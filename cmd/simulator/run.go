package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/solcron/solcron-go/pkg/keeper"
	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/registry"
	"github.com/solcron/solcron-go/pkg/trigger"
	"github.com/solcron/solcron-go/pkg/types"
)

// simulation holds everything one run wires together.
type simulation struct {
	plan     Plan
	ledger   *ledger.Memory
	registry *registry.Registry
	admin    solana.PublicKey
	treasury solana.PublicKey
	owner    solana.PublicKey
	wallets  []solana.PublicKey
	nodes    []*keeper.Node
	jobIDs   []types.JobID
}

// setup builds the ledger, registry, keeper fleet and jobs from the plan.
func setup(plan Plan, verbose bool, logger *slog.Logger) (*simulation, error) {
	ctx := context.Background()

	mem := ledger.NewMemory()
	program := solana.NewWallet().PublicKey()

	sim := &simulation{
		plan:     plan,
		ledger:   mem,
		admin:    solana.NewWallet().PublicKey(),
		treasury: solana.NewWallet().PublicKey(),
		owner:    solana.NewWallet().PublicKey(),
	}

	reg := registry.New(mem, program)
	sim.registry = reg

	if err := reg.Initialize(ctx, registry.InitParams{
		Admin:          sim.admin,
		Treasury:       sim.treasury,
		BaseFee:        plan.BaseFee,
		MinStake:       plan.MinStake,
		ProtocolFeeBps: plan.ProtocolFeeBps,
	}); err != nil {
		return nil, err
	}

	// generous genesis balances so funding is never the bottleneck
	mem.Fund(sim.owner, 1_000*types.LamportsPerSOL)

	// jobs
	for i, pj := range plan.Jobs {
		target, err := pj.targetProgram()
		if err != nil {
			return nil, err
		}
		id, err := reg.RegisterJob(ctx, sim.owner, registry.RegisterJobParams{
			TargetProgram:     target,
			TargetInstruction: pj.Instruction,
			Trigger:           pj.Trigger,
			GasLimit:          pj.GasLimit,
			MinBalance:        pj.MinBalance,
			InitialFunding:    pj.Funding,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to register job %d", i)
		}
		sim.jobIDs = append(sim.jobIDs, id)
	}

	// feed and events shared by every node
	source := keeper.NewFeedSource(nil)
	feed := trigger.Feed{}
	for k, v := range plan.Feed {
		feed[k] = decimal.NewFromFloat(v)
	}
	source.SetFeed(feed)
	for _, ev := range plan.Events {
		source.ObserveEvent(ev)
	}

	// keeper fleet; submission latency is jittered per node so races are
	// realistic rather than lockstep
	latency := distuv.Normal{Mu: 20, Sigma: 10, Src: nil}
	for i, pk := range plan.Keepers {
		wallet := solana.NewWallet().PublicKey()
		mem.Fund(wallet, pk.Stake+10*types.LamportsPerSOL)

		if err := reg.RegisterKeeper(ctx, wallet, pk.Stake); err != nil {
			return nil, errors.Wrapf(err, "failed to register keeper %d", i)
		}

		nodeLogger := log.New(io.Discard, "", 0)
		if verbose {
			nodeLogger = log.New(log.Writer(), fmt.Sprintf("[keeper-%d] ", i+1), log.LstdFlags)
		}

		cfg := keeper.DefaultConfig(wallet)
		cfg.PollInterval = time.Duration(plan.PollMillis) * time.Millisecond
		cfg.ClaimThreshold = 0

		node, err := keeper.NewNode(reg, &jitterSource{src: source, dist: latency}, cfg, keeper.WithLogger(nodeLogger))
		if err != nil {
			return nil, err
		}

		sim.wallets = append(sim.wallets, wallet)
		sim.nodes = append(sim.nodes, node)
	}

	logger.Info("simulation ready",
		"jobs", len(sim.jobIDs),
		"keepers", len(sim.nodes),
		"duration", time.Duration(plan.DurationSeconds)*time.Second,
	)

	return sim, nil
}

// run starts the fleet, lets it race for the plan duration and stops it.
func (s *simulation) run() {
	for _, node := range s.nodes {
		node.Start()
	}

	<-time.After(time.Duration(s.plan.DurationSeconds) * time.Second)

	for _, node := range s.nodes {
		node.Stop()
	}
}

// jitterSource delays observation reads by a sampled latency, de-syncing
// the keeper fleet.
type jitterSource struct {
	src  keeper.Source
	dist distuv.Normal
}

func (j *jitterSource) Observations(job types.AutomationJob) trigger.Observations {
	ms := j.dist.Rand()
	if ms < 0 {
		ms = 0
	}
	jitter := time.Duration(ms) * time.Millisecond
	jitter += time.Duration(rand.Intn(5)) * time.Millisecond
	time.Sleep(jitter)
	return j.src.Observations(job)
}
