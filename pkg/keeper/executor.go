package keeper

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/registry"
	"github.com/solcron/solcron-go/pkg/types"
)

// Executor drains the monitor's request channel with a bounded worker pool
// and submits execution attempts. Race losses against other keepers are
// logged at debug cadence, not treated as faults.
type Executor struct {
	reg    *registry.Registry
	cfg    Config
	logger *log.Logger

	mu    sync.Mutex
	stats ExecutorStats
}

// ExecutorStats summarizes a node's settlement outcomes.
type ExecutorStats struct {
	Submitted  uint64
	Settled    uint64
	RaceLosses uint64
	Failures   uint64
	Claimed    uint64
}

func NewExecutor(reg *registry.Registry, cfg Config, logger *log.Logger) *Executor {
	return &Executor{reg: reg, cfg: cfg, logger: logger}
}

// Stats returns a snapshot of the executor's counters.
func (e *Executor) Stats() ExecutorStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Run consumes requests until the channel closes or the context cancels.
func (e *Executor) Run(ctx context.Context, requests <-chan Request) {
	var wg sync.WaitGroup
	wg.Add(e.cfg.Workers)

	for i := 0; i < e.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case req, ok := <-requests:
					if !ok {
						return
					}
					e.submit(ctx, req)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	wg.Wait()
}

func (e *Executor) submit(ctx context.Context, req Request) {
	e.mu.Lock()
	e.stats.Submitted++
	e.mu.Unlock()

	gasUsed := EstimateGas(req.Instruction)
	if gasUsed > req.GasLimit {
		gasUsed = req.GasLimit
	}

	record, err := e.reg.ExecuteJob(ctx, e.cfg.Wallet, req.JobID, registry.ExecutionRequest{
		GasUsed:      gasUsed,
		GasPrice:     e.cfg.GasPrice,
		Observations: req.Observations,
	})
	if err != nil {
		e.mu.Lock()
		if isRaceLoss(err) {
			e.stats.RaceLosses++
		} else {
			e.stats.Failures++
		}
		e.mu.Unlock()

		if isRaceLoss(err) {
			e.logger.Printf("job %d: attempt lost race: %s", req.JobID, err)
		} else {
			e.logger.Printf("job %d: attempt failed: %s", req.JobID, err)
		}
		return
	}

	e.mu.Lock()
	e.stats.Settled++
	e.mu.Unlock()

	e.logger.Printf("job %d: settled seq=%d success=%t fee=%d", req.JobID, record.Sequence, record.Success, record.FeePaid)

	e.maybeClaim(ctx)
}

// maybeClaim pays out pending rewards once they cross the configured
// threshold.
func (e *Executor) maybeClaim(ctx context.Context) {
	if e.cfg.ClaimThreshold == 0 {
		return
	}

	kp, err := e.reg.Keeper(ctx, e.cfg.Wallet)
	if err != nil {
		e.logger.Printf("failed to read keeper state: %s", err)
		return
	}
	if kp.PendingRewards < e.cfg.ClaimThreshold {
		return
	}

	claimed, err := e.reg.ClaimRewards(ctx, e.cfg.Wallet)
	if err != nil {
		e.logger.Printf("claim failed: %s", err)
		return
	}

	e.mu.Lock()
	e.stats.Claimed += claimed
	e.mu.Unlock()

	e.logger.Printf("claimed %d lamports", claimed)
}

// isRaceLoss reports whether the error is an expected outcome of several
// keepers competing for the same eligibility window.
func isRaceLoss(err error) bool {
	return errors.Is(err, types.ErrInvalidTrigger) ||
		errors.Is(err, types.ErrRecordExists) ||
		errors.Is(err, types.ErrInvalidJob) ||
		errors.Is(err, types.ErrInsufficientBalance)
}

// EstimateGas predicts compute cost from the target instruction name.
// Unknown instructions get a conservative default.
func EstimateGas(instruction string) uint64 {
	switch strings.ToLower(instruction) {
	case "transfer":
		return 300
	case "mint":
		return 1_000
	case "swap":
		return 5_000
	case "compound":
		return 8_000
	case "harvest":
		return 10_000
	case "liquidate":
		return 15_000
	default:
		return 5_000
	}
}
