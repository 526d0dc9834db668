package registry

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/accounts"
	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/prommetrics"
	"github.com/solcron/solcron-go/pkg/trigger"
	"github.com/solcron/solcron-go/pkg/types"
)

// ExecutionRequest is a keeper's attempt to settle one eligibility window.
type ExecutionRequest struct {
	// GasUsed is the compute charged for the target call. Must be within
	// the job's gas limit.
	GasUsed uint64
	// GasPrice is the lamport price per compute unit.
	GasPrice uint64
	// Payload is forwarded opaquely to the target program.
	Payload []byte
	// Observations asserts the keeper's off-chain view of conditional and
	// log leaves.
	Observations trigger.Observations
}

// genericTargetError is the error code recorded when the target call fails.
const genericTargetError uint32 = 1

// ExecuteJob settles one execution attempt: validates job, keeper and
// trigger eligibility, reserves the record key for this window, performs
// the target call, deducts and splits the fee, and updates job, keeper and
// registry state. The whole settlement is one atomic transaction; when
// several keepers race on the same window, the record key reservation lets
// exactly one commit.
//
// A failed target call still settles: the fee is charged, the record is
// written with Success=false, and the keeper's failure stats update.
func (r *Registry) ExecuteJob(ctx context.Context, caller solana.PublicKey, id types.JobID, req ExecutionRequest) (types.ExecutionRecord, error) {
	var record types.ExecutionRecord

	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if state.Paused {
			return types.ErrRegistryPaused
		}

		job, jobAddr, err := r.loadJob(tx, id)
		if err != nil {
			return err
		}
		if !job.IsActive {
			return types.ErrInvalidJob
		}

		keeper, keeperAddr, err := r.loadKeeper(tx, caller)
		if err != nil {
			return err
		}
		if !keeper.IsActive {
			return types.ErrInvalidKeeper
		}

		trig, err := job.Trigger()
		if err != nil {
			return err
		}
		now := r.now()
		if !trigger.Evaluate(trig, now, job.LastExecution, req.Observations) {
			return types.ErrInvalidTrigger
		}

		if req.GasUsed > job.GasLimit {
			return types.ErrGasLimitExceeded
		}
		fee, err := types.ExecutionFee(state.BaseFee, req.GasUsed, req.GasPrice)
		if err != nil {
			return err
		}
		if job.Balance < fee {
			return types.ErrInsufficientBalance
		}

		// Reserve the record key for this eligibility window before any
		// effect. A concurrent attempt that already settled this window
		// owns the key and this attempt fails whole.
		sequence := job.ExecutionCount
		recordAddr, err := accounts.ExecutionRecord(r.program, id, sequence)
		if err != nil {
			return err
		}
		if err := tx.Create(recordAddr, nil); err != nil {
			if errors.Is(err, ledger.ErrAccountExists) {
				return types.ErrRecordExists
			}
			return err
		}

		invokeErr := tx.Invoke(ctx, job.TargetProgram, job.TargetInstruction, req.Payload)
		success := invokeErr == nil

		protocolFee, keeperReward := types.SplitFee(fee, state.ProtocolFeeBps)
		if err := tx.Transfer(jobAddr, state.Treasury, protocolFee); err != nil {
			return errors.Wrap(err, "failed to transfer protocol fee")
		}
		if err := tx.Transfer(jobAddr, keeperAddr, keeperReward); err != nil {
			return errors.Wrap(err, "failed to transfer keeper reward")
		}

		job.Balance -= fee
		job.ExecutionCount++
		job.LastExecution = now
		if job.Balance < job.MinBalance {
			job.IsActive = false
			state.ActiveJobs--
			prommetrics.JobsDeactivated.Inc()
		}
		if err := r.storeJob(tx, jobAddr, job); err != nil {
			return err
		}

		keeper.PendingRewards, err = types.SafeAdd(keeper.PendingRewards, keeperReward)
		if err != nil {
			return err
		}
		change := types.ReputationChange(success, keeper.ConsecutiveSuccesses, keeper.ConsecutiveFailures)
		keeper.ReputationScore = types.ClampReputation(keeper.ReputationScore, change)
		if success {
			keeper.SuccessfulExecutions++
			keeper.ConsecutiveSuccesses++
			keeper.ConsecutiveFailures = 0
		} else {
			keeper.FailedExecutions++
			keeper.ConsecutiveFailures++
			keeper.ConsecutiveSuccesses = 0
		}
		keeper.LastActive = now
		if err := r.storeKeeper(tx, keeperAddr, keeper); err != nil {
			return err
		}

		record = types.ExecutionRecord{
			JobID:     id,
			Sequence:  sequence,
			Keeper:    caller,
			Timestamp: now,
			Success:   success,
			GasUsed:   req.GasUsed,
			FeePaid:   fee,
		}
		if !success {
			code := genericTargetError
			record.ErrorCode = &code
		}
		data, err := accounts.Marshal(record)
		if err != nil {
			return err
		}
		if err := tx.Write(recordAddr, data); err != nil {
			return err
		}

		state.TotalExecutions++
		if success {
			state.SuccessfulExecutions++
		}
		state.ProtocolRevenue, err = types.SafeAdd(state.ProtocolRevenue, protocolFee)
		if err != nil {
			return err
		}
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return types.ExecutionRecord{}, err
	}

	if record.Success {
		prommetrics.ExecutionsSucceeded.Inc()
	} else {
		prommetrics.ExecutionsFailed.Inc()
	}
	prommetrics.ExecutionFeesLamports.Add(float64(record.FeePaid))

	r.logger.Printf("job %d executed by %s: seq=%d success=%t fee=%d", id, caller, record.Sequence, record.Success, record.FeePaid)

	return record, nil
}
