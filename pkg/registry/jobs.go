package registry

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/accounts"
	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/prommetrics"
	"github.com/solcron/solcron-go/pkg/types"
)

// RegisterJobParams describes a new job.
type RegisterJobParams struct {
	TargetProgram     solana.PublicKey
	TargetInstruction string
	Trigger           types.Trigger
	GasLimit          uint64
	MinBalance        uint64
	// InitialFunding is transferred from the owner's wallet to the job
	// account. Must be at least MinBalance.
	InitialFunding uint64
}

func (p RegisterJobParams) validate() error {
	if p.TargetInstruction == "" || len(p.TargetInstruction) > types.MaxInstructionLen {
		return errors.Wrapf(types.ErrInvalidParameters, "target instruction must be 1-%d chars", types.MaxInstructionLen)
	}
	if p.GasLimit == 0 || p.GasLimit > types.MaxGasLimit {
		return errors.Wrapf(types.ErrInvalidParameters, "gas limit %d out of range (0, %d]", p.GasLimit, types.MaxGasLimit)
	}
	if p.InitialFunding < p.MinBalance {
		return types.ErrInsufficientBalance
	}
	return nil
}

// RegisterJob allocates a new job under the registry's next id, funds it
// from the owner's wallet and activates it.
func (r *Registry) RegisterJob(ctx context.Context, owner solana.PublicKey, p RegisterJobParams) (types.JobID, error) {
	if err := p.validate(); err != nil {
		return 0, err
	}

	params, err := p.Trigger.EncodeParams()
	if err != nil {
		return 0, errors.Wrap(types.ErrInvalidParameters, err.Error())
	}

	var id types.JobID
	err = r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if state.Paused {
			return types.ErrRegistryPaused
		}

		id = state.NextJobID
		jobAddr, err := accounts.Job(r.program, id)
		if err != nil {
			return err
		}

		now := r.now()
		job := types.AutomationJob{
			JobID:             id,
			Owner:             owner,
			TargetProgram:     p.TargetProgram,
			TargetInstruction: p.TargetInstruction,
			TriggerType:       p.Trigger.Type,
			TriggerParams:     params,
			GasLimit:          p.GasLimit,
			Balance:           p.InitialFunding,
			MinBalance:        p.MinBalance,
			IsActive:          true,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		data, err := accounts.Marshal(job)
		if err != nil {
			return err
		}
		if err := tx.Create(jobAddr, data); err != nil {
			return errors.Wrapf(err, "failed to create job account for id %d", id)
		}
		if err := tx.Transfer(owner, jobAddr, p.InitialFunding); err != nil {
			return errors.Wrap(err, "failed to transfer initial funding")
		}

		state.NextJobID++
		state.TotalJobs++
		state.ActiveJobs++
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return 0, err
	}

	prommetrics.JobsRegistered.Inc()
	r.logger.Printf("job %d registered by %s: trigger=%s funding=%d", id, owner, p.Trigger.Type, p.InitialFunding)

	return id, nil
}

// FundJob adds lamports to an active job's balance. Owner only; no upper
// bound.
func (r *Registry) FundJob(ctx context.Context, caller solana.PublicKey, id types.JobID, amount uint64) error {
	if amount == 0 {
		return errors.Wrap(types.ErrInvalidParameters, "funding amount cannot be zero")
	}

	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		job, jobAddr, err := r.loadJob(tx, id)
		if err != nil {
			return err
		}
		if job.Owner != caller {
			return types.ErrUnauthorized
		}
		if !job.IsActive {
			return types.ErrInvalidJob
		}

		job.Balance, err = types.SafeAdd(job.Balance, amount)
		if err != nil {
			return err
		}
		if err := tx.Transfer(caller, jobAddr, amount); err != nil {
			return errors.Wrap(err, "failed to transfer funding")
		}
		return r.storeJob(tx, jobAddr, job)
	})
	if err != nil {
		return err
	}

	r.logger.Printf("job %d funded with %d lamports", id, amount)
	return nil
}

// JobUpdate carries the independently optional fields of an update. Nil
// fields are left unchanged.
type JobUpdate struct {
	GasLimit   *uint64
	MinBalance *uint64
	Trigger    *types.Trigger
}

// UpdateJob applies an owner's parameter changes to an active job.
func (r *Registry) UpdateJob(ctx context.Context, caller solana.PublicKey, id types.JobID, u JobUpdate) error {
	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		job, jobAddr, err := r.loadJob(tx, id)
		if err != nil {
			return err
		}
		if job.Owner != caller {
			return types.ErrUnauthorized
		}
		if !job.IsActive {
			return types.ErrInvalidJob
		}

		if u.GasLimit != nil {
			if *u.GasLimit == 0 || *u.GasLimit > types.MaxGasLimit {
				return errors.Wrapf(types.ErrInvalidParameters, "gas limit %d out of range (0, %d]", *u.GasLimit, types.MaxGasLimit)
			}
			job.GasLimit = *u.GasLimit
		}

		if u.MinBalance != nil {
			if job.Balance < *u.MinBalance {
				return types.ErrInsufficientBalance
			}
			job.MinBalance = *u.MinBalance
		}

		if u.Trigger != nil {
			params, err := u.Trigger.EncodeParams()
			if err != nil {
				return errors.Wrap(types.ErrInvalidParameters, err.Error())
			}
			job.TriggerType = u.Trigger.Type
			job.TriggerParams = params
		}

		job.UpdatedAt = r.now()
		return r.storeJob(tx, jobAddr, job)
	})
	if err != nil {
		return err
	}

	r.logger.Printf("job %d updated", id)
	return nil
}

// CancelJob deactivates a job and refunds the remaining balance to the
// owner. Terminal: no operation on the job succeeds afterwards except reads.
func (r *Registry) CancelJob(ctx context.Context, caller solana.PublicKey, id types.JobID) (uint64, error) {
	var refunded uint64

	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		job, jobAddr, err := r.loadJob(tx, id)
		if err != nil {
			return err
		}
		if job.Owner != caller {
			return types.ErrUnauthorized
		}
		if !job.IsActive {
			return types.ErrInvalidJob
		}

		refunded = job.Balance
		if err := tx.Transfer(jobAddr, caller, refunded); err != nil {
			return errors.Wrap(err, "failed to refund job balance")
		}

		job.Balance = 0
		job.IsActive = false
		job.UpdatedAt = r.now()
		if err := r.storeJob(tx, jobAddr, job); err != nil {
			return err
		}

		state.ActiveJobs--
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return 0, err
	}

	prommetrics.JobsCancelled.Inc()
	r.logger.Printf("job %d cancelled, %d lamports refunded", id, refunded)

	return refunded, nil
}
