// Package registry implements the protocol state machine: job lifecycle,
// keeper staking and reputation, and execution settlement. Every operation
// runs inside a single ledger transaction and either commits its whole
// effect or fails with a typed error before any state changes.
package registry

import (
	"context"
	"io"
	"log"

	"github.com/gagliardetto/solana-go"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/accounts"
	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/types"
)

// Registry executes protocol operations against a ledger. The program key
// namespaces all derived account addresses.
type Registry struct {
	ledger  ledger.Ledger
	program solana.PublicKey
	clock   clockwork.Clock
	logger  *log.Logger
}

type Option func(*Registry)

// WithClock overrides the time source. Tests use fake clocks.
func WithClock(c clockwork.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

// WithLogger sets the operation logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

func New(l ledger.Ledger, program solana.PublicKey, opts ...Option) *Registry {
	r := &Registry{
		ledger:  l,
		program: program,
		clock:   clockwork.NewRealClock(),
		logger:  log.New(io.Discard, "", 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Program returns the derivation namespace the registry operates under.
func (r *Registry) Program() solana.PublicKey {
	return r.program
}

func (r *Registry) now() int64 {
	return r.clock.Now().Unix()
}

// ---- account access helpers, all scoped to one transaction

func (r *Registry) loadState(tx ledger.ReadTx) (types.RegistryState, solana.PublicKey, error) {
	addr, err := accounts.Registry(r.program)
	if err != nil {
		return types.RegistryState{}, solana.PublicKey{}, err
	}

	acct, err := tx.Read(addr)
	if err != nil {
		return types.RegistryState{}, addr, errors.Wrap(err, "registry not initialized")
	}

	var state types.RegistryState
	if err := accounts.Unmarshal(acct.Data, &state); err != nil {
		return types.RegistryState{}, addr, err
	}
	return state, addr, nil
}

func (r *Registry) storeState(tx ledger.Tx, addr solana.PublicKey, state types.RegistryState) error {
	data, err := accounts.Marshal(state)
	if err != nil {
		return err
	}
	return tx.Write(addr, data)
}

func (r *Registry) loadJob(tx ledger.ReadTx, id types.JobID) (types.AutomationJob, solana.PublicKey, error) {
	addr, err := accounts.Job(r.program, id)
	if err != nil {
		return types.AutomationJob{}, solana.PublicKey{}, err
	}

	acct, err := tx.Read(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return types.AutomationJob{}, addr, types.ErrJobNotFound
		}
		return types.AutomationJob{}, addr, err
	}

	var job types.AutomationJob
	if err := accounts.Unmarshal(acct.Data, &job); err != nil {
		return types.AutomationJob{}, addr, err
	}
	return job, addr, nil
}

func (r *Registry) storeJob(tx ledger.Tx, addr solana.PublicKey, job types.AutomationJob) error {
	data, err := accounts.Marshal(job)
	if err != nil {
		return err
	}
	return tx.Write(addr, data)
}

func (r *Registry) loadKeeper(tx ledger.ReadTx, address solana.PublicKey) (types.Keeper, solana.PublicKey, error) {
	addr, err := accounts.Keeper(r.program, address)
	if err != nil {
		return types.Keeper{}, solana.PublicKey{}, err
	}

	acct, err := tx.Read(addr)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return types.Keeper{}, addr, types.ErrKeeperNotFound
		}
		return types.Keeper{}, addr, err
	}

	var keeper types.Keeper
	if err := accounts.Unmarshal(acct.Data, &keeper); err != nil {
		return types.Keeper{}, addr, err
	}
	return keeper, addr, nil
}

func (r *Registry) storeKeeper(tx ledger.Tx, addr solana.PublicKey, keeper types.Keeper) error {
	data, err := accounts.Marshal(keeper)
	if err != nil {
		return err
	}
	return tx.Write(addr, data)
}

// ---- read-only API

// State returns a snapshot of the registry state.
func (r *Registry) State(ctx context.Context) (types.RegistryState, error) {
	var state types.RegistryState
	err := r.ledger.View(ctx, func(tx ledger.ReadTx) error {
		var err error
		state, _, err = r.loadState(tx)
		return err
	})
	return state, err
}

// Job returns a snapshot of one job.
func (r *Registry) Job(ctx context.Context, id types.JobID) (types.AutomationJob, error) {
	var job types.AutomationJob
	err := r.ledger.View(ctx, func(tx ledger.ReadTx) error {
		var err error
		job, _, err = r.loadJob(tx, id)
		return err
	})
	return job, err
}

// Keeper returns a snapshot of one keeper.
func (r *Registry) Keeper(ctx context.Context, address solana.PublicKey) (types.Keeper, error) {
	var keeper types.Keeper
	err := r.ledger.View(ctx, func(tx ledger.ReadTx) error {
		var err error
		keeper, _, err = r.loadKeeper(tx, address)
		return err
	})
	return keeper, err
}

// ExecutionRecord returns the receipt for one settled attempt.
func (r *Registry) ExecutionRecord(ctx context.Context, id types.JobID, sequence uint64) (types.ExecutionRecord, error) {
	addr, err := accounts.ExecutionRecord(r.program, id, sequence)
	if err != nil {
		return types.ExecutionRecord{}, err
	}

	var record types.ExecutionRecord
	err = r.ledger.View(ctx, func(tx ledger.ReadTx) error {
		acct, err := tx.Read(addr)
		if err != nil {
			return err
		}
		return accounts.Unmarshal(acct.Data, &record)
	})
	return record, err
}

// EachActiveJob walks every active job in id order within one consistent
// snapshot. The walk stops when fn returns false.
func (r *Registry) EachActiveJob(ctx context.Context, fn func(types.AutomationJob) bool) error {
	return r.ledger.View(ctx, func(tx ledger.ReadTx) error {
		state, _, err := r.loadState(tx)
		if err != nil {
			return err
		}

		for id := types.JobID(1); id < state.NextJobID; id++ {
			job, _, err := r.loadJob(tx, id)
			if err != nil {
				if errors.Is(err, types.ErrJobNotFound) {
					continue
				}
				return err
			}
			if !job.IsActive {
				continue
			}
			if !fn(job) {
				return nil
			}
		}
		return nil
	})
}
