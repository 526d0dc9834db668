package registry

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/prommetrics"
	"github.com/solcron/solcron-go/pkg/types"
)

// ParamUpdate carries the independently optional registry parameter
// changes. Nil fields are left unchanged.
type ParamUpdate struct {
	BaseFee        *uint64
	MinStake       *uint64
	ProtocolFeeBps *uint16
}

// UpdateParams applies admin changes to the registry fee parameters.
func (r *Registry) UpdateParams(ctx context.Context, caller solana.PublicKey, u ParamUpdate) error {
	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if state.Admin != caller {
			return types.ErrUnauthorized
		}

		if u.BaseFee != nil {
			if *u.BaseFee == 0 {
				return errors.Wrap(types.ErrInvalidParameters, "base fee cannot be zero")
			}
			state.BaseFee = *u.BaseFee
		}
		if u.MinStake != nil {
			if *u.MinStake == 0 {
				return errors.Wrap(types.ErrInvalidParameters, "min stake cannot be zero")
			}
			state.MinStake = *u.MinStake
		}
		if u.ProtocolFeeBps != nil {
			if *u.ProtocolFeeBps > 10_000 {
				return errors.Wrapf(types.ErrInvalidParameters, "protocol fee bps %d out of range [0, 10000]", *u.ProtocolFeeBps)
			}
			state.ProtocolFeeBps = *u.ProtocolFeeBps
		}

		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return err
	}

	r.logger.Printf("registry parameters updated by %s", caller)
	return nil
}

// SlashKeeper forfeits up to amount of a keeper's stake to the treasury and
// applies a flat reputation penalty. Admin only. The keeper is not
// deactivated; operators decide separately whether a slashed keeper keeps
// working.
func (r *Registry) SlashKeeper(ctx context.Context, caller, keeperAddress solana.PublicKey, amount uint64, reason string) (uint64, error) {
	if amount == 0 {
		return 0, errors.Wrap(types.ErrInvalidParameters, "slash amount cannot be zero")
	}
	if reason == "" {
		return 0, errors.Wrap(types.ErrInvalidParameters, "slash reason cannot be empty")
	}

	var slashed uint64
	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if state.Admin != caller {
			return types.ErrUnauthorized
		}

		keeper, keeperAddr, err := r.loadKeeper(tx, keeperAddress)
		if err != nil {
			return err
		}

		slashed = amount
		if slashed > keeper.StakeAmount {
			slashed = keeper.StakeAmount
		}
		if err := tx.Transfer(keeperAddr, state.Treasury, slashed); err != nil {
			return errors.Wrap(err, "failed to transfer slashed stake")
		}

		keeper.StakeAmount -= slashed
		keeper.ReputationScore = types.ClampReputation(keeper.ReputationScore, -int64(types.SlashReputation))
		if err := r.storeKeeper(tx, keeperAddr, keeper); err != nil {
			return err
		}

		state.ProtocolRevenue, err = types.SafeAdd(state.ProtocolRevenue, slashed)
		if err != nil {
			return err
		}
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return 0, err
	}

	prommetrics.KeepersSlashed.Inc()
	r.logger.Printf("keeper %s slashed %d lamports: %s", keeperAddress, slashed, reason)

	return slashed, nil
}

// TransferAdmin hands the admin identity to a new key.
func (r *Registry) TransferAdmin(ctx context.Context, caller, newAdmin solana.PublicKey) error {
	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if state.Admin != caller {
			return types.ErrUnauthorized
		}

		state.Admin = newAdmin
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return err
	}

	r.logger.Printf("admin transferred from %s to %s", caller, newAdmin)
	return nil
}

// SetPaused toggles the emergency pause. While paused, job registration and
// execution are rejected; funding, cancellation and claims stay available.
func (r *Registry) SetPaused(ctx context.Context, caller solana.PublicKey, paused bool) error {
	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if state.Admin != caller {
			return types.ErrUnauthorized
		}

		state.Paused = paused
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return err
	}

	r.logger.Printf("registry paused=%t", paused)
	return nil
}
