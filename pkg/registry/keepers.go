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

// UnregisterCooldown is the minimum quiet period after a keeper's last
// execution before the stake can be withdrawn.
const UnregisterCooldown int64 = 24 * 60 * 60

// RegisterKeeper stakes the caller into the keeper set. The stake moves
// from the caller's wallet onto the keeper account and must meet the
// registry minimum.
func (r *Registry) RegisterKeeper(ctx context.Context, caller solana.PublicKey, stakeAmount uint64) error {
	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		if stakeAmount < state.MinStake {
			return types.ErrInsufficientStake
		}

		keeperAddr, err := accounts.Keeper(r.program, caller)
		if err != nil {
			return err
		}

		keeper := types.Keeper{
			Address:         caller,
			StakeAmount:     stakeAmount,
			ReputationScore: types.InitialReputation,
			IsActive:        true,
			RegisteredAt:    r.now(),
		}

		data, err := accounts.Marshal(keeper)
		if err != nil {
			return err
		}
		if err := tx.Create(keeperAddr, data); err != nil {
			if errors.Is(err, ledger.ErrAccountExists) {
				return types.ErrKeeperExists
			}
			return err
		}
		if err := tx.Transfer(caller, keeperAddr, stakeAmount); err != nil {
			return errors.Wrap(err, "failed to transfer stake")
		}

		state.TotalKeepers++
		state.ActiveKeepers++
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return err
	}

	prommetrics.KeepersRegistered.Inc()
	r.logger.Printf("keeper %s registered with stake %d", caller, stakeAmount)

	return nil
}

// UnregisterKeeper deactivates the caller's keeper and refunds stake plus
// pending rewards. Requires the cooldown since the last execution to have
// elapsed.
func (r *Registry) UnregisterKeeper(ctx context.Context, caller solana.PublicKey) (uint64, error) {
	var refunded uint64

	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		state, stateAddr, err := r.loadState(tx)
		if err != nil {
			return err
		}
		keeper, keeperAddr, err := r.loadKeeper(tx, caller)
		if err != nil {
			return err
		}
		if !keeper.IsActive {
			return types.ErrInvalidKeeper
		}
		if keeper.LastActive != 0 && r.now()-keeper.LastActive < UnregisterCooldown {
			return types.ErrCooldownActive
		}

		refunded, err = types.SafeAdd(keeper.StakeAmount, keeper.PendingRewards)
		if err != nil {
			return err
		}
		if err := tx.Transfer(keeperAddr, caller, refunded); err != nil {
			return errors.Wrap(err, "failed to refund stake")
		}

		keeper.IsActive = false
		keeper.StakeAmount = 0
		keeper.PendingRewards = 0
		if err := r.storeKeeper(tx, keeperAddr, keeper); err != nil {
			return err
		}

		state.ActiveKeepers--
		return r.storeState(tx, stateAddr, state)
	})
	if err != nil {
		return 0, err
	}

	r.logger.Printf("keeper %s unregistered, %d lamports refunded", caller, refunded)
	return refunded, nil
}

// ClaimRewards pays out the caller's pending rewards, moving them into
// lifetime earnings. Pending rewards only ever decrease through this claim.
func (r *Registry) ClaimRewards(ctx context.Context, caller solana.PublicKey) (uint64, error) {
	var claimed uint64

	err := r.ledger.Update(ctx, func(tx ledger.Tx) error {
		keeper, keeperAddr, err := r.loadKeeper(tx, caller)
		if err != nil {
			return err
		}
		if !keeper.IsActive {
			return types.ErrInvalidKeeper
		}
		if keeper.PendingRewards == 0 {
			return types.ErrNoRewardsToClaim
		}

		claimed = keeper.PendingRewards
		if err := tx.Transfer(keeperAddr, caller, claimed); err != nil {
			return errors.Wrap(err, "failed to pay out rewards")
		}

		keeper.TotalEarnings, err = types.SafeAdd(keeper.TotalEarnings, claimed)
		if err != nil {
			return err
		}
		keeper.PendingRewards = 0
		return r.storeKeeper(tx, keeperAddr, keeper)
	})
	if err != nil {
		return 0, err
	}

	prommetrics.RewardsClaimedLamports.Add(float64(claimed))
	r.logger.Printf("keeper %s claimed %d lamports", caller, claimed)

	return claimed, nil
}
