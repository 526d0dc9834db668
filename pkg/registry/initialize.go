package registry

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/accounts"
	"github.com/solcron/solcron-go/pkg/ledger"
	"github.com/solcron/solcron-go/pkg/types"
)

// InitParams are the global parameters set at registry creation.
type InitParams struct {
	Admin          solana.PublicKey
	Treasury       solana.PublicKey
	BaseFee        uint64
	MinStake       uint64
	ProtocolFeeBps uint16
}

// Initialize creates the singleton registry state account. Fails if the
// registry already exists or any parameter is out of range.
func (r *Registry) Initialize(ctx context.Context, p InitParams) error {
	state := types.RegistryState{
		Admin:          p.Admin,
		Treasury:       p.Treasury,
		BaseFee:        p.BaseFee,
		MinStake:       p.MinStake,
		ProtocolFeeBps: p.ProtocolFeeBps,
		NextJobID:      1,
	}

	if err := state.Validate(); err != nil {
		return errors.Wrap(types.ErrInvalidParameters, err.Error())
	}

	addr, err := accounts.Registry(r.program)
	if err != nil {
		return err
	}

	data, err := accounts.Marshal(state)
	if err != nil {
		return err
	}

	err = r.ledger.Update(ctx, func(tx ledger.Tx) error {
		return tx.Create(addr, data)
	})
	if err != nil {
		return errors.Wrap(err, "failed to initialize registry")
	}

	r.logger.Printf("registry initialized: admin=%s treasury=%s baseFee=%d minStake=%d feeBps=%d",
		p.Admin, p.Treasury, p.BaseFee, p.MinStake, p.ProtocolFeeBps)

	return nil
}
