// Package accounts derives the deterministic storage addresses for every
// protocol entity. Any caller can reproduce an address from stable seeds
// plus the entity's natural key without consulting the registry, except for
// job ids, which are discovered from the registry's nextJobId counter.
package accounts

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/types"
)

// Seed prefixes, one per entity kind.
var (
	seedRegistry  = []byte("registry")
	seedJob       = []byte("job")
	seedKeeper    = []byte("keeper")
	seedExecution = []byte("execution")
)

// Registry returns the singleton registry state address for a program.
func Registry(program solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedRegistry}, program)
	if err != nil {
		return solana.PublicKey{}, errors.Wrap(err, "failed to derive registry address")
	}
	return addr, nil
}

// Job returns the storage address for a job id.
func Job(program solana.PublicKey, id types.JobID) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedJob, le64(uint64(id))}, program)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "failed to derive job address for id %d", id)
	}
	return addr, nil
}

// Keeper returns the storage address for a keeper wallet.
func Keeper(program, keeper solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{seedKeeper, keeper.Bytes()}, program)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "failed to derive keeper address for %s", keeper)
	}
	return addr, nil
}

// ExecutionRecord returns the storage address for the receipt of one
// execution attempt. Sequence is the job's execution count at the moment of
// the attempt; the uniqueness of this address is the at-most-once settlement
// anchor.
func ExecutionRecord(program solana.PublicKey, id types.JobID, sequence uint64) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{seedExecution, le64(uint64(id)), le64(sequence)},
		program,
	)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "failed to derive execution record address for job %d seq %d", id, sequence)
	}
	return addr, nil
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}
