// Package ledger abstracts the serializing account store the protocol runs
// against. The ledger applies conflicting writes in a total order and
// commits each transaction atomically; the registry relies on that, plus
// unique-key account creation, for its at-most-once settlement guarantee.
package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrAccountNotFound is returned on reads of keys that were never
	// created or credited.
	ErrAccountNotFound = fmt.Errorf("account not found")
	// ErrAccountExists is returned by Create when the key is already
	// taken. This failure is the concurrency safety net: only the first
	// attempt to create a derived key commits.
	ErrAccountExists = fmt.Errorf("account already exists")
	// ErrInsufficientFunds is returned by Transfer when the source holds
	// fewer lamports than requested.
	ErrInsufficientFunds = fmt.Errorf("insufficient funds")
)

// Account is the stored state at one address: a lamport balance plus opaque
// data.
type Account struct {
	Lamports uint64
	Data     []byte
}

// Invoker performs the delegated call to a target program during execution
// settlement. A returned error marks the execution attempt failed; the fee
// is still charged.
type Invoker func(ctx context.Context, program solana.PublicKey, instruction string, payload []byte) error

// ReadTx is a consistent read-only snapshot.
type ReadTx interface {
	Read(key solana.PublicKey) (Account, error)
}

// Tx is one atomic transaction. Writes are staged and either commit as a
// whole or are discarded; no partial state is ever visible.
type Tx interface {
	ReadTx
	// Create allocates a new account at key. Fails with ErrAccountExists
	// if the key is taken, including by an earlier Create in the same
	// transaction.
	Create(key solana.PublicKey, data []byte) error
	// Write replaces the data of an existing account.
	Write(key solana.PublicKey, data []byte) error
	// Transfer moves lamports between accounts, creating the destination
	// implicitly if needed.
	Transfer(from, to solana.PublicKey, lamports uint64) error
	// Invoke calls the target program with an opaque payload.
	Invoke(ctx context.Context, program solana.PublicKey, instruction string, payload []byte) error
}

// Ledger serializes transactions against the account store.
type Ledger interface {
	// Update runs fn inside one atomic transaction. When fn returns an
	// error the staged writes are discarded and the error is returned
	// unchanged.
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View runs fn against a consistent read-only snapshot.
	View(ctx context.Context, fn func(tx ReadTx) error) error
}
