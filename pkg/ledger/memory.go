package ledger

import (
	"context"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// Memory is an in-process ledger. A single mutex serializes transactions,
// giving the same total order over conflicting writes a real ledger
// provides; staged copies keep every transaction all-or-nothing.
type Memory struct {
	mu       sync.Mutex
	accounts map[solana.PublicKey]Account
	invoker  Invoker
}

// NewMemory returns an empty ledger. The default invoker accepts every
// target call; use SetInvoker to simulate downstream failures.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[solana.PublicKey]Account),
		invoker: func(context.Context, solana.PublicKey, string, []byte) error {
			return nil
		},
	}
}

// SetInvoker replaces the delegated target-call handler.
func (m *Memory) SetInvoker(inv Invoker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoker = inv
}

// Fund credits lamports to an account directly, creating it if needed.
// Genesis helper for tests and simulations.
func (m *Memory) Fund(key solana.PublicKey, lamports uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.accounts[key]
	acct.Lamports += lamports
	m.accounts[key] = acct
}

// Balance reports an account's lamports, zero if the account is unknown.
func (m *Memory) Balance(key solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[key].Lamports
}

func (m *Memory) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		ctx:     ctx,
		base:    m.accounts,
		staged:  make(map[solana.PublicKey]Account),
		exists:  make(map[solana.PublicKey]bool),
		invoker: m.invoker,
	}

	if err := fn(tx); err != nil {
		return err
	}

	for key, acct := range tx.staged {
		m.accounts[key] = acct
	}
	return nil
}

func (m *Memory) View(ctx context.Context, fn func(tx ReadTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return fn(&memTx{base: m.accounts, staged: map[solana.PublicKey]Account{}, exists: map[solana.PublicKey]bool{}})
}

type memTx struct {
	ctx    context.Context
	base   map[solana.PublicKey]Account
	staged map[solana.PublicKey]Account
	// exists tracks keys created within this transaction so a second
	// Create on the same key fails even before commit.
	exists  map[solana.PublicKey]bool
	invoker Invoker
}

func (tx *memTx) lookup(key solana.PublicKey) (Account, bool) {
	if acct, ok := tx.staged[key]; ok {
		return acct, true
	}
	acct, ok := tx.base[key]
	return acct, ok
}

func (tx *memTx) Read(key solana.PublicKey) (Account, error) {
	acct, ok := tx.lookup(key)
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	// copy data so callers cannot mutate committed state in place
	cp := acct
	cp.Data = append([]byte(nil), acct.Data...)
	return cp, nil
}

func (tx *memTx) Create(key solana.PublicKey, data []byte) error {
	if _, ok := tx.base[key]; ok {
		return ErrAccountExists
	}
	if tx.exists[key] {
		return ErrAccountExists
	}
	tx.exists[key] = true
	tx.staged[key] = Account{Data: append([]byte(nil), data...)}
	return nil
}

func (tx *memTx) Write(key solana.PublicKey, data []byte) error {
	acct, ok := tx.lookup(key)
	if !ok {
		return ErrAccountNotFound
	}
	acct.Data = append([]byte(nil), data...)
	tx.staged[key] = acct
	return nil
}

func (tx *memTx) Transfer(from, to solana.PublicKey, lamports uint64) error {
	if lamports == 0 {
		return nil
	}

	src, ok := tx.lookup(from)
	if !ok || src.Lamports < lamports {
		return ErrInsufficientFunds
	}

	dst, _ := tx.lookup(to)

	src.Lamports -= lamports
	dst.Lamports += lamports
	tx.staged[from] = src
	tx.staged[to] = dst
	return nil
}

func (tx *memTx) Invoke(ctx context.Context, program solana.PublicKey, instruction string, payload []byte) error {
	return tx.invoker(ctx, program, instruction, payload)
}
