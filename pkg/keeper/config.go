// Package keeper is the off-chain automation node: it watches the registry
// for eligible jobs and races to settle them, earning execution fees. Many
// independent nodes run concurrently; losing a race to another keeper is
// routine.
package keeper

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Config holds a node's operating parameters.
type Config struct {
	// Wallet is the keeper identity; it must be registered and staked
	// before the node starts.
	Wallet solana.PublicKey
	// PollInterval is the cadence of eligibility scans.
	PollInterval time.Duration
	// Workers bounds the concurrent execution submissions.
	Workers int
	// QueueSize bounds the pending execution requests between scans and
	// workers; eligible jobs past the bound are picked up next scan.
	QueueSize int
	// GasPrice is the lamport price per compute unit the node reports.
	GasPrice uint64
	// ClaimThreshold triggers a reward claim once pending rewards reach
	// it. Zero disables automatic claiming.
	ClaimThreshold uint64
}

// DefaultConfig returns the settings a node starts from.
func DefaultConfig(wallet solana.PublicKey) Config {
	return Config{
		Wallet:         wallet,
		PollInterval:   5 * time.Second,
		Workers:        4,
		QueueSize:      64,
		GasPrice:       1,
		ClaimThreshold: 1_000_000,
	}
}

// Validate checks the configuration ranges.
func (c Config) Validate() error {
	if c.Wallet.IsZero() {
		return fmt.Errorf("keeper wallet cannot be empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.GasPrice == 0 {
		return fmt.Errorf("gas price cannot be zero")
	}
	return nil
}
