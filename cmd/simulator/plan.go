package main

import (
	"os"

	"github.com/gagliardetto/solana-go"
	"github.com/goccy/go-json"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/solcron/solcron-go/pkg/types"
)

// Plan describes one simulation: registry parameters, the keeper fleet and
// the jobs they compete over.
type Plan struct {
	BaseFee         uint64  `json:"baseFee"`
	MinStake        uint64  `json:"minStake"`
	ProtocolFeeBps  uint16  `json:"protocolFeeBps"`
	DurationSeconds int     `json:"durationSeconds"`
	PollMillis      int     `json:"pollMillis"`
	Keepers         []PlanKeeper `json:"keepers"`
	Jobs            []PlanJob    `json:"jobs"`
	// Feed seeds the off-chain variable feed conditional predicates read.
	Feed map[string]float64 `json:"feed,omitempty"`
	// Events seeds the observed event signatures for log triggers.
	Events []string `json:"events,omitempty"`
}

type PlanKeeper struct {
	Stake uint64 `json:"stake"`
}

type PlanJob struct {
	Instruction string        `json:"instruction"`
	Trigger     types.Trigger `json:"trigger"`
	GasLimit    uint64        `json:"gasLimit"`
	MinBalance  uint64        `json:"minBalance"`
	Funding     uint64        `json:"funding"`
	// TargetProgram optionally pins the target program id, base58 encoded.
	// A random program id is generated when empty.
	TargetProgram string `json:"targetProgram,omitempty"`
}

// targetProgram resolves the job's target program id, generating one when
// the plan leaves it unset.
func (j PlanJob) targetProgram() (solana.PublicKey, error) {
	if j.TargetProgram == "" {
		return solana.NewWallet().PublicKey(), nil
	}
	raw, err := base58.Decode(j.TargetProgram)
	if err != nil {
		return solana.PublicKey{}, errors.Wrapf(err, "invalid target program %q", j.TargetProgram)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, errors.Errorf("target program %q is not a 32 byte key", j.TargetProgram)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// LoadPlan reads and validates a simulation plan file.
func LoadPlan(path string) (Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, errors.Wrapf(err, "failed to read plan file %s", path)
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return Plan{}, errors.Wrap(err, "failed to parse plan file")
	}

	if plan.BaseFee == 0 {
		plan.BaseFee = 5_000
	}
	if plan.MinStake == 0 {
		plan.MinStake = types.LamportsPerSOL
	}
	if plan.DurationSeconds == 0 {
		plan.DurationSeconds = 10
	}
	if plan.PollMillis == 0 {
		plan.PollMillis = 250
	}
	if len(plan.Keepers) == 0 {
		return Plan{}, errors.New("plan needs at least one keeper")
	}
	if len(plan.Jobs) == 0 {
		return Plan{}, errors.New("plan needs at least one job")
	}

	for i, job := range plan.Jobs {
		if err := job.Trigger.Validate(); err != nil {
			return Plan{}, errors.Wrapf(err, "job %d has an invalid trigger", i)
		}
		if _, err := job.targetProgram(); err != nil {
			return Plan{}, errors.Wrapf(err, "job %d", i)
		}
	}

	return plan, nil
}
