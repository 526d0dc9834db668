package types

import (
	"fmt"
	"math/bits"

	"github.com/gagliardetto/solana-go"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL uint64 = 1_000_000_000

// Policy bounds enforced at registration and update time.
const (
	// MaxGasLimit is the upper bound on compute units a single execution
	// may be charged for.
	MaxGasLimit uint64 = 1_400_000
	// MaxInstructionLen bounds the target instruction name stored with a job.
	MaxInstructionLen = 50
	// MaxTriggerParamLen bounds the serialized trigger payload stored with
	// a job.
	MaxTriggerParamLen = 256
)

// Reputation bounds and adjustments. Scores live in [0, MaxReputation] and
// are clamped after every adjustment.
const (
	MaxReputation     uint64 = 10_000
	InitialReputation uint64 = 5_000
	SlashReputation   uint64 = 2_000
)

// JobID identifies a job within the registry. IDs are assigned from the
// registry's nextJobId counter and are never reused.
type JobID uint64

// RegistryState is the process-wide protocol state: fee parameters, the job
// id counter and observability counters. There is exactly one registry
// account per program deployment.
type RegistryState struct {
	// Admin is authorized for parameter changes and slashing.
	Admin solana.PublicKey
	// Treasury receives the protocol's fee share and slashed stakes.
	Treasury solana.PublicKey
	// BaseFee is the fixed minimum lamport fee charged per execution.
	BaseFee uint64
	// MinStake is the minimum stake required to register as a keeper.
	MinStake uint64
	// ProtocolFeeBps is the protocol's share of each execution fee in
	// basis points, 0-10000.
	ProtocolFeeBps uint16
	// NextJobID is the id the next registered job receives. Strictly
	// increasing, starts at 1.
	NextJobID JobID
	TotalJobs uint64
	// ActiveJobs counts jobs that are neither cancelled nor starved of
	// funds. Always <= TotalJobs.
	ActiveJobs           uint64
	TotalKeepers         uint64
	ActiveKeepers        uint64
	TotalExecutions      uint64
	SuccessfulExecutions uint64
	// ProtocolRevenue is the lifetime lamports credited to the treasury
	// through fees and slashing.
	ProtocolRevenue uint64
	// Paused rejects job registration and execution while set.
	Paused bool
}

// Validate checks the registry parameter ranges.
func (s RegistryState) Validate() error {
	if s.BaseFee == 0 {
		return fmt.Errorf("base fee cannot be zero")
	}
	if s.MinStake == 0 {
		return fmt.Errorf("min stake cannot be zero")
	}
	if s.ProtocolFeeBps > 10_000 {
		return fmt.Errorf("protocol fee bps %d out of range [0, 10000]", s.ProtocolFeeBps)
	}
	return nil
}

// AutomationJob is a funded, schedulable unit of work. The job's lamport
// balance lives on the job account itself; Balance mirrors it so readers do
// not need the ledger to reason about funding.
type AutomationJob struct {
	JobID JobID
	// Owner is the only identity allowed to fund, update or cancel the job.
	Owner solana.PublicKey
	// TargetProgram and TargetInstruction describe the call performed on
	// execution. Opaque to the registry.
	TargetProgram     solana.PublicKey
	TargetInstruction string
	TriggerType       TriggerType
	// TriggerParams is the serialized trigger condition, decoded with
	// DecodeTrigger.
	TriggerParams []byte
	// GasLimit caps the compute units an execution may charge against the
	// job's balance.
	GasLimit uint64
	// Balance is the prepaid funding remaining, in lamports.
	Balance uint64
	// MinBalance is the floor below which the job auto-deactivates.
	MinBalance uint64
	// IsActive is false once the job is cancelled or starved of funds.
	// Cancellation is terminal.
	IsActive       bool
	ExecutionCount uint64
	// LastExecution is the unix time of the most recent execution, zero if
	// the job has never run.
	LastExecution int64
	CreatedAt     int64
	UpdatedAt     int64
}

// Trigger decodes the job's stored trigger condition.
func (j AutomationJob) Trigger() (Trigger, error) {
	return DecodeTrigger(j.TriggerType, j.TriggerParams)
}

// Keeper is a staked, reputation-tracked execution actor. Keepers are keyed
// by wallet address; the staked lamports live on the keeper account.
type Keeper struct {
	Address solana.PublicKey
	// StakeAmount is the lamports at risk. Checked against MinStake at
	// registration only.
	StakeAmount uint64
	// ReputationScore is in [0, MaxReputation], initialized to
	// InitialReputation.
	ReputationScore      uint64
	IsActive             bool
	SuccessfulExecutions uint64
	FailedExecutions     uint64
	// ConsecutiveSuccesses and ConsecutiveFailures feed the reputation
	// adjustment; each resets when the other streak starts.
	ConsecutiveSuccesses uint64
	ConsecutiveFailures  uint64
	// TotalEarnings is the lifetime rewards claimed. PendingRewards only
	// moves to TotalEarnings through a claim, never through execution
	// failures.
	TotalEarnings  uint64
	PendingRewards uint64
	LastActive     int64
	RegisteredAt   int64
}

// ExecutionRecord is the immutable receipt of one execution attempt, keyed
// by (JobID, Sequence) where Sequence is the job's execution count at the
// moment of the attempt. The unique key is what rejects a second settlement
// of the same eligibility window.
type ExecutionRecord struct {
	JobID    JobID
	Sequence uint64
	Keeper   solana.PublicKey
	// Timestamp is the unix time the attempt settled.
	Timestamp int64
	// Success is false when the target call failed downstream; the fee is
	// charged either way.
	Success bool
	GasUsed uint64
	// FeePaid is the full execution fee deducted from the job balance.
	FeePaid   uint64
	ErrorCode *uint32 `bin:"optional"`
}

// ExecutionFee computes baseFee + gasUsed*gasPrice. The caller is expected
// to have bounded gasUsed by the job's gas limit.
func ExecutionFee(baseFee, gasUsed, gasPrice uint64) (uint64, error) {
	cost, err := SafeMul(gasUsed, gasPrice)
	if err != nil {
		return 0, err
	}
	return SafeAdd(baseFee, cost)
}

// SplitFee divides an execution fee into the protocol share and the keeper
// reward. The floor lands on the protocol side only, so the two parts always
// sum to the fee exactly.
func SplitFee(fee uint64, protocolFeeBps uint16) (protocolFee, keeperReward uint64) {
	hi, lo := bits.Mul64(fee, uint64(protocolFeeBps))
	// hi < 10000 for any bps <= 10000, so the division cannot overflow.
	protocolFee, _ = bits.Div64(hi, lo, 10_000)
	return protocolFee, fee - protocolFee
}

// SafeAdd returns a+b or ErrMathOverflow.
func SafeAdd(a, b uint64) (uint64, error) {
	if b > 0 && a > (1<<64-1)-b {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

// SafeMul returns a*b or ErrMathOverflow.
func SafeMul(a, b uint64) (uint64, error) {
	if a != 0 && b > (1<<64-1)/a {
		return 0, ErrMathOverflow
	}
	return a * b, nil
}

// ReputationChange returns the signed adjustment for one execution outcome,
// given the keeper's streaks before the outcome is recorded. Successes earn
// a base credit plus a capped streak bonus; failures cost double the base
// plus an escalating streak penalty.
func ReputationChange(success bool, consecutiveSuccesses, consecutiveFailures uint64) int64 {
	const base = 100

	if success {
		bonus := consecutiveSuccesses * 10
		if bonus > 200 {
			bonus = 200
		}
		return int64(base + bonus)
	}

	return -int64(base*2 + consecutiveFailures*50)
}

// ClampReputation applies a signed change to a score and clamps the result
// to [0, MaxReputation].
func ClampReputation(score uint64, change int64) uint64 {
	if change >= 0 {
		next := score + uint64(change)
		if next > MaxReputation || next < score {
			return MaxReputation
		}
		return next
	}
	drop := uint64(-change)
	if drop >= score {
		return 0
	}
	return score - drop
}
