package types

import "fmt"

// Protocol errors. Every operation rejects before mutating state; routine
// racing between keepers surfaces as ErrInvalidTrigger or ErrRecordExists
// and is not a system fault.
var (
	// ErrUnauthorized indicates the caller is not the owner, admin or
	// keeper identity the operation requires.
	ErrUnauthorized = fmt.Errorf("unauthorized: caller does not hold the required identity")
	// ErrInvalidJob indicates the job exists but is inactive; cancellation
	// is terminal.
	ErrInvalidJob = fmt.Errorf("invalid job: job is not active")
	// ErrJobNotFound indicates no job account exists for the id.
	ErrJobNotFound = fmt.Errorf("job not found")
	// ErrKeeperNotFound indicates no keeper account exists for the address.
	ErrKeeperNotFound = fmt.Errorf("keeper not found")
	// ErrInvalidKeeper indicates the keeper exists but is inactive.
	ErrInvalidKeeper = fmt.Errorf("invalid keeper: keeper is not active")
	// ErrInsufficientBalance indicates a funding floor or fee deduction
	// could not be met.
	ErrInsufficientBalance = fmt.Errorf("insufficient balance")
	// ErrInsufficientStake indicates the offered stake is below the
	// registry minimum.
	ErrInsufficientStake = fmt.Errorf("insufficient stake")
	// ErrInvalidTrigger indicates the trigger condition does not currently
	// hold. Expected under normal keeper racing.
	ErrInvalidTrigger = fmt.Errorf("invalid trigger: condition not met")
	// ErrGasLimitExceeded indicates the reported gas usage is above the
	// job's gas limit.
	ErrGasLimitExceeded = fmt.Errorf("gas limit exceeded")
	// ErrInvalidParameters indicates a validation failure on operation
	// inputs.
	ErrInvalidParameters = fmt.Errorf("invalid parameters")
	// ErrNoRewardsToClaim indicates the keeper has no pending rewards.
	ErrNoRewardsToClaim = fmt.Errorf("no rewards to claim")
	// ErrCooldownActive indicates the keeper executed too recently to
	// unregister.
	ErrCooldownActive = fmt.Errorf("cooldown period active")
	// ErrRegistryPaused indicates the registry is paused for registrations
	// and executions.
	ErrRegistryPaused = fmt.Errorf("registry is paused")
	// ErrRecordExists indicates an execution record already settled this
	// eligibility window. Expected under normal keeper racing.
	ErrRecordExists = fmt.Errorf("execution record already exists")
	// ErrKeeperExists indicates the address already registered as a keeper.
	ErrKeeperExists = fmt.Errorf("keeper already registered")
	// ErrMathOverflow indicates a lamport calculation overflowed.
	ErrMathOverflow = fmt.Errorf("math overflow")
)
