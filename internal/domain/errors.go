package domain

import "errors"

// Error taxonomy for the negotiation lifecycle. Callers discriminate with
// errors.Is; layers add context with fmt.Errorf("...: %w", err).
var (
	// ErrValidation marks missing or malformed input
	ErrValidation = errors.New("invalid input")

	// ErrNotFound is returned when no contract matches the given identifier
	ErrNotFound = errors.New("contract not found")

	// ErrDuplicateKey is returned by Create when the negotiation already has a contract
	ErrDuplicateKey = errors.New("negotiation already has a contract")

	// ErrPreconditionFailed marks a transition whose step/status gate is not satisfied
	ErrPreconditionFailed = errors.New("previous steps not completed")

	// ErrStepNotReached marks an email confirmation attempted before the contract froze
	ErrStepNotReached = errors.New("contract not frozen yet")

	// ErrContractCancelled marks any transition attempted on a cancelled contract
	ErrContractCancelled = errors.New("contract is cancelled")

	// ErrTransientConflict marks a storage race that exhausted its internal retries
	ErrTransientConflict = errors.New("transient storage conflict")

	// ErrDependencyFailure marks an external collaborator failing mid-transition;
	// the surrounding operation is left safely retryable
	ErrDependencyFailure = errors.New("external dependency failed")
)
