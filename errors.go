package vectorcore

import "errors"

// Error taxonomy shared by every component in the module. Components wrap
// these sentinels with fmt.Errorf("...: %w", ...) so callers can match the
// condition with errors.Is while keeping operation-specific detail in the
// message.
var (
	// ErrInvalidArgument is returned for out-of-range enum values or
	// malformed parameters.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyExists is returned on duplicate operator registration or a
	// duplicate label allocation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable is returned when no operator is registered for a
	// requested (metric, data type, tier) triple, or when an allocation
	// fails at the allocation boundary.
	ErrUnavailable = errors.New("unavailable")

	// ErrResourceExhausted is returned when the identifier space is full.
	ErrResourceExhausted = errors.New("resource exhausted")

	// ErrOutOfRange is returned when a local id or label is not found, or a
	// local id lies at or above the configured capacity.
	ErrOutOfRange = errors.New("out of range")

	// ErrFailedPrecondition is returned when a mutation is attempted on a
	// finalized registry or an uninitialized identifier manager.
	ErrFailedPrecondition = errors.New("failed precondition")
)
