package state

import "errors"

var (
	// ErrInvalidStateTransition indicates a lifecycle operation that is not
	// legal in the channel's current state. It signals caller misuse and is
	// not retryable.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNonMonotonicUpdate indicates an update amount below the latest
	// issued update. Amounts owed to the payee only ever grow.
	ErrNonMonotonicUpdate = errors.New("update amount below latest update")

	// ErrCapacityExceeded indicates an update amount above the channel
	// capacity.
	ErrCapacityExceeded = errors.New("update amount exceeds channel capacity")
)
