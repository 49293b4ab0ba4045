package engine

import (
	"errors"
	"fmt"
)

// ErrUnknownEntity is returned when an operation references an entity the
// index has never seen (or has already removed).
//
// This is an engine-layer sentinel; the spatialgo package may translate it
// into its public error contract.
var ErrUnknownEntity = errors.New("unknown entity")

// ErrDuplicateEntity indicates that one batch referenced the same entity in
// two different changes. The batcher does not deduplicate; this is a caller
// contract violation and the whole batch is rejected before any mutation.
type ErrDuplicateEntity struct {
	Entity uint64
}

func (e *ErrDuplicateEntity) Error() string {
	return fmt.Sprintf("duplicate entity in batch: %d", e.Entity)
}

// ErrNonFinitePosition indicates a NaN or infinite coordinate in a change.
// Silently accepting it would corrupt partition membership for all
// subsequent queries, so the whole batch is rejected.
type ErrNonFinitePosition struct {
	Entity uint64
	X      float64
	Y      float64
}

func (e *ErrNonFinitePosition) Error() string {
	return fmt.Sprintf("non-finite position for entity %d: (%g, %g)", e.Entity, e.X, e.Y)
}

// ErrBatchTooLarge indicates a batch over the configured size limit.
type ErrBatchTooLarge struct {
	Size  int
	Limit int
}

func (e *ErrBatchTooLarge) Error() string {
	return fmt.Sprintf("batch size %d exceeds limit %d", e.Size, e.Limit)
}
