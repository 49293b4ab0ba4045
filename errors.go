package spatialgo

import (
	"errors"
	"fmt"

	"github.com/hupe1980/spatialgo/engine"
	"github.com/hupe1980/spatialgo/grid"
	"github.com/hupe1980/spatialgo/query"
)

var (
	// ErrUnknownEntity is returned when an operation references an entity
	// the index does not track.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNonFiniteCenter is returned when a query center carries a NaN or
	// infinite coordinate.
	ErrNonFiniteCenter = errors.New("query center must be finite")

	// ErrInvalidDirection is returned when a ray direction is zero or
	// non-finite.
	ErrInvalidDirection = errors.New("ray direction must be finite and non-zero")
)

// ErrDuplicateEntity indicates a batch referencing the same entity more than
// once. The whole batch is rejected.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDuplicateEntity struct {
	Entity uint64
	cause  error
}

func (e *ErrDuplicateEntity) Error() string {
	return fmt.Sprintf("duplicate entity in batch: %d", e.Entity)
}

func (e *ErrDuplicateEntity) Unwrap() error { return e.cause }

// ErrNonFinitePosition indicates a batch entry carrying a NaN or infinite
// coordinate. The whole batch is rejected.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrNonFinitePosition struct {
	Entity uint64
	X, Y   float64
	cause  error
}

func (e *ErrNonFinitePosition) Error() string {
	return fmt.Sprintf("non-finite position for entity %d: (%g, %g)", e.Entity, e.X, e.Y)
}

func (e *ErrNonFinitePosition) Unwrap() error { return e.cause }

// ErrBatchTooLarge indicates a batch exceeding the configured size limit.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrBatchTooLarge struct {
	Size  int
	Limit int
	cause error
}

func (e *ErrBatchTooLarge) Error() string {
	return fmt.Sprintf("batch too large: %d changes, limit %d", e.Size, e.Limit)
}

func (e *ErrBatchTooLarge) Unwrap() error { return e.cause }

// ErrInvalidRadius indicates a negative or non-finite query radius.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidRadius struct {
	Radius float64
	cause  error
}

func (e *ErrInvalidRadius) Error() string {
	return fmt.Sprintf("invalid radius: %g", e.Radius)
}

func (e *ErrInvalidRadius) Unwrap() error { return e.cause }

// ErrInvalidMaxDistance indicates a non-positive or non-finite ray length.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidMaxDistance struct {
	MaxDistance float64
	cause       error
}

func (e *ErrInvalidMaxDistance) Error() string {
	return fmt.Sprintf("invalid max distance: %g", e.MaxDistance)
}

func (e *ErrInvalidMaxDistance) Unwrap() error { return e.cause }

// ErrInvalidCellSize indicates a non-positive or non-finite configured cell
// size.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidCellSize struct {
	CellSize float64
	cause    error
}

func (e *ErrInvalidCellSize) Error() string {
	return fmt.Sprintf("invalid cell size: %g", e.CellSize)
}

func (e *ErrInvalidCellSize) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, engine.ErrUnknownEntity) {
		return fmt.Errorf("%w: %w", ErrUnknownEntity, err)
	}

	// Batch validation normalization.
	var de *engine.ErrDuplicateEntity
	if errors.As(err, &de) {
		return &ErrDuplicateEntity{Entity: de.Entity, cause: err}
	}
	var nf *engine.ErrNonFinitePosition
	if errors.As(err, &nf) {
		return &ErrNonFinitePosition{Entity: nf.Entity, X: nf.X, Y: nf.Y, cause: err}
	}
	var bl *engine.ErrBatchTooLarge
	if errors.As(err, &bl) {
		return &ErrBatchTooLarge{Size: bl.Size, Limit: bl.Limit, cause: err}
	}

	// Query argument normalization.
	if errors.Is(err, query.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}
	if errors.Is(err, query.ErrNonFiniteCenter) {
		return fmt.Errorf("%w: %w", ErrNonFiniteCenter, err)
	}
	if errors.Is(err, query.ErrInvalidDirection) {
		return fmt.Errorf("%w: %w", ErrInvalidDirection, err)
	}
	var ir *query.ErrInvalidRadius
	if errors.As(err, &ir) {
		return &ErrInvalidRadius{Radius: ir.Radius, cause: err}
	}
	var md *query.ErrInvalidMaxDistance
	if errors.As(err, &md) {
		return &ErrInvalidMaxDistance{MaxDistance: md.MaxDistance, cause: err}
	}

	// Configuration normalization.
	var cs *grid.ErrInvalidCellSize
	if errors.As(err, &cs) {
		return &ErrInvalidCellSize{CellSize: cs.CellSize, cause: err}
	}

	return err
}
