package primitive

import "errors"

// Domain-specific errors for primitive reads.
var (
	// ErrUnsupported is returned for a primitive the executor cannot serve.
	ErrUnsupported = errors.New("primitive: unsupported primitive")

	// ErrNoBinding is returned when the directory has no binding for the domain.
	ErrNoBinding = errors.New("primitive: domain has no binding")

	// ErrReadFailed is returned when the backing host object cannot be read.
	ErrReadFailed = errors.New("primitive: read failed")

	// ErrNoBaseline is returned by counter-derived primitives on their first read.
	ErrNoBaseline = errors.New("primitive: no baseline sample yet")
)
