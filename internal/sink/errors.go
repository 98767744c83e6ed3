package sink

import "errors"

// Domain-specific errors for sink operations.
var (
	// ErrUnknownRoute is returned when parsing a route name that does not exist.
	ErrUnknownRoute = errors.New("sink: unknown route")

	// ErrNoBackend is returned when writing to a route with no backend attached.
	ErrNoBackend = errors.New("sink: no backend for route")

	// ErrFileNotOpen is returned when the file route is written before Open.
	ErrFileNotOpen = errors.New("sink: file not open")

	// ErrInvalidFileName is returned for file names that are empty or escape the log directory.
	ErrInvalidFileName = errors.New("sink: invalid file name")

	// ErrUnsupported is returned by backends unavailable on this platform.
	ErrUnsupported = errors.New("sink: not supported on this platform")
)
