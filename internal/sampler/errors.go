package sampler

import "errors"

var (
	// ErrAlreadyRunning is returned by Start while sampling.
	ErrAlreadyRunning = errors.New("sampler: already running")

	// ErrNotRunning is returned by Stop when idle.
	ErrNotRunning = errors.New("sampler: not running")

	// ErrInvalidPeriod indicates a period outside the allowed range.
	ErrInvalidPeriod = errors.New("sampler: invalid period")

	// ErrInvalidFileName indicates a file name with path separators or
	// characters not allowed in file names.
	ErrInvalidFileName = errors.New("sampler: invalid file name")

	// ErrFileExists indicates the target file is already present.
	ErrFileExists = errors.New("sampler: file already exists")

	// ErrUnknownSource indicates a source name with no collector.
	ErrUnknownSource = errors.New("sampler: unknown source")

	// ErrSchemaMismatch indicates a sample whose keys differ from the locked schema.
	ErrSchemaMismatch = errors.New("sampler: sample does not match schema")
)
