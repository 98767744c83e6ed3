package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// dirPermissions is the permission mode for the log directory.
	dirPermissions = 0750

	// filePermissions is the permission mode for log files.
	filePermissions = 0640

	defaultExtension = ".csv"
)

// FileBackend appends lines to a file in a fixed directory.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type FileBackend struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	f    *os.File
	path string
}

// NewFile creates a file backend writing below dir.
func NewFile(dir string) *FileBackend {
	return &FileBackend{dir: dir, now: time.Now}
}

// DefaultFileName returns the timestamped name used when none is given.
func DefaultFileName(t time.Time) string {
	return fmt.Sprintf("participant_log_%04d-%02d-%02d-%02d%02d%02d%s",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), defaultExtension)
}

// Open closes any open file and opens name for appending, creating the
// directory and the file as needed. An empty name picks a timestamped one.
// A name without an extension gets ".csv".
//
// Returns the full path of the opened file.
func (b *FileBackend) Open(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultFileName(b.now())
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	if filepath.Ext(name) == "" {
		name += defaultExtension
	}

	if err := os.MkdirAll(b.dir, dirPermissions); err != nil {
		return "", fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(b.dir, name)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePermissions)
	if err != nil {
		return "", fmt.Errorf("opening log file: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f != nil {
		b.f.Close() //nolint:errcheck // replaced by the new file
	}
	b.f = f
	b.path = path
	return path, nil
}

// Close closes the open file, if any.
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	b.path = ""
	if err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}

// Path returns the open file's path, or "" when closed.
func (b *FileBackend) Path() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.path
}

// Write implements Backend.
func (b *FileBackend) Write(line string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.f == nil {
		return ErrFileNotOpen
	}
	if _, err := b.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("file write: %w", err)
	}
	return nil
}
