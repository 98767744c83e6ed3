package sink

import (
	"fmt"
	"sync"
)

// Logger is the logging interface used by the Sink.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink routes lines to per-route backends.
//
// Thread Safety:
//   - Write, OpenFile, CloseFile and FilePath are safe for concurrent use.
//   - Attach must be called before the Sink is shared.
type Sink struct {
	backends map[RouteSet]Backend
	file     *FileBackend

	failMu  sync.Mutex
	failing RouteSet

	loggerMu sync.RWMutex
	logger   Logger
}

// New creates a Sink with no backends.
func New() *Sink {
	return &Sink{
		backends: make(map[RouteSet]Backend),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger used for route failure diagnostics.
func (s *Sink) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

func (s *Sink) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// Attach binds backend to a single route. A *FileBackend attached to File
// also serves OpenFile/CloseFile/FilePath.
func (s *Sink) Attach(route RouteSet, backend Backend) {
	s.backends[route] = backend
	if fb, ok := backend.(*FileBackend); ok && route == File {
		s.file = fb
	}
}

// Write sends line to every route in routes and returns the routes that failed.
func (s *Sink) Write(routes RouteSet, line string) RouteSet {
	var failed RouteSet
	routes.Each(func(r RouteSet) {
		b, ok := s.backends[r]
		var err error
		if !ok {
			err = ErrNoBackend
		} else {
			err = b.Write(line)
		}
		if err != nil {
			failed |= r
		}
		s.track(r, err)
	})
	return failed
}

// track logs the first failure of a streak and the recovery after it.
func (s *Sink) track(r RouteSet, err error) {
	s.failMu.Lock()
	wasFailing := s.failing&r != 0
	if err != nil {
		s.failing |= r
	} else {
		s.failing &^= r
	}
	s.failMu.Unlock()

	switch {
	case err != nil && !wasFailing:
		s.getLogger().Warn("route write failed", "route", r.String(), "error", err)
	case err == nil && wasFailing:
		s.getLogger().Info("route recovered", "route", r.String())
	}
}

// Failing returns the routes whose last write failed.
func (s *Sink) Failing() RouteSet {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failing
}

// OpenFile opens the file route target. See FileBackend.Open.
func (s *Sink) OpenFile(name string) (string, error) {
	if s.file == nil {
		return "", fmt.Errorf("%w: file", ErrNoBackend)
	}
	path, err := s.file.Open(name)
	if err != nil {
		return "", err
	}
	s.failMu.Lock()
	s.failing &^= File
	s.failMu.Unlock()
	return path, nil
}

// CloseFile closes the file route target.
func (s *Sink) CloseFile() error {
	if s.file == nil {
		return nil
	}
	return s.file.Close()
}

// FilePath returns the open file route target, or "".
func (s *Sink) FilePath() string {
	if s.file == nil {
		return ""
	}
	return s.file.Path()
}
