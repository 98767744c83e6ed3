package sampler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Period bounds.
const (
	MinPeriod = 100 * time.Millisecond
	MaxPeriod = 600000 * time.Millisecond

	// timerSlack fires the timer slightly early so the sample lands on
	// the period boundary.
	timerSlack = 2 * time.Millisecond

	timestampColumn = "TimeStamp"
	timestampLayout = "2006-01-02 15:04:05.000"
	columnSeparator = ","

	dirPermissions  = 0750
	filePermissions = 0640
)

// illegalNameChars may not appear in a file name.
const illegalNameChars = `/\:*?"<>|`

// Logger is the logging interface used by the Sampler.
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

// SampleStats describes one tick.
type SampleStats struct {
	Start    time.Time
	Duration time.Duration
	Sources  int
	Failed   int
	Locked   bool
}

// SampleObserver receives stats after every tick.
type SampleObserver interface {
	ObserveSample(stats SampleStats)
}

// sourceSchema is the locked key set of one source.
type sourceSchema struct {
	source Source
	keys   []string
}

// Status is a snapshot of the sampler.
type Status struct {
	Running bool          `json:"running"`
	RunID   string        `json:"run_id,omitempty"`
	Path    string        `json:"path,omitempty"`
	Period  time.Duration `json:"period_ns"`
	Sources []string      `json:"sources"`
	Columns []string      `json:"columns,omitempty"`
	Samples uint64        `json:"samples"`
}

// Sampler samples sources on a timer and appends rows to a file.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Ticks are serialised by sampleMu; Stop waits for an in-flight tick.
type Sampler struct {
	sources []Source
	dir     string
	now     func() time.Time

	// mu guards the run state and the timer.
	mu       sync.Mutex
	running  bool
	timer    *time.Timer
	period   time.Duration
	runID    string
	gen      uint64
	inflight sync.WaitGroup

	// sampleMu guards the file and the schema.
	sampleMu sync.Mutex
	file     *os.File
	path     string
	schema   []sourceSchema
	failing  map[string]bool
	samples  uint64

	observerMu sync.RWMutex
	observer   SampleObserver

	loggerMu sync.RWMutex
	logger   Logger
}

// New creates a sampler writing files below dir.
func New(dir string, sources []Source) *Sampler {
	return &Sampler{
		sources: sources,
		dir:     dir,
		now:     time.Now,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the sampler.
func (s *Sampler) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

func (s *Sampler) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

// SetObserver registers an observer for tick stats. Pass nil to remove.
func (s *Sampler) SetObserver(o SampleObserver) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observer = o
}

func (s *Sampler) getObserver() SampleObserver {
	s.observerMu.RLock()
	defer s.observerMu.RUnlock()
	return s.observer
}

// DefaultFileName returns the timestamped name used when none is given.
func DefaultFileName(t time.Time) string {
	return fmt.Sprintf("host_sample_log_%s.csv", t.Format("2006-01-02-150405"))
}

// ValidateFileName rejects names that are empty after trimming, or that
// contain path separators or characters not allowed in file names.
func ValidateFileName(name string) error {
	if strings.TrimSpace(name) == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	if strings.ContainsAny(name, illegalNameChars) {
		return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	for _, r := range name {
		if r < 0x20 {
			return fmt.Errorf("%w: %q", ErrInvalidFileName, name)
		}
	}
	return nil
}

// Start creates fileName and begins sampling every period.
//
// Parameters:
//   - fileName: new file below the sampler directory; "" picks a timestamped name
//   - period: sampling period within [MinPeriod, MaxPeriod]
//
// Returns:
//   - error: ErrAlreadyRunning, ErrInvalidPeriod, ErrInvalidFileName,
//     ErrFileExists, or an I/O error
func (s *Sampler) Start(fileName string, period time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	if period < MinPeriod || period > MaxPeriod {
		return fmt.Errorf("%w: %s outside [%s, %s]", ErrInvalidPeriod, period, MinPeriod, MaxPeriod)
	}
	if fileName == "" {
		fileName = DefaultFileName(s.now())
	}
	if err := ValidateFileName(fileName); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, dirPermissions); err != nil {
		return fmt.Errorf("creating sample directory: %w", err)
	}
	path := filepath.Join(s.dir, fileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, filePermissions)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		return fmt.Errorf("creating sample file: %w", err)
	}

	s.sampleMu.Lock()
	s.file = f
	s.path = path
	s.schema = nil
	s.failing = make(map[string]bool)
	s.samples = 0
	s.sampleMu.Unlock()

	s.running = true
	s.period = period
	s.runID = uuid.NewString()
	s.gen++
	s.armLocked()

	s.getLogger().Info("sampler started", "run", s.runID, "path", path, "period", period, "sources", len(s.sources))
	return nil
}

// Stop cancels the timer, waits for an in-flight tick and closes the file.
func (s *Sampler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.running = false
	s.gen++
	s.timer.Stop()
	s.timer = nil
	runID := s.runID
	s.mu.Unlock()

	s.inflight.Wait()

	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()
	err := s.file.Close()
	s.file = nil
	s.getLogger().Info("sampler stopped", "run", runID, "samples", s.samples)
	if err != nil {
		return fmt.Errorf("closing sample file: %w", err)
	}
	return nil
}

// Status returns a snapshot of the sampler.
func (s *Sampler) Status() Status {
	s.mu.Lock()
	st := Status{Running: s.running, Period: s.period}
	if s.running {
		st.RunID = s.runID
	}
	s.mu.Unlock()

	for _, src := range s.sources {
		st.Sources = append(st.Sources, src.Name())
	}

	s.sampleMu.Lock()
	defer s.sampleMu.Unlock()
	if st.Running {
		st.Path = s.path
	}
	st.Columns = s.columnsLocked()
	st.Samples = s.samples
	return st
}

// armLocked schedules the next fire for the current run.
func (s *Sampler) armLocked() {
	gen := s.gen
	s.timer = time.AfterFunc(s.period-timerSlack, func() { s.fire(gen) })
}

// fire re-arms the timer before sampling so a slow tick does not push the
// cadence back. A callback from an earlier run is dropped.
func (s *Sampler) fire(gen uint64) {
	s.mu.Lock()
	if !s.running || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.armLocked()
	period := s.period
	s.mu.Unlock()
	defer s.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), period)
	defer cancel()
	s.tick(ctx)
}

type sourceResult struct {
	values map[string]string
	err    error
}

// tick samples every source and writes one row, locking the schema first
// if needed.
func (s *Sampler) tick(ctx context.Context) {
	start := s.now()
	results := make(map[string]sourceResult, len(s.sources))
	failed := 0
	for _, src := range s.sources {
		values, err := src.Sample(ctx)
		if err == nil && len(values) == 0 {
			err = fmt.Errorf("%s: empty sample", src.Name())
		}
		if err != nil {
			failed++
		}
		results[src.Name()] = sourceResult{values: values, err: err}
	}

	s.sampleMu.Lock()
	locked := s.writeLocked(start, results)
	s.sampleMu.Unlock()

	if obs := s.getObserver(); obs != nil {
		obs.ObserveSample(SampleStats{
			Start:    start,
			Duration: s.now().Sub(start),
			Sources:  len(s.sources),
			Failed:   failed,
			Locked:   locked,
		})
	}
}

// writeLocked writes the header on the first successful tick and a row on
// every tick after. Reports whether the schema is locked.
func (s *Sampler) writeLocked(ts time.Time, results map[string]sourceResult) bool {
	if s.file == nil {
		return false
	}

	if s.schema == nil {
		schema := lockSchema(s.sources, results)
		if len(schema) == 0 {
			s.getLogger().Warn("no source produced a sample, schema not locked")
			return false
		}
		for _, src := range s.sources {
			if r := results[src.Name()]; r.err != nil {
				s.getLogger().Warn("source excluded from schema", "source", src.Name(), "error", r.err)
			}
		}
		s.schema = schema
		if err := s.writeLine(strings.Join(s.columnsLocked(), columnSeparator)); err != nil {
			s.getLogger().Error("writing sample header", "error", err)
		}
	}

	fields := []string{ts.Format(timestampLayout)}
	for _, sc := range s.schema {
		r := results[sc.source.Name()]
		err := r.err
		if err == nil {
			err = matchSchema(sc.keys, r.values)
		}
		s.trackSource(sc.source.Name(), err)
		if err != nil {
			fields = append(fields, make([]string, len(sc.keys))...)
			continue
		}
		for _, k := range sc.keys {
			fields = append(fields, r.values[k])
		}
	}
	if err := s.writeLine(strings.Join(fields, columnSeparator)); err != nil {
		s.getLogger().Error("writing sample row", "error", err)
		return true
	}
	s.samples++
	return true
}

func (s *Sampler) trackSource(name string, err error) {
	switch {
	case err != nil && !s.failing[name]:
		s.failing[name] = true
		s.getLogger().Warn("source sample rejected", "source", name, "error", err)
	case err == nil && s.failing[name]:
		delete(s.failing, name)
		s.getLogger().Info("source sample recovered", "source", name)
	}
}

func (s *Sampler) writeLine(line string) error {
	_, err := s.file.WriteString(line + "\n")
	return err
}

func (s *Sampler) columnsLocked() []string {
	if s.schema == nil {
		return nil
	}
	cols := []string{timestampColumn}
	for _, sc := range s.schema {
		for _, k := range sc.keys {
			cols = append(cols, sc.source.Name()+" - "+k)
		}
	}
	return cols
}

// lockSchema keeps the sources that succeeded, in configured order, with
// their keys sorted.
func lockSchema(sources []Source, results map[string]sourceResult) []sourceSchema {
	var schema []sourceSchema
	for _, src := range sources {
		r := results[src.Name()]
		if r.err != nil {
			continue
		}
		keys := make([]string, 0, len(r.values))
		for k := range r.values {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		schema = append(schema, sourceSchema{source: src, keys: keys})
	}
	return schema
}

// matchSchema reports whether values has exactly the locked keys.
func matchSchema(keys []string, values map[string]string) error {
	if len(values) != len(keys) {
		return fmt.Errorf("%w: %d keys, schema has %d", ErrSchemaMismatch, len(values), len(keys))
	}
	for _, k := range keys {
		if _, ok := values[k]; !ok {
			return fmt.Errorf("%w: missing %q", ErrSchemaMismatch, k)
		}
	}
	return nil
}
