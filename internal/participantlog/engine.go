package participantlog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/thermlog/internal/directory"
	"github.com/nerrad567/thermlog/internal/eventbus"
	"github.com/nerrad567/thermlog/internal/primitive"
	"github.com/nerrad567/thermlog/internal/sink"
)

// Default timings.
const (
	DefaultInterval         = 2000 * time.Millisecond
	DefaultMinInterval      = 1500 * time.Millisecond
	DefaultMaxInterval      = 600000 * time.Millisecond
	DefaultMinGranularity   = time.Millisecond
	DefaultScheduleDelay    = 5000 * time.Millisecond
	DefaultMinScheduleDelay = 1500 * time.Millisecond
	DefaultStartupDelay     = 1500 * time.Millisecond
	DefaultPrimitiveTimeout = 500 * time.Millisecond
)

// Directory is the participant lookup the Engine resolves selectors against.
type Directory interface {
	List() []directory.Participant
	ByID(id uint32) (directory.Participant, error)
	ByName(name string) (directory.Participant, error)
}

// Bus is the event bus the Engine listens and notifies on.
type Bus interface {
	Subscribe(t eventbus.Type, participant uint32, domain uint8, handler eventbus.Handler) eventbus.SubscriptionID
	Unsubscribe(id eventbus.SubscriptionID)
	Publish(ev eventbus.Event) int
}

// Output is the multi-route writer. Write returns the routes that failed.
type Output interface {
	Write(routes sink.RouteSet, line string) sink.RouteSet
	OpenFile(name string) (string, error)
	CloseFile() error
	FilePath() string
}

// TickStats describes one worker tick.
type TickStats struct {
	Start        time.Time
	Duration     time.Duration
	Wait         time.Duration
	Overrun      bool
	Entries      int
	HeaderRoutes sink.RouteSet
	RowRoutes    sink.RouteSet
	FailedRoutes sink.RouteSet
	PullFailures int
	Skipped      bool
}

// TickObserver receives stats after every tick.
type TickObserver interface {
	ObserveTick(stats TickStats)
}

// Options configures an Engine. Zero values take the defaults.
type Options struct {
	Interval         time.Duration
	MinInterval      time.Duration
	MaxInterval      time.Duration
	MinGranularity   time.Duration
	ScheduleDelay    time.Duration
	MinScheduleDelay time.Duration
	StartupDelay     time.Duration
	PrimitiveTimeout time.Duration
	MaxEntries       int

	// Routes and FileName are the initial output selection.
	Routes   sink.RouteSet
	FileName string

	// Clock stamps rows. Defaults to time.Now.
	Clock func() time.Time

	// NoStartupDelay makes the first tick immediate instead of waiting
	// StartupDelay.
	NoStartupDelay bool
}

func (o Options) withDefaults() Options {
	def := func(d *time.Duration, v time.Duration) {
		if *d <= 0 {
			*d = v
		}
	}
	def(&o.Interval, DefaultInterval)
	def(&o.MinInterval, DefaultMinInterval)
	def(&o.MaxInterval, DefaultMaxInterval)
	def(&o.MinGranularity, DefaultMinGranularity)
	def(&o.ScheduleDelay, DefaultScheduleDelay)
	def(&o.MinScheduleDelay, DefaultMinScheduleDelay)
	def(&o.StartupDelay, DefaultStartupDelay)
	def(&o.PrimitiveTimeout, DefaultPrimitiveTimeout)
	if o.NoStartupDelay {
		o.StartupDelay = 0
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

// Session states reported by Status.
const (
	StateStopped   = "Stopped"
	StateScheduled = "Scheduled"
	StateStarted   = "Started"
)

// Status is a snapshot of the session.
type Status struct {
	State        string
	Interval     time.Duration
	Routes       sink.RouteSet
	FilePath     string
	SessionID    string
	Entries      int
	Suspended    bool
	StartedAt    time.Time
	ScheduledFor time.Time
	Ticks        uint64
}

// Engine is the participant capability logger.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Commands are serialised; Stop returns only after the worker exits.
//   - Event handlers must not call Engine commands synchronously from
//     inside a SessionChanged notification published by those commands.
type Engine struct {
	dir   Directory
	exec  primitive.Executor
	bus   Bus
	out   Output
	opts  Options
	store *Store

	interval atomic.Int64
	ticks    atomic.Uint64

	// controlMu serialises commands and the schedule timer callback.
	controlMu  sync.Mutex
	timer      *time.Timer
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	subs       []eventbus.SubscriptionID

	// stateMu guards the fields below, which the worker reads every tick.
	stateMu       sync.RWMutex
	routes        sink.RouteSet
	headerWritten sink.RouteSet
	headerGen     uint64
	fileName      string
	started       bool
	scheduled     bool
	suspended     bool
	sessionID     string
	startedAt     time.Time
	scheduledFor  time.Time

	observerMu sync.RWMutex
	observer   TickObserver

	loggerMu sync.RWMutex
	logger   Logger
}

// New creates an Engine. Call Init to start listening for participant
// events and Shutdown to release it.
func New(dir Directory, exec primitive.Executor, bus Bus, out Output, opts Options) *Engine {
	opts = opts.withDefaults()
	e := &Engine{
		dir:      dir,
		exec:     exec,
		bus:      bus,
		out:      out,
		opts:     opts,
		store:    NewStore(opts.MaxEntries),
		routes:   opts.Routes & sink.AllRoutes,
		fileName: opts.FileName,
		logger:   noopLogger{},
	}
	e.interval.Store(int64(opts.Interval))
	return e
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.loggerMu.Lock()
	defer e.loggerMu.Unlock()
	e.logger = logger
}

func (e *Engine) getLogger() Logger {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	return e.logger
}

// SetTickObserver registers an observer for tick stats. Pass nil to remove.
func (e *Engine) SetTickObserver(o TickObserver) {
	e.observerMu.Lock()
	defer e.observerMu.Unlock()
	e.observer = o
}

func (e *Engine) getObserver() TickObserver {
	e.observerMu.RLock()
	defer e.observerMu.RUnlock()
	return e.observer
}

// Init subscribes to participant lifecycle and control-action events.
// Calling Init twice is a no-op.
func (e *Engine) Init() {
	e.controlMu.Lock()
	defer e.controlMu.Unlock()
	if e.subs != nil {
		return
	}
	anyID, anyDomain := eventbus.AnyParticipant, eventbus.AnyDomain
	e.subs = []eventbus.SubscriptionID{
		e.bus.Subscribe(eventbus.ParticipantCreated, anyID, anyDomain, e.onAvailable),
		e.bus.Subscribe(eventbus.ParticipantResumed, anyID, anyDomain, e.onAvailable),
		e.bus.Subscribe(eventbus.ParticipantSuspended, anyID, anyDomain, e.onUnavailable),
		e.bus.Subscribe(eventbus.ParticipantUnregistered, anyID, anyDomain, e.onUnavailable),
		e.bus.Subscribe(eventbus.ControlAction, anyID, anyDomain, e.onControlAction),
	}
}

// Shutdown stops any session and unsubscribes from the bus.
func (e *Engine) Shutdown() {
	if err := e.Stop(); err != nil && CodeOf(err) != CodeNotActive {
		e.getLogger().Warn("stopping participant log", "error", err)
	}
	e.controlMu.Lock()
	defer e.controlMu.Unlock()
	for _, id := range e.subs {
		e.bus.Unsubscribe(id)
	}
	e.subs = nil
}

// Start enrolls targets and starts the worker.
//
// Parameters:
//   - t: what to log
//   - interval: poll interval, or 0 to keep the current one
//
// Returns:
//   - error: ErrAlreadyActive, ErrNoDataToLog, an enrollment error, or
//     ErrIoError if the file route cannot be opened. On error nothing changes.
func (e *Engine) Start(ctx context.Context, t Targets, interval time.Duration) error {
	var out outbox
	err := func() error {
		e.controlMu.Lock()
		defer e.controlMu.Unlock()

		if e.isStarted() {
			return ErrAlreadyActive
		}
		if interval != 0 {
			if err := e.checkInterval(interval); err != nil {
				return err
			}
		}
		batch, err := e.prepare(ctx, t)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return fmt.Errorf("%w: %s", ErrNoDataToLog, t)
		}
		if e.isScheduled() {
			if err := e.store.fitsAlone(len(batch)); err != nil {
				return err
			}
			e.cancelScheduleLocked(&out)
		}
		if err := e.commit(batch, &out); err != nil {
			return err
		}
		if interval != 0 {
			e.interval.Store(int64(interval))
		}
		return e.startLocked(&out)
	}()
	e.flush(out)
	return err
}

// Schedule enrolls targets now and starts logging after delay.
// A zero delay uses the configured default.
func (e *Engine) Schedule(ctx context.Context, delay time.Duration, t Targets) error {
	var out outbox
	err := func() error {
		e.controlMu.Lock()
		defer e.controlMu.Unlock()

		if e.isStarted() {
			return ErrAlreadyActive
		}
		if delay == 0 {
			delay = e.opts.ScheduleDelay
		}
		if delay < e.opts.MinScheduleDelay {
			return fmt.Errorf("%w: delay %s is below %s", ErrParameterInvalid, delay, e.opts.MinScheduleDelay)
		}
		batch, err := e.prepare(ctx, t)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return fmt.Errorf("%w: %s", ErrNoDataToLog, t)
		}
		if e.isScheduled() {
			if err := e.store.fitsAlone(len(batch)); err != nil {
				return err
			}
			e.cancelScheduleLocked(&out)
		}
		if err := e.commit(batch, &out); err != nil {
			return err
		}

		e.generation++
		gen := e.generation
		e.timer = time.AfterFunc(delay, func() { e.fireSchedule(gen) })

		e.stateMu.Lock()
		e.scheduled = true
		e.scheduledFor = e.opts.Clock().Add(delay)
		e.sessionID = uuid.NewString()
		e.stateMu.Unlock()

		e.getLogger().Info("participant log scheduled", "delay", delay, "entries", e.store.Len())
		out.add(eventbus.Event{Type: eventbus.SessionChanged})
		return nil
	}()
	e.flush(out)
	return err
}

func (e *Engine) fireSchedule(gen uint64) {
	var out outbox
	func() {
		e.controlMu.Lock()
		defer e.controlMu.Unlock()
		if gen != e.generation || !e.isScheduled() {
			return
		}
		e.timer = nil
		if err := e.startLocked(&out); err != nil {
			e.getLogger().Error("scheduled participant log failed to start", "error", err)
		}
	}()
	e.flush(out)
}

// startLocked opens the file route and spawns the worker. On failure the
// entries are cleared and the session returns to Stopped.
func (e *Engine) startLocked(out *outbox) error {
	e.stateMu.RLock()
	routes, fileName := e.routes, e.fileName
	e.stateMu.RUnlock()

	if routes == 0 {
		routes = sink.File
	}
	if routes.Has(sink.File) {
		if _, err := e.out.OpenFile(fileName); err != nil {
			e.clearLocked(out)
			e.stateMu.Lock()
			e.scheduled = false
			e.sessionID = ""
			e.stateMu.Unlock()
			return fmt.Errorf("%w: %w", ErrIoError, err)
		}
	}

	e.stateMu.Lock()
	e.routes = routes
	e.headerWritten = 0
	e.headerGen++
	if !e.scheduled || e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}
	e.started = true
	e.scheduled = false
	e.scheduledFor = time.Time{}
	e.startedAt = e.opts.Clock()
	session := e.sessionID
	e.stateMu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go e.run(ctx)

	e.getLogger().Info("participant log started",
		"session", session,
		"entries", e.store.Len(),
		"interval", e.Interval(),
		"routes", routes.String(),
		"file", e.out.FilePath(),
	)
	out.add(eventbus.Event{Type: eventbus.SessionChanged})
	return nil
}

// Stop cancels a pending schedule or stops the worker, waiting for it to
// exit, then clears every entry.
func (e *Engine) Stop() error {
	var out outbox
	err := func() error {
		e.controlMu.Lock()
		defer e.controlMu.Unlock()

		started, scheduled := e.isStarted(), e.isScheduled()
		if !started && !scheduled {
			return ErrNotActive
		}

		e.stopTimerLocked()
		if started {
			e.cancel()
			e.wg.Wait()
			e.cancel = nil
		}

		e.clearLocked(&out)

		e.stateMu.Lock()
		routes := e.routes
		e.started = false
		e.scheduled = false
		e.scheduledFor = time.Time{}
		e.headerWritten = 0
		e.headerGen++
		e.sessionID = ""
		e.stateMu.Unlock()

		if started && routes.Has(sink.File) {
			if err := e.out.CloseFile(); err != nil {
				e.getLogger().Warn("closing participant log file", "error", err)
			}
		}
		e.getLogger().Info("participant log stopped")
		out.add(eventbus.Event{Type: eventbus.SessionChanged})
		return nil
	}()
	e.flush(out)
	return err
}

func (e *Engine) stopTimerLocked() {
	e.generation++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// cancelScheduleLocked drops a pending schedule and its entries.
func (e *Engine) cancelScheduleLocked(out *outbox) {
	e.stopTimerLocked()
	e.clearLocked(out)
	e.stateMu.Lock()
	e.scheduled = false
	e.scheduledFor = time.Time{}
	e.sessionID = ""
	e.stateMu.Unlock()
}

// clearLocked empties the store and queues logging-disabled for every
// present entry.
func (e *Engine) clearLocked(out *outbox) {
	removed := e.store.Clear()
	present := removed[:0]
	for _, ei := range removed {
		if ei.Present {
			present = append(present, ei)
		}
	}
	out.logging(eventbus.LoggingDisabled, present)
}

// SetRoutes replaces the active routes. Newly added routes get a fresh
// header. fileName, when not empty, names the file route target.
//
// While started, the file is reopened when the file route is newly added
// or fileName changes. If that fails the previous routes stay in effect
// and ErrIoError is returned.
func (e *Engine) SetRoutes(routes sink.RouteSet, fileName string) error {
	if routes == 0 || routes&^sink.AllRoutes != 0 {
		return fmt.Errorf("%w: route mask %#x", ErrParameterInvalid, uint32(routes))
	}

	e.controlMu.Lock()
	defer e.controlMu.Unlock()

	e.stateMu.RLock()
	old, oldName, started := e.routes, e.fileName, e.started
	e.stateMu.RUnlock()

	newName := oldName
	if fileName != "" {
		newName = fileName
	}

	reopened := false
	if started && routes.Has(sink.File) && (!old.Has(sink.File) || newName != oldName) {
		if _, err := e.out.OpenFile(newName); err != nil {
			return fmt.Errorf("%w: %w", ErrIoError, err)
		}
		reopened = true
	}
	if started && old.Has(sink.File) && !routes.Has(sink.File) {
		if err := e.out.CloseFile(); err != nil {
			e.getLogger().Warn("closing participant log file", "error", err)
		}
	}

	e.stateMu.Lock()
	added := routes &^ old
	e.headerWritten &^= added
	if reopened {
		e.headerWritten &^= sink.File
	}
	e.headerWritten &= routes
	if added != 0 || reopened {
		e.headerGen++
	}
	e.routes = routes
	e.fileName = newName
	e.stateMu.Unlock()

	e.getLogger().Info("participant log routes changed", "routes", routes.String(), "file", e.out.FilePath())
	return nil
}

// SetInterval changes the poll interval. A running worker picks it up on
// its next tick.
func (e *Engine) SetInterval(d time.Duration) error {
	if err := e.checkInterval(d); err != nil {
		return err
	}
	e.interval.Store(int64(d))
	return nil
}

func (e *Engine) checkInterval(d time.Duration) error {
	if d < e.opts.MinInterval || d > e.opts.MaxInterval {
		return fmt.Errorf("%w: interval %s outside [%s, %s]", ErrParameterInvalid, d, e.opts.MinInterval, e.opts.MaxInterval)
	}
	return nil
}

// Interval returns the poll interval.
func (e *Engine) Interval() time.Duration {
	return time.Duration(e.interval.Load())
}

// Routes returns the active routes.
func (e *Engine) Routes() sink.RouteSet {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.routes
}

// Entries returns a snapshot of the tracked entries in key order.
func (e *Engine) Entries() []EntryInfo {
	return e.store.Snapshot()
}

// Status returns a snapshot of the session.
func (e *Engine) Status() Status {
	e.stateMu.RLock()
	s := Status{
		State:        StateStopped,
		Interval:     e.Interval(),
		Routes:       e.routes,
		SessionID:    e.sessionID,
		Suspended:    e.suspended,
		StartedAt:    e.startedAt,
		ScheduledFor: e.scheduledFor,
	}
	switch {
	case e.started:
		s.State = StateStarted
	case e.scheduled:
		s.State = StateScheduled
	}
	e.stateMu.RUnlock()

	if s.State != StateStarted {
		s.StartedAt = time.Time{}
	}
	s.FilePath = e.out.FilePath()
	s.Entries = e.store.Len()
	s.Ticks = e.ticks.Load()
	return s
}

func (e *Engine) isStarted() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.started
}

func (e *Engine) isScheduled() bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.scheduled
}

// resetHeaders forces a fresh header on every route.
func (e *Engine) resetHeaders() {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	e.headerWritten = 0
	e.headerGen++
}
