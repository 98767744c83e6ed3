package participantlog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/thermlog/internal/capability"
	"github.com/nerrad567/thermlog/internal/directory"
	"github.com/nerrad567/thermlog/internal/eventbus"
	"github.com/nerrad567/thermlog/internal/primitive"
	"github.com/nerrad567/thermlog/internal/sink"
)

// MockDirectory is an in-memory participant directory.
type MockDirectory struct {
	mu           sync.Mutex
	participants map[uint32]directory.Participant
}

func NewMockDirectory(ps ...directory.Participant) *MockDirectory {
	d := &MockDirectory{participants: make(map[uint32]directory.Participant)}
	for _, p := range ps {
		d.participants[p.ID] = p
	}
	return d
}

func (d *MockDirectory) Put(p directory.Participant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, old := range d.participants {
		if old.Name == p.Name {
			delete(d.participants, id)
		}
	}
	d.participants[p.ID] = p
}

func (d *MockDirectory) List() []directory.Participant {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]directory.Participant, 0, len(d.participants))
	for _, p := range d.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *MockDirectory) ByID(id uint32) (directory.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.participants[id]; ok {
		return p, nil
	}
	return directory.Participant{}, directory.ErrParticipantNotFound
}

func (d *MockDirectory) ByName(name string) (directory.Participant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.participants {
		if p.Name == name {
			return p, nil
		}
	}
	return directory.Participant{}, directory.ErrParticipantNotFound
}

type readKey struct {
	id     uint32
	domain uint8
	prim   primitive.ID
}

// MockExecutor serves primitive reads from a table.
type MockExecutor struct {
	mu     sync.Mutex
	values map[readKey]uint64
	fail   map[readKey]bool
	reads  int
}

func NewMockExecutor() *MockExecutor {
	return &MockExecutor{values: make(map[readKey]uint64), fail: make(map[readKey]bool)}
}

func (m *MockExecutor) Set(id uint32, domain uint8, prim primitive.ID, v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[readKey{id, domain, prim}] = v
	delete(m.fail, readKey{id, domain, prim})
}

func (m *MockExecutor) Fail(id uint32, domain uint8, prim primitive.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[readKey{id, domain, prim}] = true
}

func (m *MockExecutor) Read(_ context.Context, id uint32, domain uint8, prim primitive.ID) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	k := readKey{id, domain, prim}
	if m.fail[k] {
		return 0, primitive.ErrReadFailed
	}
	v, ok := m.values[k]
	if !ok {
		return 0, primitive.ErrNoBinding
	}
	return v, nil
}

// recordingOutput captures lines per route.
type recordingOutput struct {
	mu      sync.Mutex
	lines   map[sink.RouteSet][]string
	failing sink.RouteSet
	openErr error
	opened  []string
	path    string
	closed  int
}

func newRecordingOutput() *recordingOutput {
	return &recordingOutput{lines: make(map[sink.RouteSet][]string)}
}

func (r *recordingOutput) Write(routes sink.RouteSet, line string) sink.RouteSet {
	r.mu.Lock()
	defer r.mu.Unlock()
	var failed sink.RouteSet
	routes.Each(func(route sink.RouteSet) {
		if r.failing&route != 0 {
			failed |= route
			return
		}
		r.lines[route] = append(r.lines[route], line)
	})
	return failed
}

func (r *recordingOutput) OpenFile(name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.openErr != nil {
		return "", r.openErr
	}
	if name == "" {
		name = "auto.csv"
	}
	r.opened = append(r.opened, name)
	r.path = "/logs/" + name
	return r.path, nil
}

func (r *recordingOutput) CloseFile() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	r.path = ""
	return nil
}

func (r *recordingOutput) FilePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// headerHookOutput runs hook once, inside the first header write to route.
type headerHookOutput struct {
	*recordingOutput
	route sink.RouteSet
	hook  func()
	fired bool
}

func (h *headerHookOutput) Write(routes sink.RouteSet, line string) sink.RouteSet {
	if !h.fired && routes.Has(h.route) && isHeader(line) {
		h.fired = true
		h.hook()
	}
	return h.recordingOutput.Write(routes, line)
}

func (r *recordingOutput) Lines(route sink.RouteSet) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines[route]...)
}

func (r *recordingOutput) setFailing(routes sink.RouteSet) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failing = routes
}

func isHeader(line string) bool {
	return strings.HasPrefix(line, "Date,")
}

func countHeaders(lines []string) int {
	n := 0
	for _, l := range lines {
		if isHeader(l) {
			n++
		}
	}
	return n
}

// eventRecorder subscribes to logging notifications.
type eventRecorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func recordLogging(bus *eventbus.Bus) *eventRecorder {
	r := &eventRecorder{}
	for _, t := range []eventbus.Type{eventbus.LoggingEnabled, eventbus.LoggingDisabled, eventbus.SessionChanged} {
		bus.Subscribe(t, eventbus.AnyParticipant, eventbus.AnyDomain, func(ev eventbus.Event) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.events = append(r.events, ev)
		})
	}
	return r
}

func (r *eventRecorder) ofType(t eventbus.Type) []eventbus.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []eventbus.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Fixture participants:
//
//	1 CPU0: D0 temperature-status + performance-control, D1 utilization-status
//	2 FAN1: D0 active-fan-control
func cpuParticipant(id uint32) directory.Participant {
	return directory.Participant{
		ID:      id,
		Name:    "CPU0",
		Present: true,
		SubDevices: []directory.SubDevice{
			{Index: 0, CapabilityMask: capability.TemperatureStatus.Bit() | capability.PerformanceControl.Bit()},
			{Index: 1, CapabilityMask: capability.UtilizationStatus.Bit()},
		},
	}
}

func fanParticipant(id uint32) directory.Participant {
	return directory.Participant{
		ID:         id,
		Name:       "FAN1",
		Present:    true,
		SubDevices: []directory.SubDevice{{Index: 0, CapabilityMask: capability.ActiveFanControl.Bit()}},
	}
}

type fixture struct {
	dir    *MockDirectory
	exec   *MockExecutor
	bus    *eventbus.Bus
	out    *recordingOutput
	events *eventRecorder
	engine *Engine
}

// testOptions uses intervals short enough for timing tests.
func testOptions() Options {
	return Options{
		Interval:         20 * time.Millisecond,
		MinInterval:      5 * time.Millisecond,
		MaxInterval:      time.Second,
		MinGranularity:   time.Millisecond,
		ScheduleDelay:    50 * time.Millisecond,
		MinScheduleDelay: 10 * time.Millisecond,
		PrimitiveTimeout: 50 * time.Millisecond,
		NoStartupDelay:   true,
		Routes:           sink.Console,
	}
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	return newFixtureWithOutput(t, opts, func(r *recordingOutput) Output { return r })
}

// newFixtureWithOutput lets a test wrap the recording output.
func newFixtureWithOutput(t *testing.T, opts Options, wrap func(*recordingOutput) Output) *fixture {
	t.Helper()
	f := &fixture{
		dir:  NewMockDirectory(cpuParticipant(1), fanParticipant(2)),
		exec: NewMockExecutor(),
		bus:  eventbus.New(),
		out:  newRecordingOutput(),
	}
	f.exec.Set(1, 0, primitive.GetTemperature, 452)
	f.exec.Set(1, 1, primitive.GetUtilization, 3750)
	f.events = recordLogging(f.bus)
	f.engine = New(f.dir, f.exec, f.bus, wrap(f.out), opts)
	f.engine.Init()
	t.Cleanup(f.engine.Shutdown)
	return f
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

var errDiskFull = errors.New("disk full")

func absent(p directory.Participant) directory.Participant {
	p.Present = false
	return p
}
