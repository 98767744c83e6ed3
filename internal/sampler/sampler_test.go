package sampler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// fakeSource returns whatever its next func yields.
type fakeSource struct {
	name string
	mu   sync.Mutex
	next func() (map[string]string, error)
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Sample(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next()
}

func (f *fakeSource) set(next func() (map[string]string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = next
}

func fixed(values map[string]string) func() (map[string]string, error) {
	return func() (map[string]string, error) { return values, nil }
}

func failing(err error) func() (map[string]string, error) {
	return func() (map[string]string, error) { return nil, err }
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// startIdle opens the file without letting the timer tick during the test.
func startIdle(t *testing.T, s *Sampler, name string) string {
	t.Helper()
	if err := s.Start(name, MaxPeriod); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() }) //nolint:errcheck // test cleanup
	return s.Status().Path
}

func TestSampler_SchemaLock(t *testing.T) {
	a := &fakeSource{name: "a", next: fixed(map[string]string{"y": "2", "x": "1"})}
	b := &fakeSource{name: "b", next: fixed(map[string]string{"k": "9"})}
	s := New(t.TempDir(), []Source{a, b})
	s.now = func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) }
	path := startIdle(t, s, "run.csv")

	ctx := context.Background()
	s.tick(ctx)

	// a changes shape: its fields go empty, b is unaffected.
	a.set(fixed(map[string]string{"x": "1", "z": "3"}))
	s.tick(ctx)

	// a recovers.
	a.set(fixed(map[string]string{"x": "5", "y": "6"}))
	s.tick(ctx)

	lines := readLines(t, path)
	want := []string{
		"TimeStamp,a - x,a - y,b - k",
		"2026-03-04 05:06:07.000,1,2,9",
		"2026-03-04 05:06:07.000,,,9",
		"2026-03-04 05:06:07.000,5,6,9",
	}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestSampler_FailedSourceExcludedFromSchema(t *testing.T) {
	a := &fakeSource{name: "a", next: failing(errors.New("no sensors"))}
	b := &fakeSource{name: "b", next: fixed(map[string]string{"k": "1"})}
	s := New(t.TempDir(), []Source{a, b})
	path := startIdle(t, s, "run.csv")

	s.tick(context.Background())
	a.set(fixed(map[string]string{"x": "1"}))
	s.tick(context.Background())

	lines := readLines(t, path)
	if lines[0] != "TimeStamp,b - k" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 3 || !strings.HasSuffix(lines[2], ",1") || strings.Count(lines[2], ",") != 1 {
		t.Errorf("lines = %q", lines)
	}
}

func TestSampler_NoHeaderUntilFirstSuccess(t *testing.T) {
	a := &fakeSource{name: "a", next: failing(errors.New("boom"))}
	s := New(t.TempDir(), []Source{a})
	path := startIdle(t, s, "run.csv")

	s.tick(context.Background())
	if data, _ := os.ReadFile(path); len(data) != 0 {
		t.Fatalf("file after failed tick = %q", data)
	}
	if s.Status().Columns != nil {
		t.Error("schema locked without a sample")
	}

	a.set(fixed(map[string]string{"v": "1"}))
	s.tick(context.Background())
	if lines := readLines(t, path); len(lines) != 2 || lines[0] != "TimeStamp,a - v" {
		t.Errorf("lines = %q", lines)
	}
}

func TestSampler_StartValidation(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "taken.csv"), nil, 0o600); err != nil {
		t.Fatal(err)
	}
	s := New(dir, nil)

	tests := []struct {
		name    string
		file    string
		period  time.Duration
		wantErr error
	}{
		{"period too short", "a.csv", 50 * time.Millisecond, ErrInvalidPeriod},
		{"period too long", "a.csv", MaxPeriod + time.Millisecond, ErrInvalidPeriod},
		{"path separator", "../a.csv", time.Second, ErrInvalidFileName},
		{"illegal char", "a?.csv", time.Second, ErrInvalidFileName},
		{"exists", "taken.csv", time.Second, ErrFileExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.Start(tt.file, tt.period); !errors.Is(err, tt.wantErr) {
				t.Errorf("Start() = %v, want %v", err, tt.wantErr)
			}
			if s.Status().Running {
				t.Error("sampler running after failed start")
			}
		})
	}

	if err := s.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() idle = %v, want ErrNotRunning", err)
	}
}

func TestSampler_TimerLifecycle(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	ticked := make(chan struct{}, 16)
	src := &fakeSource{name: "a", next: func() (map[string]string, error) {
		mu.Lock()
		count++
		mu.Unlock()
		select {
		case ticked <- struct{}{}:
		default:
		}
		return map[string]string{"v": "1"}, nil
	}}

	s := New(t.TempDir(), []Source{src})
	if err := s.Start("", MinPeriod); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start("", MinPeriod); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() = %v", err)
	}
	st := s.Status()
	if !st.Running || st.RunID == "" || !strings.HasPrefix(filepath.Base(st.Path), "host_sample_log_") {
		t.Errorf("Status() = %+v", st)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-ticked:
		case <-time.After(3 * time.Second):
			t.Fatalf("tick %d did not happen", i+1)
		}
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	mu.Lock()
	stopped := count
	mu.Unlock()

	time.Sleep(3 * MinPeriod)
	mu.Lock()
	defer mu.Unlock()
	if count != stopped {
		t.Errorf("sampled %d times after Stop", count-stopped)
	}
}

func TestSampler_FireFromEarlierRunIsDropped(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	src := &fakeSource{name: "a", next: func() (map[string]string, error) {
		mu.Lock()
		defer mu.Unlock()
		count++
		return map[string]string{"v": "1"}, nil
	}}
	s := New(t.TempDir(), []Source{src})

	if err := s.Start("first.csv", MaxPeriod); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.mu.Lock()
	stale := s.gen
	s.mu.Unlock()
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	startIdle(t, s, "second.csv")

	s.mu.Lock()
	timer, current := s.timer, s.gen
	s.mu.Unlock()

	tests := []struct {
		name      string
		gen       uint64
		wantCount int
		wantRearm bool
	}{
		{"earlier run", stale, 0, false},
		{"current run", current, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.fire(tt.gen)
			s.mu.Lock()
			rearmed := s.timer != timer
			timer = s.timer
			s.mu.Unlock()
			mu.Lock()
			got := count
			mu.Unlock()
			if got != tt.wantCount {
				t.Errorf("samples = %d, want %d", got, tt.wantCount)
			}
			if rearmed != tt.wantRearm {
				t.Errorf("timer re-armed = %v, want %v", rearmed, tt.wantRearm)
			}
		})
	}
}

func TestMatchSchema(t *testing.T) {
	keys := []string{"a", "b"}
	if err := matchSchema(keys, map[string]string{"a": "", "b": ""}); err != nil {
		t.Errorf("exact match error = %v", err)
	}
	for _, values := range []map[string]string{
		{"a": ""},
		{"a": "", "c": ""},
		{"a": "", "b": "", "c": ""},
	} {
		if err := matchSchema(keys, values); !errors.Is(err, ErrSchemaMismatch) {
			t.Errorf("matchSchema(%v) = %v", values, err)
		}
	}
}

func TestHostSources(t *testing.T) {
	ctx := context.Background()

	cpuSrc := &CPUSource{percent: func(context.Context, time.Duration, bool) ([]float64, error) {
		return []float64{12.34, 56.78}, nil
	}}
	got, err := cpuSrc.Sample(ctx)
	if err != nil || got["cpu0"] != "12.3" || got["cpu1"] != "56.8" {
		t.Errorf("cpu = %v, %v", got, err)
	}

	memSrc := &MemorySource{virtual: func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 100, Used: 40, Available: 60, UsedPercent: 40}, nil
	}}
	got, err = memSrc.Sample(ctx)
	if err != nil || got["total_bytes"] != "100" || got["used_percent"] != "40.0" || len(got) != 4 {
		t.Errorf("memory = %v, %v", got, err)
	}

	loadSrc := &LoadSource{avg: func(context.Context) (*load.AvgStat, error) {
		return &load.AvgStat{Load1: 0.5, Load5: 1, Load15: 1.25}, nil
	}}
	got, err = loadSrc.Sample(ctx)
	if err != nil || got["load1"] != "0.50" || got["load15"] != "1.25" {
		t.Errorf("load = %v, %v", got, err)
	}

	sensorSrc := &SensorsSource{temperatures: func(context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{{SensorKey: "coretemp_core_0", Temperature: 48}}, errors.New("partial")
	}}
	got, err = sensorSrc.Sample(ctx)
	if err != nil || got["coretemp_core_0"] != "48.0" {
		t.Errorf("sensors = %v, %v", got, err)
	}

	if _, err := NewSource("gpu"); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("NewSource(gpu) = %v", err)
	}
	if srcs, err := NewSources([]string{"cpu", "memory", "load", "sensors"}); err != nil || len(srcs) != 4 {
		t.Errorf("NewSources() = %d, %v", len(srcs), err)
	}
}
