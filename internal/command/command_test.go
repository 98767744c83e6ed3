package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/sink"
)

// MockEngine records the calls commands make.
type MockEngine struct {
	startTargets  participantlog.Targets
	scheduleDelay time.Duration
	routes        sink.RouteSet
	fileName      string
	interval      time.Duration
	stopped       bool
	err           error
	status        participantlog.Status
}

func (m *MockEngine) Start(_ context.Context, t participantlog.Targets, _ time.Duration) error {
	m.startTargets = t
	return m.err
}

func (m *MockEngine) Stop() error {
	m.stopped = true
	return m.err
}

func (m *MockEngine) Schedule(_ context.Context, delay time.Duration, t participantlog.Targets) error {
	m.scheduleDelay = delay
	m.startTargets = t
	return m.err
}

func (m *MockEngine) SetRoutes(routes sink.RouteSet, fileName string) error {
	m.routes, m.fileName = routes, fileName
	return m.err
}

func (m *MockEngine) SetInterval(d time.Duration) error {
	m.interval = d
	return m.err
}

func (m *MockEngine) Status() participantlog.Status { return m.status }

func TestExecute_Start(t *testing.T) {
	eng := &MockEngine{status: participantlog.Status{State: participantlog.StateStarted}}
	p := New(eng)

	res := p.Execute(context.Background(), "start CPU0 all 0x100")
	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if len(eng.startTargets.Selectors) != 1 || eng.startTargets.Selectors[0].Participant != "CPU0" {
		t.Errorf("targets = %+v", eng.startTargets)
	}
	if !strings.Contains(res.Output, "Log state     : Started") {
		t.Errorf("output = %q", res.Output)
	}

	p.Execute(context.Background(), "START")
	if !eng.startTargets.All {
		t.Error("bare start should select all")
	}
}

func TestExecute_Schedule(t *testing.T) {
	tests := []struct {
		line      string
		wantDelay time.Duration
		wantAll   bool
		wantSels  int
	}{
		{"schedule", 0, true, 0},
		{"schedule 3000", 3 * time.Second, true, 0},
		{"schedule 3000 all", 3 * time.Second, true, 0},
		{"schedule 1 0 all", 0, false, 1},
		{"schedule 2500 1 0 all", 2500 * time.Millisecond, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			eng := &MockEngine{}
			res := New(eng).Execute(context.Background(), tt.line)
			if res.Err != nil {
				t.Fatalf("Execute() error = %v", res.Err)
			}
			if eng.scheduleDelay != tt.wantDelay || eng.startTargets.All != tt.wantAll ||
				len(eng.startTargets.Selectors) != tt.wantSels {
				t.Errorf("delay=%s targets=%+v", eng.scheduleDelay, eng.startTargets)
			}
		})
	}
}

func TestExecute_Route(t *testing.T) {
	eng := &MockEngine{status: participantlog.Status{Routes: sink.File | sink.Console}}
	p := New(eng)

	res := p.Execute(context.Background(), "route")
	if res.Output != "Log route     : console file" {
		t.Errorf("route status = %q", res.Output)
	}

	res = p.Execute(context.Background(), "route console file bench.csv")
	if res.Err != nil {
		t.Fatalf("Execute() error = %v", res.Err)
	}
	if eng.routes != sink.Console|sink.File || eng.fileName != "bench.csv" {
		t.Errorf("routes=%s file=%q", eng.routes, eng.fileName)
	}

	res = p.Execute(context.Background(), "route printer")
	if res.Code != participantlog.CodeParameterInvalid {
		t.Errorf("unknown route code = %s", res.Code)
	}
}

func TestExecute_Interval(t *testing.T) {
	eng := &MockEngine{}
	p := New(eng)

	res := p.Execute(context.Background(), "interval 2500")
	if res.Err != nil || eng.interval != 2500*time.Millisecond || res.Output != "Log interval  : 2500 ms" {
		t.Errorf("res=%+v interval=%s", res, eng.interval)
	}
	for _, line := range []string{"interval", "interval -5", "interval 1 2", "interval fast"} {
		if res := p.Execute(context.Background(), line); res.Code != participantlog.CodeParameterInvalid {
			t.Errorf("%q code = %s", line, res.Code)
		}
	}
}

func TestExecute_Errors(t *testing.T) {
	eng := &MockEngine{err: participantlog.ErrNotActive}
	p := New(eng)

	res := p.Execute(context.Background(), "stop")
	if res.Code != participantlog.CodeNotActive {
		t.Errorf("code = %s", res.Code)
	}
	if !strings.HasPrefix(res.Text(), "Error code: NotActive(6): ") {
		t.Errorf("Text() = %q", res.Text())
	}

	res = p.Execute(context.Background(), "reboot")
	if !errors.Is(res.Err, ErrUnknownCommand) || !IsUsageError(res.Err) {
		t.Errorf("unknown verb err = %v", res.Err)
	}
	if res := p.Execute(context.Background(), "   "); res.Code != participantlog.CodeParameterInvalid {
		t.Errorf("empty line code = %s", res.Code)
	}
	if res := p.Execute(context.Background(), "start CPU0 0"); res.Code != participantlog.CodeParameterInvalid {
		t.Errorf("partial triplet code = %s", res.Code)
	}
}

func TestStatusText(t *testing.T) {
	got := StatusText(participantlog.Status{
		State:    participantlog.StateStopped,
		Interval: 2 * time.Second,
		Routes:   sink.File,
	})
	want := "Log state     : Stopped\n" +
		"Log interval  : 2000 ms\n" +
		"Log route     : file\n" +
		"Log File Name : NA\n" +
		"Session       : NA"
	if got != want {
		t.Errorf("StatusText() =\n%s\nwant\n%s", got, want)
	}
}

func TestReport(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	r := Report(participantlog.Status{
		State:     participantlog.StateStarted,
		Interval:  2 * time.Second,
		Routes:    sink.File | sink.Console,
		SessionID: "abc",
		Entries:   3,
		StartedAt: started,
	})

	if r.IntervalMs != 2000 || r.State != participantlog.StateStarted || r.Entries != 3 {
		t.Errorf("Report() = %+v", r)
	}
	if len(r.Routes) != 2 || r.Routes[0] != "console" || r.Routes[1] != "file" {
		t.Errorf("Routes = %v, want [console file]", r.Routes)
	}
	if r.StartedAt == nil || !r.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v", r.StartedAt)
	}
	if r.ScheduledFor != nil {
		t.Errorf("ScheduledFor = %v, want nil", r.ScheduledFor)
	}

	empty := Report(participantlog.Status{State: participantlog.StateStopped})
	if empty.Routes == nil || len(empty.Routes) != 0 {
		t.Errorf("Routes = %#v, want empty slice", empty.Routes)
	}
}
