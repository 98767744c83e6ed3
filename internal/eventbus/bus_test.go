package eventbus

import (
	"sync"
	"testing"
)

// MockLogger records error messages.
type MockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *MockLogger) Debug(string, ...any) {}
func (m *MockLogger) Info(string, ...any)  {}
func (m *MockLogger) Warn(string, ...any)  {}
func (m *MockLogger) Error(msg string, _ ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func TestBus_Filters(t *testing.T) {
	bus := New()

	var got []string
	record := func(tag string) Handler {
		return func(Event) { got = append(got, tag) }
	}

	bus.Subscribe(ParticipantSuspended, AnyParticipant, AnyDomain, record("any"))
	bus.Subscribe(ParticipantSuspended, 4, AnyDomain, record("p4"))
	bus.Subscribe(ControlAction, 4, 1, record("p4d1"))

	tests := []struct {
		name string
		ev   Event
		want []string
	}{
		{"suspend p4", Event{Type: ParticipantSuspended, ParticipantID: 4}, []string{"any", "p4"}},
		{"suspend p5", Event{Type: ParticipantSuspended, ParticipantID: 5}, []string{"any"}},
		{"control p4 d1", Event{Type: ControlAction, ParticipantID: 4, Domain: 1}, []string{"p4d1"}},
		{"control p4 d0", Event{Type: ControlAction, ParticipantID: 4, Domain: 0}, nil},
		{"resume", Event{Type: ParticipantResumed, ParticipantID: 4}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			n := bus.Publish(tt.ev)
			if n != len(tt.want) {
				t.Errorf("Publish() delivered %d, want %d", n, len(tt.want))
			}
			if len(got) != len(tt.want) {
				t.Fatalf("handlers = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("handlers = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	calls := 0
	id := bus.Subscribe(ParticipantCreated, AnyParticipant, AnyDomain, func(Event) { calls++ })
	other := bus.Subscribe(ParticipantCreated, AnyParticipant, AnyDomain, func(Event) {})

	bus.Unsubscribe(id)
	bus.Unsubscribe(id) // second call is a no-op

	bus.Publish(Event{Type: ParticipantCreated})
	if calls != 0 {
		t.Errorf("unsubscribed handler called %d times", calls)
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}
	bus.Unsubscribe(other)
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", bus.SubscriptionCount())
	}
}

func TestBus_PanicRecovered(t *testing.T) {
	bus := New()
	logger := &MockLogger{}
	bus.SetLogger(logger)

	after := false
	bus.Subscribe(ControlAction, AnyParticipant, AnyDomain, func(Event) { panic("boom") })
	bus.Subscribe(ControlAction, AnyParticipant, AnyDomain, func(Event) { after = true })

	bus.Publish(Event{Type: ControlAction})

	if !after {
		t.Error("handler after the panicking one was not called")
	}
	if len(logger.errors) != 1 {
		t.Errorf("logged %d errors, want 1", len(logger.errors))
	}
}

func TestBus_HandlerMayPublish(t *testing.T) {
	bus := New()
	done := make(chan struct{})
	bus.Subscribe(ParticipantCreated, AnyParticipant, AnyDomain, func(ev Event) {
		bus.Publish(Event{Type: LoggingEnabled, ParticipantID: ev.ParticipantID})
	})
	bus.Subscribe(LoggingEnabled, 9, AnyDomain, func(Event) { close(done) })

	bus.Publish(Event{Type: ParticipantCreated, ParticipantID: 9})

	select {
	case <-done:
	default:
		t.Fatal("nested publish was not delivered")
	}
}

func TestParseLifecycle(t *testing.T) {
	for _, name := range []string{"create", "resume", "suspend", "unregister"} {
		typ, ok := ParseLifecycle(name)
		if !ok || typ.String() != name {
			t.Errorf("ParseLifecycle(%q) = %v, %v", name, typ, ok)
		}
	}
	if _, ok := ParseLifecycle("control-action"); ok {
		t.Error("control-action is not a lifecycle event")
	}
}
