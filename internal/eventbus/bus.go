package eventbus

import (
	"sync"
)

// Logger is the logging interface used by the bus.
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

// SubscriptionID identifies a subscription for Unsubscribe.
type SubscriptionID uint64

type subscription struct {
	id          SubscriptionID
	typ         Type
	participant uint32
	domain      uint8
	handler     Handler
}

func (s subscription) matches(ev Event) bool {
	if s.typ != ev.Type {
		return false
	}
	if s.participant != AnyParticipant && s.participant != ev.ParticipantID {
		return false
	}
	return s.domain == AnyDomain || s.domain == ev.Domain
}

// Bus is an in-process publish/subscribe bus.
//
// Thread Safety:
//   - All methods are safe for concurrent use. Handlers may publish or
//     subscribe without deadlocking because they run outside subMu.
type Bus struct {
	subMu  sync.RWMutex
	subs   []subscription
	nextID SubscriptionID

	loggerMu sync.RWMutex
	logger   Logger
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{logger: noopLogger{}}
}

// SetLogger sets the logger used to report recovered handler panics.
func (b *Bus) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

func (b *Bus) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// Subscribe registers handler for events of type t from the given
// participant and domain. Use AnyParticipant/AnyDomain as wildcards.
func (b *Bus) Subscribe(t Type, participant uint32, domain uint8, handler Handler) SubscriptionID {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.nextID++
	b.subs = append(b.subs, subscription{
		id:          b.nextID,
		typ:         t,
		participant: participant,
		domain:      domain,
		handler:     handler,
	})
	return b.nextID
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// SubscriptionCount returns the number of live subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	return len(b.subs)
}

// Publish delivers ev to every matching handler and returns the number of
// handlers invoked.
func (b *Bus) Publish(ev Event) int {
	b.subMu.RLock()
	matched := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matches(ev) {
			matched = append(matched, s)
		}
	}
	b.subMu.RUnlock()

	for _, s := range matched {
		b.deliver(s, ev)
	}
	return len(matched)
}

func (b *Bus) deliver(s subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.getLogger().Error("panic in event handler",
				"event", ev.Type.String(),
				"participant", ev.ParticipantID,
				"subscription", uint64(s.id),
				"panic", r,
			)
		}
	}()
	s.handler(ev)
}
