//go:build windows || plan9

package sink

// EventLogBackend is unavailable on this platform; every write fails.
type EventLogBackend struct{}

// NewEventLog creates an event log backend. The tag is unused here.
func NewEventLog(string) *EventLogBackend {
	return &EventLogBackend{}
}

// Write implements Backend.
func (*EventLogBackend) Write(string) error {
	return ErrUnsupported
}

// Close is a no-op.
func (*EventLogBackend) Close() error {
	return nil
}
