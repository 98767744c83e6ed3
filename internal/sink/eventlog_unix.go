//go:build !windows && !plan9

package sink

import (
	"fmt"
	"log/syslog"
	"sync"
)

// EventLogBackend writes lines to the system log.
//
// The connection is opened on first write and dropped after a failed write,
// so a restarted syslog daemon is picked up on the next tick.
type EventLogBackend struct {
	tag string

	mu sync.Mutex
	w  *syslog.Writer
}

// NewEventLog creates an event log backend tagging records with tag.
func NewEventLog(tag string) *EventLogBackend {
	return &EventLogBackend{tag: tag}
}

// Write implements Backend.
func (e *EventLogBackend) Write(line string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.w == nil {
		w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_DAEMON, e.tag)
		if err != nil {
			return fmt.Errorf("connecting to syslog: %w", err)
		}
		e.w = w
	}
	if err := e.w.Info(line); err != nil {
		e.w.Close() //nolint:errcheck // reconnect on next write
		e.w = nil
		return fmt.Errorf("syslog write: %w", err)
	}
	return nil
}

// Close releases the syslog connection.
func (e *EventLogBackend) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.w == nil {
		return nil
	}
	err := e.w.Close()
	e.w = nil
	return err
}
