package sink

import (
	"fmt"
	"io"
	"sync"
)

// Backend writes one line to a route.
type Backend interface {
	Write(line string) error
}

// ConsoleBackend writes lines to an io.Writer, normally os.Stdout.
type ConsoleBackend struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console backend writing to w.
func NewConsole(w io.Writer) *ConsoleBackend {
	return &ConsoleBackend{w: w}
}

// Write implements Backend.
func (c *ConsoleBackend) Write(line string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := io.WriteString(c.w, line+"\n"); err != nil {
		return fmt.Errorf("console write: %w", err)
	}
	return nil
}

// DebugLogger is the slice of a structured logger the debugger route uses.
type DebugLogger interface {
	Debug(msg string, args ...any)
}

// DebuggerBackend emits lines as debug records of the daemon logger.
type DebuggerBackend struct {
	logger DebugLogger
}

// NewDebugger creates a debugger backend.
func NewDebugger(logger DebugLogger) *DebuggerBackend {
	return &DebuggerBackend{logger: logger}
}

// Write implements Backend.
func (d *DebuggerBackend) Write(line string) error {
	d.logger.Debug("participant log", "line", line)
	return nil
}

// Broadcaster delivers a payload to every subscriber of a channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// StreamChannel is the hub channel carrying participant log lines.
const StreamChannel = "participant.log"

// StreamLine is the payload broadcast for each line.
type StreamLine struct {
	Line string `json:"line"`
}

// StreamBackend forwards lines to WebSocket subscribers.
type StreamBackend struct {
	hub Broadcaster
}

// NewStream creates a stream backend over hub.
func NewStream(hub Broadcaster) *StreamBackend {
	return &StreamBackend{hub: hub}
}

// Write implements Backend. Delivery is best effort; slow subscribers are
// dropped by the hub, not reported here.
func (s *StreamBackend) Write(line string) error {
	s.hub.Broadcast(StreamChannel, StreamLine{Line: line})
	return nil
}
