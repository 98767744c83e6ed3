package mqttbus

import (
	"github.com/nerrad567/thermlog/internal/capability"
	"github.com/nerrad567/thermlog/internal/directory"
)

// LifecycleMessage arrives on thermlog/participant/{id}/lifecycle.
type LifecycleMessage struct {
	Event   string                `json:"event"`
	Name    string                `json:"name,omitempty"`
	Domains []directory.SubDevice `json:"domains,omitempty"`
}

// ControlMessage arrives on thermlog/participant/{id}/control. Payload is
// base64 in JSON.
type ControlMessage struct {
	Domain     uint8           `json:"domain"`
	Capability capability.Type `json:"capability"`
	Payload    []byte          `json:"payload"`
}

// LoggingMessage is published on thermlog/participant/{id}/logging.
type LoggingMessage struct {
	Event          string          `json:"event"`
	Domain         uint8           `json:"domain"`
	CapabilityMask capability.Mask `json:"capability_mask"`
}

// CommandMessage arrives on thermlog/command.
type CommandMessage struct {
	ID      string `json:"id"`
	Command string `json:"command"`
}

// CommandResponse is published on thermlog/command/response.
type CommandResponse struct {
	ID     string `json:"id"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   int    `json:"code"`
}
