package eventbus

import (
	"github.com/nerrad567/thermlog/internal/capability"
)

// Type identifies an event.
type Type uint8

// Event types.
const (
	// ParticipantCreated fires when a participant finishes creation.
	ParticipantCreated Type = iota + 1
	// ParticipantResumed fires when a suspended participant is available again.
	ParticipantResumed
	// ParticipantSuspended fires when a participant becomes temporarily unavailable.
	ParticipantSuspended
	// ParticipantUnregistered fires when a participant goes away.
	ParticipantUnregistered
	// ControlAction carries a capability payload pushed by a participant.
	ControlAction
	// LoggingEnabled asks a participant to start pushing the capabilities in Mask.
	LoggingEnabled
	// LoggingDisabled asks a participant to stop pushing the capabilities in Mask.
	LoggingDisabled
	// SessionChanged fires when the logging session changes state.
	SessionChanged
)

var typeNames = map[Type]string{
	ParticipantCreated:      "create",
	ParticipantResumed:      "resume",
	ParticipantSuspended:    "suspend",
	ParticipantUnregistered: "unregister",
	ControlAction:           "control-action",
	LoggingEnabled:          "enabled",
	LoggingDisabled:         "disabled",
	SessionChanged:          "session-changed",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseLifecycle maps a lifecycle event name to its Type.
func ParseLifecycle(name string) (Type, bool) {
	for _, t := range []Type{ParticipantCreated, ParticipantResumed, ParticipantSuspended, ParticipantUnregistered} {
		if typeNames[t] == name {
			return t, true
		}
	}
	return 0, false
}

// Filter values matching every participant or every domain.
const (
	AnyParticipant = ^uint32(0)
	AnyDomain      = ^uint8(0)
)

// Event is a single bus message. Fields not meaningful for Type are zero.
type Event struct {
	Type          Type
	ParticipantID uint32
	Domain        uint8

	// Name is the participant name on lifecycle events.
	Name string

	// Capability and Payload describe a ControlAction.
	Capability capability.Type
	Payload    []byte

	// Mask is the capability set of LoggingEnabled/LoggingDisabled.
	Mask capability.Mask
}

// Handler receives events.
type Handler func(Event)
