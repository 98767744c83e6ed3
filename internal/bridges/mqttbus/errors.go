package mqttbus

import "errors"

var (
	// ErrInvalidMessage is returned for payloads or topics that cannot be decoded.
	ErrInvalidMessage = errors.New("mqttbus: invalid message")

	// ErrUnknownEvent is returned for a lifecycle event name the bridge does not know.
	ErrUnknownEvent = errors.New("mqttbus: unknown lifecycle event")
)
