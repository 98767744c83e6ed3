package directory

import "errors"

// Domain-specific errors for directory operations.
var (
	// ErrParticipantNotFound is returned when no participant matches the lookup.
	ErrParticipantNotFound = errors.New("directory: participant not found")

	// ErrInvalidParticipant is returned when a participant fails validation.
	ErrInvalidParticipant = errors.New("directory: invalid participant")

	// ErrSubDeviceNotFound is returned for a domain index the participant does not have.
	ErrSubDeviceNotFound = errors.New("directory: sub-device not found")
)
