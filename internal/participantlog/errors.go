package participantlog

import (
	"errors"
	"fmt"
)

// Command and enrollment errors. Each maps to a stable Code.
var (
	// ErrParameterInvalid indicates a malformed command argument.
	ErrParameterInvalid = errors.New("participantlog: parameter invalid")

	// ErrParticipantNotFound indicates a device selector matched no present participant.
	ErrParticipantNotFound = errors.New("participantlog: participant not found")

	// ErrInvalidSubDeviceID indicates a domain selector outside the participant's range.
	ErrInvalidSubDeviceID = errors.New("participantlog: invalid sub-device id")

	// ErrCapabilityMaskInvalid indicates a capability selector that selects nothing.
	ErrCapabilityMaskInvalid = errors.New("participantlog: capability mask invalid")

	// ErrAlreadyActive indicates logging is already started.
	ErrAlreadyActive = errors.New("participantlog: already active")

	// ErrNotActive indicates logging is neither started nor scheduled.
	ErrNotActive = errors.New("participantlog: not active")

	// ErrNoDataToLog indicates enrollment resolved no entries.
	ErrNoDataToLog = errors.New("participantlog: no data to log")

	// ErrNoMemory indicates the entry store is full.
	ErrNoMemory = errors.New("participantlog: entry store full")

	// ErrPrimitiveReadFailed indicates a pull refresh failed.
	ErrPrimitiveReadFailed = errors.New("participantlog: primitive read failed")

	// ErrIoError indicates an output route could not be opened.
	ErrIoError = errors.New("participantlog: i/o error")
)

// Code is the numeric form of an error, shown to command users.
type Code int

// Error codes.
const (
	CodeOK Code = iota
	CodeParameterInvalid
	CodeParticipantNotFound
	CodeInvalidSubDeviceID
	CodeCapabilityMaskInvalid
	CodeAlreadyActive
	CodeNotActive
	CodeNoDataToLog
	CodeNoMemory
	CodePrimitiveReadFailed
	CodeIoError

	// CodeInternal is returned for errors outside the taxonomy.
	CodeInternal Code = 99
)

var codeTable = []struct {
	err  error
	code Code
	name string
}{
	{ErrParameterInvalid, CodeParameterInvalid, "ParameterInvalid"},
	{ErrParticipantNotFound, CodeParticipantNotFound, "ParticipantNotFound"},
	{ErrInvalidSubDeviceID, CodeInvalidSubDeviceID, "InvalidSubDeviceId"},
	{ErrCapabilityMaskInvalid, CodeCapabilityMaskInvalid, "CapabilityMaskInvalid"},
	{ErrAlreadyActive, CodeAlreadyActive, "AlreadyActive"},
	{ErrNotActive, CodeNotActive, "NotActive"},
	{ErrNoDataToLog, CodeNoDataToLog, "NoDataToLog"},
	{ErrNoMemory, CodeNoMemory, "NoMemory"},
	{ErrPrimitiveReadFailed, CodePrimitiveReadFailed, "PrimitiveReadFailed"},
	{ErrIoError, CodeIoError, "IoError"},
}

// CodeOf returns the code of the first sentinel err wraps.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, c := range codeTable {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeInternal:
		return "Internal"
	}
	for _, e := range codeTable {
		if e.code == c {
			return e.name
		}
	}
	return fmt.Sprintf("Code(%d)", int(c))
}
