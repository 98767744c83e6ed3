package participantlog

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err      error
		want     Code
		wantName string
	}{
		{nil, CodeOK, "OK"},
		{ErrParameterInvalid, 1, "ParameterInvalid"},
		{fmt.Errorf("%w: %q", ErrParticipantNotFound, "TFN9"), 2, "ParticipantNotFound"},
		{ErrInvalidSubDeviceID, 3, "InvalidSubDeviceId"},
		{ErrCapabilityMaskInvalid, 4, "CapabilityMaskInvalid"},
		{ErrAlreadyActive, 5, "AlreadyActive"},
		{ErrNotActive, 6, "NotActive"},
		{ErrNoDataToLog, 7, "NoDataToLog"},
		{fmt.Errorf("%w: 40 entries requested", ErrNoMemory), 8, "NoMemory"},
		{ErrPrimitiveReadFailed, 9, "PrimitiveReadFailed"},
		{fmt.Errorf("%w: %w", ErrIoError, errors.New("permission denied")), 10, "IoError"},
		{errors.New("boom"), CodeInternal, "Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			got := CodeOf(tt.err)
			if got != tt.want {
				t.Errorf("CodeOf() = %d, want %d", got, tt.want)
			}
			if got.String() != tt.wantName {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantName)
			}
		})
	}
}
