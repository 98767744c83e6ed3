package directory

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/thermlog/internal/capability"
)

// maxSubDevices bounds the domain index, which is a uint8 on the wire.
const maxSubDevices = 255

// SubDevice is one addressable domain of a participant.
type SubDevice struct {
	Index          uint8           `json:"index"`
	CapabilityMask capability.Mask `json:"capability_mask"`
	Binding        string          `json:"binding,omitempty"`
}

// Participant is a device announced by the host.
type Participant struct {
	ID         uint32      `json:"id"`
	Name       string      `json:"name"`
	Present    bool        `json:"present"`
	SubDevices []SubDevice `json:"domains"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// SubDeviceCount returns the number of domains.
func (p Participant) SubDeviceCount() int {
	return len(p.SubDevices)
}

// CapabilityMask returns the mask advertised by domain idx.
func (p Participant) CapabilityMask(idx uint8) (capability.Mask, error) {
	for _, sd := range p.SubDevices {
		if sd.Index == idx {
			return sd.CapabilityMask, nil
		}
	}
	return 0, fmt.Errorf("%w: %s domain %d", ErrSubDeviceNotFound, p.Name, idx)
}

// Clone returns a copy that shares no slices with p.
func (p Participant) Clone() Participant {
	out := p
	out.SubDevices = append([]SubDevice(nil), p.SubDevices...)
	return out
}

// Validate checks a participant announcement.
//
// Names end up in CSV headers, so commas and line breaks are rejected.
// Domain indexes must be dense (0..n-1) because sub-device selectors are
// range-checked against the count.
func (p Participant) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidParticipant)
	}
	if strings.ContainsAny(p.Name, ",\r\n") {
		return fmt.Errorf("%w: name %q contains a separator", ErrInvalidParticipant, p.Name)
	}
	if len(p.SubDevices) > maxSubDevices {
		return fmt.Errorf("%w: %d domains exceeds %d", ErrInvalidParticipant, len(p.SubDevices), maxSubDevices)
	}
	for i, sd := range p.SubDevices {
		if int(sd.Index) != i {
			return fmt.Errorf("%w: domain %d listed at position %d", ErrInvalidParticipant, sd.Index, i)
		}
	}
	return nil
}
