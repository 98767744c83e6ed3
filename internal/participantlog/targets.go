package participantlog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/thermlog/internal/capability"
	"github.com/nerrad567/thermlog/internal/directory"
)

// maxTargetArgs bounds the selector arguments of a single command.
const maxTargetArgs = 32

const selectAll = "all"

// Selector names one (participant, domain, capability mask) triplet as
// typed by the user.
type Selector struct {
	Participant string
	Domain      string
	Capability  string
}

func (s Selector) String() string {
	return s.Participant + " " + s.Domain + " " + s.Capability
}

// Targets is what a start or schedule command asks to log.
type Targets struct {
	All       bool
	Selectors []Selector
}

// AllTargets selects every capability of every present participant.
func AllTargets() Targets {
	return Targets{All: true}
}

func (t Targets) String() string {
	if t.All {
		return selectAll
	}
	parts := make([]string, len(t.Selectors))
	for i, s := range t.Selectors {
		parts[i] = s.String()
	}
	return strings.Join(parts, " ")
}

// ParseTargets parses the selector arguments of start and schedule:
//
//	[all] | {participant domain capability}...
//
// No arguments means all.
func ParseTargets(args []string) (Targets, error) {
	if len(args) == 0 || (len(args) == 1 && strings.EqualFold(args[0], selectAll)) {
		return AllTargets(), nil
	}
	if len(args) > maxTargetArgs {
		return Targets{}, fmt.Errorf("%w: %d selector arguments exceeds %d", ErrParameterInvalid, len(args), maxTargetArgs)
	}
	if len(args)%3 != 0 {
		return Targets{}, fmt.Errorf("%w: selectors come in participant/domain/capability triplets", ErrParameterInvalid)
	}

	t := Targets{Selectors: make([]Selector, 0, len(args)/3)}
	for i := 0; i < len(args); i += 3 {
		t.Selectors = append(t.Selectors, Selector{
			Participant: args[i],
			Domain:      args[i+1],
			Capability:  args[i+2],
		})
	}
	return t, nil
}

// resolveParticipant accepts a decimal id or a name.
func resolveParticipant(dir Directory, sel string) (directory.Participant, error) {
	var (
		p   directory.Participant
		err error
	)
	if id, convErr := strconv.ParseUint(sel, 10, 32); convErr == nil {
		p, err = dir.ByID(uint32(id))
	} else {
		p, err = dir.ByName(sel)
	}
	if err != nil {
		return directory.Participant{}, fmt.Errorf("%w: %q", ErrParticipantNotFound, sel)
	}
	if !p.Present {
		return directory.Participant{}, fmt.Errorf("%w: %q is not present", ErrParticipantNotFound, sel)
	}
	return p, nil
}

// resolveDomains accepts "all", a decimal index, or D<n>.
func resolveDomains(p directory.Participant, sel string) ([]uint8, error) {
	count := p.SubDeviceCount()
	if strings.EqualFold(sel, selectAll) {
		out := make([]uint8, count)
		for i := range out {
			out[i] = uint8(i)
		}
		return out, nil
	}

	digits := sel
	if len(digits) > 1 && (digits[0] == 'D' || digits[0] == 'd') {
		digits = digits[1:]
	}
	idx, err := strconv.ParseUint(digits, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSubDeviceID, sel)
	}
	if int(idx) >= count {
		return nil, fmt.Errorf("%w: %s has %d domains, got %d", ErrInvalidSubDeviceID, p.Name, count, idx)
	}
	return []uint8{uint8(idx)}, nil
}

// resolveMask intersects the requested mask with what the domain
// advertises. A domain advertising nothing yields an empty mask.
func resolveMask(sel string, advertised capability.Mask) (capability.Mask, error) {
	requested := advertised
	if !strings.EqualFold(sel, selectAll) {
		m, err := capability.ParseMask(sel)
		if err != nil || m == 0 {
			return 0, fmt.Errorf("%w: %q", ErrCapabilityMaskInvalid, sel)
		}
		requested = m
	}

	mask := requested & advertised
	if mask == 0 && advertised != 0 {
		return 0, fmt.Errorf("%w: %s not advertised (have %s)", ErrCapabilityMaskInvalid, requested, advertised)
	}
	return mask.Known(), nil
}
