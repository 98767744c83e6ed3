package capability

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/nerrad567/thermlog/internal/primitive"
)

// Type identifies a capability. Its value is the bit index in a Mask.
type Type uint8

// Capability types. The numbering matches the bit positions advertised by
// participants and must not be reordered.
const (
	ActiveFanControl Type = iota
	ConfigTDPControl
	CoreControl
	DisplayControl
	DomainPriority
	PerformanceControl
	PowerControl
	PowerStatus
	TemperatureStatus
	UtilizationStatus
	PixelClockStatus
	PixelClockControl
	PlatformPowerStatus
	TemperatureThreshold
	RFProfileStatus
	RFProfileControl
	NetworkControl
	TransmitPowerControl
	HDCControl
	PSysControl
	BatteryStatus
	EnergyControl
	ManagerStatus
	WorkloadClassification
	DynamicEPP

	typeCount
)

// Placeholder is rendered in place of every value that cannot be shown.
const Placeholder = "X"

// ErrShortPayload is returned when a payload is smaller than its layout.
var ErrShortPayload = errors.New("capability: payload shorter than layout")

// Model says where a capability's value comes from.
type Model uint8

const (
	// Push capabilities render the last payload the device sent.
	Push Model = iota
	// Pull capabilities are re-read through the primitive layer every tick.
	Pull
)

func (m Model) String() string {
	if m == Pull {
		return "pull"
	}
	return "push"
}

// Kind selects a field's width and text conversion.
type Kind uint8

const (
	// Uint32 is a 32-bit unsigned decimal.
	Uint32 Kind = iota
	// Uint64 is a 64-bit unsigned decimal.
	Uint64
	// Tenths is a signed 32-bit value in tenths of a degree, shown with one decimal.
	Tenths
	// Hundredths is a 32-bit value in hundredths of a percent, shown as a whole percent.
	Hundredths
)

// Size returns the field width in bytes.
func (k Kind) Size() int {
	if k == Uint64 {
		return 8
	}
	return 4
}

func (k Kind) format(b []byte) string {
	switch k {
	case Uint64:
		return strconv.FormatUint(binary.LittleEndian.Uint64(b), 10)
	case Tenths:
		v := int32(binary.LittleEndian.Uint32(b))
		return strconv.FormatFloat(float64(v)/10, 'f', 1, 64)
	case Hundredths:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)/100), 10)
	default:
		return strconv.FormatUint(uint64(binary.LittleEndian.Uint32(b)), 10)
	}
}

// Field is one output column of a capability.
type Field struct {
	Column string
	Kind   Kind

	// Read is the primitive that refreshes this field. Only set on pull capabilities.
	Read primitive.ID
}

// Descriptor is the static description of one capability type.
type Descriptor struct {
	Type   Type
	Name   string
	Model  Model
	Fields []Field
}

// Columns returns the column names in output order.
func (d Descriptor) Columns() []string {
	cols := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		cols[i] = f.Column
	}
	return cols
}

// PayloadSize returns the byte length of a full payload.
func (d Descriptor) PayloadSize() int {
	n := 0
	for _, f := range d.Fields {
		n += f.Kind.Size()
	}
	return n
}

// Format converts a payload into one string per column.
func (d Descriptor) Format(payload []byte) ([]string, error) {
	if len(payload) < d.PayloadSize() {
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrShortPayload, d.Name, d.PayloadSize(), len(payload))
	}
	out := make([]string, len(d.Fields))
	off := 0
	for i, f := range d.Fields {
		size := f.Kind.Size()
		out[i] = f.Kind.format(payload[off : off+size])
		off += size
	}
	return out, nil
}

// Encode packs one value per field into a payload.
// Extra values are ignored; missing values encode as zero.
func (d Descriptor) Encode(values ...uint64) []byte {
	buf := make([]byte, d.PayloadSize())
	off := 0
	for i, f := range d.Fields {
		var v uint64
		if i < len(values) {
			v = values[i]
		}
		if f.Kind == Uint64 {
			binary.LittleEndian.PutUint64(buf[off:], v)
		} else {
			binary.LittleEndian.PutUint32(buf[off:], uint32(v))
		}
		off += f.Kind.Size()
	}
	return buf
}

// Placeholders returns one Placeholder per column.
func (d Descriptor) Placeholders() []string {
	out := make([]string, len(d.Fields))
	for i := range out {
		out[i] = Placeholder
	}
	return out
}

// Bit returns the mask bit for t.
func (t Type) Bit() Mask {
	return Mask(1) << t
}

func (t Type) String() string {
	if d, ok := Lookup(t); ok {
		return d.Name
	}
	return "capability(" + strconv.Itoa(int(t)) + ")"
}

// Lookup returns the descriptor for t.
func Lookup(t Type) (Descriptor, bool) {
	if t >= typeCount {
		return Descriptor{}, false
	}
	return table[t], true
}

// All returns every descriptor in bit order.
func All() []Descriptor {
	out := make([]Descriptor, len(table))
	copy(out, table[:])
	return out
}

// ParseType resolves a capability by its name, for example "temperature-status".
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, d := range table {
		if d.Name == name {
			return d.Type, true
		}
	}
	return 0, false
}

// Mask is a set of capability types.
type Mask uint32

// KnownMask holds every bit that has a descriptor.
const KnownMask = Mask(1)<<typeCount - 1

// Has reports whether t is in m.
func (m Mask) Has(t Type) bool {
	return m&t.Bit() != 0
}

// Known drops bits without a descriptor.
func (m Mask) Known() Mask {
	return m & KnownMask
}

// Types lists the known types in m in bit order.
func (m Mask) Types() []Type {
	m = m.Known()
	out := make([]Type, 0, bits.OnesCount32(uint32(m)))
	for m != 0 {
		t := Type(bits.TrailingZeros32(uint32(m)))
		out = append(out, t)
		m &^= t.Bit()
	}
	return out
}

// PushOnly keeps the bits of push-model capabilities.
func (m Mask) PushOnly() Mask {
	var out Mask
	for _, t := range m.Types() {
		if table[t].Model == Push {
			out |= t.Bit()
		}
	}
	return out
}

func (m Mask) String() string {
	return fmt.Sprintf("0x%X", uint32(m))
}

// ParseMask accepts "0x"-prefixed hex or decimal.
func ParseMask(s string) (Mask, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if hex, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		v, err = strconv.ParseUint(hex, 16, 32)
	} else {
		v, err = strconv.ParseUint(s, 10, 32)
	}
	if err != nil {
		return 0, fmt.Errorf("capability: invalid mask %q: %w", s, err)
	}
	return Mask(v), nil
}

// MarshalText renders the mask as hex so JSON payloads carry "0x180".
func (m Mask) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText accepts the forms ParseMask accepts.
func (m *Mask) UnmarshalText(text []byte) error {
	v, err := ParseMask(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
