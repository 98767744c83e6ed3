// Package capability describes the telemetry capabilities a participant
// sub-device can expose.
//
// Each capability type owns one bit of a capability mask (the bit index is
// the type id) and one Descriptor. The descriptor is the only place that
// knows a capability's output columns, whether the engine pulls its value
// each tick or renders the last value the device pushed, and how the binary
// payload converts to text. Header rendering, placeholder emission and value
// formatting all read the same table.
//
// Payloads are fixed little-endian layouts with one field per column.
package capability
