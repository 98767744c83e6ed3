package primitive

import (
	"context"
	"fmt"
)

// ID names a primitive.
type ID uint16

// Primitives served by the host executor. Zero is reserved for "none".
const (
	// GetTemperature returns tenths of a degree Celsius, two's complement in 32 bits.
	GetTemperature ID = iota + 1
	// GetPower returns average power in milliwatts since the previous read.
	GetPower
	// GetUtilization returns hundredths of a percent.
	GetUtilization
	// GetBatteryCharge returns the charge level in percent.
	GetBatteryCharge
	// GetBatteryVoltage returns millivolts.
	GetBatteryVoltage
	// GetBatteryRate returns the charge or discharge rate in milliwatts.
	GetBatteryRate
)

var idNames = map[ID]string{
	GetTemperature:    "get-temperature",
	GetPower:          "get-power",
	GetUtilization:    "get-utilization",
	GetBatteryCharge:  "get-battery-charge",
	GetBatteryVoltage: "get-battery-voltage",
	GetBatteryRate:    "get-battery-rate",
}

func (id ID) String() string {
	if n, ok := idNames[id]; ok {
		return n
	}
	return fmt.Sprintf("primitive(%d)", uint16(id))
}

// Executor performs a synchronous primitive read.
//
// Implementations must honour ctx and return promptly; the engine calls Read
// from its polling goroutine.
type Executor interface {
	Read(ctx context.Context, participantID uint32, domain uint8, id ID) (uint64, error)
}

// BindingResolver maps a participant domain to the host object backing it.
type BindingResolver interface {
	Binding(participantID uint32, domain uint8) (string, bool)
}
