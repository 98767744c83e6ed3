package capability

import "github.com/nerrad567/thermlog/internal/primitive"

func u32(cols ...string) []Field {
	fields := make([]Field, len(cols))
	for i, c := range cols {
		fields[i] = Field{Column: c, Kind: Uint32}
	}
	return fields
}

var table = [typeCount]Descriptor{
	ActiveFanControl: {
		Name:   "active-fan-control",
		Fields: u32("Fan ControlId", "Fan Speed(%)", "Fan Lower Limit(%)", "Fan Upper Limit(%)"),
	},
	ConfigTDPControl: {
		Name: "config-tdp-control",
		Fields: []Field{
			{Column: "Tdp ControlId", Kind: Uint64},
			{Column: "Tdp Frequency(MHz)", Kind: Uint64},
			{Column: "Tdp Power(mW)", Kind: Uint64},
			{Column: "Tdp Ratio", Kind: Uint64},
		},
	},
	CoreControl: {
		Name:   "core-control",
		Fields: u32("Active Cores", "Min Active Cores", "Max Active Cores"),
	},
	DisplayControl: {
		Name:   "display-control",
		Fields: u32("Brightness Limit", "Brightness Lower Limit", "Brightness Upper Limit"),
	},
	DomainPriority: {
		Name:   "domain-priority",
		Fields: u32("Priority"),
	},
	PerformanceControl: {
		Name:   "performance-control",
		Fields: u32("PState Index", "PState Lower Limit", "PState Upper Limit"),
	},
	PowerControl: {
		Name: "power-control",
		Fields: u32(
			"PL1 Limit(mW)", "PL1 Lower Limit(mW)", "PL1 Upper Limit(mW)", "PL1 Time Window(ms)",
			"PL2 Limit(mW)", "PL2 Lower Limit(mW)", "PL2 Upper Limit(mW)", "PL2 Time Window(ms)",
		),
	},
	PowerStatus: {
		Name:   "power-status",
		Model:  Pull,
		Fields: []Field{{Column: "Power(mW)", Kind: Uint32, Read: primitive.GetPower}},
	},
	TemperatureStatus: {
		Name:   "temperature-status",
		Model:  Pull,
		Fields: []Field{{Column: "Temperature(C)", Kind: Tenths, Read: primitive.GetTemperature}},
	},
	UtilizationStatus: {
		Name:   "utilization-status",
		Model:  Pull,
		Fields: []Field{{Column: "Utilization(%)", Kind: Hundredths, Read: primitive.GetUtilization}},
	},
	PixelClockStatus: {
		Name:   "pixel-clock-status",
		Fields: u32("Pixel Clock Status"),
	},
	PixelClockControl: {
		Name:   "pixel-clock-control",
		Fields: u32("Pixel Clock Control"),
	},
	PlatformPowerStatus: {
		Name:   "platform-power-status",
		Fields: u32("Platform Power(mW)"),
	},
	TemperatureThreshold: {
		Name: "temperature-threshold",
		Fields: []Field{
			{Column: "Aux0(C)", Kind: Tenths},
			{Column: "Aux1(C)", Kind: Tenths},
			{Column: "Hysteresis(C)", Kind: Tenths},
		},
	},
	RFProfileStatus: {
		Name:   "rf-profile-status",
		Fields: u32("RF Profile Frequency Status"),
	},
	RFProfileControl: {
		Name:   "rf-profile-control",
		Fields: u32("RF Profile Frequency Control"),
	},
	NetworkControl: {
		Name:   "network-control",
		Fields: u32("Network Control"),
	},
	TransmitPowerControl: {
		Name:   "transmit-power-control",
		Fields: u32("Transmit Power Control"),
	},
	HDCControl: {
		Name:   "hdc-control",
		Fields: u32("Hdc Duty Cycle", "Hdc Status"),
	},
	PSysControl: {
		Name:   "psys-control",
		Fields: u32("PSys Limit Type", "PSys Power Limit(mW)", "PSys Duty Cycle", "PSys Time Window(ms)"),
	},
	BatteryStatus: {
		Name:  "battery-status",
		Model: Pull,
		Fields: []Field{
			{Column: "Battery Charge(%)", Kind: Uint32, Read: primitive.GetBatteryCharge},
			{Column: "Battery Voltage(mV)", Kind: Uint32, Read: primitive.GetBatteryVoltage},
			{Column: "Battery Rate(mW)", Kind: Uint32, Read: primitive.GetBatteryRate},
		},
	},
	EnergyControl: {
		Name:   "energy-control",
		Fields: u32("Energy Counter(uJ)", "Energy Timestamp(us)"),
	},
	ManagerStatus: {
		Name:   "manager-status",
		Fields: u32("OS Power Source", "Platform Power Source", "Dock Mode"),
	},
	WorkloadClassification: {
		Name:   "workload-classification",
		Fields: u32("Workload Class"),
	},
	DynamicEPP: {
		Name:   "dynamic-epp",
		Fields: u32("Dynamic EPP"),
	},
}

func init() {
	for i := range table {
		table[i].Type = Type(i)
	}
}
