package sampler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// Source produces one keyed sample per tick.
type Source interface {
	Name() string
	Sample(ctx context.Context) (map[string]string, error)
}

// Source names.
const (
	SourceCPU     = "cpu"
	SourceMemory  = "memory"
	SourceLoad    = "load"
	SourceSensors = "sensors"
)

// NewSource returns the host collector registered under name.
func NewSource(name string) (Source, error) {
	switch name {
	case SourceCPU:
		return &CPUSource{percent: cpu.PercentWithContext}, nil
	case SourceMemory:
		return &MemorySource{virtual: mem.VirtualMemoryWithContext}, nil
	case SourceLoad:
		return &LoadSource{avg: load.AvgWithContext}, nil
	case SourceSensors:
		return &SensorsSource{temperatures: host.SensorsTemperaturesWithContext}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
}

// NewSources resolves every name in order.
func NewSources(names []string) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, n := range names {
		src, err := NewSource(n)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

// CPUSource reports per-core utilisation as cpu0..cpuN.
type CPUSource struct {
	percent func(context.Context, time.Duration, bool) ([]float64, error)
}

// Name implements Source.
func (s *CPUSource) Name() string { return SourceCPU }

// Sample implements Source.
func (s *CPUSource) Sample(ctx context.Context) (map[string]string, error) {
	// Zero interval measures since the previous tick.
	percents, err := s.percent(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	out := make(map[string]string, len(percents))
	for i, p := range percents {
		out["cpu"+strconv.Itoa(i)] = formatFloat(p, 1)
	}
	return out, nil
}

// MemorySource reports virtual memory usage.
type MemorySource struct {
	virtual func(context.Context) (*mem.VirtualMemoryStat, error)
}

// Name implements Source.
func (s *MemorySource) Name() string { return SourceMemory }

// Sample implements Source.
func (s *MemorySource) Sample(ctx context.Context) (map[string]string, error) {
	vm, err := s.virtual(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	return map[string]string{
		"total_bytes":     strconv.FormatUint(vm.Total, 10),
		"used_bytes":      strconv.FormatUint(vm.Used, 10),
		"available_bytes": strconv.FormatUint(vm.Available, 10),
		"used_percent":    formatFloat(vm.UsedPercent, 1),
	}, nil
}

// LoadSource reports load averages.
type LoadSource struct {
	avg func(context.Context) (*load.AvgStat, error)
}

// Name implements Source.
func (s *LoadSource) Name() string { return SourceLoad }

// Sample implements Source.
func (s *LoadSource) Sample(ctx context.Context) (map[string]string, error) {
	a, err := s.avg(ctx)
	if err != nil {
		return nil, fmt.Errorf("load average: %w", err)
	}
	return map[string]string{
		"load1":  formatFloat(a.Load1, 2),
		"load5":  formatFloat(a.Load5, 2),
		"load15": formatFloat(a.Load15, 2),
	}, nil
}

// SensorsSource reports every temperature sensor in degrees Celsius.
type SensorsSource struct {
	temperatures func(context.Context) ([]host.TemperatureStat, error)
}

// Name implements Source.
func (s *SensorsSource) Name() string { return SourceSensors }

// Sample implements Source.
func (s *SensorsSource) Sample(ctx context.Context) (map[string]string, error) {
	stats, err := s.temperatures(ctx)
	if err != nil && len(stats) == 0 {
		return nil, fmt.Errorf("sensors: %w", err)
	}
	out := make(map[string]string, len(stats))
	for _, st := range stats {
		out[st.SensorKey] = formatFloat(st.Temperature, 1)
	}
	return out, nil
}
