package primitive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

const defaultSysfsRoot = "/sys"

// HostExecutor serves primitives from the local machine.
//
// Thread Safety:
//   - Read is safe for concurrent use. RAPL baselines are guarded by energyMu.
type HostExecutor struct {
	bindings  BindingResolver
	sysfsRoot string
	now       func() time.Time

	// Collectors are fields so tests can substitute them.
	sensors    func(context.Context) ([]host.TemperatureStat, error)
	cpuPercent func(context.Context, time.Duration, bool) ([]float64, error)

	energyMu sync.Mutex
	energy   map[string]energySample
}

type energySample struct {
	microjoules uint64
	at          time.Time
}

// HostOption configures a HostExecutor.
type HostOption func(*HostExecutor)

// WithSysfsRoot reads power and battery attributes below root instead of /sys.
func WithSysfsRoot(root string) HostOption {
	return func(h *HostExecutor) { h.sysfsRoot = root }
}

// WithClock replaces time.Now, used for power averaging.
func WithClock(now func() time.Time) HostOption {
	return func(h *HostExecutor) { h.now = now }
}

// WithSensorCollector replaces the gopsutil temperature collector.
func WithSensorCollector(fn func(context.Context) ([]host.TemperatureStat, error)) HostOption {
	return func(h *HostExecutor) { h.sensors = fn }
}

// WithCPUCollector replaces the gopsutil utilisation collector.
func WithCPUCollector(fn func(context.Context, time.Duration, bool) ([]float64, error)) HostOption {
	return func(h *HostExecutor) { h.cpuPercent = fn }
}

// NewHostExecutor creates an executor resolving bindings through b.
func NewHostExecutor(b BindingResolver, opts ...HostOption) *HostExecutor {
	h := &HostExecutor{
		bindings:   b,
		sysfsRoot:  defaultSysfsRoot,
		now:        time.Now,
		sensors:    host.SensorsTemperaturesWithContext,
		cpuPercent: cpu.PercentWithContext,
		energy:     make(map[string]energySample),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Read implements Executor.
func (h *HostExecutor) Read(ctx context.Context, participantID uint32, domain uint8, id ID) (uint64, error) {
	binding, ok := h.bindings.Binding(participantID, domain)
	if !ok || binding == "" {
		return 0, fmt.Errorf("%w: participant %d domain %d", ErrNoBinding, participantID, domain)
	}

	switch id {
	case GetTemperature:
		return h.readTemperature(ctx, binding)
	case GetUtilization:
		return h.readUtilization(ctx, binding)
	case GetPower:
		return h.readPower(binding)
	case GetBatteryCharge:
		return h.readSupplyAttr(binding, "capacity", 1)
	case GetBatteryVoltage:
		return h.readSupplyAttr(binding, "voltage_now", 1000)
	case GetBatteryRate:
		return h.readBatteryRate(binding)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupported, id)
	}
}

func (h *HostExecutor) readTemperature(ctx context.Context, sensorKey string) (uint64, error) {
	stats, err := h.sensors(ctx)
	// gopsutil reports unreadable sensors as warnings next to partial results.
	if err != nil && len(stats) == 0 {
		return 0, fmt.Errorf("%w: sensors: %w", ErrReadFailed, err)
	}
	for _, s := range stats {
		if s.SensorKey == sensorKey {
			tenths := int32(math.Round(s.Temperature * 10))
			return uint64(uint32(tenths)), nil
		}
	}
	return 0, fmt.Errorf("%w: sensor %q not reported", ErrReadFailed, sensorKey)
}

func (h *HostExecutor) readUtilization(ctx context.Context, selector string) (uint64, error) {
	perCPU := selector != "cpu"
	index := 0
	if perCPU {
		n, err := strconv.Atoi(strings.TrimPrefix(selector, "cpu"))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: bad cpu selector %q", ErrReadFailed, selector)
		}
		index = n
	}

	// Zero interval compares against the previous call, which is the poll tick.
	percents, err := h.cpuPercent(ctx, 0, perCPU)
	if err != nil {
		return 0, fmt.Errorf("%w: cpu percent: %w", ErrReadFailed, err)
	}
	if index >= len(percents) {
		return 0, fmt.Errorf("%w: cpu %d not reported", ErrReadFailed, index)
	}
	return uint64(math.Round(percents[index] * 100)), nil
}

// readPower derives average milliwatts from two RAPL energy counter samples.
func (h *HostExecutor) readPower(zone string) (uint64, error) {
	dir := filepath.Join(h.sysfsRoot, "class", "powercap", zone)
	uj, err := readUint(filepath.Join(dir, "energy_uj"))
	if err != nil {
		return 0, err
	}
	now := h.now()

	h.energyMu.Lock()
	prev, ok := h.energy[zone]
	h.energy[zone] = energySample{microjoules: uj, at: now}
	h.energyMu.Unlock()

	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNoBaseline, zone)
	}
	elapsed := now.Sub(prev.at)
	if elapsed <= 0 {
		return 0, fmt.Errorf("%w: %s: non-increasing clock", ErrReadFailed, zone)
	}

	delta := uj - prev.microjoules
	if uj < prev.microjoules {
		// Counter wrapped at max_energy_range_uj.
		maxRange, err := readUint(filepath.Join(dir, "max_energy_range_uj"))
		if err != nil {
			return 0, err
		}
		delta = maxRange - prev.microjoules + uj
	}

	// uJ per us is W; scale to mW.
	return delta * 1000 / uint64(elapsed.Microseconds()), nil
}

func (h *HostExecutor) readSupplyAttr(supply, attr string, divisor uint64) (uint64, error) {
	v, err := readUint(filepath.Join(h.sysfsRoot, "class", "power_supply", supply, attr))
	if err != nil {
		return 0, err
	}
	return v / divisor, nil
}

// readBatteryRate prefers power_now and falls back to current_now * voltage_now.
func (h *HostExecutor) readBatteryRate(supply string) (uint64, error) {
	dir := filepath.Join(h.sysfsRoot, "class", "power_supply", supply)
	if uw, err := readUint(filepath.Join(dir, "power_now")); err == nil {
		return uw / 1000, nil
	}
	ua, err := readUint(filepath.Join(dir, "current_now"))
	if err != nil {
		return 0, err
	}
	uv, err := readUint(filepath.Join(dir, "voltage_now"))
	if err != nil {
		return 0, err
	}
	// uA * uV = pW; scale to mW.
	return ua * uv / 1_000_000_000, nil
}

func readUint(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s missing", ErrReadFailed, path)
		}
		return 0, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	text := strings.TrimSpace(string(data))
	// Some drivers report negative currents while discharging.
	text = strings.TrimPrefix(text, "-")
	v, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrReadFailed, path, err)
	}
	return v, nil
}
