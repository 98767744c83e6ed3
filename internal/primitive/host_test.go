package primitive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

type staticBindings map[uint32]map[uint8]string

func (s staticBindings) Binding(participantID uint32, domain uint8) (string, bool) {
	b, ok := s[participantID][domain]
	return b, ok
}

func writeAttr(t *testing.T, path, value string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestHostExecutor_NoBinding(t *testing.T) {
	h := NewHostExecutor(staticBindings{})
	_, err := h.Read(context.Background(), 3, 0, GetTemperature)
	if !errors.Is(err, ErrNoBinding) {
		t.Errorf("Read() error = %v, want ErrNoBinding", err)
	}
}

func TestHostExecutor_Unsupported(t *testing.T) {
	h := NewHostExecutor(staticBindings{1: {0: "x"}})
	_, err := h.Read(context.Background(), 1, 0, ID(999))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("Read() error = %v, want ErrUnsupported", err)
	}
}

func TestHostExecutor_Temperature(t *testing.T) {
	sensors := func(context.Context) ([]host.TemperatureStat, error) {
		return []host.TemperatureStat{
			{SensorKey: "coretemp_package_id_0", Temperature: 47.26},
			{SensorKey: "acpitz", Temperature: -3.5},
		}, errors.New("one sensor unreadable")
	}
	h := NewHostExecutor(staticBindings{1: {0: "coretemp_package_id_0", 1: "acpitz", 2: "missing"}},
		WithSensorCollector(sensors))

	got, err := h.Read(context.Background(), 1, 0, GetTemperature)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != 473 {
		t.Errorf("temperature = %d, want 473 tenths", got)
	}

	got, err = h.Read(context.Background(), 1, 1, GetTemperature)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if int32(uint32(got)) != -35 {
		t.Errorf("negative temperature = %d, want -35", int32(uint32(got)))
	}

	if _, err := h.Read(context.Background(), 1, 2, GetTemperature); !errors.Is(err, ErrReadFailed) {
		t.Errorf("missing sensor error = %v, want ErrReadFailed", err)
	}
}

func TestHostExecutor_Utilization(t *testing.T) {
	var gotPerCPU []bool
	collector := func(_ context.Context, _ time.Duration, perCPU bool) ([]float64, error) {
		gotPerCPU = append(gotPerCPU, perCPU)
		if perCPU {
			return []float64{10.5, 99.994}, nil
		}
		return []float64{55.25}, nil
	}
	h := NewHostExecutor(staticBindings{0: {0: "cpu", 1: "cpu1", 2: "cpu7", 3: "gpu"}}, WithCPUCollector(collector))
	ctx := context.Background()

	tests := []struct {
		domain  uint8
		want    uint64
		wantErr bool
	}{
		{0, 5525, false},
		{1, 9999, false},
		{2, 0, true},
		{3, 0, true},
	}
	for _, tt := range tests {
		got, err := h.Read(ctx, 0, tt.domain, GetUtilization)
		if (err != nil) != tt.wantErr {
			t.Fatalf("domain %d: error = %v, wantErr %v", tt.domain, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("domain %d: got %d, want %d", tt.domain, got, tt.want)
		}
	}
	if len(gotPerCPU) == 0 || gotPerCPU[0] {
		t.Errorf("aggregate selector should request the total, calls = %v", gotPerCPU)
	}
}

func TestHostExecutor_Power(t *testing.T) {
	root := t.TempDir()
	zone := filepath.Join(root, "class", "powercap", "intel-rapl:0")
	writeAttr(t, filepath.Join(zone, "max_energy_range_uj"), "1000000")

	now := time.Unix(1000, 0)
	h := NewHostExecutor(staticBindings{2: {0: "intel-rapl:0"}},
		WithSysfsRoot(root),
		WithClock(func() time.Time { return now }))
	ctx := context.Background()

	writeAttr(t, filepath.Join(zone, "energy_uj"), "100000")
	if _, err := h.Read(ctx, 2, 0, GetPower); !errors.Is(err, ErrNoBaseline) {
		t.Fatalf("first read error = %v, want ErrNoBaseline", err)
	}

	// 5 J over 2 s is 2.5 W.
	now = now.Add(2 * time.Second)
	writeAttr(t, filepath.Join(zone, "energy_uj"), "5100000")
	got, err := h.Read(ctx, 2, 0, GetPower)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != 2500 {
		t.Errorf("power = %d mW, want 2500", got)
	}

	// Counter wraps: 900000 uJ to the top of the range plus 100000 after it.
	writeAttr(t, filepath.Join(zone, "max_energy_range_uj"), "6000000")
	now = now.Add(time.Second)
	writeAttr(t, filepath.Join(zone, "energy_uj"), "100000")
	got, err = h.Read(ctx, 2, 0, GetPower)
	if err != nil {
		t.Fatalf("wrapped Read() error = %v", err)
	}
	if got != 1000 {
		t.Errorf("wrapped power = %d mW, want 1000", got)
	}
}

func TestHostExecutor_Battery(t *testing.T) {
	root := t.TempDir()
	bat := filepath.Join(root, "class", "power_supply", "BAT0")
	writeAttr(t, filepath.Join(bat, "capacity"), "87")
	writeAttr(t, filepath.Join(bat, "voltage_now"), "12345000")
	writeAttr(t, filepath.Join(bat, "current_now"), "-1000000")

	h := NewHostExecutor(staticBindings{5: {0: "BAT0"}}, WithSysfsRoot(root))
	ctx := context.Background()

	tests := []struct {
		id   ID
		want uint64
	}{
		{GetBatteryCharge, 87},
		{GetBatteryVoltage, 12345},
		{GetBatteryRate, 12345},
	}
	for _, tt := range tests {
		t.Run(tt.id.String(), func(t *testing.T) {
			got, err := h.Read(ctx, 5, 0, tt.id)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}

	writeAttr(t, filepath.Join(bat, "power_now"), "7000000")
	if got, _ := h.Read(ctx, 5, 0, GetBatteryRate); got != 7000 {
		t.Errorf("power_now rate = %d, want 7000", got)
	}

	if _, err := h.Read(ctx, 5, 1, GetBatteryCharge); !errors.Is(err, ErrNoBinding) {
		t.Errorf("unbound domain error = %v", err)
	}
}
