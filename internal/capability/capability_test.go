package capability

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestTable_Complete(t *testing.T) {
	for _, d := range All() {
		if d.Name == "" {
			t.Errorf("type %d has no name", d.Type)
		}
		if len(d.Fields) == 0 {
			t.Errorf("%s has no columns", d.Name)
		}
		for _, f := range d.Fields {
			if (d.Model == Pull) != (f.Read != 0) {
				t.Errorf("%s column %q: read primitive set=%v on %s model", d.Name, f.Column, f.Read != 0, d.Model)
			}
		}
		if got, ok := ParseType(d.Name); !ok || got != d.Type {
			t.Errorf("ParseType(%q) = %v, %v", d.Name, got, ok)
		}
	}
}

func TestColumnCounts(t *testing.T) {
	tests := []struct {
		typ  Type
		want int
	}{
		{ActiveFanControl, 4},
		{TemperatureStatus, 1},
		{PowerControl, 8},
		{BatteryStatus, 3},
		{ConfigTDPControl, 4},
		{ManagerStatus, 3},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			d, ok := Lookup(tt.typ)
			if !ok {
				t.Fatal("missing descriptor")
			}
			if len(d.Columns()) != tt.want {
				t.Errorf("columns = %d, want %d", len(d.Columns()), tt.want)
			}
			if len(d.Placeholders()) != tt.want {
				t.Errorf("placeholders = %d, want %d", len(d.Placeholders()), tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		typ    Type
		values []uint64
		want   []string
	}{
		{"fan", ActiveFanControl, []uint64{1, 45, 0, 100}, []string{"1", "45", "0", "100"}},
		{"temperature tenths", TemperatureStatus, []uint64{456}, []string{"45.6"}},
		{"negative temperature", TemperatureStatus, []uint64{uint64(uint32(0xFFFFFFEC))}, []string{"-2.0"}},
		{"utilization hundredths", UtilizationStatus, []uint64{4399}, []string{"43"}},
		{"tdp 64-bit", ConfigTDPControl, []uint64{2, 1 << 40, 15000, 28}, []string{"2", "1099511627776", "15000", "28"}},
		{"threshold", TemperatureThreshold, []uint64{850, 900, 20}, []string{"85.0", "90.0", "2.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := Lookup(tt.typ)
			got, err := d.Format(d.Encode(tt.values...))
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Format() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormat_ShortPayload(t *testing.T) {
	d, _ := Lookup(ActiveFanControl)
	_, err := d.Format(make([]byte, 15))
	if !errors.Is(err, ErrShortPayload) {
		t.Errorf("Format() error = %v, want ErrShortPayload", err)
	}
}

func TestMask(t *testing.T) {
	m := TemperatureStatus.Bit() | ActiveFanControl.Bit() | Mask(1)<<30

	if !m.Has(TemperatureStatus) || m.Has(PowerStatus) {
		t.Errorf("Has() wrong for %v", m)
	}
	if got := m.Types(); !reflect.DeepEqual(got, []Type{ActiveFanControl, TemperatureStatus}) {
		t.Errorf("Types() = %v", got)
	}
	if got := m.PushOnly(); got != ActiveFanControl.Bit() {
		t.Errorf("PushOnly() = %v, want %v", got, ActiveFanControl.Bit())
	}
	if m.Known()&(Mask(1)<<30) != 0 {
		t.Error("Known() kept an undescribed bit")
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		in      string
		want    Mask
		wantErr bool
	}{
		{"0x180", 0x180, false},
		{"0X1", 1, false},
		{"384", 384, false},
		{"0", 0, false},
		{"0xZZ", 0, true},
		{"fan", 0, true},
		{"-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMask(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMask(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMask(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMask_JSON(t *testing.T) {
	var v struct {
		Mask Mask `json:"capability_mask"`
	}
	if err := json.Unmarshal([]byte(`{"capability_mask":"0x180"}`), &v); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if v.Mask != 0x180 {
		t.Errorf("mask = %v, want 0x180", v.Mask)
	}
	out, _ := json.Marshal(v)
	if string(out) != `{"capability_mask":"0x180"}` {
		t.Errorf("Marshal() = %s", out)
	}
}
