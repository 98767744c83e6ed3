package participantlog

import (
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/thermlog/internal/capability"
)

func TestParseTargets(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantAll bool
		wantN   int
		wantErr error
	}{
		{"empty means all", nil, true, 0, nil},
		{"all", []string{"ALL"}, true, 0, nil},
		{"one triplet", []string{"CPU0", "all", "0x100"}, false, 1, nil},
		{"two triplets", []string{"1", "D0", "all", "FAN1", "0", "1"}, false, 2, nil},
		{"partial triplet", []string{"CPU0", "0"}, false, 0, ErrParameterInvalid},
		{"too many", strings.Fields(strings.Repeat("a b c ", 11)), false, 0, ErrParameterInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTargets(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got.All != tt.wantAll || len(got.Selectors) != tt.wantN {
				t.Errorf("got all=%v n=%d, want all=%v n=%d", got.All, len(got.Selectors), tt.wantAll, tt.wantN)
			}
		})
	}
}

func TestResolveDomains(t *testing.T) {
	p := cpuParticipant(1)
	tests := []struct {
		sel     string
		want    []uint8
		wantErr bool
	}{
		{"all", []uint8{0, 1}, false},
		{"1", []uint8{1}, false},
		{"D0", []uint8{0}, false},
		{"d1", []uint8{1}, false},
		{"2", nil, true},
		{"D", nil, true},
		{"x", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			got, err := resolveDomains(p, tt.sel)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidSubDeviceID) {
					t.Errorf("error = %v, want ErrInvalidSubDeviceID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestResolveMask(t *testing.T) {
	advertised := capability.TemperatureStatus.Bit() | capability.PowerStatus.Bit()
	tests := []struct {
		sel        string
		advertised capability.Mask
		want       capability.Mask
		wantErr    bool
	}{
		{"all", advertised, advertised, false},
		{"0x100", advertised, capability.TemperatureStatus.Bit(), false},
		{"256", advertised, capability.TemperatureStatus.Bit(), false},
		{"0xFFFFFFFF", advertised, advertised, false},
		{"0x1", advertised, 0, true},
		{"0", advertised, 0, true},
		{"zz", advertised, 0, true},
		{"0x1", 0, 0, false},
		{"all", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.sel+"/"+tt.advertised.String(), func(t *testing.T) {
			got, err := resolveMask(tt.sel, tt.advertised)
			if tt.wantErr {
				if !errors.Is(err, ErrCapabilityMaskInvalid) {
					t.Errorf("error = %v, want ErrCapabilityMaskInvalid", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
