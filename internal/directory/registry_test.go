package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/thermlog/internal/capability"
	"github.com/nerrad567/thermlog/internal/infrastructure/database"
	_ "github.com/nerrad567/thermlog/migrations"
)

func setupRegistry(t *testing.T) (*Registry, *SQLiteRepository) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	repo := NewSQLiteRepository(db.DB)
	return NewRegistry(repo), repo
}

func cpuParticipant(id uint32) Participant {
	return Participant{
		ID:   id,
		Name: "TCPU",
		SubDevices: []SubDevice{
			{Index: 0, CapabilityMask: capability.TemperatureStatus.Bit() | capability.PowerStatus.Bit(), Binding: "coretemp_package_id_0"},
			{Index: 1, CapabilityMask: capability.PerformanceControl.Bit()},
		},
	}
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg, _ := setupRegistry(t)
	ctx := context.Background()

	if err := reg.Register(ctx, cpuParticipant(3)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.ByID(3)
	if err != nil {
		t.Fatalf("ByID() error = %v", err)
	}
	if p.Name != "TCPU" || !p.Present || p.SubDeviceCount() != 2 {
		t.Errorf("ByID() = %+v", p)
	}

	mask, err := p.CapabilityMask(0)
	if err != nil || !mask.Has(capability.TemperatureStatus) {
		t.Errorf("CapabilityMask(0) = %v, %v", mask, err)
	}
	if _, err := p.CapabilityMask(5); !errors.Is(err, ErrSubDeviceNotFound) {
		t.Errorf("CapabilityMask(5) error = %v", err)
	}

	if _, err := reg.ByName("TCPU"); err != nil {
		t.Errorf("ByName() error = %v", err)
	}
	if _, err := reg.ByName("nope"); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("ByName(nope) error = %v", err)
	}

	if b, ok := reg.Binding(3, 0); !ok || b != "coretemp_package_id_0" {
		t.Errorf("Binding(3,0) = %q, %v", b, ok)
	}
	if _, ok := reg.Binding(3, 1); ok {
		t.Error("Binding(3,1) should be unbound")
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg, _ := setupRegistry(t)
	if err := reg.Register(context.Background(), cpuParticipant(1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, _ := reg.ByID(1)
	p.SubDevices[0].Binding = "mutated"

	again, _ := reg.ByID(1)
	if again.SubDevices[0].Binding != "coretemp_package_id_0" {
		t.Error("mutating a returned participant changed the cache")
	}
}

func TestRegistry_RecycledID(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	if err := reg.Register(ctx, cpuParticipant(4)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	// TCPU re-attaches as 6 and a new participant takes id 4.
	if err := reg.Register(ctx, cpuParticipant(6)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(ctx, Participant{ID: 4, Name: "TFN1"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	p, err := reg.ByID(4)
	if err != nil || p.Name != "TFN1" {
		t.Errorf("ByID(4) = %+v, %v", p, err)
	}
	p, err = reg.ByName("TCPU")
	if err != nil || p.ID != 6 {
		t.Errorf("ByName(TCPU) = %+v, %v", p, err)
	}

	stored, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(stored) != 2 || stored[0].ID != 4 || stored[1].ID != 6 {
		t.Errorf("stored = %+v", stored)
	}
	if len(stored[1].SubDevices) != 2 {
		t.Errorf("TCPU domains = %d, want 2", len(stored[1].SubDevices))
	}
}

func TestRegistry_SetPresentAndRefresh(t *testing.T) {
	reg, repo := setupRegistry(t)
	ctx := context.Background()

	if err := reg.Register(ctx, cpuParticipant(2)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.SetPresent(ctx, 2, false); err != nil {
		t.Fatalf("SetPresent() error = %v", err)
	}
	if err := reg.SetPresent(ctx, 99, false); !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("SetPresent(99) error = %v", err)
	}

	fresh := NewRegistry(repo)
	if err := fresh.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	list := fresh.List()
	if len(list) != 1 || list[0].Present {
		t.Errorf("List() after refresh = %+v", list)
	}
	if b, ok := fresh.Binding(2, 0); !ok || b != "coretemp_package_id_0" {
		t.Errorf("Binding after refresh = %q, %v", b, ok)
	}
}

func TestParticipant_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Participant
		wantErr bool
	}{
		{"valid", cpuParticipant(1), false},
		{"no domains", Participant{Name: "IETM"}, false},
		{"empty name", Participant{Name: " "}, true},
		{"comma in name", Participant{Name: "a,b"}, true},
		{"sparse domains", Participant{Name: "X", SubDevices: []SubDevice{{Index: 1}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidParticipant) {
				t.Errorf("Validate() error = %v, want ErrInvalidParticipant", err)
			}
		})
	}
}
