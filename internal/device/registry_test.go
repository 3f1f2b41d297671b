package device

import (
	"context"
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-conductor/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-conductor/migrations"
)

// openTestDB returns a migrated in-memory database.
func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{Path: database.MemoryPath})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

// newSeededRegistry returns a registry holding the default catalog.
func newSeededRegistry(t *testing.T) (*Registry, *database.DB) {
	t.Helper()
	db := openTestDB(t)
	reg := NewRegistry(NewSQLiteRepository(db.DB))
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if _, err := reg.Seed(context.Background(), DefaultCatalog()); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return reg, db
}

func TestRegistry_Seed(t *testing.T) {
	reg, db := newSeededRegistry(t)
	ctx := context.Background()

	want := len(DefaultCatalog())
	if got := reg.GetDeviceCount(); got != want {
		t.Fatalf("GetDeviceCount() = %d, want %d", got, want)
	}

	// Reseeding is a no-op.
	created, err := reg.Seed(ctx, DefaultCatalog())
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if created != 0 {
		t.Errorf("second Seed() created = %d, want 0", created)
	}

	// A fresh registry over the same database sees the persisted devices.
	fresh := NewRegistry(NewSQLiteRepository(db.DB))
	if err := fresh.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if got := fresh.GetDeviceCount(); got != want {
		t.Errorf("fresh GetDeviceCount() = %d, want %d", got, want)
	}
}

func TestRegistry_GetDeviceByName(t *testing.T) {
	reg, _ := newSeededRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		lookup  string
		wantID  string
		wantErr error
	}{
		{"exact", "Living Room Light", "light-living", nil},
		{"case insensitive", "front door lock", "lock-front", nil},
		{"surrounding whitespace", "  Bedroom Thermostat ", "thermostat-bedroom", nil},
		{"unknown", "Garage Door", "", ErrDeviceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := reg.GetDeviceByName(ctx, tt.lookup)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetDeviceByName(%q) error = %v, want %v", tt.lookup, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetDeviceByName(%q) error = %v", tt.lookup, err)
			}
			if d.ID != tt.wantID {
				t.Errorf("GetDeviceByName(%q).ID = %q, want %q", tt.lookup, d.ID, tt.wantID)
			}
		})
	}
}

func TestRegistry_ListByType(t *testing.T) {
	reg, _ := newSeededRegistry(t)

	lights, err := reg.ListByType(context.Background(), DeviceTypeLight)
	if err != nil {
		t.Fatalf("ListByType() error = %v", err)
	}
	if len(lights) != 4 {
		t.Fatalf("ListByType(light) = %d devices, want 4", len(lights))
	}
	for i := 1; i < len(lights); i++ {
		if lights[i-1].Name > lights[i].Name {
			t.Errorf("ListByType() not sorted: %q before %q", lights[i-1].Name, lights[i].Name)
		}
	}
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	reg, _ := newSeededRegistry(t)
	ctx := context.Background()

	d, err := reg.GetDevice(ctx, "light-living")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	d.State["bright_value"] = 1
	d.Commands["brightness"] = "tampered"

	again, err := reg.GetDevice(ctx, "light-living")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if ValuesEqual(again.State["bright_value"], 1) {
		t.Error("mutating a returned device changed the cached state")
	}
	if again.Commands["brightness"] != "bright_value" {
		t.Error("mutating a returned device changed the cached commands")
	}
}

func TestRegistry_CreateAndDelete(t *testing.T) {
	reg, _ := newSeededRegistry(t)
	ctx := context.Background()

	d := &Device{Name: "Porch Light", Type: DeviceTypeLight, Commands: map[string]string{"power": "switch_led"}}
	if err := reg.CreateDevice(ctx, d); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	if d.ID == "" {
		t.Fatal("CreateDevice() did not assign an ID")
	}

	dup := &Device{Name: "porch light", Type: DeviceTypeLight}
	if err := reg.CreateDevice(ctx, dup); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("CreateDevice(duplicate name) error = %v, want ErrDeviceExists", err)
	}

	if err := reg.DeleteDevice(ctx, d.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := reg.GetDevice(ctx, d.ID); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice(deleted) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_SetDeviceState(t *testing.T) {
	reg, db := newSeededRegistry(t)
	ctx := context.Background()

	if err := reg.SetDeviceState(ctx, "lock-front", State{"lock_motor_state": true}); err != nil {
		t.Fatalf("SetDeviceState() error = %v", err)
	}

	fresh := NewRegistry(NewSQLiteRepository(db.DB))
	if err := fresh.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	d, err := fresh.GetDevice(ctx, "lock-front")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if d.State["lock_motor_state"] != true {
		t.Errorf("persisted lock_motor_state = %v, want true", d.State["lock_motor_state"])
	}
	if d.StateUpdatedAt == nil {
		t.Error("StateUpdatedAt not set after SetDeviceState")
	}
}

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		device  Device
		wantErr bool
	}{
		{"valid", Device{Name: "Desk Lamp", Type: DeviceTypeLight}, false},
		{"empty name", Device{Name: "  ", Type: DeviceTypeLight}, true},
		{"unknown type", Device{Name: "Toaster", Type: "toaster"}, true},
		{"empty mapping", Device{Name: "Lamp", Type: DeviceTypeLight, Commands: map[string]string{"power": ""}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDevice(&tt.device)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDevice() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidDevice) {
				t.Errorf("ValidateDevice() error = %v, want ErrInvalidDevice", err)
			}
		})
	}
}
