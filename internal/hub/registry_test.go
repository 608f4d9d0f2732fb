package hub

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func strPtr(s string) *string { return &s }

func seedRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	r.ReplaceDevices([]Device{
		{ID: "dev-1", Name: "Hue Bulb", Manufacturer: "Signify"},
		{ID: "dev-2", Name: "Thermostat", NameByUser: strPtr("Hallway Heating")},
	})
	r.ReplaceEntities([]Entity{
		{EntityID: "light.kitchen", DeviceID: strPtr("dev-1"), Platform: "hue"},
		{EntityID: "sensor.kitchen_temp", DeviceID: strPtr("dev-1"), Platform: "hue"},
		{EntityID: "climate.hallway", DeviceID: strPtr("dev-2"), Platform: "generic"},
		{EntityID: "input_boolean.guest_mode", Platform: "helper"},
	})
	r.ReplaceStates([]State{
		{EntityID: "light.kitchen", State: "on", Attributes: Attributes{"brightness": float64(128)}},
		{EntityID: "climate.hallway", State: "heat"},
	})
	r.ReplaceAreas([]Area{{AreaID: "area-1", Name: "Kitchen"}})
	r.ReplaceLabels([]Label{{LabelID: "lbl-1", Name: "Upstairs"}})
	return r
}

func TestRegistrySetState(t *testing.T) {
	r := seedRegistry(t)

	next := &State{EntityID: "light.kitchen", State: "off"}
	old, entity, known := r.SetState(next)
	if !known {
		t.Fatal("SetState() known = false for registered entity")
	}
	if old == nil || old.State != "on" {
		t.Errorf("old state = %+v, want previous on state", old)
	}
	if entity.DeviceID == nil || *entity.DeviceID != "dev-1" {
		t.Errorf("entity.DeviceID = %v, want dev-1", entity.DeviceID)
	}
	if got := r.State("light.kitchen"); got == nil || got.State != "off" {
		t.Errorf("State() after SetState = %+v, want off", got)
	}
}

func TestRegistrySetStateUnknownEntity(t *testing.T) {
	r := seedRegistry(t)

	_, _, known := r.SetState(&State{EntityID: "light.phantom", State: "on"})
	if known {
		t.Error("SetState() known = true for unregistered entity")
	}
	if got := r.State("light.phantom"); got != nil {
		t.Errorf("State() = %+v, want nil for unregistered entity", got)
	}
}

func TestRegistryReplaceEntitiesDropsStaleStates(t *testing.T) {
	r := seedRegistry(t)

	// New snapshot no longer contains light.kitchen.
	r.ReplaceEntities([]Entity{
		{EntityID: "climate.hallway", DeviceID: strPtr("dev-2"), Platform: "generic"},
	})

	if got := r.State("light.kitchen"); got != nil {
		t.Errorf("State() = %+v for removed entity, want nil", got)
	}
	if got := r.State("climate.hallway"); got == nil {
		t.Error("State() = nil for surviving entity")
	}
}

func TestRegistryEntitiesForDevice(t *testing.T) {
	r := seedRegistry(t)

	got := r.EntitiesForDevice("dev-1")
	if len(got) != 2 {
		t.Fatalf("EntitiesForDevice(dev-1) returned %d entities, want 2", len(got))
	}
	// Sorted by entity id.
	if got[0].EntityID != "light.kitchen" || got[1].EntityID != "sensor.kitchen_temp" {
		t.Errorf("entity order = [%s %s], want sorted", got[0].EntityID, got[1].EntityID)
	}
}

func TestRegistryStandaloneEntities(t *testing.T) {
	r := seedRegistry(t)

	got := r.StandaloneEntities()
	if len(got) != 1 || got[0].EntityID != "input_boolean.guest_mode" {
		t.Errorf("StandaloneEntities() = %+v, want just input_boolean.guest_mode", got)
	}
}

func TestRegistryAccessorsCopy(t *testing.T) {
	r := seedRegistry(t)

	s := r.State("light.kitchen")
	s.Attributes["brightness"] = float64(1)

	again := r.State("light.kitchen")
	if b, _ := again.Attributes.Float("brightness"); b != 128 {
		t.Errorf("mutation through accessor leaked into registry: brightness = %v", b)
	}
}

func TestRegistryLookups(t *testing.T) {
	r := seedRegistry(t)

	d, ok := r.Device("dev-2")
	if !ok || d.DisplayName() != "Hallway Heating" {
		t.Errorf("Device(dev-2) = %+v, want user-named thermostat", d)
	}
	if name := r.AreaName(strPtr("area-1")); name != "Kitchen" {
		t.Errorf("AreaName() = %q, want Kitchen", name)
	}
	if name := r.AreaName(nil); name != "" {
		t.Errorf("AreaName(nil) = %q, want empty", name)
	}
	if got := r.LabelNames([]string{"lbl-1", "lbl-missing"}); len(got) != 1 || got[0] != "Upstairs" {
		t.Errorf("LabelNames() = %v, want [Upstairs]", got)
	}

	devices, entities, states, areas, labels := r.Counts()
	if devices != 2 || entities != 4 || states != 2 || areas != 1 || labels != 1 {
		t.Errorf("Counts() = %d/%d/%d/%d/%d, want 2/4/2/1/1", devices, entities, states, areas, labels)
	}
}

func TestRegistrySnapshot(t *testing.T) {
	r := seedRegistry(t)

	path := filepath.Join(t.TempDir(), "registry.json")
	if err := r.Snapshot(path); err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}

	var snap registrySnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("snapshot not valid JSON: %v", err)
	}
	if len(snap.Devices) != 2 || len(snap.Entities) != 4 || len(snap.States) != 2 {
		t.Errorf("snapshot counts = %d devices / %d entities / %d states, want 2/4/2",
			len(snap.Devices), len(snap.Entities), len(snap.States))
	}
	if snap.SavedAt.IsZero() {
		t.Error("snapshot saved_at not set")
	}
}
