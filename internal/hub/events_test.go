package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFetcher serves canned registry snapshots and counts fetches.
type fakeFetcher struct {
	mu       sync.Mutex
	devices  []Device
	entities []Entity
	states   []State
	areas    []Area
	labels   []Label

	deviceFetches atomic.Uint64
	entityFetches atomic.Uint64
	stateFetches  atomic.Uint64
	areaFetches   atomic.Uint64
	labelFetches  atomic.Uint64
}

func (f *fakeFetcher) States() ([]State, error) {
	f.stateFetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]State(nil), f.states...), nil
}

func (f *fakeFetcher) DeviceRegistry() ([]Device, error) {
	f.deviceFetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Device(nil), f.devices...), nil
}

func (f *fakeFetcher) EntityRegistry() ([]Entity, error) {
	f.entityFetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Entity(nil), f.entities...), nil
}

func (f *fakeFetcher) Areas() ([]Area, error) {
	f.areaFetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Area(nil), f.areas...), nil
}

func (f *fakeFetcher) Labels() ([]Label, error) {
	f.labelFetches.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Label(nil), f.labels...), nil
}

func newTestDispatcher(window time.Duration) (*Dispatcher, *fakeFetcher, *Registry) {
	fetcher := &fakeFetcher{
		devices:  []Device{{ID: "dev-1", Name: "Bulb"}},
		entities: []Entity{{EntityID: "light.kitchen", DeviceID: strPtr("dev-1")}},
		states:   []State{{EntityID: "light.kitchen", State: "on"}},
		areas:    []Area{{AreaID: "area-1", Name: "Kitchen"}},
		labels:   []Label{{LabelID: "lbl-1", Name: "Upstairs"}},
	}
	registry := NewRegistry()
	d := NewDispatcher(fetcher, registry, window)
	return d, fetcher, registry
}

func pushPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal push payload: %v", err)
	}
	return data
}

func TestDispatcherSyncAll(t *testing.T) {
	d, fetcher, registry := newTestDispatcher(time.Hour)
	defer d.Stop()

	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	devices, entities, states, areas, labels := registry.Counts()
	if devices != 1 || entities != 1 || states != 1 || areas != 1 || labels != 1 {
		t.Errorf("Counts() = %d/%d/%d/%d/%d, want all 1", devices, entities, states, areas, labels)
	}
	if fetcher.deviceFetches.Load() != 1 || fetcher.stateFetches.Load() != 1 {
		t.Error("SyncAll fetched collections more than once")
	}
}

func TestDispatcherStateChangedEmitsChange(t *testing.T) {
	d, _, _ := newTestDispatcher(time.Hour)
	defer d.Stop()
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	var got []EntityChange
	d.SetOnChange(func(c EntityChange) { got = append(got, c) })

	d.HandlePush(EventStateChanged, pushPayload(t, StateChangedData{
		EntityID: "light.kitchen",
		OldState: &State{EntityID: "light.kitchen", State: "on"},
		NewState: &State{EntityID: "light.kitchen", State: "off"},
	}))

	if len(got) != 1 {
		t.Fatalf("changes emitted = %d, want 1", len(got))
	}
	c := got[0]
	if c.EntityID != "light.kitchen" {
		t.Errorf("EntityID = %q", c.EntityID)
	}
	if c.DeviceID == nil || *c.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %v, want dev-1", c.DeviceID)
	}
	if c.Old == nil || c.Old.State != "on" || c.New == nil || c.New.State != "off" {
		t.Errorf("transition = %+v -> %+v, want on -> off", c.Old, c.New)
	}
}

func TestDispatcherUnknownEntitySkipped(t *testing.T) {
	d, _, registry := newTestDispatcher(time.Hour)
	defer d.Stop()
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	var emitted int
	d.SetOnChange(func(EntityChange) { emitted++ })

	d.HandlePush(EventStateChanged, pushPayload(t, StateChangedData{
		EntityID: "light.phantom",
		NewState: &State{EntityID: "light.phantom", State: "on"},
	}))

	if emitted != 0 {
		t.Errorf("changes emitted = %d for unknown entity, want 0", emitted)
	}
	if got := registry.State("light.phantom"); got != nil {
		t.Error("unknown entity state written to registry")
	}
	if got := d.Stats().UnknownSkipped; got != 1 {
		t.Errorf("UnknownSkipped = %d, want 1", got)
	}
}

func TestDispatcherUnknownEntityRemovalSkipped(t *testing.T) {
	d, _, _ := newTestDispatcher(time.Hour)
	defer d.Stop()
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}

	var emitted int
	d.SetOnChange(func(EntityChange) { emitted++ })

	// A removal push (nil new_state) for an entity the registry has
	// never seen is dropped, not emitted.
	d.HandlePush(EventStateChanged, pushPayload(t, StateChangedData{
		EntityID: "light.phantom",
		OldState: &State{EntityID: "light.phantom", State: "on"},
	}))

	if emitted != 0 {
		t.Errorf("changes emitted = %d for unknown entity removal, want 0", emitted)
	}
	if got := d.Stats().UnknownSkipped; got != 1 {
		t.Errorf("UnknownSkipped = %d, want 1", got)
	}

	// A removal for a known entity still emits, with the device resolved.
	var got []EntityChange
	d.SetOnChange(func(c EntityChange) { got = append(got, c) })
	d.HandlePush(EventStateChanged, pushPayload(t, StateChangedData{
		EntityID: "light.kitchen",
		OldState: &State{EntityID: "light.kitchen", State: "on"},
	}))

	if len(got) != 1 {
		t.Fatalf("changes emitted = %d for known entity removal, want 1", len(got))
	}
	if got[0].New != nil {
		t.Error("removal change carries a new state")
	}
	if got[0].DeviceID == nil || *got[0].DeviceID != "dev-1" {
		t.Errorf("DeviceID = %v, want dev-1", got[0].DeviceID)
	}
}

func TestDispatcherDebounceCoalescesBurst(t *testing.T) {
	d, fetcher, _ := newTestDispatcher(60 * time.Millisecond)
	defer d.Stop()
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	baseline := fetcher.deviceFetches.Load()

	var refreshed []RefreshKind
	var mu sync.Mutex
	d.SetOnRefreshed(func(kind RefreshKind) {
		mu.Lock()
		refreshed = append(refreshed, kind)
		mu.Unlock()
	})

	// Five pushes inside the window must collapse into one re-fetch.
	for i := 0; i < 5; i++ {
		d.HandlePush(EventDeviceRegistryUpdated, nil)
		time.Sleep(5 * time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(refreshed) > 0
	})
	// Settle past a further window to confirm no second flush follows.
	time.Sleep(120 * time.Millisecond)

	if got := fetcher.deviceFetches.Load() - baseline; got != 1 {
		t.Errorf("device fetches after burst = %d, want 1", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(refreshed) != 1 || refreshed[0] != RefreshDevices {
		t.Errorf("refreshed = %v, want [devices]", refreshed)
	}
}

func TestDispatcherDebounceReArmsPerPush(t *testing.T) {
	d, fetcher, _ := newTestDispatcher(80 * time.Millisecond)
	defer d.Stop()
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	baseline := fetcher.areaFetches.Load()

	// Pushes spaced at half the window keep deferring the flush.
	for i := 0; i < 4; i++ {
		d.HandlePush(EventAreaRegistryUpdated, nil)
		time.Sleep(40 * time.Millisecond)
	}
	if got := fetcher.areaFetches.Load() - baseline; got != 0 {
		t.Errorf("flush ran while pushes kept arriving: %d fetches", got)
	}

	waitFor(t, 2*time.Second, func() bool {
		return fetcher.areaFetches.Load()-baseline == 1
	})
}

func TestDispatcherMixedKindsRefreshedOnce(t *testing.T) {
	d, fetcher, _ := newTestDispatcher(50 * time.Millisecond)
	defer d.Stop()
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	devBase := fetcher.deviceFetches.Load()
	entBase := fetcher.entityFetches.Load()
	stateBase := fetcher.stateFetches.Load()

	d.HandlePush(EventDeviceRegistryUpdated, nil)
	d.HandlePush(EventEntityRegistryUpdated, nil)
	d.HandlePush(EventDeviceRegistryUpdated, nil)
	d.HandlePush(EventEntityRegistryUpdated, nil)

	waitFor(t, 2*time.Second, func() bool {
		return fetcher.deviceFetches.Load()-devBase == 1 &&
			fetcher.entityFetches.Load()-entBase == 1
	})

	// An entity refresh re-fetches states as well.
	if got := fetcher.stateFetches.Load() - stateBase; got != 1 {
		t.Errorf("state fetches = %d, want 1 alongside entity refresh", got)
	}
}

func TestDispatcherStopCancelsPendingFlush(t *testing.T) {
	d, fetcher, _ := newTestDispatcher(50 * time.Millisecond)
	if err := d.SyncAll(); err != nil {
		t.Fatalf("SyncAll() error = %v", err)
	}
	baseline := fetcher.labelFetches.Load()

	d.HandlePush(EventLabelRegistryUpdated, nil)
	d.Stop()

	time.Sleep(120 * time.Millisecond)
	if got := fetcher.labelFetches.Load() - baseline; got != 0 {
		t.Errorf("flush ran after Stop: %d fetches", got)
	}
}
