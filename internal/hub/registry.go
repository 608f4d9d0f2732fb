package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Registry is the in-memory mirror of the hub's registries: devices,
// entities, states, areas and labels. Each collection is replaced
// wholesale from a registry snapshot; states are additionally patched
// entity-by-entity from state_changed pushes.
//
// Thread Safety: all methods are safe for concurrent use. Accessors
// return copies so callers never observe a partially applied snapshot.
type Registry struct {
	mu       sync.RWMutex
	devices  map[string]*Device
	entities map[string]*Entity
	states   map[string]*State
	areas    map[string]*Area
	labels   map[string]*Label

	// byDevice indexes entity ids by owning device id, rebuilt on every
	// entity snapshot.
	byDevice map[string][]string

	lastSync time.Time
}

// NewRegistry creates an empty registry mirror.
func NewRegistry() *Registry {
	return &Registry{
		devices:  make(map[string]*Device),
		entities: make(map[string]*Entity),
		states:   make(map[string]*State),
		areas:    make(map[string]*Area),
		labels:   make(map[string]*Label),
		byDevice: make(map[string][]string),
	}
}

// ReplaceDevices swaps in a full device registry snapshot.
func (r *Registry) ReplaceDevices(devices []Device) {
	next := make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		next[d.ID] = &d
	}

	r.mu.Lock()
	r.devices = next
	r.lastSync = time.Now()
	r.mu.Unlock()
}

// ReplaceEntities swaps in a full entity registry snapshot and rebuilds
// the device index. States for entities no longer present are dropped.
func (r *Registry) ReplaceEntities(entities []Entity) {
	next := make(map[string]*Entity, len(entities))
	index := make(map[string][]string)
	for i := range entities {
		e := entities[i]
		next[e.EntityID] = &e
		if e.DeviceID != nil && *e.DeviceID != "" {
			index[*e.DeviceID] = append(index[*e.DeviceID], e.EntityID)
		}
	}
	for _, ids := range index {
		sort.Strings(ids)
	}

	r.mu.Lock()
	r.entities = next
	r.byDevice = index
	for id := range r.states {
		if _, ok := next[id]; !ok {
			delete(r.states, id)
		}
	}
	r.lastSync = time.Now()
	r.mu.Unlock()
}

// ReplaceStates swaps in a full state snapshot, keeping only states whose
// entity is known. States are cloned on the way in so callers may reuse
// the slice.
func (r *Registry) ReplaceStates(states []State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]*State, len(states))
	for i := range states {
		s := states[i]
		next[s.EntityID] = s.Clone()
	}
	r.states = next
	r.lastSync = time.Now()
}

// ReplaceAreas swaps in a full area registry snapshot.
func (r *Registry) ReplaceAreas(areas []Area) {
	next := make(map[string]*Area, len(areas))
	for i := range areas {
		a := areas[i]
		next[a.AreaID] = &a
	}

	r.mu.Lock()
	r.areas = next
	r.mu.Unlock()
}

// ReplaceLabels swaps in a full label registry snapshot.
func (r *Registry) ReplaceLabels(labels []Label) {
	next := make(map[string]*Label, len(labels))
	for i := range labels {
		l := labels[i]
		next[l.LabelID] = &l
	}

	r.mu.Lock()
	r.labels = next
	r.mu.Unlock()
}

// SetState applies one state_changed push. It returns the previous state
// (nil if none), the owning entity and whether the entity is known; a
// push for an unknown entity leaves the registry untouched.
func (r *Registry) SetState(next *State) (old *State, entity *Entity, known bool) {
	if next == nil {
		return nil, nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entities[next.EntityID]
	if !ok {
		return nil, nil, false
	}

	old = r.states[next.EntityID]
	r.states[next.EntityID] = next.Clone()
	ecpy := *e
	return old, &ecpy, true
}

// RemoveState drops the cached state for an entity, used when a push
// reports the entity removed.
func (r *Registry) RemoveState(entityID string) {
	r.mu.Lock()
	delete(r.states, entityID)
	r.mu.Unlock()
}

// Device returns the device with the given id.
func (r *Registry) Device(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[id]
	if !ok {
		return nil, false
	}
	cpy := *d
	return &cpy, true
}

// Entity returns the entity with the given entity id.
func (r *Registry) Entity(entityID string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[entityID]
	if !ok {
		return nil, false
	}
	cpy := *e
	return &cpy, true
}

// State returns the cached state for an entity, or nil if none is known.
func (r *Registry) State(entityID string) *State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[entityID].Clone()
}

// Area returns the area with the given id.
func (r *Registry) Area(areaID string) (*Area, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.areas[areaID]
	if !ok {
		return nil, false
	}
	cpy := *a
	return &cpy, true
}

// AreaName resolves an optional area id to its display name, or empty.
func (r *Registry) AreaName(areaID *string) string {
	if areaID == nil || *areaID == "" {
		return ""
	}
	a, ok := r.Area(*areaID)
	if !ok {
		return ""
	}
	return a.Name
}

// LabelNames resolves label ids to display names, skipping unknown ids.
func (r *Registry) LabelNames(labelIDs []string) []string {
	if len(labelIDs) == 0 {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(labelIDs))
	for _, id := range labelIDs {
		if l, ok := r.labels[id]; ok {
			out = append(out, l.Name)
		}
	}
	return out
}

// Devices returns every device, sorted by id for deterministic iteration.
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EntitiesForDevice returns the entities owned by a device, sorted by
// entity id.
func (r *Registry) EntitiesForDevice(deviceID string) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byDevice[deviceID]
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.entities[id]; ok {
			out = append(out, *e)
		}
	}
	return out
}

// StandaloneEntities returns entities with no owning device, sorted by
// entity id.
func (r *Registry) StandaloneEntities() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0)
	for _, e := range r.entities {
		if e.DeviceID == nil || *e.DeviceID == "" {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Counts reports the size of each registry collection.
func (r *Registry) Counts() (devices, entities, states, areas, labels int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices), len(r.entities), len(r.states), len(r.areas), len(r.labels)
}

// LastSync returns when a registry collection was last replaced.
func (r *Registry) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync
}

// registrySnapshot is the on-disk form written by Snapshot.
type registrySnapshot struct {
	SavedAt  time.Time `json:"saved_at"`
	Devices  []Device  `json:"devices"`
	Entities []Entity  `json:"entities"`
	States   []State   `json:"states"`
	Areas    []Area    `json:"areas"`
	Labels   []Label   `json:"labels"`
}

// Snapshot writes the full registry contents to path as JSON, atomically
// via a temp file and rename. Intended for diagnostics and cold-start
// inspection, not as a durability mechanism.
func (r *Registry) Snapshot(path string) error {
	r.mu.RLock()
	snap := registrySnapshot{SavedAt: time.Now()}
	for _, d := range r.devices {
		snap.Devices = append(snap.Devices, *d)
	}
	for _, e := range r.entities {
		snap.Entities = append(snap.Entities, *e)
	}
	for _, s := range r.states {
		snap.States = append(snap.States, *s.Clone())
	}
	for _, a := range r.areas {
		snap.Areas = append(snap.Areas, *a)
	}
	for _, l := range r.labels {
		snap.Labels = append(snap.Labels, *l)
	}
	r.mu.RUnlock()

	sort.Slice(snap.Devices, func(i, j int) bool { return snap.Devices[i].ID < snap.Devices[j].ID })
	sort.Slice(snap.Entities, func(i, j int) bool { return snap.Entities[i].EntityID < snap.Entities[j].EntityID })
	sort.Slice(snap.States, func(i, j int) bool { return snap.States[i].EntityID < snap.States[j].EntityID })
	sort.Slice(snap.Areas, func(i, j int) bool { return snap.Areas[i].AreaID < snap.Areas[j].AreaID })
	sort.Slice(snap.Labels, func(i, j int) bool { return snap.Labels[i].LabelID < snap.Labels[j].LabelID })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("hub: marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".registry-*.json")
	if err != nil {
		return fmt.Errorf("hub: create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("hub: write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("hub: close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("hub: rename snapshot: %w", err)
	}
	return nil
}
