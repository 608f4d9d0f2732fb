package hub

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// defaultDebounceWindow is how long registry-changed pushes are coalesced
// before a single re-fetch per registry kind.
const defaultDebounceWindow = 500 * time.Millisecond

// RefreshKind identifies one hub registry collection for debounced
// re-fetching.
type RefreshKind string

// Registry collections refreshed by the dispatcher.
const (
	RefreshDevices  RefreshKind = "devices"
	RefreshEntities RefreshKind = "entities"
	RefreshAreas    RefreshKind = "areas"
	RefreshLabels   RefreshKind = "labels"
)

// refreshOrder fixes the order in which coalesced kinds are re-fetched.
var refreshOrder = []RefreshKind{RefreshDevices, RefreshEntities, RefreshAreas, RefreshLabels}

// Fetcher is the subset of the hub client the dispatcher needs to
// re-fetch registry snapshots. *Client satisfies it.
type Fetcher interface {
	States() ([]State, error)
	DeviceRegistry() ([]Device, error)
	EntityRegistry() ([]Entity, error)
	Areas() ([]Area, error)
	Labels() ([]Label, error)
}

// EntityChange is one applied state transition, delivered after the
// registry mirror has been updated.
type EntityChange struct {
	EntityID string
	DeviceID *string // nil for standalone entities
	Old      *State  // nil on first sighting
	New      *State  // nil when the entity's state was removed
}

// Dispatcher routes hub push events: state_changed pushes patch the
// registry and emit typed change signals immediately, while bursty
// *_registry_updated pushes are coalesced behind one shared debounce
// timer so each affected collection is re-fetched once per burst.
//
// HandlePush is wired as the client's push handler and therefore runs on
// the read loop; everything it does inline is non-blocking. The debounced
// re-fetch runs on its own timer goroutine.
type Dispatcher struct {
	fetcher  Fetcher
	registry *Registry
	logger   Logger
	window   time.Duration

	cbMu        sync.RWMutex
	onChange    func(EntityChange)
	onRefreshed func(RefreshKind)

	// Debounce state: the pending set accumulates kinds while the shared
	// timer is re-armed by every qualifying push.
	mu      sync.Mutex
	pending map[RefreshKind]bool
	timer   *time.Timer
	stopped bool

	pushesHandled   atomic.Uint64
	changesEmitted  atomic.Uint64
	unknownSkipped  atomic.Uint64
	refreshesServed atomic.Uint64
}

// NewDispatcher creates a dispatcher over the given fetcher and registry
// mirror. A zero window selects the default 500ms.
func NewDispatcher(fetcher Fetcher, registry *Registry, window time.Duration) *Dispatcher {
	if window <= 0 {
		window = defaultDebounceWindow
	}
	return &Dispatcher{
		fetcher:  fetcher,
		registry: registry,
		logger:   noopLogger{},
		window:   window,
		pending:  make(map[RefreshKind]bool),
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.cbMu.Lock()
	d.logger = logger
	d.cbMu.Unlock()
}

func (d *Dispatcher) log() Logger {
	d.cbMu.RLock()
	defer d.cbMu.RUnlock()
	return d.logger
}

// SetOnChange sets the handler for applied state transitions. Called in
// push receipt order.
func (d *Dispatcher) SetOnChange(handler func(EntityChange)) {
	d.cbMu.Lock()
	d.onChange = handler
	d.cbMu.Unlock()
}

// SetOnRefreshed sets the handler invoked once per registry kind after a
// debounced re-fetch completes.
func (d *Dispatcher) SetOnRefreshed(handler func(RefreshKind)) {
	d.cbMu.Lock()
	d.onRefreshed = handler
	d.cbMu.Unlock()
}

// SyncAll performs the initial full synchronisation: all four registry
// collections plus the state snapshot, in dependency order.
func (d *Dispatcher) SyncAll() error {
	devices, err := d.fetcher.DeviceRegistry()
	if err != nil {
		return err
	}
	entities, err := d.fetcher.EntityRegistry()
	if err != nil {
		return err
	}
	areas, err := d.fetcher.Areas()
	if err != nil {
		return err
	}
	labels, err := d.fetcher.Labels()
	if err != nil {
		return err
	}
	states, err := d.fetcher.States()
	if err != nil {
		return err
	}

	d.registry.ReplaceDevices(devices)
	d.registry.ReplaceEntities(entities)
	d.registry.ReplaceAreas(areas)
	d.registry.ReplaceLabels(labels)
	d.registry.ReplaceStates(states)

	d.log().Info("registry synchronised",
		"devices", len(devices), "entities", len(entities),
		"areas", len(areas), "labels", len(labels), "states", len(states))
	return nil
}

// HandlePush routes one push event. Wire it as the client's push handler.
func (d *Dispatcher) HandlePush(eventType string, data json.RawMessage) {
	d.pushesHandled.Add(1)

	switch eventType {
	case EventStateChanged:
		d.handleStateChanged(data)
	case EventDeviceRegistryUpdated:
		d.enqueueRefresh(RefreshDevices)
	case EventEntityRegistryUpdated:
		d.enqueueRefresh(RefreshEntities)
	case EventAreaRegistryUpdated:
		d.enqueueRefresh(RefreshAreas)
	case EventLabelRegistryUpdated:
		d.enqueueRefresh(RefreshLabels)
	default:
		d.log().Debug("ignoring push", "event_type", eventType)
	}
}

func (d *Dispatcher) handleStateChanged(data json.RawMessage) {
	var change StateChangedData
	if err := json.Unmarshal(data, &change); err != nil {
		d.log().Warn("dropping malformed state_changed push", "error", err)
		return
	}

	if change.NewState == nil {
		// Entity state removed; the matching registry push will trigger
		// the structural refresh. Removals for entities the registry has
		// never seen are skipped like any other unknown-entity push.
		entity, known := d.registry.Entity(change.EntityID)
		if !known {
			d.unknownSkipped.Add(1)
			d.log().Debug("state removal for unknown entity, skipping", "entity_id", change.EntityID)
			return
		}
		d.registry.RemoveState(change.EntityID)
		d.emitChange(EntityChange{EntityID: change.EntityID, DeviceID: entity.DeviceID, Old: change.OldState})
		return
	}

	old, entity, known := d.registry.SetState(change.NewState)
	if !known {
		d.unknownSkipped.Add(1)
		d.log().Debug("state change for unknown entity, skipping", "entity_id", change.EntityID)
		return
	}

	d.emitChange(EntityChange{
		EntityID: change.EntityID,
		DeviceID: entity.DeviceID,
		Old:      old,
		New:      change.NewState.Clone(),
	})
}

func (d *Dispatcher) emitChange(change EntityChange) {
	d.cbMu.RLock()
	handler := d.onChange
	d.cbMu.RUnlock()
	if handler == nil {
		return
	}
	d.changesEmitted.Add(1)
	handler(change)
}

// enqueueRefresh records a registry kind as dirty and re-arms the shared
// debounce timer. Every qualifying push pushes the flush out by a full
// window, so a burst settles into exactly one re-fetch per kind.
func (d *Dispatcher) enqueueRefresh(kind RefreshKind) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[kind] = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush re-fetches every dirty registry kind once, in fixed order.
func (d *Dispatcher) flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	dirty := d.pending
	d.pending = make(map[RefreshKind]bool)
	d.timer = nil
	d.mu.Unlock()

	for _, kind := range refreshOrder {
		if !dirty[kind] {
			continue
		}
		if err := d.refresh(kind); err != nil {
			d.log().Error("registry refresh failed", "kind", string(kind), "error", err)
			continue
		}
		d.refreshesServed.Add(1)

		d.cbMu.RLock()
		handler := d.onRefreshed
		d.cbMu.RUnlock()
		if handler != nil {
			handler(kind)
		}
	}
}

// refresh re-fetches one registry collection. An entity refresh also
// re-fetches states, since the entity set defines which states are kept.
func (d *Dispatcher) refresh(kind RefreshKind) error {
	switch kind {
	case RefreshDevices:
		devices, err := d.fetcher.DeviceRegistry()
		if err != nil {
			return err
		}
		d.registry.ReplaceDevices(devices)
	case RefreshEntities:
		entities, err := d.fetcher.EntityRegistry()
		if err != nil {
			return err
		}
		d.registry.ReplaceEntities(entities)
		states, err := d.fetcher.States()
		if err != nil {
			return err
		}
		d.registry.ReplaceStates(states)
	case RefreshAreas:
		areas, err := d.fetcher.Areas()
		if err != nil {
			return err
		}
		d.registry.ReplaceAreas(areas)
	case RefreshLabels:
		labels, err := d.fetcher.Labels()
		if err != nil {
			return err
		}
		d.registry.ReplaceLabels(labels)
	}
	return nil
}

// Stop cancels any pending debounce timer. Pushes arriving after Stop are
// ignored.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[RefreshKind]bool)
}

// DispatcherStats reports dispatcher counters.
type DispatcherStats struct {
	PushesHandled   uint64
	ChangesEmitted  uint64
	UnknownSkipped  uint64
	RefreshesServed uint64
}

// Stats returns current dispatcher counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		PushesHandled:   d.pushesHandled.Load(),
		ChangesEmitted:  d.changesEmitted.Load(),
		UnknownSkipped:  d.unknownSkipped.Load(),
		RefreshesServed: d.refreshesServed.Load(),
	}
}
