package mesh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-mesh/internal/hub"
)

// HubSession is the hub client surface the bridge consumes. *hub.Client
// satisfies it.
type HubSession interface {
	hub.Fetcher

	Connect(ctx context.Context) (string, error)
	SubscribeEvents(eventType string) (uint64, error)
	UnsubscribeEvents(subscription uint64) error
	SetOnPush(hub.PushHandler)
	SetOnConnEvent(func(hub.ConnEvent))
	CallService(domain, service string, serviceData map[string]any, target *hub.ServiceTarget) error
	Close() error
}

// StatePublisher mirrors live entity state to an external broker.
// Optional; nil disables mirroring.
type StatePublisher interface {
	Publish(topic string, payload []byte) error
}

// TelemetryWriter records numeric entity observations for trend
// storage. Optional; nil disables telemetry.
type TelemetryWriter interface {
	WriteEntityState(entityID, domain, state string, numeric *float64)
}

// CommandSource delivers commands published on the external broker.
// Optional; nil disables the broker command path.
type CommandSource interface {
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
}

// MQTT topics used by the optional state mirror and command path.
const (
	topicStatePrefix   = "graymesh/state/"
	topicStatus        = "graymesh/system/status"
	topicCommandPrefix = "graymesh/command/"
)

// Options configures a Bridge.
type Options struct {
	Session HubSession
	Runtime Runtime

	// DebounceWindow overrides the registry-refresh debounce. Zero
	// selects the default.
	DebounceWindow time.Duration

	// SnapshotPath, when set, receives a best-effort JSON snapshot of
	// the registries after each successful full sync. Diagnostic only.
	SnapshotPath string

	// Publisher, when set, mirrors entity state and bridge status to an
	// external broker.
	Publisher StatePublisher

	// Telemetry, when set, records numeric observations.
	Telemetry TelemetryWriter

	// Commands, when set, feeds broker-published entity commands into
	// the same reverse translation path as runtime commands.
	Commands CommandSource

	Logger Logger
}

// binding locates the mesh attribute sink for one hub entity.
type binding struct {
	sourceID string
	endpoint string
}

// Bridge orchestrates the full pipeline: hub session, registry mirror,
// classification, materialisation, live attribute translation and
// command routing.
//
// Thread Safety: Start and Stop are not safe for concurrent use with
// each other; everything else is.
type Bridge struct {
	session    HubSession
	runtime    Runtime
	logger     Logger
	publisher  StatePublisher
	telemetry  TelemetryWriter
	commands   CommandSource
	snapshotTo string

	registry   *hub.Registry
	dispatcher *hub.Dispatcher
	classifier *Classifier
	router     *Router

	mu       sync.Mutex
	started  bool
	devices  map[string]Device  // source id -> live handle
	names    map[string]string  // lowercased display name -> source id
	bindings map[string]binding // entity id -> attribute sink
	subs     []uint64

	hubVersion string
	hubOnline  atomic.Bool
	startedAt  time.Time
}

// NewBridge creates a bridge from options. Call Start to bring it up.
func NewBridge(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	registry := hub.NewRegistry()
	dispatcher := hub.NewDispatcher(opts.Session, registry, opts.DebounceWindow)

	classifier := NewClassifier()
	classifier.SetLogger(logger)

	router := NewRouter(opts.Session)
	router.SetLogger(logger)

	return &Bridge{
		session:    opts.Session,
		runtime:    opts.Runtime,
		logger:     logger,
		publisher:  opts.Publisher,
		telemetry:  opts.Telemetry,
		commands:   opts.Commands,
		snapshotTo: opts.SnapshotPath,
		registry:   registry,
		dispatcher: dispatcher,
		classifier: classifier,
		router:     router,
		devices:    make(map[string]Device),
		names:      make(map[string]string),
		bindings:   make(map[string]binding),
	}
}

// Registry exposes the bridge's hub registry mirror, read-only by
// convention, for diagnostics.
func (b *Bridge) Registry() *hub.Registry {
	return b.registry
}

// Start connects to the hub, performs the initial full sync, classifies
// and materialises every device, then subscribes to live pushes.
// Classification or materialisation failure of one device skips that
// device without aborting the pass.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.startedAt = time.Now()
	b.mu.Unlock()

	b.session.SetOnConnEvent(b.handleConnEvent)
	b.session.SetOnPush(b.dispatcher.HandlePush)
	b.dispatcher.SetOnChange(b.applyChange)
	b.dispatcher.SetOnRefreshed(b.handleRefreshed)

	version, err := b.session.Connect(ctx)
	if err != nil {
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return fmt.Errorf("connecting to hub: %w", err)
	}
	b.hubVersion = version
	b.hubOnline.Store(true)
	b.logger.Info("connected to hub", "version", version)

	if err := b.dispatcher.SyncAll(); err != nil {
		b.session.Close()
		b.mu.Lock()
		b.started = false
		b.mu.Unlock()
		return fmt.Errorf("initial sync: %w", err)
	}
	b.writeSnapshot()

	b.materialiseAll()

	for _, eventType := range []string{
		hub.EventStateChanged,
		hub.EventDeviceRegistryUpdated,
		hub.EventEntityRegistryUpdated,
		hub.EventAreaRegistryUpdated,
		hub.EventLabelRegistryUpdated,
	} {
		sub, err := b.session.SubscribeEvents(eventType)
		if err != nil {
			b.logger.Error("event subscription failed", "event_type", eventType, "error", err)
			continue
		}
		b.mu.Lock()
		b.subs = append(b.subs, sub)
		b.mu.Unlock()
	}

	if b.commands != nil {
		if err := b.commands.Subscribe(topicCommandPrefix+"+", b.handleBrokerCommand); err != nil {
			b.logger.Error("broker command subscription failed", "error", err)
		}
	}

	b.publishStatus("online")
	b.logger.Info("bridge started", "devices", b.DeviceCount())
	return nil
}

// Stop unsubscribes, tears down every materialised device and closes
// the hub session. Safe to call once after a successful Start.
func (b *Bridge) Stop() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return ErrNotStarted
	}
	b.started = false
	subs := b.subs
	b.subs = nil
	devices := b.devices
	b.devices = make(map[string]Device)
	b.names = make(map[string]string)
	b.bindings = make(map[string]binding)
	b.mu.Unlock()

	if b.commands != nil {
		if err := b.commands.Unsubscribe(topicCommandPrefix + "+"); err != nil {
			b.logger.Debug("broker command unsubscribe failed", "error", err)
		}
	}

	b.publishStatus("offline")
	b.hubOnline.Store(false)
	b.dispatcher.Stop()

	for _, sub := range subs {
		if err := b.session.UnsubscribeEvents(sub); err != nil {
			b.logger.Debug("unsubscribe failed", "subscription", sub, "error", err)
		}
	}
	for sourceID := range devices {
		if err := b.runtime.Remove(sourceID); err != nil {
			b.logger.Warn("device removal failed", "source_id", sourceID, "error", err)
		}
	}

	err := b.session.Close()
	b.logger.Info("bridge stopped")
	return err
}

// materialiseAll classifies every hub device and standalone entity and
// materialises the resulting shapes. Failures are logged per device.
func (b *Bridge) materialiseAll() {
	for _, dev := range b.registry.Devices() {
		d := dev
		entities := b.registry.EntitiesForDevice(d.ID)
		states := b.statesFor(entities)

		shape, skips := b.classifier.ClassifyDevice(&d, entities, states)
		b.logSkips(skips)
		if shape != nil {
			// Failures are logged in register; the pass continues.
			_ = b.register(shape)
		}
	}

	for _, ent := range b.registry.StandaloneEntities() {
		shape, skips := b.classifier.ClassifyStandalone(ent, b.registry.State(ent.EntityID))
		b.logSkips(skips)
		if shape != nil {
			_ = b.register(shape)
		}
	}
}

func (b *Bridge) statesFor(entities []hub.Entity) map[string]*hub.State {
	states := make(map[string]*hub.State, len(entities))
	for _, e := range entities {
		if s := b.registry.State(e.EntityID); s != nil {
			states[e.EntityID] = s
		}
	}
	return states
}

// register materialises one shape, rejecting duplicate display names
// against already-registered devices from a different source. An already
// registered source id is an idempotent no-op.
func (b *Bridge) register(shape *Shape) error {
	nameKey := strings.ToLower(shape.Name)

	b.mu.Lock()
	if _, exists := b.devices[shape.SourceID]; exists {
		b.mu.Unlock()
		return nil
	}
	if owner, taken := b.names[nameKey]; taken && owner != shape.SourceID {
		b.mu.Unlock()
		b.logger.Warn("duplicate device name rejected",
			"name", shape.Name, "source_id", shape.SourceID, "registered_to", owner)
		return fmt.Errorf("%w: %q registered to %s", ErrDuplicateName, shape.Name, owner)
	}
	b.mu.Unlock()

	sourceID := shape.SourceID
	dev, err := b.runtime.Materialize(shape, func(endpoint string, cmd Command) {
		b.handleCommand(sourceID, endpoint, cmd)
	})
	if err != nil {
		b.logger.Error("materialisation failed",
			"source_id", shape.SourceID, "name", shape.Name, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrMaterialize, shape.SourceID, err)
	}

	b.mu.Lock()
	b.devices[shape.SourceID] = dev
	b.names[nameKey] = shape.SourceID
	for entityID, endpoint := range shape.Bindings() {
		b.bindings[entityID] = binding{sourceID: shape.SourceID, endpoint: endpoint}
	}
	b.mu.Unlock()

	b.logger.Info("device registered",
		"source_id", shape.SourceID, "name", shape.Name, "endpoints", len(shape.Endpoints()))
	return nil
}

// handleCommand routes one inbound mesh command to the owning hub
// entity. The runtime has already applied the optimistic local
// attribute update; a failed service call is logged, never reverted;
// the next hub push carries the correction.
func (b *Bridge) handleCommand(sourceID, endpoint string, cmd Command) {
	// Failures are already logged; no retry, no revert.
	_ = b.routeCommand(sourceID, endpoint, cmd)
}

// routeCommand resolves the entity bound to the sub-endpoint and issues
// the reverse-translated service call.
func (b *Bridge) routeCommand(sourceID, endpoint string, cmd Command) error {
	entityID := b.entityForEndpoint(sourceID, endpoint)
	if entityID == "" {
		b.logger.Warn("command for unknown endpoint",
			"source_id", sourceID, "endpoint", endpoint, "command", cmd.Name)
		return fmt.Errorf("%w: %s endpoint %s", ErrUnknownDevice, sourceID, endpoint)
	}

	entity, ok := b.registry.Entity(entityID)
	if !ok {
		b.logger.Warn("command for unregistered entity", "entity_id", entityID)
		return fmt.Errorf("%w: entity %s", ErrUnknownDevice, entityID)
	}

	snap := EntitySnapshot{Entity: *entity, State: b.registry.State(entityID)}
	return b.router.Route(snap, cmd)
}

// handleBrokerCommand routes one command published on the broker to the
// owning hub entity. The topic names the entity and the payload names
// the command: graymesh/command/light.lamp carrying
// {"command": "move_to_level", "payload": {"level": 128}}.
func (b *Bridge) handleBrokerCommand(topic string, payload []byte) {
	entityID := strings.TrimPrefix(topic, topicCommandPrefix)
	if entityID == "" || entityID == topic {
		return
	}

	var frame struct {
		Command string         `json:"command"`
		Payload map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(payload, &frame); err != nil || frame.Command == "" {
		b.logger.Warn("dropping malformed broker command", "topic", topic, "error", err)
		return
	}

	b.mu.Lock()
	_, bound := b.bindings[entityID]
	b.mu.Unlock()
	if !bound {
		b.logger.Warn("broker command for unbound entity",
			"entity_id", entityID, "command", frame.Command)
		return
	}

	entity, ok := b.registry.Entity(entityID)
	if !ok {
		b.logger.Warn("broker command for unregistered entity", "entity_id", entityID)
		return
	}

	snap := EntitySnapshot{Entity: *entity, State: b.registry.State(entityID)}
	_ = b.router.Route(snap, Command{Name: frame.Command, Payload: frame.Payload})
}

func (b *Bridge) entityForEndpoint(sourceID, endpoint string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	for entityID, bind := range b.bindings {
		if bind.sourceID == sourceID && bind.endpoint == endpoint {
			return entityID
		}
	}
	return ""
}

// applyChange translates one applied hub state transition onto the
// owning mesh device's attributes. Unavailable states leave the
// previous attribute values in place.
func (b *Bridge) applyChange(change hub.EntityChange) {
	b.mu.Lock()
	bind, ok := b.bindings[change.EntityID]
	dev := b.devices[bind.sourceID]
	b.mu.Unlock()

	if !ok || dev == nil {
		b.logger.Debug("change for unmapped entity", "entity_id", change.EntityID)
		return
	}
	if change.New == nil || change.New.Unavailable() {
		b.logger.Debug("unavailable state, keeping previous attributes", "entity_id", change.EntityID)
		return
	}

	entity, found := b.registry.Entity(change.EntityID)
	if !found {
		return
	}

	snap := EntitySnapshot{Entity: *entity, State: change.New}
	rule := RuleFor(snap)
	if rule == nil || rule.Update == nil {
		return
	}

	for _, v := range rule.Update(snap) {
		if err := dev.UpdateAttribute(bind.endpoint, v.Cluster, v.Attr, v.Value); err != nil {
			b.logger.Error("attribute update failed",
				"entity_id", change.EntityID, "endpoint", bind.endpoint,
				"cluster", fmt.Sprintf("0x%04X", uint32(v.Cluster)), "error", err)
		}
	}

	b.mirrorState(snap)
	b.recordTelemetry(snap)
}

// handleRefreshed reacts to a debounced registry re-fetch. Device and
// entity refreshes re-run classification to pick up structural changes;
// area and label refreshes only affect naming metadata.
func (b *Bridge) handleRefreshed(kind hub.RefreshKind) {
	switch kind {
	case hub.RefreshDevices, hub.RefreshEntities:
		b.resyncStructure()
		b.writeSnapshot()
	default:
		b.logger.Debug("registry metadata refreshed", "kind", string(kind))
	}
}

// resyncStructure registers newly appeared sources and removes sources
// that vanished from the hub. Existing devices keep their materialised
// shape; attribute flow adapts through the normal push path.
func (b *Bridge) resyncStructure() {
	live := make(map[string]bool)
	for _, dev := range b.registry.Devices() {
		live[dev.ID] = true
	}
	for _, ent := range b.registry.StandaloneEntities() {
		live[ent.EntityID] = true
	}

	// Remove vanished sources first so their names free up.
	b.mu.Lock()
	var gone []string
	for sourceID := range b.devices {
		if !live[sourceID] {
			gone = append(gone, sourceID)
		}
	}
	for _, sourceID := range gone {
		delete(b.devices, sourceID)
		for name, owner := range b.names {
			if owner == sourceID {
				delete(b.names, name)
			}
		}
		for entityID, bind := range b.bindings {
			if bind.sourceID == sourceID {
				delete(b.bindings, entityID)
			}
		}
	}
	b.mu.Unlock()

	for _, sourceID := range gone {
		if err := b.runtime.Remove(sourceID); err != nil {
			b.logger.Warn("device removal failed", "source_id", sourceID, "error", err)
		}
		b.logger.Info("device removed with hub source", "source_id", sourceID)
	}

	// Materialise sources that appeared; register skips duplicates.
	b.materialiseAll()
}

// handleConnEvent logs connection transitions and, after a successful
// reconnection, re-runs the full sync since server-side subscriptions
// died with the old session.
func (b *Bridge) handleConnEvent(ev hub.ConnEvent) {
	switch ev.Kind {
	case hub.ConnEventConnected:
		b.hubOnline.Store(true)
		b.mu.Lock()
		resync := b.started && len(b.devices) > 0
		b.mu.Unlock()
		if resync {
			go b.afterReconnect()
		}
	case hub.ConnEventDisconnected:
		b.hubOnline.Store(false)
		b.logger.Warn("hub connection lost")
		b.publishStatus("degraded")
	case hub.ConnEventError:
		b.logger.Error("hub connection error", "error", ev.Err)
	}
}

func (b *Bridge) afterReconnect() {
	if err := b.dispatcher.SyncAll(); err != nil {
		b.logger.Error("post-reconnect sync failed", "error", err)
		return
	}

	b.mu.Lock()
	b.subs = nil
	b.mu.Unlock()
	for _, eventType := range []string{
		hub.EventStateChanged,
		hub.EventDeviceRegistryUpdated,
		hub.EventEntityRegistryUpdated,
		hub.EventAreaRegistryUpdated,
		hub.EventLabelRegistryUpdated,
	} {
		sub, err := b.session.SubscribeEvents(eventType)
		if err != nil {
			b.logger.Error("re-subscription failed", "event_type", eventType, "error", err)
			continue
		}
		b.mu.Lock()
		b.subs = append(b.subs, sub)
		b.mu.Unlock()
	}

	b.resyncStructure()
	b.refreshAllAttributes()
	b.publishStatus("online")
	b.logger.Info("recovered after reconnection")
}

// refreshAllAttributes pushes the current registry state of every bound
// entity, catching up on changes missed while disconnected.
func (b *Bridge) refreshAllAttributes() {
	b.mu.Lock()
	bound := make(map[string]binding, len(b.bindings))
	for entityID, bind := range b.bindings {
		bound[entityID] = bind
	}
	b.mu.Unlock()

	for entityID := range bound {
		state := b.registry.State(entityID)
		if state == nil {
			continue
		}
		entity, ok := b.registry.Entity(entityID)
		if !ok {
			continue
		}
		b.applyChange(hub.EntityChange{
			EntityID: entityID,
			DeviceID: entity.DeviceID,
			New:      state,
		})
	}
}

// mirrorState publishes the entity's state to the external broker.
func (b *Bridge) mirrorState(e EntitySnapshot) {
	if b.publisher == nil || e.State == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"entity_id":  e.Entity.EntityID,
		"state":      e.State.State,
		"attributes": e.State.Attributes,
		"updated_at": e.State.LastUpdated,
	})
	if err != nil {
		return
	}
	if err := b.publisher.Publish(topicStatePrefix+e.Entity.EntityID, payload); err != nil {
		b.logger.Debug("state mirror publish failed", "entity_id", e.Entity.EntityID, "error", err)
	}
}

func (b *Bridge) publishStatus(status string) {
	if b.publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"status":      status,
		"hub_version": b.hubVersion,
		"devices":     b.DeviceCount(),
		"timestamp":   time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := b.publisher.Publish(topicStatus, payload); err != nil {
		b.logger.Debug("status publish failed", "error", err)
	}
}

func (b *Bridge) recordTelemetry(e EntitySnapshot) {
	if b.telemetry == nil || e.State == nil {
		return
	}
	var numeric *float64
	if v, ok := parseFloat(e.State.State); ok {
		numeric = &v
	}
	b.telemetry.WriteEntityState(e.Entity.EntityID, e.Domain(), e.State.State, numeric)
}

func (b *Bridge) writeSnapshot() {
	if b.snapshotTo == "" {
		return
	}
	if err := b.registry.Snapshot(b.snapshotTo); err != nil {
		b.logger.Warn("registry snapshot failed", "path", b.snapshotTo, "error", err)
	}
}

func (b *Bridge) logSkips(skips []Skip) {
	for _, s := range skips {
		b.logger.Debug("entity skipped", "entity_id", s.EntityID, "reason", string(s.Reason))
	}
}

// DeviceCount returns the number of registered mesh devices.
func (b *Bridge) DeviceCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.devices)
}

// BridgeStats aggregates operational counters across the pipeline.
type BridgeStats struct {
	HubVersion     string            `json:"hub_version"`
	HubConnected   bool              `json:"hub_connected"`
	StartedAt      time.Time         `json:"started_at"`
	Devices        int               `json:"devices"`
	BoundEntities  int               `json:"bound_entities"`
	Dispatcher     hub.DispatcherStats `json:"dispatcher"`
	Router         RouterStats       `json:"router"`
	RegistryCounts map[string]int    `json:"registry_counts"`
}

// Stats returns a snapshot of bridge counters.
func (b *Bridge) Stats() BridgeStats {
	b.mu.Lock()
	devices := len(b.devices)
	bound := len(b.bindings)
	b.mu.Unlock()

	d, e, s, a, l := b.registry.Counts()
	return BridgeStats{
		HubVersion:    b.hubVersion,
		HubConnected:  b.hubOnline.Load(),
		StartedAt:     b.startedAt,
		Devices:       devices,
		BoundEntities: bound,
		Dispatcher:    b.dispatcher.Stats(),
		Router:        b.router.Stats(),
		RegistryCounts: map[string]int{
			"devices": d, "entities": e, "states": s, "areas": a, "labels": l,
		},
	}
}
