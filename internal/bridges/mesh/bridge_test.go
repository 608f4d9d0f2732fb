package mesh

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-mesh/internal/hub"
)

// fakeSession is an in-memory HubSession serving canned registries and
// recording service calls and subscriptions.
type fakeSession struct {
	mu       sync.Mutex
	devices  []hub.Device
	entities []hub.Entity
	states   []hub.State
	areas    []hub.Area
	labels   []hub.Label

	calls  []recordedCall
	subs   []string
	onPush hub.PushHandler
	onConn func(hub.ConnEvent)
	closed bool
}

func (f *fakeSession) Connect(context.Context) (string, error) { return "2025.1.0", nil }

func (f *fakeSession) States() ([]hub.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.State(nil), f.states...), nil
}

func (f *fakeSession) DeviceRegistry() ([]hub.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Device(nil), f.devices...), nil
}

func (f *fakeSession) EntityRegistry() ([]hub.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Entity(nil), f.entities...), nil
}

func (f *fakeSession) Areas() ([]hub.Area, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Area(nil), f.areas...), nil
}

func (f *fakeSession) Labels() ([]hub.Label, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hub.Label(nil), f.labels...), nil
}

func (f *fakeSession) SubscribeEvents(eventType string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, eventType)
	return uint64(len(f.subs)), nil
}

func (f *fakeSession) UnsubscribeEvents(uint64) error { return nil }

func (f *fakeSession) SetOnPush(h hub.PushHandler) {
	f.mu.Lock()
	f.onPush = h
	f.mu.Unlock()
}

func (f *fakeSession) SetOnConnEvent(h func(hub.ConnEvent)) {
	f.mu.Lock()
	f.onConn = h
	f.mu.Unlock()
}

func (f *fakeSession) CallService(domain, service string, data map[string]any, target *hub.ServiceTarget) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedCall{domain: domain, service: service, data: data, target: target})
	return nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// pushStateChanged delivers one state_changed push through the wired
// push handler, synchronously like the real read loop.
func (f *fakeSession) pushStateChanged(t *testing.T, old, next *hub.State) {
	t.Helper()
	entityID := ""
	if next != nil {
		entityID = next.EntityID
	} else if old != nil {
		entityID = old.EntityID
	}
	data, err := json.Marshal(hub.StateChangedData{EntityID: entityID, OldState: old, NewState: next})
	if err != nil {
		t.Fatalf("marshal push: %v", err)
	}

	f.mu.Lock()
	handler := f.onPush
	f.mu.Unlock()
	if handler == nil {
		t.Fatal("no push handler wired")
	}
	handler(hub.EventStateChanged, data)
}

// attrUpdate is one recorded runtime attribute write.
type attrUpdate struct {
	endpoint string
	cluster  ClusterID
	attr     AttributeID
	value    any
}

type fakeDevice struct {
	sourceID string
	mu       sync.Mutex
	updates  []attrUpdate
}

func (d *fakeDevice) SourceID() string { return d.sourceID }

func (d *fakeDevice) UpdateAttribute(endpoint string, cluster ClusterID, attr AttributeID, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, attrUpdate{endpoint: endpoint, cluster: cluster, attr: attr, value: value})
	return nil
}

func (d *fakeDevice) updatesFor(cluster ClusterID, attr AttributeID) []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []any
	for _, u := range d.updates {
		if u.cluster == cluster && u.attr == attr {
			out = append(out, u.value)
		}
	}
	return out
}

type fakeRuntime struct {
	mu             sync.Mutex
	devices        map[string]*fakeDevice
	handlers       map[string]CommandHandler
	removed        []string
	materializeErr error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		devices:  make(map[string]*fakeDevice),
		handlers: make(map[string]CommandHandler),
	}
}

func (r *fakeRuntime) Materialize(shape *Shape, handler CommandHandler) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.materializeErr != nil {
		return nil, r.materializeErr
	}
	dev := &fakeDevice{sourceID: shape.SourceID}
	r.devices[shape.SourceID] = dev
	r.handlers[shape.SourceID] = handler
	return dev, nil
}

func (r *fakeRuntime) Remove(sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, sourceID)
	delete(r.handlers, sourceID)
	r.removed = append(r.removed, sourceID)
	return nil
}

func (r *fakeRuntime) device(sourceID string) *fakeDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.devices[sourceID]
}

func (r *fakeRuntime) handler(sourceID string) CommandHandler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[sourceID]
}

func vacuumSession() *fakeSession {
	return &fakeSession{
		entities: []hub.Entity{{EntityID: "vacuum.robo"}},
		states: []hub.State{{EntityID: "vacuum.robo", State: "docked", Attributes: hub.Attributes{
			"friendly_name": "Robo",
		}}},
	}
}

func startBridge(t *testing.T, session *fakeSession, runtime *fakeRuntime) *Bridge {
	t.Helper()
	b := NewBridge(Options{Session: session, Runtime: runtime, DebounceWindow: 20 * time.Millisecond})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { b.Stop() })
	return b
}

func TestBridgeStartMaterialisesDevices(t *testing.T) {
	session := &fakeSession{
		devices: []hub.Device{{ID: "dev-plug", Name: "Smart Plug"}},
		entities: []hub.Entity{
			{EntityID: "switch.plug", DeviceID: strPtr("dev-plug")},
			{EntityID: "light.lamp"},
		},
		states: []hub.State{
			{EntityID: "switch.plug", State: "on", Attributes: hub.Attributes{}},
			{EntityID: "light.lamp", State: "off", Attributes: hub.Attributes{"friendly_name": "Lamp"}},
		},
	}
	runtime := newFakeRuntime()
	b := startBridge(t, session, runtime)

	if got := b.DeviceCount(); got != 2 {
		t.Errorf("DeviceCount() = %d, want 2", got)
	}
	if runtime.device("dev-plug") == nil || runtime.device("light.lamp") == nil {
		t.Error("expected both the hub device and the standalone entity materialised")
	}

	// All five push subscriptions are established.
	session.mu.Lock()
	subs := len(session.subs)
	session.mu.Unlock()
	if subs != 5 {
		t.Errorf("subscriptions = %d, want 5", subs)
	}
}

func TestBridgeDuplicateNameRejected(t *testing.T) {
	session := &fakeSession{
		entities: []hub.Entity{
			{EntityID: "switch.plug_a"},
			{EntityID: "switch.plug_b"},
		},
		states: []hub.State{
			{EntityID: "switch.plug_a", State: "on", Attributes: hub.Attributes{"friendly_name": "Plug"}},
			{EntityID: "switch.plug_b", State: "off", Attributes: hub.Attributes{"friendly_name": "Plug"}},
		},
	}
	runtime := newFakeRuntime()
	b := startBridge(t, session, runtime)

	if got := b.DeviceCount(); got != 1 {
		t.Errorf("DeviceCount() = %d, want 1 after duplicate rejection", got)
	}
	if runtime.device("switch.plug_a") == nil {
		t.Error("first registrant displaced by duplicate")
	}
	if runtime.device("switch.plug_b") != nil {
		t.Error("duplicate-named device was registered")
	}
}

func TestBridgeVacuumSequence(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	startBridge(t, session, runtime)

	dev := runtime.device("vacuum.robo")
	if dev == nil {
		t.Fatal("vacuum not materialised")
	}

	prev := &hub.State{EntityID: "vacuum.robo", State: "docked", Attributes: hub.Attributes{}}
	for _, state := range []string{"cleaning", "paused", "docked"} {
		next := &hub.State{EntityID: "vacuum.robo", State: state, Attributes: hub.Attributes{}}
		session.pushStateChanged(t, prev, next)
		prev = next
	}

	got := dev.updatesFor(ClusterRvcOperationalState, AttrOperationalState)
	want := []any{OpStateRunning, OpStatePaused, OpStateDocked}
	if len(got) != len(want) {
		t.Fatalf("operational state updates = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("operational state order = %v, want %v", got, want)
		}
	}

	runModes := dev.updatesFor(ClusterRvcRunMode, AttrRunModeCurrent)
	wantModes := []any{RunModeCleaning, RunModeCleaning, RunModeIdle}
	for i := range wantModes {
		if runModes[i] != wantModes[i] {
			t.Fatalf("run mode order = %v, want %v", runModes, wantModes)
		}
	}
}

func TestBridgeUnavailableStateKeepsAttributes(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	startBridge(t, session, runtime)

	dev := runtime.device("vacuum.robo")
	before := len(dev.updatesFor(ClusterRvcOperationalState, AttrOperationalState))

	session.pushStateChanged(t,
		&hub.State{EntityID: "vacuum.robo", State: "docked", Attributes: hub.Attributes{}},
		&hub.State{EntityID: "vacuum.robo", State: "unavailable", Attributes: hub.Attributes{}})

	after := len(dev.updatesFor(ClusterRvcOperationalState, AttrOperationalState))
	if after != before {
		t.Errorf("attribute updates on unavailable state: %d -> %d, want unchanged", before, after)
	}
}

func TestBridgeCommandPath(t *testing.T) {
	session := &fakeSession{
		entities: []hub.Entity{{EntityID: "switch.plug"}},
		states: []hub.State{{EntityID: "switch.plug", State: "off", Attributes: hub.Attributes{
			"friendly_name": "Plug",
		}}},
	}
	runtime := newFakeRuntime()
	startBridge(t, session, runtime)

	handler := runtime.handler("switch.plug")
	if handler == nil {
		t.Fatal("no command handler registered")
	}

	handler("switch.plug", Command{Name: CmdOn})

	session.mu.Lock()
	defer session.mu.Unlock()
	if len(session.calls) != 1 {
		t.Fatalf("service calls = %d, want 1", len(session.calls))
	}
	call := session.calls[0]
	if call.domain != "switch" || call.service != "turn_on" {
		t.Errorf("call = %s.%s, want switch.turn_on", call.domain, call.service)
	}
}

// fakeCommandSource records broker subscriptions and replays published
// commands through the registered handler.
type fakeCommandSource struct {
	mu       sync.Mutex
	handlers map[string]func(topic string, payload []byte)
	unsubbed []string
}

func newFakeCommandSource() *fakeCommandSource {
	return &fakeCommandSource{handlers: make(map[string]func(string, []byte))}
}

func (f *fakeCommandSource) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeCommandSource) Unsubscribe(topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, topic)
	f.unsubbed = append(f.unsubbed, topic)
	return nil
}

func (f *fakeCommandSource) publish(t *testing.T, topic, payload string) {
	t.Helper()
	f.mu.Lock()
	handler := f.handlers["graymesh/command/+"]
	f.mu.Unlock()
	if handler == nil {
		t.Fatal("no broker command subscription registered")
	}
	handler(topic, []byte(payload))
}

func TestBridgeBrokerCommandPath(t *testing.T) {
	session := &fakeSession{
		entities: []hub.Entity{{EntityID: "switch.plug"}},
		states: []hub.State{{EntityID: "switch.plug", State: "off", Attributes: hub.Attributes{
			"friendly_name": "Plug",
		}}},
	}
	runtime := newFakeRuntime()
	source := newFakeCommandSource()
	b := NewBridge(Options{Session: session, Runtime: runtime, Commands: source})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { b.Stop() })

	source.publish(t, "graymesh/command/switch.plug", `{"command":"on"}`)

	session.mu.Lock()
	calls := append([]recordedCall(nil), session.calls...)
	session.mu.Unlock()
	if len(calls) != 1 {
		t.Fatalf("service calls = %d, want 1", len(calls))
	}
	if calls[0].domain != "switch" || calls[0].service != "turn_on" {
		t.Errorf("call = %s.%s, want switch.turn_on", calls[0].domain, calls[0].service)
	}

	// Unbound entities and malformed payloads are dropped without a call.
	source.publish(t, "graymesh/command/light.ghost", `{"command":"on"}`)
	source.publish(t, "graymesh/command/switch.plug", `{not json`)
	source.publish(t, "graymesh/command/switch.plug", `{"payload":{"level":10}}`)

	session.mu.Lock()
	total := len(session.calls)
	session.mu.Unlock()
	if total != 1 {
		t.Errorf("service calls after dropped commands = %d, want 1", total)
	}
}

func TestBridgeBrokerCommandUnsubscribedOnStop(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	source := newFakeCommandSource()
	b := NewBridge(Options{Session: session, Runtime: runtime, Commands: source})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := b.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	source.mu.Lock()
	defer source.mu.Unlock()
	if len(source.unsubbed) != 1 || source.unsubbed[0] != "graymesh/command/+" {
		t.Errorf("unsubscribed = %v, want [graymesh/command/+]", source.unsubbed)
	}
}

func TestBridgeRegisterSentinels(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	b := startBridge(t, session, runtime)

	// A different source claiming an already-registered display name.
	dup := NewShape("switch.imposter", "Robo")
	dup.Endpoint("main").AddCluster(ClusterOnOff)
	if err := b.register(dup); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("register() error = %v, want ErrDuplicateName", err)
	}

	// Runtime rejection surfaces as ErrMaterialize.
	runtime.mu.Lock()
	runtime.materializeErr = errors.New("runtime full")
	runtime.mu.Unlock()
	fresh := NewShape("switch.fresh", "Fresh Plug")
	fresh.Endpoint("main").AddCluster(ClusterOnOff)
	if err := b.register(fresh); !errors.Is(err, ErrMaterialize) {
		t.Errorf("register() error = %v, want ErrMaterialize", err)
	}

	// Re-registering an existing source id is an idempotent no-op.
	same := NewShape("vacuum.robo", "Robo")
	same.Endpoint("main").AddCluster(ClusterOnOff)
	if err := b.register(same); err != nil {
		t.Errorf("register() of existing source error = %v, want nil", err)
	}
}

func TestBridgeRouteCommandUnknownDevice(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	b := startBridge(t, session, runtime)

	err := b.routeCommand("switch.ghost", "main", Command{Name: CmdOn})
	if !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("routeCommand() error = %v, want ErrUnknownDevice", err)
	}

	session.mu.Lock()
	calls := len(session.calls)
	session.mu.Unlock()
	if calls != 0 {
		t.Errorf("service calls = %d, want 0", calls)
	}
}

func TestBridgeStopTearsDown(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	b := NewBridge(Options{Session: session, Runtime: runtime})
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := b.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	session.mu.Lock()
	closed := session.closed
	session.mu.Unlock()
	if !closed {
		t.Error("hub session not closed on Stop")
	}

	runtime.mu.Lock()
	removed := len(runtime.removed)
	runtime.mu.Unlock()
	if removed != 1 {
		t.Errorf("devices removed = %d, want 1", removed)
	}

	if err := b.Stop(); err != ErrNotStarted {
		t.Errorf("second Stop() error = %v, want ErrNotStarted", err)
	}
}

func TestBridgeStructureResyncRemovesVanishedDevice(t *testing.T) {
	session := vacuumSession()
	runtime := newFakeRuntime()
	b := startBridge(t, session, runtime)

	// The vacuum disappears from the hub registry.
	session.mu.Lock()
	session.entities = nil
	session.states = nil
	session.mu.Unlock()

	b.dispatcher.HandlePush(hub.EventEntityRegistryUpdated, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.DeviceCount() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := b.DeviceCount(); got != 0 {
		t.Fatalf("DeviceCount() = %d after entity removal, want 0", got)
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()
	if len(runtime.removed) == 0 || runtime.removed[0] != "vacuum.robo" {
		t.Errorf("removed = %v, want [vacuum.robo]", runtime.removed)
	}
}
