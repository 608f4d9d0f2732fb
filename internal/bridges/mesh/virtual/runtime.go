// Package virtual provides an in-memory mesh runtime.
//
// It satisfies the bridge's Runtime and Device interfaces without any mesh
// transport: materialised devices live in a map and attribute updates are
// recorded rather than broadcast. It backs deployments where the real mesh
// stack runs out of process, and doubles as a diagnostics surface — the
// bridge behaves identically whether the runtime is virtual or real.
package virtual

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-mesh/internal/bridges/mesh"
)

// Runtime is an in-memory implementation of mesh.Runtime.
//
// Thread Safety: all methods are safe for concurrent use.
type Runtime struct {
	mu      sync.RWMutex
	devices map[string]*Device
	logger  mesh.Logger
}

// NewRuntime creates an empty virtual runtime.
func NewRuntime() *Runtime {
	return &Runtime{devices: make(map[string]*Device)}
}

// SetLogger attaches a logger for materialisation and update events.
func (r *Runtime) SetLogger(logger mesh.Logger) {
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

func (r *Runtime) log() mesh.Logger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.logger
}

// Materialize registers a device built from the given shape.
// A duplicate source id is rejected.
func (r *Runtime) Materialize(shape *mesh.Shape, handler mesh.CommandHandler) (mesh.Device, error) {
	if shape == nil || shape.Empty() {
		return nil, fmt.Errorf("virtual: empty shape")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[shape.SourceID]; exists {
		return nil, fmt.Errorf("virtual: device %q already materialised", shape.SourceID)
	}

	dev := &Device{
		sourceID: shape.SourceID,
		name:     shape.Name,
		handler:  handler,
		attrs:    make(map[attrKey]any),
	}

	// Seed attribute storage with the shape's defaults.
	for _, name := range shape.EndpointNames() {
		ep := shape.Endpoint(name)
		for _, def := range ep.Defaults {
			dev.attrs[attrKey{name, def.Cluster, def.Attr}] = def.Value
		}
	}

	r.devices[shape.SourceID] = dev
	if l := r.logger; l != nil {
		l.Info("virtual device materialised",
			"source_id", shape.SourceID,
			"name", shape.Name,
			"endpoints", len(shape.EndpointNames()),
		)
	}
	return dev, nil
}

// Remove tears down a materialised device.
func (r *Runtime) Remove(sourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[sourceID]; !exists {
		return fmt.Errorf("virtual: device %q not materialised", sourceID)
	}
	delete(r.devices, sourceID)
	if l := r.logger; l != nil {
		l.Info("virtual device removed", "source_id", sourceID)
	}
	return nil
}

// Device returns a materialised device by source id, or nil.
func (r *Runtime) Device(sourceID string) *Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[sourceID]
}

// SourceIDs returns the ids of all materialised devices, sorted.
func (r *Runtime) SourceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// attrKey addresses one attribute on one sub-endpoint.
type attrKey struct {
	endpoint string
	cluster  mesh.ClusterID
	attr     mesh.AttributeID
}

// Device is an in-memory mesh device.
type Device struct {
	sourceID string
	name     string
	handler  mesh.CommandHandler

	mu    sync.RWMutex
	attrs map[attrKey]any
}

// SourceID returns the hub device or entity id the device was built from.
func (d *Device) SourceID() string { return d.sourceID }

// Name returns the display name announced at materialisation.
func (d *Device) Name() string { return d.name }

// UpdateAttribute records an attribute value for a sub-endpoint.
func (d *Device) UpdateAttribute(endpoint string, cluster mesh.ClusterID, attr mesh.AttributeID, value any) error {
	d.mu.Lock()
	d.attrs[attrKey{endpoint, cluster, attr}] = value
	d.mu.Unlock()
	return nil
}

// Attribute returns the last recorded value for an attribute.
func (d *Device) Attribute(endpoint string, cluster mesh.ClusterID, attr mesh.AttributeID) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.attrs[attrKey{endpoint, cluster, attr}]
	return v, ok
}

// Inject delivers a command to the device's handler, as the mesh side
// would. Used by diagnostics and tests.
func (d *Device) Inject(endpoint string, cmd mesh.Command) {
	if d.handler != nil {
		d.handler(endpoint, cmd)
	}
}
