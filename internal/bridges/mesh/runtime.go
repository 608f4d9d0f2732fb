package mesh

import "sort"

// DeviceTypeID identifies a mesh device type on a sub-endpoint.
type DeviceTypeID uint16

// Mesh device types used by the classification rules.
const (
	DeviceTypeOnOffLight            DeviceTypeID = 0x0100
	DeviceTypeDimmableLight         DeviceTypeID = 0x0101
	DeviceTypeColorTemperatureLight DeviceTypeID = 0x010C
	DeviceTypeExtendedColorLight    DeviceTypeID = 0x010D
	DeviceTypeOnOffPlugInUnit       DeviceTypeID = 0x010A
	DeviceTypeDoorLock              DeviceTypeID = 0x000A
	DeviceTypeFan                   DeviceTypeID = 0x002B
	DeviceTypeWindowCovering        DeviceTypeID = 0x0202
	DeviceTypeThermostat            DeviceTypeID = 0x0301
	DeviceTypeContactSensor         DeviceTypeID = 0x0015
	DeviceTypeOccupancySensor       DeviceTypeID = 0x0107
	DeviceTypeLightSensor           DeviceTypeID = 0x0106
	DeviceTypeTemperatureSensor     DeviceTypeID = 0x0302
	DeviceTypeHumiditySensor        DeviceTypeID = 0x0307
	DeviceTypeRoboticVacuum         DeviceTypeID = 0x0074
	DeviceTypeWaterValve            DeviceTypeID = 0x0042
	DeviceTypeGenericSwitch         DeviceTypeID = 0x000F
)

// ClusterID identifies a mesh capability cluster.
type ClusterID uint32

// Mesh clusters used by the classification rules.
const (
	ClusterOnOff                ClusterID = 0x0006
	ClusterLevelControl         ClusterID = 0x0008
	ClusterColorControl         ClusterID = 0x0300
	ClusterDoorLock             ClusterID = 0x0101
	ClusterFanControl           ClusterID = 0x0202
	ClusterWindowCovering       ClusterID = 0x0102
	ClusterThermostat           ClusterID = 0x0201
	ClusterBooleanState         ClusterID = 0x0045
	ClusterOccupancySensing     ClusterID = 0x0406
	ClusterTemperatureMeasure   ClusterID = 0x0402
	ClusterHumidityMeasure      ClusterID = 0x0405
	ClusterIlluminanceMeasure   ClusterID = 0x0400
	ClusterPowerSource          ClusterID = 0x002F
	ClusterElectricalPower      ClusterID = 0x0090
	ClusterElectricalEnergy     ClusterID = 0x0091
	ClusterRvcRunMode           ClusterID = 0x0054
	ClusterRvcOperationalState  ClusterID = 0x0061
	ClusterValveConfigAndControl ClusterID = 0x0081
	ClusterSwitch               ClusterID = 0x003B
)

// AttributeID identifies an attribute within a cluster.
type AttributeID uint32

// Cluster attributes written by the translation engine.
const (
	AttrOnOff AttributeID = 0x0000

	AttrCurrentLevel AttributeID = 0x0000

	AttrColorHue          AttributeID = 0x0000
	AttrColorSaturation   AttributeID = 0x0001
	AttrColorX            AttributeID = 0x0003
	AttrColorY            AttributeID = 0x0004
	AttrColorTempMireds   AttributeID = 0x0007
	AttrColorMode         AttributeID = 0x0008
	AttrColorTempMinMired AttributeID = 0x400B
	AttrColorTempMaxMired AttributeID = 0x400C

	AttrLockState AttributeID = 0x0000

	AttrFanMode           AttributeID = 0x0000
	AttrFanPercentSetting AttributeID = 0x0002
	AttrFanPercentCurrent AttributeID = 0x0003
	AttrFanRockSetting    AttributeID = 0x0008
	AttrFanAirflowDir     AttributeID = 0x000B

	AttrCoveringLiftPercent100ths AttributeID = 0x000E
	AttrCoveringOperationalStatus AttributeID = 0x000A

	AttrThermostatLocalTemp       AttributeID = 0x0000
	AttrThermostatOccupiedCooling AttributeID = 0x0011
	AttrThermostatOccupiedHeating AttributeID = 0x0012
	AttrThermostatSystemMode      AttributeID = 0x001C
	AttrThermostatControlSequence AttributeID = 0x001B

	AttrBooleanStateValue AttributeID = 0x0000

	AttrOccupancy AttributeID = 0x0000

	AttrMeasuredValue    AttributeID = 0x0000
	AttrMinMeasuredValue AttributeID = 0x0001

	AttrActivePower      AttributeID = 0x0008
	AttrCumulativeEnergy AttributeID = 0x0001

	AttrSwitchCurrentPosition AttributeID = 0x0001

	AttrBatPercentRemaining AttributeID = 0x000C
	AttrBatChargeLevel      AttributeID = 0x000E

	AttrRunModeCurrent  AttributeID = 0x0001
	AttrOperationalState AttributeID = 0x0004

	AttrValveCurrentState AttributeID = 0x0004
)

// Command is one inbound mesh command targeting a sub-endpoint.
type Command struct {
	Name    string
	Payload map[string]any
}

// CommandHandler receives inbound mesh commands for one materialised
// device. endpoint names the sub-endpoint the command arrived on.
type CommandHandler func(endpoint string, cmd Command)

// Runtime is the external mesh device runtime. It owns endpoint
// lifecycle, attribute storage and wire encoding; the bridge only calls
// these construction and mutation primitives.
type Runtime interface {
	// Materialize constructs a live mesh device from a frozen shape. The
	// handler is invoked for every inbound command on any sub-endpoint.
	// Rejection (duplicate id, invalid composition) returns an error and
	// registers nothing.
	Materialize(shape *Shape, handler CommandHandler) (Device, error)

	// Remove tears down a previously materialised device.
	Remove(sourceID string) error
}

// Device is a live mesh device handle returned by the runtime.
type Device interface {
	// SourceID returns the hub device or entity id the device was built
	// from.
	SourceID() string

	// UpdateAttribute pushes one attribute value to a sub-endpoint.
	UpdateAttribute(endpoint string, cluster ClusterID, attr AttributeID, value any) error
}

// AttributeValue is one attribute assignment produced by translation,
// used both for shape defaults and for live updates.
type AttributeValue struct {
	Cluster ClusterID
	Attr    AttributeID
	Value   any
}

// EndpointShape accumulates one sub-endpoint of a composed device:
// device types, clusters, default attribute values, the owning hub
// entity and the command vocabulary to register for it.
type EndpointShape struct {
	Name        string
	EntityID    string
	DeviceTypes []DeviceTypeID
	Clusters    []ClusterID
	Defaults    []AttributeValue
	Commands    []string
}

// AddDeviceType appends a device type, skipping duplicates.
func (ep *EndpointShape) AddDeviceType(dt DeviceTypeID) {
	for _, existing := range ep.DeviceTypes {
		if existing == dt {
			return
		}
	}
	ep.DeviceTypes = append(ep.DeviceTypes, dt)
}

// AddCluster appends a cluster, skipping duplicates.
func (ep *EndpointShape) AddCluster(id ClusterID) {
	for _, existing := range ep.Clusters {
		if existing == id {
			return
		}
	}
	ep.Clusters = append(ep.Clusters, id)
}

// SetDefault records a default attribute value, replacing any earlier
// default for the same (cluster, attribute).
func (ep *EndpointShape) SetDefault(v AttributeValue) {
	for i, existing := range ep.Defaults {
		if existing.Cluster == v.Cluster && existing.Attr == v.Attr {
			ep.Defaults[i] = v
			return
		}
	}
	ep.Defaults = append(ep.Defaults, v)
}

// AddCommand registers a supported command name, skipping duplicates.
func (ep *EndpointShape) AddCommand(name string) {
	for _, existing := range ep.Commands {
		if existing == name {
			return
		}
	}
	ep.Commands = append(ep.Commands, name)
}

// HasCluster reports whether the endpoint declares the cluster.
func (ep *EndpointShape) HasCluster(id ClusterID) bool {
	for _, existing := range ep.Clusters {
		if existing == id {
			return true
		}
	}
	return false
}

// Shape is the build-time accumulator for one mesh device: identity
// plus an ordered set of sub-endpoints. One Shape is built per hub
// device (or standalone entity) during classification, consumed exactly
// once by materialisation, then discarded.
type Shape struct {
	// SourceID is the hub device id or, for standalone entities, the
	// entity id.
	SourceID string

	// Name is the resolved display name announced on the mesh.
	Name string

	Vendor  string
	Product string

	endpoints map[string]*EndpointShape
	order     []string

	// bindings maps every contributing entity id to the sub-endpoint it
	// landed on, including entities colocated onto an endpoint owned by
	// a sibling.
	bindings map[string]string
}

// NewShape creates an empty shape for one source device or entity.
func NewShape(sourceID, name string) *Shape {
	return &Shape{
		SourceID:  sourceID,
		Name:      name,
		endpoints: make(map[string]*EndpointShape),
		bindings:  make(map[string]string),
	}
}

// Bind records which sub-endpoint an entity contributed to.
func (s *Shape) Bind(entityID, endpoint string) {
	s.bindings[entityID] = endpoint
}

// Bindings returns the entity-to-endpoint map.
func (s *Shape) Bindings() map[string]string {
	return s.bindings
}

// Endpoint returns the named sub-endpoint, creating it on first use.
// Creation order is preserved so repeated classification of the same
// snapshot yields an identical shape.
func (s *Shape) Endpoint(name string) *EndpointShape {
	if ep, ok := s.endpoints[name]; ok {
		return ep
	}
	ep := &EndpointShape{Name: name}
	s.endpoints[name] = ep
	s.order = append(s.order, name)
	return ep
}

// FindEndpointWithCluster returns the first sub-endpoint declaring the
// cluster, in creation order, or nil. Used to colocate secondary
// entities onto a primary endpoint.
func (s *Shape) FindEndpointWithCluster(id ClusterID) *EndpointShape {
	for _, name := range s.order {
		if ep := s.endpoints[name]; ep.HasCluster(id) {
			return ep
		}
	}
	return nil
}

// Endpoints returns the sub-endpoints in creation order.
func (s *Shape) Endpoints() []*EndpointShape {
	out := make([]*EndpointShape, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.endpoints[name])
	}
	return out
}

// EndpointNames returns the sub-endpoint names, sorted.
func (s *Shape) EndpointNames() []string {
	out := append([]string(nil), s.order...)
	sort.Strings(out)
	return out
}

// Empty reports whether no entity contributed a sub-endpoint. Empty
// shapes are never materialised.
func (s *Shape) Empty() bool {
	return len(s.order) == 0
}
