package mesh

import (
	"github.com/nerrad567/gray-logic-mesh/internal/hub"
)

// Wildcard matches any device class or state class in a rule key.
const Wildcard = "*"

// EntitySnapshot pairs a hub entity with its current state for one
// classification or translation pass. Snapshots are passed by value;
// neither engine mutates them.
type EntitySnapshot struct {
	Entity hub.Entity
	State  *hub.State
}

// Domain returns the entity's domain prefix.
func (e EntitySnapshot) Domain() string { return e.Entity.Domain() }

// DeviceClass returns the device_class attribute, or empty.
func (e EntitySnapshot) DeviceClass() string {
	if e.State == nil {
		return ""
	}
	dc, _ := e.State.Attributes.String("device_class")
	return dc
}

// StateClass returns the state_class attribute, or empty.
func (e EntitySnapshot) StateClass() string {
	if e.State == nil {
		return ""
	}
	sc, _ := e.State.Attributes.String("state_class")
	return sc
}

// On reports whether the entity's primary state is "on".
func (e EntitySnapshot) On() bool {
	return e.State != nil && e.State.State == "on"
}

// Rule is one entry in the ordered classification table. Shape declares
// the sub-endpoint contribution for a matched entity (returning nil to
// skip, e.g. when a colocation target is absent); Update computes the
// attribute values for the entity's current state and serves both shape
// defaults and live pushes.
type Rule struct {
	Domain      string
	DeviceClass string
	StateClass  string

	Shape  func(e EntitySnapshot, s *Shape) *EndpointShape
	Update func(e EntitySnapshot) []AttributeValue
}

// matches reports whether the rule key covers the given tuple.
func (r *Rule) matches(domain, deviceClass, stateClass string) bool {
	if r.Domain != domain {
		return false
	}
	if r.DeviceClass != Wildcard && r.DeviceClass != deviceClass {
		return false
	}
	if r.StateClass != Wildcard && r.StateClass != stateClass {
		return false
	}
	return true
}

// classificationRules is the ordered rule table, evaluated top to
// bottom, first match wins. Control domains are listed before passive
// domains so a secondary sensor rule can never shadow a primary
// mapping. Order within the passive section is load-bearing: more
// specific device classes precede their wildcard fallback.
var classificationRules = []Rule{
	// ── Control domains ──────────────────────────────────────
	{Domain: "switch", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeSwitch, Update: updateSwitch},
	{Domain: "light", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeLight, Update: updateLight},
	{Domain: "lock", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeLock, Update: updateLock},
	{Domain: "fan", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeFan, Update: updateFan},
	{Domain: "cover", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeCover, Update: updateCover},
	{Domain: "climate", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeClimate, Update: updateClimate},
	{Domain: "valve", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeValve, Update: updateValve},
	{Domain: "vacuum", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeVacuum, Update: updateVacuum},

	// ── Passive domains ──────────────────────────────────────
	{Domain: "binary_sensor", DeviceClass: "motion", StateClass: Wildcard, Shape: shapeOccupancy, Update: updateOccupancy},
	{Domain: "binary_sensor", DeviceClass: "occupancy", StateClass: Wildcard, Shape: shapeOccupancy, Update: updateOccupancy},
	{Domain: "binary_sensor", DeviceClass: "presence", StateClass: Wildcard, Shape: shapeOccupancy, Update: updateOccupancy},
	{Domain: "binary_sensor", DeviceClass: "battery", StateClass: Wildcard, Shape: shapeBatteryFlag, Update: updateBatteryFlag},
	{Domain: "binary_sensor", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeContact, Update: updateContact},
	{Domain: "sensor", DeviceClass: "temperature", StateClass: Wildcard, Shape: shapeTemperature, Update: updateTemperature},
	{Domain: "sensor", DeviceClass: "humidity", StateClass: Wildcard, Shape: shapeHumidity, Update: updateHumidity},
	{Domain: "sensor", DeviceClass: "illuminance", StateClass: Wildcard, Shape: shapeIlluminance, Update: updateIlluminance},
	{Domain: "sensor", DeviceClass: "battery", StateClass: Wildcard, Shape: shapeBattery, Update: updateBattery},
	{Domain: "sensor", DeviceClass: "power", StateClass: "measurement", Shape: shapePower, Update: updatePower},
	{Domain: "sensor", DeviceClass: "energy", StateClass: "total_increasing", Shape: shapeEnergy, Update: updateEnergy},
	{Domain: "event", DeviceClass: Wildcard, StateClass: Wildcard, Shape: shapeEvent, Update: updateEvent},
}

// matchRule returns the first rule covering the tuple, or nil.
func matchRule(domain, deviceClass, stateClass string) *Rule {
	for i := range classificationRules {
		if classificationRules[i].matches(domain, deviceClass, stateClass) {
			return &classificationRules[i]
		}
	}
	return nil
}

// ── Switch ───────────────────────────────────────────────────

func shapeSwitch(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeOnOffPlugInUnit)
	ep.AddCluster(ClusterOnOff)
	ep.AddCommand(CmdOn)
	ep.AddCommand(CmdOff)
	ep.AddCommand(CmdToggle)
	return ep
}

func updateSwitch(e EntitySnapshot) []AttributeValue {
	return []AttributeValue{{Cluster: ClusterOnOff, Attr: AttrOnOff, Value: e.On()}}
}

// ── Light ────────────────────────────────────────────────────

// lightCapabilities derives the mutually exclusive light variant from
// the declared colour modes. Exactly one of the four device types is
// chosen; richer colour capability wins.
type lightCapabilities struct {
	dimmable      bool
	colorTemp     bool
	extendedColor bool
}

func lightCaps(attrs hub.Attributes) lightCapabilities {
	var caps lightCapabilities
	for _, mode := range attrs.StringSlice("supported_color_modes") {
		switch mode {
		case "brightness", "white":
			caps.dimmable = true
		case "color_temp":
			caps.dimmable = true
			caps.colorTemp = true
		case "hs", "rgb", "rgbw", "rgbww", "xy":
			caps.dimmable = true
			caps.extendedColor = true
		}
	}
	return caps
}

func shapeLight(e EntitySnapshot, s *Shape) *EndpointShape {
	var attrs hub.Attributes
	if e.State != nil {
		attrs = e.State.Attributes
	}
	caps := lightCaps(attrs)

	ep := s.Endpoint(e.Entity.EntityID)
	switch {
	case caps.extendedColor:
		ep.AddDeviceType(DeviceTypeExtendedColorLight)
	case caps.colorTemp:
		ep.AddDeviceType(DeviceTypeColorTemperatureLight)
	case caps.dimmable:
		ep.AddDeviceType(DeviceTypeDimmableLight)
	default:
		ep.AddDeviceType(DeviceTypeOnOffLight)
	}

	ep.AddCluster(ClusterOnOff)
	ep.AddCommand(CmdOn)
	ep.AddCommand(CmdOff)
	ep.AddCommand(CmdToggle)

	if caps.dimmable {
		ep.AddCluster(ClusterLevelControl)
		ep.AddCommand(CmdMoveToLevel)
		ep.AddCommand(CmdMoveToLevelWithOnOff)
	}

	if caps.colorTemp || caps.extendedColor {
		ep.AddCluster(ClusterColorControl)
		minM, maxM := ColorTempBounds(attrs)
		ep.SetDefault(AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorTempMinMired, Value: minM})
		ep.SetDefault(AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorTempMaxMired, Value: maxM})
		ep.AddCommand(CmdMoveToColorTemp)
	}
	if caps.extendedColor {
		ep.AddCommand(CmdMoveToHueSat)
		ep.AddCommand(CmdMoveToColor)
	}
	return ep
}

func updateLight(e EntitySnapshot) []AttributeValue {
	out := []AttributeValue{{Cluster: ClusterOnOff, Attr: AttrOnOff, Value: e.On()}}
	if e.State == nil {
		return out
	}
	attrs := e.State.Attributes

	if b, ok := attrs.Float("brightness"); ok {
		out = append(out, AttributeValue{Cluster: ClusterLevelControl, Attr: AttrCurrentLevel, Value: LevelFromBrightness(b)})
	}
	if k, ok := attrs.Float("color_temp_kelvin"); ok {
		out = append(out, AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorTempMireds, Value: MiredsFromKelvin(k)})
	}
	if h, sPct, ok := attrs.FloatPair("hs_color"); ok {
		out = append(out,
			AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorHue, Value: HueFromDegrees(h)},
			AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorSaturation, Value: SaturationFromPercent(sPct)})
	}
	if x, y, ok := attrs.FloatPair("xy_color"); ok {
		out = append(out,
			AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorX, Value: ChromaticityToFixed(x)},
			AttributeValue{Cluster: ClusterColorControl, Attr: AttrColorY, Value: ChromaticityToFixed(y)})
	}
	return out
}

// ── Lock ─────────────────────────────────────────────────────

func shapeLock(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeDoorLock)
	ep.AddCluster(ClusterDoorLock)
	ep.AddCommand(CmdLock)
	ep.AddCommand(CmdUnlock)
	return ep
}

func updateLock(e EntitySnapshot) []AttributeValue {
	state := ""
	if e.State != nil {
		state = e.State.State
	}
	return []AttributeValue{{Cluster: ClusterDoorLock, Attr: AttrLockState, Value: LockStateFromHub(state)}}
}

// ── Fan ──────────────────────────────────────────────────────

func shapeFan(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeFan)
	ep.AddCluster(ClusterFanControl)
	ep.AddCommand(CmdOn)
	ep.AddCommand(CmdOff)
	ep.AddCommand(CmdSetFanPercent)

	// Extra features only when the hub declares the capability.
	if e.State != nil {
		if e.State.Attributes.Has("direction") {
			ep.AddCommand(CmdSetAirflowDirection)
		}
		if e.State.Attributes.Has("oscillating") {
			ep.AddCommand(CmdSetRock)
		}
	}
	return ep
}

// fanModeFromPercent buckets a speed percentage into the fan-mode enum.
func fanModeFromPercent(percent float64) uint8 {
	switch {
	case percent <= 0:
		return 0 // off
	case percent <= 33:
		return 1 // low
	case percent <= 66:
		return 2 // medium
	default:
		return 3 // high
	}
}

func updateFan(e EntitySnapshot) []AttributeValue {
	var percent float64
	if e.On() {
		percent = 100
		if p, ok := e.State.Attributes.Float("percentage"); ok {
			percent = clampF(p, 0, 100)
		}
	}

	out := []AttributeValue{
		{Cluster: ClusterFanControl, Attr: AttrFanMode, Value: fanModeFromPercent(percent)},
		{Cluster: ClusterFanControl, Attr: AttrFanPercentSetting, Value: uint8(percent)},
		{Cluster: ClusterFanControl, Attr: AttrFanPercentCurrent, Value: uint8(percent)},
	}
	if e.State == nil {
		return out
	}
	if dir, ok := e.State.Attributes.String("direction"); ok {
		airflow := AirflowForward
		if dir == "reverse" {
			airflow = AirflowReverse
		}
		out = append(out, AttributeValue{Cluster: ClusterFanControl, Attr: AttrFanAirflowDir, Value: airflow})
	}
	if osc, ok := e.State.Attributes.Bool("oscillating"); ok {
		out = append(out, AttributeValue{Cluster: ClusterFanControl, Attr: AttrFanRockSetting, Value: osc})
	}
	return out
}

// ── Cover ────────────────────────────────────────────────────

func shapeCover(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeWindowCovering)
	ep.AddCluster(ClusterWindowCovering)
	ep.AddCommand(CmdCoverOpen)
	ep.AddCommand(CmdCoverClose)
	ep.AddCommand(CmdCoverStop)
	ep.AddCommand(CmdCoverGoToLift)
	return ep
}

// Window-covering operational status: bits 0-1 encode global movement.
const (
	coveringIdle    uint8 = 0x00
	coveringOpening uint8 = 0x01
	coveringClosing uint8 = 0x02
)

func updateCover(e EntitySnapshot) []AttributeValue {
	status := coveringIdle
	position := 0.0
	if e.State != nil {
		switch e.State.State {
		case "opening":
			status = coveringOpening
		case "closing":
			status = coveringClosing
		case "open":
			position = 100
		}
		if p, ok := e.State.Attributes.Float("current_position"); ok {
			position = p
		}
	}
	return []AttributeValue{
		{Cluster: ClusterWindowCovering, Attr: AttrCoveringLiftPercent100ths, Value: LiftPercent100thsFromPosition(position)},
		{Cluster: ClusterWindowCovering, Attr: AttrCoveringOperationalStatus, Value: status},
	}
}

// ── Climate ──────────────────────────────────────────────────

func shapeClimate(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeThermostat)
	ep.AddCluster(ClusterThermostat)
	ep.AddCommand(CmdSetSystemMode)
	ep.AddCommand(CmdSetHeatingSetpoint)
	ep.AddCommand(CmdSetCoolingSetpoint)

	var modes []string
	if e.State != nil {
		modes = e.State.Attributes.StringSlice("hvac_modes")
	}
	ep.SetDefault(AttributeValue{Cluster: ClusterThermostat, Attr: AttrThermostatControlSequence, Value: ControlSequenceFromModes(modes)})

	// Humidity reporting rides on the thermostat endpoint with
	// documented fallbacks when the hub declares nothing.
	ep.AddCluster(ClusterHumidityMeasure)
	ep.SetDefault(AttributeValue{Cluster: ClusterHumidityMeasure, Attr: AttrMinMeasuredValue, Value: uint16(FallbackHumidityMin)})
	ep.SetDefault(AttributeValue{Cluster: ClusterHumidityMeasure, Attr: AttrMeasuredValue, Value: HumidityToMeasured(float64(FallbackHumiditySetpoint))})
	return ep
}

func updateClimate(e EntitySnapshot) []AttributeValue {
	heating := FallbackHeatingSetpoint
	cooling := FallbackCoolingSetpoint
	systemMode := SystemModeOff
	var local *int16

	if e.State != nil {
		attrs := e.State.Attributes

		if mode, ok := SystemModeFromHVAC(e.State.State); ok {
			systemMode = mode
		}
		if t, ok := attrs.Float("current_temperature"); ok {
			v := HundredthsFromCelsius(t)
			local = &v
		}

		// A declared single target drives both setpoints; a ranged mode
		// without explicit bounds falls back to the documented low/high
		// pair, a single-setpoint mode to the documented target.
		ranged := e.State.State == "heat_cool" || e.State.State == "auto"
		switch {
		case attrs.Has("temperature"):
			if t, ok := attrs.Float("temperature"); ok {
				heating = HundredthsFromCelsius(t)
				cooling = HundredthsFromCelsius(t)
			}
		case ranged:
			heating = FallbackHeatingSetpoint
			cooling = FallbackCoolingSetpoint
		default:
			heating = FallbackTargetSetpoint
			cooling = FallbackTargetSetpoint
		}
		if t, ok := attrs.Float("target_temp_low"); ok {
			heating = HundredthsFromCelsius(t)
		}
		if t, ok := attrs.Float("target_temp_high"); ok {
			cooling = HundredthsFromCelsius(t)
		}
	}

	out := []AttributeValue{
		{Cluster: ClusterThermostat, Attr: AttrThermostatSystemMode, Value: systemMode},
		{Cluster: ClusterThermostat, Attr: AttrThermostatOccupiedHeating, Value: heating},
		{Cluster: ClusterThermostat, Attr: AttrThermostatOccupiedCooling, Value: cooling},
	}
	if local != nil {
		out = append(out, AttributeValue{Cluster: ClusterThermostat, Attr: AttrThermostatLocalTemp, Value: *local})
	}
	if e.State != nil {
		if h, ok := e.State.Attributes.Float("current_humidity"); ok {
			out = append(out, AttributeValue{Cluster: ClusterHumidityMeasure, Attr: AttrMeasuredValue, Value: HumidityToMeasured(h)})
		}
	}
	return out
}

// ── Valve ────────────────────────────────────────────────────

// Valve current-state enum.
const (
	valveClosed        uint8 = 0
	valveOpen          uint8 = 1
	valveTransitioning uint8 = 2
)

func shapeValve(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeWaterValve)
	ep.AddCluster(ClusterValveConfigAndControl)
	ep.AddCommand(CmdOpen)
	ep.AddCommand(CmdClose)
	return ep
}

func updateValve(e EntitySnapshot) []AttributeValue {
	state := valveClosed
	if e.State != nil {
		switch e.State.State {
		case "open":
			state = valveOpen
		case "opening", "closing":
			state = valveTransitioning
		}
	}
	return []AttributeValue{{Cluster: ClusterValveConfigAndControl, Attr: AttrValveCurrentState, Value: state}}
}

// ── Vacuum ───────────────────────────────────────────────────

func shapeVacuum(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeRoboticVacuum)
	ep.AddCluster(ClusterRvcRunMode)
	ep.AddCluster(ClusterRvcOperationalState)
	ep.AddCommand(CmdVacuumResume)
	ep.AddCommand(CmdVacuumPause)
	ep.AddCommand(CmdVacuumGoHome)
	ep.AddCommand(CmdChangeRunMode)
	return ep
}

func updateVacuum(e EntitySnapshot) []AttributeValue {
	state := ""
	if e.State != nil {
		state = e.State.State
	}
	runMode, opState, _ := VacuumStates(state)
	return []AttributeValue{
		{Cluster: ClusterRvcRunMode, Attr: AttrRunModeCurrent, Value: runMode},
		{Cluster: ClusterRvcOperationalState, Attr: AttrOperationalState, Value: opState},
	}
}

// ── Passive: binary sensors ──────────────────────────────────

func shapeOccupancy(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeOccupancySensor)
	ep.AddCluster(ClusterOccupancySensing)
	return ep
}

func updateOccupancy(e EntitySnapshot) []AttributeValue {
	state := ""
	if e.State != nil {
		state = e.State.State
	}
	return []AttributeValue{{Cluster: ClusterOccupancySensing, Attr: AttrOccupancy, Value: OccupancyFromState(state)}}
}

// shapeBatteryFlag colocates a low-battery flag onto an endpoint that
// already carries a power source, or stands up its own.
func shapeBatteryFlag(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.FindEndpointWithCluster(ClusterPowerSource)
	if ep == nil {
		ep = s.Endpoint(e.Entity.EntityID)
	}
	ep.AddCluster(ClusterPowerSource)
	return ep
}

func updateBatteryFlag(e EntitySnapshot) []AttributeValue {
	level := BatChargeLevelOK
	if e.On() {
		level = BatChargeLevelWarning
	}
	return []AttributeValue{{Cluster: ClusterPowerSource, Attr: AttrBatChargeLevel, Value: level}}
}

func shapeContact(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeContactSensor)
	ep.AddCluster(ClusterBooleanState)
	return ep
}

func updateContact(e EntitySnapshot) []AttributeValue {
	state := ""
	if e.State != nil {
		state = e.State.State
	}
	return []AttributeValue{{Cluster: ClusterBooleanState, Attr: AttrBooleanStateValue, Value: ContactFromState(state)}}
}

// ── Passive: numeric sensors ─────────────────────────────────

func shapeTemperature(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeTemperatureSensor)
	ep.AddCluster(ClusterTemperatureMeasure)
	return ep
}

func updateTemperature(e EntitySnapshot) []AttributeValue {
	c, ok := stateFloat(e)
	if !ok {
		return nil
	}
	return []AttributeValue{{Cluster: ClusterTemperatureMeasure, Attr: AttrMeasuredValue, Value: HundredthsFromCelsius(c)}}
}

func shapeHumidity(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeHumiditySensor)
	ep.AddCluster(ClusterHumidityMeasure)
	return ep
}

func updateHumidity(e EntitySnapshot) []AttributeValue {
	h, ok := stateFloat(e)
	if !ok {
		return nil
	}
	return []AttributeValue{{Cluster: ClusterHumidityMeasure, Attr: AttrMeasuredValue, Value: HumidityToMeasured(h)}}
}

func shapeIlluminance(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeLightSensor)
	ep.AddCluster(ClusterIlluminanceMeasure)
	return ep
}

func updateIlluminance(e EntitySnapshot) []AttributeValue {
	lux, ok := stateFloat(e)
	if !ok {
		return nil
	}
	return []AttributeValue{{Cluster: ClusterIlluminanceMeasure, Attr: AttrMeasuredValue, Value: IlluminanceToMeasured(lux)}}
}

func shapeBattery(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.FindEndpointWithCluster(ClusterPowerSource)
	if ep == nil {
		ep = s.Endpoint(e.Entity.EntityID)
	}
	ep.AddCluster(ClusterPowerSource)
	return ep
}

func updateBattery(e EntitySnapshot) []AttributeValue {
	percent, ok := stateFloat(e)
	if !ok {
		return nil
	}
	remaining, level := BatteryLevels(percent, nil)
	return []AttributeValue{
		{Cluster: ClusterPowerSource, Attr: AttrBatPercentRemaining, Value: remaining},
		{Cluster: ClusterPowerSource, Attr: AttrBatChargeLevel, Value: level},
	}
}

// shapePower colocates an electrical-power cluster onto the device's
// primary switched endpoint. A power sensor with no switched sibling
// contributes nothing.
func shapePower(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.FindEndpointWithCluster(ClusterOnOff)
	if ep == nil {
		return nil
	}
	ep.AddCluster(ClusterElectricalPower)
	return ep
}

func updatePower(e EntitySnapshot) []AttributeValue {
	watts, ok := stateFloat(e)
	if !ok {
		return nil
	}
	// ActivePower is reported in milliwatts.
	return []AttributeValue{{Cluster: ClusterElectricalPower, Attr: AttrActivePower, Value: int64(watts * 1000)}}
}

func shapeEnergy(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.FindEndpointWithCluster(ClusterOnOff)
	if ep == nil {
		return nil
	}
	ep.AddCluster(ClusterElectricalEnergy)
	return ep
}

func updateEnergy(e EntitySnapshot) []AttributeValue {
	kwh, ok := stateFloat(e)
	if !ok {
		return nil
	}
	// Cumulative imported energy is reported in milliwatt-hours.
	return []AttributeValue{{Cluster: ClusterElectricalEnergy, Attr: AttrCumulativeEnergy, Value: int64(kwh * 1_000_000)}}
}

// ── Passive: stateless events ────────────────────────────────

func shapeEvent(e EntitySnapshot, s *Shape) *EndpointShape {
	ep := s.Endpoint(e.Entity.EntityID)
	ep.AddDeviceType(DeviceTypeGenericSwitch)
	ep.AddCluster(ClusterSwitch)
	ep.SetDefault(AttributeValue{Cluster: ClusterSwitch, Attr: AttrSwitchCurrentPosition, Value: uint8(0)})
	return ep
}

func updateEvent(e EntitySnapshot) []AttributeValue {
	// Event entities carry no persistent value; pushes surface as
	// momentary switch activity, which the runtime derives itself.
	return nil
}

// stateFloat parses the entity's primary state as a number. Unavailable
// or non-numeric states return false so the previous attribute value is
// left in place.
func stateFloat(e EntitySnapshot) (float64, bool) {
	if e.State == nil || e.State.Unavailable() {
		return 0, false
	}
	return parseFloat(e.State.State)
}
