package mesh

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nerrad567/gray-logic-mesh/internal/hub"
)

// errNoCall marks a command degraded to a logged no-op: the payload was
// incomplete or a value out of range. Never surfaced to callers.
var errNoCall = errors.New("mesh: no service call")

// Command vocabulary registered on sub-endpoints. Names follow the mesh
// cluster command names in snake_case.
const (
	CmdOn     = "on"
	CmdOff    = "off"
	CmdToggle = "toggle"

	CmdMoveToLevel          = "move_to_level"
	CmdMoveToLevelWithOnOff = "move_to_level_with_on_off"

	CmdMoveToColorTemp = "move_to_color_temperature"
	CmdMoveToHueSat    = "move_to_hue_and_saturation"
	CmdMoveToColor     = "move_to_color"

	CmdLock   = "lock"
	CmdUnlock = "unlock"

	CmdSetFanPercent       = "set_fan_percent"
	CmdSetAirflowDirection = "set_airflow_direction"
	CmdSetRock             = "set_rock"

	CmdCoverOpen     = "up_or_open"
	CmdCoverClose    = "down_or_close"
	CmdCoverStop     = "stop_motion"
	CmdCoverGoToLift = "go_to_lift_percentage"

	CmdSetSystemMode       = "set_system_mode"
	CmdSetHeatingSetpoint  = "set_heating_setpoint"
	CmdSetCoolingSetpoint  = "set_cooling_setpoint"

	CmdOpen  = "open"
	CmdClose = "close"

	CmdVacuumResume  = "resume"
	CmdVacuumPause   = "pause"
	CmdVacuumGoHome  = "go_home"
	CmdChangeRunMode = "change_run_mode"
)

// executeIfOffBit is the level-control options bit deciding whether a
// move-to-level command applies while the light is off.
const executeIfOffBit = 0x01

// ServiceCaller issues hub service calls. *hub.Client satisfies it.
type ServiceCaller interface {
	CallService(domain, service string, serviceData map[string]any, target *hub.ServiceTarget) error
}

// serviceCall is one resolved outbound hub call.
type serviceCall struct {
	domain  string
	service string
	data    map[string]any
}

// Router converts inbound mesh commands into hub service calls via the
// reverse translation path. Failed calls are logged, never retried, and
// never revert already-applied local attribute state; the next hub push
// carries the correction.
//
// The router holds one piece of state: levels from move-to-level
// commands received while a light is off without the execute-if-off
// option, deferred until the next "on" command for that entity.
type Router struct {
	caller ServiceCaller
	logger Logger

	mu            sync.Mutex
	deferredLevel map[string]uint8

	routed  atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewRouter creates a command router issuing calls through caller.
func NewRouter(caller ServiceCaller) *Router {
	return &Router{
		caller:        caller,
		logger:        noopLogger{},
		deferredLevel: make(map[string]uint8),
	}
}

// SetLogger sets the logger for the router.
func (r *Router) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// RouterStats reports routing counters.
type RouterStats struct {
	Routed  uint64 // commands converted into a service call
	Dropped uint64 // commands degraded to a logged no-op
	Failed  uint64 // service calls rejected by the hub
}

// Stats returns current routing counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		Routed:  r.routed.Load(),
		Dropped: r.dropped.Load(),
		Failed:  r.failed.Load(),
	}
}

// Route translates one command against the entity's last known
// capabilities and issues the resulting service call. A command name
// outside the entity's domain vocabulary returns ErrUnsupportedCommand;
// incomplete or out-of-range payloads degrade to a logged no-op. Call
// failures are logged and returned but never retried.
func (r *Router) Route(e EntitySnapshot, cmd Command) error {
	call, err := r.resolve(e, cmd)
	if err != nil {
		r.dropped.Add(1)
		if errors.Is(err, errNoCall) {
			return nil
		}
		return err
	}

	err = r.caller.CallService(call.domain, call.service, call.data,
		&hub.ServiceTarget{EntityID: []string{e.Entity.EntityID}})
	if err != nil {
		r.failed.Add(1)
		r.logger.Error("service call failed",
			"entity_id", e.Entity.EntityID, "command", cmd.Name,
			"service", call.domain+"."+call.service, "error", err)
		return err
	}

	r.routed.Add(1)
	r.logger.Debug("command routed",
		"entity_id", e.Entity.EntityID, "command", cmd.Name,
		"service", call.domain+"."+call.service)
	return nil
}

// resolve maps (entity domain, command) to a service call. A non-nil
// error means no call is issued; the reason has already been logged.
func (r *Router) resolve(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch e.Domain() {
	case "switch":
		return r.resolveOnOff(e, cmd, "switch")
	case "light":
		return r.resolveLight(e, cmd)
	case "lock":
		return r.resolveLock(e, cmd)
	case "fan":
		return r.resolveFan(e, cmd)
	case "cover":
		return r.resolveCover(e, cmd)
	case "climate":
		return r.resolveClimate(e, cmd)
	case "valve":
		return r.resolveValve(e, cmd)
	case "vacuum":
		return r.resolveVacuum(e, cmd)
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveOnOff(e EntitySnapshot, cmd Command, domain string) (serviceCall, error) {
	switch cmd.Name {
	case CmdOn:
		return serviceCall{domain: domain, service: "turn_on"}, nil
	case CmdOff:
		return serviceCall{domain: domain, service: "turn_off"}, nil
	case CmdToggle:
		return serviceCall{domain: domain, service: "toggle"}, nil
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveLight(e EntitySnapshot, cmd Command) (serviceCall, error) {
	entityID := e.Entity.EntityID

	switch cmd.Name {
	case CmdOn:
		data := map[string]any{}
		// A level deferred while the light was off rides along on the
		// next "on".
		r.mu.Lock()
		if level, ok := r.deferredLevel[entityID]; ok {
			delete(r.deferredLevel, entityID)
			data["brightness"] = BrightnessFromLevel(level)
		}
		r.mu.Unlock()
		return serviceCall{domain: "light", service: "turn_on", data: data}, nil

	case CmdOff:
		r.mu.Lock()
		delete(r.deferredLevel, entityID)
		r.mu.Unlock()
		return serviceCall{domain: "light", service: "turn_off"}, nil

	case CmdToggle:
		return serviceCall{domain: "light", service: "toggle"}, nil

	case CmdMoveToLevel, CmdMoveToLevelWithOnOff:
		levelF, ok := payloadFloat(cmd.Payload, "level")
		if !ok {
			r.warnPayload(e, cmd, "level")
			return serviceCall{}, errNoCall
		}
		level := uint8(clampF(levelF, levelMin, levelMax))

		executes := cmd.Name == CmdMoveToLevelWithOnOff || executeIfOff(cmd.Payload)
		if !e.On() && !executes {
			// Dropped while off: remember the level for the next "on".
			r.mu.Lock()
			r.deferredLevel[entityID] = level
			r.mu.Unlock()
			r.logger.Debug("level deferred while off", "entity_id", entityID, "level", level)
			return serviceCall{}, errNoCall
		}
		return serviceCall{domain: "light", service: "turn_on",
			data: map[string]any{"brightness": BrightnessFromLevel(level)}}, nil

	case CmdMoveToColorTemp:
		miredsF, ok := payloadFloat(cmd.Payload, "color_temperature_mireds")
		if !ok {
			r.warnPayload(e, cmd, "color_temperature_mireds")
			return serviceCall{}, errNoCall
		}
		kelvin := KelvinFromMireds(uint16(clampF(miredsF, 1, 65535)))
		return serviceCall{domain: "light", service: "turn_on",
			data: map[string]any{"color_temp_kelvin": int(kelvin)}}, nil

	case CmdMoveToHueSat:
		hueF, okH := payloadFloat(cmd.Payload, "hue")
		satF, okS := payloadFloat(cmd.Payload, "saturation")
		if !okH || !okS {
			r.warnPayload(e, cmd, "hue/saturation")
			return serviceCall{}, errNoCall
		}
		hue := DegreesFromHue(uint8(clampF(hueF, 0, hueMax)))
		sat := PercentFromSaturation(uint8(clampF(satF, 0, satMax)))
		return serviceCall{domain: "light", service: "turn_on",
			data: map[string]any{"hs_color": []float64{hue, sat}}}, nil

	case CmdMoveToColor:
		xF, okX := payloadFloat(cmd.Payload, "color_x")
		yF, okY := payloadFloat(cmd.Payload, "color_y")
		if !okX || !okY {
			r.warnPayload(e, cmd, "color_x/color_y")
			return serviceCall{}, errNoCall
		}
		x := ChromaticityFromFixed(uint16(clampF(xF, 0, chromaticityMax)))
		y := ChromaticityFromFixed(uint16(clampF(yF, 0, chromaticityMax)))
		return serviceCall{domain: "light", service: "turn_on",
			data: map[string]any{"xy_color": []float64{x, y}}}, nil

	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveLock(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch cmd.Name {
	case CmdLock:
		return serviceCall{domain: "lock", service: "lock"}, nil
	case CmdUnlock:
		return serviceCall{domain: "lock", service: "unlock"}, nil
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveFan(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch cmd.Name {
	case CmdOn:
		return serviceCall{domain: "fan", service: "turn_on"}, nil
	case CmdOff:
		return serviceCall{domain: "fan", service: "turn_off"}, nil
	case CmdSetFanPercent:
		pct, ok := payloadFloat(cmd.Payload, "percent")
		if !ok {
			r.warnPayload(e, cmd, "percent")
			return serviceCall{}, errNoCall
		}
		if pct <= 0 {
			return serviceCall{domain: "fan", service: "turn_off"}, nil
		}
		return serviceCall{domain: "fan", service: "set_percentage",
			data: map[string]any{"percentage": int(clampF(pct, 0, 100))}}, nil
	case CmdSetAirflowDirection:
		dirF, ok := payloadFloat(cmd.Payload, "direction")
		if !ok {
			r.warnPayload(e, cmd, "direction")
			return serviceCall{}, errNoCall
		}
		direction := "forward"
		switch uint8(dirF) {
		case AirflowForward:
		case AirflowReverse:
			direction = "reverse"
		default:
			r.warnRange(e, cmd, "direction", dirF)
			return serviceCall{}, errNoCall
		}
		return serviceCall{domain: "fan", service: "set_direction",
			data: map[string]any{"direction": direction}}, nil
	case CmdSetRock:
		rock, ok := cmd.Payload["rock"].(bool)
		if !ok {
			r.warnPayload(e, cmd, "rock")
			return serviceCall{}, errNoCall
		}
		return serviceCall{domain: "fan", service: "oscillate",
			data: map[string]any{"oscillating": rock}}, nil
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveCover(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch cmd.Name {
	case CmdCoverOpen:
		return serviceCall{domain: "cover", service: "open_cover"}, nil
	case CmdCoverClose:
		return serviceCall{domain: "cover", service: "close_cover"}, nil
	case CmdCoverStop:
		return serviceCall{domain: "cover", service: "stop_cover"}, nil
	case CmdCoverGoToLift:
		liftF, ok := payloadFloat(cmd.Payload, "lift_percent100ths")
		if !ok {
			r.warnPayload(e, cmd, "lift_percent100ths")
			return serviceCall{}, errNoCall
		}
		position := PositionFromLiftPercent100ths(uint16(clampF(liftF, 0, 10000)))
		return serviceCall{domain: "cover", service: "set_cover_position",
			data: map[string]any{"position": int(position)}}, nil
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveClimate(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch cmd.Name {
	case CmdSetSystemMode:
		modeF, ok := payloadFloat(cmd.Payload, "mode")
		if !ok {
			r.warnPayload(e, cmd, "mode")
			return serviceCall{}, errNoCall
		}
		hvac, ok := HVACFromSystemMode(uint8(modeF))
		if !ok {
			// Out-of-range enum on the reverse path converts to a no-op.
			r.warnRange(e, cmd, "mode", modeF)
			return serviceCall{}, errNoCall
		}
		return serviceCall{domain: "climate", service: "set_hvac_mode",
			data: map[string]any{"hvac_mode": hvac}}, nil

	case CmdSetHeatingSetpoint, CmdSetCoolingSetpoint:
		hundredthsF, ok := payloadFloat(cmd.Payload, "setpoint")
		if !ok {
			r.warnPayload(e, cmd, "setpoint")
			return serviceCall{}, errNoCall
		}
		celsius := CelsiusFromHundredths(int16(hundredthsF))

		// In a ranged (auto) mode the two setpoints address the low and
		// high bounds; otherwise both address the single target.
		key := "temperature"
		if e.State != nil && (e.State.State == "heat_cool" || e.State.State == "auto") {
			if cmd.Name == CmdSetHeatingSetpoint {
				key = "target_temp_low"
			} else {
				key = "target_temp_high"
			}
		}
		return serviceCall{domain: "climate", service: "set_temperature",
			data: map[string]any{key: celsius}}, nil

	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveValve(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch cmd.Name {
	case CmdOpen:
		return serviceCall{domain: "valve", service: "open_valve"}, nil
	case CmdClose:
		return serviceCall{domain: "valve", service: "close_valve"}, nil
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) resolveVacuum(e EntitySnapshot, cmd Command) (serviceCall, error) {
	switch cmd.Name {
	case CmdVacuumResume:
		return serviceCall{domain: "vacuum", service: "start"}, nil
	case CmdVacuumPause:
		return serviceCall{domain: "vacuum", service: "pause"}, nil
	case CmdVacuumGoHome:
		return serviceCall{domain: "vacuum", service: "return_to_base"}, nil
	case CmdChangeRunMode:
		modeF, ok := payloadFloat(cmd.Payload, "mode")
		if !ok {
			r.warnPayload(e, cmd, "mode")
			return serviceCall{}, errNoCall
		}
		switch uint8(modeF) {
		case RunModeCleaning:
			return serviceCall{domain: "vacuum", service: "start"}, nil
		case RunModeIdle:
			return serviceCall{domain: "vacuum", service: "stop"}, nil
		default:
			r.warnRange(e, cmd, "mode", modeF)
			return serviceCall{}, errNoCall
		}
	default:
		return serviceCall{}, r.warnUnsupported(e, cmd)
	}
}

func (r *Router) warnUnsupported(e EntitySnapshot, cmd Command) error {
	r.logger.Warn("unsupported command, no service call issued",
		"entity_id", e.Entity.EntityID, "domain", e.Domain(), "command", cmd.Name)
	return fmt.Errorf("%w: %s for domain %s", ErrUnsupportedCommand, cmd.Name, e.Domain())
}

func (r *Router) warnPayload(e EntitySnapshot, cmd Command, field string) {
	r.logger.Warn("command payload missing field, no service call issued",
		"entity_id", e.Entity.EntityID, "command", cmd.Name, "field", field)
}

func (r *Router) warnRange(e EntitySnapshot, cmd Command, field string, value float64) {
	r.logger.Warn("command value out of range, no service call issued",
		"entity_id", e.Entity.EntityID, "command", cmd.Name, "field", field, "value", value)
}

// executeIfOff reads the level-control options pair: the bit applies
// only where the mask selects it.
func executeIfOff(payload map[string]any) bool {
	mask, _ := payloadFloat(payload, "options_mask")
	override, _ := payloadFloat(payload, "options_override")
	return uint8(mask)&executeIfOffBit != 0 && uint8(override)&executeIfOffBit != 0
}

// payloadFloat reads a numeric payload field in any JSON numeric form.
func payloadFloat(payload map[string]any, key string) (float64, bool) {
	switch v := payload[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	default:
		return 0, false
	}
}
