package mesh

import (
	"math"
	"strconv"

	"github.com/nerrad567/gray-logic-mesh/internal/hub"
)

// Translation constants.
const (
	// levelMin and levelMax bound the mesh level-control range. Level 0
	// is reserved; an on light always reports at least levelMin.
	levelMin = 1
	levelMax = 254

	// brightnessMax is the hub's 8-bit brightness ceiling.
	brightnessMax = 255

	// hueMax and satMax bound the mesh 8-bit hue/saturation encodings.
	hueMax = 254
	satMax = 254

	// hueDegrees is the hub hue circle in degrees.
	hueDegrees = 360

	// chromaticityScale converts CIE xy (0..1) to the mesh 16-bit
	// fixed-point encoding.
	chromaticityScale = 65536
	chromaticityMax   = 65279

	// defaultMinMireds and defaultMaxMireds are the colour-temperature
	// bounds assumed when the hub declares none.
	defaultMinMireds = 147
	defaultMaxMireds = 500

	// miredScale converts between Kelvin and mireds: mireds = 1e6 / K.
	miredScale = 1_000_000

	// batteryCriticalPercent and batteryWarningPercent split the battery
	// charge-level enum when no low/normal flag is declared.
	batteryCriticalPercent = 5
	batteryWarningPercent  = 15
)

// System-mode enum for the thermostat cluster.
const (
	SystemModeOff  uint8 = 0
	SystemModeAuto uint8 = 1
	SystemModeCool uint8 = 3
	SystemModeHeat uint8 = 4
	SystemModeFanOnly uint8 = 7
	SystemModeDry  uint8 = 8
)

// Control-sequence-of-operation enum for the thermostat cluster.
const (
	ControlSeqCoolingOnly        uint8 = 0
	ControlSeqHeatingOnly        uint8 = 2
	ControlSeqCoolingAndHeating  uint8 = 4
)

// Thermostat fallback setpoints, in hundredths of a degree, applied when
// the hub declares no explicit values.
const (
	FallbackTargetSetpoint  int16 = 2300
	FallbackHeatingSetpoint int16 = 2100
	FallbackCoolingSetpoint int16 = 2500
	FallbackHumidityMin     uint8 = 0
	FallbackHumiditySetpoint uint8 = 50
)

// Lock-state enum for the door-lock cluster.
const (
	LockStateNotFullyLocked uint8 = 0
	LockStateLocked         uint8 = 1
	LockStateUnlocked       uint8 = 2
)

// Operational-state enum for the vacuum operational-state cluster.
const (
	OpStateStopped        uint8 = 0x00
	OpStateRunning        uint8 = 0x01
	OpStatePaused         uint8 = 0x02
	OpStateError          uint8 = 0x03
	OpStateSeekingCharger uint8 = 0x40
	OpStateCharging       uint8 = 0x41
	OpStateDocked         uint8 = 0x42
)

// Run-mode enum for the vacuum run-mode cluster.
const (
	RunModeIdle     uint8 = 0
	RunModeCleaning uint8 = 1
)

// Battery charge-level enum for the power-source cluster.
const (
	BatChargeLevelOK       uint8 = 0
	BatChargeLevelWarning  uint8 = 1
	BatChargeLevelCritical uint8 = 2
)

// Fan airflow-direction enum.
const (
	AirflowForward uint8 = 0
	AirflowReverse uint8 = 1
)

// parseFloat parses a hub state string as a number.
func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// clampF bounds v to [lo, hi].
func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LevelFromBrightness converts hub brightness (0-255) to a mesh level
// (1-254). Zero brightness still yields the minimum level; on/off is
// carried by the on/off cluster, not by level.
func LevelFromBrightness(brightness float64) uint8 {
	b := clampF(brightness, 0, brightnessMax)
	level := math.Round(b * levelMax / brightnessMax)
	if level < levelMin {
		level = levelMin
	}
	return uint8(level)
}

// BrightnessFromLevel converts a mesh level (1-254) back to hub
// brightness (1-255). Consistent with LevelFromBrightness in both
// directions.
func BrightnessFromLevel(level uint8) uint8 {
	l := clampF(float64(level), levelMin, levelMax)
	b := math.Round(l * brightnessMax / levelMax)
	if b < 1 {
		b = 1
	}
	return uint8(b)
}

// HundredthsFromCelsius converts degrees Celsius to the mesh
// fixed-point hundredths encoding, clamped to the int16 range.
func HundredthsFromCelsius(celsius float64) int16 {
	v := math.Round(celsius * 100)
	return int16(clampF(v, math.MinInt16, math.MaxInt16))
}

// CelsiusFromHundredths converts the fixed-point hundredths encoding
// back to degrees Celsius.
func CelsiusFromHundredths(hundredths int16) float64 {
	return float64(hundredths) / 100
}

// MiredsFromKelvin converts colour temperature in Kelvin to mireds.
// Non-positive Kelvin degrades to the warm default bound.
func MiredsFromKelvin(kelvin float64) uint16 {
	if kelvin <= 0 {
		return defaultMaxMireds
	}
	m := math.Round(miredScale / kelvin)
	return uint16(clampF(m, 1, math.MaxUint16))
}

// KelvinFromMireds converts mireds back to Kelvin. Zero mireds degrades
// to the warm default bound.
func KelvinFromMireds(mireds uint16) float64 {
	if mireds == 0 {
		mireds = defaultMaxMireds
	}
	return math.Round(miredScale / float64(mireds))
}

// ColorTempBounds resolves a light's colour-temperature range in mireds
// from its attribute bag. Hub-declared Kelvin bounds take precedence,
// then mired bounds, then the documented defaults {147, 500}.
func ColorTempBounds(attrs hub.Attributes) (minMireds, maxMireds uint16) {
	minMireds, maxMireds = defaultMinMireds, defaultMaxMireds

	// Kelvin bounds invert: max Kelvin is min mireds.
	if maxK, ok := attrs.Float("max_color_temp_kelvin"); ok && maxK > 0 {
		minMireds = MiredsFromKelvin(maxK)
	} else if minM, ok := attrs.Float("min_mireds"); ok && minM > 0 {
		minMireds = uint16(clampF(minM, 1, math.MaxUint16))
	}

	if minK, ok := attrs.Float("min_color_temp_kelvin"); ok && minK > 0 {
		maxMireds = MiredsFromKelvin(minK)
	} else if maxM, ok := attrs.Float("max_mireds"); ok && maxM > 0 {
		maxMireds = uint16(clampF(maxM, 1, math.MaxUint16))
	}

	if minMireds > maxMireds {
		minMireds, maxMireds = defaultMinMireds, defaultMaxMireds
	}
	return minMireds, maxMireds
}

// HueFromDegrees converts hub hue (0-360°) to the mesh 8-bit encoding.
func HueFromDegrees(degrees float64) uint8 {
	d := math.Mod(clampF(degrees, 0, hueDegrees), hueDegrees)
	return uint8(math.Round(d * hueMax / hueDegrees))
}

// DegreesFromHue converts the mesh 8-bit hue back to degrees.
func DegreesFromHue(hue uint8) float64 {
	h := clampF(float64(hue), 0, hueMax)
	return math.Round(h * hueDegrees / hueMax)
}

// SaturationFromPercent converts hub saturation (0-100%) to the mesh
// 8-bit encoding.
func SaturationFromPercent(percent float64) uint8 {
	p := clampF(percent, 0, 100)
	return uint8(math.Round(p * satMax / 100))
}

// PercentFromSaturation converts the mesh 8-bit saturation back to a
// percentage.
func PercentFromSaturation(sat uint8) float64 {
	s := clampF(float64(sat), 0, satMax)
	return math.Round(s * 100 / satMax)
}

// ChromaticityToFixed converts a CIE xy component (0..1) to the mesh
// 16-bit fixed-point encoding.
func ChromaticityToFixed(component float64) uint16 {
	c := clampF(component, 0, 1)
	return uint16(clampF(math.Round(c*chromaticityScale), 0, chromaticityMax))
}

// ChromaticityFromFixed converts the 16-bit fixed-point encoding back
// to a CIE xy component.
func ChromaticityFromFixed(fixed uint16) float64 {
	return float64(fixed) / chromaticityScale
}

// PercentToPercent100ths converts a percentage to hundredths of a
// percent, as used by window-covering lift positions.
func PercentToPercent100ths(percent float64) uint16 {
	return uint16(math.Round(clampF(percent, 0, 100) * 100))
}

// LiftPercent100thsFromPosition converts the hub's cover position
// (100 = fully open) to the mesh lift encoding (0 = fully open).
func LiftPercent100thsFromPosition(position float64) uint16 {
	return PercentToPercent100ths(100 - clampF(position, 0, 100))
}

// PositionFromLiftPercent100ths converts a mesh lift position back to
// the hub's open-percentage convention.
func PositionFromLiftPercent100ths(lift uint16) float64 {
	pct := clampF(float64(lift)/100, 0, 100)
	return math.Round(100 - pct)
}

// HumidityToMeasured converts relative humidity (0-100%) to the mesh
// hundredths-of-a-percent measurement encoding.
func HumidityToMeasured(percent float64) uint16 {
	return PercentToPercent100ths(percent)
}

// IlluminanceToMeasured converts lux to the mesh logarithmic encoding:
// 10000·log10(lux) + 1, with 0 meaning "too low to measure".
func IlluminanceToMeasured(lux float64) uint16 {
	if lux <= 0 {
		return 0
	}
	v := math.Round(10000*math.Log10(lux)) + 1
	return uint16(clampF(v, 0, math.MaxUint16))
}

// BatteryLevels derives the power-source cluster pair from a battery
// percentage and an optional low/normal flag. The flag, when present,
// forces at least Warning; the percentage alone splits at the
// documented 5%/15% thresholds.
//
// Returns:
//   - remaining: half-percent units (2 × percent)
//   - chargeLevel: OK / Warning / Critical
func BatteryLevels(percent float64, low *bool) (remaining uint8, chargeLevel uint8) {
	p := clampF(percent, 0, 100)
	remaining = uint8(math.Round(p * 2))

	switch {
	case p <= batteryCriticalPercent:
		chargeLevel = BatChargeLevelCritical
	case p <= batteryWarningPercent || (low != nil && *low):
		chargeLevel = BatChargeLevelWarning
	default:
		chargeLevel = BatChargeLevelOK
	}
	return remaining, chargeLevel
}

// SystemModeFromHVAC maps a hub HVAC mode string onto the thermostat
// system-mode enum.
func SystemModeFromHVAC(mode string) (uint8, bool) {
	switch mode {
	case "off":
		return SystemModeOff, true
	case "heat_cool", "auto":
		return SystemModeAuto, true
	case "cool":
		return SystemModeCool, true
	case "heat":
		return SystemModeHeat, true
	case "fan_only":
		return SystemModeFanOnly, true
	case "dry":
		return SystemModeDry, true
	default:
		return SystemModeOff, false
	}
}

// HVACFromSystemMode maps a thermostat system-mode value back to the
// hub's HVAC mode vocabulary.
func HVACFromSystemMode(mode uint8) (string, bool) {
	switch mode {
	case SystemModeOff:
		return "off", true
	case SystemModeAuto:
		return "heat_cool", true
	case SystemModeCool:
		return "cool", true
	case SystemModeHeat:
		return "heat", true
	case SystemModeFanOnly:
		return "fan_only", true
	case SystemModeDry:
		return "dry", true
	default:
		return "", false
	}
}

// ControlSequenceFromModes derives the thermostat control sequence from
// the hub's declared HVAC mode list.
func ControlSequenceFromModes(modes []string) uint8 {
	var heat, cool bool
	for _, m := range modes {
		switch m {
		case "heat":
			heat = true
		case "cool":
			cool = true
		case "heat_cool", "auto":
			heat, cool = true, true
		}
	}
	switch {
	case heat && cool:
		return ControlSeqCoolingAndHeating
	case heat:
		return ControlSeqHeatingOnly
	default:
		return ControlSeqCoolingOnly
	}
}

// VacuumStates maps a hub vacuum state string onto the run-mode and
// operational-state pair. Unrecognised states degrade to the stopped
// pair with ok=false so the caller can log.
func VacuumStates(state string) (runMode, opState uint8, ok bool) {
	switch state {
	case "cleaning":
		return RunModeCleaning, OpStateRunning, true
	case "paused":
		return RunModeCleaning, OpStatePaused, true
	case "returning":
		return RunModeIdle, OpStateSeekingCharger, true
	case "docked":
		return RunModeIdle, OpStateDocked, true
	case "idle":
		return RunModeIdle, OpStateStopped, true
	case "error":
		return RunModeIdle, OpStateError, true
	default:
		return RunModeIdle, OpStateStopped, false
	}
}

// LockStateFromHub maps a hub lock state string onto the door-lock
// enum. Transitional states (locking, unlocking, jammed) report
// not-fully-locked.
func LockStateFromHub(state string) uint8 {
	switch state {
	case "locked":
		return LockStateLocked
	case "unlocked", "open":
		return LockStateUnlocked
	default:
		return LockStateNotFullyLocked
	}
}

// ContactFromState maps a hub opening-class binary state onto the
// boolean-state cluster: the hub reports "on" for open, the cluster
// reports true for contact closed.
func ContactFromState(state string) bool {
	return state != "on"
}

// OccupancyFromState maps a hub occupancy-class binary state onto the
// occupancy bitmap (bit 0 = occupied).
func OccupancyFromState(state string) uint8 {
	if state == "on" {
		return 1
	}
	return 0
}
