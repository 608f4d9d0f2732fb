package hub

import (
	"encoding/json"
	"strings"
	"time"
)

// Device represents an entry in the hub's device registry: a grouping of
// one or more entities sharing physical hardware. Devices are created and
// replaced wholesale by registry snapshots; the bridge never mutates them.
type Device struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	NameByUser   *string  `json:"name_by_user"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	ViaDeviceID  *string  `json:"via_device_id"`
	AreaID       *string  `json:"area_id"`
	Labels       []string `json:"labels"`
	DisabledBy   *string  `json:"disabled_by"`
	EntryType    *string  `json:"entry_type"`
}

// DisplayName returns the user-assigned name when present, falling back to
// the integration-declared name.
func (d *Device) DisplayName() string {
	if d.NameByUser != nil && *d.NameByUser != "" {
		return *d.NameByUser
	}
	return d.Name
}

// Disabled reports whether the device is disabled in the hub registry.
func (d *Device) Disabled() bool {
	return d.DisabledBy != nil && *d.DisabledBy != ""
}

// IsService reports whether the registry marks this device as a service
// (a virtual helper rather than physical hardware).
func (d *Device) IsService() bool {
	return d.EntryType != nil && *d.EntryType == "service"
}

// Entity is the hub's atomic controllable or observable unit, identified
// by a domain-prefixed string such as "light.kitchen".
type Entity struct {
	EntityID     string   `json:"entity_id"`
	DeviceID     *string  `json:"device_id"`
	Name         *string  `json:"name"`
	OriginalName *string  `json:"original_name"`
	Platform     string   `json:"platform"`
	DisabledBy   *string  `json:"disabled_by"`
	HiddenBy     *string  `json:"hidden_by"`
	Category     *string  `json:"entity_category"`
	AreaID       *string  `json:"area_id"`
	Labels       []string `json:"labels"`
}

// Domain returns the category prefix of the entity id ("light" for
// "light.kitchen"). An id without a dot yields the whole id.
func (e *Entity) Domain() string {
	if i := strings.IndexByte(e.EntityID, '.'); i >= 0 {
		return e.EntityID[:i]
	}
	return e.EntityID
}

// ObjectID returns the part of the entity id after the domain prefix.
func (e *Entity) ObjectID() string {
	if i := strings.IndexByte(e.EntityID, '.'); i >= 0 {
		return e.EntityID[i+1:]
	}
	return ""
}

// Disabled reports whether the entity is disabled in the hub registry.
func (e *Entity) Disabled() bool {
	return e.DisabledBy != nil && *e.DisabledBy != ""
}

// DisplayName returns the best declared name for the entity: user name,
// then original integration name, then the object id.
func (e *Entity) DisplayName() string {
	if e.Name != nil && *e.Name != "" {
		return *e.Name
	}
	if e.OriginalName != nil && *e.OriginalName != "" {
		return *e.OriginalName
	}
	return e.ObjectID()
}

// State is the current value of an entity plus its free-form attribute
// bag. States are tied 1:1 to an entity by id and replaced wholesale on
// every push or refresh, never partially patched.
type State struct {
	EntityID    string     `json:"entity_id"`
	State       string     `json:"state"`
	Attributes  Attributes `json:"attributes"`
	LastChanged time.Time  `json:"last_changed"`
	LastUpdated time.Time  `json:"last_updated"`
}

// Unavailable reports whether the hub currently has no usable value for
// the entity.
func (s *State) Unavailable() bool {
	return s == nil || s.State == "unavailable" || s.State == "unknown" || s.State == ""
}

// Clone returns an independent copy of the state, including its attribute
// bag, so callers can hold it across registry replacements.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.Attributes = s.Attributes.clone()
	return &cpy
}

// FriendlyName returns the friendly_name attribute, or empty.
func (s *State) FriendlyName() string {
	if s == nil {
		return ""
	}
	name, _ := s.Attributes.String("friendly_name")
	return name
}

// Area is an entry in the hub's area registry.
type Area struct {
	AreaID string `json:"area_id"`
	Name   string `json:"name"`
}

// Label is an entry in the hub's label registry.
type Label struct {
	LabelID string `json:"label_id"`
	Name    string `json:"name"`
}

// Attributes is the loosely-typed attribute bag attached to a state.
// Values arrive as generic JSON types; the typed accessors below cover the
// long tail of optional attributes without per-domain structs.
type Attributes map[string]any

// Has reports whether the key is present, regardless of its type.
func (a Attributes) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the value as a string.
func (a Attributes) String(key string) (string, bool) {
	v, ok := a[key].(string)
	return v, ok
}

// Float returns the value as a float64, accepting any JSON numeric form.
func (a Attributes) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Int returns the value as an int, truncating fractional parts.
func (a Attributes) Int(key string) (int, bool) {
	f, ok := a.Float(key)
	return int(f), ok
}

// Bool returns the value as a bool.
func (a Attributes) Bool(key string) (bool, bool) {
	v, ok := a[key].(bool)
	return v, ok
}

// StringSlice returns the value as a slice of strings. Non-string elements
// are skipped. Returns nil when the key is absent or not a list.
func (a Attributes) StringSlice(key string) []string {
	raw, ok := a[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// FloatPair returns a two-element numeric list such as hs_color or
// xy_color.
func (a Attributes) FloatPair(key string) (first, second float64, ok bool) {
	raw, isList := a[key].([]any)
	if !isList || len(raw) < 2 {
		return 0, 0, false
	}
	f1, ok1 := toFloat(raw[0])
	f2, ok2 := toFloat(raw[1])
	if !ok1 || !ok2 {
		return 0, 0, false
	}
	return f1, f2, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func (a Attributes) clone() Attributes {
	if a == nil {
		return nil
	}
	cpy := make(Attributes, len(a))
	for k, v := range a {
		cpy[k] = v
	}
	return cpy
}
