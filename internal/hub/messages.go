package hub

import "encoding/json"

// Frame type discriminators used on the hub wire protocol.
const (
	msgTypeAuthRequired = "auth_required"
	msgTypeAuth         = "auth"
	msgTypeAuthOK       = "auth_ok"
	msgTypeAuthInvalid  = "auth_invalid"
	msgTypePing         = "ping"
	msgTypePong         = "pong"
	msgTypeResult       = "result"
	msgTypeEvent        = "event"

	msgTypeSubscribeEvents   = "subscribe_events"
	msgTypeUnsubscribeEvents = "unsubscribe_events"
	msgTypeCallService       = "call_service"
	msgTypeGetStates         = "get_states"

	msgTypeDeviceRegistryList = "config/device_registry/list"
	msgTypeEntityRegistryList = "config/entity_registry/list"
	msgTypeAreaRegistryList   = "config/area_registry/list"
	msgTypeLabelRegistryList  = "config/label_registry/list"
)

// Push event names delivered inside "event" frames.
const (
	EventStateChanged          = "state_changed"
	EventDeviceRegistryUpdated = "device_registry_updated"
	EventEntityRegistryUpdated = "entity_registry_updated"
	EventAreaRegistryUpdated   = "area_registry_updated"
	EventLabelRegistryUpdated  = "label_registry_updated"
	EventCallService           = "call_service"
)

// serverMessage is the inbound frame envelope. Only the fields relevant to
// the frame's type are populated; the rest unmarshal to zero values.
type serverMessage struct {
	ID      uint64          `json:"id"`
	Type    string          `json:"type"`
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *resultError    `json:"error"`
	Event   *PushEvent      `json:"event"`

	// Handshake fields.
	HubVersion string `json:"ha_version"`
	Message    string `json:"message"`
}

// resultError is the error object carried by a success=false result frame.
type resultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PushEvent is an asynchronous event pushed by the hub.
type PushEvent struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// StateChangedData is the payload of a state_changed push.
type StateChangedData struct {
	EntityID string `json:"entity_id"`
	OldState *State `json:"old_state"`
	NewState *State `json:"new_state"`
}
