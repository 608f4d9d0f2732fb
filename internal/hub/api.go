package hub

import (
	"encoding/json"
	"fmt"
)

// Typed wrappers over the raw Send call. Each helper issues one request
// and decodes the result payload; transport and request errors pass
// through unchanged.

// States fetches the current state of every entity.
func (c *Client) States() ([]State, error) {
	raw, err := c.Send(msgTypeGetStates, nil)
	if err != nil {
		return nil, err
	}
	var states []State
	if err := json.Unmarshal(raw, &states); err != nil {
		return nil, fmt.Errorf("hub: decode states: %w", err)
	}
	return states, nil
}

// DeviceRegistry fetches the full device registry.
func (c *Client) DeviceRegistry() ([]Device, error) {
	raw, err := c.Send(msgTypeDeviceRegistryList, nil)
	if err != nil {
		return nil, err
	}
	var devices []Device
	if err := json.Unmarshal(raw, &devices); err != nil {
		return nil, fmt.Errorf("hub: decode device registry: %w", err)
	}
	return devices, nil
}

// EntityRegistry fetches the full entity registry.
func (c *Client) EntityRegistry() ([]Entity, error) {
	raw, err := c.Send(msgTypeEntityRegistryList, nil)
	if err != nil {
		return nil, err
	}
	var entities []Entity
	if err := json.Unmarshal(raw, &entities); err != nil {
		return nil, fmt.Errorf("hub: decode entity registry: %w", err)
	}
	return entities, nil
}

// Areas fetches the full area registry.
func (c *Client) Areas() ([]Area, error) {
	raw, err := c.Send(msgTypeAreaRegistryList, nil)
	if err != nil {
		return nil, err
	}
	var areas []Area
	if err := json.Unmarshal(raw, &areas); err != nil {
		return nil, fmt.Errorf("hub: decode area registry: %w", err)
	}
	return areas, nil
}

// Labels fetches the full label registry.
func (c *Client) Labels() ([]Label, error) {
	raw, err := c.Send(msgTypeLabelRegistryList, nil)
	if err != nil {
		return nil, err
	}
	var labels []Label
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("hub: decode label registry: %w", err)
	}
	return labels, nil
}

// ServiceTarget addresses a service call at specific entities.
type ServiceTarget struct {
	EntityID []string `json:"entity_id,omitempty"`
}

// CallService invokes a hub service such as "light.turn_on". serviceData
// carries domain-specific parameters and may be nil; target scopes the
// call to specific entities.
func (c *Client) CallService(domain, service string, serviceData map[string]any, target *ServiceTarget) error {
	payload := map[string]any{
		"domain":  domain,
		"service": service,
	}
	if len(serviceData) > 0 {
		payload["service_data"] = serviceData
	}
	if target != nil {
		payload["target"] = target
	}
	_, err := c.Send(msgTypeCallService, payload)
	return err
}
