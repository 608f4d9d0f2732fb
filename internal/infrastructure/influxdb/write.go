package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteEntityState records a translated entity state change.
//
// This is the primary method for recording bridge telemetry. Every state
// change that flows through the translation layer lands here with the raw
// hub state string and, where the state is numeric (sensors), its parsed
// value. The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - entityID: Hub entity identifier (e.g., "sensor.hallway_temperature")
//   - domain: Hub domain prefix (e.g., "sensor", "light")
//   - state: Raw hub state string (e.g., "on", "21.5")
//   - numeric: Parsed numeric value, nil for non-numeric states
//
// Example:
//
//	v := 21.5
//	client.WriteEntityState("sensor.hallway_temperature", "sensor", "21.5", &v)
//	client.WriteEntityState("light.kitchen", "light", "on", nil)
func (c *Client) WriteEntityState(entityID, domain, state string, numeric *float64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"state": state,
	}
	if numeric != nil {
		fields["value"] = *numeric
	}

	point := write.NewPoint(
		"entity_state",
		map[string]string{
			"entity_id": entityID,
			"domain":    domain,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats records a snapshot of bridge counters.
//
// Called periodically so connection health and translation throughput can
// be graphed alongside entity telemetry.
//
// Parameters:
//   - stats: Counter name to value (e.g., "frames_rx", "reconnects")
func (c *Client) WriteBridgeStats(stats map[string]interface{}) {
	if !c.IsConnected() || len(stats) == 0 {
		return
	}

	point := write.NewPoint("bridge_stats", nil, stats, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "bridge-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
