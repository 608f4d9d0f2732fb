package mqtt

import "fmt"

// Topic prefixes for the Gray Logic Mesh state mirror.
//
// All topics use the flat scheme: graymesh/{category}/{id}
const (
	// TopicPrefix is the base for all bridge topics.
	TopicPrefix = "graymesh"

	// TopicPrefixState is the base for mirrored entity state topics.
	TopicPrefixState = "graymesh/state"

	// TopicPrefixCommand is the base for inbound entity command topics.
	TopicPrefixCommand = "graymesh/command"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "graymesh/system"
)

// Topics provides builders for Gray Logic Mesh MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.EntityState("light.living_room")
//	// Returns: "graymesh/state/light.living_room"
type Topics struct{}

// EntityState returns the topic for a mirrored entity state.
//
// The payload on this topic is the entity's current hub state as JSON,
// published retained so late subscribers see the latest value.
//
// Example: graymesh/state/light.living_room
func (Topics) EntityState(entityID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixState, entityID)
}

// EntityCommand returns the topic observers publish commands on for an
// entity.
//
// The payload names the command and carries its fields as JSON:
// {"command": "move_to_level", "payload": {"level": 128}}.
//
// Example: graymesh/command/light.living_room
func (Topics) EntityCommand(entityID string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixCommand, entityID)
}

// AllEntityCommands returns a pattern matching all entity command topics.
//
// Pattern: graymesh/command/+
func (Topics) AllEntityCommands() string {
	return fmt.Sprintf("%s/+", TopicPrefixCommand)
}

// SystemStatus returns the bridge status topic.
//
// Carries "online", "degraded" (hub connection lost) or "offline",
// published retained. The Last Will on this topic reports unexpected
// disconnects.
//
// Example: graymesh/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemStats returns the topic for periodic bridge statistics.
//
// Example: graymesh/system/stats
func (Topics) SystemStats() string {
	return fmt.Sprintf("%s/stats", TopicPrefixSystem)
}

// AllEntityStates returns a pattern matching all mirrored entity states.
//
// Pattern: graymesh/state/+
func (Topics) AllEntityStates() string {
	return fmt.Sprintf("%s/+", TopicPrefixState)
}

// AllTopics returns a pattern matching all Gray Logic Mesh topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: graymesh/#
func (Topics) AllTopics() string {
	return "graymesh/#"
}
