package mqtt

import "fmt"

// Topic prefixes for the FanBridge MQTT surface.
//
// All device topics use the flat scheme: fanbridge/{category}/{serial}
const (
	// TopicPrefix is the base for all FanBridge topics.
	TopicPrefix = "fanbridge"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "fanbridge/system"
)

// Topics provides builders for FanBridge MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.FanState("1582290600a34f40")
//	// Returns: "fanbridge/state/1582290600a34f40"
type Topics struct{}

// FanState returns the topic for state updates of a fan.
// Messages on this topic are retained so new subscribers see the
// current state immediately.
//
// Example: fanbridge/state/1582290600a34f40
func (Topics) FanState(serial string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, serial)
}

// FanCommand returns the topic for commands to a fan.
//
// Example: fanbridge/command/1582290600a34f40
func (Topics) FanCommand(serial string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, serial)
}

// FanAck returns the topic for command acknowledgements of a fan.
//
// Example: fanbridge/ack/1582290600a34f40
func (Topics) FanAck(serial string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, serial)
}

// SystemStatus returns the system status topic.
// The LWT and graceful shutdown messages are published here.
//
// Example: fanbridge/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllFanCommands returns a pattern matching commands to any fan.
//
// Pattern: fanbridge/command/+
func (Topics) AllFanCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllFanStates returns a pattern matching state updates for any fan.
//
// Pattern: fanbridge/state/+
func (Topics) AllFanStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllTopics returns a pattern matching all FanBridge topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: fanbridge/#
func (Topics) AllTopics() string {
	return "fanbridge/#"
}
