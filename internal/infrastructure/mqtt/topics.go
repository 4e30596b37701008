package mqtt

import "fmt"

// Topic prefixes for the metricsink MQTT namespace.
//
// Sample traffic arrives on the metrics prefix, one publish per value
// list: metrics/samples or metrics/samples/{host} for per-host routing.
// Service lifecycle messages live under metricsink/system.
const (
	// TopicPrefixSamples is the base for inbound metric sample topics.
	TopicPrefixSamples = "metrics"

	// TopicPrefixSystem is the base for service lifecycle topics.
	TopicPrefixSystem = "metricsink/system"
)

// Topics provides builders for metricsink MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	sub := topics.AllSamples()
//	// Returns: "metrics/samples/#"
type Topics struct{}

// Samples returns the base topic for metric sample payloads.
//
// Example: metrics/samples
func (Topics) Samples() string {
	return fmt.Sprintf("%s/samples", TopicPrefixSamples)
}

// HostSamples returns the sample topic for a specific host.
//
// Example: metrics/samples/web01
func (Topics) HostSamples(host string) string {
	return fmt.Sprintf("%s/samples/%s", TopicPrefixSamples, host)
}

// AllSamples returns a pattern matching sample payloads from every host.
//
// Pattern: metrics/samples/#
func (Topics) AllSamples() string {
	return fmt.Sprintf("%s/samples/#", TopicPrefixSamples)
}

// SystemStatus returns the service status topic.
// Online and offline payloads are published here, retained.
//
// Example: metricsink/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: metricsink/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}
