package mqtt

import (
	"fmt"
	"strconv"
	"strings"
)

// TopicBridgeStatus is the bridge's own availability topic. The Last Will
// and Testament is registered here so subscribers can tell a crashed bridge
// from a gracefully stopped one.
const TopicBridgeStatus = "deye_ha_bridge/status"

// Topics builds the MQTT topics the bridge consumes and produces.
//
// The Deye side follows the deye-inverter-mqtt layout:
//
//	<prefix>/<suffix>              single-logger installs (logger index 0)
//	<prefix>/<index>/<suffix>      loggers with index >= 1
//
// The Home Assistant side follows the MQTT discovery convention:
//
//	<discovery_prefix>/<component>/<node_id>/<object_id>/config
type Topics struct {
	// DeyePrefix is the upstream deye-inverter-mqtt topic prefix.
	DeyePrefix string

	// DiscoveryPrefix is the Home Assistant discovery topic prefix.
	DiscoveryPrefix string
}

// loggerSegment maps a logger index to its topic segment. Logger 0 publishes
// directly under the prefix.
func loggerSegment(index int) string {
	if index > 0 {
		return strconv.Itoa(index)
	}
	return ""
}

// Metric returns the state topic for a metric suffix of the given logger.
//
// Example: deye/dc/pv1/power, deye/2/battery/soc
func (t Topics) Metric(loggerIndex int, suffix string) string {
	if seg := loggerSegment(loggerIndex); seg != "" {
		return fmt.Sprintf("%s/%s/%s", t.DeyePrefix, seg, suffix)
	}
	return fmt.Sprintf("%s/%s", t.DeyePrefix, suffix)
}

// AllMetrics returns the wildcard subscription covering the whole Deye tree.
//
// Pattern: deye/#
func (t Topics) AllMetrics() string {
	return t.DeyePrefix + "/#"
}

// Status returns the upstream bridge availability topic. Discovery payloads
// reference it as availability_topic.
//
// Example: deye/status
func (t Topics) Status() string {
	return t.DeyePrefix + "/status"
}

// LoggerStatus returns the logger connectivity topic for the given logger.
//
// Example: deye/logger_status, deye/2/logger_status
func (t Topics) LoggerStatus(loggerIndex int) string {
	return t.Metric(loggerIndex, "logger_status")
}

// ActivePowerRegulationState returns the state topic of the active power
// regulation setting.
//
// Example: deye/settings/active_power_regulation
func (t Topics) ActivePowerRegulationState(loggerIndex int) string {
	return t.Metric(loggerIndex, "settings/active_power_regulation")
}

// ActivePowerRegulationCommand returns the command topic of the active power
// regulation setting. Commands are executed by the upstream bridge, not by
// this process.
//
// Example: deye/settings/active_power_regulation/command
func (t Topics) ActivePowerRegulationCommand(loggerIndex int) string {
	return t.ActivePowerRegulationState(loggerIndex) + "/command"
}

// DiscoveryConfig returns the Home Assistant discovery config topic for an
// entity.
//
// Example: homeassistant/sensor/deye_inverter_mqtt_123/dc_pv1_power/config
func (t Topics) DiscoveryConfig(component, nodeID, objectID string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", t.DiscoveryPrefix, component, nodeID, objectID)
}

// ParseMetric splits a topic from the Deye tree into logger index and metric
// suffix. It returns ok=false for topics outside the prefix and for the bare
// prefix itself.
//
//	deye/dc/pv1/power   -> 0, "dc/pv1/power", true
//	deye/2/battery/soc  -> 2, "battery/soc", true
//	other/topic         -> 0, "", false
func (t Topics) ParseMetric(topic string) (loggerIndex int, suffix string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.DeyePrefix+"/")
	if !found || rest == "" {
		return 0, "", false
	}

	// A leading all-digit segment addresses a logger in multi-logger installs.
	head, tail, hasTail := strings.Cut(rest, "/")
	if hasTail {
		if index, err := strconv.Atoi(head); err == nil && index > 0 {
			return index, tail, true
		}
	}
	return 0, rest, true
}
