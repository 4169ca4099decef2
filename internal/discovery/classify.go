package discovery

import (
	"regexp"
	"strings"
)

// ctTopicPattern matches current-transformer power topics: ac/l<N>/ct/internal
// and ac/l<N>/ct/external.
var ctTopicPattern = regexp.MustCompile(`^ac/l\d+/ct/(internal|external)`)

// DeviceClass returns the Home Assistant device_class for a metric topic
// suffix, or "" when the topic cannot be classified. Unclassifiable topics
// must not be announced.
//
// The mapping is ordered: the first matching rule wins.
func DeviceClass(suffix string) string {
	switch {
	// ac/l*/voltage, dc/pv*/voltage, battery/voltage
	case strings.HasSuffix(suffix, "/voltage"):
		return "voltage"

	// ac/l*/current, dc/pv*/current, battery/current
	case strings.HasSuffix(suffix, "/current"):
		return "current"

	// battery/(daily|total)_(charge|discharge), (day|total)_energy,
	// dc/pv*/(day|total)_energy, ac/(total_energy_bought|daily_energy_sold)
	case strings.HasSuffix(suffix, "_charge"),
		strings.HasSuffix(suffix, "_discharge"),
		strings.HasSuffix(suffix, "_energy"),
		strings.Contains(suffix, "_energy_"):
		return "energy"

	// ac/l*/ct/(internal|external)
	case ctTopicPattern.MatchString(suffix):
		return "power"

	// ac/active_power, ac/l*/power, dc/pv*/power, dc/total_power, operating_power
	case strings.HasSuffix(suffix, "power"):
		return "power"

	// ac/freq
	case strings.HasSuffix(suffix, "/freq"):
		return "frequency"

	case suffix == "battery/soc":
		return "battery"

	case suffix == "uptime":
		return "duration"

	// ac/temperature, battery/temperature, radiator_temp
	case strings.HasSuffix(suffix, "temperature"), suffix == "radiator_temp":
		return "temperature"
	}

	return ""
}

// StateClass returns the Home Assistant state_class for a metric topic
// suffix. Cumulative counters (energy, charge, uptime) are total_increasing;
// everything else is an instantaneous measurement.
func StateClass(suffix string) string {
	if strings.HasSuffix(suffix, "_charge") ||
		strings.HasSuffix(suffix, "_discharge") ||
		strings.HasSuffix(suffix, "_energy") ||
		suffix == "uptime" {
		return "total_increasing"
	}
	return "measurement"
}

// AdaptUnit maps units reported by the upstream bridge to the forms Home
// Assistant expects.
func AdaptUnit(unit string) string {
	if unit == "minutes" {
		return "min"
	}
	return unit
}

// FormatObjectID turns a metric topic suffix into a discovery object id:
// lowercased, path separators replaced with underscores, trimmed.
func FormatObjectID(suffix string) string {
	s := strings.ToLower(suffix)
	s = strings.ReplaceAll(s, "/", "_")
	return strings.TrimSpace(s)
}
