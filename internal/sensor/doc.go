// Package sensor describes the metric topics published by the upstream
// deye-inverter-mqtt bridge.
//
// The upstream bridge publishes one reading per topic, with the metric
// identified by the topic suffix below the configured prefix (for example
// "ac/l1/voltage" or "battery/soc"). This package maps known suffixes to
// display names and source units, and represents a single parsed reading
// as an Observation.
//
// Suffixes not in the catalog still get a humanised display name derived
// from the topic, so new upstream metrics appear in Home Assistant without
// a code change here.
package sensor
