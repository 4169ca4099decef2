// Package discovery builds Home Assistant MQTT discovery announcements for
// inverter metrics published by the upstream deye-inverter-mqtt bridge.
//
// Home Assistant listens on <discovery_prefix>/<component>/<node_id>/<object_id>/config
// for retained JSON configs describing entities. This package classifies a
// metric topic suffix into a device_class and state_class, derives stable
// unique ids, and renders the config payloads for:
//   - sensor entities, one per metric topic
//   - binary_sensor status entities (bridge and logger availability)
//   - a number entity for active power regulation (feature-flagged)
//
// The unique id scheme is load-bearing: Home Assistant treats a changed
// unique id as a brand-new entity, orphaning the old one. The default
// "name" strategy keeps ids byte-compatible with existing installs; the
// "topic" strategy derives ids from the topic suffix instead so sensor
// renames do not churn entities.
package discovery
