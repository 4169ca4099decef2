// Package entity persists the bridge's announced Home Assistant entities
// and a bounded observation history.
//
// The announcements table records what the bridge has told Home Assistant,
// including the exact JSON payload, and survives restarts so the diagnostics
// API can report the announced state without replaying MQTT traffic. The
// observation_history table keeps recent readings per entity for the history
// endpoint; InfluxDB holds the long-term series.
package entity
