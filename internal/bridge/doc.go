// Package bridge wires inverter MQTT traffic to Home Assistant discovery.
//
// The bridge subscribes to the whole deye-inverter-mqtt topic tree. For each
// metric reading it classifies the topic, announces the matching sensor
// entity to Home Assistant (retained, once per process unless the config
// changes) and records the observation in the entity store, InfluxDB and any
// registered live listeners.
//
// Status binary_sensors and the active power regulation number entity are
// announced on every (re)connect so Home Assistant restarts pick them up
// without waiting for inverter traffic.
package bridge
