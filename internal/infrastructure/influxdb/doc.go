// Package influxdb provides InfluxDB connectivity for inverter telemetry.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, observation writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Inverter metric readings (power, voltage, energy, temperature)
//   - Logger availability transitions
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "deye",
//	    Bucket: "inverter",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write inverter readings
//	client.WriteObservation("2976053413", "ac/active_power", 1250.0)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This reduces network overhead when the upstream bridge
// publishes readings every few seconds.
package influxdb
