package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteObservation writes a single inverter reading to InfluxDB.
//
// This is the primary method for recording inverter telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - loggerSerial: Serial number of the logger that produced the reading
//   - metric: The metric topic suffix (e.g., "ac/active_power", "battery/soc")
//   - value: The numeric value parsed from the MQTT payload
//
// Example:
//
//	client.WriteObservation("2976053413", "ac/active_power", 1250.0)
//	client.WriteObservation("2976053413", "battery/soc", 87.0)
func (c *Client) WriteObservation(loggerSerial string, metric string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"inverter_metrics",
		map[string]string{
			"logger_serial": loggerSerial,
			"metric":        metric,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteLoggerStatus records a logger availability transition.
//
// Used to build uptime series alongside the metric data. The status field
// is 1 for online, 0 for offline.
//
// Parameters:
//   - loggerSerial: Serial number of the logger
//   - online: Whether the logger is reachable
func (c *Client) WriteLoggerStatus(loggerSerial string, online bool) {
	if !c.IsConnected() {
		return
	}

	status := 0
	if online {
		status = 1
	}

	point := write.NewPoint(
		"logger_status",
		map[string]string{
			"logger_serial": loggerSerial,
		},
		map[string]interface{}{
			"online": status,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("bridge_stats",
//	    map[string]string{"host": "bridge-01"},
//	    map[string]interface{}{"messages_total": 4512, "entities": 38})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
