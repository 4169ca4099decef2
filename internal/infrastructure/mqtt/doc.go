// Package mqtt provides the MQTT client for the Deye HA bridge.
//
// It wraps eclipse/paho.mqtt.golang with:
//
//   - Connection management and health checks
//   - Automatic reconnection with exponential backoff
//   - Subscription restoration after reconnect
//   - Last Will and Testament on the bridge's own status topic
//   - Panic-safe message handlers
//   - Topic builders for the Deye tree and the Home Assistant
//     discovery tree (see Topics)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{DeyePrefix: "deye", DiscoveryPrefix: "homeassistant"}
//	err = client.Subscribe(topics.AllMetrics(), 1, handleMessage)
//
// Thread Safety: all methods are safe for concurrent use.
package mqtt
