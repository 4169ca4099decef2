// Package config loads and validates the Deye HA bridge configuration.
//
// Configuration comes from three layers, later layers overriding earlier
// ones:
//
//  1. Hardcoded defaults
//  2. The YAML config file (configs/config.yaml by default)
//  3. Environment variables
//
// # Environment variables
//
// Native overrides use the DEYEBRIDGE_SECTION_KEY pattern, e.g.
// DEYEBRIDGE_MQTT_HOST or DEYEBRIDGE_DATABASE_PATH.
//
// The variables documented by the original deye_plugin_ha_discovery plugin
// are accepted too, so a docker-compose file written for the plugin keeps
// working:
//
//	DEYE_HA_PLUGIN_HA_MQTT_PREFIX
//	DEYE_HA_PLUGIN_INVERTER_MANUFACTURER
//	DEYE_HA_PLUGIN_INVERTER_MODEL
//	DEYE_HA_PLUGIN_IGNORE_TOPIC_PATTERNS   (colon-separated globs)
//	DEYE_HA_PLUGIN_EXPIRE_AFTER
//	DEYE_HA_PLUGIN_UNIQUE_ID_STRATEGY
//	DEYE_FEATURE_ACTIVE_POWER_REGULATION
//
// Quotation marks around manufacturer/model values are stripped rather than
// rejected; they are a common docker-compose quoting mistake.
package config
