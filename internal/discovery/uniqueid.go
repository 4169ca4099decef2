package discovery

import "strings"

// uniqueIDPrefix is the historical prefix for entity unique ids.
//
// Do not change it: Home Assistant keys entities by unique id, and a changed
// prefix generates new entities while orphaning the old ones. Note that it
// intentionally differs from the node id prefix ("deye_inverter_mqtt").
const uniqueIDPrefix = "deye_mqtt_inverter"

// Unique id strategies. The "name" strategy reproduces the historical ids
// derived from the sensor display name; "topic" derives ids from the object
// id so sensor renames do not churn entities.
const (
	StrategyName  = "name"
	StrategyTopic = "topic"
)

// UniqueID returns the unique id for an entity under the given strategy.
//
// Parameters:
//   - strategy: StrategyName or StrategyTopic
//   - loggerSerial: Serial number of the logger the entity belongs to
//   - sensorName: Display name (used by StrategyName)
//   - objectID: Formatted object id (used by StrategyTopic)
//
// Returns:
//   - string: The unique id
//   - error: ErrUnknownStrategy for unrecognised strategies
func UniqueID(strategy, loggerSerial, sensorName, objectID string) (string, error) {
	switch strategy {
	case StrategyName, "":
		return nameUniqueID(loggerSerial, sensorName), nil
	case StrategyTopic:
		return uniqueIDPrefix + "_" + loggerSerial + "_" + objectID, nil
	default:
		return "", ErrUnknownStrategy
	}
}

// nameUniqueID reproduces the historical id scheme: prefix, serial and the
// sensor display name, lowercased with spaces replaced by underscores.
func nameUniqueID(loggerSerial, sensorName string) string {
	id := strings.ToLower(uniqueIDPrefix + "_" + loggerSerial + "_" + sensorName)
	return strings.ReplaceAll(id, " ", "_")
}
