package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/config"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/deye-ha-bridge/internal/sensor"
)

// componentPrefix forms discovery node ids and device identifiers.
// It intentionally differs from uniqueIDPrefix; both are historical and
// neither may change without orphaning entities in Home Assistant.
const componentPrefix = "deye_inverter_mqtt"

// Home Assistant component types announced by the bridge.
const (
	ComponentSensor       = "sensor"
	ComponentBinarySensor = "binary_sensor"
	ComponentNumber       = "number"
)

// Active power regulation slider bounds, in percent of rated power.
const (
	powerRegulationMin = 0
	powerRegulationMax = 120
)

// Announcement is a rendered discovery config ready to publish, with the
// fields the entity store and the diagnostics API care about broken out.
type Announcement struct {
	Component    string
	NodeID       string
	ObjectID     string
	UniqueID     string
	Name         string
	ConfigTopic  string
	StateTopic   string
	DeviceClass  string
	StateClass   string
	Unit         string
	LoggerSerial string
	LoggerIndex  int

	// Payload is the JSON published (retained) to ConfigTopic.
	Payload []byte
}

// Builder renders discovery announcements for a configured installation.
type Builder struct {
	topics       mqtt.Topics
	manufacturer string
	model        string
	swVersion    string
	expireAfter  int
	strategy     string
}

// NewBuilder creates a Builder from the bridge configuration.
//
// Parameters:
//   - topics: Topic builders for the Deye and discovery prefixes
//   - cfg: Loaded bridge configuration
//   - version: Bridge version, embedded in the device sw_version field
func NewBuilder(topics mqtt.Topics, cfg *config.Config, version string) *Builder {
	return &Builder{
		topics:       topics,
		manufacturer: cfg.Inverter.Manufacturer,
		model:        cfg.Inverter.Model,
		swVersion:    "deye-ha-bridge " + version,
		expireAfter:  cfg.Discovery.ExpireAfter,
		strategy:     cfg.Discovery.UniqueIDStrategy,
	}
}

// NodeID returns the discovery node id for a logger serial number.
func NodeID(loggerSerial string) string {
	return componentPrefix + "_" + loggerSerial
}

// device builds the shared device block for one logger.
func (b *Builder) device(lg config.LoggerConfig) Device {
	nodeID := NodeID(lg.SerialNumber)
	return Device{
		Identifiers:  []string{nodeID},
		Name:         b.manufacturer + " Inverter MQTT",
		Manufacturer: b.manufacturer,
		Model:        fmt.Sprintf("%s SN:%s", b.model, lg.SerialNumber),
		SerialNumber: lg.SerialNumber,
		SWVersion:    b.swVersion,
	}
}

// MetricSensor builds the sensor announcement for one metric topic.
//
// Parameters:
//   - lg: The logger the metric belongs to
//   - m: Catalog entry (or humanised fallback) for the metric
//
// Returns:
//   - Announcement: Rendered discovery config
//   - error: ErrUnclassified when no device_class matches the topic
func (b *Builder) MetricSensor(lg config.LoggerConfig, m sensor.Metric) (Announcement, error) {
	deviceClass := DeviceClass(m.Suffix)
	if deviceClass == "" {
		return Announcement{}, fmt.Errorf("%w: %s", ErrUnclassified, m.Suffix)
	}

	nodeID := NodeID(lg.SerialNumber)
	objectID := FormatObjectID(m.Suffix)

	uniqueID, err := UniqueID(b.strategy, lg.SerialNumber, m.Name, objectID)
	if err != nil {
		return Announcement{}, err
	}

	stateClass := StateClass(m.Suffix)
	unit := AdaptUnit(m.Unit)
	stateTopic := b.topics.Metric(lg.Index, m.Suffix)

	payload := SensorPayload{
		Name:              m.Name,
		UniqueID:          uniqueID,
		ForceUpdate:       true,
		DeviceClass:       deviceClass,
		StateClass:        stateClass,
		UnitOfMeasurement: unit,
		AvailabilityTopic: b.topics.Status(),
		StateTopic:        stateTopic,
		ExpireAfter:       b.expireAfter,
		Device:            b.device(lg),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Announcement{}, fmt.Errorf("marshalling sensor config: %w", err)
	}

	return Announcement{
		Component:    ComponentSensor,
		NodeID:       nodeID,
		ObjectID:     objectID,
		UniqueID:     uniqueID,
		Name:         m.Name,
		ConfigTopic:  b.topics.DiscoveryConfig(ComponentSensor, nodeID, objectID),
		StateTopic:   stateTopic,
		DeviceClass:  deviceClass,
		StateClass:   stateClass,
		Unit:         unit,
		LoggerSerial: lg.SerialNumber,
		LoggerIndex:  lg.Index,
		Payload:      raw,
	}, nil
}

// StatusSensors builds the diagnostic binary_sensor announcements for one
// logger: bridge availability and logger connectivity.
func (b *Builder) StatusSensors(lg config.LoggerConfig) ([]Announcement, error) {
	entities := []struct {
		name        string
		objectID    string
		deviceClass string
		stateTopic  string
	}{
		{"MQTT bridge", "application_status", "running", b.topics.Status()},
		{"Inverter logger", "logger_status", "connectivity", b.topics.LoggerStatus(lg.Index)},
	}

	announcements := make([]Announcement, 0, len(entities))
	for _, e := range entities {
		uniqueID, err := UniqueID(b.strategy, lg.SerialNumber, e.objectID, e.objectID)
		if err != nil {
			return nil, err
		}

		payload := BinarySensorPayload{
			Name:           e.name,
			DeviceClass:    e.deviceClass,
			EntityCategory: "diagnostic",
			ForceUpdate:    true,
			UniqueID:       uniqueID,
			StateTopic:     e.stateTopic,
			PayloadOn:      "online",
			PayloadOff:     "offline",
			Device:         b.device(lg),
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshalling binary_sensor config: %w", err)
		}

		nodeID := NodeID(lg.SerialNumber)
		announcements = append(announcements, Announcement{
			Component:    ComponentBinarySensor,
			NodeID:       nodeID,
			ObjectID:     e.objectID,
			UniqueID:     uniqueID,
			Name:         e.name,
			ConfigTopic:  b.topics.DiscoveryConfig(ComponentBinarySensor, nodeID, e.objectID),
			StateTopic:   e.stateTopic,
			DeviceClass:  e.deviceClass,
			LoggerSerial: lg.SerialNumber,
			LoggerIndex:  lg.Index,
			Payload:      raw,
		})
	}

	return announcements, nil
}

// ActivePowerRegulation builds the number announcement controlling inverter
// output power. The bridge only declares the command topic; the upstream
// bridge executes the commands.
func (b *Builder) ActivePowerRegulation(lg config.LoggerConfig) (Announcement, error) {
	const name = "Active Power Regulation"
	const objectID = "active_power_regulation"

	uniqueID, err := UniqueID(b.strategy, lg.SerialNumber, name, objectID)
	if err != nil {
		return Announcement{}, err
	}

	stateTopic := b.topics.ActivePowerRegulationState(lg.Index)

	payload := NumberPayload{
		Name:              name,
		UniqueID:          uniqueID,
		UnitOfMeasurement: "%",
		AvailabilityTopic: b.topics.Status(),
		Min:               powerRegulationMin,
		Max:               powerRegulationMax,
		Mode:              "slider",
		Step:              1,
		CommandTopic:      b.topics.ActivePowerRegulationCommand(lg.Index),
		StateTopic:        stateTopic,
		Device:            b.device(lg),
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return Announcement{}, fmt.Errorf("marshalling number config: %w", err)
	}

	nodeID := NodeID(lg.SerialNumber)
	return Announcement{
		Component:    ComponentNumber,
		NodeID:       nodeID,
		ObjectID:     objectID,
		UniqueID:     uniqueID,
		Name:         name,
		ConfigTopic:  b.topics.DiscoveryConfig(ComponentNumber, nodeID, objectID),
		StateTopic:   stateTopic,
		LoggerSerial: lg.SerialNumber,
		LoggerIndex:  lg.Index,
		Payload:      raw,
	}, nil
}
