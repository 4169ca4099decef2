package discovery

// Device is the shared device block embedded in every discovery payload.
// Home Assistant groups entities carrying the same identifiers onto one
// device page.
type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	SerialNumber string   `json:"serial_number"`
	SWVersion    string   `json:"sw_version"`
}

// SensorPayload is the discovery config for a sensor entity.
type SensorPayload struct {
	Name              string `json:"name"`
	UniqueID          string `json:"unique_id"`
	ForceUpdate       bool   `json:"force_update"`
	DeviceClass       string `json:"device_class"`
	StateClass        string `json:"state_class"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
	AvailabilityTopic string `json:"availability_topic"`
	StateTopic        string `json:"state_topic"`
	ExpireAfter       int    `json:"expire_after,omitempty"`
	Device            Device `json:"device"`
}

// BinarySensorPayload is the discovery config for a binary_sensor entity.
// Used for the bridge and logger status entities.
type BinarySensorPayload struct {
	Name           string `json:"name"`
	DeviceClass    string `json:"device_class"`
	EntityCategory string `json:"entity_category"`
	ForceUpdate    bool   `json:"force_update"`
	UniqueID       string `json:"unique_id"`
	StateTopic     string `json:"state_topic"`
	PayloadOn      string `json:"payload_on"`
	PayloadOff     string `json:"payload_off"`
	Device         Device `json:"device"`
}

// NumberPayload is the discovery config for a number entity.
// Used for active power regulation.
type NumberPayload struct {
	Name              string `json:"name"`
	UniqueID          string `json:"unique_id"`
	UnitOfMeasurement string `json:"unit_of_measurement"`
	AvailabilityTopic string `json:"availability_topic"`
	Min               int    `json:"min"`
	Max               int    `json:"max"`
	Mode              string `json:"mode"`
	Step              int    `json:"step"`
	CommandTopic      string `json:"command_topic"`
	StateTopic        string `json:"state_topic"`
	Device            Device `json:"device"`
}
