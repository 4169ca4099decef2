package bridge

import "time"

// Event types emitted to live listeners.
const (
	EventAnnouncement = "announcement"
	EventObservation  = "observation"
)

// Event is a live notification about bridge activity. Announcement events
// fire when a discovery config is published; observation events fire for
// every recorded reading.
type Event struct {
	Type         string    `json:"type"`
	UniqueID     string    `json:"unique_id"`
	Component    string    `json:"component,omitempty"`
	Name         string    `json:"name,omitempty"`
	LoggerSerial string    `json:"logger_serial"`
	Metric       string    `json:"metric,omitempty"`
	Value        string    `json:"value,omitempty"`
	NumericValue *float64  `json:"numeric_value,omitempty"`
	At           time.Time `json:"at"`
}

// Listener receives bridge events. Listeners are invoked from the MQTT
// message handler and must not block.
type Listener func(Event)
