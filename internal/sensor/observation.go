package sensor

import (
	"strconv"
	"strings"
	"time"
)

// Observation is a single reading received from the upstream bridge.
type Observation struct {
	// LoggerIndex is the logger position the reading came from (0 for
	// single-logger installs).
	LoggerIndex int

	// LoggerSerial is the serial number of the logger, from configuration.
	LoggerSerial string

	// Suffix is the metric topic suffix, e.g. "ac/active_power".
	Suffix string

	// Raw is the payload exactly as published.
	Raw string

	// Value is the parsed numeric value. Only meaningful when Numeric is true.
	Value float64

	// Numeric reports whether Raw parsed as a number.
	Numeric bool

	// At is when the bridge received the reading.
	At time.Time
}

// NewObservation builds an Observation from a received payload,
// parsing the numeric value when possible.
func NewObservation(loggerIndex int, loggerSerial, suffix, raw string, at time.Time) Observation {
	obs := Observation{
		LoggerIndex:  loggerIndex,
		LoggerSerial: loggerSerial,
		Suffix:       suffix,
		Raw:          raw,
		At:           at,
	}
	obs.Value, obs.Numeric = ParseValue(raw)
	return obs
}

// ParseValue parses a metric payload as a float. The upstream bridge
// publishes plain decimal numbers; surrounding whitespace is tolerated.
func ParseValue(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
