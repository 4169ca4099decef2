package discovery

import "errors"

// Sentinel errors for discovery operations.
var (
	// ErrUnclassified indicates no device_class could be determined for a
	// metric topic. Such metrics are not announced.
	ErrUnclassified = errors.New("discovery: unable to determine device_class for topic")

	// ErrUnknownStrategy indicates an unsupported unique id strategy.
	ErrUnknownStrategy = errors.New("discovery: unknown unique id strategy")
)
