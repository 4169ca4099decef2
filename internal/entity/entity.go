package entity

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nerrad567/deye-ha-bridge/internal/discovery"
	"github.com/nerrad567/deye-ha-bridge/internal/sensor"
)

// ErrNotFound indicates the requested entity has not been announced.
var ErrNotFound = errors.New("entity: not found")

// Record is a persisted discovery announcement.
type Record struct {
	// UniqueID is the Home Assistant unique id, the primary key.
	UniqueID string `json:"unique_id"`

	// Component is the HA component type (sensor, binary_sensor, number).
	Component string `json:"component"`

	// NodeID groups the entity onto its logger's device page.
	NodeID string `json:"node_id"`

	// ObjectID is the formatted topic suffix used in the discovery topic.
	ObjectID string `json:"object_id"`

	// LoggerSerial and LoggerIndex identify the logger the entity belongs to.
	LoggerSerial string `json:"logger_serial"`
	LoggerIndex  int    `json:"logger_index"`

	// Name is the display name shown in Home Assistant.
	Name string `json:"name"`

	// StateTopic and ConfigTopic are the MQTT topics involved.
	StateTopic  string `json:"state_topic"`
	ConfigTopic string `json:"config_topic"`

	// DeviceClass, StateClass and Unit describe the entity semantics.
	// Empty for entities where they do not apply.
	DeviceClass string `json:"device_class,omitempty"`
	StateClass  string `json:"state_class,omitempty"`
	Unit        string `json:"unit,omitempty"`

	// Payload is the discovery config JSON exactly as published.
	Payload json.RawMessage `json:"payload"`

	// FirstAnnouncedAt and LastAnnouncedAt track announcement times (UTC).
	FirstAnnouncedAt time.Time `json:"first_announced_at"`
	LastAnnouncedAt  time.Time `json:"last_announced_at"`
}

// HistoryEntry is one persisted observation for an announced entity.
type HistoryEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// UniqueID links the entry to its announcement.
	UniqueID string `json:"unique_id"`

	// LoggerSerial identifies the source logger.
	LoggerSerial string `json:"logger_serial"`

	// Metric is the topic suffix of the reading.
	Metric string `json:"metric"`

	// Value is the raw payload as published.
	Value string `json:"value"`

	// NumericValue is set when the payload parsed as a number.
	NumericValue *float64 `json:"numeric_value,omitempty"`

	// ObservedAt is when the bridge received the reading (UTC).
	ObservedAt time.Time `json:"observed_at"`
}

// Store persists announcements and observation history.
//
// Implementations must be thread-safe and use UTC timestamps.
type Store interface {
	// UpsertAnnouncement records a discovery announcement, creating the row
	// on first announce and refreshing payload and last_announced_at after.
	UpsertAnnouncement(ctx context.Context, ann discovery.Announcement, at time.Time) error

	// GetAnnouncement returns one announced entity by unique id.
	// Returns ErrNotFound when the entity has not been announced.
	GetAnnouncement(ctx context.Context, uniqueID string) (Record, error)

	// ListAnnouncements returns announced entities ordered by unique id.
	// An empty component returns all entities.
	ListAnnouncements(ctx context.Context, component string) ([]Record, error)

	// CountAnnouncements returns the number of announced entities.
	CountAnnouncements(ctx context.Context) (int, error)

	// RecordObservation appends a reading to the entity's history.
	RecordObservation(ctx context.Context, uniqueID string, obs sensor.Observation) error

	// GetHistory returns recent readings for an entity, newest first.
	// The limit is clamped by the implementation.
	GetHistory(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error)

	// PruneHistory deletes history entries older than the given duration.
	// Returns the number of rows deleted.
	PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error)
}
