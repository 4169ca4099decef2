package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/deye-ha-bridge/internal/discovery"
	"github.com/nerrad567/deye-ha-bridge/internal/sensor"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed entity store.
//
// Parameters:
//   - db: Open SQLite connection with the schema migrated
//
// Returns:
//   - *SQLiteStore: Store ready for use
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// UpsertAnnouncement records a discovery announcement.
//
// The first announce inserts the row; later announces refresh the payload,
// descriptive fields and last_announced_at while keeping first_announced_at.
func (s *SQLiteStore) UpsertAnnouncement(ctx context.Context, ann discovery.Announcement, at time.Time) error {
	if ann.UniqueID == "" {
		return fmt.Errorf("unique id is required")
	}

	ts := at.UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO announcements (
			unique_id, component, node_id, object_id,
			logger_serial, logger_index, name,
			state_topic, config_topic,
			device_class, state_class, unit,
			payload, first_announced_at, last_announced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(unique_id) DO UPDATE SET
			component = excluded.component,
			node_id = excluded.node_id,
			object_id = excluded.object_id,
			logger_serial = excluded.logger_serial,
			logger_index = excluded.logger_index,
			name = excluded.name,
			state_topic = excluded.state_topic,
			config_topic = excluded.config_topic,
			device_class = excluded.device_class,
			state_class = excluded.state_class,
			unit = excluded.unit,
			payload = excluded.payload,
			last_announced_at = excluded.last_announced_at`,
		ann.UniqueID, ann.Component, ann.NodeID, ann.ObjectID,
		ann.LoggerSerial, ann.LoggerIndex, ann.Name,
		ann.StateTopic, ann.ConfigTopic,
		nullable(ann.DeviceClass), nullable(ann.StateClass), nullable(ann.Unit),
		string(ann.Payload), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("upserting announcement: %w", err)
	}
	return nil
}

// GetAnnouncement returns one announced entity by unique id.
func (s *SQLiteStore) GetAnnouncement(ctx context.Context, uniqueID string) (Record, error) {
	if uniqueID == "" {
		return Record{}, fmt.Errorf("unique id is required")
	}

	row := s.db.QueryRowContext(ctx, selectAnnouncement+" WHERE unique_id = ?", uniqueID)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying announcement: %w", err)
	}
	return rec, nil
}

// ListAnnouncements returns announced entities ordered by unique id,
// optionally filtered by component.
func (s *SQLiteStore) ListAnnouncements(ctx context.Context, component string) ([]Record, error) {
	query := selectAnnouncement
	args := []interface{}{}
	if component != "" {
		query += " WHERE component = ?"
		args = append(args, component)
	}
	query += " ORDER BY unique_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying announcements: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning announcement: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating announcements: %w", err)
	}
	return records, nil
}

// CountAnnouncements returns the number of announced entities.
func (s *SQLiteStore) CountAnnouncements(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM announcements").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting announcements: %w", err)
	}
	return count, nil
}

// RecordObservation appends a reading to the entity's history.
func (s *SQLiteStore) RecordObservation(ctx context.Context, uniqueID string, obs sensor.Observation) error {
	if uniqueID == "" {
		return fmt.Errorf("unique id is required")
	}

	var numeric interface{}
	if obs.Numeric {
		numeric = obs.Value
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO observation_history (unique_id, logger_serial, metric, value, numeric_value, observed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uniqueID, obs.LoggerSerial, obs.Suffix, obs.Raw, numeric,
		obs.At.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting observation: %w", err)
	}
	return nil
}

// GetHistory returns recent readings for an entity, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - uniqueID: The entity's unique id
//   - limit: Maximum entries to return (default 50, max 200)
func (s *SQLiteStore) GetHistory(ctx context.Context, uniqueID string, limit int) ([]HistoryEntry, error) {
	if uniqueID == "" {
		return nil, fmt.Errorf("unique id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, unique_id, logger_serial, metric, value, numeric_value, observed_at
		 FROM observation_history
		 WHERE unique_id = ?
		 ORDER BY observed_at DESC, id DESC
		 LIMIT ?`,
		uniqueID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var entry HistoryEntry
		var numeric sql.NullFloat64
		var observedAt string

		if err := rows.Scan(&entry.ID, &entry.UniqueID, &entry.LoggerSerial,
			&entry.Metric, &entry.Value, &numeric, &observedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}

		if numeric.Valid {
			v := numeric.Float64
			entry.NumericValue = &v
		}

		entry.ObservedAt, err = time.Parse(time.RFC3339, observedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing observed_at: %w", err)
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes history entries older than the given duration.
func (s *SQLiteStore) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM observation_history WHERE observed_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

const selectAnnouncement = `SELECT unique_id, component, node_id, object_id,
	logger_serial, logger_index, name,
	state_topic, config_topic,
	device_class, state_class, unit,
	payload, first_announced_at, last_announced_at
	FROM announcements`

// scanRecord scans one announcement row via the given Scan function.
func scanRecord(scan func(dest ...interface{}) error) (Record, error) {
	var rec Record
	var deviceClass, stateClass, unit sql.NullString
	var payload, firstAt, lastAt string

	err := scan(&rec.UniqueID, &rec.Component, &rec.NodeID, &rec.ObjectID,
		&rec.LoggerSerial, &rec.LoggerIndex, &rec.Name,
		&rec.StateTopic, &rec.ConfigTopic,
		&deviceClass, &stateClass, &unit,
		&payload, &firstAt, &lastAt)
	if err != nil {
		return Record{}, err
	}

	rec.DeviceClass = deviceClass.String
	rec.StateClass = stateClass.String
	rec.Unit = unit.String
	rec.Payload = []byte(payload)

	rec.FirstAnnouncedAt, err = time.Parse(time.RFC3339, firstAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing first_announced_at: %w", err)
	}
	rec.LastAnnouncedAt, err = time.Parse(time.RFC3339, lastAt)
	if err != nil {
		return Record{}, fmt.Errorf("parsing last_announced_at: %w", err)
	}
	return rec, nil
}

// nullable maps an empty string to NULL for optional text columns.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
