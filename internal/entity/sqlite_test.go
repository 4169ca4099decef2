package entity

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/deye-ha-bridge/internal/discovery"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/database"
	"github.com/nerrad567/deye-ha-bridge/internal/sensor"

	_ "github.com/nerrad567/deye-ha-bridge/migrations" // Register embedded migrations
)

// openTestStore creates a migrated temp database and a store on it.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}

	return NewSQLiteStore(db.DB)
}

func testAnnouncement(uniqueID string) discovery.Announcement {
	return discovery.Announcement{
		Component:    "sensor",
		NodeID:       "deye_inverter_mqtt_123",
		ObjectID:     "dc_pv1_voltage",
		UniqueID:     uniqueID,
		Name:         "PV1 voltage",
		ConfigTopic:  "homeassistant/sensor/deye_inverter_mqtt_123/dc_pv1_voltage/config",
		StateTopic:   "deye/dc/pv1/voltage",
		DeviceClass:  "voltage",
		StateClass:   "measurement",
		Unit:         "V",
		LoggerSerial: "123",
		LoggerIndex:  0,
		Payload:      []byte(`{"name":"PV1 voltage"}`),
	}
}

// TestUpsertAnnouncement verifies insert-then-update semantics.
func TestUpsertAnnouncement(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	ann := testAnnouncement("deye_mqtt_inverter_123_pv1_voltage")

	if err := store.UpsertAnnouncement(ctx, ann, first); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	// Re-announce later with a changed payload
	later := first.Add(time.Hour)
	ann.Payload = []byte(`{"name":"PV1 voltage","force_update":true}`)
	if err := store.UpsertAnnouncement(ctx, ann, later); err != nil {
		t.Fatalf("second UpsertAnnouncement() error = %v", err)
	}

	rec, err := store.GetAnnouncement(ctx, ann.UniqueID)
	if err != nil {
		t.Fatalf("GetAnnouncement() error = %v", err)
	}

	if !rec.FirstAnnouncedAt.Equal(first) {
		t.Errorf("FirstAnnouncedAt = %v, want %v", rec.FirstAnnouncedAt, first)
	}
	if !rec.LastAnnouncedAt.Equal(later) {
		t.Errorf("LastAnnouncedAt = %v, want %v", rec.LastAnnouncedAt, later)
	}
	if string(rec.Payload) != string(ann.Payload) {
		t.Errorf("Payload = %s", rec.Payload)
	}
	if rec.DeviceClass != "voltage" || rec.Unit != "V" {
		t.Errorf("DeviceClass/Unit = %q/%q", rec.DeviceClass, rec.Unit)
	}
}

// TestGetAnnouncement_NotFound verifies ErrNotFound for unknown ids.
func TestGetAnnouncement_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetAnnouncement(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// TestListAnnouncements verifies listing and component filtering.
func TestListAnnouncements(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	sensorAnn := testAnnouncement("deye_mqtt_inverter_123_pv1_voltage")
	statusAnn := testAnnouncement("deye_mqtt_inverter_123_application_status")
	statusAnn.Component = "binary_sensor"
	statusAnn.ObjectID = "application_status"
	statusAnn.DeviceClass = "running"
	statusAnn.StateClass = ""
	statusAnn.Unit = ""

	for _, ann := range []discovery.Announcement{sensorAnn, statusAnn} {
		if err := store.UpsertAnnouncement(ctx, ann, now); err != nil {
			t.Fatalf("UpsertAnnouncement() error = %v", err)
		}
	}

	all, err := store.ListAnnouncements(ctx, "")
	if err != nil {
		t.Fatalf("ListAnnouncements() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(all) = %d, want 2", len(all))
	}
	// Ordered by unique id
	if all[0].UniqueID != "deye_mqtt_inverter_123_application_status" {
		t.Errorf("order wrong: first = %q", all[0].UniqueID)
	}

	sensors, err := store.ListAnnouncements(ctx, "sensor")
	if err != nil {
		t.Fatalf("ListAnnouncements(sensor) error = %v", err)
	}
	if len(sensors) != 1 || sensors[0].Component != "sensor" {
		t.Errorf("sensors = %+v", sensors)
	}

	count, err := store.CountAnnouncements(ctx)
	if err != nil {
		t.Fatalf("CountAnnouncements() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	// Empty state_class/unit round-trip as empty strings
	if sensors[0].StateClass != "measurement" {
		t.Errorf("StateClass = %q", sensors[0].StateClass)
	}
	binary, _ := store.GetAnnouncement(ctx, statusAnn.UniqueID)
	if binary.StateClass != "" || binary.Unit != "" {
		t.Errorf("binary StateClass/Unit = %q/%q", binary.StateClass, binary.Unit)
	}
}

// TestRecordObservationAndHistory verifies history recording and retrieval.
func TestRecordObservationAndHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ann := testAnnouncement("deye_mqtt_inverter_123_pv1_voltage")
	if err := store.UpsertAnnouncement(ctx, ann, time.Now().UTC()); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	base := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	for i, raw := range []string{"229.6", "230.1", "not-a-number"} {
		obs := sensor.NewObservation(0, "123", "dc/pv1/voltage", raw, base.Add(time.Duration(i)*time.Minute))
		if err := store.RecordObservation(ctx, ann.UniqueID, obs); err != nil {
			t.Fatalf("RecordObservation() error = %v", err)
		}
	}

	entries, err := store.GetHistory(ctx, ann.UniqueID, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}

	// Newest first
	if entries[0].Value != "not-a-number" {
		t.Errorf("newest = %q", entries[0].Value)
	}
	if entries[0].NumericValue != nil {
		t.Error("non-numeric payload should have nil NumericValue")
	}
	if entries[2].NumericValue == nil || *entries[2].NumericValue != 229.6 {
		t.Errorf("oldest NumericValue = %v", entries[2].NumericValue)
	}

	// Limit clamp
	limited, err := store.GetHistory(ctx, ann.UniqueID, 2)
	if err != nil {
		t.Fatalf("GetHistory(limit 2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limited len = %d, want 2", len(limited))
	}
}

// TestPruneHistory verifies old entries are deleted.
func TestPruneHistory(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ann := testAnnouncement("deye_mqtt_inverter_123_pv1_voltage")
	if err := store.UpsertAnnouncement(ctx, ann, time.Now().UTC()); err != nil {
		t.Fatalf("UpsertAnnouncement() error = %v", err)
	}

	old := sensor.NewObservation(0, "123", "dc/pv1/voltage", "229.6", time.Now().UTC().Add(-48*time.Hour))
	recent := sensor.NewObservation(0, "123", "dc/pv1/voltage", "230.0", time.Now().UTC())
	for _, obs := range []sensor.Observation{old, recent} {
		if err := store.RecordObservation(ctx, ann.UniqueID, obs); err != nil {
			t.Fatalf("RecordObservation() error = %v", err)
		}
	}

	deleted, err := store.PruneHistory(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("PruneHistory() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, err := store.GetHistory(ctx, ann.UniqueID, 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Value != "230.0" {
		t.Errorf("entries = %+v", entries)
	}

	if _, err := store.PruneHistory(ctx, 0); err == nil {
		t.Error("PruneHistory(0) should fail")
	}
}
