package bridge

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/deye-ha-bridge/internal/discovery"
	"github.com/nerrad567/deye-ha-bridge/internal/entity"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/config"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/deye-ha-bridge/internal/sensor"
)

// fakeMQTT records published messages and captures the subscription handler.
type fakeMQTT struct {
	mu        sync.Mutex
	published map[string][][]byte
	handler   mqtt.MessageHandler
	onConnect func()
	subscribeTopic string
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{published: make(map[string][][]byte)}
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribeTopic = topic
	f.handler = handler
	return nil
}

func (f *fakeMQTT) Unsubscribe(topic string) error { return nil }

func (f *fakeMQTT) PublishRetained(topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = append(f.published[topic], payload)
	return nil
}

func (f *fakeMQTT) SetOnConnect(callback func()) { f.onConnect = callback }
func (f *fakeMQTT) IsConnected() bool            { return true }

func (f *fakeMQTT) publishCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published[topic])
}

func (f *fakeMQTT) topicsPublished() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]string, 0, len(f.published))
	for t := range f.published {
		topics = append(topics, t)
	}
	return topics
}

// fakeStore is an in-memory entity.Store.
type fakeStore struct {
	mu            sync.Mutex
	announcements map[string]discovery.Announcement
	observations  []sensor.Observation
}

func newFakeStore() *fakeStore {
	return &fakeStore{announcements: make(map[string]discovery.Announcement)}
}

func (s *fakeStore) UpsertAnnouncement(_ context.Context, ann discovery.Announcement, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announcements[ann.UniqueID] = ann
	return nil
}

func (s *fakeStore) GetAnnouncement(_ context.Context, uniqueID string) (entity.Record, error) {
	return entity.Record{}, entity.ErrNotFound
}

func (s *fakeStore) ListAnnouncements(_ context.Context, _ string) ([]entity.Record, error) {
	return nil, nil
}

func (s *fakeStore) CountAnnouncements(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.announcements), nil
}

func (s *fakeStore) RecordObservation(_ context.Context, _ string, obs sensor.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observations = append(s.observations, obs)
	return nil
}

func (s *fakeStore) GetHistory(_ context.Context, _ string, _ int) ([]entity.HistoryEntry, error) {
	return nil, nil
}

func (s *fakeStore) PruneHistory(_ context.Context, _ time.Duration) (int64, error) { return 0, nil }

func (s *fakeStore) observationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observations)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.MQTT.TopicPrefix = "deye"
	cfg.MQTT.QoS = 1
	cfg.Inverter.Manufacturer = "Deye"
	cfg.Inverter.Model = "SUN-5K"
	cfg.Inverter.Loggers = []config.LoggerConfig{{Index: 0, SerialNumber: "123"}}
	cfg.Discovery.Prefix = "homeassistant"
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "text"
	return cfg
}

func newTestBridge(t *testing.T, cfg *config.Config) (*Bridge, *fakeMQTT, *fakeStore) {
	t.Helper()
	client := newFakeMQTT()
	store := newFakeStore()
	log := logging.New(cfg.Logging, "test")
	b := New(cfg, log, client, store, nil, "test")
	return b, client, store
}

// TestStart verifies status entities are announced and the subscription made.
func TestStart(t *testing.T) {
	b, client, store := newTestBridge(t, testConfig())

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if client.subscribeTopic != "deye/#" {
		t.Errorf("subscription = %q, want deye/#", client.subscribeTopic)
	}

	// Two diagnostic binary_sensors, no number entity by default
	topics := client.topicsPublished()
	if len(topics) != 2 {
		t.Fatalf("published to %d topics, want 2: %v", len(topics), topics)
	}
	for _, topic := range topics {
		if !strings.HasPrefix(topic, "homeassistant/binary_sensor/deye_inverter_mqtt_123/") {
			t.Errorf("unexpected discovery topic %q", topic)
		}
	}

	count, _ := store.CountAnnouncements(context.Background())
	if count != 2 {
		t.Errorf("persisted announcements = %d, want 2", count)
	}
}

// TestStart_ActivePowerRegulation verifies the feature-flagged number entity.
func TestStart_ActivePowerRegulation(t *testing.T) {
	cfg := testConfig()
	cfg.Discovery.ActivePowerRegulation = true
	b, client, _ := newTestBridge(t, cfg)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := "homeassistant/number/deye_inverter_mqtt_123/active_power_regulation/config"
	if client.publishCount(want) != 1 {
		t.Errorf("number entity not announced on %q", want)
	}
}

// TestHandleMessage verifies the full path from metric message to
// announcement, observation and event.
func TestHandleMessage(t *testing.T) {
	b, client, store := newTestBridge(t, testConfig())

	var events []Event
	b.AddListener(func(e Event) { events = append(events, e) })

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := client.handler("deye/dc/pv1/voltage", []byte("229.6")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	configTopic := "homeassistant/sensor/deye_inverter_mqtt_123/dc_pv1_voltage/config"
	if client.publishCount(configTopic) != 1 {
		t.Fatalf("discovery config not published to %q", configTopic)
	}
	if store.observationCount() != 1 {
		t.Errorf("observations = %d, want 1", store.observationCount())
	}

	// One observation event (announcement events also fire, ignore type here)
	var obsEvents int
	for _, e := range events {
		if e.Type == EventObservation {
			obsEvents++
			if e.NumericValue == nil || *e.NumericValue != 229.6 {
				t.Errorf("NumericValue = %v", e.NumericValue)
			}
		}
	}
	if obsEvents != 1 {
		t.Errorf("observation events = %d, want 1", obsEvents)
	}

	// A second reading must not re-announce
	if err := client.handler("deye/dc/pv1/voltage", []byte("230.0")); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if client.publishCount(configTopic) != 1 {
		t.Errorf("duplicate announcement published")
	}
	if store.observationCount() != 2 {
		t.Errorf("observations = %d, want 2", store.observationCount())
	}

	stats := b.Stats()
	if stats.MessagesReceived != 2 {
		t.Errorf("MessagesReceived = %d", stats.MessagesReceived)
	}
	if stats.AnnouncementsSent != 3 { // 2 status + 1 sensor
		t.Errorf("AnnouncementsSent = %d", stats.AnnouncementsSent)
	}
}

// TestHandleMessage_InternalTopics verifies bridge surface topics are skipped.
func TestHandleMessage_InternalTopics(t *testing.T) {
	b, client, store := newTestBridge(t, testConfig())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := len(client.topicsPublished())

	for _, topic := range []string{
		"deye/status",
		"deye/logger_status",
		"deye/settings/active_power_regulation",
		"deye/settings/active_power_regulation/command",
	} {
		if err := client.handler(topic, []byte("online")); err != nil {
			t.Fatalf("handler(%q) error = %v", topic, err)
		}
	}

	if len(client.topicsPublished()) != before {
		t.Error("internal topics triggered announcements")
	}
	if store.observationCount() != 0 {
		t.Error("internal topics recorded observations")
	}
}

// TestHandleMessage_IgnorePatterns verifies ignored suffixes are skipped.
func TestHandleMessage_IgnorePatterns(t *testing.T) {
	cfg := testConfig()
	cfg.Discovery.IgnorePatterns = []string{"uptime", "ac/*"}
	b, client, store := newTestBridge(t, cfg)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	before := len(client.topicsPublished())

	for _, topic := range []string{"deye/uptime", "deye/ac/l1/voltage"} {
		if err := client.handler(topic, []byte("1")); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}

	if len(client.topicsPublished()) != before {
		t.Error("ignored topics were announced")
	}
	if store.observationCount() != 0 {
		t.Error("ignored topics recorded observations")
	}
	if got := b.Stats().TopicsIgnored; got != 2 {
		t.Errorf("TopicsIgnored = %d, want 2", got)
	}
}

// TestHandleMessage_Unclassified verifies unclassifiable topics are skipped
// and counted.
func TestHandleMessage_Unclassified(t *testing.T) {
	b, client, store := newTestBridge(t, testConfig())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := client.handler("deye/some/unknown", []byte("1")); err != nil {
			t.Fatalf("handler error = %v", err)
		}
	}

	if store.observationCount() != 0 {
		t.Error("unclassified topic recorded observations")
	}
	if got := b.Stats().TopicsUnclassified; got != 3 {
		t.Errorf("TopicsUnclassified = %d, want 3", got)
	}
}

// TestHandleMessage_UnknownLogger verifies messages from unconfigured
// loggers are dropped.
func TestHandleMessage_UnknownLogger(t *testing.T) {
	b, client, store := newTestBridge(t, testConfig())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := client.handler("deye/7/battery/soc", []byte("50")); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if store.observationCount() != 0 {
		t.Error("unknown logger recorded observations")
	}
}

// TestMultiLogger verifies per-logger routing and announcements.
func TestMultiLogger(t *testing.T) {
	cfg := testConfig()
	cfg.Inverter.Loggers = []config.LoggerConfig{
		{Index: 0, SerialNumber: "111"},
		{Index: 2, SerialNumber: "222"},
	}
	b, client, _ := newTestBridge(t, cfg)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Status sensors for both loggers
	for _, serial := range []string{"111", "222"} {
		topic := "homeassistant/binary_sensor/deye_inverter_mqtt_" + serial + "/application_status/config"
		if client.publishCount(topic) != 1 {
			t.Errorf("status sensor missing for serial %s", serial)
		}
	}

	if err := client.handler("deye/2/battery/soc", []byte("55")); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	configTopic := "homeassistant/sensor/deye_inverter_mqtt_222/battery_soc/config"
	if client.publishCount(configTopic) != 1 {
		t.Errorf("second logger sensor not announced: %v", client.topicsPublished())
	}
}

// TestReconnectReannounces verifies status entities go out again after a
// broker reconnect.
func TestReconnectReannounces(t *testing.T) {
	b, client, _ := newTestBridge(t, testConfig())
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	statusTopic := "homeassistant/binary_sensor/deye_inverter_mqtt_123/application_status/config"
	if client.publishCount(statusTopic) != 1 {
		t.Fatalf("initial announcement missing")
	}

	// Simulate reconnect: payload unchanged, so the duplicate set suppresses
	// a second retained publish, but the callback must not fail.
	client.onConnect()
	if client.publishCount(statusTopic) != 1 {
		t.Errorf("unchanged payload re-published on reconnect")
	}
}
