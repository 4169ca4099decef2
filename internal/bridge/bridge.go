package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/deye-ha-bridge/internal/discovery"
	"github.com/nerrad567/deye-ha-bridge/internal/entity"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/config"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/deye-ha-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/deye-ha-bridge/internal/sensor"
)

// storeTimeout bounds entity store operations triggered from the MQTT
// message handler.
const storeTimeout = 5 * time.Second

// MQTTClient is the subset of the MQTT client the bridge needs.
// *mqtt.Client satisfies it.
type MQTTClient interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishRetained(topic string, payload []byte) error
	SetOnConnect(callback func())
	IsConnected() bool
}

// Stats are the bridge's monotonic counters, exposed by the diagnostics API.
type Stats struct {
	MessagesReceived     int64 `json:"messages_received"`
	ObservationsRecorded int64 `json:"observations_recorded"`
	AnnouncementsSent    int64 `json:"announcements_sent"`
	TopicsIgnored        int64 `json:"topics_ignored"`
	TopicsUnclassified   int64 `json:"topics_unclassified"`
}

// Bridge translates inverter MQTT traffic into Home Assistant discovery
// announcements and recorded observations.
type Bridge struct {
	cfg     *config.Config
	log     *logging.Logger
	client  MQTTClient
	topics  mqtt.Topics
	builder *discovery.Builder
	ignore  discovery.IgnoreList
	store   entity.Store
	metrics *influxdb.Client

	mu sync.Mutex
	// announced maps config topic to the payload last published there,
	// suppressing duplicate retained publishes within the process.
	announced map[string]string
	// unclassified tracks suffixes already reported, so each is logged once.
	unclassified map[string]struct{}
	listeners    []Listener

	messagesReceived     atomic.Int64
	observationsRecorded atomic.Int64
	announcementsSent    atomic.Int64
	topicsIgnored        atomic.Int64
	topicsUnclassified   atomic.Int64
}

// New creates a Bridge.
//
// Parameters:
//   - cfg: Loaded bridge configuration
//   - log: Logger
//   - client: Connected MQTT client
//   - store: Entity store (required)
//   - metrics: InfluxDB client, nil when disabled
//   - version: Bridge version for discovery payloads
func New(cfg *config.Config, log *logging.Logger, client MQTTClient, store entity.Store, metrics *influxdb.Client, version string) *Bridge {
	topics := mqtt.Topics{
		DeyePrefix:      cfg.MQTT.TopicPrefix,
		DiscoveryPrefix: cfg.Discovery.Prefix,
	}
	return &Bridge{
		cfg:          cfg,
		log:          log,
		client:       client,
		topics:       topics,
		builder:      discovery.NewBuilder(topics, cfg, version),
		ignore:       discovery.IgnoreList(cfg.Discovery.IgnorePatterns),
		store:        store,
		metrics:      metrics,
		announced:    make(map[string]string),
		unclassified: make(map[string]struct{}),
	}
}

// Start announces the status entities and subscribes to the inverter topic
// tree. Re-announcement on broker reconnect is registered here too.
//
// Parameters:
//   - ctx: Context bounding the initial announcements
//
// Returns:
//   - error: If the subscription fails
func (b *Bridge) Start(ctx context.Context) error {
	b.client.SetOnConnect(func() {
		b.announceStatusEntities(context.Background())
	})
	b.announceStatusEntities(ctx)

	if err := b.client.Subscribe(b.topics.AllMetrics(), byte(b.cfg.MQTT.QoS), b.handleMessage); err != nil {
		return fmt.Errorf("subscribing to inverter topics: %w", err)
	}

	b.log.Info("bridge started",
		"subscription", b.topics.AllMetrics(),
		"loggers", len(b.cfg.Inverter.Loggers),
	)
	return nil
}

// Stop unsubscribes from the inverter topic tree. The MQTT client itself is
// closed by the caller.
func (b *Bridge) Stop() error {
	return b.client.Unsubscribe(b.topics.AllMetrics())
}

// AddListener registers a live event listener. Listeners must not block.
func (b *Bridge) AddListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Stats returns a snapshot of the bridge counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		MessagesReceived:     b.messagesReceived.Load(),
		ObservationsRecorded: b.observationsRecorded.Load(),
		AnnouncementsSent:    b.announcementsSent.Load(),
		TopicsIgnored:        b.topicsIgnored.Load(),
		TopicsUnclassified:   b.topicsUnclassified.Load(),
	}
}

// announceStatusEntities publishes the diagnostic binary_sensors and, when
// the feature flag is on, the active power regulation number entity for
// every configured logger.
func (b *Bridge) announceStatusEntities(ctx context.Context) {
	for _, lg := range b.cfg.Inverter.Loggers {
		anns, err := b.builder.StatusSensors(lg)
		if err != nil {
			b.log.Error("building status announcements", "error", err, "logger_serial", lg.SerialNumber)
			continue
		}

		if b.cfg.Discovery.ActivePowerRegulation {
			apr, err := b.builder.ActivePowerRegulation(lg)
			if err != nil {
				b.log.Error("building power regulation announcement", "error", err, "logger_serial", lg.SerialNumber)
			} else {
				anns = append(anns, apr)
			}
		}

		for _, ann := range anns {
			b.announce(ctx, ann)
		}
	}
}

// handleMessage processes one message from the inverter topic tree.
func (b *Bridge) handleMessage(topic string, payload []byte) error {
	b.messagesReceived.Add(1)

	loggerIndex, suffix, ok := b.topics.ParseMetric(topic)
	if !ok {
		return nil
	}

	lg, found := b.cfg.LoggerByIndex(loggerIndex)
	if !found {
		b.log.Warn("message from unconfigured logger", "topic", topic, "logger_index", loggerIndex)
		return nil
	}

	// Availability and settings topics are consumed by Home Assistant
	// directly; they carry no metric to announce.
	if internal, record := internalTopic(suffix); internal {
		if record {
			b.recordLoggerStatus(lg, string(payload))
		}
		return nil
	}

	if b.ignore.Match(suffix) {
		b.topicsIgnored.Add(1)
		return nil
	}

	m := sensor.Describe(suffix)
	ann, err := b.builder.MetricSensor(lg, m)
	if err != nil {
		if errors.Is(err, discovery.ErrUnclassified) {
			b.reportUnclassified(suffix)
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	b.announce(ctx, ann)

	obs := sensor.NewObservation(loggerIndex, lg.SerialNumber, suffix, string(payload), time.Now().UTC())
	if err := b.store.RecordObservation(ctx, ann.UniqueID, obs); err != nil {
		b.log.Error("recording observation", "error", err, "topic", topic)
	} else {
		b.observationsRecorded.Add(1)
	}

	if b.metrics != nil && obs.Numeric {
		b.metrics.WriteObservation(lg.SerialNumber, suffix, obs.Value)
	}

	event := Event{
		Type:         EventObservation,
		UniqueID:     ann.UniqueID,
		Name:         ann.Name,
		LoggerSerial: lg.SerialNumber,
		Metric:       suffix,
		Value:        obs.Raw,
		At:           obs.At,
	}
	if obs.Numeric {
		v := obs.Value
		event.NumericValue = &v
	}
	b.notify(event)

	return nil
}

// announce publishes a discovery config (retained) unless the identical
// payload was already published this process, and persists the announcement.
func (b *Bridge) announce(ctx context.Context, ann discovery.Announcement) {
	b.mu.Lock()
	previous, seen := b.announced[ann.ConfigTopic]
	b.mu.Unlock()

	if seen && previous == string(ann.Payload) {
		return
	}

	if err := b.client.PublishRetained(ann.ConfigTopic, ann.Payload); err != nil {
		b.log.Error("publishing discovery config", "error", err, "topic", ann.ConfigTopic)
		return
	}

	b.mu.Lock()
	b.announced[ann.ConfigTopic] = string(ann.Payload)
	b.mu.Unlock()
	b.announcementsSent.Add(1)

	if err := b.store.UpsertAnnouncement(ctx, ann, time.Now().UTC()); err != nil {
		b.log.Error("persisting announcement", "error", err, "unique_id", ann.UniqueID)
	}

	b.log.Info("announced entity",
		"unique_id", ann.UniqueID,
		"component", ann.Component,
		"config_topic", ann.ConfigTopic,
	)

	b.notify(Event{
		Type:         EventAnnouncement,
		UniqueID:     ann.UniqueID,
		Component:    ann.Component,
		Name:         ann.Name,
		LoggerSerial: ann.LoggerSerial,
		At:           time.Now().UTC(),
	})
}

// recordLoggerStatus forwards logger availability transitions to InfluxDB.
func (b *Bridge) recordLoggerStatus(lg config.LoggerConfig, payload string) {
	if b.metrics == nil {
		return
	}
	b.metrics.WriteLoggerStatus(lg.SerialNumber, payload == "online")
}

// reportUnclassified logs an unclassifiable topic once per suffix.
func (b *Bridge) reportUnclassified(suffix string) {
	b.mu.Lock()
	_, reported := b.unclassified[suffix]
	if !reported {
		b.unclassified[suffix] = struct{}{}
	}
	b.mu.Unlock()

	b.topicsUnclassified.Add(1)
	if !reported {
		b.log.Error("unable to determine device_class for topic", "suffix", suffix)
	}
}

// notify fans an event out to all listeners.
func (b *Bridge) notify(event Event) {
	b.mu.Lock()
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}

// internalTopic reports whether a suffix is part of the upstream bridge's
// own surface rather than a metric. The second result marks logger status
// topics whose transitions are worth recording.
func internalTopic(suffix string) (internal, recordStatus bool) {
	switch {
	case suffix == "status":
		return true, false
	case suffix == "logger_status":
		return true, true
	case strings.HasPrefix(suffix, "settings/"):
		return true, false
	}
	return false, false
}
