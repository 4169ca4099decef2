package config

import (
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unique ID strategy values for discovery.unique_id_strategy.
const (
	// UniqueIDStrategyName derives unique ids from the sensor display name.
	// This matches the ids the original deye_plugin_ha_discovery plugin
	// generated, so existing Home Assistant entities are preserved.
	UniqueIDStrategyName = "name"

	// UniqueIDStrategyTopic derives unique ids from the metric topic suffix.
	// Stable across sensor renames, but produces new entities when migrating
	// from the name strategy.
	UniqueIDStrategyTopic = "topic"
)

// Config is the root configuration structure for the Deye HA bridge.
// All configuration is loaded from YAML and can be overridden by environment
// variables, including the DEYE_HA_PLUGIN_* names documented by the original
// plugin so existing deployments carry over unchanged.
type Config struct {
	Inverter  InverterConfig  `yaml:"inverter"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Database  DatabaseConfig  `yaml:"database"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// InverterConfig describes the inverter installation the upstream
// deye-inverter-mqtt bridge publishes for.
type InverterConfig struct {
	// Manufacturer is shown on the Home Assistant device page.
	Manufacturer string `yaml:"manufacturer"`

	// Model is shown on the Home Assistant device page.
	Model string `yaml:"model"`

	// Loggers lists the connected Deye logger modules. Single-logger
	// installs configure exactly one entry with index 0.
	Loggers []LoggerConfig `yaml:"loggers"`
}

// LoggerConfig identifies one Deye logger module.
type LoggerConfig struct {
	// Index is the logger position in a multi-logger install. Logger 0
	// publishes directly under the topic prefix; loggers >= 1 publish under
	// <prefix>/<index>/.
	Index int `yaml:"index"`

	// SerialNumber is the logger serial, used by discovery unique ids and
	// node ids. Changing it creates brand-new entities in Home Assistant.
	SerialNumber string `yaml:"serial_number"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// DiscoveryConfig controls the Home Assistant discovery payloads.
type DiscoveryConfig struct {
	// Prefix is the Home Assistant discovery topic prefix.
	Prefix string `yaml:"prefix"`

	// IgnorePatterns lists Unix shell-style globs matched against the metric
	// topic suffix (e.g. "dc/pv2/*"). Matching metrics are never announced.
	IgnorePatterns []string `yaml:"ignore_patterns"`

	// ExpireAfter is the number of seconds after which Home Assistant marks
	// a sensor unavailable without fresh data. 0 omits the field entirely.
	ExpireAfter int `yaml:"expire_after"`

	// UniqueIDStrategy selects how entity unique ids are derived: "name"
	// (upstream plugin behaviour) or "topic".
	UniqueIDStrategy string `yaml:"unique_id_strategy"`

	// ActivePowerRegulation announces a number entity for the upstream
	// bridge's active power regulation setting.
	ActivePowerRegulation bool `yaml:"active_power_regulation"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays is how long observation history rows are kept.
	// 0 disables pruning.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the diagnostics HTTP API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern DEYEBRIDGE_SECTION_KEY
// (e.g. DEYEBRIDGE_MQTT_HOST). The DEYE_HA_PLUGIN_* variables documented by
// the upstream plugin are honoured as well.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	cfg.normalise()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Inverter: InverterConfig{
			Manufacturer: "Unknown manufacturer",
			Model:        "Unknown model",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "deye-ha-bridge",
			},
			QoS:         1,
			TopicPrefix: "deye",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Discovery: DiscoveryConfig{
			Prefix:           "homeassistant",
			UniqueIDStrategy: UniqueIDStrategyName,
		},
		Database: DatabaseConfig{
			Path:                 "./data/deyebridge.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 30,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/api/v1/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. DEYEBRIDGE_* names take precedence over the legacy
// DEYE_HA_PLUGIN_* names when both are set.
func applyEnvOverrides(cfg *Config) {
	// Legacy plugin variables first, so DEYEBRIDGE_* wins.
	if v := os.Getenv("DEYE_HA_PLUGIN_HA_MQTT_PREFIX"); v != "" {
		cfg.Discovery.Prefix = v
	}
	if v := os.Getenv("DEYE_HA_PLUGIN_INVERTER_MANUFACTURER"); v != "" {
		cfg.Inverter.Manufacturer = v
	}
	if v := os.Getenv("DEYE_HA_PLUGIN_INVERTER_MODEL"); v != "" {
		cfg.Inverter.Model = v
	}
	if v := os.Getenv("DEYE_HA_PLUGIN_IGNORE_TOPIC_PATTERNS"); v != "" {
		cfg.Discovery.IgnorePatterns = splitPatterns(v)
	}
	if v := os.Getenv("DEYE_HA_PLUGIN_EXPIRE_AFTER"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Discovery.ExpireAfter = n
		}
	}
	if v := os.Getenv("DEYE_HA_PLUGIN_UNIQUE_ID_STRATEGY"); v != "" {
		cfg.Discovery.UniqueIDStrategy = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("DEYE_FEATURE_ACTIVE_POWER_REGULATION"); v != "" {
		cfg.Discovery.ActivePowerRegulation = parseBool(v)
	}

	// MQTT
	if v := os.Getenv("DEYEBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DEYEBRIDGE_MQTT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = n
		}
	}
	if v := os.Getenv("DEYEBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DEYEBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("DEYEBRIDGE_MQTT_TOPIC_PREFIX"); v != "" {
		cfg.MQTT.TopicPrefix = v
	}

	// Discovery
	if v := os.Getenv("DEYEBRIDGE_DISCOVERY_PREFIX"); v != "" {
		cfg.Discovery.Prefix = v
	}

	// Database
	if v := os.Getenv("DEYEBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("DEYEBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("DEYEBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// normalise cleans up values the upstream plugin tolerated in misformatted
// form: surrounding double quotes on manufacturer/model (a documented
// docker-compose mistake) and whitespace around ignore patterns.
func (c *Config) normalise() {
	c.Inverter.Manufacturer = strings.Trim(strings.TrimSpace(c.Inverter.Manufacturer), `"`)
	c.Inverter.Model = strings.Trim(strings.TrimSpace(c.Inverter.Model), `"`)

	patterns := c.Discovery.IgnorePatterns[:0]
	for _, p := range c.Discovery.IgnorePatterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	c.Discovery.IgnorePatterns = patterns

	c.MQTT.TopicPrefix = strings.Trim(c.MQTT.TopicPrefix, "/")
	c.Discovery.Prefix = strings.Trim(c.Discovery.Prefix, "/")
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.Discovery.Prefix == "" {
		errs = append(errs, "discovery.prefix is required")
	}
	if c.Discovery.ExpireAfter < 0 {
		errs = append(errs, "discovery.expire_after must not be negative")
	}
	switch c.Discovery.UniqueIDStrategy {
	case UniqueIDStrategyName, UniqueIDStrategyTopic:
	default:
		errs = append(errs, fmt.Sprintf("discovery.unique_id_strategy must be %q or %q", UniqueIDStrategyName, UniqueIDStrategyTopic))
	}
	for _, p := range c.Discovery.IgnorePatterns {
		// path.Match reports malformed patterns regardless of input.
		if _, err := path.Match(p, "probe"); err != nil {
			errs = append(errs, fmt.Sprintf("discovery.ignore_patterns: invalid pattern %q", p))
		}
	}

	if len(c.Inverter.Loggers) == 0 {
		errs = append(errs, "inverter.loggers: at least one logger is required")
	}
	seen := make(map[int]struct{}, len(c.Inverter.Loggers))
	for _, l := range c.Inverter.Loggers {
		if l.Index < 0 {
			errs = append(errs, "inverter.loggers: index must not be negative")
		}
		if _, dup := seen[l.Index]; dup {
			errs = append(errs, fmt.Sprintf("inverter.loggers: duplicate index %d", l.Index))
		}
		seen[l.Index] = struct{}{}
		if l.SerialNumber == "" {
			errs = append(errs, fmt.Sprintf("inverter.loggers: serial_number is required for logger %d", l.Index))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.HistoryRetentionDays < 0 {
		errs = append(errs, "database.history_retention_days must not be negative")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoggerBySerial returns the logger config with the given serial number.
func (c *Config) LoggerBySerial(serial string) (LoggerConfig, bool) {
	for _, l := range c.Inverter.Loggers {
		if l.SerialNumber == serial {
			return l, true
		}
	}
	return LoggerConfig{}, false
}

// LoggerByIndex returns the logger config with the given index.
func (c *Config) LoggerByIndex(index int) (LoggerConfig, bool) {
	for _, l := range c.Inverter.Loggers {
		if l.Index == index {
			return l, true
		}
	}
	return LoggerConfig{}, false
}

// splitPatterns splits the legacy colon-separated ignore pattern list.
func splitPatterns(value string) []string {
	parts := strings.Split(value, ":")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return patterns
}

// parseBool parses the truthy spellings the upstream plugin accepted.
func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
