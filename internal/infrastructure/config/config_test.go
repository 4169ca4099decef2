package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeConfig writes a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
inverter:
  manufacturer: "Deye"
  model: "SUN-10K-SG04LP3"
  loggers:
    - index: 0
      serial_number: "2799999999"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-bridge"
  qos: 1
  topic_prefix: "deye"
discovery:
  prefix: "homeassistant"
  expire_after: 660
  ignore_patterns:
    - "dc/pv2/*"
    - "ac/l[23]/*"
database:
  path: "/tmp/test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Inverter.Manufacturer != "Deye" {
		t.Errorf("Inverter.Manufacturer = %q, want %q", cfg.Inverter.Manufacturer, "Deye")
	}
	if cfg.Discovery.ExpireAfter != 660 {
		t.Errorf("Discovery.ExpireAfter = %d, want 660", cfg.Discovery.ExpireAfter)
	}
	if len(cfg.Discovery.IgnorePatterns) != 2 {
		t.Errorf("len(IgnorePatterns) = %d, want 2", len(cfg.Discovery.IgnorePatterns))
	}
	if cfg.Discovery.UniqueIDStrategy != UniqueIDStrategyName {
		t.Errorf("UniqueIDStrategy = %q, want default %q", cfg.Discovery.UniqueIDStrategy, UniqueIDStrategyName)
	}
	if cfg.MQTT.TopicPrefix != "deye" {
		t.Errorf("MQTT.TopicPrefix = %q, want %q", cfg.MQTT.TopicPrefix, "deye")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_QuoteStripping(t *testing.T) {
	// Double quotes that survive docker-compose quoting are stripped,
	// matching the upstream plugin's tolerance.
	content := `
inverter:
  manufacturer: '"Deye"'
  model: '"SUN-600G3-EU-230"'
  loggers:
    - index: 0
      serial_number: "123"
database:
  path: "/tmp/test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Inverter.Manufacturer != "Deye" {
		t.Errorf("Manufacturer = %q, want quotes stripped", cfg.Inverter.Manufacturer)
	}
	if cfg.Inverter.Model != "SUN-600G3-EU-230" {
		t.Errorf("Model = %q, want quotes stripped", cfg.Inverter.Model)
	}
}

func TestLoad_LegacyEnvOverrides(t *testing.T) {
	t.Setenv("DEYE_HA_PLUGIN_HA_MQTT_PREFIX", "ha")
	t.Setenv("DEYE_HA_PLUGIN_INVERTER_MANUFACTURER", `"Deye"`)
	t.Setenv("DEYE_HA_PLUGIN_IGNORE_TOPIC_PATTERNS", "uptime:dc/pv2/*")
	t.Setenv("DEYE_HA_PLUGIN_EXPIRE_AFTER", "900")
	t.Setenv("DEYE_FEATURE_ACTIVE_POWER_REGULATION", "true")

	content := `
inverter:
  loggers:
    - index: 0
      serial_number: "123"
database:
  path: "/tmp/test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Discovery.Prefix != "ha" {
		t.Errorf("Discovery.Prefix = %q, want %q", cfg.Discovery.Prefix, "ha")
	}
	if cfg.Inverter.Manufacturer != "Deye" {
		t.Errorf("Manufacturer = %q, want env value with quotes stripped", cfg.Inverter.Manufacturer)
	}
	want := []string{"uptime", "dc/pv2/*"}
	if len(cfg.Discovery.IgnorePatterns) != len(want) {
		t.Fatalf("IgnorePatterns = %v, want %v", cfg.Discovery.IgnorePatterns, want)
	}
	for i, p := range want {
		if cfg.Discovery.IgnorePatterns[i] != p {
			t.Errorf("IgnorePatterns[%d] = %q, want %q", i, cfg.Discovery.IgnorePatterns[i], p)
		}
	}
	if cfg.Discovery.ExpireAfter != 900 {
		t.Errorf("ExpireAfter = %d, want 900", cfg.Discovery.ExpireAfter)
	}
	if !cfg.Discovery.ActivePowerRegulation {
		t.Error("ActivePowerRegulation = false, want true")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Inverter.Loggers = []LoggerConfig{{Index: 0, SerialNumber: "123"}}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(_ *Config) {},
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "missing topic prefix",
			mutate:  func(c *Config) { c.MQTT.TopicPrefix = "" },
			wantErr: "mqtt.topic_prefix",
		},
		{
			name:    "missing discovery prefix",
			mutate:  func(c *Config) { c.Discovery.Prefix = "" },
			wantErr: "discovery.prefix",
		},
		{
			name:    "negative expire_after",
			mutate:  func(c *Config) { c.Discovery.ExpireAfter = -1 },
			wantErr: "expire_after",
		},
		{
			name:    "unknown unique id strategy",
			mutate:  func(c *Config) { c.Discovery.UniqueIDStrategy = "serial" },
			wantErr: "unique_id_strategy",
		},
		{
			name:    "malformed ignore pattern",
			mutate:  func(c *Config) { c.Discovery.IgnorePatterns = []string{"ac/l[1/voltage"} },
			wantErr: "invalid pattern",
		},
		{
			name:    "logger without serial",
			mutate:  func(c *Config) { c.Inverter.Loggers = []LoggerConfig{{Index: 0}} },
			wantErr: "serial_number",
		},
		{
			name: "duplicate logger index",
			mutate: func(c *Config) {
				c.Inverter.Loggers = []LoggerConfig{
					{Index: 1, SerialNumber: "a"},
					{Index: 1, SerialNumber: "b"},
				}
			},
			wantErr: "duplicate index",
		},
		{
			name:    "missing database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_LoggerLookups(t *testing.T) {
	cfg := defaultConfig()
	cfg.Inverter.Loggers = []LoggerConfig{
		{Index: 0, SerialNumber: "111"},
		{Index: 2, SerialNumber: "222"},
	}

	if l, ok := cfg.LoggerByIndex(2); !ok || l.SerialNumber != "222" {
		t.Errorf("LoggerByIndex(2) = %+v, %v", l, ok)
	}
	if _, ok := cfg.LoggerByIndex(5); ok {
		t.Error("LoggerByIndex(5) = true, want false")
	}
	if l, ok := cfg.LoggerBySerial("111"); !ok || l.Index != 0 {
		t.Errorf("LoggerBySerial(111) = %+v, %v", l, ok)
	}
}
