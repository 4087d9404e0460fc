package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
device:
  namespace: "test/airsafe"
  name: "Test Sensor"
mqtt:
  broker:
    host: "localhost"
    port: 8083
    path: "/mqtt"
    client_id: "test-client"
  qos: 1
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Namespace != "test/airsafe" {
		t.Errorf("Device.Namespace = %q, want %q", cfg.Device.Namespace, "test/airsafe")
	}
	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
}

func TestLoad_Defaults(t *testing.T) {
	// A minimal file keeps every default in place.
	cfg, err := Load(writeConfig(t, "device:\n  name: \"Bedroom\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.Namespace != "d1ego/airsafe" {
		t.Errorf("Device.Namespace = %q, want firmware default", cfg.Device.Namespace)
	}
	if cfg.MQTT.Broker.Host != "broker.emqx.io" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.emqx.io", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Reconnect.MaxAttempts != 5 {
		t.Errorf("MQTT.Reconnect.MaxAttempts = %d, want 5", cfg.MQTT.Reconnect.MaxAttempts)
	}
	if cfg.Alerts.PM25Threshold != 25 {
		t.Errorf("Alerts.PM25Threshold = %v, want 25", cfg.Alerts.PM25Threshold)
	}
	if got := cfg.NotificationTopic(); got != "d1ego/airsafe/notifications" {
		t.Errorf("NotificationTopic() = %q, want d1ego/airsafe/notifications", got)
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

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AIRSAFE_MQTT_HOST", "broker.example.com")
	t.Setenv("AIRSAFE_MQTT_PORT", "8084")
	t.Setenv("AIRSAFE_DATABASE_PATH", "/tmp/env.db")

	cfg, err := Load(writeConfig(t, "mqtt:\n  broker:\n    host: \"file-host\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "broker.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want env override", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Broker.Port != 8084 {
		t.Errorf("MQTT.Broker.Port = %d, want 8084", cfg.MQTT.Broker.Port)
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "empty namespace",
			mutate:  func(c *Config) { c.Device.Namespace = "" },
			wantErr: true,
		},
		{
			name:    "wildcard in namespace",
			mutate:  func(c *Config) { c.Device.Namespace = "d1ego/#" },
			wantErr: true,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 0 },
			wantErr: true,
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "extended delay not longer than delay",
			mutate:  func(c *Config) { c.MQTT.Reconnect.ExtendedDelay = c.MQTT.Reconnect.Delay },
			wantErr: true,
		},
		{
			name:    "empty database path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: true,
		},
		{
			name: "influxdb enabled without url",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Org = "org"
				c.InfluxDB.Bucket = "bucket"
			},
			wantErr: true,
		},
		{
			name:    "negative threshold",
			mutate:  func(c *Config) { c.Alerts.PM25Threshold = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DurationHelpers(t *testing.T) {
	cfg := Default()
	cfg.MQTT.Reconnect.Delay = 5
	cfg.MQTT.Reconnect.ExtendedDelay = 15
	cfg.Notifications.Cooldown = 300

	if got := cfg.ReconnectDelay(); got != 5*time.Second {
		t.Errorf("ReconnectDelay() = %v, want 5s", got)
	}
	if got := cfg.ExtendedReconnectDelay(); got != 15*time.Second {
		t.Errorf("ExtendedReconnectDelay() = %v, want 15s", got)
	}
	if got := cfg.NotificationCooldown(); got != 5*time.Minute {
		t.Errorf("NotificationCooldown() = %v, want 5m", got)
	}
}
