package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for AirSafe Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device        DeviceConfig        `yaml:"device"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	Database      DatabaseConfig      `yaml:"database"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Alerts        AlertsConfig        `yaml:"alerts"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// DeviceConfig identifies the sensor node this instance monitors.
type DeviceConfig struct {
	// Namespace is the MQTT topic prefix the firmware publishes under,
	// e.g. "d1ego/airsafe". Sensor topics are "<namespace>/<key>".
	Namespace string `yaml:"namespace"`

	// Name is a human-readable label used in notifications and history tags.
	Name string `yaml:"name"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
// The transport is WebSocket; Path is the broker's WebSocket endpoint.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Path     string `yaml:"path"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// Both fields are empty for public brokers.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains reconnection settings.
//
// The retry delay is fixed, not exponential: every automatic attempt waits
// Delay seconds. ExtendedDelay is applied instead of Delay when the broker
// closed the socket abnormally. After MaxAttempts consecutive failures the
// manager stops retrying until a manual reconnect.
type MQTTReconnectConfig struct {
	Delay         int `yaml:"delay"`
	ExtendedDelay int `yaml:"extended_delay"`
	MaxAttempts   int `yaml:"max_attempts"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings for reading history.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// AlertsConfig contains the default alert thresholds.
//
// These defaults seed the alert engine on first run; once the user changes
// settings the persisted copy wins.
type AlertsConfig struct {
	PM25Alerts        bool    `yaml:"pm25_alerts"`
	PM25Threshold     float64 `yaml:"pm25_threshold"`
	PM10Alerts        bool    `yaml:"pm10_alerts"`
	PM10Threshold     float64 `yaml:"pm10_threshold"`
	AQIAlerts         bool    `yaml:"aqi_alerts"`
	AQIThreshold      float64 `yaml:"aqi_threshold"`
	PushNotifications bool    `yaml:"push_notifications"`
	SoundAlerts       bool    `yaml:"sound_alerts"`
}

// NotificationsConfig contains notification dispatch settings.
type NotificationsConfig struct {
	// Topic is the MQTT topic notifications are published to.
	// Defaults to "<device.namespace>/notifications" when empty.
	Topic string `yaml:"topic"`

	// Cooldown is the minimum interval between notifications of the same
	// category, in seconds.
	Cooldown int `yaml:"cooldown"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: AIRSAFE_SECTION_KEY
// For example: AIRSAFE_MQTT_HOST, AIRSAFE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
// Intended for tests and for running against the public AirSafe broker.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
// The MQTT defaults match the AirSafe firmware: public EMQX broker over
// WebSocket, no authentication.
func defaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Namespace: "d1ego/airsafe",
			Name:      "AirSafe Sensor",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "broker.emqx.io",
				Port:     8083,
				Path:     "/mqtt",
				ClientID: "airsafe-core",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				Delay:         5,
				ExtendedDelay: 15,
				MaxAttempts:   5,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/airsafe.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       false,
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Alerts: AlertsConfig{
			PM25Alerts:        true,
			PM25Threshold:     25,
			PM10Alerts:        true,
			PM10Threshold:     50,
			AQIAlerts:         true,
			AQIThreshold:      75,
			PushNotifications: true,
			SoundAlerts:       true,
		},
		Notifications: NotificationsConfig{
			Cooldown: 300,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: AIRSAFE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Device
	if v := os.Getenv("AIRSAFE_DEVICE_NAMESPACE"); v != "" {
		cfg.Device.Namespace = v
	}

	// MQTT
	if v := os.Getenv("AIRSAFE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("AIRSAFE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("AIRSAFE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("AIRSAFE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("AIRSAFE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("AIRSAFE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.Namespace == "" {
		errs = append(errs, "device.namespace is required")
	}
	if strings.ContainsAny(c.Device.Namespace, "#+") {
		errs = append(errs, "device.namespace must not contain MQTT wildcards")
	}

	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Reconnect.Delay < 1 {
		errs = append(errs, "mqtt.reconnect.delay must be at least 1 second")
	}
	if c.MQTT.Reconnect.ExtendedDelay <= c.MQTT.Reconnect.Delay {
		errs = append(errs, "mqtt.reconnect.extended_delay must be greater than mqtt.reconnect.delay")
	}
	if c.MQTT.Reconnect.MaxAttempts < 1 {
		errs = append(errs, "mqtt.reconnect.max_attempts must be at least 1")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" {
			errs = append(errs, "influxdb.org is required when influxdb is enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when influxdb is enabled")
		}
	}

	if c.Alerts.PM25Threshold < 0 || c.Alerts.PM10Threshold < 0 || c.Alerts.AQIThreshold < 0 {
		errs = append(errs, "alert thresholds must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReconnectDelay returns the fixed automatic-retry delay as a Duration.
func (c *Config) ReconnectDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.Delay) * time.Second
}

// ExtendedReconnectDelay returns the abnormal-close retry delay as a Duration.
func (c *Config) ExtendedReconnectDelay() time.Duration {
	return time.Duration(c.MQTT.Reconnect.ExtendedDelay) * time.Second
}

// NotificationCooldown returns the per-category notification cooldown as a Duration.
func (c *Config) NotificationCooldown() time.Duration {
	return time.Duration(c.Notifications.Cooldown) * time.Second
}

// NotificationTopic returns the topic notifications are published to,
// defaulting to "<device.namespace>/notifications".
func (c *Config) NotificationTopic() string {
	if c.Notifications.Topic != "" {
		return c.Notifications.Topic
	}
	return c.Device.Namespace + "/notifications"
}
