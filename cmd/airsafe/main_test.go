package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testConfigYAML renders a minimal valid config pointing at a temp database.
// The broker port is unroutable so startup never reaches a real broker.
func testConfigYAML(dbPath string) string {
	return `
device:
  namespace: "test/airsafe"
  name: "test-sensor"

mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    path: "/mqtt"
    tls: false
    client_id: "airsafe-test"
  qos: 1
  reconnect:
    delay: 1
    extended_delay: 2
    max_attempts: 5

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout

alerts:
  pm25_alerts: true
  pm25_threshold: 25
  pm10_alerts: true
  pm10_threshold: 50
  aqi_alerts: true
  aqi_threshold: 75
  push_notifications: true
  sound_alerts: true

notifications:
  cooldown: 300
`
}

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("AIRSAFE_CONFIG")
	defer os.Setenv("AIRSAFE_CONFIG", originalEnv)

	os.Setenv("AIRSAFE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	if err := os.WriteFile(configPath, []byte(testConfigYAML("")), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("AIRSAFE_CONFIG")
	defer os.Setenv("AIRSAFE_CONFIG", originalEnv)
	os.Setenv("AIRSAFE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestRun_StartupAndShutdown verifies a clean lifecycle without a broker.
// The MQTT manager connects asynchronously, so an unreachable broker must
// not prevent startup or a clean shutdown.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	if err := os.WriteFile(configPath, []byte(testConfigYAML(dbPath)), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("AIRSAFE_CONFIG")
	defer os.Setenv("AIRSAFE_CONFIG", originalEnv)
	os.Setenv("AIRSAFE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := run(ctx); err != nil {
		t.Fatalf("run() error = %v, want clean shutdown", err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing after run: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("AIRSAFE_CONFIG")
	defer os.Setenv("AIRSAFE_CONFIG", originalEnv)

	os.Unsetenv("AIRSAFE_CONFIG")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("AIRSAFE_CONFIG")
	defer os.Setenv("AIRSAFE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("AIRSAFE_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}
