package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)

	os.Setenv("FRESCO_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "")
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}

	if os.IsNotExist(err) || err.Error() == "" {
		t.Logf("Got expected error type: %v", err)
	}
}

// TestRun_MissingCloudCredentials verifies run fails when the cloud account
// is not configured. The bridge is useless without one, so validation
// rejects the config before any connection is attempted.
func TestRun_MissingCloudCredentials(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
bridge:
  id: test-bridge

appliances:
  - device_id: "test-pot-1"
    module_idx: 0
    name: "Test Pot"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)
	os.Setenv("FRESCO_CONFIG", configPath)

	// Credentials from the environment would satisfy validation.
	originalEmail := os.Getenv("FRESCO_CLOUD_EMAIL")
	defer os.Setenv("FRESCO_CLOUD_EMAIL", originalEmail)
	os.Unsetenv("FRESCO_CLOUD_EMAIL")
	originalPassword := os.Getenv("FRESCO_CLOUD_PASSWORD")
	defer os.Setenv("FRESCO_CLOUD_PASSWORD", originalPassword)
	os.Unsetenv("FRESCO_CLOUD_PASSWORD")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "")
	if err == nil {
		t.Fatal("run() should fail without cloud credentials")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config validation error, got: %v", err)
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is invalid.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
bridge:
  id: test-bridge

cloud:
  email: "bridge-test@example.com"
  password: "test-password"

appliances:
  - device_id: "test-pot-1"
    module_idx: 0
    name: "Test Pot"

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)
	os.Setenv("FRESCO_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx, "")
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)

	os.Unsetenv("FRESCO_CONFIG")

	path := getConfigPath("")
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("FRESCO_CONFIG", expected)

	path := getConfigPath("")
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestGetConfigPath_FlagOverride verifies the --config flag wins over the
// environment variable.
func TestGetConfigPath_FlagOverride(t *testing.T) {
	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)
	os.Setenv("FRESCO_CONFIG", "/env/path/config.yaml")

	expected := "/flag/path/config.yaml"

	path := getConfigPath(expected)
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestHealthCheck_NilOptionalClients verifies health check works with nil
// InfluxDB and API clients. Skipped because healthCheck requires valid
// db/mqtt clients.
func TestHealthCheck_NilOptionalClients(t *testing.T) {
	t.Skip("healthCheck requires valid db and mqtt clients - cannot test with nils")
}

// TestRun_StartupAndShutdown tests startup with running services.
// Requires cloud access and an MQTT broker at 127.0.0.1:1883; without them
// run fails at the cloud login or broker connect stage, which is tolerated.
func TestRun_StartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
bridge:
  id: test-bridge

cloud:
  email: "bridge-test@example.com"
  password: "test-password"
  region: "test-invalid-0"

appliances:
  - device_id: "test-pot-1"
    module_idx: 0
    name: "Test Pot"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-successful-startup"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

history:
  retention_hours: 1
  prune_interval_minutes: 1

api:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)
	os.Setenv("FRESCO_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := run(ctx, "")

	if err != nil {
		t.Logf("run() returned error: %v (may be due to missing cloud or MQTT access)", err)
	}
}

// TestRun_ContextCancelledDuringStartup verifies cancellation during startup.
func TestRun_ContextCancelledDuringStartup(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")

	configContent := `
bridge:
  id: test-bridge

cloud:
  email: "bridge-test@example.com"
  password: "test-password"
  region: "test-invalid-0"

appliances:
  - device_id: "test-pot-1"
    module_idx: 0
    name: "Test Pot"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 19999
    client_id: "test-client"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

influxdb:
  enabled: false

api:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("FRESCO_CONFIG")
	defer os.Setenv("FRESCO_CONFIG", originalEnv)
	os.Setenv("FRESCO_CONFIG", configPath)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run(ctx, "")

	if err == nil {
		t.Log("run() completed without error (may have cancelled cleanly)")
	} else {
		t.Logf("run() returned error (expected): %v", err)
	}
}
