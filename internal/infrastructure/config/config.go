package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Fresco bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge     BridgeConfig      `yaml:"bridge"`
	Cloud      CloudConfig       `yaml:"cloud"`
	Appliances []ApplianceConfig `yaml:"appliances"`
	Database   DatabaseConfig    `yaml:"database"`
	MQTT       MQTTConfig        `yaml:"mqtt"`
	API        APIConfig         `yaml:"api"`
	InfluxDB   InfluxDBConfig    `yaml:"influxdb"`
	History    HistoryConfig     `yaml:"history"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// BridgeConfig contains bridge identity settings.
type BridgeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CloudConfig contains KitchenOS cloud account and endpoint settings.
//
// Email and password are the user's KitchenOS account credentials. The
// remaining fields are fixed properties of the vendor service and rarely
// need changing.
type CloudConfig struct {
	Email            string `yaml:"email"`
	Password         string `yaml:"password"`
	Region           string `yaml:"region"`
	ClientID         string `yaml:"client_id"`
	APIBase          string `yaml:"api_base"`
	NotificationsURL string `yaml:"notifications_url"`
}

// ApplianceConfig identifies one cloud-registered appliance the bridge manages.
type ApplianceConfig struct {
	// DeviceID is the cloud device identifier (discovered via GET /user/).
	DeviceID string `yaml:"device_id"`

	// ModuleIdx selects the appliance module on multi-module devices.
	// Single-module cookers use 0.
	ModuleIdx int `yaml:"module_idx"`

	// ModelID is the vendor model reference used for capability lookups.
	ModelID string `yaml:"model_id"`

	// Name is a human-readable label used in logs and the ops API.
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains settings for the operations HTTP API.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
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

// HistoryConfig contains state history retention settings.
type HistoryConfig struct {
	// RetentionHours is how long snapshots are kept before pruning.
	RetentionHours int `yaml:"retention_hours"`

	// PruneIntervalMinutes is how often the janitor runs.
	PruneIntervalMinutes int `yaml:"prune_interval_minutes"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Vendor service defaults. The client ID and region identify the public
// KitchenOS Cognito user-pool client; they are the same for every account.
const (
	DefaultRegion           = "us-east-2"
	DefaultClientID         = "6l68kvvsa1dkq2rbd5rdjhklmk"
	DefaultAPIBase          = "https://api.fresco-kitchenos.com"
	DefaultNotificationsURL = "wss://api.fresco-kitchenos.com/notifications"
	DefaultModelID          = "kitchenos:InstantBrands:InstantPotProPlus"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FRESCO_SECTION_KEY
// For example: FRESCO_CLOUD_PASSWORD, FRESCO_MQTT_HOST
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
	applyApplianceDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:   "fresco-bridge-01",
			Name: "Fresco KitchenOS Bridge",
		},
		Cloud: CloudConfig{
			Region:           DefaultRegion,
			ClientID:         DefaultClientID,
			APIBase:          DefaultAPIBase,
			NotificationsURL: DefaultNotificationsURL,
		},
		Database: DatabaseConfig{
			Path:        "./data/fresco.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fresco-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8093,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		History: HistoryConfig{
			RetentionHours:       24,
			PruneIntervalMinutes: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FRESCO_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Cloud account (credentials belong in the environment, not on disk)
	if v := os.Getenv("FRESCO_CLOUD_EMAIL"); v != "" {
		cfg.Cloud.Email = v
	}
	if v := os.Getenv("FRESCO_CLOUD_PASSWORD"); v != "" {
		cfg.Cloud.Password = v
	}
	if v := os.Getenv("FRESCO_CLOUD_REGION"); v != "" {
		cfg.Cloud.Region = v
	}
	if v := os.Getenv("FRESCO_CLOUD_CLIENT_ID"); v != "" {
		cfg.Cloud.ClientID = v
	}
	if v := os.Getenv("FRESCO_CLOUD_API_BASE"); v != "" {
		cfg.Cloud.APIBase = v
	}

	// Database
	if v := os.Getenv("FRESCO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("FRESCO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("FRESCO_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("FRESCO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("FRESCO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("FRESCO_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("FRESCO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// applyApplianceDefaults fills per-appliance defaults after YAML merge.
// ModuleIdx needs no default: single-module cookers use 0, the zero value.
func applyApplianceDefaults(cfg *Config) {
	for i := range cfg.Appliances {
		if cfg.Appliances[i].ModelID == "" {
			cfg.Appliances[i].ModelID = DefaultModelID
		}
		if cfg.Appliances[i].Name == "" {
			cfg.Appliances[i].Name = cfg.Appliances[i].DeviceID
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	// Cloud credentials are required: the bridge is useless without an account.
	if c.Cloud.Email == "" {
		errs = append(errs, "cloud.email is required (or set FRESCO_CLOUD_EMAIL)")
	}
	if c.Cloud.Password == "" {
		errs = append(errs, "cloud.password is required (set FRESCO_CLOUD_PASSWORD)")
	}
	if c.Cloud.ClientID == "" {
		errs = append(errs, "cloud.client_id is required")
	}
	if c.Cloud.APIBase == "" {
		errs = append(errs, "cloud.api_base is required")
	}

	if len(c.Appliances) == 0 {
		errs = append(errs, "at least one appliance must be configured (device IDs are listed by GET /user/)")
	}
	seen := make(map[string]bool, len(c.Appliances))
	for i, app := range c.Appliances {
		if app.DeviceID == "" {
			errs = append(errs, fmt.Sprintf("appliances[%d].device_id is required", i))
			continue
		}
		if seen[app.DeviceID] {
			errs = append(errs, fmt.Sprintf("appliances[%d].device_id %q is duplicated", i, app.DeviceID))
		}
		seen[app.DeviceID] = true
		if app.ModuleIdx < 0 {
			errs = append(errs, fmt.Sprintf("appliances[%d].module_idx must be >= 0", i))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.History.RetentionHours < 1 {
		errs = append(errs, "history.retention_hours must be at least 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Appliance returns the configured appliance with the given device ID.
func (c *Config) Appliance(deviceID string) (ApplianceConfig, bool) {
	for _, app := range c.Appliances {
		if app.DeviceID == deviceID {
			return app, true
		}
	}
	return ApplianceConfig{}, false
}

// HistoryRetention returns the history retention as a Duration.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.History.RetentionHours) * time.Hour
}

// PruneInterval returns the history prune interval as a Duration.
func (c *Config) PruneInterval() time.Duration {
	return time.Duration(c.History.PruneIntervalMinutes) * time.Minute
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
