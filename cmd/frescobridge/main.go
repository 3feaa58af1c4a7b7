// Gray Logic Fresco - KitchenOS Appliance Bridge
//
// This is the main entry point for the Fresco bridge, the Gray Logic
// component that links cloud-connected kitchen appliances to the local
// MQTT bus. The bridge:
//   - Maintains the Cognito session for the KitchenOS cloud account
//   - Mirrors realtime appliance state from the push gateway onto MQTT
//   - Relays MQTT commands to the cloud REST API
//   - Records state transitions for local history queries
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-fresco/migrations"

	"github.com/nerrad567/gray-logic-fresco/internal/api"
	"github.com/nerrad567/gray-logic-fresco/internal/bridge"
	"github.com/nerrad567/gray-logic-fresco/internal/history"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	configFlag := flag.String("config", "", "path to configuration file (overrides FRESCO_CONFIG)")
	versionFlag := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("frescobridge %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	// This is the Go pattern for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx, *configFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configOverride: Config path from the --config flag, empty if not given
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configOverride string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Fresco bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath(configOverride)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// State history: recorder persists push snapshots, janitor prunes old rows
	recorder := history.NewRecorder(db.DB)
	janitor := history.NewJanitor(recorder, cfg.HistoryRetention(), cfg.PruneInterval())
	janitor.SetLogger(log)
	janitor.Start()
	defer func() {
		log.Info("stopping history janitor")
		janitor.Stop()
	}()
	log.Info("state history enabled",
		"retention_hours", cfg.History.RetentionHours,
		"prune_interval_minutes", cfg.History.PruneIntervalMinutes,
	)

	// Establish the cloud session. Login is eager so bad credentials
	// surface at startup rather than on the first command.
	tokens, err := kitchenos.NewTokenManager(kitchenos.TokenManagerConfig{
		Credentials: kitchenos.Credentials{
			Email:    cfg.Cloud.Email,
			Password: cfg.Cloud.Password,
		},
		ClientID: cfg.Cloud.ClientID,
		Region:   cfg.Cloud.Region,
		Logger:   log,
	})
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}
	if loginErr := tokens.Login(ctx); loginErr != nil {
		return fmt.Errorf("cloud login: %w", loginErr)
	}
	log.Info("cloud session established",
		"region", cfg.Cloud.Region,
		"expires_at", tokens.ExpiresAt().UTC(),
	)

	// REST client for commands and account queries
	cloudClient, err := kitchenos.NewClient(kitchenos.ClientConfig{
		BaseURL: cfg.Cloud.APIBase,
		Tokens:  tokens,
		Logger:  log,
	})
	if err != nil {
		return fmt.Errorf("creating cloud client: %w", err)
	}

	// Push synchroniser: one websocket feeding the appliance state cache
	push, err := kitchenos.NewNotifications(kitchenos.NotificationsConfig{
		URL:    cfg.Cloud.NotificationsURL,
		Tokens: tokens,
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating push synchroniser: %w", err)
	}
	push.Start()
	defer func() {
		log.Info("stopping push synchroniser")
		push.Stop()
	}()
	log.Info("push synchroniser started", "url", cfg.Cloud.NotificationsURL)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Start the Fresco bridge (MQTT <-> cloud relay)
	frescoBridge, err := startBridge(ctx, cfg, mqttClient, cloudClient, push, tokens, recorder, influxClient, log)
	if err != nil {
		return fmt.Errorf("starting fresco bridge: %w", err)
	}
	defer func() {
		log.Info("stopping fresco bridge")
		frescoBridge.Stop()
	}()

	// Start REST API server (optional)
	var apiServer *api.Server
	if cfg.API.Enabled {
		apiServer, err = startAPI(ctx, cfg, frescoBridge, push, tokens, recorder, cloudClient, mqttClient, log)
		if err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			log.Info("stopping API server")
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient, apiServer); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server (if enabled)
	// 2. Fresco bridge
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Push synchroniser
	// 6. History janitor
	// 7. Database

	log.Info("Fresco bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Precedence: --config flag, FRESCO_CONFIG environment variable, default.
func getConfigPath(override string) string {
	if override != "" {
		return override
	}
	if path := os.Getenv("FRESCO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//   - apiServer: API server to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client, apiServer *api.Server) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// Check API server (if enabled)
	if apiServer != nil {
		if err := apiServer.HealthCheck(ctx); err != nil {
			return fmt.Errorf("api: %w", err)
		}
	}

	// Push synchroniser health is not gated here: the websocket reconnects
	// on its own schedule, and the bridge reports its state via MQTT
	// availability and health topics.

	return nil
}

// startBridge wires up and starts the MQTT <-> cloud bridge.
//
// Parameters:
//   - ctx: Context for startup/cancellation
//   - cfg: Application configuration
//   - mqttClient: MQTT client for publishing/subscribing
//   - cloudClient: Cloud REST client used to execute commands
//   - push: Push synchroniser supplying realtime state
//   - tokens: Token manager reporting authentication state
//   - recorder: State history recorder
//   - influxClient: InfluxDB client for telemetry (may be nil if disabled)
//   - log: Logger instance
//
// Returns:
//   - *bridge.Bridge: Running bridge
//   - error: If the bridge fails to start
func startBridge(ctx context.Context, cfg *config.Config, mqttClient *mqtt.Client, cloudClient *kitchenos.Client, push *kitchenos.Notifications, tokens *kitchenos.TokenManager, recorder *history.Recorder, influxClient *influxdb.Client, log *logging.Logger) (*bridge.Bridge, error) {
	// Convert config types
	appliances := make([]bridge.Appliance, 0, len(cfg.Appliances))
	for _, app := range cfg.Appliances {
		appliances = append(appliances, bridge.Appliance{
			DeviceID:  app.DeviceID,
			ModuleIdx: app.ModuleIdx,
			Name:      app.Name,
		})
	}

	// Create MQTT adapter to satisfy the bridge interface
	mqttAdapter := &mqttBridgeAdapter{client: mqttClient}

	opts := bridge.BridgeOptions{
		BridgeID:   cfg.Bridge.ID,
		Version:    version,
		Appliances: appliances,
		MQTT:       mqttAdapter,
		Executor:   cloudClient,
		Source:     push,
		Tokens:     tokens,
		Recorder:   recorder,
		Endpoint:   cfg.Cloud.NotificationsURL,
		Logger:     log,
	}
	// Assign only when non-nil: a nil *influxdb.Client stored in the
	// interface field would dodge the bridge's nil checks.
	if influxClient != nil {
		opts.Telemetry = influxClient
		opts.StatsTelemetry = influxClient
	}

	frescoBridge, err := bridge.NewBridge(opts)
	if err != nil {
		return nil, fmt.Errorf("creating fresco bridge: %w", err)
	}

	if err := frescoBridge.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting fresco bridge: %w", err)
	}
	log.Info("fresco bridge started", "appliances", len(appliances))

	return frescoBridge, nil
}

// startAPI wires up and starts the local REST API server.
//
// Parameters:
//   - ctx: Context for startup/cancellation
//   - cfg: Application configuration
//   - frescoBridge: Bridge handling command execution
//   - push: Push synchroniser supplying realtime state
//   - tokens: Token manager for session diagnostics
//   - recorder: State history store
//   - cloudClient: Cloud REST client for diagnostic proxies
//   - mqttClient: MQTT client for connectivity reporting
//   - log: Logger instance
//
// Returns:
//   - *api.Server: Running API server
//   - error: If the server fails to start
func startAPI(ctx context.Context, cfg *config.Config, frescoBridge *bridge.Bridge, push *kitchenos.Notifications, tokens *kitchenos.TokenManager, recorder *history.Recorder, cloudClient *kitchenos.Client, mqttClient *mqtt.Client, log *logging.Logger) (*api.Server, error) {
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		Logger:  log,
		Bridge:  frescoBridge,
		Source:  push,
		Tokens:  tokens,
		History: recorder,
		Cloud:   cloudClient,
		MQTT:    mqttClient,
		Version: version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}

	if err := apiServer.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	log.Info("API server started",
		"addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	return apiServer, nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
