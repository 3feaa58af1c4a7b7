package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-fresco/internal/bridge"
	"github.com/nerrad567/gray-logic-fresco/internal/history"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-fresco/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// CommandBridge executes appliance commands and exposes the configured
// appliance inventory. Implemented by *bridge.Bridge.
type CommandBridge interface {
	Execute(ctx context.Context, deviceID, command string, params map[string]any) (*kitchenos.ExecuteResult, error)
	Appliances() []bridge.Appliance
	Appliance(deviceID string) (bridge.Appliance, bool)
	Statistics() bridge.BridgeStatistics
}

// StateSource reads live appliance state from the push synchronizer.
// Implemented by *kitchenos.Notifications.
type StateSource interface {
	State(deviceID string) (kitchenos.Snapshot, bool)
	Available(deviceID string) bool
	Running() bool
	Stats() kitchenos.NotificationStats
}

// TokenInfo reports cloud session status for diagnostics.
// Implemented by *kitchenos.TokenManager.
type TokenInfo interface {
	Authenticated() bool
	ExpiresAt() time.Time
	SessionInfo() kitchenos.SessionInfo
}

// HistoryStore reads recorded appliance snapshots.
// Implemented by *history.Recorder.
type HistoryStore interface {
	History(ctx context.Context, deviceID string, limit int) ([]history.Entry, error)
}

// CloudFetcher proxies read-only cloud endpoints.
// Implemented by *kitchenos.Client.
type CloudFetcher interface {
	FetchCookingSessions(ctx context.Context) (json.RawMessage, error)
}

// ConnectionChecker reports MQTT broker connectivity.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Bridge  CommandBridge
	Source  StateSource
	Tokens  TokenInfo
	History HistoryStore      // optional: history endpoint returns 503 when nil
	Cloud   CloudFetcher      // optional: cloud proxy endpoint returns 503 when nil
	MQTT    ConnectionChecker // optional: health reports MQTT as disconnected when nil
	Version string
}

// Server is the operations HTTP server for the Fresco bridge.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	logger    *logging.Logger
	bridge    CommandBridge
	source    StateSource
	tokens    TokenInfo
	history   HistoryStore
	cloud     CloudFetcher
	mqtt      ConnectionChecker
	version   string
	startTime time.Time
	server    *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, bridge, source, tokens)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("command bridge is required")
	}
	if deps.Source == nil {
		return nil, fmt.Errorf("state source is required")
	}
	if deps.Tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	// History, Cloud, and MQTT are optional; the endpoints they back degrade
	// to 503 instead of blocking startup.

	return &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		bridge:    deps.Bridge,
		source:    deps.Source,
		tokens:    deps.Tokens,
		history:   deps.History,
		cloud:     deps.Cloud,
		mqtt:      deps.MQTT,
		version:   deps.Version,
		startTime: time.Now(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the HTTP listener in a background
// goroutine. The server can be stopped with Close().
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server starting", "address", s.server.Addr)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
