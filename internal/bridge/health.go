package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// HealthPublisher is the MQTT interface used for health reports.
// Any MQTTClient satisfies this.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// TokenStatus reports cloud authentication state.
// *kitchenos.TokenManager satisfies this.
type TokenStatus interface {
	Authenticated() bool
	ExpiresAt() time.Time
}

// StatsProvider supplies bridge counters for health reports.
// *Bridge satisfies this.
type StatsProvider interface {
	Statistics() BridgeStatistics
}

// StatsWriter records bridge counters in a time-series store.
// *influxdb.Client satisfies this.
type StatsWriter interface {
	WriteBridgeStats(framesReceived, framesDropped, reconnects, commandsExecuted, commandsFailed uint64)
}

// HealthReporterConfig configures a HealthReporter.
type HealthReporterConfig struct {
	// BridgeID identifies the bridge in reports.
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Interval between periodic reports.
	Interval time.Duration

	// Publisher delivers reports to the MQTT bus. Required.
	Publisher HealthPublisher

	// Source is inspected for push channel health. Required.
	Source StateSource

	// Tokens is inspected for authentication health. Optional.
	Tokens TokenStatus

	// Stats supplies bridge counters. Optional.
	Stats StatsProvider

	// Telemetry receives the counters of each report. Optional.
	Telemetry StatsWriter

	// Endpoint is the push gateway URL included in reports.
	Endpoint string

	// Logger for reporter events. Optional.
	Logger Logger
}

// HealthReporter periodically publishes bridge health to the MQTT bus.
//
// Reports are retained, so monitoring systems read the latest report
// immediately on subscribe. A report is degraded whenever MQTT, the push
// channel or cloud authentication is down, with the reason named in the
// message.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	endpoint  string

	publisher HealthPublisher
	source    StateSource
	tokens    TokenStatus
	stats     StatsProvider
	telemetry StatsWriter

	applianceCount int
	mu             sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a health reporter. The bridge constructs one
// internally; this is exported for tests and standalone use.
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		endpoint:  cfg.Endpoint,
		publisher: cfg.Publisher,
		source:    cfg.Source,
		tokens:    cfg.Tokens,
		stats:     cfg.Stats,
		telemetry: cfg.Telemetry,
		done:      make(chan struct{}),
		logger:    cfg.Logger,
	}
}

// Start begins periodic reporting. The first report is published
// immediately, then every interval until Stop or context cancellation.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop halts reporting and publishes a final stopping report.
// Safe to call more than once.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		h.publishStatus(HealthStopping, "")
	})
}

// PublishNow publishes a report reflecting the current health.
func (h *HealthReporter) PublishNow() {
	status, reason := h.determineStatus()
	h.publishStatus(status, reason)
}

// PublishStarting publishes a one-off starting report.
// Called by the bridge before the report loop begins.
func (h *HealthReporter) PublishStarting() {
	h.publishStatus(HealthStarting, "")
}

// SetApplianceCount updates the appliance count included in reports.
func (h *HealthReporter) SetApplianceCount(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.applianceCount = n
}

// ApplianceCount returns the current appliance count.
func (h *HealthReporter) ApplianceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.applianceCount
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	h.PublishNow()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			h.PublishNow()
		}
	}
}

// determineStatus derives the bridge health from its dependencies.
// Returns the status and, when degraded, a human-readable reason.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "mqtt disconnected"
	}
	if h.source == nil || !h.source.Running() {
		return HealthDegraded, "push synchronizer not running"
	}
	if !h.source.Stats().Connected {
		return HealthDegraded, "push channel disconnected"
	}
	if h.tokens != nil && !h.tokens.Authenticated() {
		return HealthDegraded, "not authenticated with cloud"
	}
	return HealthHealthy, ""
}

// connectionStatus describes the push channel for inclusion in a report.
func (h *HealthReporter) connectionStatus() *ConnectionStatus {
	if h.source == nil {
		return nil
	}

	stats := h.source.Stats()
	conn := &ConnectionStatus{
		Status:   "disconnected",
		Endpoint: h.endpoint,
	}
	if stats.Connected {
		conn.Status = "connected"
		conn.ConnectedSince = stats.ConnectedSince
	}
	return conn
}

// publishStatus builds and publishes one health report, retained, QoS 1.
// Counter snapshots also flow to the stats telemetry writer when one is
// configured, keeping report and telemetry on a single cadence.
func (h *HealthReporter) publishStatus(status HealthStatus, reason string) {
	if h.publisher == nil {
		return
	}

	var stats *BridgeStatistics
	if h.stats != nil {
		s := h.stats.Statistics()
		stats = &s
	}

	msg := NewHealthMessage(h.bridgeID, h.version, status, h.connectionStatus(), stats, h.ApplianceCount(), h.startTime)
	msg.Reason = reason

	payload, err := json.Marshal(msg)
	if err != nil {
		h.logError("marshal health report", "error", err)
		return
	}

	if err := h.publisher.Publish(HealthTopic(), payload, 1, true); err != nil {
		h.logError("publish health report", "error", err)
		return
	}

	h.logDebug("health published", "status", string(status), "reason", reason)

	if h.telemetry != nil && stats != nil {
		h.telemetry.WriteBridgeStats(
			stats.FramesReceived,
			stats.FramesDropped,
			stats.Reconnects,
			stats.CommandsExecuted,
			stats.CommandsFailed,
		)
	}
}

// SetLogger sets the logger for reporter events.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	defer h.loggerMu.Unlock()
	h.logger = logger
}

func (h *HealthReporter) getLogger() Logger {
	h.loggerMu.RLock()
	defer h.loggerMu.RUnlock()
	return h.logger
}

func (h *HealthReporter) logError(msg string, args ...any) {
	if l := h.getLogger(); l != nil {
		l.Error(msg, args...)
	}
}

func (h *HealthReporter) logDebug(msg string, args ...any) {
	if l := h.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}
