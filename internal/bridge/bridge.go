// Package bridge relays commands and state between the Gray Logic MQTT bus
// and KitchenOS cloud appliances.
//
// The bridge subscribes to per-appliance command topics, translates each
// command into a KitchenOS capability request, and publishes the outcome as
// an acknowledgement. In the other direction it subscribes to the realtime
// push feed and mirrors every snapshot onto retained state topics, so
// automations and dashboards always see the last known appliance state
// without touching the cloud.
//
// Architecture:
//
//	MQTT bus ──── command ───> Bridge ──── REST ───> KitchenOS cloud
//	MQTT bus <─── state ────── Bridge <─── push ──── KitchenOS cloud
//
// The bridge owns no transport of its own. The MQTT connection, the REST
// executor and the push synchronizer are injected through interfaces, which
// keeps the package testable without a broker or a cloud account.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-fresco/internal/history"
	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

const (
	// minTopicParts is the minimum topic depth for a routable message
	// (prefix/kind/protocol/device).
	minTopicParts = 4

	// commandTimeout bounds one cloud command, including the token
	// refresh and credential fallback attempts behind it.
	commandTimeout = 60 * time.Second

	// defaultHealthInterval between health reports when not configured.
	defaultHealthInterval = 30 * time.Second
)

// =============================================================================
// Dependencies
// =============================================================================

// Appliance describes one cloud appliance managed by the bridge.
type Appliance struct {
	// DeviceID is the cloud appliance identifier.
	DeviceID string

	// ModuleIdx selects the appliance module, 0 for single-module devices.
	ModuleIdx int

	// Name is a human-readable label used in logs.
	Name string
}

// MQTTClient defines the MQTT operations the bridge requires.
// *mqtt.Client satisfies this via a thin adapter in cmd/frescobridge.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	IsConnected() bool
}

// CommandExecutor sends capability commands to the KitchenOS cloud.
// *kitchenos.Client satisfies this.
type CommandExecutor interface {
	Execute(ctx context.Context, req kitchenos.ExecuteRequest) (*kitchenos.ExecuteResult, error)
}

// StateSource exposes the realtime appliance state feed.
// *kitchenos.Notifications satisfies this.
type StateSource interface {
	AddListener(deviceID string, fn kitchenos.ListenerFunc) func()
	State(deviceID string) (kitchenos.Snapshot, bool)
	Available(deviceID string) bool
	Running() bool
	Stats() kitchenos.NotificationStats
}

// HistoryRecorder persists appliance snapshots.
// *history.Recorder satisfies this.
type HistoryRecorder interface {
	Record(ctx context.Context, snap kitchenos.Snapshot, source string) error
}

// TelemetryWriter records appliance measurements in a time-series store.
// *influxdb.Client satisfies this.
type TelemetryWriter interface {
	WriteApplianceState(deviceID, state string, progress float64, ts time.Time)
	WriteAvailability(deviceID string, available bool)
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
}

// =============================================================================
// Bridge
// =============================================================================

// BridgeOptions configures a new Bridge.
type BridgeOptions struct {
	// BridgeID identifies this bridge instance in health reports.
	// Defaults to "fresco".
	BridgeID string

	// Version is the build version reported in health messages.
	Version string

	// Appliances lists the cloud appliances to manage.
	Appliances []Appliance

	// MQTT is the broker connection. Required.
	MQTT MQTTClient

	// Executor sends commands to the cloud. Required.
	Executor CommandExecutor

	// Source supplies realtime appliance state. Required.
	Source StateSource

	// Tokens reports authentication state for health. Optional.
	Tokens TokenStatus

	// Recorder persists snapshots to the state history. Optional.
	Recorder HistoryRecorder

	// Telemetry records appliance measurements. Optional.
	Telemetry TelemetryWriter

	// StatsTelemetry records bridge counters alongside each health
	// report. Optional.
	StatsTelemetry StatsWriter

	// HealthInterval between health reports. Defaults to 30s.
	HealthInterval time.Duration

	// Endpoint is the push gateway URL shown in health reports. Optional.
	Endpoint string

	// Logger for structured logging. Optional.
	Logger Logger
}

// Bridge relays commands and state between MQTT and the KitchenOS cloud.
//
// Thread Safety: all exported methods are safe for concurrent use.
type Bridge struct {
	bridgeID string
	version  string

	mqtt      MQTTClient
	executor  CommandExecutor
	source    StateSource
	recorder  HistoryRecorder
	telemetry TelemetryWriter

	appliances map[string]Appliance

	health *HealthReporter

	// lastAvail tracks the last published availability per appliance,
	// so only transitions reach the retained availability topics.
	lastAvail   map[string]bool
	lastAvailMu sync.Mutex

	commandsExecuted atomic.Uint64
	commandsFailed   atomic.Uint64

	// detach releases the push listeners registered in Start.
	detach []func()

	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge from the given options.
//
// Returns an error if a required dependency is missing or an appliance
// entry has no device ID.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTT == nil {
		return nil, fmt.Errorf("mqtt client is required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("command executor is required")
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("state source is required")
	}

	bridgeID := opts.BridgeID
	if bridgeID == "" {
		bridgeID = Protocol
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	interval := opts.HealthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}

	appliances := make(map[string]Appliance, len(opts.Appliances))
	for _, app := range opts.Appliances {
		if app.DeviceID == "" {
			return nil, fmt.Errorf("appliance %q has no device ID", app.Name)
		}
		appliances[app.DeviceID] = app
	}

	ctx, cancel := context.WithCancel(context.Background())

	b := &Bridge{
		bridgeID:   bridgeID,
		version:    version,
		mqtt:       opts.MQTT,
		executor:   opts.Executor,
		source:     opts.Source,
		recorder:   opts.Recorder,
		telemetry:  opts.Telemetry,
		appliances: appliances,
		lastAvail:  make(map[string]bool, len(appliances)),
		ctx:        ctx,
		ctxCancel:  cancel,
		logger:     opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  bridgeID,
		Version:   version,
		Interval:  interval,
		Publisher: opts.MQTT,
		Source:    opts.Source,
		Tokens:    opts.Tokens,
		Stats:     b,
		Telemetry: opts.StatsTelemetry,
		Endpoint:  opts.Endpoint,
		Logger:    opts.Logger,
	})

	return b, nil
}

// Start connects the bridge to the MQTT bus and the realtime feed.
//
// It subscribes to the command wildcard, registers a push listener for
// every configured appliance, seeds the retained availability topics and
// starts periodic health reporting. Registering a listener replays the
// current snapshot synchronously, so state topics for already-known
// appliances are populated before Start returns.
//
// Call Stop to release the resources acquired here. Start must be called
// at most once.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.mqtt.Subscribe(CommandSubscribeTopic(), 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe commands: %w", err)
	}

	b.health.PublishStarting()

	if len(b.appliances) == 0 {
		b.logWarn("no appliances configured, bridge will only report health")
	}

	for id := range b.appliances {
		detach := b.source.AddListener(id, b.handleSnapshot)
		b.detach = append(b.detach, detach)
	}

	// Seed availability for appliances the replay above did not cover.
	for id := range b.appliances {
		b.setAvailability(id, b.source.Available(id))
	}

	b.health.SetApplianceCount(len(b.appliances))
	b.health.Start(ctx)

	b.logInfo("fresco bridge started",
		"bridge_id", b.bridgeID,
		"appliances", len(b.appliances))

	return nil
}

// Stop gracefully shuts down the bridge.
//
// It detaches the push listeners, cancels in-flight commands and stops
// the health reporter, which publishes a final stopping report. Safe to
// call more than once.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.logInfo("stopping fresco bridge")

		for _, detach := range b.detach {
			detach()
		}
		b.detach = nil

		b.ctxCancel()
		b.health.Stop()

		b.logInfo("fresco bridge stopped")
	})
}

// =============================================================================
// Command Handling (MQTT -> cloud)
// =============================================================================

// handleMQTTMessage routes inbound MQTT messages by topic.
//
// Expected topic form: graylogic/command/fresco/{device_id}.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	parts := strings.Split(topic, "/")
	if len(parts) < minTopicParts {
		b.logDebug("ignoring message on short topic", "topic", topic)
		return
	}

	switch parts[1] {
	case "command":
		b.handleCommand(parts[3], payload)
	default:
		b.logDebug("unhandled topic", "topic", topic)
	}
}

// handleCommand processes a command message and publishes the acknowledgement.
//
// The device ID falls back to the topic segment when the payload omits it,
// and a missing command ID is replaced with a generated UUID so the ack
// always correlates. The ack carries the real cloud outcome: the command
// round-trip is a synchronous REST call, so there is no accepted-but-
// pending window to report.
func (b *Bridge) handleCommand(topicDevice string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("invalid command payload", "topic_device", topicDevice, "error", err)
		return
	}

	if cmd.DeviceID == "" {
		cmd.DeviceID = topicDevice
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	b.logDebug("command received",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command,
		"source", cmd.Source)

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	if _, err := b.Execute(ctx, cmd.DeviceID, cmd.Command, cmd.Parameters); err != nil {
		code := classifyError(err)
		b.logError("command failed",
			"command_id", cmd.ID,
			"device_id", cmd.DeviceID,
			"command", cmd.Command,
			"code", code,
			"error", err)
		b.publishAck(NewAckError(cmd, code, err.Error()))
		return
	}

	b.logInfo("command executed",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)
	b.publishAck(NewAckMessage(cmd, AckAccepted))
}

// Execute translates a named command into a capability request and sends
// it to the cloud.
//
// Shared by the MQTT command handler and the HTTP API. Unknown devices
// return ErrNotConfigured, unknown verbs ErrUnknownCommand, and malformed
// parameters ErrInvalidParameters or a kitchenos validation error. Cloud
// failures pass through unwrapped for the caller to classify.
func (b *Bridge) Execute(ctx context.Context, deviceID, command string, params map[string]any) (*kitchenos.ExecuteResult, error) {
	app, ok := b.appliances[deviceID]
	if !ok {
		b.commandsFailed.Add(1)
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, deviceID)
	}

	req, err := buildExecuteRequest(app, command, params)
	if err != nil {
		b.commandsFailed.Add(1)
		return nil, err
	}

	res, err := b.executor.Execute(ctx, req)
	if err != nil {
		b.commandsFailed.Add(1)
		return nil, err
	}

	b.commandsExecuted.Add(1)
	return res, nil
}

// buildExecuteRequest maps a command verb and its parameters onto a
// KitchenOS capability request for the given appliance.
func buildExecuteRequest(app Appliance, command string, params map[string]any) (kitchenos.ExecuteRequest, error) {
	req := kitchenos.ExecuteRequest{
		DeviceID:  app.DeviceID,
		ModuleIdx: app.ModuleIdx,
	}

	switch command {
	case "start_pressure_cook":
		capability, err := pressureCookStartCapability(params)
		if err != nil {
			return req, err
		}
		req.Command = kitchenos.CommandStart
		req.Capability = capability

	case "update_pressure_cook":
		capability, err := pressureCookUpdateCapability(params)
		if err != nil {
			return req, err
		}
		req.Command = kitchenos.CommandUpdate
		req.Capability = capability

	case "start_keep_warm":
		capability, err := keepWarmStartCapability(params)
		if err != nil {
			return req, err
		}
		req.Command = kitchenos.CommandStart
		req.Capability = capability

	case "update_keep_warm":
		capability, err := keepWarmUpdateCapability(params)
		if err != nil {
			return req, err
		}
		req.Command = kitchenos.CommandUpdate
		req.Capability = capability

	case "cancel":
		// Cancel addresses whatever is running; no capability payload.
		req.Command = kitchenos.CommandCancel

	default:
		return req, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}

	return req, nil
}

// pressureCookStartCapability translates MQTT parameters into a pressure
// cook start capability. Missing required parameters surface as kitchenos
// validation errors.
func pressureCookStartCapability(params map[string]any) (*kitchenos.CapabilityDocument, error) {
	pressure, _, err := stringParam(params, "pressure")
	if err != nil {
		return nil, err
	}
	cookTime, _, err := intParam(params, "cook_time_seconds")
	if err != nil {
		return nil, err
	}
	venting, _, err := stringParam(params, "venting")
	if err != nil {
		return nil, err
	}
	ventTime, _, err := intParam(params, "vent_time_seconds")
	if err != nil {
		return nil, err
	}
	nutriBoost, _, err := boolParam(params, "nutri_boost")
	if err != nil {
		return nil, err
	}

	return kitchenos.PressureCookStartCapability(kitchenos.PressureCookStart{
		Pressure:        kitchenos.PressureLevel(pressure),
		CookTimeSeconds: cookTime,
		Venting:         kitchenos.VentingMode(venting),
		VentTimeSeconds: ventTime,
		NutriBoost:      nutriBoost,
	})
}

// pressureCookUpdateCapability translates MQTT parameters into a pressure
// cook update capability. Only parameters present in the message are sent.
func pressureCookUpdateCapability(params map[string]any) (*kitchenos.CapabilityDocument, error) {
	var upd kitchenos.PressureCookUpdate

	pressure, ok, err := stringParam(params, "pressure")
	if err != nil {
		return nil, err
	}
	if ok {
		level := kitchenos.PressureLevel(pressure)
		upd.Pressure = &level
	}

	cookTime, ok, err := intParam(params, "cook_time_seconds")
	if err != nil {
		return nil, err
	}
	if ok {
		upd.CookTimeSeconds = &cookTime
	}

	venting, ok, err := stringParam(params, "venting")
	if err != nil {
		return nil, err
	}
	if ok {
		mode := kitchenos.VentingMode(venting)
		upd.Venting = &mode
	}

	ventTime, ok, err := intParam(params, "vent_time_seconds")
	if err != nil {
		return nil, err
	}
	if ok {
		upd.VentTimeSeconds = &ventTime
	}

	nutriBoost, ok, err := boolParam(params, "nutri_boost")
	if err != nil {
		return nil, err
	}
	if ok {
		upd.NutriBoost = &nutriBoost
	}

	return kitchenos.PressureCookUpdateCapability(upd)
}

// keepWarmStartCapability translates MQTT parameters into a keep warm
// start capability. Temperature and preset are mutually exclusive, which
// the kitchenos builder enforces.
func keepWarmStartCapability(params map[string]any) (*kitchenos.CapabilityDocument, error) {
	temp, _, err := intParam(params, "temperature_c")
	if err != nil {
		return nil, err
	}
	preset, _, err := stringParam(params, "preset")
	if err != nil {
		return nil, err
	}
	duration, _, err := intParam(params, "duration_seconds")
	if err != nil {
		return nil, err
	}

	return kitchenos.KeepWarmStartCapability(kitchenos.KeepWarmStart{
		TempCelsius:     temp,
		Preset:          kitchenos.TemperaturePreset(preset),
		DurationSeconds: duration,
	})
}

// keepWarmUpdateCapability translates MQTT parameters into a keep warm
// update capability.
func keepWarmUpdateCapability(params map[string]any) (*kitchenos.CapabilityDocument, error) {
	temp, _, err := intParam(params, "temperature_c")
	if err != nil {
		return nil, err
	}
	preset, _, err := stringParam(params, "preset")
	if err != nil {
		return nil, err
	}

	upd := kitchenos.KeepWarmUpdate{
		TempCelsius: temp,
		Preset:      kitchenos.TemperaturePreset(preset),
	}

	duration, ok, err := intParam(params, "duration_seconds")
	if err != nil {
		return nil, err
	}
	if ok {
		upd.DurationSeconds = &duration
	}

	return kitchenos.KeepWarmUpdateCapability(upd)
}

// stringParam extracts an optional string parameter.
func stringParam(params map[string]any, key string) (string, bool, error) {
	v, ok := params[key]
	if !ok {
		return "", false, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", false, fmt.Errorf("%w: %s must be a string", ErrInvalidParameters, key)
	}
	return s, true, nil
}

// intParam extracts an optional integer parameter. JSON numbers arrive
// as float64; fractional values are rejected.
func intParam(params map[string]any, key string) (int, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	f, ok := v.(float64)
	if !ok {
		return 0, false, fmt.Errorf("%w: %s must be a number", ErrInvalidParameters, key)
	}
	i := int(f)
	if float64(i) != f {
		return 0, false, fmt.Errorf("%w: %s must be an integer", ErrInvalidParameters, key)
	}
	return i, true, nil
}

// boolParam extracts an optional boolean parameter.
func boolParam(params map[string]any, key string) (bool, bool, error) {
	v, ok := params[key]
	if !ok {
		return false, false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidParameters, key)
	}
	return b, true, nil
}

// classifyError maps a command failure to an acknowledgement error code.
func classifyError(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return ErrCodeNotConfigured
	case errors.Is(err, ErrUnknownCommand):
		return ErrCodeInvalidCommand
	case errors.Is(err, ErrInvalidParameters), errors.Is(err, kitchenos.ErrInvalidCommand):
		return ErrCodeInvalidParameters
	case errors.Is(err, kitchenos.ErrAuthFailed):
		return ErrCodeAuthFailed
	case errors.Is(err, kitchenos.ErrRequestRejected):
		return ErrCodeCloudRejected
	default:
		return ErrCodeCloudUnreachable
	}
}

// publishAck publishes a command acknowledgement, QoS 1, not retained.
func (b *Bridge) publishAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("marshal ack", "command_id", ack.CommandID, "error", err)
		return
	}

	if err := b.mqtt.Publish(AckTopic(ack.DeviceID), payload, 1, false); err != nil {
		b.logError("publish ack",
			"command_id", ack.CommandID,
			"device_id", ack.DeviceID,
			"error", err)
	}
}

// =============================================================================
// State Handling (cloud -> MQTT)
// =============================================================================

// handleSnapshot mirrors one push snapshot onto the MQTT bus.
//
// Runs on the synchronizer's dispatch goroutine, including the synchronous
// replay during listener registration. Availability rides along with
// dispatches: the synchronizer re-delivers the current snapshot when an
// appliance drops off or returns, and the flag is read back here.
func (b *Bridge) handleSnapshot(snap kitchenos.Snapshot) {
	available := b.source.Available(snap.DeviceID)
	b.setAvailability(snap.DeviceID, available)

	if !available {
		// The snapshot content is unchanged on an offline transition,
		// so the retained state topic stays as-is.
		b.recordHistory(snap, history.SourceAvailability)
		return
	}

	b.publishState(snap)
	b.recordHistory(snap, history.SourcePush)

	if b.telemetry != nil {
		var progress float64
		if snap.Capability != nil {
			progress = snap.Capability.Progress
		}
		b.telemetry.WriteApplianceState(snap.DeviceID, snap.DeviceState, progress, snap.ReceivedAt)
	}
}

// setAvailability publishes the retained availability topic when the
// value changes from what was last published.
func (b *Bridge) setAvailability(deviceID string, available bool) {
	b.lastAvailMu.Lock()
	prev, seen := b.lastAvail[deviceID]
	if seen && prev == available {
		b.lastAvailMu.Unlock()
		return
	}
	b.lastAvail[deviceID] = available
	b.lastAvailMu.Unlock()

	b.publishAvailability(deviceID, available)

	if b.telemetry != nil {
		b.telemetry.WriteAvailability(deviceID, available)
	}
}

// publishState publishes a retained state message for a snapshot.
func (b *Bridge) publishState(snap kitchenos.Snapshot) {
	msg := NewStateMessage(snap)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("marshal state", "device_id", snap.DeviceID, "error", err)
		return
	}

	if err := b.mqtt.Publish(StateTopic(snap.DeviceID), payload, 1, true); err != nil {
		b.logError("publish state", "device_id", snap.DeviceID, "error", err)
		return
	}

	b.logDebug("state published",
		"device_id", snap.DeviceID,
		"device_state", snap.DeviceState)
}

// publishAvailability publishes a retained availability message.
func (b *Bridge) publishAvailability(deviceID string, available bool) {
	msg := NewAvailabilityMessage(deviceID, available)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("marshal availability", "device_id", deviceID, "error", err)
		return
	}

	if err := b.mqtt.Publish(AvailabilityTopic(deviceID), payload, 1, true); err != nil {
		b.logError("publish availability", "device_id", deviceID, "error", err)
		return
	}

	b.logInfo("availability changed", "device_id", deviceID, "available", available)
}

// recordHistory persists a snapshot when a recorder is configured.
func (b *Bridge) recordHistory(snap kitchenos.Snapshot, source string) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.Record(b.ctx, snap, source); err != nil {
		b.logError("history record failed", "device_id", snap.DeviceID, "error", err)
	}
}

// =============================================================================
// Introspection
// =============================================================================

// Appliances returns the configured appliances sorted by device ID.
func (b *Bridge) Appliances() []Appliance {
	out := make([]Appliance, 0, len(b.appliances))
	for _, app := range b.appliances {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// Appliance looks up one configured appliance by device ID.
func (b *Bridge) Appliance(deviceID string) (Appliance, bool) {
	app, ok := b.appliances[deviceID]
	return app, ok
}

// Statistics returns cumulative bridge counters, merging push channel
// stats with command counts.
func (b *Bridge) Statistics() BridgeStatistics {
	stats := b.source.Stats()
	return BridgeStatistics{
		FramesReceived:   stats.FramesReceived,
		FramesDropped:    stats.FramesDropped,
		AdvisoryFrames:   stats.AdvisoryFrames,
		ListenerPanics:   stats.ListenerPanics,
		Reconnects:       stats.ReconnectsTotal,
		CommandsExecuted: b.commandsExecuted.Load(),
		CommandsFailed:   b.commandsFailed.Load(),
	}
}

// =============================================================================
// Logging
// =============================================================================

// SetLogger sets the logger for bridge events.
//
// Pass nil to disable logging. Safe to call at any time.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	defer b.loggerMu.Unlock()
	b.logger = logger
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logError(msg string, args ...any) {
	if l := b.getLogger(); l != nil {
		l.Error(msg, args...)
	}
}

func (b *Bridge) logWarn(msg string, args ...any) {
	if l := b.getLogger(); l != nil {
		l.Warn(msg, args...)
	}
}

func (b *Bridge) logInfo(msg string, args ...any) {
	if l := b.getLogger(); l != nil {
		l.Info(msg, args...)
	}
}

func (b *Bridge) logDebug(msg string, args ...any) {
	if l := b.getLogger(); l != nil {
		l.Debug(msg, args...)
	}
}
