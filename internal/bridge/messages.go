package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

// Protocol identifies this bridge on the MQTT bus. It appears as the
// protocol segment in every topic and in outbound message envelopes.
const Protocol = "fresco"

// TopicPrefix is the root namespace for all bridge topics.
const TopicPrefix = "graylogic"

// =============================================================================
// Command Messages (inbound)
// =============================================================================

// CommandMessage is a command received from the MQTT bus.
//
// Commands arrive on graylogic/command/fresco/{device_id}. The device ID may
// be given in the payload or taken from the topic; when both are present the
// payload wins.
//
// Supported commands and their parameters:
//
//	start_pressure_cook   pressure, cook_time_seconds, venting,
//	                      vent_time_seconds, nutri_boost
//	update_pressure_cook  any subset of the start parameters
//	start_keep_warm       temperature_c or preset, duration_seconds
//	update_keep_warm      temperature_c or preset, duration_seconds
//	cancel                (none)
type CommandMessage struct {
	// ID correlates the command with its acknowledgement.
	// Generated by the bridge when the sender omits it.
	ID string `json:"id"`

	// Timestamp is when the command was issued.
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the cloud appliance identifier.
	DeviceID string `json:"device_id,omitempty"`

	// Command is the operation to perform.
	Command string `json:"command"`

	// Parameters carries command-specific arguments.
	Parameters map[string]any `json:"parameters,omitempty"`

	// Source identifies the sender (e.g. "automation", "panel").
	Source string `json:"source,omitempty"`
}

// MarshalJSON implements custom JSON marshaling with RFC3339 timestamps.
func (m CommandMessage) MarshalJSON() ([]byte, error) {
	type Alias CommandMessage
	return json.Marshal(&struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
		Alias:     (*Alias)(&m),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling with RFC3339 timestamps.
// A missing or empty timestamp is left as the zero time rather than rejected,
// since not every controller stamps its commands.
func (m *CommandMessage) UnmarshalJSON(data []byte) error {
	type Alias CommandMessage
	aux := &struct {
		Timestamp string `json:"timestamp"`
		*Alias
	}{
		Alias: (*Alias)(m),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	if aux.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, aux.Timestamp)
		if err != nil {
			return fmt.Errorf("invalid timestamp: %w", err)
		}
		m.Timestamp = t
	}
	return nil
}

// =============================================================================
// Acknowledgement Messages (outbound)
// =============================================================================

// AckStatus reports the outcome of a command.
type AckStatus string

const (
	// AckAccepted means the cloud accepted the command.
	AckAccepted AckStatus = "accepted"

	// AckFailed means validation or cloud delivery failed.
	AckFailed AckStatus = "failed"
)

// Acknowledgement error codes.
const (
	// ErrCodeInvalidCommand is sent for an unrecognised command verb.
	ErrCodeInvalidCommand = "INVALID_COMMAND"

	// ErrCodeInvalidParameters is sent when command parameters fail
	// validation before reaching the cloud.
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"

	// ErrCodeNotConfigured is sent when the target appliance is not
	// in the bridge configuration.
	ErrCodeNotConfigured = "NOT_CONFIGURED"

	// ErrCodeAuthFailed is sent when the cloud rejected our credentials
	// even after a fresh login.
	ErrCodeAuthFailed = "AUTH_FAILED"

	// ErrCodeCloudRejected is sent when the cloud understood the request
	// but refused it.
	ErrCodeCloudRejected = "CLOUD_REJECTED"

	// ErrCodeCloudUnreachable is sent when the cloud could not be reached
	// at the transport level.
	ErrCodeCloudUnreachable = "CLOUD_UNREACHABLE"
)

// AckMessage acknowledges a processed command.
//
// Published to graylogic/ack/fresco/{device_id}, QoS 1, not retained.
type AckMessage struct {
	// CommandID correlates with the originating CommandMessage.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgement was generated.
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the appliance the command addressed.
	DeviceID string `json:"device_id"`

	// Status is the command outcome.
	Status AckStatus `json:"status"`

	// Protocol identifies the handling bridge.
	Protocol string `json:"protocol"`

	// Error holds failure details when Status is AckFailed.
	Error *AckError `json:"error,omitempty"`
}

// AckError carries failure details in an acknowledgement.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewAckMessage creates an acknowledgement for a command.
func NewAckMessage(cmd CommandMessage, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  cmd.DeviceID,
		Status:    status,
		Protocol:  Protocol,
	}
}

// NewAckError creates a failed acknowledgement with error details.
func NewAckError(cmd CommandMessage, code, message string) AckMessage {
	ack := NewAckMessage(cmd, AckFailed)
	ack.Error = &AckError{
		Code:    code,
		Message: message,
	}
	return ack
}

// =============================================================================
// State Messages (outbound)
// =============================================================================

// StateMessage mirrors an appliance snapshot onto the MQTT bus.
//
// Published retained to graylogic/state/fresco/{device_id} so controllers
// read the last known state immediately on subscribe.
type StateMessage struct {
	// DeviceID is the cloud appliance identifier.
	DeviceID string `json:"device_id"`

	// Timestamp is when the snapshot was received from the cloud.
	Timestamp time.Time `json:"timestamp"`

	// DeviceState is the top-level appliance state (e.g. "cooking", "idle").
	DeviceState string `json:"device_state,omitempty"`

	// Capability is the active capability detail, nil when the appliance
	// is idle.
	Capability *kitchenos.CapabilityState `json:"capability,omitempty"`

	// Protocol identifies the publishing bridge.
	Protocol string `json:"protocol"`
}

// NewStateMessage creates a state message from an appliance snapshot.
func NewStateMessage(snap kitchenos.Snapshot) StateMessage {
	return StateMessage{
		DeviceID:    snap.DeviceID,
		Timestamp:   snap.ReceivedAt,
		DeviceState: snap.DeviceState,
		Capability:  snap.Capability,
		Protocol:    Protocol,
	}
}

// =============================================================================
// Availability Messages (outbound)
// =============================================================================

// AvailabilityMessage reports whether an appliance is reachable.
//
// Published retained to graylogic/availability/fresco/{device_id} on every
// transition. An appliance goes unavailable when the cloud reports it
// offline or when the push channel itself is down.
type AvailabilityMessage struct {
	DeviceID  string    `json:"device_id"`
	Timestamp time.Time `json:"timestamp"`
	Available bool      `json:"available"`
	Protocol  string    `json:"protocol"`
}

// NewAvailabilityMessage creates an availability message.
func NewAvailabilityMessage(deviceID string, available bool) AvailabilityMessage {
	return AvailabilityMessage{
		DeviceID:  deviceID,
		Timestamp: time.Now().UTC(),
		Available: available,
		Protocol:  Protocol,
	}
}

// =============================================================================
// Health Messages (outbound)
// =============================================================================

// HealthStatus represents bridge health.
type HealthStatus string

const (
	// HealthStarting is published once during startup.
	HealthStarting HealthStatus = "starting"

	// HealthHealthy means MQTT, the push channel and authentication
	// are all up.
	HealthHealthy HealthStatus = "healthy"

	// HealthDegraded means the bridge is running with impaired
	// functionality, detailed in the Reason field.
	HealthDegraded HealthStatus = "degraded"

	// HealthStopping is published during graceful shutdown.
	HealthStopping HealthStatus = "stopping"
)

// ConnectionStatus describes the cloud push channel in a health report.
type ConnectionStatus struct {
	// Status is "connected" or "disconnected".
	Status string `json:"status"`

	// Endpoint is the push gateway URL.
	Endpoint string `json:"endpoint,omitempty"`

	// ConnectedSince is when the current connection was established.
	ConnectedSince *time.Time `json:"connected_since,omitempty"`
}

// BridgeStatistics aggregates bridge counters for health reports.
type BridgeStatistics struct {
	// FramesReceived counts state frames accepted from the push channel.
	FramesReceived uint64 `json:"frames_received"`

	// FramesDropped counts malformed or incomplete push frames.
	FramesDropped uint64 `json:"frames_dropped"`

	// AdvisoryFrames counts non-state advisory frames.
	AdvisoryFrames uint64 `json:"advisory_frames"`

	// ListenerPanics counts recovered panics in state listeners.
	ListenerPanics uint64 `json:"listener_panics"`

	// Reconnects counts push channel reconnections.
	Reconnects uint64 `json:"reconnects"`

	// CommandsExecuted counts commands accepted by the cloud.
	CommandsExecuted uint64 `json:"commands_executed"`

	// CommandsFailed counts commands that failed validation or delivery.
	CommandsFailed uint64 `json:"commands_failed"`
}

// HealthMessage reports bridge health and statistics.
//
// Published retained to graylogic/health/fresco every reporting interval,
// so monitoring reads the latest report immediately on subscribe.
type HealthMessage struct {
	// Bridge is the reporting bridge instance ID.
	Bridge string `json:"bridge"`

	// Timestamp is when the report was generated.
	Timestamp time.Time `json:"timestamp"`

	// Status is the overall health status.
	Status HealthStatus `json:"status"`

	// Version is the bridge software version.
	Version string `json:"version"`

	// UptimeSeconds is seconds since bridge start.
	UptimeSeconds int64 `json:"uptime_seconds"`

	// Connection describes the cloud push channel.
	Connection *ConnectionStatus `json:"connection,omitempty"`

	// Statistics holds cumulative bridge counters.
	Statistics *BridgeStatistics `json:"statistics,omitempty"`

	// AppliancesManaged is the number of configured appliances.
	AppliancesManaged int `json:"appliances_managed"`

	// Reason explains a degraded status.
	Reason string `json:"reason,omitempty"`
}

// NewHealthMessage creates a health report.
func NewHealthMessage(bridgeID, version string, status HealthStatus, conn *ConnectionStatus, stats *BridgeStatistics, applianceCount int, startTime time.Time) HealthMessage {
	return HealthMessage{
		Bridge:            bridgeID,
		Timestamp:         time.Now().UTC(),
		Status:            status,
		Version:           version,
		UptimeSeconds:     int64(time.Since(startTime).Seconds()),
		Connection:        conn,
		Statistics:        stats,
		AppliancesManaged: applianceCount,
	}
}

// =============================================================================
// Topic Construction
// =============================================================================

// CommandTopic returns the topic on which commands for an appliance arrive.
func CommandTopic(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, deviceID)
}

// AckTopic returns the topic for command acknowledgements.
func AckTopic(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, deviceID)
}

// StateTopic returns the topic for retained appliance state.
func StateTopic(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, deviceID)
}

// AvailabilityTopic returns the topic for retained appliance availability.
func AvailabilityTopic(deviceID string) string {
	return fmt.Sprintf("%s/availability/%s/%s", TopicPrefix, Protocol, deviceID)
}

// HealthTopic returns the topic for periodic bridge health reports.
func HealthTopic() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// CommandSubscribeTopic returns the wildcard subscription matching command
// topics for every appliance. Appliance IDs are opaque cloud identifiers
// with no path separators, so a single-level wildcard is sufficient.
func CommandSubscribeTopic() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, Protocol)
}
