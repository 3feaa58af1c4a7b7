package bridge

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

func TestCommandMessage_RoundTrip(t *testing.T) {
	orig := CommandMessage{
		ID:        "cmd-123",
		Timestamp: time.Date(2026, 8, 25, 18, 30, 0, 0, time.UTC),
		DeviceID:  "a1b2c3d4e5f6",
		Command:   "start_pressure_cook",
		Parameters: map[string]any{
			"pressure":          "high",
			"cook_time_seconds": float64(600),
		},
		Source: "panel",
	}

	data, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"2026-08-25T18:30:00Z"`) {
		t.Errorf("timestamp not RFC3339 in %s", data)
	}

	var got CommandMessage
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.ID != orig.ID || got.DeviceID != orig.DeviceID || got.Command != orig.Command {
		t.Errorf("round trip = %+v, want %+v", got, orig)
	}
	if !got.Timestamp.Equal(orig.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, orig.Timestamp)
	}
	if got.Parameters["pressure"] != "high" {
		t.Errorf("Parameters = %v", got.Parameters)
	}
}

func TestCommandMessage_UnmarshalWithoutTimestamp(t *testing.T) {
	var cmd CommandMessage
	if err := json.Unmarshal([]byte(`{"id":"x","command":"cancel"}`), &cmd); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !cmd.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", cmd.Timestamp)
	}
	if cmd.Command != "cancel" {
		t.Errorf("Command = %q, want cancel", cmd.Command)
	}
}

func TestCommandMessage_UnmarshalBadTimestamp(t *testing.T) {
	var cmd CommandMessage
	err := json.Unmarshal([]byte(`{"command":"cancel","timestamp":"yesterday"}`), &cmd)
	if err == nil {
		t.Fatal("Unmarshal() should reject a malformed timestamp")
	}
}

func TestNewAckError(t *testing.T) {
	cmd := CommandMessage{ID: "cmd-9", DeviceID: "a1b2c3d4e5f6"}
	ack := NewAckError(cmd, ErrCodeCloudRejected, "appliance busy")

	if ack.Status != AckFailed {
		t.Errorf("Status = %q, want %q", ack.Status, AckFailed)
	}
	if ack.CommandID != "cmd-9" || ack.DeviceID != "a1b2c3d4e5f6" {
		t.Errorf("correlation = %s/%s", ack.CommandID, ack.DeviceID)
	}
	if ack.Error == nil || ack.Error.Code != ErrCodeCloudRejected || ack.Error.Message != "appliance busy" {
		t.Errorf("Error = %+v", ack.Error)
	}
	if ack.Protocol != Protocol {
		t.Errorf("Protocol = %q, want %q", ack.Protocol, Protocol)
	}
	if ack.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestNewStateMessage(t *testing.T) {
	received := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	snap := kitchenos.Snapshot{
		DeviceID:    "a1b2c3d4e5f6",
		DeviceState: "cooking",
		Capability: &kitchenos.CapabilityState{
			Name:     "pressure_cook",
			Text:     "Cooking",
			Progress: 0.5,
		},
		ReceivedAt: received,
	}

	msg := NewStateMessage(snap)
	if msg.DeviceID != snap.DeviceID || msg.DeviceState != snap.DeviceState {
		t.Errorf("msg = %+v", msg)
	}
	if !msg.Timestamp.Equal(received) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, received)
	}
	if msg.Capability == nil || msg.Capability.Progress != 0.5 {
		t.Errorf("Capability = %+v", msg.Capability)
	}
	if msg.Protocol != Protocol {
		t.Errorf("Protocol = %q, want %q", msg.Protocol, Protocol)
	}
}

func TestNewAvailabilityMessage(t *testing.T) {
	msg := NewAvailabilityMessage("a1b2c3d4e5f6", false)
	if msg.Available {
		t.Error("Available = true, want false")
	}
	if msg.DeviceID != "a1b2c3d4e5f6" || msg.Protocol != Protocol {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}
}

func TestNewHealthMessage(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)
	msg := NewHealthMessage("fresco", "1.2.3", HealthHealthy, nil, nil, 3, start)

	if msg.Bridge != "fresco" || msg.Version != "1.2.3" {
		t.Errorf("identity = %s/%s", msg.Bridge, msg.Version)
	}
	if msg.Status != HealthHealthy {
		t.Errorf("Status = %q", msg.Status)
	}
	if msg.UptimeSeconds < 89 || msg.UptimeSeconds > 120 {
		t.Errorf("UptimeSeconds = %d, want about 90", msg.UptimeSeconds)
	}
	if msg.AppliancesManaged != 3 {
		t.Errorf("AppliancesManaged = %d, want 3", msg.AppliancesManaged)
	}
}

func TestTopicHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"command", CommandTopic("a1b2c3d4e5f6"), "graylogic/command/fresco/a1b2c3d4e5f6"},
		{"ack", AckTopic("a1b2c3d4e5f6"), "graylogic/ack/fresco/a1b2c3d4e5f6"},
		{"state", StateTopic("a1b2c3d4e5f6"), "graylogic/state/fresco/a1b2c3d4e5f6"},
		{"availability", AvailabilityTopic("a1b2c3d4e5f6"), "graylogic/availability/fresco/a1b2c3d4e5f6"},
		{"health", HealthTopic(), "graylogic/health/fresco"},
		{"command wildcard", CommandSubscribeTopic(), "graylogic/command/fresco/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
