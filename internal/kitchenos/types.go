package kitchenos

import (
	"encoding/json"
	"time"
)

// Logger interface for optional logging.
// Satisfied by *logging.Logger and by *slog.Logger.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Credentials holds the KitchenOS account credentials.
type Credentials struct {
	Email    string
	Password string
}

// CapabilityDocument is one capability reference plus its settings, the unit
// of the cooking command vocabulary.
type CapabilityDocument struct {
	ReferenceCapabilityID string    `json:"reference_capability_id"`
	Settings              []Setting `json:"settings,omitempty"`
}

// Setting is a single typed setting within a capability document.
type Setting struct {
	ReferenceSettingID string       `json:"reference_setting_id"`
	Value              SettingValue `json:"value"`
}

// SettingValue is the typed value of a setting.
//
// The wire format mirrors the vendor API exactly: nominal values carry a
// reference value ID and no "value" key; numeric values carry a unit;
// unused reference fields are serialised as explicit nulls.
type SettingValue struct {
	Type             string  `json:"type"`
	Value            any     `json:"value,omitempty"`
	ReferenceUnitID  *string `json:"reference_unit_id"`
	ReferenceValueID *string `json:"reference_value_id"`
}

// ExecuteRequest describes one command POST to the cooking endpoint.
type ExecuteRequest struct {
	// DeviceID is the cloud device identifier.
	DeviceID string

	// ModuleIdx selects the appliance module. Single-module cookers use 0.
	ModuleIdx int

	// Command is one of the Command* constants.
	Command string

	// Capability is the single-capability form used by cooking commands.
	Capability *CapabilityDocument

	// CompositeCapabilities is the multi-capability form. Sent as an empty
	// list when unused; the endpoint requires the key to be present.
	CompositeCapabilities []CapabilityDocument
}

// ExecuteResult is the outcome of a successful command POST.
//
// The cloud is inconsistent about response bodies: commands commonly return
// 202 with an empty body, sometimes a JSON document, occasionally opaque
// text. Exactly one of Body and Text is set when the body was non-empty.
type ExecuteResult struct {
	// Status is the HTTP status code (one of 200, 201, 202, 204).
	Status int `json:"status"`

	// Body is the parsed JSON response body, if the body was valid JSON.
	Body json.RawMessage `json:"body,omitempty"`

	// Text is the raw response body when it was non-empty but not JSON.
	Text string `json:"text,omitempty"`
}

// UserProfile is the account profile returned by GET /user/.
// Appliance entries are the source of device IDs for configuration.
type UserProfile struct {
	ID         string         `json:"id"`
	Email      string         `json:"email"`
	Appliances []ApplianceRef `json:"appliances"`
}

// ApplianceRef is one cloud-registered appliance in the user profile.
type ApplianceRef struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	ModelID  string `json:"model_id"`
}

// SessionInfo carries diagnostic claims from the identity token.
//
// Claims are parsed without signature verification and must never be used
// for authorisation decisions.
type SessionInfo struct {
	Authenticated  bool       `json:"authenticated"`
	Subject        string     `json:"subject,omitempty"`
	Email          string     `json:"email,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	ClaimsExpireAt *time.Time `json:"claims_expire_at,omitempty"`
}

// CapabilityState is the normalised capability portion of a push frame.
type CapabilityState struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Text     string  `json:"text,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Type     string  `json:"type,omitempty"`
}

// Snapshot is the last known state of one appliance, built from push frames.
type Snapshot struct {
	DeviceID    string           `json:"device_id"`
	DeviceState string           `json:"device_state"`
	Capability  *CapabilityState `json:"capability,omitempty"`
	ReceivedAt  time.Time        `json:"received_at"`
}

// ListenerFunc receives state snapshots for a subscribed device.
//
// Listeners are invoked on the notification pump goroutine in frame arrival
// order and must not block. Availability transitions are signalled by
// invoking the listener with the current snapshot; re-read Available to
// observe the flag.
type ListenerFunc func(Snapshot)

// NotificationStats holds operational statistics for the push connection.
type NotificationStats struct {
	Running         bool       `json:"running"`
	Connected       bool       `json:"connected"`
	ConnectedSince  *time.Time `json:"connected_since,omitempty"`
	FramesReceived  uint64     `json:"frames_received"`
	FramesDropped   uint64     `json:"frames_dropped"`
	AdvisoryFrames  uint64     `json:"advisory_frames"`
	ListenerPanics  uint64     `json:"listener_panics"`
	ReconnectsTotal uint64     `json:"reconnects_total"`
	DevicesSeen     int        `json:"devices_seen"`
}
