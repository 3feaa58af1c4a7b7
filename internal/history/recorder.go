// Package history persists appliance state snapshots to SQLite,
// giving the bridge a local audit trail that survives cloud outages
// and restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-fresco/internal/kitchenos"
)

// Snapshot source values.
const (
	// SourcePush marks rows recorded from realtime push frames.
	SourcePush = "push"

	// SourceAvailability marks rows recorded on availability transitions.
	SourceAvailability = "availability"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry represents a single recorded appliance snapshot.
type Entry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// DeviceID is the cloud identifier of the appliance.
	DeviceID string `json:"device_id"`

	// DeviceState is the appliance phase string at the time of the snapshot.
	DeviceState string `json:"device_state"`

	// Capability is the cooking-program payload, nil when the appliance was idle.
	Capability *kitchenos.CapabilityState `json:"capability,omitempty"`

	// Source identifies how the row was recorded (push, availability).
	Source string `json:"source"`

	// CreatedAt is the snapshot timestamp (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// Recorder stores and retrieves appliance snapshot history in the
// state_history table.
//
// All methods are safe for concurrent use; timestamps are UTC.
type Recorder struct {
	db *sql.DB
}

// NewRecorder creates a new snapshot history recorder.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *Recorder: Recorder instance ready for use
func NewRecorder(db *sql.DB) *Recorder {
	return &Recorder{db: db}
}

// Record inserts a history row for an appliance snapshot.
//
// The snapshot's ReceivedAt timestamp is stored as created_at so rows
// reflect when the state was observed, not when the insert ran. A zero
// ReceivedAt falls back to the current time.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - snap: Snapshot to persist
//   - source: Origin of the row (push, availability); empty defaults to push
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Recorder) Record(ctx context.Context, snap kitchenos.Snapshot, source string) error {
	if snap.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if source == "" {
		source = SourcePush
	}

	var capabilityJSON any
	if snap.Capability != nil {
		b, err := json.Marshal(snap.Capability)
		if err != nil {
			return fmt.Errorf("marshalling capability: %w", err)
		}
		capabilityJSON = string(b)
	}

	createdAt := snap.ReceivedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO state_history (device_id, device_state, capability, source, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.DeviceID,
		snap.DeviceState,
		capabilityJSON,
		source,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}

	return nil
}

// History returns recent snapshot rows for a device, ordered newest first.
//
// Rows sharing a second-resolution timestamp are tie-broken by insert
// order so frame ordering within a second is preserved.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Cloud identifier of the appliance
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Recorder) History(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, device_state, capability, source, created_at
		 FROM state_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var capabilityJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.DeviceState, &capabilityJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}

		if capabilityJSON.Valid && capabilityJSON.String != "" {
			var capState kitchenos.CapabilityState
			if err := json.Unmarshal([]byte(capabilityJSON.String), &capState); err != nil {
				return nil, fmt.Errorf("unmarshalling capability: %w", err)
			}
			entry.Capability = &capState
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes history rows older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (rows older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Recorder) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}

	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
