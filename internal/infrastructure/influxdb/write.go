package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names used by the bridge.
const (
	measurementApplianceState = "appliance_state"
	measurementAvailability   = "availability"
	measurementBridgeStats    = "bridge_stats"
)

// WriteApplianceState writes one appliance state sample.
//
// The write is non-blocking; data is batched and sent asynchronously.
// The sample is stamped with the snapshot time, not the write time, so
// delayed push frames land at the moment the cloud observed them.
//
// Parameters:
//   - deviceID: Cloud appliance identifier
//   - state: Top-level appliance state (e.g. "cooking", "idle"), stored
//     as a tag for cheap filtering
//   - progress: Capability progress in [0,1], 0 when idle
//   - ts: Snapshot receive time
//
// Example:
//
//	client.WriteApplianceState("a1b2c3d4e5f6", "cooking", 0.42, snap.ReceivedAt)
func (c *Client) WriteApplianceState(deviceID, state string, progress float64, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		measurementApplianceState,
		map[string]string{
			"device_id": deviceID,
			"state":     state,
		},
		map[string]interface{}{
			"progress": progress,
		},
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WriteAvailability writes an appliance availability transition as 0/1,
// which graphs cleanly as an uptime band.
//
// Parameters:
//   - deviceID: Cloud appliance identifier
//   - available: Whether the appliance is currently reachable
func (c *Client) WriteAvailability(deviceID string, available bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if available {
		value = 1
	}

	point := write.NewPoint(
		measurementAvailability,
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"available": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBridgeStats writes cumulative bridge counters.
//
// Written on the health reporting cadence. All counters are cumulative,
// so rates derive from difference queries.
//
// Parameters:
//   - framesReceived: State frames accepted from the push channel
//   - framesDropped: Malformed or incomplete push frames
//   - reconnects: Push channel reconnections
//   - commandsExecuted: Commands accepted by the cloud
//   - commandsFailed: Commands that failed validation or delivery
func (c *Client) WriteBridgeStats(framesReceived, framesDropped, reconnects, commandsExecuted, commandsFailed uint64) {
	if !c.IsConnected() {
		return
	}

	// #nosec G115 -- counters are far below int64 range
	point := write.NewPoint(
		measurementBridgeStats,
		map[string]string{
			"bridge": "fresco",
		},
		map[string]interface{}{
			"frames_received":   int64(framesReceived),
			"frames_dropped":    int64(framesDropped),
			"reconnects":        int64(reconnects),
			"commands_executed": int64(commandsExecuted),
			"commands_failed":   int64(commandsFailed),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("cook_sessions",
//	    map[string]string{"device_id": "a1b2c3d4e5f6"},
//	    map[string]interface{}{"duration_seconds": 1800})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}
