// Package influxdb provides InfluxDB connectivity for the Fresco bridge.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Appliance state samples (cook progress over time)
//   - Appliance availability transitions
//   - Bridge counters (push frames, reconnects, commands)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "graylogic",
//	    Bucket:  "telemetry",
//	}
//
//	client, err := influxdb.Connect(ctx, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write appliance telemetry
//	client.WriteApplianceState("a1b2c3d4e5f6", "cooking", 0.42, time.Now())
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback set with SetOnError. Connection and health check errors are
// returned directly.
//
// # Performance
//
// Writes are batched according to fresco.yaml settings (batch_size,
// flush_interval). This reduces network overhead: a cook session emits a
// push frame roughly every appliance state change, and counters arrive on
// the 30s health cadence.
package influxdb
