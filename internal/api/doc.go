// Package api implements the operations HTTP API for the Fresco bridge.
//
// This package provides:
//   - Health and metrics endpoints for monitoring the bridge
//   - Appliance state, history, and command execution endpoints
//   - Cloud session diagnostics (token claims, cooking session proxy)
//   - Middleware stack (request ID, logging, recovery, body size limit)
//
// # Architecture
//
// The API server sits alongside the MQTT surface and exposes the same
// command vocabulary over REST. Commands execute synchronously against the
// KitchenOS cloud and return the cloud's verdict. State reads come from the
// push synchronizer's snapshot map rather than the cloud, so they are cheap
// and keep working through cloud outages.
//
// # Security
//
// The server binds to localhost by default and carries no authentication.
// Exposing it beyond the local machine requires a reverse proxy that
// terminates TLS and enforces access control.
//
// # Graceful Degradation
//
// The history store, cloud client, and MQTT checker are optional
// dependencies. Endpoints backed by a missing dependency return 503; the
// rest of the API keeps working.
package api
