// Package kitchenos implements the Fresco KitchenOS cloud client.
//
// KitchenOS is the vendor cloud behind Instant Brands connected appliances
// (Instant Pot Pro Plus and friends). The appliance talks only to the cloud;
// this package is how the bridge reaches the appliance.
//
// # Architecture
//
//	┌─────────────────┐          ┌──────────────────┐  HTTPS/WSS  ┌─────────────┐
//	│   Gray Logic    │   MQTT   │  Fresco Bridge   │◄───────────►│  KitchenOS  │
//	│      Core       │◄────────►│   (this pkg)     │             │    Cloud    │
//	└─────────────────┘          └──────────────────┘             └─────────────┘
//
// Three cooperating pieces:
//
//   - TokenManager owns the credential triple (access, identity, refresh
//     tokens) issued by the vendor's Cognito user pool. It serialises every
//     exchange so concurrent callers trigger at most one refresh-or-login.
//   - Client executes cooking commands against the REST API. The backend
//     accepts identity tokens for writes even though access tokens are the
//     conventional bearer credential, so attempts prefer the identity token
//     and fall back through the access token to a single forced re-login.
//   - Notifications holds one WebSocket to the push gateway, mirrors the
//     last known state per appliance, tracks availability, and fans frames
//     out to registered listeners. Connection loss triggers reconnection
//     with doubling backoff (1s up to 30s).
//
// # Command vocabulary
//
// Cooking commands are capability documents: a reference capability ID plus
// typed settings (nominal, numeric, boolean). The builders in commands.go
// produce documents for the pressure-cook and keep-warm capabilities and
// validate enum values and ranges before anything touches the wire.
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
//
// # Security
//
// Tokens and credentials never appear in log output. Identity token claims
// surfaced by SessionInfo are parsed without signature verification and are
// for diagnostics only.
package kitchenos
