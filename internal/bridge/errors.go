package bridge

import "errors"

// Sentinel errors for bridge operations.
//
// Use errors.Is() to check for specific conditions:
//
//	if errors.Is(err, bridge.ErrNotConfigured) {
//	    // appliance is not in the bridge configuration
//	}
var (
	// ErrNotConfigured indicates the target appliance is not configured.
	ErrNotConfigured = errors.New("bridge: appliance not configured")

	// ErrUnknownCommand indicates an unrecognised command verb.
	ErrUnknownCommand = errors.New("bridge: unknown command")

	// ErrInvalidParameters indicates command parameters failed validation.
	ErrInvalidParameters = errors.New("bridge: invalid parameters")
)
