// Package mqtt provides MQTT client connectivity for the Fresco bridge.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT as its local message bus: home-automation
// controllers send cooking commands over MQTT and receive appliance
// state, availability, and health messages in return. The broker
// (Mosquitto) decouples the controllers from the Fresco cloud protocol.
//
//	Home Automation ↔ MQTT Broker ↔ Fresco Bridge ↔ KitchenOS Cloud
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all commands addressed to this bridge
//	err = client.Subscribe(mqtt.Topics{}.AllBridgeCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish appliance state (retained)
//	topic := mqtt.Topics{}.BridgeState("fresco", "a1b2c3d4e5f6")
//	client.Publish(topic, payload, 1, true)
package mqtt
