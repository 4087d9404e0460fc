// Package mqtt owns the broker connection for the sensor stream.
//
// The Manager wraps paho.mqtt.golang over WebSocket transport and runs an
// explicit lifecycle state machine: Disconnected, Connecting, Connected,
// Reconnecting, Failed. Paho's own auto-reconnect is disabled; the
// manager applies a fixed retry delay (extended after an abnormal socket
// close), caps consecutive failures, and requires a manual Reconnect once
// the cap is reached.
//
// On connect the manager subscribes to one topic per known sensor key
// plus a namespace wildcard and routes every inbound message to the
// configured MessageSink.
package mqtt
