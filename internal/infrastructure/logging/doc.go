// Package logging provides structured logging for AirSafe Core.
//
// It wraps log/slog with configuration-driven setup: output format
// (JSON/text), level filtering, destination, and default service fields.
//
// Components that need logging accept a small local Logger interface and a
// SetLogger setter rather than importing this package directly; this package
// satisfies those interfaces.
//
// # Usage
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("starting", "broker", cfg.MQTT.Broker.Host)
//
//	mqttLog := log.With("component", "mqtt")
package logging
