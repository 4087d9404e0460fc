// Package sensor holds the live snapshot of sensor readings.
//
// One Store exists per process. Inbound MQTT messages flow through
// Store.HandleMessage, which derives the sensor key from the topic's last
// path segment, applies the payload to the snapshot, and fans the updated
// snapshot out to subscribers (the alert engine, the event log, the
// history recorder) synchronously in registration order.
//
// Payloads are text. Numeric payloads are kept as numbers, everything
// else as strings; the all_data and device_info topics carry JSON objects
// that are shallow-merged field-by-field, with the raw payload stored as
// a fallback when the JSON is malformed. Unknown keys are kept verbatim
// in the snapshot's Extra bucket.
//
// The snapshot is persisted after every applied message as a best-effort
// background write; the in-memory copy is always authoritative.
package sensor
