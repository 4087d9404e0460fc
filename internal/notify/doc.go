// Package notify delivers user-facing notifications.
//
// The core has no platform push integration of its own: notifications
// are published as JSON to a dedicated MQTT topic and picked up by the
// companion app for local or push delivery. The service rate-limits
// air-quality and connection notifications per category and persists the
// cooldown bookkeeping across restarts.
package notify
