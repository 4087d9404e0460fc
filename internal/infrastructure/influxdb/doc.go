// Package influxdb provides the time-series recording layer for sensor
// history.
//
// The package wraps the official InfluxDB v2 Go client with connection
// management, non-blocking batched writes, and health monitoring. When
// InfluxDB is disabled in configuration, Connect returns ErrDisabled and
// callers run without history recording.
//
// Writes never block the caller. Points are buffered by the write API and
// flushed on the configured interval; asynchronous write failures are
// delivered through the SetOnError callback.
package influxdb
