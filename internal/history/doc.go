// Package history records sensor readings to the time-series store.
//
// A Recorder subscribes to the sensor state store and forwards each
// numeric reading to InfluxDB, tagged with the device name. Particulate
// updates additionally record the derived AQI series (per pollutant and
// combined) so dashboards can query history without re-classifying.
package history
