package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records a single numeric sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - device: Identifier of the reporting sensor node
//   - sensor: The measured quantity (e.g. "pm25", "temperature")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorReading("airsafe-01", "pm25", 12.5)
func (c *Client) WriteSensorReading(device string, sensor string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"device": device,
			"sensor": sensor,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAirQualityIndex records a computed AQI value with its category.
//
// Parameters:
//   - device: Identifier of the reporting sensor node
//   - parameter: The pollutant the index derives from ("pm25", "pm10", "combined")
//   - aqi: The index value
//   - category: The category label (e.g. "moderate")
func (c *Client) WriteAirQualityIndex(device string, parameter string, aqi float64, category string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"air_quality_index",
		map[string]string{
			"device":    device,
			"parameter": parameter,
		},
		map[string]interface{}{
			"aqi":      aqi,
			"category": category,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
// Use this when the timestamp is not "now" (e.g. replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
