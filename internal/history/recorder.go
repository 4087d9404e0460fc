package history

import (
	"math"

	"github.com/airsafe/airsafe-core/internal/airquality"
	"github.com/airsafe/airsafe-core/internal/alert"
	"github.com/airsafe/airsafe-core/internal/sensor"
)

// Logger is the minimal logging interface the recorder needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Writer is the time-series sink the recorder writes to.
// *influxdb.Client satisfies it.
type Writer interface {
	WriteSensorReading(device string, sensor string, value float64)
	WriteAirQualityIndex(device string, parameter string, aqi float64, category string)
}

// recordedKeys are the sensor keys worth a time series.
var recordedKeys = map[string]bool{
	sensor.KeyPM1:         true,
	sensor.KeyPM25:        true,
	sensor.KeyPM10:        true,
	sensor.KeyTemperature: true,
	sensor.KeyHumidity:    true,
	sensor.KeyWiFiSignal:  true,
}

// Recorder forwards sensor updates to a time-series writer.
//
// Each update records the value that just arrived. When a particulate
// reading changes, the derived AQI values are recorded alongside it so
// history queries do not have to re-run the classification.
type Recorder struct {
	writer Writer
	device string
	logger Logger
}

// NewRecorder creates a recorder tagging all points with the device name.
func NewRecorder(writer Writer, device string) *Recorder {
	return &Recorder{
		writer: writer,
		device: device,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger used by the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Attach subscribes the recorder to a sensor store.
//
// Returns:
//   - func(): Disposer that detaches the recorder
func (r *Recorder) Attach(store *sensor.Store) func() {
	return store.Subscribe(r.handleUpdate)
}

func (r *Recorder) handleUpdate(update sensor.Update) {
	key := sensor.SensorKey(update.Topic)
	if !recordedKeys[key] {
		return
	}

	value, ok := update.Data.Number(key)
	if !ok {
		r.logger.Debug("skipping non-numeric reading", "sensor", key, "payload", update.Payload)
		return
	}

	r.writer.WriteSensorReading(r.device, key, value)

	if key == sensor.KeyPM25 || key == sensor.KeyPM10 {
		r.recordAQI(update.Data)
	}
}

// recordAQI derives and records AQI series from the current snapshot.
func (r *Recorder) recordAQI(data sensor.Snapshot) {
	pm25, havePM25 := data.Number(sensor.KeyPM25)
	pm10, havePM10 := data.Number(sensor.KeyPM10)

	if havePM25 {
		if reading := airquality.ClassifyPM25(pm25); reading != nil {
			r.writer.WriteAirQualityIndex(r.device, "pm25", reading.AQI, reading.Category.String())
		}
	}
	if havePM10 {
		if reading := airquality.ClassifyPM10(pm10); reading != nil {
			r.writer.WriteAirQualityIndex(r.device, "pm10", reading.AQI, reading.Category.String())
		}
	}
	if havePM25 || havePM10 {
		overallPM25, overallPM10 := math.NaN(), math.NaN()
		if havePM25 {
			overallPM25 = pm25
		}
		if havePM10 {
			overallPM10 = pm10
		}
		if reading := airquality.ClassifyOverall(overallPM25, overallPM10); reading != nil {
			r.writer.WriteAirQualityIndex(r.device, "combined", reading.AQI, reading.Category.String())
		}

		// The alert engine thresholds on a simplified proxy rather than
		// the EPA index; record it too so alert history lines up with
		// the reading history.
		r.writer.WriteSensorReading(r.device, "aqi_proxy", alert.ProxyAQI(zeroIfNaN(overallPM25), zeroIfNaN(overallPM10)))
	}
}

func zeroIfNaN(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
