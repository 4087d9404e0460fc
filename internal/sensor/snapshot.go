package sensor

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sensor keys published by the device, one MQTT topic per key.
const (
	KeyPM1         = "pm1"
	KeyPM25        = "pm25"
	KeyPM10        = "pm10"
	KeyTemperature = "temperature"
	KeyHumidity    = "humidity"
	KeyWiFiSignal  = "wifi_signal"
	KeyAirQuality  = "air_quality"
	KeyAlertLevel  = "alert_level"
	KeyStatus      = "status"
	KeyEmergency   = "emergency"
	KeyHealthLevel = "health_level"
	KeyAction      = "action"
	KeyAQIPM25     = "aqi_pm25"
	KeyAQIPM10     = "aqi_pm10"
	KeyAQICombined = "aqi_combined"
	KeyAllData     = "all_data"
	KeyDeviceInfo  = "device_info"
)

// Keys returns the fixed set of known sensor keys in publish order.
// The connection layer subscribes to one topic per key.
func Keys() []string {
	return []string{
		KeyPM1, KeyPM25, KeyPM10,
		KeyTemperature, KeyHumidity, KeyWiFiSignal,
		KeyAirQuality, KeyAlertLevel, KeyStatus, KeyEmergency,
		KeyHealthLevel, KeyAction,
		KeyAQIPM25, KeyAQIPM10, KeyAQICombined,
		KeyAllData, KeyDeviceInfo,
	}
}

// Snapshot is the current value of every sensor reading. Fields are nil
// until the first message for their key arrives.
//
// Unknown keys are kept verbatim in Extra so firmware can add fields
// without breaking older consumers.
type Snapshot struct {
	PM1         *Value
	PM25        *Value
	PM10        *Value
	Temperature *Value
	Humidity    *Value
	WiFiSignal  *Value
	AirQuality  *Value
	AlertLevel  *Value
	Status      *Value
	Emergency   *Value
	HealthLevel *Value
	Action      *Value
	AQIPM25     *Value
	AQIPM10     *Value
	AQICombined *Value

	// AllData and DeviceInfo hold the raw payload of their structured
	// topics when the payload fails to parse as JSON. Well-formed
	// payloads are merged field-by-field instead.
	AllData    *Value
	DeviceInfo *Value

	Extra map[string]string

	// LastUpdate is nil until the first message arrives.
	LastUpdate *time.Time
}

// field returns the address of the struct field backing a known key, or
// nil for unknown keys.
func (s *Snapshot) field(key string) **Value {
	switch key {
	case KeyPM1:
		return &s.PM1
	case KeyPM25:
		return &s.PM25
	case KeyPM10:
		return &s.PM10
	case KeyTemperature:
		return &s.Temperature
	case KeyHumidity:
		return &s.Humidity
	case KeyWiFiSignal:
		return &s.WiFiSignal
	case KeyAirQuality:
		return &s.AirQuality
	case KeyAlertLevel:
		return &s.AlertLevel
	case KeyStatus:
		return &s.Status
	case KeyEmergency:
		return &s.Emergency
	case KeyHealthLevel:
		return &s.HealthLevel
	case KeyAction:
		return &s.Action
	case KeyAQIPM25:
		return &s.AQIPM25
	case KeyAQIPM10:
		return &s.AQIPM10
	case KeyAQICombined:
		return &s.AQICombined
	case KeyAllData:
		return &s.AllData
	case KeyDeviceInfo:
		return &s.DeviceInfo
	}
	return nil
}

// Set stores a value under a sensor key. Known keys go to their struct
// field; anything else is kept verbatim in Extra.
func (s *Snapshot) Set(key string, v Value) {
	if f := s.field(key); f != nil {
		*f = &v
		return
	}
	if s.Extra == nil {
		s.Extra = make(map[string]string)
	}
	s.Extra[key] = v.String()
}

// Get returns the value stored under a key and whether it is present.
func (s *Snapshot) Get(key string) (Value, bool) {
	if f := s.field(key); f != nil {
		if *f == nil {
			return Value{}, false
		}
		return **f, true
	}
	raw, ok := s.Extra[key]
	if !ok {
		return Value{}, false
	}
	return NewValue(raw), true
}

// Number returns the numeric form of the value under a key. The second
// return is false when the key is absent or not numeric.
func (s *Snapshot) Number(key string) (float64, bool) {
	v, ok := s.Get(key)
	if !ok || !v.IsNumeric() {
		return 0, false
	}
	return v.Float(), true
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() Snapshot {
	out := *s
	if s.Extra != nil {
		out.Extra = make(map[string]string, len(s.Extra))
		for k, v := range s.Extra {
			out.Extra[k] = v
		}
	}
	if s.LastUpdate != nil {
		t := *s.LastUpdate
		out.LastUpdate = &t
	}
	return out
}

// MarshalJSON flattens the snapshot into a single JSON object keyed by
// sensor key, with Extra entries at the top level and lastUpdate in
// RFC 3339 form. This matches the shape the snapshot is persisted in.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+18)
	for _, key := range Keys() {
		if v, ok := s.Get(key); ok {
			out[key] = v
		}
	}
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.LastUpdate != nil {
		out["lastUpdate"] = s.LastUpdate.UTC().Format(time.RFC3339Nano)
	} else {
		out["lastUpdate"] = nil
	}
	return json.Marshal(out)
}

// UnmarshalJSON rebuilds a snapshot from its flattened persisted form.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("sensor: decoding snapshot: %w", err)
	}

	*s = Snapshot{}
	for key, msg := range raw {
		if key == "lastUpdate" {
			var ts *string
			if err := json.Unmarshal(msg, &ts); err != nil || ts == nil {
				continue
			}
			if t, err := time.Parse(time.RFC3339Nano, *ts); err == nil {
				s.LastUpdate = &t
			}
			continue
		}

		var v Value
		if err := v.UnmarshalJSON(msg); err != nil {
			continue
		}
		s.Set(key, v)
	}
	return nil
}
