package alert

import "time"

// Type is the severity class of an alert.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeDanger  Type = "danger"
	TypeSuccess Type = "success"
)

// Parameter names used in alert records and cooldown keys.
const (
	ParamPM25 = "PM2.5"
	ParamPM10 = "PM10"
	ParamAQI  = "AQI"
)

// Alert is one entry in the alert history.
//
// Alerts are immutable after creation except for the Acknowledged flag.
// The history is kept newest-first and capped at 50 entries.
type Alert struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Parameter    string    `json:"parameter"`
	Value        float64   `json:"value"`
	Threshold    float64   `json:"threshold"`
	Location     string    `json:"location"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}

// Settings configures which threshold rules are active and how alerts are
// delivered. One instance lives per engine and is persisted on every
// change.
type Settings struct {
	PM25Alerts        bool    `json:"pm25Alerts"`
	PM25Threshold     float64 `json:"pm25Threshold"`
	PM10Alerts        bool    `json:"pm10Alerts"`
	PM10Threshold     float64 `json:"pm10Threshold"`
	AQIAlerts         bool    `json:"aqiAlerts"`
	AQIThreshold      float64 `json:"aqiThreshold"`
	PushNotifications bool    `json:"pushNotifications"`
	SoundAlerts       bool    `json:"soundAlerts"`
}

// DefaultSettings returns the settings used before any are persisted.
func DefaultSettings() Settings {
	return Settings{
		PM25Alerts:        true,
		PM25Threshold:     25,
		PM10Alerts:        true,
		PM10Threshold:     50,
		AQIAlerts:         true,
		AQIThreshold:      75,
		PushNotifications: true,
		SoundAlerts:       true,
	}
}

// SettingsPatch is a partial settings update. Nil fields are left
// unchanged.
type SettingsPatch struct {
	PM25Alerts        *bool    `json:"pm25Alerts,omitempty"`
	PM25Threshold     *float64 `json:"pm25Threshold,omitempty"`
	PM10Alerts        *bool    `json:"pm10Alerts,omitempty"`
	PM10Threshold     *float64 `json:"pm10Threshold,omitempty"`
	AQIAlerts         *bool    `json:"aqiAlerts,omitempty"`
	AQIThreshold      *float64 `json:"aqiThreshold,omitempty"`
	PushNotifications *bool    `json:"pushNotifications,omitempty"`
	SoundAlerts       *bool    `json:"soundAlerts,omitempty"`
}

// apply merges the patch into settings.
func (p SettingsPatch) apply(s *Settings) {
	if p.PM25Alerts != nil {
		s.PM25Alerts = *p.PM25Alerts
	}
	if p.PM25Threshold != nil {
		s.PM25Threshold = *p.PM25Threshold
	}
	if p.PM10Alerts != nil {
		s.PM10Alerts = *p.PM10Alerts
	}
	if p.PM10Threshold != nil {
		s.PM10Threshold = *p.PM10Threshold
	}
	if p.AQIAlerts != nil {
		s.AQIAlerts = *p.AQIAlerts
	}
	if p.AQIThreshold != nil {
		s.AQIThreshold = *p.AQIThreshold
	}
	if p.PushNotifications != nil {
		s.PushNotifications = *p.PushNotifications
	}
	if p.SoundAlerts != nil {
		s.SoundAlerts = *p.SoundAlerts
	}
}

// Filter selects a subsequence of the alert history.
type Filter string

const (
	FilterAll          Filter = "all"
	FilterActive       Filter = "active"
	FilterAcknowledged Filter = "acknowledged"
	FilterToday        Filter = "today"
)

// Stats summarizes the alert history for the dashboard.
type Stats struct {
	Active       int `json:"active"`
	Acknowledged int `json:"acknowledged"`
	TotalToday   int `json:"totalToday"`
}
