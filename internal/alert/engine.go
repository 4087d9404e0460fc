package alert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airsafe/airsafe-core/internal/sensor"
	"github.com/airsafe/airsafe-core/internal/storage"
)

const (
	// maxAlerts caps the alert history, newest-first.
	maxAlerts = 50

	// cooldown suppresses repeat alerts with the same parameter and
	// type key.
	cooldown = 5 * time.Minute

	// improvementWindow is how far back a PM2.5 warning must exist for
	// a recovery alert to fire once levels drop.
	improvementWindow = 10 * time.Minute

	// retention is how long CleanOldAlerts keeps history entries.
	retention = 7 * 24 * time.Hour

	// alertLocation tags every alert with its originating sensor.
	alertLocation = "Primary Sensor"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Storage is the persistence surface the engine needs. Satisfied by
// *storage.Store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Notification is the payload handed to the notification boundary.
type Notification struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Notifier dispatches notifications for created alerts. Implementations
// must be safe for concurrent use.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// ProxyAQI computes the simplified AQI used for threshold alerting.
//
// This is deliberately not the EPA piecewise-linear AQI computed by the
// airquality package; the two scores serve different consumers and are
// kept independent.
func ProxyAQI(pm25, pm10 float64) float64 {
	aqi25 := pm25 * 2
	aqi10 := pm10 * 1.5
	if aqi25 > aqi10 {
		return aqi25
	}
	return aqi10
}

// Engine evaluates sensor snapshots against the configured thresholds and
// maintains the persisted alert history.
//
// All public methods are thread-safe.
type Engine struct {
	mu         sync.Mutex
	alerts     []Alert
	settings   Settings
	lastAlert  map[string]time.Time
	listeners  []listener
	nextListID int

	storage  Storage
	notifier Notifier
	logger   Logger
	now      func() time.Time
	newID    func() string

	persistTimeout time.Duration
	wg             sync.WaitGroup
}

type listener struct {
	id int
	fn func()
}

// NewEngine creates an alert engine with the given initial settings.
// Pass nil storage to run purely in memory; pass nil notifier to disable
// dispatch.
func NewEngine(st Storage, notifier Notifier, settings Settings) *Engine {
	return &Engine{
		settings:       settings,
		lastAlert:      make(map[string]time.Time),
		storage:        st,
		notifier:       notifier,
		logger:         noopLogger{},
		now:            time.Now,
		newID:          uuid.NewString,
		persistTimeout: 5 * time.Second,
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Subscribe registers a callback invoked synchronously after every change
// to the alert history or its acknowledgement state. The returned
// function removes the subscription.
func (e *Engine) Subscribe(fn func()) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextListID
	e.nextListID++
	e.listeners = append(e.listeners, listener{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, l := range e.listeners {
			if l.id == id {
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// ProcessData evaluates one sensor snapshot against the threshold rules.
// Called on every sensor update.
//
// Missing or non-numeric PM readings are treated as zero for threshold
// comparison, so an absent reading can never breach a threshold but does
// count as recovered for the improvement alert.
func (e *Engine) ProcessData(snap sensor.Snapshot) {
	pm25 := numberOrZero(snap, sensor.KeyPM25)
	pm10 := numberOrZero(snap, sensor.KeyPM10)
	aqi := ProxyAQI(pm25, pm10)

	e.mu.Lock()
	settings := e.settings

	var created []Alert

	if settings.PM25Alerts && pm25 > settings.PM25Threshold {
		created = appendCreated(created, e.createLocked(Alert{
			Type:      TypeWarning,
			Title:     "High PM2.5",
			Message:   fmt.Sprintf("PM2.5 levels have exceeded the recommended threshold (%.1f µg/m³)", pm25),
			Parameter: ParamPM25,
			Value:     pm25,
			Threshold: settings.PM25Threshold,
		}))
	}

	if settings.PM10Alerts && pm10 > settings.PM10Threshold {
		created = appendCreated(created, e.createLocked(Alert{
			Type:      TypeWarning,
			Title:     "High PM10",
			Message:   fmt.Sprintf("PM10 levels have exceeded the recommended threshold (%.1f µg/m³)", pm10),
			Parameter: ParamPM10,
			Value:     pm10,
			Threshold: settings.PM10Threshold,
		}))
	}

	if settings.AQIAlerts && aqi > settings.AQIThreshold {
		severity := aqiSeverity(aqi)
		title := "High AQI"
		if severity == TypeDanger {
			title = "Critical AQI"
		}
		created = appendCreated(created, e.createLocked(Alert{
			Type:      severity,
			Title:     title,
			Message:   fmt.Sprintf("Air quality index at %s level (AQI: %.0f)", severityLabel(severity), aqi),
			Parameter: ParamAQI,
			Value:     aqi,
			Threshold: settings.AQIThreshold,
		}))
	}

	// Recovery: PM2.5 back at or below threshold after a recent warning.
	if pm25 <= settings.PM25Threshold && e.wasAboveThresholdLocked(ParamPM25) {
		created = appendCreated(created, e.createLocked(Alert{
			Type:      TypeSuccess,
			Title:     "Quality Improved",
			Message:   "PM2.5 levels have returned to healthy values",
			Parameter: ParamPM25,
			Value:     pm25,
			Threshold: settings.PM25Threshold,
		}))
	}
	e.mu.Unlock()

	if len(created) == 0 {
		return
	}

	e.notifyListeners()
	e.persistAlertsAsync()

	if settings.PushNotifications {
		for _, a := range created {
			e.dispatch(a)
		}
	}
}

// createLocked inserts an alert unless its cooldown key fired within the
// last five minutes. Returns nil when suppressed. Caller holds e.mu.
func (e *Engine) createLocked(a Alert) *Alert {
	key := a.Parameter + "_" + string(a.Type)
	now := e.now()

	if last, ok := e.lastAlert[key]; ok && now.Sub(last) < cooldown {
		return nil
	}

	a.ID = e.newID()
	a.Timestamp = now
	a.Location = alertLocation

	e.alerts = append([]Alert{a}, e.alerts...)
	if len(e.alerts) > maxAlerts {
		e.alerts = e.alerts[:maxAlerts]
	}
	e.lastAlert[key] = now

	e.logger.Info("alert created",
		"id", a.ID, "type", a.Type, "parameter", a.Parameter, "value", a.Value)
	return &a
}

// wasAboveThresholdLocked reports whether a warning for the parameter was
// raised within the improvement window. Caller holds e.mu.
func (e *Engine) wasAboveThresholdLocked(parameter string) bool {
	cutoff := e.now().Add(-improvementWindow)
	for _, a := range e.alerts {
		if a.Parameter == parameter && a.Type == TypeWarning && a.Timestamp.After(cutoff) {
			return true
		}
	}
	return false
}

// Acknowledge marks an alert as acknowledged. Unknown ids are ignored;
// acknowledging twice is the same as once.
func (e *Engine) Acknowledge(id string) {
	e.mu.Lock()
	changed := false
	for i := range e.alerts {
		if e.alerts[i].ID == id {
			changed = !e.alerts[i].Acknowledged
			e.alerts[i].Acknowledged = true
			break
		}
	}
	e.mu.Unlock()

	if !changed {
		return
	}
	e.notifyListeners()
	e.persistAlertsAsync()
}

// Alerts returns the alerts matching the filter, newest-first.
func (e *Engine) Alerts(filter Filter) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	startOfDay := e.startOfDayLocked()

	var out []Alert
	for _, a := range e.alerts {
		switch filter {
		case FilterActive:
			if a.Acknowledged {
				continue
			}
		case FilterAcknowledged:
			if !a.Acknowledged {
				continue
			}
		case FilterToday:
			if a.Timestamp.Before(startOfDay) {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// Stats summarizes the alert history.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	startOfDay := e.startOfDayLocked()

	var s Stats
	for _, a := range e.alerts {
		if a.Acknowledged {
			s.Acknowledged++
		} else {
			s.Active++
		}
		if !a.Timestamp.Before(startOfDay) {
			s.TotalToday++
		}
	}
	return s
}

// startOfDayLocked returns local midnight of the current day.
func (e *Engine) startOfDayLocked() time.Time {
	now := e.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Settings returns the current alert settings.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// UpdateSettings merges a partial settings update and persists the
// result.
func (e *Engine) UpdateSettings(patch SettingsPatch) {
	e.mu.Lock()
	patch.apply(&e.settings)
	e.mu.Unlock()

	e.persistSettingsAsync()
}

// CleanOldAlerts drops history entries older than seven days.
func (e *Engine) CleanOldAlerts() {
	cutoff := e.now().Add(-retention)

	e.mu.Lock()
	kept := e.alerts[:0]
	for _, a := range e.alerts {
		if a.Timestamp.After(cutoff) {
			kept = append(kept, a)
		}
	}
	changed := len(kept) != len(e.alerts)
	e.alerts = kept
	e.mu.Unlock()

	if changed {
		e.persistAlertsAsync()
	}
}

// LoadFromStorage restores the alert history and settings from
// persistence. Missing entries are not errors.
func (e *Engine) LoadFromStorage(ctx context.Context) error {
	if e.storage == nil {
		return nil
	}

	if raw, err := e.storage.Get(ctx, storage.KeyAlerts); err == nil {
		var alerts []Alert
		if err := json.Unmarshal([]byte(raw), &alerts); err != nil {
			return fmt.Errorf("decoding alert history: %w", err)
		}
		e.mu.Lock()
		e.alerts = alerts
		e.mu.Unlock()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	if raw, err := e.storage.Get(ctx, storage.KeyAlertSettings); err == nil {
		e.mu.Lock()
		if err := json.Unmarshal([]byte(raw), &e.settings); err != nil {
			e.mu.Unlock()
			return fmt.Errorf("decoding alert settings: %w", err)
		}
		e.mu.Unlock()
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	e.logger.Info("alert state restored from storage", "alerts", len(e.Alerts(FilterAll)))
	return nil
}

// dispatch hands an alert to the notification boundary on a background
// goroutine. Failures are logged and otherwise ignored.
func (e *Engine) dispatch(a Alert) {
	if e.notifier == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
		defer cancel()
		n := Notification{
			Title: a.Title,
			Body:  a.Message,
			Data:  map[string]string{"alertId": a.ID},
		}
		if err := e.notifier.Send(ctx, n); err != nil {
			e.logger.Error("dispatching notification", "alert_id", a.ID, "error", err)
		}
	}()
}

// notifyListeners invokes all change listeners synchronously in
// registration order.
func (e *Engine) notifyListeners() {
	e.mu.Lock()
	listeners := make([]listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	for _, l := range listeners {
		l.fn()
	}
}

func (e *Engine) persistAlertsAsync() {
	e.persistAsync(func(ctx context.Context) error {
		e.mu.Lock()
		raw, err := json.Marshal(e.alerts)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		return e.storage.Set(ctx, storage.KeyAlerts, string(raw))
	})
}

func (e *Engine) persistSettingsAsync() {
	e.persistAsync(func(ctx context.Context) error {
		e.mu.Lock()
		raw, err := json.Marshal(e.settings)
		e.mu.Unlock()
		if err != nil {
			return err
		}
		return e.storage.Set(ctx, storage.KeyAlertSettings, string(raw))
	})
}

// persistAsync runs a best-effort storage write on a background
// goroutine. In-memory state stays authoritative on failure.
func (e *Engine) persistAsync(write func(ctx context.Context) error) {
	if e.storage == nil {
		return
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.persistTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			e.logger.Error("persisting alert state", "error", err)
		}
	}()
}

// Flush blocks until in-flight persistence writes and notification
// dispatches complete. Intended for shutdown and tests.
func (e *Engine) Flush() {
	e.wg.Wait()
}

// aqiSeverity grades an AQI breach. Particulate breaches are always
// warnings; only the AQI rule escalates.
func aqiSeverity(aqi float64) Type {
	switch {
	case aqi > 150:
		return TypeDanger
	case aqi > 100:
		return TypeWarning
	default:
		return TypeInfo
	}
}

func severityLabel(t Type) string {
	if t == TypeDanger {
		return "dangerous"
	}
	return "elevated"
}

// numberOrZero reads a snapshot field as a float, treating missing or
// non-numeric values as zero.
func numberOrZero(snap sensor.Snapshot, key string) float64 {
	v, ok := snap.Number(key)
	if !ok {
		return 0
	}
	return v
}

func appendCreated(list []Alert, a *Alert) []Alert {
	if a == nil {
		return list
	}
	return append(list, *a)
}
