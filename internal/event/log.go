package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/airsafe/airsafe-core/internal/alert"
	"github.com/airsafe/airsafe-core/internal/sensor"
	"github.com/airsafe/airsafe-core/internal/storage"
)

const (
	// maxEvents caps the event log, newest-first.
	maxEvents = 20

	// dedupWindow suppresses a new event whose title category matches
	// one raised within this window.
	dedupWindow = 5 * time.Minute

	// retention is how long CleanOldEvents keeps entries.
	retention = 24 * time.Hour

	// defaultRecentCount is the slice returned by RecentEvents.
	defaultRecentCount = 5
)

// Type is the display class of an event.
type Type string

const (
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
	TypeDanger  Type = "danger"
	TypeSuccess Type = "success"
)

// Event is one display entry derived from a sensor snapshot.
type Event struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}

// Logger defines the logging interface used by the Log.
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

// Storage is the persistence surface the log needs. Satisfied by
// *storage.Store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Log derives human-readable events from sensor snapshots.
//
// Each snapshot produces at most one event, chosen by a fixed priority
// order over the readings. An event is dropped when another event of the
// same title category was raised within the last five minutes. The log is
// newest-first, capped at 20 entries, and persisted on every change.
//
// All public methods are thread-safe.
type Log struct {
	mu     sync.Mutex
	events []Event

	storage Storage
	logger  Logger
	now     func() time.Time
	newID   func() string

	persistTimeout time.Duration
	wg             sync.WaitGroup
}

// NewLog creates an event log. Pass nil storage to run purely in memory.
func NewLog(st Storage) *Log {
	return &Log{
		storage:        st,
		logger:         noopLogger{},
		now:            time.Now,
		newID:          uuid.NewString,
		persistTimeout: 5 * time.Second,
	}
}

// SetLogger sets the logger for the log.
func (l *Log) SetLogger(logger Logger) {
	l.logger = logger
}

// AddEvent derives an event from the snapshot and inserts it unless a
// similar event exists within the dedup window.
//
// Missing or non-numeric readings are treated as zero, matching the
// alerting rules; an empty snapshot therefore classifies as a low
// temperature condition rather than being skipped.
func (l *Log) AddEvent(snap sensor.Snapshot) {
	ev := l.generate(snap)

	l.mu.Lock()
	if l.similarExistsLocked(ev) {
		l.mu.Unlock()
		return
	}
	l.events = append([]Event{ev}, l.events...)
	if len(l.events) > maxEvents {
		l.events = l.events[:maxEvents]
	}
	l.mu.Unlock()

	l.logger.Debug("event recorded", "type", ev.Type, "title", ev.Title)
	l.persistAsync()
}

// generate classifies a snapshot into a single event using the fixed
// priority order.
func (l *Log) generate(snap sensor.Snapshot) Event {
	pm25 := numberOrZero(snap, sensor.KeyPM25)
	pm10 := numberOrZero(snap, sensor.KeyPM10)
	temperature := numberOrZero(snap, sensor.KeyTemperature)
	humidity := numberOrZero(snap, sensor.KeyHumidity)
	aqi := alert.ProxyAQI(pm25, pm10)

	ev := Event{
		ID:        l.newID(),
		Timestamp: l.now(),
	}

	switch {
	case pm25 > 75:
		ev.Type = TypeDanger
		ev.Title = fmt.Sprintf("Very High PM2.5: %.1f µg/m³", pm25)
		ev.Description = fmt.Sprintf("Status: Unhealthy • AQI: %.0f", aqi)
	case pm25 > 35:
		ev.Type = TypeWarning
		ev.Title = fmt.Sprintf("High PM2.5: %.1f µg/m³", pm25)
		ev.Description = fmt.Sprintf("Status: Unhealthy for sensitive groups • AQI: %.0f", aqi)
	case pm10 > 50:
		ev.Type = TypeWarning
		ev.Title = fmt.Sprintf("Elevated PM10: %.1f µg/m³", pm10)
		ev.Description = fmt.Sprintf("Status: Moderate • AQI: %.0f", aqi)
	case temperature > 30:
		ev.Type = TypeWarning
		ev.Title = fmt.Sprintf("High Temperature: %.1f°C", temperature)
		ev.Description = fmt.Sprintf("Condition: Hot • Humidity: %.1f%%", humidity)
	case temperature < 10:
		ev.Type = TypeInfo
		ev.Title = fmt.Sprintf("Low Temperature: %.1f°C", temperature)
		ev.Description = fmt.Sprintf("Condition: Cold • Humidity: %.1f%%", humidity)
	case humidity > 70:
		ev.Type = TypeInfo
		ev.Title = fmt.Sprintf("High Humidity: %.1f%%", humidity)
		ev.Description = fmt.Sprintf("Condition: Humid • Temperature: %.1f°C", temperature)
	default:
		ev.Type = TypeSuccess
		ev.Title = fmt.Sprintf("Good Quality: PM2.5 %.1f µg/m³", pm25)
		ev.Description = fmt.Sprintf("Status: Healthy • AQI: %.0f", aqi)
	}
	return ev
}

// similarExistsLocked reports whether a similar event was raised within
// the dedup window. Similarity is containment of the new title's
// category (the text before the first colon) anywhere in an existing
// title, so a "High PM2.5" reading right after a "Very High PM2.5" event
// is suppressed while the escalation in the other direction is not.
// Caller holds l.mu.
func (l *Log) similarExistsLocked(ev Event) bool {
	category := titleCategory(ev.Title)
	cutoff := ev.Timestamp.Add(-dedupWindow)
	for _, e := range l.events {
		if e.Timestamp.After(cutoff) && strings.Contains(e.Title, category) {
			return true
		}
	}
	return false
}

// titleCategory returns the title text before the first colon.
func titleCategory(title string) string {
	if i := strings.IndexByte(title, ':'); i >= 0 {
		return title[:i]
	}
	return title
}

// RecentEvents returns the newest count events, newest-first. A count of
// zero or less uses the default of five.
func (l *Log) RecentEvents(count int) []Event {
	if count <= 0 {
		count = defaultRecentCount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if count > len(l.events) {
		count = len(l.events)
	}
	out := make([]Event, count)
	copy(out, l.events[:count])
	return out
}

// TodayEvents returns the events raised since local midnight,
// newest-first.
func (l *Log) TodayEvents() []Event {
	now := l.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, e := range l.events {
		if !e.Timestamp.Before(startOfDay) {
			out = append(out, e)
		}
	}
	return out
}

// CleanOldEvents drops entries older than 24 hours.
func (l *Log) CleanOldEvents() {
	cutoff := l.now().Add(-retention)

	l.mu.Lock()
	kept := l.events[:0]
	for _, e := range l.events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	changed := len(kept) != len(l.events)
	l.events = kept
	l.mu.Unlock()

	if changed {
		l.persistAsync()
	}
}

// LoadFromStorage restores the event log from persistence. A missing
// entry is not an error.
func (l *Log) LoadFromStorage(ctx context.Context) error {
	if l.storage == nil {
		return nil
	}

	raw, err := l.storage.Get(ctx, storage.KeyEvents)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	var events []Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return fmt.Errorf("decoding event log: %w", err)
	}

	l.mu.Lock()
	l.events = events
	l.mu.Unlock()

	l.logger.Info("event log restored from storage", "events", len(events))
	return nil
}

// persistAsync runs a best-effort storage write on a background
// goroutine.
func (l *Log) persistAsync() {
	if l.storage == nil {
		return
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), l.persistTimeout)
		defer cancel()

		l.mu.Lock()
		raw, err := json.Marshal(l.events)
		l.mu.Unlock()
		if err == nil {
			err = l.storage.Set(ctx, storage.KeyEvents, string(raw))
		}
		if err != nil {
			l.logger.Error("persisting event log", "error", err)
		}
	}()
}

// Flush blocks until in-flight persistence writes complete. Intended for
// shutdown and tests.
func (l *Log) Flush() {
	l.wg.Wait()
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
