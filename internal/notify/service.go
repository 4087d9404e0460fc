package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/airsafe/airsafe-core/internal/airquality"
	"github.com/airsafe/airsafe-core/internal/alert"
	"github.com/airsafe/airsafe-core/internal/storage"
)

// Cooldown categories. Each category rate-limits independently.
const (
	categoryAirQuality = "air-quality"
	categoryConnection = "connection"
)

// defaultCooldown is the minimum spacing between notifications of the
// same category. Connection notifications use twice this.
const defaultCooldown = 5 * time.Minute

// Logger defines the logging interface used by the Service.
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

// Publisher is the transport surface notifications are delivered over.
// Satisfied by the MQTT manager.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Storage is the persistence surface for cooldown bookkeeping. Satisfied
// by *storage.Store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// message is the wire form of a notification.
type message struct {
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Service delivers notifications by publishing them to a dedicated MQTT
// topic, where the companion app picks them up for platform delivery.
//
// Air-quality and connection notifications are rate-limited per category;
// alert-engine dispatches are not, since the engine enforces its own
// cooldown. Last-sent times are persisted so cooldowns survive restarts.
//
// Service implements alert.Notifier.
type Service struct {
	mu       sync.Mutex
	lastSent map[string]time.Time

	topic    string
	cooldown time.Duration
	pub      Publisher
	storage  Storage
	logger   Logger
	now      func() time.Time

	// persistTimeout bounds the async cooldown write.
	persistTimeout time.Duration

	wg sync.WaitGroup
}

// New creates a notification service publishing to the given topic.
// Pass nil storage to skip cooldown persistence.
func New(pub Publisher, st Storage, topic string) *Service {
	return &Service{
		lastSent:       make(map[string]time.Time),
		topic:          topic,
		cooldown:       defaultCooldown,
		pub:            pub,
		storage:        st,
		logger:         noopLogger{},
		now:            time.Now,
		persistTimeout: 5 * time.Second,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetCooldown overrides the per-category cooldown window.
// Non-positive values are ignored.
func (s *Service) SetCooldown(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cooldown = d
}

// Send publishes an alert-engine notification. No category cooldown
// applies; the alert engine already spaces its dispatches.
func (s *Service) Send(ctx context.Context, n alert.Notification) error {
	return s.publish(ctx, message{
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		Timestamp: s.now(),
	})
}

// CheckAndSendAirQualityAlert notifies when the overall air quality
// worsened relative to the previous readings. Pass math.NaN() for missing
// values.
//
// At most one air-quality notification is sent per cooldown window.
func (s *Service) CheckAndSendAirQualityAlert(ctx context.Context, pm25, pm10, prevPM25, prevPM10 float64) error {
	if !airquality.ShouldAlert(pm25, pm10, prevPM25, prevPM10) {
		return nil
	}
	if !s.takeSlot(categoryAirQuality, s.cooldown) {
		s.logger.Debug("air quality notification suppressed by cooldown")
		return nil
	}

	reading := airquality.ClassifyOverall(pm25, pm10)
	if reading == nil {
		return nil
	}

	title, body := airQualityContent(reading, pm25, pm10)
	err := s.publish(ctx, message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":     categoryAirQuality,
			"pm25":     strconv.FormatFloat(pm25, 'f', -1, 64),
			"pm10":     strconv.FormatFloat(pm10, 'f', -1, 64),
			"category": reading.Category.String(),
		},
		Timestamp: s.now(),
	})
	if err != nil {
		return err
	}

	s.persistLastSent()
	return nil
}

// SendConnectionAlert notifies about a sensor connectivity change.
// Connection notifications use twice the standard cooldown so flapping
// links do not spam the user.
func (s *Service) SendConnectionAlert(ctx context.Context, connected bool) error {
	if !s.takeSlot(categoryConnection, 2*s.cooldown) {
		return nil
	}

	title, body := "❌ Disconnected", "Lost connection to the sensors"
	if connected {
		title, body = "✅ Connected", "Sensor connection restored"
	}

	err := s.publish(ctx, message{
		Title: title,
		Body:  body,
		Data: map[string]string{
			"type":      categoryConnection,
			"connected": strconv.FormatBool(connected),
		},
		Timestamp: s.now(),
	})
	if err != nil {
		return err
	}

	s.persistLastSent()
	return nil
}

// SendCustom publishes an arbitrary notification with no cooldown.
func (s *Service) SendCustom(ctx context.Context, title, body string, data map[string]string) error {
	merged := map[string]string{"type": "custom"}
	for k, v := range data {
		merged[k] = v
	}
	return s.publish(ctx, message{
		Title:     title,
		Body:      body,
		Data:      merged,
		Timestamp: s.now(),
	})
}

// LoadFromStorage restores persisted cooldown times. A missing entry is
// not an error.
func (s *Service) LoadFromStorage(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	raw, err := s.storage.Get(ctx, storage.KeyNotifications)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	var times map[string]time.Time
	if err := json.Unmarshal([]byte(raw), &times); err != nil {
		return fmt.Errorf("decoding notification times: %w", err)
	}

	s.mu.Lock()
	s.lastSent = times
	if s.lastSent == nil {
		s.lastSent = make(map[string]time.Time)
	}
	s.mu.Unlock()
	return nil
}

// takeSlot claims a send slot for the category, returning false while the
// cooldown is still active.
func (s *Service) takeSlot(category string, window time.Duration) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok := s.lastSent[category]; ok && now.Sub(last) < window {
		return false
	}
	s.lastSent[category] = now
	return true
}

// persistLastSent writes cooldown times on a background goroutine, best
// effort. The publishing caller is never blocked on storage.
func (s *Service) persistLastSent() {
	if s.storage == nil {
		return
	}

	s.mu.Lock()
	raw, err := json.Marshal(s.lastSent)
	s.mu.Unlock()
	if err != nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if err := s.storage.Set(ctx, storage.KeyNotifications, string(raw)); err != nil {
			s.logger.Error("persisting notification times", "error", err)
		}
	}()
}

// Flush blocks until in-flight cooldown writes complete. Intended for
// shutdown and tests.
func (s *Service) Flush() {
	s.wg.Wait()
}

// publish encodes and sends a message over the transport.
func (s *Service) publish(ctx context.Context, m message) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := s.pub.Publish(ctx, s.topic, raw); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}

	s.logger.Info("notification sent", "title", m.Title, "type", m.Data["type"])
	return nil
}

// airQualityContent builds the title and body for an air-quality
// notification.
func airQualityContent(r *airquality.Reading, pm25, pm10 float64) (string, string) {
	levels := fmt.Sprintf("PM2.5: %.1f µg/m³, PM10: %.1f µg/m³", pm25, pm10)

	switch {
	case r.Category >= airquality.Unhealthy:
		return fmt.Sprintf("\U0001f6a8 Alert: Air Quality %s", r.Label),
			levels + ". Avoid outdoor activities."
	case r.Category == airquality.UnhealthySensitive:
		return fmt.Sprintf("⚠️ Air Quality %s", r.Label),
			levels + ". Sensitive groups should take precautions."
	case r.Category == airquality.Moderate:
		return fmt.Sprintf("%s Air Quality %s", r.Icon, r.Label),
			levels + ". Acceptable for most people."
	default:
		return fmt.Sprintf("%s Air Quality %s", r.Icon, r.Label),
			levels + ". Excellent for outdoor activities."
	}
}
