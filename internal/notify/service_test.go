package notify

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/airsafe/airsafe-core/internal/alert"
	"github.com/airsafe/airsafe-core/internal/storage"
)

// =============================================================================
// Test Helpers
// =============================================================================

type fakePublisher struct {
	mu       sync.Mutex
	topics   []string
	payloads [][]byte
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func (f *fakePublisher) last(t *testing.T) message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payloads) == 0 {
		t.Fatal("nothing published")
	}
	var m message
	if err := json.Unmarshal(f.payloads[len(f.payloads)-1], &m); err != nil {
		t.Fatalf("decoding published payload: %v", err)
	}
	return m
}

type fakeStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string]string)}
}

func (f *fakeStorage) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (f *fakeStorage) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value
	return nil
}

func testService(pub Publisher, st Storage) (*Service, *time.Time) {
	s := New(pub, st, "d1ego/airsafe/notifications")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

// =============================================================================
// Send Tests
// =============================================================================

func TestSend_PublishesToNotificationTopic(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := testService(pub, nil)

	err := s.Send(context.Background(), alert.Notification{
		Title: "High PM2.5",
		Body:  "levels exceeded",
		Data:  map[string]string{"alertId": "a1"},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if pub.topics[0] != "d1ego/airsafe/notifications" {
		t.Errorf("topic = %q", pub.topics[0])
	}
	m := pub.last(t)
	if m.Title != "High PM2.5" {
		t.Errorf("Title = %q", m.Title)
	}
	if m.Data["alertId"] != "a1" {
		t.Errorf("Data = %v, want alertId carried through", m.Data)
	}
}

func TestSend_NoCooldown(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := testService(pub, nil)

	for i := 0; i < 3; i++ {
		if err := s.Send(context.Background(), alert.Notification{Title: "x"}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	if pub.count() != 3 {
		t.Errorf("published %d messages, want 3 (engine dispatches bypass cooldown)", pub.count())
	}
}

// =============================================================================
// Air Quality Alert Tests
// =============================================================================

func TestCheckAndSendAirQualityAlert_Worsening(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := testService(pub, nil)

	// Moderate -> UnhealthySensitive.
	err := s.CheckAndSendAirQualityAlert(context.Background(), 40, 20, 20, 20)
	if err != nil {
		t.Fatalf("CheckAndSendAirQualityAlert() error = %v", err)
	}

	if pub.count() != 1 {
		t.Fatalf("published %d messages, want 1", pub.count())
	}
	m := pub.last(t)
	if !strings.Contains(m.Title, "Unhealthy for Sensitive Groups") {
		t.Errorf("Title = %q", m.Title)
	}
	if m.Data["type"] != "air-quality" {
		t.Errorf("Data type = %q", m.Data["type"])
	}
	if m.Data["category"] != "unhealthy_sensitive" {
		t.Errorf("Data category = %q", m.Data["category"])
	}
}

func TestCheckAndSendAirQualityAlert_NoChangeNoSend(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := testService(pub, nil)

	if err := s.CheckAndSendAirQualityAlert(context.Background(), 20, 20, 22, 20); err != nil {
		t.Fatalf("CheckAndSendAirQualityAlert() error = %v", err)
	}

	if pub.count() != 0 {
		t.Errorf("published %d messages, want 0 for a non-worsening change", pub.count())
	}
}

func TestCheckAndSendAirQualityAlert_Cooldown(t *testing.T) {
	pub := &fakePublisher{}
	s, now := testService(pub, nil)

	if err := s.CheckAndSendAirQualityAlert(context.Background(), 40, 20, 20, 20); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(2 * time.Minute)
	if err := s.CheckAndSendAirQualityAlert(context.Background(), 60, 20, 40, 20); err != nil {
		t.Fatal(err)
	}

	if pub.count() != 1 {
		t.Errorf("published %d messages within cooldown, want 1", pub.count())
	}

	// A real worsening transition (UnhealthySensitive -> Unhealthy) so the
	// outcome is decided by the cooldown alone.
	*now = now.Add(4 * time.Minute)
	if err := s.CheckAndSendAirQualityAlert(context.Background(), 80, 20, 40, 20); err != nil {
		t.Fatal(err)
	}

	if pub.count() != 2 {
		t.Errorf("published %d messages after cooldown, want 2", pub.count())
	}
}

func TestCheckAndSendAirQualityAlert_FirstReadingAboveSensitive(t *testing.T) {
	pub := &fakePublisher{}
	s, _ := testService(pub, nil)

	nan := math.NaN()
	if err := s.CheckAndSendAirQualityAlert(context.Background(), 40, 20, nan, nan); err != nil {
		t.Fatal(err)
	}

	if pub.count() != 1 {
		t.Errorf("published %d messages, want 1 for first reading at sensitive level", pub.count())
	}
}

// =============================================================================
// Connection Alert Tests
// =============================================================================

func TestSendConnectionAlert_DoubledCooldown(t *testing.T) {
	pub := &fakePublisher{}
	s, now := testService(pub, nil)

	if err := s.SendConnectionAlert(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	*now = now.Add(6 * time.Minute) // past standard cooldown, within doubled
	if err := s.SendConnectionAlert(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if pub.count() != 1 {
		t.Errorf("published %d messages, want 1 within doubled cooldown", pub.count())
	}

	*now = now.Add(5 * time.Minute)
	if err := s.SendConnectionAlert(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if pub.count() != 2 {
		t.Fatalf("published %d messages, want 2", pub.count())
	}
	m := pub.last(t)
	if m.Data["connected"] != "true" {
		t.Errorf("Data connected = %q", m.Data["connected"])
	}
}

// =============================================================================
// Persistence Tests
// =============================================================================

// blockingStorage holds every Set until released.
type blockingStorage struct {
	release chan struct{}
}

func (b *blockingStorage) Get(context.Context, string) (string, error) {
	return "", storage.ErrNotFound
}

func (b *blockingStorage) Set(ctx context.Context, _, _ string) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestCheckAndSendAirQualityAlert_PersistDoesNotBlockSend(t *testing.T) {
	st := &blockingStorage{release: make(chan struct{})}
	pub := &fakePublisher{}
	s, _ := testService(pub, st)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.CheckAndSendAirQualityAlert(context.Background(), 40, 20, 20, 20); err != nil {
			t.Errorf("CheckAndSendAirQualityAlert() error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on the cooldown persist")
	}

	if pub.count() != 1 {
		t.Errorf("published %d messages, want 1", pub.count())
	}

	close(st.release)
	s.Flush()
}

func TestCooldown_SurvivesRestart(t *testing.T) {
	st := newFakeStorage()
	pub := &fakePublisher{}

	s, _ := testService(pub, st)
	if err := s.CheckAndSendAirQualityAlert(context.Background(), 40, 20, 20, 20); err != nil {
		t.Fatal(err)
	}
	s.Flush()

	// New service instance two minutes later, same storage.
	restarted, now := testService(pub, st)
	*now = now.Add(2 * time.Minute)
	if err := restarted.LoadFromStorage(context.Background()); err != nil {
		t.Fatalf("LoadFromStorage() error = %v", err)
	}
	if err := restarted.CheckAndSendAirQualityAlert(context.Background(), 60, 20, 40, 20); err != nil {
		t.Fatal(err)
	}

	if pub.count() != 1 {
		t.Errorf("published %d messages, want 1 (cooldown restored across restart)", pub.count())
	}
}
