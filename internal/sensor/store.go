package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/airsafe/airsafe-core/internal/storage"
)

// Logger defines the logging interface used by the Store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Storage is the persistence surface the store needs. Satisfied by
// *storage.Store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Update is delivered to subscribers after every applied message.
type Update struct {
	Topic   string
	Payload string
	Data    Snapshot
}

// subscriber pairs a callback with its registration id so Unsubscribe can
// remove it while preserving registration order for the rest.
type subscriber struct {
	id int
	fn func(Update)
}

// Store holds the live sensor snapshot.
//
// All mutation flows through HandleMessage, which applies the payload,
// stamps LastUpdate, notifies subscribers synchronously in registration
// order, and kicks off a best-effort persistence write. Readers get deep
// copies so they never observe a half-applied message.
type Store struct {
	mu   sync.RWMutex
	data Snapshot

	subMu  sync.Mutex
	subs   []subscriber
	nextID int

	storage Storage
	logger  Logger
	now     func() time.Time

	// persistTimeout bounds the async write that follows each message.
	persistTimeout time.Duration

	wg sync.WaitGroup
}

// NewStore creates a sensor store backed by the given persistence surface.
// Pass nil storage to run purely in memory.
func NewStore(st Storage) *Store {
	return &Store{
		storage:        st,
		logger:         noopLogger{},
		now:            time.Now,
		persistTimeout: 5 * time.Second,
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Current returns a deep copy of the live snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Subscribe registers a callback invoked synchronously after every applied
// message, in registration order. The returned function removes the
// subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Update)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscriber{id: id, fn: fn})

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// HandleMessage applies one inbound MQTT message to the snapshot.
//
// The sensor key is the last path segment of the topic. The structured
// keys (all_data, device_info) are parsed as JSON objects and shallow-
// merged into the snapshot; on parse failure the raw payload is stored
// under the key instead. Every other payload is stored as a number when
// it parses as one, otherwise as the raw string. Unknown keys land in the
// snapshot's Extra bucket verbatim.
//
// After the snapshot is updated, subscribers are notified synchronously
// and the snapshot is persisted on a background goroutine. HandleMessage
// never fails: decode problems are logged and the raw payload is kept.
func (s *Store) HandleMessage(topic, payload string) {
	key := SensorKey(topic)

	s.mu.Lock()
	switch key {
	case KeyAllData, KeyDeviceInfo:
		if err := s.mergeStructured(payload); err != nil {
			s.logger.Warn("malformed structured payload, storing raw",
				"topic", topic, "key", key, "error", err)
			s.data.Set(key, NewValue(payload))
		}
	default:
		s.data.Set(key, NewValue(payload))
	}
	ts := s.now()
	s.data.LastUpdate = &ts
	update := Update{Topic: topic, Payload: payload, Data: s.data.Clone()}
	s.mu.Unlock()

	s.logger.Debug("sensor update applied", "topic", topic, "key", key)

	s.notify(update)
	s.persistAsync()
}

// mergeStructured shallow-merges a JSON object payload into the snapshot.
// Caller holds s.mu.
func (s *Store) mergeStructured(payload string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("payload is not a JSON object")
	}

	for k, msg := range fields {
		var v Value
		if err := v.UnmarshalJSON(msg); err != nil {
			continue
		}
		s.data.Set(k, v)
	}
	return nil
}

// notify delivers an update to all subscribers, synchronously and in
// registration order.
func (s *Store) notify(update Update) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(update)
	}
}

// LoadFromStorage replaces the in-memory snapshot with the persisted one,
// if present. Missing persisted state is not an error.
func (s *Store) LoadFromStorage(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	raw, err := s.storage.Get(ctx, storage.KeySensorData)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = snap
	s.mu.Unlock()

	s.logger.Info("sensor snapshot restored from storage")
	return nil
}

// Persist writes the current snapshot to storage.
func (s *Store) Persist(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}

	s.mu.RLock()
	snap := s.data.Clone()
	s.mu.RUnlock()

	raw, err := json.Marshal(&snap)
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, storage.KeySensorData, string(raw))
}

// persistAsync writes the snapshot on a background goroutine. Failures are
// logged; in-memory state stays authoritative either way.
func (s *Store) persistAsync() {
	if s.storage == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
		defer cancel()
		if err := s.Persist(ctx); err != nil {
			s.logger.Error("persisting sensor snapshot", "error", err)
		}
	}()
}

// Flush blocks until all in-flight persistence writes complete. Intended
// for shutdown and tests.
func (s *Store) Flush() {
	s.wg.Wait()
}

// SensorKey derives the sensor key from an MQTT topic: the last path
// segment, or the topic itself when it has no separator.
func SensorKey(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
