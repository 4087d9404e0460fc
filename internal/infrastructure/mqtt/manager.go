package mqtt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/airsafe/airsafe-core/internal/infrastructure/config"
)

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
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

// MessageSink receives every inbound message. Satisfied by
// *sensor.Store. HandleMessage must not panic; the manager recovers and
// logs if it does.
type MessageSink interface {
	HandleMessage(topic, payload string)
}

// Manager owns the MQTT client lifecycle: connect, subscribe, retry,
// disconnect.
//
// Retry policy: a failed attempt or a lost connection schedules a new
// attempt after a fixed delay (an extended delay when the socket closed
// abnormally, to avoid hot-looping against a broker that is actively
// rejecting us). After maxAttempts consecutive failures the manager
// parks in StateFailed and only a manual Reconnect resumes.
//
// Each attempt uses a fresh client id suffix so a stale broker-side
// session can never collide with the new connection.
//
// All public methods are safe for concurrent use.
type Manager struct {
	cfg    config.MQTTConfig
	topics Topics
	sink   MessageSink
	events Events
	logger Logger

	mu         sync.Mutex
	state      State
	attempts   int
	client     pahomqtt.Client
	retryTimer *time.Timer

	// test seams and tunables
	newClient      func(*pahomqtt.ClientOptions) pahomqtt.Client
	connectTimeout time.Duration
	publishTimeout time.Duration
	reconnectDelay time.Duration
	extendedDelay  time.Duration
	manualDelay    time.Duration
	maxAttempts    int
}

// NewManager creates a connection manager for one device namespace.
// Call Connect to start; the zero state is Disconnected.
func NewManager(cfg config.MQTTConfig, namespace string, sink MessageSink) *Manager {
	return &Manager{
		cfg:            cfg,
		topics:         Topics{Namespace: namespace},
		sink:           sink,
		logger:         noopLogger{},
		newClient:      pahomqtt.NewClient,
		connectTimeout: defaultConnectTimeout,
		publishTimeout: defaultPublishTimeout,
		reconnectDelay: time.Duration(cfg.Reconnect.Delay) * time.Second,
		extendedDelay:  time.Duration(cfg.Reconnect.ExtendedDelay) * time.Second,
		manualDelay:    manualReconnectDelay,
		maxAttempts:    cfg.Reconnect.MaxAttempts,
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetEvents registers the lifecycle callbacks. Call before Connect.
func (m *Manager) SetEvents(events Events) {
	m.events = events
}

// TopicSet returns the topic builders for the manager's namespace.
func (m *Manager) TopicSet() Topics {
	return m.topics
}

// Connect starts a connection attempt. A no-op while a connection is
// already up or in flight. The attempt itself runs asynchronously;
// outcome is reported through the Events callbacks.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateConnected {
		m.mu.Unlock()
		return
	}
	m.stopRetryTimerLocked()
	m.state = StateConnecting
	m.mu.Unlock()

	go m.attempt()
}

// attempt performs one connection attempt.
func (m *Manager) attempt() {
	opts := buildClientOptions(m.cfg)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		m.handleConnectionLost(err)
	})

	m.logger.Info("connecting to broker",
		"host", m.cfg.Broker.Host, "port", m.cfg.Broker.Port, "client_id", opts.ClientID)

	client := m.newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(m.connectTimeout) {
		m.handleConnectFailure(fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, m.connectTimeout))
		return
	}
	if err := token.Error(); err != nil {
		m.handleConnectFailure(fmt.Errorf("%w: %w", ErrConnectionFailed, err))
		return
	}

	m.mu.Lock()
	m.client = client
	m.state = StateConnected
	m.attempts = 0
	m.mu.Unlock()

	m.logger.Info("connected to broker")
	m.subscribeAll(client)

	if m.events.OnConnected != nil {
		m.events.OnConnected()
	}
}

// subscribeAll issues the fixed subscription list. Individual failures
// are logged and skipped; the connection stays up either way.
func (m *Manager) subscribeAll(client pahomqtt.Client) {
	for _, topic := range m.topics.SubscriptionList() {
		token := client.Subscribe(topic, byte(m.cfg.QoS), m.handleMessage)
		if !token.WaitTimeout(m.publishTimeout) {
			m.logger.Warn("subscribe timed out", "topic", topic,
				"error", fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, m.publishTimeout))
			continue
		}
		if err := token.Error(); err != nil {
			m.logger.Warn("subscribe failed", "topic", topic,
				"error", fmt.Errorf("%w: %w", ErrSubscribeFailed, err))
			continue
		}
		m.logger.Debug("subscribed", "topic", topic)
	}
}

// handleMessage routes one inbound message to the sink.
func (m *Manager) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("message handler panic recovered",
				"topic", msg.Topic(), "panic", r)
		}
	}()

	if m.sink != nil {
		m.sink.HandleMessage(msg.Topic(), string(msg.Payload()))
	}
}

// handleConnectFailure runs the retry policy after a failed attempt.
func (m *Manager) handleConnectFailure(err error) {
	m.mu.Lock()
	maxed := m.failureTransitionLocked(m.reconnectDelay)
	attempts := m.attempts
	m.mu.Unlock()

	m.logger.Warn("connection attempt failed",
		"error", err, "attempts", attempts, "max_attempts", m.maxAttempts)

	if m.events.OnConnectionFailed != nil {
		m.events.OnConnectionFailed(err)
	}
	if maxed {
		m.emitMaxAttempts()
	}
}

// handleConnectionLost runs the retry policy after an established
// connection dropped.
func (m *Manager) handleConnectionLost(err error) {
	delay := m.reconnectDelay
	if isAbnormalClose(err) {
		delay = m.extendedDelay
	}

	m.mu.Lock()
	m.client = nil
	maxed := m.failureTransitionLocked(delay)
	attempts := m.attempts
	m.mu.Unlock()

	m.logger.Warn("connection lost",
		"error", err, "attempts", attempts, "retry_delay", delay)

	if m.events.OnConnectionLost != nil {
		m.events.OnConnectionLost(err)
	}
	if maxed {
		m.emitMaxAttempts()
	}
}

// failureTransitionLocked increments the attempt counter and either
// schedules the next attempt or parks in StateFailed. Caller holds m.mu.
// Returns true when the retry budget is exhausted.
func (m *Manager) failureTransitionLocked(delay time.Duration) bool {
	m.attempts++
	if m.attempts >= m.maxAttempts {
		m.state = StateFailed
		return true
	}
	m.state = StateReconnecting
	m.retryTimer = time.AfterFunc(delay, m.retryFire)
	return false
}

// retryFire is the scheduled retry callback.
func (m *Manager) retryFire() {
	m.mu.Lock()
	if m.state != StateReconnecting {
		// A manual Reconnect or Disconnect superseded this timer.
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.mu.Unlock()

	m.attempt()
}

func (m *Manager) emitMaxAttempts() {
	m.logger.Error("max reconnect attempts reached, manual reconnect required",
		"max_attempts", m.maxAttempts)
	if m.events.OnMaxReconnectAttempts != nil {
		m.events.OnMaxReconnectAttempts()
	}
}

// Reconnect resets the retry budget, force-disconnects any live
// transport, and connects again after a short pause. This is the only
// way out of StateFailed.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	m.stopRetryTimerLocked()
	m.attempts = 0
	client := m.client
	m.client = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(defaultDisconnectQuiesce)
	}

	m.logger.Info("manual reconnect requested")
	time.AfterFunc(m.manualDelay, m.Connect)
}

// Disconnect closes the transport and cancels any pending retry. Safe to
// call repeatedly; OnDisconnected fires each time.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.stopRetryTimerLocked()
	client := m.client
	m.client = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(defaultDisconnectQuiesce)
	}

	m.logger.Info("disconnected from broker")
	if m.events.OnDisconnected != nil {
		m.events.OnDisconnected()
	}
}

// stopRetryTimerLocked cancels a pending retry. Caller holds m.mu.
func (m *Manager) stopRetryTimerLocked() {
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
}

// Status returns a point-in-time view of the connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		State:                m.state,
		Connected:            m.state == StateConnected,
		ConnectionAttempts:   m.attempts,
		MaxReconnectAttempts: m.maxAttempts,
	}
}

// IsConnected reports whether the transport is up.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && m.client != nil && m.client.IsConnected()
}

// HealthCheck verifies the connection is alive.
func (m *Manager) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	m.mu.Lock()
	failed := m.state == StateFailed
	m.mu.Unlock()
	if failed {
		return ErrMaxReconnectAttempts
	}

	if !m.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// isAbnormalClose reports whether a connection-lost reason indicates the
// socket was torn down abnormally rather than closed by either side.
func isAbnormalClose(err error) bool {
	if err == nil {
		return false
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseAbnormalClosure
	}

	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET)
}
