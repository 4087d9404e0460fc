package mqtt

import (
	"context"
	"fmt"
	"time"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified topic with the configured QoS.
//
// The wait for broker acknowledgment is bounded by the context deadline
// when one is set, otherwise by the default publish timeout.
//
// Parameters:
//   - ctx: Context bounding the acknowledgment wait
//   - topic: The topic to publish to
//   - payload: The message payload (max 1MB)
//
// Returns:
//   - error: nil on success, ErrNotConnected while disconnected, or a
//     wrapped ErrPublishFailed
func (m *Manager) Publish(ctx context.Context, topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	m.mu.Lock()
	client := m.client
	connected := m.state == StateConnected
	m.mu.Unlock()

	if !connected || client == nil {
		return ErrNotConnected
	}

	wait := m.publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
	}

	token := client.Publish(topic, byte(m.cfg.QoS), false, payload)
	if !token.WaitTimeout(wait) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, wait)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString publishes a text payload. Used for diagnostic test
// messages.
func (m *Manager) PublishString(topic, message string) error {
	return m.Publish(context.Background(), topic, []byte(message))
}
