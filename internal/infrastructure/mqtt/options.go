package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/airsafe/airsafe-core/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for one
	// connection attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish or
	// subscribe acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending
	// operations on disconnect, in milliseconds.
	defaultDisconnectQuiesce = 1000

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 60 * time.Second

	// manualReconnectDelay is the pause between the forced disconnect
	// and the fresh connect during a manual Reconnect.
	manualReconnectDelay = time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions creates paho options for one connection attempt.
//
// The transport is WebSocket, matching the broker's public endpoint. The
// client id gets a fresh random suffix per attempt so a half-dead session
// on the broker can never collide with the new one.
//
// Automatic reconnection is deliberately disabled: the manager owns the
// retry policy, including the fixed delay and the attempt cap.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme := "ws"
	if cfg.Broker.TLS {
		scheme = "wss"
	}
	path := cfg.Broker.Path
	if path == "" {
		path = "/mqtt"
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d%s", scheme, cfg.Broker.Host, cfg.Broker.Port, path))

	opts.SetClientID(freshClientID(cfg.Broker.ClientID))

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)

	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}

	return opts
}

// freshClientID appends a random suffix to the configured client id.
func freshClientID(base string) string {
	return base + "-" + uuid.NewString()[:8]
}
