package mqtt

// State is the connection manager's lifecycle state.
type State int

const (
	// StateDisconnected is the initial state and the state after a
	// manual disconnect.
	StateDisconnected State = iota

	// StateConnecting means a connection attempt is in flight.
	StateConnecting

	// StateConnected means the transport is up and subscriptions are
	// active.
	StateConnected

	// StateReconnecting means a retry is scheduled after a failure.
	StateReconnecting

	// StateFailed means the automatic retry budget is exhausted. Only
	// a manual Reconnect leaves this state.
	StateFailed
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Status is a point-in-time view of the connection manager.
type Status struct {
	State                State `json:"state"`
	Connected            bool  `json:"connected"`
	ConnectionAttempts   int   `json:"connectionAttempts"`
	MaxReconnectAttempts int   `json:"maxReconnectAttempts"`
}

// Events holds the optional callbacks the manager fires on lifecycle
// transitions. All callbacks run on the manager's internal goroutines and
// must not block.
type Events struct {
	// OnConnected fires after the transport comes up and subscriptions
	// are issued.
	OnConnected func()

	// OnDisconnected fires after a manual Disconnect.
	OnDisconnected func()

	// OnConnectionLost fires when an established connection drops.
	OnConnectionLost func(err error)

	// OnConnectionFailed fires when a connection attempt fails.
	OnConnectionFailed func(err error)

	// OnMaxReconnectAttempts fires when the automatic retry budget is
	// exhausted. The manager stays in StateFailed until Reconnect.
	OnMaxReconnectAttempts func()
}
