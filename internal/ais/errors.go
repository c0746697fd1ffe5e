package ais

import "errors"

var (
	// ErrMaxReconnectAttempts is reported when the reconnect budget is spent.
	ErrMaxReconnectAttempts = errors.New("ais: maximum reconnection attempts reached")
	// ErrMissingAPIKey is returned by Connect without a key.
	ErrMissingAPIKey = errors.New("ais: API key is required")
)

// ConnectionError wraps transport-level failures.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "ais: connection error: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }
