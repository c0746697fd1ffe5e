// Package host carries bronvakt's outward surface: capability values
// (bridge text, alarm, connection state) and flow triggers, published to the
// automation host over NATS or, without one, to the log.
package host

import (
	"context"
	"log/slog"
)

// Capabilities is one coherent publish: all values regenerated together.
type Capabilities struct {
	BridgeText string
	Alarm      bool
	Connected  bool
}

// Trigger is a fired flow event with its interpolation tokens.
type Trigger struct {
	Name     string
	BridgeID string
	Tokens   map[string]string
}

// Bridge is the outbound side of the system. Implementations must tolerate
// repeated publishes of identical values.
type Bridge interface {
	PublishCapabilities(ctx context.Context, caps Capabilities) error
	TriggerFlow(ctx context.Context, trig Trigger) error
	Close()
}

// LogBridge writes everything to the structured log. Used when no NATS host
// is configured and in tests.
type LogBridge struct{}

func NewLogBridge() *LogBridge { return &LogBridge{} }

func (l *LogBridge) PublishCapabilities(_ context.Context, caps Capabilities) error {
	slog.Info("capabilities",
		"bridge_text", caps.BridgeText,
		"alarm", caps.Alarm,
		"connected", caps.Connected)
	return nil
}

func (l *LogBridge) TriggerFlow(_ context.Context, trig Trigger) error {
	slog.Info("flow trigger", "name", trig.Name, "bridge", trig.BridgeID, "tokens", trig.Tokens)
	return nil
}

func (l *LogBridge) Close() {}
