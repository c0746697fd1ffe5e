package host

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Capability subjects. Consumers (the automation host, bronvakt watch) can
// subscribe to the wildcard and switch on the concrete subject.
const (
	SubjectBridgeText         = "bronvakt.capability.bridge_text"
	SubjectAlarm              = "bronvakt.capability.alarm_generic"
	SubjectConnected          = "bronvakt.capability.connection_status"
	SubjectCapabilityWildcard = "bronvakt.capability.>"

	subjectFlowPrefix = "bronvakt.flow."

	publishTimeout = 5 * time.Second
)

// CapabilityMsg is the wire form of one capability value.
type CapabilityMsg struct {
	ID        string    `json:"id"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

type flowMsg struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	BridgeID  string            `json:"bridge_id"`
	Tokens    map[string]string `json:"tokens"`
	Timestamp time.Time         `json:"timestamp"`
}

// NATSBridge publishes capabilities and flow triggers to the host over NATS.
type NATSBridge struct {
	nc *nats.Conn

	mu   sync.Mutex
	last map[string]string // subject -> last payload value, to skip no-ops
}

// NewNATSBridge connects to the given NATS URL with indefinite reconnects.
func NewNATSBridge(url string) (*NATSBridge, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			slog.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("connected to NATS", "url", url)
	return &NATSBridge{nc: nc, last: make(map[string]string)}, nil
}

// PublishCapabilities sends the full capability set. Unchanged values are
// skipped per subject so the host only sees real transitions.
func (b *NATSBridge) PublishCapabilities(ctx context.Context, caps Capabilities) error {
	if err := b.publishValue(ctx, SubjectBridgeText, caps.BridgeText); err != nil {
		return err
	}
	if err := b.publishValue(ctx, SubjectAlarm, caps.Alarm); err != nil {
		return err
	}
	return b.publishValue(ctx, SubjectConnected, caps.Connected)
}

func (b *NATSBridge) publishValue(ctx context.Context, subject string, value any) error {
	fingerprint := fmt.Sprintf("%v", value)
	b.mu.Lock()
	if b.last[subject] == fingerprint {
		b.mu.Unlock()
		return nil
	}
	b.mu.Unlock()

	payload, err := json.Marshal(CapabilityMsg{
		ID:        uuid.NewString(),
		Value:     value,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal capability: %w", err)
	}
	if err := b.publish(ctx, subject, payload); err != nil {
		return err
	}

	b.mu.Lock()
	b.last[subject] = fingerprint
	b.mu.Unlock()
	return nil
}

func (b *NATSBridge) TriggerFlow(ctx context.Context, trig Trigger) error {
	payload, err := json.Marshal(flowMsg{
		ID:        uuid.NewString(),
		Name:      trig.Name,
		BridgeID:  trig.BridgeID,
		Tokens:    trig.Tokens,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal flow trigger: %w", err)
	}
	return b.publish(ctx, subjectFlowPrefix+trig.Name, payload)
}

func (b *NATSBridge) publish(ctx context.Context, subject string, payload []byte) error {
	if deadline, ok := ctx.Deadline(); !ok || time.Until(deadline) > publishTimeout {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}
	if err := b.nc.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	// Core NATS publish is async; flush so errors surface here.
	if err := b.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	return nil
}

func (b *NATSBridge) Close() {
	if b.nc != nil {
		b.nc.Drain()
	}
}
