// Package app wires the pipeline: AIS stream -> vessel registry -> event
// coalescing -> text rendering -> host publishing.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/ais"
	"github.com/bronvakt/bronvakt/internal/clock"
	"github.com/bronvakt/bronvakt/internal/coalesce"
	"github.com/bronvakt/bronvakt/internal/config"
	"github.com/bronvakt/bronvakt/internal/domain"
	"github.com/bronvakt/bronvakt/internal/flow"
	"github.com/bronvakt/bronvakt/internal/host"
	"github.com/bronvakt/bronvakt/internal/text"
	"github.com/bronvakt/bronvakt/internal/vessel"
)

// System owns every long-lived component and their lifecycles.
type System struct {
	cfg *config.Config
	clk clock.Clock

	AIS      *ais.Client
	Registry *vessel.Registry
	Renderer *text.Renderer

	coalescer *coalesce.Coalescer
	notifier  *flow.Notifier
	bridge    host.Bridge
	embedded  *host.EmbeddedServer

	mu        sync.Mutex
	connected bool
	lastAlarm bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg *config.Config) (*System, error) {
	clk := clock.NewSystem()

	s := &System{
		cfg:      cfg,
		clk:      clk,
		AIS:      ais.New(ais.Config{URL: cfg.AISURL, APIKey: cfg.AISAPIKey}),
		Registry: vessel.NewRegistry(clk),
		Renderer: text.NewRenderer(),
	}

	switch {
	case cfg.EmbeddedNATS:
		srv, err := host.StartEmbedded(host.EmbeddedConfig{})
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		bridge, err := host.NewNATSBridge(srv.ClientURL())
		if err != nil {
			srv.Shutdown()
			return nil, err
		}
		s.embedded = srv
		s.bridge = bridge
	case cfg.NatsURL != "":
		bridge, err := host.NewNATSBridge(cfg.NatsURL)
		if err != nil {
			return nil, err
		}
		s.bridge = bridge
	default:
		slog.Info("no NATS host configured, publishing to log only")
		s.bridge = host.NewLogBridge()
	}

	s.notifier = flow.NewNotifier(clk, s.bridge)
	s.coalescer = coalesce.New(clk, s.publish, func() bool {
		return len(s.Registry.Snapshot()) > 0
	})
	return s, nil
}

// Start connects the stream and runs the pump goroutines.
func (s *System) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.coalescer.Start()
	s.publish() // establish the default sentence on boot

	if err := s.AIS.Connect(ctx); err != nil {
		return fmt.Errorf("connect AIS stream: %w", err)
	}

	s.wg.Add(2)
	go s.pumpFixes(ctx)
	go s.pumpEvents(ctx)
	return nil
}

// Stop tears everything down in dependency order.
func (s *System) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.AIS.Close()
	s.wg.Wait()
	s.coalescer.Stop()
	s.bridge.Close()
	if s.embedded != nil {
		s.embedded.Shutdown()
	}
}

// CurrentText returns the last safe sentence and whether it is alarming.
func (s *System) CurrentText() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Renderer.LastGood(), s.lastAlarm
}

// Connected reports the AIS stream state as last published.
func (s *System) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *System) pumpFixes(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case fix, ok := <-s.AIS.Fixes():
			if !ok {
				return
			}
			s.Registry.Upsert(fix)
		case ev, ok := <-s.AIS.Status():
			if !ok {
				return
			}
			s.handleStreamStatus(ev)
		}
	}
}

func (s *System) handleStreamStatus(ev ais.StatusEvent) {
	s.mu.Lock()
	switch ev.Kind {
	case ais.StatusConnected:
		s.connected = true
	case ais.StatusDisconnected, ais.StatusMaxReconnectsReached:
		s.connected = false
	}
	s.mu.Unlock()

	if ev.Kind == ais.StatusMaxReconnectsReached {
		slog.Error("AIS stream gave up reconnecting", "error", ev.Err)
	}
	// Connection state is a capability like any other; push it out now.
	s.coalescer.Notify(coalesce.GlobalLane, coalesce.SigImmediate)
}

func (s *System) pumpEvents(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-s.Registry.Events():
			if !ok {
				return
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *System) handleEvent(ctx context.Context, ev domain.Event) {
	switch ev.Kind {
	case domain.VesselRemoved:
		s.notifier.Forget(ev.MMSI)
	default:
		s.notifier.Observe(ctx, ev.Vessel)
	}
	s.coalescer.Notify(coalesce.LaneFor(ev), coalesce.SignificanceFor(ev))
}

// publish regenerates the sentence from the live snapshot and pushes the
// capability set. Runs on coalescer timers.
func (s *System) publish() {
	snap := s.Registry.Snapshot()
	sentence := s.Renderer.Render(snap, s.clk.Now())
	alarm := sentence != text.DefaultMessage

	s.mu.Lock()
	s.lastAlarm = alarm
	connected := s.connected
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.bridge.PublishCapabilities(ctx, host.Capabilities{
		BridgeText: sentence,
		Alarm:      alarm,
		Connected:  connected,
	}); err != nil {
		slog.Error("publish capabilities failed", "error", err)
	}
}
