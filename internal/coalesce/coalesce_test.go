package coalesce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/clock"
	"github.com/bronvakt/bronvakt/internal/domain"
)

var start = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestCoalescer(hasVessels bool) (*Coalescer, *clock.Fake, *atomic.Int64) {
	clk := clock.NewFake(start)
	var publishes atomic.Int64
	c := New(clk, func() { publishes.Add(1) }, func() bool { return hasVessels })
	return c, clk, &publishes
}

func TestCoalescerBatchesWithinGrace(t *testing.T) {
	c, clk, publishes := newTestCoalescer(true)

	c.Notify(GlobalLane, SigModerate)
	c.Notify(GlobalLane, SigModerate)
	c.Notify(GlobalLane, SigModerate)

	if publishes.Load() != 0 {
		t.Fatal("published before the grace window elapsed")
	}
	clk.Advance(25 * time.Millisecond)
	if got := publishes.Load(); got != 1 {
		t.Errorf("publishes = %d, want 1 batched publish", got)
	}

	// Lane returns to idle; nothing more fires.
	clk.Advance(time.Second)
	if got := publishes.Load(); got != 1 {
		t.Errorf("idle lane republished: %d", got)
	}
}

func TestCoalescerImmediateFiresAtOnce(t *testing.T) {
	c, clk, publishes := newTestCoalescer(true)

	c.Notify(GlobalLane, SigImmediate)
	clk.Advance(0)
	if got := publishes.Load(); got != 1 {
		t.Errorf("publishes = %d, want immediate publish", got)
	}
}

func TestCoalescerHighJoiningTightensWindow(t *testing.T) {
	c, clk, publishes := newTestCoalescer(true)

	c.Notify(GlobalLane, SigLow)  // 40ms window
	c.Notify(GlobalLane, SigHigh) // joining: pulls it to 10ms

	clk.Advance(10 * time.Millisecond)
	if got := publishes.Load(); got != 1 {
		t.Errorf("publishes = %d, want the tightened window to fire", got)
	}
}

func TestCoalescerSeparateLanes(t *testing.T) {
	c, clk, publishes := newTestCoalescer(true)

	c.Notify(bridges.Klaffbron, SigModerate)
	c.Notify(bridges.Stridsbergsbron, SigModerate)

	clk.Advance(25 * time.Millisecond)
	if got := publishes.Load(); got != 2 {
		t.Errorf("publishes = %d, want one per lane", got)
	}
}

func TestCoalescerRerunAfterEventDuringPublish(t *testing.T) {
	clk := clock.NewFake(start)
	var publishes atomic.Int64
	var c *Coalescer
	c = New(clk, func() {
		if publishes.Add(1) == 1 {
			// An event lands while the first publish is running.
			c.Notify(GlobalLane, SigModerate)
		}
	}, func() bool { return true })

	c.Notify(GlobalLane, SigModerate)
	clk.Advance(25 * time.Millisecond)
	if got := publishes.Load(); got != 1 {
		t.Fatalf("publishes = %d after first window", got)
	}

	clk.Advance(25 * time.Millisecond)
	if got := publishes.Load(); got != 2 {
		t.Errorf("publishes = %d, want rerun publish", got)
	}
}

func TestCoalescerWatchdog(t *testing.T) {
	c, clk, publishes := newTestCoalescer(true)
	c.Start()
	defer c.Stop()

	clk.Advance(90 * time.Second)
	clk.Advance(time.Second)
	if got := publishes.Load(); got != 1 {
		t.Errorf("publishes = %d, want watchdog refresh", got)
	}
}

func TestCoalescerWatchdogIdleWithoutVessels(t *testing.T) {
	c, clk, publishes := newTestCoalescer(false)
	c.Start()
	defer c.Stop()

	clk.Advance(200 * time.Second)
	if got := publishes.Load(); got != 0 {
		t.Errorf("publishes = %d, watchdog fired with no vessels", got)
	}
}

func TestCoalescerStop(t *testing.T) {
	c, clk, publishes := newTestCoalescer(true)
	c.Start()

	c.Notify(GlobalLane, SigModerate)
	c.Stop()
	clk.Advance(time.Second)
	if got := publishes.Load(); got != 0 {
		t.Errorf("publishes = %d after Stop", got)
	}

	c.Notify(GlobalLane, SigImmediate)
	clk.Advance(time.Second)
	if got := publishes.Load(); got != 0 {
		t.Errorf("stopped coalescer accepted a notify: %d", got)
	}
}

func TestLaneFor(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{bridges.Klaffbron, bridges.Klaffbron},
		{bridges.Stridsbergsbron, bridges.Stridsbergsbron},
		{"", GlobalLane},
		{bridges.Olidebron, GlobalLane},
	}
	for _, tt := range tests {
		ev := domain.Event{Vessel: domain.Vessel{TargetBridge: tt.target}}
		if got := LaneFor(ev); got != tt.want {
			t.Errorf("LaneFor(target=%q) = %q, want %q", tt.target, got, tt.want)
		}
	}
}

func TestSignificanceFor(t *testing.T) {
	tests := []struct {
		name string
		ev   domain.Event
		want Significance
	}{
		{
			"under bridge status",
			domain.Event{Kind: domain.VesselStatusChanged, Vessel: domain.Vessel{Status: domain.StatusUnderBridge}},
			SigImmediate,
		},
		{
			"passed status",
			domain.Event{Kind: domain.VesselStatusChanged, Vessel: domain.Vessel{Status: domain.StatusPassed}},
			SigImmediate,
		},
		{
			"ordinary status change",
			domain.Event{Kind: domain.VesselStatusChanged, Vessel: domain.Vessel{Status: domain.StatusApproaching}},
			SigHigh,
		},
		{"vessel entered", domain.Event{Kind: domain.VesselEntered}, SigModerate},
		{"vessel removed", domain.Event{Kind: domain.VesselRemoved}, SigModerate},
		{"plain update", domain.Event{Kind: domain.VesselUpdated}, SigLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SignificanceFor(tt.ev); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
