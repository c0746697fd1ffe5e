package vessel

import (
	"testing"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
)

func TestGPSGateConfirmsStableCandidate(t *testing.T) {
	g := NewGPSGate()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	const lat, lon = 58.2706, 12.2710

	g.Hold("123", bridges.Klaffbron, t0, lat, lon, 3.0, heading(20), t0)

	if !g.Holding("123") {
		t.Fatal("candidate not held")
	}

	// Fixes within tolerance but before the stability window: nothing yet.
	if got := g.Observe("123", lat, lon, 3.1, heading(22), t0.Add(2*time.Second)); len(got) != 0 {
		t.Fatalf("confirmed too early: %+v", got)
	}

	got := g.Observe("123", lat, lon, 3.0, heading(21), t0.Add(6*time.Second))
	if len(got) != 1 {
		t.Fatalf("expected 1 confirmation, got %+v", got)
	}
	if got[0].BridgeID != bridges.Klaffbron || !got[0].CrossingTime.Equal(t0) {
		t.Errorf("confirmation = %+v", got[0])
	}
	if g.Holding("123") {
		t.Error("candidate still held after confirmation")
	}
}

func TestGPSGateUnstableFixRestartsClock(t *testing.T) {
	g := NewGPSGate()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	const lat, lon = 58.2706, 12.2710

	g.Hold("123", bridges.Klaffbron, t0, lat, lon, 3.0, heading(20), t0)

	// A 100m-off fix at t+4s destabilises the candidate.
	if got := g.Observe("123", offsetLat(lat, 100), lon, 3.0, heading(20), t0.Add(4*time.Second)); len(got) != 0 {
		t.Fatalf("unstable fix confirmed: %+v", got)
	}
	// Stable again, but only 4s since the restart: still pending.
	if got := g.Observe("123", offsetLat(lat, 100), lon, 3.0, heading(20), t0.Add(8*time.Second)); len(got) != 0 {
		t.Fatalf("confirmed before the restarted window elapsed: %+v", got)
	}
	// 5s past the restart.
	if got := g.Observe("123", offsetLat(lat, 100), lon, 3.0, heading(20), t0.Add(9*time.Second)); len(got) != 1 {
		t.Fatalf("expected confirmation after restabilising, got %+v", got)
	}
}

func TestGPSGateTimeout(t *testing.T) {
	g := NewGPSGate()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	const lat, lon = 58.2706, 12.2710

	g.Hold("123", bridges.Klaffbron, t0, lat, lon, 3.0, heading(20), t0)

	if got := g.Observe("123", lat, lon, 3.0, heading(20), t0.Add(31*time.Second)); len(got) != 0 {
		t.Fatalf("timed-out candidate confirmed: %+v", got)
	}
	if g.Holding("123") {
		t.Error("timed-out candidate still held")
	}
}

func TestGPSGateClear(t *testing.T) {
	g := NewGPSGate()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	g.Hold("123", bridges.Klaffbron, t0, 58.2706, 12.2710, 3.0, nil, t0)
	g.Clear("123")
	if g.Holding("123") {
		t.Error("Clear left a candidate")
	}
}
