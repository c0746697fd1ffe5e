package status_test

import (
	"testing"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/domain"
	"github.com/bronvakt/bronvakt/internal/status"
	"github.com/bronvakt/bronvakt/internal/vessel"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func heading(v float64) *float64 { return &v }

// atBridge builds an input for a vessel offset south of the given bridge by
// roughly metres.
func atBridge(t *testing.T, bridgeID string, metres, sog float64) status.Input {
	t.Helper()
	b, ok := bridges.ByID(bridgeID)
	if !ok {
		t.Fatalf("unknown bridge %s", bridgeID)
	}
	lat := b.Lat - metres/111320.0
	prox, ok := vessel.EvaluateProximity(lat, b.Lon)
	if !ok {
		t.Fatal("proximity failed")
	}
	return status.Input{
		Vessel: domain.Vessel{
			MMSI: "123",
			Lat:  lat,
			Lon:  b.Lon,
			SOG:  sog,
		},
		Prox: prox,
		Now:  now,
	}
}

func TestDeriveUnderBridge(t *testing.T) {
	in := atBridge(t, bridges.Klaffbron, 30, 3)
	in.Vessel.TargetBridge = bridges.Klaffbron

	res := status.Derive(in)
	if res.Status != domain.StatusUnderBridge {
		t.Fatalf("Status = %v, want under-bridge", res.Status)
	}
	if res.Bridge != bridges.Klaffbron || !res.UnderBridgeLatched {
		t.Errorf("result = %+v", res)
	}
}

func TestDeriveUnderBridgeHysteresis(t *testing.T) {
	// 60m out: inside the clear radius but outside the set radius.
	in := atBridge(t, bridges.Klaffbron, 60, 3)
	in.Vessel.TargetBridge = bridges.Klaffbron

	t.Run("not latched stays out", func(t *testing.T) {
		if res := status.Derive(in); res.Status == domain.StatusUnderBridge {
			t.Error("60m acquired under-bridge without the latch")
		}
	})

	t.Run("latched holds on", func(t *testing.T) {
		in := in
		in.Vessel.UnderBridgeLatched = true
		in.Vessel.CurrentBridge = bridges.Klaffbron
		if res := status.Derive(in); res.Status != domain.StatusUnderBridge {
			t.Errorf("latched vessel dropped at 60m: %v", res.Status)
		}
	})
}

func TestDeriveWaitingAtTarget(t *testing.T) {
	in := atBridge(t, bridges.Klaffbron, 200, 0.2)
	in.Vessel.TargetBridge = bridges.Klaffbron

	res := status.Derive(in)
	if res.Status != domain.StatusWaiting {
		t.Fatalf("Status = %v, want waiting", res.Status)
	}
	if res.Bridge != bridges.Klaffbron {
		t.Errorf("Bridge = %s", res.Bridge)
	}

	t.Run("moving vessel is not waiting", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 200, 3)
		in.Vessel.TargetBridge = bridges.Klaffbron
		if res := status.Derive(in); res.Status == domain.StatusWaiting {
			t.Error("3kn vessel derived as waiting")
		}
	})

	t.Run("hysteresis keeps an established wait at 310m", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 310, 0.2)
		in.Vessel.TargetBridge = bridges.Klaffbron
		in.Vessel.Status = domain.StatusWaiting
		in.Vessel.CurrentBridge = bridges.Klaffbron
		if res := status.Derive(in); res.Status != domain.StatusWaiting {
			t.Errorf("established wait dropped at 310m: %v", res.Status)
		}
	})

	t.Run("fresh vessel at 310m does not acquire waiting at the target", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 310, 0.2)
		in.Vessel.TargetBridge = bridges.Klaffbron
		res := status.Derive(in)
		if res.Status == domain.StatusWaiting && res.Bridge == bridges.Klaffbron {
			t.Error("310m acquired target waiting without hysteresis")
		}
	})
}

func TestDeriveWaitingAtIntermediate(t *testing.T) {
	in := atBridge(t, bridges.Jarnvagsbron, 150, 0.2)
	in.Vessel.TargetBridge = bridges.Stridsbergsbron

	res := status.Derive(in)
	if res.Status != domain.StatusWaiting {
		t.Fatalf("Status = %v, want waiting at intermediate", res.Status)
	}
	if res.Bridge != bridges.Jarnvagsbron {
		t.Errorf("Bridge = %s, want jarnvagsbron", res.Bridge)
	}
}

func TestDeriveStallbackaWaiting(t *testing.T) {
	in := atBridge(t, bridges.Stallbackabron, 200, 4)
	in.Vessel.TargetBridge = bridges.Stridsbergsbron

	res := status.Derive(in)
	if res.Status != domain.StatusStallbackaWaiting {
		t.Fatalf("Status = %v, want stallbacka-waiting", res.Status)
	}
}

func TestDeriveApproaching(t *testing.T) {
	t.Run("fast vessel inside the set radius", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 400, 4)
		in.Vessel.TargetBridge = bridges.Klaffbron
		if res := status.Derive(in); res.Status != domain.StatusApproaching {
			t.Errorf("Status = %v, want approaching", res.Status)
		}
	})

	t.Run("slow diverging vessel is not approaching", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 400, 1)
		in.Vessel.TargetBridge = bridges.Klaffbron
		in.Vessel.COG = heading(180) // heading away
		prev := 390.0
		in.PrevTargetDistance = &prev // opening distance
		if res := status.Derive(in); res.Status == domain.StatusApproaching {
			t.Error("diverging vessel derived as approaching")
		}
	})

	t.Run("slow converging vessel is approaching", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 400, 1)
		in.Vessel.TargetBridge = bridges.Klaffbron
		prev := 420.0
		in.PrevTargetDistance = &prev
		if res := status.Derive(in); res.Status != domain.StatusApproaching {
			t.Errorf("converging vessel not approaching: %v", res.Status)
		}
	})

	t.Run("hysteresis holds at 500m once approaching", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 500, 4)
		in.Vessel.TargetBridge = bridges.Klaffbron
		in.Vessel.Status = domain.StatusApproaching
		if res := status.Derive(in); res.Status != domain.StatusApproaching {
			t.Errorf("established approach dropped at 500m: %v", res.Status)
		}
	})

	t.Run("fresh vessel at 500m stays en-route", func(t *testing.T) {
		in := atBridge(t, bridges.Klaffbron, 500, 4)
		in.Vessel.TargetBridge = bridges.Klaffbron
		if res := status.Derive(in); res.Status != domain.StatusEnRoute {
			t.Errorf("Status = %v, want en-route", res.Status)
		}
	})
}

func TestDerivePassedWinsOverEverything(t *testing.T) {
	in := atBridge(t, bridges.Klaffbron, 30, 0.1)
	in.Vessel.TargetBridge = bridges.Klaffbron
	in.Vessel.LastPassedBridge = bridges.Klaffbron
	in.Vessel.LastPassedBridgeTime = now.Add(-30 * time.Second)

	res := status.Derive(in)
	if res.Status != domain.StatusPassed {
		t.Fatalf("Status = %v, want passed", res.Status)
	}

	// Outside the display window the passage no longer dominates.
	in.Vessel.LastPassedBridgeTime = now.Add(-90 * time.Second)
	if res := status.Derive(in); res.Status == domain.StatusPassed {
		t.Error("stale passage still reported as passed")
	}
}

func TestDeriveLatchBlocksReacquisition(t *testing.T) {
	in := atBridge(t, bridges.Klaffbron, 30, 0.1)
	in.Vessel.TargetBridge = bridges.Klaffbron
	in.LatchBlocked = func(id string) bool { return id == bridges.Klaffbron }

	res := status.Derive(in)
	if res.Status == domain.StatusUnderBridge || res.Status == domain.StatusWaiting {
		t.Errorf("latched bridge re-acquired %v", res.Status)
	}
}

func TestDeriveNoTarget(t *testing.T) {
	in := atBridge(t, bridges.Klaffbron, 2000, 3)
	in.Vessel.TargetBridge = ""
	if res := status.Derive(in); res.Status != domain.StatusNone {
		t.Errorf("Status = %v, want none", res.Status)
	}
}
