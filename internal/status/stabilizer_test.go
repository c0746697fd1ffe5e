package status

import (
	"testing"
	"time"

	"github.com/bronvakt/bronvakt/internal/domain"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStabilizerFirstReadingPassesThrough(t *testing.T) {
	s := NewStabilizer()
	if got := s.Apply("1", domain.StatusApproaching, Signals{}, now); got != domain.StatusApproaching {
		t.Errorf("first reading = %v", got)
	}
}

func TestStabilizerFreezesDuringJumpWindow(t *testing.T) {
	s := NewStabilizer()
	s.Apply("1", domain.StatusApproaching, Signals{}, now)

	// Jump detected: the window opens and a different status is held back.
	got := s.Apply("1", domain.StatusWaiting, Signals{JumpDetected: true}, now.Add(time.Second))
	if got != domain.StatusApproaching {
		t.Errorf("status changed inside a fresh jump window: %v", got)
	}

	// Still frozen 20s in.
	got = s.Apply("1", domain.StatusWaiting, Signals{}, now.Add(20*time.Second))
	if got != domain.StatusApproaching {
		t.Errorf("status changed 20s into the jump window: %v", got)
	}

	// After the 30s window the new status goes through.
	got = s.Apply("1", domain.StatusWaiting, Signals{}, now.Add(32*time.Second))
	if got != domain.StatusWaiting {
		t.Errorf("status still frozen after the window: %v", got)
	}
}

func TestStabilizerUncertainNeedsTwoConfirmations(t *testing.T) {
	s := NewStabilizer()
	s.Apply("1", domain.StatusApproaching, Signals{}, now)

	sig := Signals{PositionUncertain: true}
	if got := s.Apply("1", domain.StatusWaiting, sig, now.Add(time.Second)); got != domain.StatusApproaching {
		t.Errorf("uncertain change applied on first reading: %v", got)
	}
	if got := s.Apply("1", domain.StatusWaiting, sig, now.Add(2*time.Second)); got != domain.StatusWaiting {
		t.Errorf("confirmed change still held: %v", got)
	}
}

func TestStabilizerUncertainPendingResetsOnDifferentStatus(t *testing.T) {
	s := NewStabilizer()
	s.Apply("1", domain.StatusApproaching, Signals{}, now)

	sig := Signals{PositionUncertain: true}
	s.Apply("1", domain.StatusWaiting, sig, now.Add(time.Second))
	// A different candidate restarts the count.
	if got := s.Apply("1", domain.StatusEnRoute, sig, now.Add(2*time.Second)); got != domain.StatusApproaching {
		t.Errorf("pending switch not restarted: %v", got)
	}
}

func TestStabilizerResetSignals(t *testing.T) {
	tests := []struct {
		name string
		sig  Signals
	}{
		{"bridge changed", Signals{BridgeChanged: true, PositionUncertain: true}},
		{"invalid coords", Signals{InvalidCoords: true, PositionUncertain: true}},
		{"huge jump", Signals{JumpDistance: 600, PositionUncertain: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStabilizer()
			s.Apply("1", domain.StatusApproaching, Signals{}, now)
			// Reset signals bypass the double-confirmation rule entirely.
			if got := s.Apply("1", domain.StatusWaiting, tt.sig, now.Add(time.Second)); got != domain.StatusWaiting {
				t.Errorf("reset signal did not take the new status: %v", got)
			}
		})
	}
}

func TestStabilizerMajorityOnFlicker(t *testing.T) {
	s := NewStabilizer()
	seq := []domain.Status{
		domain.StatusWaiting,
		domain.StatusApproaching,
		domain.StatusWaiting,
		domain.StatusApproaching,
		domain.StatusWaiting,
	}
	var got domain.Status
	for i, st := range seq {
		got = s.Apply("1", st, Signals{}, now.Add(time.Duration(i)*time.Second))
	}
	// History is flapping; the majority (waiting) wins regardless of the
	// final raw derivation.
	if got != domain.StatusWaiting {
		t.Errorf("flicker result = %v, want majority waiting", got)
	}
}

func TestStabilizerResetDropsState(t *testing.T) {
	s := NewStabilizer()
	s.Apply("1", domain.StatusApproaching, Signals{JumpDetected: true}, now)
	s.Reset("1")

	// After reset the vessel is new: derived status passes straight through.
	if got := s.Apply("1", domain.StatusWaiting, Signals{}, now.Add(time.Second)); got != domain.StatusWaiting {
		t.Errorf("reset state still freezing: %v", got)
	}
}
