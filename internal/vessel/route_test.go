package vessel

import (
	"testing"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
)

func TestRouteValidator(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("sequential northbound run", func(t *testing.T) {
		r := NewRouteValidator()
		seq := []string{bridges.Olidebron, bridges.Klaffbron, bridges.Jarnvagsbron, bridges.Stridsbergsbron}
		for i, id := range seq {
			if !r.Validate("1", id, t0.Add(time.Duration(i)*2*time.Minute)) {
				t.Fatalf("sequential passage of %s rejected", id)
			}
		}
	})

	t.Run("skipping bridges is rejected", func(t *testing.T) {
		r := NewRouteValidator()
		r.Validate("1", bridges.Olidebron, t0)
		if r.Validate("1", bridges.Stridsbergsbron, t0.Add(2*time.Minute)) {
			t.Error("olidebron -> stridsbergsbron accepted without the bridges between")
		}
	})

	t.Run("stale history resets the journey", func(t *testing.T) {
		r := NewRouteValidator()
		r.Validate("1", bridges.Olidebron, t0)
		if !r.Validate("1", bridges.Stridsbergsbron, t0.Add(15*time.Minute)) {
			t.Error("passage after a long gap rejected")
		}
	})

	t.Run("stallbacka involvement is always allowed", func(t *testing.T) {
		r := NewRouteValidator()
		r.Validate("1", bridges.Klaffbron, t0)
		if !r.Validate("1", bridges.Stallbackabron, t0.Add(2*time.Minute)) {
			t.Error("jump to stallbackabron rejected")
		}
	})

	t.Run("reversal is allowed", func(t *testing.T) {
		r := NewRouteValidator()
		r.Validate("1", bridges.Klaffbron, t0)
		r.Validate("1", bridges.Jarnvagsbron, t0.Add(2*time.Minute))
		// Turned around: back over Järnvägsbron's southern neighbours.
		if !r.Validate("1", bridges.Klaffbron, t0.Add(4*time.Minute)) {
			t.Error("adjacent southbound step rejected")
		}
		if !r.Validate("1", bridges.Olidebron, t0.Add(6*time.Minute)) {
			t.Error("continued reversal rejected")
		}
	})

	t.Run("unknown bridge", func(t *testing.T) {
		r := NewRouteValidator()
		if r.Validate("1", "bogus", t0) {
			t.Error("unknown bridge accepted")
		}
	})

	t.Run("clear wipes history", func(t *testing.T) {
		r := NewRouteValidator()
		r.Validate("1", bridges.Olidebron, t0)
		r.Clear("1")
		if !r.Validate("1", bridges.Stridsbergsbron, t0.Add(time.Minute)) {
			t.Error("cleared vessel still constrained by old history")
		}
	})
}
