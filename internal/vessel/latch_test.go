package vessel

import (
	"testing"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
)

func TestPassageLatch(t *testing.T) {
	l := NewPassageLatch()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	l.Latch("123", bridges.Klaffbron, t0)

	if !l.Blocked("123", bridges.Klaffbron, t0.Add(30*time.Second)) {
		t.Error("latch not blocking inside the display window")
	}
	if l.Blocked("123", bridges.Stridsbergsbron, t0.Add(30*time.Second)) {
		t.Error("latch leaked to another bridge")
	}
	if l.Blocked("456", bridges.Klaffbron, t0.Add(30*time.Second)) {
		t.Error("latch leaked to another vessel")
	}
	if l.Blocked("123", bridges.Klaffbron, t0.Add(DisplayWindow)) {
		t.Error("latch still blocking at the window boundary")
	}
}

func TestPassageLatchClear(t *testing.T) {
	l := NewPassageLatch()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	l.Latch("123", bridges.Klaffbron, t0)
	l.Latch("123", bridges.Jarnvagsbron, t0)
	l.Clear("123")

	if l.Blocked("123", bridges.Klaffbron, t0.Add(time.Second)) {
		t.Error("Clear left a latch behind")
	}
}

func TestPassageLatchSweep(t *testing.T) {
	l := NewPassageLatch()
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	l.Latch("old", bridges.Klaffbron, t0)
	// A much later latch sweeps the orphan.
	l.Latch("new", bridges.Klaffbron, t0.Add(10*time.Minute))

	l.mu.Lock()
	_, exists := l.latched[latchKey{"old", bridges.Klaffbron}]
	l.mu.Unlock()
	if exists {
		t.Error("orphaned latch survived the sweep")
	}
}

func TestWindows(t *testing.T) {
	if InternalGrace(3) != 2*time.Minute {
		t.Errorf("fast grace = %v", InternalGrace(3))
	}
	if InternalGrace(1) != time.Minute {
		t.Errorf("slow grace = %v", InternalGrace(1))
	}
	if InternalGrace(2) != 2*time.Minute {
		t.Errorf("boundary speed should count as fast")
	}
}
