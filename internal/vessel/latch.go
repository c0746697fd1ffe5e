package vessel

import (
	"sync"
	"time"
)

const latchOrphanAge = 5 * time.Minute

// PassageLatch blocks the temporal paradox "under-bridge right after just
// passed": once a passage is emitted for (mmsi, bridge), waiting and
// under-bridge statuses for that same bridge are suppressed for the display
// window. Orphaned entries age out after five minutes.
type PassageLatch struct {
	mu      sync.Mutex
	latched map[latchKey]time.Time
}

type latchKey struct {
	mmsi     string
	bridgeID string
}

func NewPassageLatch() *PassageLatch {
	return &PassageLatch{latched: make(map[latchKey]time.Time)}
}

// Latch records a passage emission.
func (l *PassageLatch) Latch(mmsi, bridgeID string, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.latched[latchKey{mmsi, bridgeID}] = at
	l.sweep(at)
}

// Blocked reports whether waiting/under-bridge for the bridge must be
// suppressed at the given instant.
func (l *PassageLatch) Blocked(mmsi, bridgeID string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.latched[latchKey{mmsi, bridgeID}]
	if !ok {
		return false
	}
	if now.Sub(at) >= DisplayWindow {
		delete(l.latched, latchKey{mmsi, bridgeID})
		return false
	}
	return true
}

// Clear drops every latch for a vessel (called on removal).
func (l *PassageLatch) Clear(mmsi string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k := range l.latched {
		if k.mmsi == mmsi {
			delete(l.latched, k)
		}
	}
}

func (l *PassageLatch) sweep(now time.Time) {
	for k, at := range l.latched {
		if now.Sub(at) > latchOrphanAge {
			delete(l.latched, k)
		}
	}
}
