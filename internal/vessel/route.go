package vessel

import (
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
)

const (
	routeHistoryLen = 10
	// Gaps longer than this are treated as a fresh journey, not a violation.
	routeGapReset = 10 * time.Minute
)

// RouteValidator rejects geographically impossible bridge sequences: a
// vessel cannot pass Stridsbergsbron immediately after Olidebron without
// the bridges between them. Exceptions: long time gaps, confirmed direction
// reversals, and the special bridge (whose detection is fuzzier).
type RouteValidator struct {
	mu      sync.Mutex
	history map[string][]routeEntry
}

type routeEntry struct {
	bridgeID string
	order    int
	at       time.Time
}

func NewRouteValidator() *RouteValidator {
	return &RouteValidator{history: make(map[string][]routeEntry)}
}

// Validate reports whether a passage of bridgeID is geographically possible
// given the vessel's recent passage history, and records it when it is.
func (r *RouteValidator) Validate(mmsi, bridgeID string, at time.Time) bool {
	b, ok := bridges.ByID(bridgeID)
	if !ok {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hist := r.history[mmsi]
	if len(hist) > 0 {
		last := hist[len(hist)-1]
		step := b.Order - last.order
		elapsed := at.Sub(last.at)

		switch {
		case elapsed > routeGapReset:
			// Stale history: the vessel may have turned around anywhere.
		case step == 0:
			// Same bridge again; the anchor-side re-cross guard owns this.
		case step == 1 || step == -1:
			// Adjacent bridge in either direction: always fine.
		case b.ID == bridges.Stallbackabron || last.bridgeID == bridges.Stallbackabron:
			// Crossings involving the special bridge use relaxed detection;
			// let them through.
		case isReversal(hist, step):
			// Confirmed direction reversal.
		default:
			return false
		}
	}

	hist = append(hist, routeEntry{bridgeID: b.ID, order: b.Order, at: at})
	if len(hist) > routeHistoryLen {
		hist = hist[len(hist)-routeHistoryLen:]
	}
	r.history[mmsi] = hist
	return true
}

// Clear drops a vessel's passage history.
func (r *RouteValidator) Clear(mmsi string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.history, mmsi)
}

// isReversal reports whether the latest step direction opposes the
// established travel direction, i.e. the vessel genuinely turned around and
// is re-passing bridges it already crossed.
func isReversal(hist []routeEntry, step int) bool {
	if len(hist) < 2 {
		return false
	}
	prevStep := hist[len(hist)-1].order - hist[len(hist)-2].order
	if prevStep == 0 {
		return false
	}
	// Opposite signs and a step of magnitude <= 2 (the bridge it last
	// passed plus its neighbour).
	if (prevStep > 0) == (step > 0) {
		return false
	}
	return step >= -2 && step <= 2
}
