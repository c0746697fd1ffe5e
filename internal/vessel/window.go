package vessel

import (
	"time"

	"github.com/bronvakt/bronvakt/internal/domain"
)

// Passage windows. The display window is what the user sees as "just
// passed"; the internal grace period is what lifecycle and target-protection
// logic honours. One source of truth for both.
const (
	// DisplayWindow is identical for every passage.
	DisplayWindow = 60 * time.Second

	// Internal grace depends on speed: a fast vessel clears the bridge area
	// quickly, so its bookkeeping may be held longer without going stale.
	internalGraceFast = 2 * time.Minute
	internalGraceSlow = 1 * time.Minute
	fastVesselKnots   = 2.0
)

// InternalGrace returns the lifecycle grace period for a vessel moving at
// the given speed.
func InternalGrace(sog float64) time.Duration {
	if sog >= fastVesselKnots {
		return internalGraceFast
	}
	return internalGraceSlow
}

// ShouldShowRecentlyPassed reports whether the vessel's latest passage is
// still inside the display window.
func ShouldShowRecentlyPassed(v *domain.Vessel, now time.Time) bool {
	if v.LastPassedBridgeTime.IsZero() {
		return false
	}
	return now.Sub(v.LastPassedBridgeTime) < DisplayWindow
}

// WithinInternalGrace reports whether lifecycle logic should still treat the
// vessel as freshly past a bridge.
func WithinInternalGrace(v *domain.Vessel, now time.Time) bool {
	if v.LastPassedBridgeTime.IsZero() {
		return false
	}
	return now.Sub(v.LastPassedBridgeTime) < InternalGrace(v.SOG)
}
