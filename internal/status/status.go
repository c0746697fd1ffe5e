// Package status derives the per-vessel status from proximity data and
// stabilises it against GPS noise.
package status

import (
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/domain"
	"github.com/bronvakt/bronvakt/internal/geo"
)

// Thresholds. Set/clear pairs are deliberate hysteresis; treat them as the
// contract, not as derivable from the zone radii.
const (
	UnderBridgeSet   = 50.0
	UnderBridgeClear = 70.0

	WaitingSet   = 300.0
	WaitingClear = 320.0

	ApproachSet   = 450.0
	ApproachClear = 550.0

	// A vessel drifting below this is "waiting" rather than moving.
	LowSpeedKnots = 0.5

	// "Actually approaching" checks.
	approachHeadingTolerance = 90.0
	approachMinConvergence   = 5.0
	approachFastKnots        = 2.0
)

// Input is everything status derivation may look at. LatchBlocked guards the
// just-passed paradox; PrevTargetDistance feeds the convergence check.
type Input struct {
	Vessel             domain.Vessel
	Prox               domain.Proximity
	PrevTargetDistance *float64
	Now                time.Time
	LatchBlocked       func(bridgeID string) bool
}

// Result is the derived status plus the bridge it is anchored to and the
// updated under-bridge latch.
type Result struct {
	Status             domain.Status
	Bridge             string // current bridge for the status, "" for en-route
	UnderBridgeLatched bool
}

// Derive maps a vessel and its proximity onto a status. Pure; hysteresis
// state travels in and out through the vessel snapshot.
func Derive(in Input) Result {
	v := in.Vessel
	blocked := func(id string) bool {
		return in.LatchBlocked != nil && in.LatchBlocked(id)
	}

	// Just passed wins over everything within the display window.
	if !v.LastPassedBridgeTime.IsZero() && in.Now.Sub(v.LastPassedBridgeTime) < displayWindow {
		return Result{Status: domain.StatusPassed, Bridge: v.LastPassedBridge}
	}

	nearestID := in.Prox.NearestID
	nearestDist := in.Prox.Nearest

	// Under-bridge: 50 m set, 70 m clear once latched.
	if nearestID != "" && !blocked(nearestID) {
		if nearestDist <= UnderBridgeSet ||
			(v.UnderBridgeLatched && v.CurrentBridge == nearestID && nearestDist < UnderBridgeClear) {
			return Result{Status: domain.StatusUnderBridge, Bridge: nearestID, UnderBridgeLatched: true}
		}
	}

	// The special bridge never "inväntar broöppning": inside its zone the
	// status is stallbacka-waiting, while the displayed target stays the
	// nearest opening bridge.
	if nearestID == bridges.Stallbackabron && nearestDist <= WaitingSet {
		return Result{Status: domain.StatusStallbackaWaiting, Bridge: nearestID}
	}

	// Waiting at the target bridge.
	if v.TargetBridge != "" && !blocked(v.TargetBridge) {
		if d, ok := in.Prox.Distance(v.TargetBridge); ok && v.SOG < LowSpeedKnots {
			limit := WaitingSet
			if v.Status == domain.StatusWaiting && v.CurrentBridge == v.TargetBridge {
				limit = WaitingClear
			}
			if d <= limit {
				return Result{Status: domain.StatusWaiting, Bridge: v.TargetBridge}
			}
		}
	}

	// Waiting at an intermediate bridge.
	if nearestID != "" && nearestID != v.TargetBridge && !blocked(nearestID) {
		if b, ok := bridges.ByID(nearestID); ok && b.Class == bridges.Intermediate &&
			nearestDist <= WaitingSet && v.SOG < LowSpeedKnots {
			return Result{Status: domain.StatusWaiting, Bridge: nearestID}
		}
	}

	// Approaching: inside the set radius and actually closing in.
	if v.TargetBridge != "" {
		if d, ok := in.Prox.Distance(v.TargetBridge); ok {
			limit := ApproachSet
			if v.Status == domain.StatusApproaching {
				limit = ApproachClear
			}
			if d <= limit && actuallyApproaching(v, in.Prox, in.PrevTargetDistance, d) {
				bridge := ""
				if b, ok := bridges.ByID(nearestID); ok && b.Class == bridges.Intermediate && nearestDist <= ApproachSet {
					bridge = nearestID
				}
				return Result{Status: domain.StatusApproaching, Bridge: bridge}
			}
		}
	}

	if v.TargetBridge != "" {
		return Result{Status: domain.StatusEnRoute}
	}
	return Result{Status: domain.StatusNone}
}

const displayWindow = 60 * time.Second

// actuallyApproaching applies the three-method check: heading within ±90° of
// the bearing to the bridge, distance shrinking by at least 5 m, or simply
// moving fast.
func actuallyApproaching(v domain.Vessel, prox domain.Proximity, prevDist *float64, curDist float64) bool {
	if v.SOG > approachFastKnots {
		return true
	}
	if prevDist != nil && *prevDist-curDist >= approachMinConvergence {
		return true
	}
	if v.COG != nil {
		if b, ok := bridges.ByID(v.TargetBridge); ok {
			if bearing, ok := geo.Bearing(v.Lat, v.Lon, b.Lat, b.Lon); ok {
				return geo.AngleDiff(*v.COG, bearing) <= approachHeadingTolerance
			}
		}
	}
	return false
}
