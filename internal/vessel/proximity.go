package vessel

import (
	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/domain"
	"github.com/bronvakt/bronvakt/internal/geo"
)

// Canonical proximity zones (metres).
const (
	ApproachRadius   = 500.0
	ProtectionRadius = 300.0
	// Under-bridge carries a deliberate 20 m hysteresis gap.
	UnderBridgeSetRadius   = 50.0
	UnderBridgeClearRadius = 70.0
)

// ZoneTransition reports a vessel entering or leaving a bridge zone.
type ZoneTransition struct {
	BridgeID string
	Radius   float64
	Entered  bool
}

// EvaluateProximity computes the vessel's relation to every bridge in canal
// order plus the nearest one.
func EvaluateProximity(lat, lon float64) (domain.Proximity, bool) {
	if !geo.ValidCoord(lat, lon) {
		return domain.Proximity{}, false
	}
	var prox domain.Proximity
	for _, b := range bridges.All() {
		d, ok := geo.Distance(lat, lon, b.Lat, b.Lon)
		if !ok {
			return domain.Proximity{}, false
		}
		bearing, _ := geo.Bearing(b.Lat, b.Lon, lat, lon)
		prox.Distances = append(prox.Distances, domain.BridgeDistance{
			BridgeID:          b.ID,
			Distance:          d,
			BearingFromBridge: bearing,
		})
		if prox.NearestID == "" || d < prox.Nearest {
			prox.NearestID = b.ID
			prox.Nearest = d
		}
	}
	return prox, true
}

// ZoneTransitions diffs two proximity results against the approach and
// protection radii and reports every boundary crossed.
func ZoneTransitions(prev, cur domain.Proximity) []ZoneTransition {
	var out []ZoneTransition
	for _, radius := range []float64{ApproachRadius, ProtectionRadius} {
		for _, cd := range cur.Distances {
			pd, ok := prev.Distance(cd.BridgeID)
			if !ok {
				if cd.Distance <= radius {
					out = append(out, ZoneTransition{BridgeID: cd.BridgeID, Radius: radius, Entered: true})
				}
				continue
			}
			wasIn, isIn := pd <= radius, cd.Distance <= radius
			if wasIn != isIn {
				out = append(out, ZoneTransition{BridgeID: cd.BridgeID, Radius: radius, Entered: isIn})
			}
		}
	}
	return out
}
