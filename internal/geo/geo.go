// Package geo provides the geodesy used by the vessel pipeline: haversine
// distance and bearing (via paulmach/orb), coordinate validation, and the
// multi-method bridge passage detector.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// ValidCoord reports whether a lat/lon pair is usable: finite, in range,
// and not the 0/0 garbage fix AIS transponders emit.
func ValidCoord(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	if lat == 0 && lon == 0 {
		return false
	}
	return true
}

// Distance returns the haversine distance in metres between two positions.
// ok is false instead of panicking on invalid input.
func Distance(lat1, lon1, lat2, lon2 float64) (metres float64, ok bool) {
	if !ValidCoord(lat1, lon1) || !ValidCoord(lat2, lon2) {
		return 0, false
	}
	d := orbgeo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	return d, true
}

// Bearing returns the initial bearing in degrees [0,360) from a to b.
func Bearing(lat1, lon1, lat2, lon2 float64) (degrees float64, ok bool) {
	if !ValidCoord(lat1, lon1) || !ValidCoord(lat2, lon2) {
		return 0, false
	}
	b := orbgeo.Bearing(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	return math.Mod(b+360, 360), true
}

// NormalizeCOG maps the AIS quirk COG=360 onto 0 and wraps into [0,360).
func NormalizeCOG(cog float64) float64 {
	return math.Mod(math.Mod(cog, 360)+360, 360)
}

// AngleDiff returns the absolute angular difference in degrees (0–180).
func AngleDiff(a, b float64) float64 {
	d := math.Abs(NormalizeCOG(a) - NormalizeCOG(b))
	if d > 180 {
		d = 360 - d
	}
	return d
}

// Line-crossing thresholds. The relaxed threshold applies while a vessel is
// manoeuvring or its AIS cadence is sparse.
const (
	LineCrossThreshold        = 250.0
	LineCrossThresholdRelaxed = 300.0
)

// PassageContext carries the kinematic hints the detector may use.
type PassageContext struct {
	PrevCOG *float64 // course at the previous fix, nil when unknown
	CurCOG  *float64 // course at the current fix, nil when unknown
	Relaxed bool     // manoeuvring or sparse AIS: widen the crossing corridor
	Special bool     // the bridge is Stallbackabron
}

// PassageResult is the detector verdict.
type PassageResult struct {
	Detected   bool
	Method     string
	Confidence float64 // 0.7–0.95 when detected
}

// Position is a plain lat/lon pair.
type Position struct {
	Lat float64
	Lon float64
}

// DetectPassage decides whether the move prev→cur crossed the bridge. Five
// methods are tried in order of decreasing confidence; the first hit wins.
func DetectPassage(prev, cur, bridge Position, ctx PassageContext) PassageResult {
	if !ValidCoord(prev.Lat, prev.Lon) || !ValidCoord(cur.Lat, cur.Lon) || !ValidCoord(bridge.Lat, bridge.Lon) {
		return PassageResult{}
	}

	dPrev, _ := Distance(prev.Lat, prev.Lon, bridge.Lat, bridge.Lon)
	dCur, _ := Distance(cur.Lat, cur.Lon, bridge.Lat, bridge.Lon)
	// The canal runs south–north; which side of the bridge a position is on
	// follows from latitude alone.
	flipped := (prev.Lat < bridge.Lat) != (cur.Lat < bridge.Lat)

	threshold := LineCrossThreshold
	if ctx.Relaxed {
		threshold = LineCrossThresholdRelaxed
	}

	// 1. Traditional: both fixes inside the crossing corridor, side flipped.
	if flipped && dPrev <= threshold && dCur <= threshold {
		return PassageResult{Detected: true, Method: "traditional", Confidence: 0.95}
	}

	// 2. Line crossing: the segment crosses the bridge line and its closest
	// point to the bridge is inside the corridor.
	if flipped && segmentMinDistance(prev, cur, bridge) <= threshold {
		return PassageResult{Detected: true, Method: "line-crossing", Confidence: 0.9}
	}

	// 3. Progressive convergence: the vessel converged to very close range
	// and is now opening distance on the far side.
	if flipped && dPrev <= 100 && dCur > dPrev {
		return PassageResult{Detected: true, Method: "progressive", Confidence: 0.8}
	}

	// 4. Direction change at the bridge: a near-reciprocal course change
	// while hugging the bridge means the track folded across it, even when
	// noisy fixes kept both positions on the same latitude side.
	if ctx.PrevCOG != nil && ctx.CurCOG != nil && dCur <= 150 &&
		AngleDiff(*ctx.PrevCOG, *ctx.CurCOG) >= 150 {
		return PassageResult{Detected: true, Method: "direction-change", Confidence: 0.75}
	}

	// 5. Stallbackabron: the fixed bridge sits on a wide stretch where AIS
	// tracks wander; accept a plain side flip within its zone.
	if ctx.Special && flipped && dCur <= 300 {
		return PassageResult{Detected: true, Method: "stallbacka", Confidence: 0.7}
	}

	return PassageResult{}
}

// segmentMinDistance approximates the minimum distance in metres from the
// bridge to the segment prev→cur using a local equirectangular projection;
// fine at canal scale.
func segmentMinDistance(a, b, p Position) float64 {
	mPerDegLat := 111320.0
	mPerDegLon := 111320.0 * math.Cos(p.Lat*math.Pi/180)

	ax := (a.Lon - p.Lon) * mPerDegLon
	ay := (a.Lat - p.Lat) * mPerDegLat
	bx := (b.Lon - p.Lon) * mPerDegLon
	by := (b.Lat - p.Lat) * mPerDegLat

	dx, dy := bx-ax, by-ay
	segLen2 := dx*dx + dy*dy
	if segLen2 == 0 {
		return math.Hypot(ax, ay)
	}
	t := -(ax*dx + ay*dy) / segLen2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(cx, cy)
}
