package vessel

import (
	"math"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/geo"
)

const (
	// A held candidate is confirmed after the fix stream stays stable this
	// long.
	gateStabilityWindow = 5 * time.Second
	// Hard ceiling so a candidate can never wedge.
	gateTimeout = 30 * time.Second

	gatePositionTolerance = 30.0 // metres
	gateSOGTolerance      = 1.0  // knots
	gateCOGTolerance      = 30.0 // degrees
)

// GPSGate holds passage candidates while GPS coordination is active. A
// candidate is confirmed only once position, speed and course have been
// stable for the stability window; otherwise it is discarded.
type GPSGate struct {
	mu         sync.Mutex
	candidates map[gateKey]*gateCandidate
}

type gateKey struct {
	mmsi     string
	bridgeID string
}

type gateCandidate struct {
	since        time.Time
	crossingTime time.Time
	lastLat      float64
	lastLon      float64
	lastSOG      float64
	lastCOG      *float64
	stableSince  time.Time
}

func NewGPSGate() *GPSGate {
	return &GPSGate{candidates: make(map[gateKey]*gateCandidate)}
}

// Hold registers a passage candidate observed at crossingTime.
func (g *GPSGate) Hold(mmsi, bridgeID string, crossingTime time.Time, lat, lon, sog float64, cog *float64, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := gateKey{mmsi, bridgeID}
	if _, exists := g.candidates[key]; exists {
		return
	}
	g.candidates[key] = &gateCandidate{
		since:        now,
		crossingTime: crossingTime,
		lastLat:      lat,
		lastLon:      lon,
		lastSOG:      sog,
		lastCOG:      cloneCOG(cog),
		stableSince:  now,
	}
}

// Observe feeds a new fix to any held candidate for the vessel. It returns
// the confirmed crossings, and silently discards candidates that either
// destabilised past tolerance or hit the hard timeout.
type ConfirmedPassage struct {
	BridgeID     string
	CrossingTime time.Time
}

func (g *GPSGate) Observe(mmsi string, lat, lon, sog float64, cog *float64, now time.Time) []ConfirmedPassage {
	g.mu.Lock()
	defer g.mu.Unlock()

	var confirmed []ConfirmedPassage
	for key, cand := range g.candidates {
		if key.mmsi != mmsi {
			if now.Sub(cand.since) > gateTimeout {
				delete(g.candidates, key)
			}
			continue
		}

		if now.Sub(cand.since) > gateTimeout {
			delete(g.candidates, key)
			continue
		}

		if stableFix(cand, lat, lon, sog, cog) {
			if now.Sub(cand.stableSince) >= gateStabilityWindow {
				confirmed = append(confirmed, ConfirmedPassage{BridgeID: key.bridgeID, CrossingTime: cand.crossingTime})
				delete(g.candidates, key)
				continue
			}
		} else {
			// Still bouncing; restart the stability clock from here.
			cand.stableSince = now
		}
		cand.lastLat, cand.lastLon = lat, lon
		cand.lastSOG = sog
		cand.lastCOG = cloneCOG(cog)
	}
	return confirmed
}

// Holding reports whether any candidate is pending for the vessel.
func (g *GPSGate) Holding(mmsi string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.candidates {
		if key.mmsi == mmsi {
			return true
		}
	}
	return false
}

// Clear drops every candidate for a vessel.
func (g *GPSGate) Clear(mmsi string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key := range g.candidates {
		if key.mmsi == mmsi {
			delete(g.candidates, key)
		}
	}
}

func stableFix(cand *gateCandidate, lat, lon, sog float64, cog *float64) bool {
	d, ok := geo.Distance(cand.lastLat, cand.lastLon, lat, lon)
	if !ok || d > gatePositionTolerance {
		return false
	}
	if math.Abs(cand.lastSOG-sog) > gateSOGTolerance {
		return false
	}
	if cand.lastCOG != nil && cog != nil && geo.AngleDiff(*cand.lastCOG, *cog) > gateCOGTolerance {
		return false
	}
	return true
}

func cloneCOG(cog *float64) *float64 {
	if cog == nil {
		return nil
	}
	c := *cog
	return &c
}
