// Package eta computes the progressively smoothed estimated time to a
// vessel's target bridge.
package eta

import (
	"math"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/geo"
)

const (
	knotsToMS = 0.514444

	// Drifting vessels still make way through the canal; never divide by a
	// speed below this.
	minEffectiveKnots = 0.5

	// EMA weight for the newest raw estimate.
	alpha = 0.3

	// Raw estimates jumping beyond this factor of the previous smoothed
	// value are treated as outliers.
	outlierFactor = 2.5

	historyLen       = 10
	historyRetention = 30 * time.Minute
)

// Calculator keeps a short per-vessel smoothing history.
type Calculator struct {
	mu   sync.Mutex
	hist map[string][]sample
}

type sample struct {
	minutes float64
	at      time.Time
}

func NewCalculator() *Calculator {
	return &Calculator{hist: make(map[string][]sample)}
}

// Calculate returns the smoothed ETA in minutes to the target bridge, or nil
// when it cannot be computed. The route estimate sums the direct leg to the
// best entry bridge with the inter-bridge gaps from there to the target; it
// never returns NaN or infinity.
func (c *Calculator) Calculate(mmsi string, lat, lon, sog float64, targetID string, now time.Time) *float64 {
	if targetID == "" || !geo.ValidCoord(lat, lon) {
		return nil
	}
	if _, ok := bridges.ByID(targetID); !ok {
		return nil
	}

	// Shortest route through the bridge chain: direct to some bridge B,
	// then along the canal from B to the target. Trying every B covers both
	// "target is the next bridge" and "several legs remain".
	best := math.Inf(1)
	for _, b := range bridges.All() {
		direct, ok := geo.Distance(lat, lon, b.Lat, b.Lon)
		if !ok {
			return nil
		}
		gap, ok := bridges.Gap(b.ID, targetID)
		if !ok {
			return nil
		}
		if total := direct + gap; total < best {
			best = total
		}
	}

	eff := math.Max(sog, minEffectiveKnots) * knotsToMS
	raw := best / eff / 60
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	hist := c.prune(mmsi, now)
	smoothed := raw
	if len(hist) > 0 {
		prev := hist[len(hist)-1].minutes
		if prev > 0 && raw > prev*outlierFactor {
			// Outlier: lean on the previous estimate.
			smoothed = prev*0.7 + raw*0.3
		} else {
			smoothed = alpha*raw + (1-alpha)*prev
		}
	}
	if math.IsNaN(smoothed) || math.IsInf(smoothed, 0) {
		return nil
	}
	if smoothed < 0 {
		smoothed = 0
	}

	hist = append(hist, sample{minutes: smoothed, at: now})
	if len(hist) > historyLen {
		hist = hist[len(hist)-historyLen:]
	}
	c.hist[mmsi] = hist

	out := smoothed
	return &out
}

// Clear drops a vessel's smoothing history.
func (c *Calculator) Clear(mmsi string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.hist, mmsi)
}

func (c *Calculator) prune(mmsi string, now time.Time) []sample {
	hist := c.hist[mmsi]
	cut := 0
	for cut < len(hist) && now.Sub(hist[cut].at) > historyRetention {
		cut++
	}
	return hist[cut:]
}
