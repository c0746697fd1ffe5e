// Package flow fires host automation triggers from vessel movement, with
// per-vessel-per-bridge deduplication so a loitering boat does not spam the
// host.
package flow

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/clock"
	"github.com/bronvakt/bronvakt/internal/domain"
	"github.com/bronvakt/bronvakt/internal/host"
	"github.com/bronvakt/bronvakt/internal/vessel"
)

const (
	// TriggerBoatNear fires when a vessel enters a bridge's protection zone.
	TriggerBoatNear = "boat_near"

	dedupWindow = 10 * time.Minute

	unknownVesselName = "Okänd båt"
)

// Notifier watches vessel snapshots for protection-zone entries and fires
// flow triggers through the host bridge.
type Notifier struct {
	clk    clock.Clock
	bridge host.Bridge

	mu    sync.Mutex
	prox  map[string]domain.Proximity // mmsi -> proximity at the last snapshot
	fired map[string]time.Time        // mmsi|bridgeID -> last trigger time
}

func NewNotifier(clk clock.Clock, bridge host.Bridge) *Notifier {
	return &Notifier{
		clk:    clk,
		bridge: bridge,
		prox:   make(map[string]domain.Proximity),
		fired:  make(map[string]time.Time),
	}
}

// Observe diffs one vessel snapshot against its previous proximity and fires
// boat_near for every protection zone freshly entered. Re-entries within the
// dedup window are swallowed.
func (n *Notifier) Observe(ctx context.Context, v domain.Vessel) {
	cur, ok := vessel.EvaluateProximity(v.Lat, v.Lon)
	if !ok {
		return
	}
	now := n.clk.Now()

	n.mu.Lock()
	prev := n.prox[v.MMSI]
	n.prox[v.MMSI] = cur

	var trigs []host.Trigger
	for _, tr := range vessel.ZoneTransitions(prev, cur) {
		if !tr.Entered || tr.Radius != vessel.ProtectionRadius {
			continue
		}
		key := v.MMSI + "|" + tr.BridgeID
		if at, ok := n.fired[key]; ok && now.Sub(at) < dedupWindow {
			continue
		}
		trig, ok := buildTrigger(v, tr.BridgeID)
		if !ok {
			// A trigger with broken interpolation is worse than none.
			slog.Warn("skipping boat_near with unresolvable tokens",
				"mmsi", v.MMSI, "bridge", tr.BridgeID)
			continue
		}
		n.fired[key] = now
		trigs = append(trigs, trig)
	}
	n.pruneLocked(now)
	n.mu.Unlock()

	for _, trig := range trigs {
		if err := n.bridge.TriggerFlow(ctx, trig); err != nil {
			slog.Error("boat_near trigger failed", "mmsi", v.MMSI, "error", err)
		}
	}
}

// Forget drops a removed vessel's zone and dedup state.
func (n *Notifier) Forget(mmsi string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.prox, mmsi)
	for key := range n.fired {
		if strings.HasPrefix(key, mmsi+"|") {
			delete(n.fired, key)
		}
	}
}

func (n *Notifier) pruneLocked(now time.Time) {
	for key, at := range n.fired {
		if now.Sub(at) >= dedupWindow {
			delete(n.fired, key)
		}
	}
}

func buildTrigger(v domain.Vessel, bridgeID string) (host.Trigger, bool) {
	b, ok := bridges.ByID(bridgeID)
	if !ok {
		return host.Trigger{}, false
	}
	eta := -1
	if v.ETAMinutes != nil && !math.IsNaN(*v.ETAMinutes) && !math.IsInf(*v.ETAMinutes, 0) && *v.ETAMinutes >= 0 {
		eta = int(math.Round(*v.ETAMinutes))
	}
	return host.Trigger{
		Name:     TriggerBoatNear,
		BridgeID: b.ID,
		Tokens: map[string]string{
			"vessel_name": normalizeName(v.ShipName),
			"bridge_name": b.Name,
			"direction":   v.Direction().String(),
			"eta_minutes": strconv.Itoa(eta),
		},
	}, true
}

// normalizeName trims and collapses whitespace; AIS transponders pad names
// with trailing spaces.
func normalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return unknownVesselName
	}
	return strings.Join(fields, " ")
}

// BoatAtBridge reports whether any vessel in the snapshot is inside the
// given bridge's protection zone. Used as a flow condition query.
func BoatAtBridge(vessels []domain.Vessel, bridgeID string) bool {
	for _, v := range vessels {
		if v.CurrentBridge == bridgeID && v.DistanceToCurrent <= vessel.ProtectionRadius {
			return true
		}
	}
	return false
}
