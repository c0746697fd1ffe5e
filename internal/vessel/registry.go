// Package vessel owns the live vessel map and its lifecycle: fix ingestion,
// GPS-jump analysis, target-bridge assignment, passage anchoring, stale
// eviction and event emission. The registry is the single writer; everything
// handed out is a snapshot.
package vessel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/ais"
	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/clock"
	"github.com/bronvakt/bronvakt/internal/domain"
	"github.com/bronvakt/bronvakt/internal/eta"
	"github.com/bronvakt/bronvakt/internal/geo"
	"github.com/bronvakt/bronvakt/internal/status"
)

// Lifecycle timeouts.
const (
	cleanupProtection = 20 * time.Minute
	cleanupStationary = 2 * time.Minute
	cleanupMoving     = 15 * time.Minute
	// Absolute cap: a transponder silent this long is a ghost, protection
	// zone or not.
	deadAISCap = 30 * time.Minute

	// Re-cross guard: one passage per (vessel, bridge) per window.
	recrossGuard = 3 * time.Minute

	// GPS coordination hold after a suspicious fix.
	coordinationHold = 30 * time.Second

	// Position deltas below this do not count as a position update.
	minPositionDelta = 5.0

	// Fix gaps above this count as sparse cadence; passage detection widens
	// its crossing corridor.
	sparseCadence = 45 * time.Second

	speedHistoryLen = 10

	// Target acquisition speed gates.
	acquireMinSOGFar  = 0.7 // beyond 500 m
	acquireMinSOGMid  = 0.1 // 300–500 m
	acquireStalledSOG = 0.3 // at > 300 m, at or below this: no acquisition
	acquireMoveToward = 10.0
)

// Registry tracks every vessel currently in the canal.
type Registry struct {
	mu  sync.Mutex
	clk clock.Clock

	vessels map[string]*tracked

	latch *PassageLatch
	route *RouteValidator
	gate  *GPSGate
	stab  *status.Stabilizer
	etas  *eta.Calculator

	events chan domain.Event

	kinematicRejects uint64
	staleRemovals    uint64
}

type tracked struct {
	v        domain.Vessel
	prox     domain.Proximity
	prevProx domain.Proximity // proximity at the previous accepted fix

	// Distance to the current target at the previous accepted fix; feeds
	// the convergence checks.
	prevTargetDist *float64

	cleanup clock.Timer
}

// NewRegistry wires a registry with its sibling services.
func NewRegistry(clk clock.Clock) *Registry {
	return &Registry{
		clk:     clk,
		vessels: make(map[string]*tracked),
		latch:   NewPassageLatch(),
		route:   NewRouteValidator(),
		gate:    NewGPSGate(),
		stab:    status.NewStabilizer(),
		etas:    eta.NewCalculator(),
		events:  make(chan domain.Event, 256),
	}
}

// Events returns the registry's emission channel.
func (r *Registry) Events() <-chan domain.Event { return r.events }

// Stats exposes ingest drop counters.
func (r *Registry) Stats() (kinematicRejects, staleRemovals uint64, vesselCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.kinematicRejects, r.staleRemovals, len(r.vessels)
}

// Snapshot returns deep copies of every tracked vessel.
func (r *Registry) Snapshot() []domain.Vessel {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Vessel, 0, len(r.vessels))
	for _, t := range r.vessels {
		out = append(out, t.v.Clone())
	}
	return out
}

// Get returns a snapshot of one vessel.
func (r *Registry) Get(mmsi string) (domain.Vessel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.vessels[mmsi]
	if !ok {
		return domain.Vessel{}, false
	}
	return t.v.Clone(), true
}

// Upsert applies one accepted stream fix.
func (r *Registry) Upsert(fix ais.Fix) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clk.Now()
	t, exists := r.vessels[fix.MMSI]
	if !exists {
		r.admit(fix, now)
		return
	}

	// lastMessage always moves, even for rejected positions.
	t.v.LastMessage = now
	if fix.ShipName != "" {
		t.v.ShipName = fix.ShipName
	}

	dt := now.Sub(t.v.LastPositionChange)
	jump := AnalyzeJump(t.v.Lat, t.v.Lon, t.v.COG, fix.Lat, fix.Lon, fix.COG, t.v.SOG, dt)

	if jump.Action == JumpReject {
		r.kinematicRejects++
		r.emit(domain.Event{Kind: domain.GPSJumpDetected, MMSI: fix.MMSI, Vessel: t.v.Clone(), Time: now,
			Reason: "rejected fix"})
		r.scheduleCleanup(t, now)
		return
	}

	if jump.Action == JumpAcceptCaution {
		t.v.CoordinationUntil = now.Add(coordinationHold)
		r.emit(domain.Event{Kind: domain.GPSHoldSet, MMSI: fix.MMSI, Vessel: t.v.Clone(), Time: now})
	}

	prevLat, prevLon := t.v.Lat, t.v.Lon
	prevCOG := t.v.COG
	prevStatus := t.v.Status
	prevTarget := t.v.TargetBridge
	prevCurrent := t.v.CurrentBridge

	maneuver := prevCOG != nil && fix.COG != nil && geo.AngleDiff(*prevCOG, *fix.COG) >= maneuverCourseDelta
	t.v.Protection.ManeuverDetected = maneuver

	// Cadence is judged against the update time before this fix refreshes it.
	sparse := now.Sub(t.v.LastPositionUpdate) > sparseCadence

	moved := jump.MovementDistance
	if moved > 0 {
		t.v.LastPositionChange = now
	}
	if moved >= minPositionDelta {
		t.v.LastPositionUpdate = now
	}

	t.v.Lat, t.v.Lon = fix.Lat, fix.Lon
	t.v.SOG = fix.SOG
	t.v.COG = fix.COG
	t.pushSpeed(fix.SOG, now)

	prox, ok := EvaluateProximity(fix.Lat, fix.Lon)
	if !ok {
		r.scheduleCleanup(t, now)
		return
	}
	t.prevProx = t.prox
	t.prox = prox
	t.v.CurrentBridge = prox.NearestID
	t.v.DistanceToCurrent = prox.Nearest

	// Passage detection against every bridge, before target reassignment so
	// a crossing of the old target is anchored against it.
	r.detectPassages(t, geo.Position{Lat: prevLat, Lon: prevLon}, prevCOG, maneuver || sparse, now)

	// Confirmed gate candidates ride on the stability of this fix.
	for _, conf := range r.gate.Observe(fix.MMSI, fix.Lat, fix.Lon, fix.SOG, fix.COG, now) {
		r.anchorPassage(t, conf.BridgeID, conf.CrossingTime, now)
	}

	r.recomputeTarget(t, now)

	res := status.Derive(status.Input{
		Vessel:             t.v,
		Prox:               prox,
		PrevTargetDistance: t.prevTargetDist,
		Now:                now,
		LatchBlocked:       func(id string) bool { return r.latch.Blocked(fix.MMSI, id, now) },
	})
	newStatus := r.stab.Apply(fix.MMSI, res.Status, status.Signals{
		JumpDetected:      jump.GPSJumpDetected,
		PositionUncertain: jump.PositionUncertain,
		JumpDistance:      jump.MovementDistance,
		BridgeChanged:     t.v.TargetBridge != prevTarget || t.v.CurrentBridge != prevCurrent,
	}, now)

	t.v.Status = newStatus
	t.v.UnderBridgeLatched = res.UnderBridgeLatched && newStatus == domain.StatusUnderBridge
	if res.Bridge != "" {
		t.v.CurrentBridge = res.Bridge
		if d, ok := prox.Distance(res.Bridge); ok {
			t.v.DistanceToCurrent = d
		}
	}

	r.updateETA(t, now)
	r.trackTargetDistance(t)

	r.scheduleCleanup(t, now)

	if newStatus != prevStatus {
		r.emit(domain.Event{Kind: domain.VesselStatusChanged, MMSI: fix.MMSI, Vessel: t.v.Clone(),
			PrevStatus: prevStatus, Time: now})
	} else {
		r.emit(domain.Event{Kind: domain.VesselUpdated, MMSI: fix.MMSI, Vessel: t.v.Clone(), Time: now})
	}

	// Journey completion: south of Klaffbron heading south (or north of
	// Stridsbergsbron heading north) with the last target passed, the
	// vessel has left the system once its display window expires.
	r.maybeComplete(t, now)
}

// admit creates a vessel from its first accepted fix.
func (r *Registry) admit(fix ais.Fix, now time.Time) {
	if !bridges.InBoundingBox(fix.Lat, fix.Lon) {
		return
	}
	prox, ok := EvaluateProximity(fix.Lat, fix.Lon)
	if !ok {
		return
	}

	t := &tracked{
		v: domain.Vessel{
			MMSI:               fix.MMSI,
			ShipName:           fix.ShipName,
			Lat:                fix.Lat,
			Lon:                fix.Lon,
			SOG:                fix.SOG,
			COG:                fix.COG,
			FirstSeen:          now,
			LastMessage:        now,
			LastPositionChange: now,
			LastPositionUpdate: now,
			CurrentBridge:      prox.NearestID,
			DistanceToCurrent:  prox.Nearest,
			PassedAt:           make(map[string]time.Time),
		},
		prox: prox,
	}
	t.pushSpeed(fix.SOG, now)
	r.vessels[fix.MMSI] = t

	r.recomputeTarget(t, now)
	res := status.Derive(status.Input{Vessel: t.v, Prox: prox, Now: now})
	t.v.Status = r.stab.Apply(fix.MMSI, res.Status, status.Signals{}, now)
	t.v.UnderBridgeLatched = res.UnderBridgeLatched
	r.updateETA(t, now)
	r.trackTargetDistance(t)
	r.scheduleCleanup(t, now)

	slog.Info("vessel entered", "mmsi", fix.MMSI, "name", fix.ShipName,
		"nearest", prox.NearestID, "distance", int(prox.Nearest))
	r.emit(domain.Event{Kind: domain.VesselEntered, MMSI: fix.MMSI, Vessel: t.v.Clone(), Time: now})
}

// detectPassages runs the multi-method detector against every bridge.
func (r *Registry) detectPassages(t *tracked, prev geo.Position, prevCOG *float64, relaxed bool, now time.Time) {
	cur := geo.Position{Lat: t.v.Lat, Lon: t.v.Lon}

	for _, b := range bridges.All() {
		res := geo.DetectPassage(prev, cur, geo.Position{Lat: b.Lat, Lon: b.Lon}, geo.PassageContext{
			PrevCOG: prevCOG,
			CurCOG:  t.v.COG,
			Relaxed: relaxed,
			Special: b.ID == bridges.Stallbackabron,
		})
		if !res.Detected {
			continue
		}

		// Under GPS coordination the candidate is held until the fix
		// stream proves stable.
		if now.Before(t.v.CoordinationUntil) || r.gate.Holding(t.v.MMSI) {
			r.gate.Hold(t.v.MMSI, b.ID, now, t.v.Lat, t.v.Lon, t.v.SOG, t.v.COG, now)
			continue
		}

		slog.Debug("passage detected", "mmsi", t.v.MMSI, "bridge", b.ID,
			"method", res.Method, "confidence", res.Confidence)
		r.anchorPassage(t, b.ID, now, now)
	}
}

// anchorPassage records a crossing, guarded against GPS bounce re-crossings
// and impossible bridge sequences.
func (r *Registry) anchorPassage(t *tracked, bridgeID string, crossingTime, now time.Time) {
	b, ok := bridges.ByID(bridgeID)
	if !ok {
		return
	}
	if last, ok := t.v.PassedAt[b.Name]; ok && crossingTime.Sub(last) < recrossGuard {
		return
	}
	if !r.route.Validate(t.v.MMSI, bridgeID, crossingTime) {
		slog.Debug("passage rejected by route order", "mmsi", t.v.MMSI, "bridge", bridgeID)
		return
	}

	t.v.PassedAt[b.Name] = crossingTime
	t.v.LastPassedBridge = b.ID
	t.v.LastPassedBridgeTime = crossingTime
	t.v.UnderBridgeLatched = false
	r.latch.Latch(t.v.MMSI, bridgeID, crossingTime)

	slog.Info("passage anchored", "mmsi", t.v.MMSI, "bridge", b.Name)

	// Passing the current target forces reassignment; recomputeTarget runs
	// right after detection in the upsert path.
	if t.v.TargetBridge == bridgeID {
		t.v.TargetBridge = ""
	}
}

// recomputeTarget applies the authoritative target-assignment ordering.
func (r *Registry) recomputeTarget(t *tracked, now time.Time) {
	v := &t.v

	// Rule 1: inside the protection zone of any target bridge the existing
	// target is sticky. A blocked crossing still anchors its passage, which
	// detectPassages already handled.
	for _, b := range bridges.Targets() {
		if d, ok := t.prox.Distance(b.ID); ok && d <= ProtectionRadius && v.TargetBridge != "" {
			v.Protection = domain.Protection{
				Active:        true,
				Reason:        "target protection zone",
				Until:         now.Add(cleanupProtection),
				CloseToTarget: true,
			}
			return
		}
	}
	v.Protection = domain.Protection{}

	// Rule 2: direction and speed gates.
	dir := v.Direction()
	if dir == domain.DirectionUnknown {
		return // hold whatever target exists
	}

	candidate := directionalTarget(v.Lat, dir)
	if candidate == v.TargetBridge {
		return
	}
	if candidate == "" {
		v.TargetBridge = ""
		v.LastTargetBridgeHysteresis = ""
		return
	}

	d, ok := t.prox.Distance(candidate)
	if !ok {
		return
	}
	switch {
	case d > ApproachRadius && v.SOG <= acquireMinSOGFar:
		return
	case d > ProtectionRadius && d <= ApproachRadius && v.SOG <= acquireMinSOGMid:
		return
	case d > ProtectionRadius && v.SOG <= acquireStalledSOG:
		return
	}

	// Rule 3: two-reading validation; acquiring (not holding) requires the
	// vessel to have moved toward the candidate since the last accepted
	// position. The first reading can never acquire.
	old := t.prevDistanceTo(candidate)
	if old == nil || *old-d < acquireMoveToward {
		return
	}

	v.LastTargetBridgeHysteresis = v.TargetBridge
	v.TargetBridge = candidate
	r.stab.Reset(v.MMSI)
}

// directionalTarget maps latitude and direction onto the target bridge per
// the canal geography. Intermediate bridges are never targets.
func directionalTarget(lat float64, dir domain.Direction) string {
	klaff, _ := bridges.ByID(bridges.Klaffbron)
	strids, _ := bridges.ByID(bridges.Stridsbergsbron)

	switch dir {
	case domain.DirectionNorth:
		if lat < klaff.Lat {
			return bridges.Klaffbron
		}
		if lat < strids.Lat {
			return bridges.Stridsbergsbron
		}
		return "" // past the last opening bridge northbound
	case domain.DirectionSouth:
		if lat > strids.Lat {
			return bridges.Stridsbergsbron
		}
		if lat > klaff.Lat {
			return bridges.Klaffbron
		}
		return "" // leaving the canal southbound
	}
	return ""
}

// prevDistanceTo returns the distance to a bridge at the previous accepted
// fix, if we have one.
func (t *tracked) prevDistanceTo(bridgeID string) *float64 {
	if len(t.prevProx.Distances) == 0 {
		return nil
	}
	if d, ok := t.prevProx.Distance(bridgeID); ok {
		return &d
	}
	return nil
}

// updateETA refreshes the smoothed ETA, honouring the suppression rule for
// target-bridge waiting and under-bridge.
func (r *Registry) updateETA(t *tracked, now time.Time) {
	v := &t.v
	if v.TargetBridge == "" {
		v.ETAMinutes = nil
		r.etas.Clear(v.MMSI)
		return
	}
	if (v.Status == domain.StatusWaiting || v.Status == domain.StatusUnderBridge) &&
		v.CurrentBridge == v.TargetBridge {
		v.ETAMinutes = nil
		return
	}
	v.ETAMinutes = r.etas.Calculate(v.MMSI, v.Lat, v.Lon, v.SOG, v.TargetBridge, now)
}

func (r *Registry) trackTargetDistance(t *tracked) {
	if t.v.TargetBridge == "" {
		t.prevTargetDist = nil
		return
	}
	if d, ok := t.prox.Distance(t.v.TargetBridge); ok {
		t.prevTargetDist = &d
	}
}

// maybeComplete removes a vessel that has passed the final target bridge in
// its travel direction once its display window has run out.
func (r *Registry) maybeComplete(t *tracked, now time.Time) {
	if t.v.TargetBridge != "" || t.v.LastPassedBridge == "" {
		return
	}
	dir := t.v.Direction()
	done := (dir == domain.DirectionSouth && t.v.LastPassedBridge == bridges.Klaffbron) ||
		(dir == domain.DirectionNorth && t.v.LastPassedBridge == bridges.Stridsbergsbron)
	if !done {
		return
	}
	if ShouldShowRecentlyPassed(&t.v, now) {
		return // still shown as "just passed"
	}
	r.removeLocked(t.v.MMSI, "journey completed")
}

// scheduleCleanup arms the stale-eviction timer for the vessel.
func (r *Registry) scheduleCleanup(t *tracked, now time.Time) {
	if t.cleanup != nil {
		t.cleanup.Stop()
	}

	timeout := cleanupMoving
	if t.v.SOG < status.LowSpeedKnots {
		timeout = cleanupStationary
	}
	for _, b := range bridges.Targets() {
		if d, ok := t.prox.Distance(b.ID); ok && d <= ProtectionRadius {
			timeout = cleanupProtection
			break
		}
	}
	// A fresh passage keeps its bookkeeping alive for the speed-dependent
	// internal grace, not just the display window.
	if WithinInternalGrace(&t.v, now) {
		extra := InternalGrace(t.v.SOG) - now.Sub(t.v.LastPassedBridgeTime) + 5*time.Second
		if extra < time.Minute {
			extra = time.Minute
		}
		if extra > timeout {
			timeout = extra
		}
	}

	mmsi := t.v.MMSI
	t.cleanup = r.clk.AfterFunc(timeout, func() { r.cleanupFired(mmsi) })
}

// cleanupFired decides between eviction and rescheduling when a timer goes
// off; the dead-AIS cap overrides every protection.
func (r *Registry) cleanupFired(mmsi string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.vessels[mmsi]
	if !ok {
		return
	}
	now := r.clk.Now()
	silent := now.Sub(t.v.LastMessage)
	if silent >= deadAISCap {
		r.staleRemovals++
		r.removeLocked(mmsi, "dead AIS")
		return
	}
	// The timer was armed before the latest fix extended the lease.
	if silent < time.Minute {
		r.scheduleCleanup(t, now)
		return
	}
	r.staleRemovals++
	r.removeLocked(mmsi, "stale")
}

// Remove evicts a vessel. Idempotent: removing twice is a no-op.
func (r *Registry) Remove(mmsi, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(mmsi, reason)
}

func (r *Registry) removeLocked(mmsi, reason string) {
	t, ok := r.vessels[mmsi]
	if !ok {
		return
	}
	if t.cleanup != nil {
		t.cleanup.Stop()
	}
	delete(r.vessels, mmsi)

	r.latch.Clear(mmsi)
	r.route.Clear(mmsi)
	r.gate.Clear(mmsi)
	r.stab.Reset(mmsi)
	r.etas.Clear(mmsi)

	slog.Info("vessel removed", "mmsi", mmsi, "reason", reason)
	r.emit(domain.Event{Kind: domain.VesselRemoved, MMSI: mmsi, Vessel: t.v.Clone(),
		Reason: reason, Time: r.clk.Now()})
}

func (r *Registry) emit(ev domain.Event) {
	select {
	case r.events <- ev:
	default:
		slog.Warn("registry event dropped, consumer too slow", "kind", ev.Kind.String(), "mmsi", ev.MMSI)
	}
}

func (t *tracked) pushSpeed(sog float64, now time.Time) {
	t.v.SpeedHistory = append(t.v.SpeedHistory, domain.SpeedSample{SOG: sog, Time: now})
	if len(t.v.SpeedHistory) > speedHistoryLen {
		t.v.SpeedHistory = t.v.SpeedHistory[len(t.v.SpeedHistory)-speedHistoryLen:]
	}
}
