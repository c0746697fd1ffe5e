// Package domain holds the shared vessel model passed between the registry
// and its sibling services. The registry is the only writer; everything else
// receives value snapshots.
package domain

import "time"

// Status is the closed set of per-vessel states.
type Status int

const (
	StatusNone Status = iota
	StatusEnRoute
	StatusApproaching
	StatusWaiting
	StatusStallbackaWaiting
	StatusUnderBridge
	StatusPassed
)

func (s Status) String() string {
	switch s {
	case StatusEnRoute:
		return "en-route"
	case StatusApproaching:
		return "approaching"
	case StatusWaiting:
		return "waiting"
	case StatusStallbackaWaiting:
		return "stallbacka-waiting"
	case StatusUnderBridge:
		return "under-bridge"
	case StatusPassed:
		return "passed"
	}
	return "none"
}

// Direction is the travel direction along the canal.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionNorth
	DirectionSouth
)

func (d Direction) String() string {
	switch d {
	case DirectionNorth:
		return "northbound"
	case DirectionSouth:
		return "southbound"
	}
	return "unknown"
}

// DirectionFromCOG maps a course over ground onto a canal direction.
// North is 0–45° ∪ 315–360°, south is 135–225°; anything else (or a missing
// course) is unknown.
func DirectionFromCOG(cog *float64) Direction {
	if cog == nil {
		return DirectionUnknown
	}
	c := *cog
	switch {
	case c <= 45 || c >= 315:
		return DirectionNorth
	case c >= 135 && c <= 225:
		return DirectionSouth
	default:
		return DirectionUnknown
	}
}

// Protection records why target assignment is currently sticky.
type Protection struct {
	Active           bool
	Reason           string
	Until            time.Time
	CloseToTarget    bool
	ManeuverDetected bool
}

// SpeedSample is one SOG reading kept in the per-vessel ring buffer.
type SpeedSample struct {
	SOG  float64
	Time time.Time
}

// Vessel is the live record for one MMSI. Instances handed out of the
// registry are copies; mutating them has no effect on the tracked state.
type Vessel struct {
	MMSI     string
	ShipName string

	Lat float64
	Lon float64
	SOG float64
	COG *float64

	FirstSeen          time.Time
	LastMessage        time.Time
	LastPositionChange time.Time
	LastPositionUpdate time.Time

	CurrentBridge     string // bridge ID, "" when none
	DistanceToCurrent float64

	TargetBridge               string // bridge ID of one of the two opening bridges, "" when none
	LastTargetBridgeHysteresis string

	Status     Status
	ETAMinutes *float64

	Protection Protection

	PassedAt             map[string]time.Time // bridge name -> crossing time
	LastPassedBridge     string
	LastPassedBridgeTime time.Time

	UnderBridgeLatched   bool
	CoordinationUntil    time.Time
	WaitingConfirmations int

	SpeedHistory []SpeedSample
}

// Clone returns a deep copy safe to hand outside the registry.
func (v *Vessel) Clone() Vessel {
	out := *v
	if v.COG != nil {
		c := *v.COG
		out.COG = &c
	}
	if v.ETAMinutes != nil {
		e := *v.ETAMinutes
		out.ETAMinutes = &e
	}
	if v.PassedAt != nil {
		out.PassedAt = make(map[string]time.Time, len(v.PassedAt))
		for k, t := range v.PassedAt {
			out.PassedAt[k] = t
		}
	}
	if v.SpeedHistory != nil {
		out.SpeedHistory = append([]SpeedSample(nil), v.SpeedHistory...)
	}
	return out
}

// Direction returns the vessel's travel direction from its course.
func (v *Vessel) Direction() Direction { return DirectionFromCOG(v.COG) }

// BridgeDistance is the vessel's relation to one bridge.
type BridgeDistance struct {
	BridgeID          string
	Distance          float64
	BearingFromBridge float64
}

// Proximity is the per-fix proximity analysis result.
type Proximity struct {
	Distances []BridgeDistance // canal order, south to north
	NearestID string
	Nearest   float64
}

// Distance returns the vessel's distance to the given bridge.
func (p Proximity) Distance(bridgeID string) (float64, bool) {
	for _, d := range p.Distances {
		if d.BridgeID == bridgeID {
			return d.Distance, true
		}
	}
	return 0, false
}
