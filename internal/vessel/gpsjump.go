package vessel

import (
	"time"

	"github.com/bronvakt/bronvakt/internal/geo"
)

// JumpAction is the analyzer's verdict on a new fix.
type JumpAction int

const (
	// JumpAccept: the movement is small or consistent with the vessel's speed.
	JumpAccept JumpAction = iota
	// JumpAcceptCaution: plausible but suspicious; downstream status changes
	// need extra confirmation while this is in effect.
	JumpAcceptCaution
	// JumpReject: physically impossible movement; the fix is discarded.
	JumpReject
)

func (a JumpAction) String() string {
	switch a {
	case JumpAccept:
		return "accept"
	case JumpAcceptCaution:
		return "accept-with-caution"
	case JumpReject:
		return "reject"
	}
	return "unknown"
}

// JumpResult carries the classification plus the signals the stabilizer and
// the GPS gate key off.
type JumpResult struct {
	Action            JumpAction
	GPSJumpDetected   bool
	PositionUncertain bool
	Confidence        float64
	MovementDistance  float64
}

const (
	knotsToMS = 0.514444

	// Movements under this never count as jumps, whatever the speed says.
	smallMoveMetres = 100.0
	// Movements beyond this are rejected outright unless the kinematics
	// fully explain them.
	largeJumpMetres = 500.0

	// Plausibility slack: transponder SOG lags real speed, and fixes carry
	// their own scatter.
	speedTolerance  = 2.0
	baseSlackMetres = 50.0

	// Course change treated as a deliberate manoeuvre rather than noise.
	maneuverCourseDelta = 45.0
)

// AnalyzeJump classifies the movement from the previous accepted position to
// a new fix. It is a pure function; per-vessel history lives in the registry.
func AnalyzeJump(prevLat, prevLon float64, prevCOG *float64, newLat, newLon float64, newCOG *float64, sog float64, dt time.Duration) JumpResult {
	moved, ok := geo.Distance(prevLat, prevLon, newLat, newLon)
	if !ok {
		return JumpResult{Action: JumpReject, GPSJumpDetected: true, Confidence: 0.1}
	}

	if dt <= 0 {
		dt = time.Second
	}
	plausible := sog*knotsToMS*dt.Seconds()*speedTolerance + baseSlackMetres

	if moved <= smallMoveMetres || moved <= plausible {
		return JumpResult{Action: JumpAccept, Confidence: 0.95, MovementDistance: moved}
	}

	// A hard turn legitimately breaks the straight-line plausibility model.
	legitimateTurn := prevCOG != nil && newCOG != nil &&
		geo.AngleDiff(*prevCOG, *newCOG) >= maneuverCourseDelta &&
		moved <= plausible*2

	if moved <= largeJumpMetres || legitimateTurn {
		return JumpResult{
			Action:            JumpAcceptCaution,
			GPSJumpDetected:   moved > plausible*1.5,
			PositionUncertain: true,
			Confidence:        0.6,
			MovementDistance:  moved,
		}
	}

	return JumpResult{
		Action:            JumpReject,
		GPSJumpDetected:   true,
		PositionUncertain: true,
		Confidence:        0.2,
		MovementDistance:  moved,
	}
}
