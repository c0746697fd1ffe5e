package status

import (
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/domain"
)

const (
	// How long a fresh GPS jump freezes the reported status.
	stabilizationWindow = 30 * time.Second

	// Consecutive identical readings needed to switch while uncertain.
	uncertainConfirmations = 2

	historyLen = 5

	// A jump beyond this wipes hysteresis state entirely.
	jumpResetMetres = 500.0
)

// Stabilizer damps status flicker. It keeps a small per-vessel history and
// applies three rules: freeze during a GPS-jump window, double-confirm while
// the position is uncertain, and fall back to the majority status when the
// history is flapping.
type Stabilizer struct {
	mu     sync.Mutex
	states map[string]*stabState
}

type stabState struct {
	lastStatus    domain.Status
	jumpUntil     time.Time
	pendingStatus domain.Status
	pendingCount  int
	history       []domain.Status
}

func NewStabilizer() *Stabilizer {
	return &Stabilizer{states: make(map[string]*stabState)}
}

// Signals carries the per-fix noise flags from the jump analyzer.
type Signals struct {
	JumpDetected      bool
	PositionUncertain bool
	JumpDistance      float64
	InvalidCoords     bool
	BridgeChanged     bool // target or current bridge changed since last fix
}

// Apply takes the freshly derived status and returns the status to publish.
func (s *Stabilizer) Apply(mmsi string, derived domain.Status, sig Signals, now time.Time) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[mmsi]
	if !ok {
		st = &stabState{lastStatus: derived}
		s.states[mmsi] = st
		st.push(derived)
		return derived
	}

	// Hysteresis state resets on bridge changes, big jumps and garbage
	// coordinates; the new derivation is then taken at face value.
	if sig.BridgeChanged || sig.InvalidCoords || sig.JumpDistance > jumpResetMetres {
		st.reset(derived)
		return derived
	}

	if sig.JumpDetected {
		st.jumpUntil = now.Add(stabilizationWindow)
	}

	// Inside a jump window the previous status holds.
	if now.Before(st.jumpUntil) && derived != st.lastStatus {
		return st.lastStatus
	}

	if sig.PositionUncertain && derived != st.lastStatus {
		if derived == st.pendingStatus {
			st.pendingCount++
		} else {
			st.pendingStatus = derived
			st.pendingCount = 1
		}
		if st.pendingCount < uncertainConfirmations {
			return st.lastStatus
		}
	}
	st.pendingStatus = domain.StatusNone
	st.pendingCount = 0

	st.push(derived)
	if flickering(st.history) {
		derived = majority(st.history)
	}
	st.lastStatus = derived
	return derived
}

// Reset clears a vessel's stabiliser state (removal, target change).
func (s *Stabilizer) Reset(mmsi string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, mmsi)
}

func (st *stabState) push(v domain.Status) {
	st.history = append(st.history, v)
	if len(st.history) > historyLen {
		st.history = st.history[len(st.history)-historyLen:]
	}
}

func (st *stabState) reset(v domain.Status) {
	st.lastStatus = v
	st.jumpUntil = time.Time{}
	st.pendingStatus = domain.StatusNone
	st.pendingCount = 0
	st.history = st.history[:0]
	st.push(v)
}

// flickering reports at least two alternations inside the history window.
func flickering(hist []domain.Status) bool {
	if len(hist) < 4 {
		return false
	}
	changes := 0
	for i := 1; i < len(hist); i++ {
		if hist[i] != hist[i-1] {
			changes++
		}
	}
	return changes >= 3
}

func majority(hist []domain.Status) domain.Status {
	counts := make(map[domain.Status]int)
	best := hist[len(hist)-1]
	for _, s := range hist {
		counts[s]++
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}
