// Package text turns the current vessel set into the single human-readable
// bridge sentence. Rendering is pure given the vessel snapshot and clock;
// the Renderer only adds the last-known-good fallback.
package text

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bronvakt/bronvakt/internal/bridges"
	"github.com/bronvakt/bronvakt/internal/domain"
)

// DefaultMessage is shown when no relevant vessel remains.
const DefaultMessage = "Inga båtar i närheten av Klaffbron eller Stridsbergsbron"

const displayWindow = 60 * time.Second

// forbidden substrings must never reach the user; their presence means a
// formatting bug upstream and triggers the fallback.
var forbidden = []string{"undefined", "null", "NaN", "Infinity"}

// Renderer generates bridge text with a safety net: any panic or forbidden
// output falls back to the last known good sentence.
type Renderer struct {
	mu       sync.Mutex
	lastGood string
}

func NewRenderer() *Renderer {
	return &Renderer{lastGood: DefaultMessage}
}

// LastGood returns the most recent safe sentence.
func (r *Renderer) LastGood() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastGood
}

// Render produces the sentence for the snapshot. Vessels under an active GPS
// hold are excluded; if that filtering empties a non-empty set the previous
// sentence is kept so the UI does not blink.
func (r *Renderer) Render(vessels []domain.Vessel, now time.Time) (out string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("bridge text generation panicked", "panic", rec)
			out = r.lastGood
		}
	}()

	visible := make([]domain.Vessel, 0, len(vessels))
	held := 0
	for _, v := range vessels {
		if now.Before(v.CoordinationUntil) {
			held++
			continue
		}
		visible = append(visible, v)
	}
	if len(visible) == 0 && held > 0 {
		return r.lastGood
	}

	s := generate(visible, now)
	if !safe(s) {
		slog.Error("bridge text failed validation", "text", s)
		return r.lastGood
	}
	r.lastGood = s
	return s
}

func safe(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}
	for _, f := range forbidden {
		if strings.Contains(s, f) {
			return false
		}
	}
	return true
}

// group is one per-bridge sentence fragment in the making.
type group struct {
	key     bridges.Bridge // the opening bridge the fragment is about
	vessels []domain.Vessel
}

// generate implements the grammar: group by target bridge, pick the highest
// priority phrase per group, join groups in canal order.
func generate(vessels []domain.Vessel, now time.Time) string {
	groups := map[string]*group{}
	for _, v := range vessels {
		key := groupKey(v)
		if key == "" {
			continue
		}
		b, ok := bridges.ByID(key)
		if !ok {
			continue
		}
		g := groups[key]
		if g == nil {
			g = &group{key: b}
			groups[key] = g
		}
		g.vessels = append(g.vessels, v)
	}
	if len(groups) == 0 {
		return DefaultMessage
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].key.Order < ordered[j].key.Order })

	parts := make([]string, 0, len(ordered))
	for _, g := range ordered {
		if p := phrase(g, now); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return DefaultMessage
	}
	return strings.Join(parts, "; ")
}

// groupKey picks the bridge a vessel is grouped under: its target, or — for
// a targetless vessel inside an intermediate bridge's zone — the current
// bridge, for the text only. Everything else is excluded.
func groupKey(v domain.Vessel) string {
	if v.TargetBridge != "" {
		return v.TargetBridge
	}
	if v.CurrentBridge == "" {
		return ""
	}
	b, ok := bridges.ByID(v.CurrentBridge)
	if !ok || b.Class != bridges.Intermediate {
		return ""
	}
	if v.Status == domain.StatusWaiting || v.Status == domain.StatusUnderBridge {
		return v.CurrentBridge
	}
	return ""
}

// Phrase priorities; lower wins.
const (
	prioPassed = iota
	prioUnderTarget
	prioUnderIntermediate
	prioWaitingTarget
	prioWaitingIntermediate
	prioStallbacka
	prioApproaching
	prioEnRoute
)

func priority(v domain.Vessel, target bridges.Bridge, now time.Time) int {
	recentlyPassed := v.Status == domain.StatusPassed ||
		(!v.LastPassedBridgeTime.IsZero() && now.Sub(v.LastPassedBridgeTime) < displayWindow)

	cur, hasCur := bridges.ByID(v.CurrentBridge)

	switch {
	case recentlyPassed:
		return prioPassed
	case v.Status == domain.StatusUnderBridge && hasCur && cur.ID == target.ID:
		return prioUnderTarget
	case v.Status == domain.StatusUnderBridge && hasCur && cur.Class == bridges.Special:
		return prioStallbacka
	case v.Status == domain.StatusUnderBridge:
		return prioUnderIntermediate
	case v.Status == domain.StatusWaiting && v.CurrentBridge == target.ID:
		return prioWaitingTarget
	case v.Status == domain.StatusWaiting:
		return prioWaitingIntermediate
	case v.Status == domain.StatusStallbackaWaiting:
		return prioStallbacka
	case v.Status == domain.StatusApproaching:
		return prioApproaching
	default:
		return prioEnRoute
	}
}

// phrase renders one group's fragment.
func phrase(g *group, now time.Time) string {
	target := g.key

	best := prioEnRoute + 1
	for _, v := range g.vessels {
		if p := priority(v, target, now); p < best {
			best = p
		}
	}

	var bucket []domain.Vessel
	for _, v := range g.vessels {
		if priority(v, target, now) == best {
			bucket = append(bucket, v)
		}
	}
	if len(bucket) == 0 {
		return ""
	}
	lead := bucket[0]

	var s string
	counted := 1
	switch best {
	case prioPassed:
		passed, _ := bridges.ByID(lead.LastPassedBridge)
		next := passedNextName(lead)
		if next == "" {
			s = fmt.Sprintf("En båt har precis passerat %s", passed.Name)
		} else {
			s = fmt.Sprintf("En båt har precis passerat %s på väg mot %s%s",
				passed.Name, next, etaTail(lead.ETAMinutes))
		}

	case prioUnderTarget:
		s = fmt.Sprintf("Broöppning pågår vid %s", target.Name)

	case prioUnderIntermediate:
		cur, _ := bridges.ByID(lead.CurrentBridge)
		if suffix := etaSuffix(lead.ETAMinutes); suffix != "" {
			s = fmt.Sprintf("Broöppning pågår vid %s, beräknad broöppning av %s%s",
				cur.Name, target.Name, suffix)
		} else {
			s = fmt.Sprintf("Broöppning pågår vid %s", cur.Name)
		}

	case prioWaitingTarget:
		counted = len(bucket)
		s = fmt.Sprintf("%s inväntar broöppning vid %s", countBoats(counted), target.Name)

	case prioWaitingIntermediate:
		cur, _ := bridges.ByID(lead.CurrentBridge)
		counted = len(bucket)
		s = fmt.Sprintf("%s inväntar broöppning av %s på väg mot %s%s",
			countBoats(counted), cur.Name, target.Name, etaTail(lead.ETAMinutes))

	case prioStallbacka:
		if lead.Status == domain.StatusUnderBridge {
			s = fmt.Sprintf("En båt passerar Stallbackabron på väg mot %s%s",
				target.Name, etaTail(lead.ETAMinutes))
		} else {
			counted = len(bucket)
			s = fmt.Sprintf("%s åker strax under Stallbackabron på väg mot %s%s",
				countBoats(counted), target.Name, etaTail(lead.ETAMinutes))
		}

	case prioApproaching:
		if cur, ok := bridges.ByID(lead.CurrentBridge); ok && cur.Class == bridges.Intermediate {
			s = fmt.Sprintf("En båt närmar sig %s vid %s%s", target.Name, cur.Name, etaTail(lead.ETAMinutes))
		} else {
			s = fmt.Sprintf("En båt närmar sig %s%s", target.Name, etaTail(lead.ETAMinutes))
		}

	default:
		s = fmt.Sprintf("En båt på väg mot %s%s", target.Name, etaTail(lead.ETAMinutes))
	}

	if extra := len(g.vessels) - counted; extra > 0 {
		s += fmt.Sprintf(", ytterligare %s på väg", countBoatsLower(extra))
	}
	return s
}

// passedNextName resolves the bridge named after "på väg mot" for a
// just-passed vessel: its freshly assigned target, or the next opening
// bridge along its direction.
func passedNextName(v domain.Vessel) string {
	if v.TargetBridge != "" {
		if b, ok := bridges.ByID(v.TargetBridge); ok {
			return b.Name
		}
	}
	if v.LastPassedBridge != "" {
		if b, ok := bridges.NextTarget(v.LastPassedBridge, v.Direction() == domain.DirectionNorth); ok {
			return b.Name
		}
	}
	return ""
}

// etaTail renders ", beräknad broöppning om N minut(er)"; an invalid ETA
// renders nothing rather than garbage.
func etaTail(eta *float64) string {
	m, ok := etaMinutes(eta)
	if !ok {
		return ""
	}
	return ", beräknad broöppning " + omMinutes(m)
}

// etaSuffix renders " om N minut(er)" directly after "broöppning av X".
func etaSuffix(eta *float64) string {
	m, ok := etaMinutes(eta)
	if !ok {
		return ""
	}
	return " " + omMinutes(m)
}

func etaMinutes(eta *float64) (int, bool) {
	if eta == nil || math.IsNaN(*eta) || math.IsInf(*eta, 0) || *eta < 0 {
		return 0, false
	}
	m := int(math.Round(*eta))
	if m < 1 {
		m = 1
	}
	return m, true
}

func omMinutes(m int) string {
	if m == 1 {
		return "om 1 minut"
	}
	return fmt.Sprintf("om %d minuter", m)
}

// countBoats renders the Swedish counting text: En/Två/Tre båt(ar), digits
// from four.
func countBoats(n int) string {
	switch n {
	case 1:
		return "En båt"
	case 2:
		return "Två båtar"
	case 3:
		return "Tre båtar"
	default:
		return fmt.Sprintf("%d båtar", n)
	}
}

func countBoatsLower(n int) string {
	switch n {
	case 1:
		return "en båt"
	case 2:
		return "två båtar"
	case 3:
		return "tre båtar"
	default:
		return fmt.Sprintf("%d båtar", n)
	}
}
