// Package bridges holds the static registry of the five Trollhätte canal
// bridges. It is the single source of truth for coordinates, classification,
// canal order and the inter-bridge gap table.
package bridges

// Class describes how a bridge participates in the canal route.
type Class int

const (
	// Target bridges are the two opening bridges vessels head for.
	Target Class = iota
	// Intermediate bridges open but are never assigned as a target.
	Intermediate
	// Special is the high fixed bridge (Stallbackabron); it never opens.
	Special
)

func (c Class) String() string {
	switch c {
	case Target:
		return "target"
	case Intermediate:
		return "intermediate"
	case Special:
		return "special"
	}
	return "unknown"
}

// Bridge is one canal bridge. Order runs 0 (south) to 4 (north).
type Bridge struct {
	ID    string
	Name  string
	Lat   float64
	Lon   float64
	Class Class
	Order int
}

// Canonical IDs, south to north.
const (
	Olidebron       = "olidebron"
	Klaffbron       = "klaffbron"
	Jarnvagsbron    = "jarnvagsbron"
	Stridsbergsbron = "stridsbergsbron"
	Stallbackabron  = "stallbackabron"
)

var canal = []Bridge{
	{ID: Olidebron, Name: "Olidebron", Lat: 58.2681, Lon: 12.2734, Class: Intermediate, Order: 0},
	{ID: Klaffbron, Name: "Klaffbron", Lat: 58.2706, Lon: 12.2710, Class: Target, Order: 1},
	{ID: Jarnvagsbron, Name: "Järnvägsbron", Lat: 58.2759, Lon: 12.2683, Class: Intermediate, Order: 2},
	{ID: Stridsbergsbron, Name: "Stridsbergsbron", Lat: 58.2809, Lon: 12.2691, Class: Target, Order: 3},
	{ID: Stallbackabron, Name: "Stallbackabron", Lat: 58.2932, Lon: 12.2766, Class: Special, Order: 4},
}

// gaps holds the along-canal distance in metres between adjacent bridges,
// indexed by the southern bridge's order. Taken verbatim; no other file may
// duplicate these numbers.
var gaps = [...]float64{
	290,  // Olidebron – Klaffbron
	610,  // Klaffbron – Järnvägsbron
	560,  // Järnvägsbron – Stridsbergsbron
	1410, // Stridsbergsbron – Stallbackabron
}

// BoundingBox is the canal region subscribed to upstream.
// NW corner first, SE corner second.
var BoundingBox = [2][2]float64{
	{58.32, 12.25},
	{58.25, 12.31},
}

// InBoundingBox reports whether a position is inside the canal region.
func InBoundingBox(lat, lon float64) bool {
	return lat <= BoundingBox[0][0] && lat >= BoundingBox[1][0] &&
		lon >= BoundingBox[0][1] && lon <= BoundingBox[1][1]
}

// All returns the bridges in canal order, south to north.
func All() []Bridge {
	out := make([]Bridge, len(canal))
	copy(out, canal)
	return out
}

// ByID looks a bridge up by its stable ID.
func ByID(id string) (Bridge, bool) {
	for _, b := range canal {
		if b.ID == id {
			return b, true
		}
	}
	return Bridge{}, false
}

// ByName looks a bridge up by its display name.
func ByName(name string) (Bridge, bool) {
	for _, b := range canal {
		if b.Name == name {
			return b, true
		}
	}
	return Bridge{}, false
}

// Targets returns the two opening bridges in canal order
// (Klaffbron, then Stridsbergsbron).
func Targets() []Bridge {
	out := make([]Bridge, 0, 2)
	for _, b := range canal {
		if b.Class == Target {
			out = append(out, b)
		}
	}
	return out
}

// Gap returns the along-canal distance in metres between two bridges,
// summing the gap table over the orders between them. ok is false when
// either ID is unknown.
func Gap(fromID, toID string) (metres float64, ok bool) {
	a, okA := ByID(fromID)
	b, okB := ByID(toID)
	if !okA || !okB {
		return 0, false
	}
	lo, hi := a.Order, b.Order
	if lo > hi {
		lo, hi = hi, lo
	}
	var sum float64
	for i := lo; i < hi; i++ {
		sum += gaps[i]
	}
	return sum, true
}

// Next returns the adjacent bridge in the travel direction
// (northbound steps the order up, southbound down).
func Next(fromID string, northbound bool) (Bridge, bool) {
	b, ok := ByID(fromID)
	if !ok {
		return Bridge{}, false
	}
	idx := b.Order + 1
	if !northbound {
		idx = b.Order - 1
	}
	if idx < 0 || idx >= len(canal) {
		return Bridge{}, false
	}
	return canal[idx], true
}

// NextTarget returns the next opening bridge after fromID in the travel
// direction, skipping intermediates and the special bridge.
func NextTarget(fromID string, northbound bool) (Bridge, bool) {
	cur := fromID
	for {
		nxt, ok := Next(cur, northbound)
		if !ok {
			return Bridge{}, false
		}
		if nxt.Class == Target {
			return nxt, true
		}
		cur = nxt.ID
	}
}
