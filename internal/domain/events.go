package domain

import "time"

// EventKind enumerates registry state-change emissions.
type EventKind int

const (
	VesselEntered EventKind = iota
	VesselUpdated
	VesselStatusChanged
	VesselRemoved
	GPSJumpDetected
	GPSHoldSet
)

func (k EventKind) String() string {
	switch k {
	case VesselEntered:
		return "vessel-entered"
	case VesselUpdated:
		return "vessel-updated"
	case VesselStatusChanged:
		return "vessel-status-changed"
	case VesselRemoved:
		return "vessel-removed"
	case GPSJumpDetected:
		return "gps-jump-detected"
	case GPSHoldSet:
		return "gps-hold-set"
	}
	return "unknown"
}

// Event is one registry state change. Vessel is a snapshot taken at emit
// time; for VesselRemoved it is the final state.
type Event struct {
	Kind       EventKind
	MMSI       string
	Vessel     Vessel
	PrevStatus Status
	Reason     string
	Time       time.Time
}
