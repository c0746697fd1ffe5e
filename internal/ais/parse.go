package ais

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bronvakt/bronvakt/internal/geo"
)

// Fix is one validated vessel position report.
type Fix struct {
	MMSI      string
	MsgType   string
	Lat       float64
	Lon       float64
	SOG       float64  // knots, >= 0
	COG       *float64 // degrees [0,360); nil when the transponder sent none
	ShipName  string
	Timestamp time.Time
}

// Position report message types accepted from the stream; everything else
// (static data, aids to navigation, ...) is ignored.
var acceptedTypes = map[string]bool{
	"PositionReport":               true,
	"StandardClassBPositionReport": true,
	"ExtendedClassBPositionReport": true,
}

type rawEnvelope struct {
	MessageType string                     `json:"MessageType"`
	MetaData    map[string]json.RawMessage `json:"MetaData"`
	Message     map[string]json.RawMessage `json:"Message"`
}

// parseFrame extracts a Fix from one upstream frame. It returns (nil, nil)
// for frames that are valid JSON but not an accepted position report, and an
// error for garbage. Field extraction is deliberately tolerant: each field is
// read from the metadata object first, then from the message payload.
func parseFrame(data []byte, now time.Time) (*Fix, error) {
	var env rawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if !acceptedTypes[env.MessageType] {
		return nil, nil
	}

	fields := map[string]any{}
	merge := func(raw json.RawMessage) {
		var m map[string]any
		if json.Unmarshal(raw, &m) == nil {
			for k, v := range m {
				if _, exists := fields[strings.ToLower(k)]; !exists {
					fields[strings.ToLower(k)] = v
				}
			}
		}
	}
	// Metadata wins over the payload for duplicated fields.
	if env.MetaData != nil {
		b, _ := json.Marshal(env.MetaData)
		merge(b)
	}
	if payload, ok := env.Message[env.MessageType]; ok {
		merge(payload)
	} else {
		// Tolerate upstreams that key the payload differently: take the
		// first entry.
		for _, raw := range env.Message {
			merge(raw)
			break
		}
	}

	mmsi, ok := extractMMSI(fields)
	if !ok {
		return nil, fmt.Errorf("frame without mmsi")
	}
	lat, okLat := extractNumber(fields, "latitude", "lat")
	lon, okLon := extractNumber(fields, "longitude", "lon")
	if !okLat || !okLon {
		return nil, fmt.Errorf("frame without position")
	}
	if !geo.ValidCoord(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates %.5f,%.5f", lat, lon)
	}

	fix := &Fix{
		MMSI:      mmsi,
		MsgType:   env.MessageType,
		Lat:       lat,
		Lon:       lon,
		Timestamp: now,
	}
	if sog, ok := extractNumber(fields, "sog", "speedoverground"); ok && sog >= 0 && !math.IsNaN(sog) {
		fix.SOG = sog
	}
	if cog, ok := extractNumber(fields, "cog", "courseoverground"); ok && !math.IsNaN(cog) {
		// COG 360 means "due north" on some transponders; missing COG stays
		// nil and is never treated as 0.
		c := geo.NormalizeCOG(cog)
		fix.COG = &c
	}
	if name, ok := fields["shipname"].(string); ok {
		fix.ShipName = strings.TrimSpace(name)
	}
	return fix, nil
}

func extractMMSI(fields map[string]any) (string, bool) {
	for _, key := range []string{"mmsi", "userid"} {
		switch v := fields[key].(type) {
		case float64:
			if v > 0 {
				return fmt.Sprintf("%.0f", v), true
			}
		case string:
			if v != "" {
				return v, true
			}
		}
	}
	return "", false
}

func extractNumber(fields map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := fields[key].(float64); ok {
			return v, true
		}
	}
	return 0, false
}
