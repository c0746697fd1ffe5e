package ais

import (
	"testing"
	"time"
)

var parseNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestParseFramePositionReport(t *testing.T) {
	frame := []byte(`{
		"MessageType": "PositionReport",
		"MetaData": {"MMSI": 265547250, "ShipName": "JUNO  ", "latitude": 58.2758, "longitude": 12.2684},
		"Message": {"PositionReport": {"Sog": 4.2, "Cog": 23.5}}
	}`)

	fix, err := parseFrame(frame, parseNow)
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if fix == nil {
		t.Fatal("expected a fix")
	}
	if fix.MMSI != "265547250" {
		t.Errorf("MMSI = %q", fix.MMSI)
	}
	if fix.ShipName != "JUNO" {
		t.Errorf("ShipName = %q, want trimmed JUNO", fix.ShipName)
	}
	if fix.Lat != 58.2758 || fix.Lon != 12.2684 {
		t.Errorf("position = %v,%v", fix.Lat, fix.Lon)
	}
	if fix.SOG != 4.2 {
		t.Errorf("SOG = %v", fix.SOG)
	}
	if fix.COG == nil || *fix.COG != 23.5 {
		t.Errorf("COG = %v", fix.COG)
	}
	if !fix.Timestamp.Equal(parseNow) {
		t.Errorf("Timestamp = %v", fix.Timestamp)
	}
}

func TestParseFrameIgnoredType(t *testing.T) {
	frame := []byte(`{"MessageType": "ShipStaticData", "Message": {"ShipStaticData": {"UserID": 123}}}`)
	fix, err := parseFrame(frame, parseNow)
	if err != nil {
		t.Fatalf("ignored type should not error: %v", err)
	}
	if fix != nil {
		t.Errorf("ignored type produced a fix: %+v", fix)
	}
}

func TestParseFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"garbage", `not json`},
		{"missing mmsi", `{"MessageType":"PositionReport","Message":{"PositionReport":{"Latitude":58.27,"Longitude":12.27}}}`},
		{"missing position", `{"MessageType":"PositionReport","Message":{"PositionReport":{"UserID":123}}}`},
		{"null island", `{"MessageType":"PositionReport","Message":{"PositionReport":{"UserID":123,"Latitude":0,"Longitude":0}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fix, err := parseFrame([]byte(tt.frame), parseNow)
			if err == nil {
				t.Errorf("expected error, got fix %+v", fix)
			}
		})
	}
}

func TestParseFrameCOGHandling(t *testing.T) {
	t.Run("360 normalizes to 0", func(t *testing.T) {
		frame := []byte(`{"MessageType":"PositionReport","Message":{"PositionReport":{"UserID":123,"Latitude":58.27,"Longitude":12.27,"Cog":360}}}`)
		fix, err := parseFrame(frame, parseNow)
		if err != nil {
			t.Fatal(err)
		}
		if fix.COG == nil || *fix.COG != 0 {
			t.Errorf("COG = %v, want 0", fix.COG)
		}
	})

	t.Run("missing COG stays nil", func(t *testing.T) {
		frame := []byte(`{"MessageType":"PositionReport","Message":{"PositionReport":{"UserID":123,"Latitude":58.27,"Longitude":12.27}}}`)
		fix, err := parseFrame(frame, parseNow)
		if err != nil {
			t.Fatal(err)
		}
		if fix.COG != nil {
			t.Errorf("COG = %v, want nil", *fix.COG)
		}
	})
}

func TestParseFrameMetadataWins(t *testing.T) {
	// Same field in metadata and payload: metadata's value is used.
	frame := []byte(`{
		"MessageType": "StandardClassBPositionReport",
		"MetaData": {"MMSI": 111, "latitude": 58.28, "longitude": 12.26},
		"Message": {"StandardClassBPositionReport": {"Latitude": 1.0, "Longitude": 1.0}}
	}`)
	fix, err := parseFrame(frame, parseNow)
	if err != nil {
		t.Fatal(err)
	}
	if fix.Lat != 58.28 || fix.Lon != 12.26 {
		t.Errorf("position = %v,%v, want metadata values", fix.Lat, fix.Lon)
	}
	if fix.MMSI != "111" {
		t.Errorf("MMSI = %q", fix.MMSI)
	}
}

func TestParseFrameUnkeyedPayload(t *testing.T) {
	// Payload keyed under an unexpected name still parses.
	frame := []byte(`{
		"MessageType": "PositionReport",
		"Message": {"Report": {"UserID": 42, "Latitude": 58.27, "Longitude": 12.27, "Sog": 1.1}}
	}`)
	fix, err := parseFrame(frame, parseNow)
	if err != nil {
		t.Fatal(err)
	}
	if fix.MMSI != "42" || fix.SOG != 1.1 {
		t.Errorf("fix = %+v", fix)
	}
}
