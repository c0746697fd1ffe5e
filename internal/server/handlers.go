package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/bronvakt/bronvakt/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	BridgeText string `json:"bridge_text"`
	Alarm      bool   `json:"alarm"`

	Stream struct {
		Connected         bool      `json:"connected"`
		ReconnectAttempts int       `json:"reconnect_attempts"`
		LastMessageTime   time.Time `json:"last_message_time"`
		UptimeSeconds     float64   `json:"uptime_seconds"`
		InvalidDropped    uint64    `json:"invalid_dropped"`
		IgnoredFrames     uint64    `json:"ignored_frames"`
	} `json:"stream"`

	Registry struct {
		Vessels          int    `json:"vessels"`
		KinematicRejects uint64 `json:"kinematic_rejects"`
		StaleRemovals    uint64 `json:"stale_removals"`
	} `json:"registry"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	var resp statusResponse
	resp.BridgeText, resp.Alarm = s.sys.CurrentText()

	st := s.sys.AIS.Stats()
	resp.Stream.Connected = st.Connected
	resp.Stream.ReconnectAttempts = st.ReconnectAttempts
	resp.Stream.LastMessageTime = st.LastMessageTime
	resp.Stream.UptimeSeconds = st.Uptime.Seconds()
	resp.Stream.InvalidDropped = st.InvalidDropped
	resp.Stream.IgnoredFrames = st.IgnoredFrames

	rejects, removals, count := s.sys.Registry.Stats()
	resp.Registry.Vessels = count
	resp.Registry.KinematicRejects = rejects
	resp.Registry.StaleRemovals = removals

	writeJSON(w, http.StatusOK, resp)
}

type vesselView struct {
	MMSI          string               `json:"mmsi"`
	Name          string               `json:"name,omitempty"`
	Lat           float64              `json:"lat"`
	Lon           float64              `json:"lon"`
	SOG           float64              `json:"sog"`
	COG           *float64             `json:"cog,omitempty"`
	Status        string               `json:"status"`
	Direction     string               `json:"direction"`
	TargetBridge  string               `json:"target_bridge,omitempty"`
	CurrentBridge string               `json:"current_bridge,omitempty"`
	ETAMinutes    *float64             `json:"eta_minutes,omitempty"`
	LastMessage   time.Time            `json:"last_message"`
	PassedAt      map[string]time.Time `json:"passed_at,omitempty"`
}

func viewOf(v domain.Vessel) vesselView {
	return vesselView{
		MMSI:          v.MMSI,
		Name:          v.ShipName,
		Lat:           v.Lat,
		Lon:           v.Lon,
		SOG:           v.SOG,
		COG:           v.COG,
		Status:        v.Status.String(),
		Direction:     v.Direction().String(),
		TargetBridge:  v.TargetBridge,
		CurrentBridge: v.CurrentBridge,
		ETAMinutes:    v.ETAMinutes,
		LastMessage:   v.LastMessage,
		PassedAt:      v.PassedAt,
	}
}

func (s *Server) handleVessels(w http.ResponseWriter, _ *http.Request) {
	snap := s.sys.Registry.Snapshot()
	views := make([]vesselView, 0, len(snap))
	for _, v := range snap {
		views = append(views, viewOf(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(views),
		"vessels": views,
	})
}

// handleVesselsGeoJSON renders the fleet as a FeatureCollection for map
// tooling.
func (s *Server) handleVesselsGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc := geojson.NewFeatureCollection()
	for _, v := range s.sys.Registry.Snapshot() {
		f := geojson.NewPointFeature([]float64{v.Lon, v.Lat})
		f.SetProperty("mmsi", v.MMSI)
		f.SetProperty("name", v.ShipName)
		f.SetProperty("sog", v.SOG)
		f.SetProperty("status", v.Status.String())
		f.SetProperty("direction", v.Direction().String())
		if v.COG != nil {
			f.SetProperty("cog", *v.COG)
		}
		if v.TargetBridge != "" {
			f.SetProperty("target_bridge", v.TargetBridge)
		}
		if v.ETAMinutes != nil {
			f.SetProperty("eta_minutes", *v.ETAMinutes)
		}
		fc.AddFeature(f)
	}
	writeJSON(w, http.StatusOK, fc)
}
