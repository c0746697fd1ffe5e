// Package client is a small HTTP client for the bronvakt debug API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	DefaultServer  = "http://localhost:8080"
	DefaultTimeout = 30 * time.Second
)

// Client talks to a running bronvaktd.
type Client struct {
	server     string
	httpClient *http.Client
}

// Option configures the client.
type Option func(*Client)

// New creates a new client.
func New(opts ...Option) *Client {
	c := &Client{
		server: DefaultServer,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithServer sets a custom server URL.
func WithServer(server string) Option {
	return func(c *Client) {
		if server != "" {
			c.server = server
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// ServerURL returns the configured server URL.
func (c *Client) ServerURL() string {
	return c.server
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health checks daemon liveness.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", body.Status)
	}
	return nil
}

// Status is the daemon's observable state.
type Status struct {
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

// GetStatus fetches /api/v1/status.
func (c *Client) GetStatus(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.get(ctx, "/api/v1/status", &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Vessel is one tracked vessel as reported by the API.
type Vessel struct {
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

// VesselList is the /api/v1/vessels payload.
type VesselList struct {
	Count   int      `json:"count"`
	Vessels []Vessel `json:"vessels"`
}

// GetVessels fetches the tracked vessel list.
func (c *Client) GetVessels(ctx context.Context) (*VesselList, error) {
	var list VesselList
	if err := c.get(ctx, "/api/v1/vessels", &list); err != nil {
		return nil, err
	}
	return &list, nil
}
