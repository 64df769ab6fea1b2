// Package ctlclient is the steerctl-side HTTP client for the control RPC
// surface exposed by internal/rpc: add_mac, hearing_map, and network.
package ctlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"steerd.dev/steerd/internal/rpc"
	"steerd.dev/steerd/internal/wire"
)

// Client talks to one steerd instance's RPC surface.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL, e.g. "http://127.0.0.1:9090".
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 5 * time.Second}}
}

// AddMAC permits addr, returning whether it was newly added.
func (c *Client) AddMAC(ctx context.Context, addr string) (rpc.AddMACReply, error) {
	var reply rpc.AddMACReply
	mac, err := wire.ParseMAC(addr)
	if err != nil {
		return reply, fmt.Errorf("ctlclient: %w", err)
	}
	body, err := json.Marshal(rpc.AddMACArgs{Addr: mac})
	if err != nil {
		return reply, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/add_mac", bytes.NewReader(body))
	if err != nil {
		return reply, err
	}
	req.Header.Set("Content-Type", "application/json")
	return reply, c.do(req, &reply)
}

// HearingMap fetches the current ssid -> client -> bssid hearing table.
func (c *Client) HearingMap(ctx context.Context) (rpc.HearingMapReply, error) {
	reply := make(rpc.HearingMapReply)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/hearing_map", nil)
	if err != nil {
		return reply, err
	}
	return reply, c.do(req, &reply)
}

// Network fetches the current ssid -> bssid network overview.
func (c *Client) Network(ctx context.Context) (rpc.NetworkReply, error) {
	reply := make(rpc.NetworkReply)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/network", nil)
	if err != nil {
		return reply, err
	}
	return reply, c.do(req, &reply)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ctlclient: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ctlclient: %s %s: status %s", req.Method, req.URL.Path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
