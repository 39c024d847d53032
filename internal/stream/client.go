// Package stream provides access to self-hosted streaming servers.
// Servers are tried in configuration order; the first one that knows a
// track wins.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNoServer is returned when no configured server can serve a track.
var ErrNoServer = errors.New("no streaming server has this track")

// Server is one configured streaming endpoint.
type Server struct {
	Name  string
	URL   string
	Token string
}

// Client resolves stream-type tracks against the configured servers.
type Client struct {
	servers    []Server
	httpClient *http.Client
}

// NewClient creates a streaming client over the given servers.
func NewClient(servers []Server) *Client {
	return &Client{
		servers:    servers,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// HasServers reports whether any server is configured.
func (c *Client) HasServers() bool {
	return len(c.servers) > 0
}

// trackResponse mirrors a server's track lookup object.
type trackResponse struct {
	ID        string `json:"id"`
	StreamURL string `json:"streamUrl"`
}

// Resolve returns a playable stream URL for a track id, trying each
// server in order. Servers that do not know the track are skipped;
// transport errors on one server do not prevent trying the next.
func (c *Client) Resolve(ctx context.Context, trackID string) (string, error) {
	var lastErr error
	for _, srv := range c.servers {
		u, err := c.lookup(ctx, srv, trackID)
		if err != nil {
			lastErr = err
			continue
		}
		if u != "" {
			return u, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("%w: %v", ErrNoServer, lastErr)
	}
	return "", ErrNoServer
}

func (c *Client) lookup(ctx context.Context, srv Server, trackID string) (string, error) {
	params := url.Values{"id": {trackID}}
	reqURL := srv.URL + "/api/track?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	if srv.Token != "" {
		req.Header.Set("X-API-Key", srv.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("server %s returned status %d", srv.Name, resp.StatusCode)
	}

	var result trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return result.StreamURL, nil
}
