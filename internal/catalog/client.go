// Package catalog provides a client for the remote track catalog API:
// track metadata, playable URL resolution with fallback sources, lyric
// payloads and the personal radio stream.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/queue"
)

// ErrNotFound is returned when the catalog has no record for an id.
var ErrNotFound = errors.New("not found in catalog")

// Reason explains why a track has no playable URL.
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonSubscriptionRequired Reason = "subscription_required"
	ReasonRegionUnavailable    Reason = "region_unavailable"
	ReasonWithdrawn            Reason = "withdrawn"
	ReasonNotFound             Reason = "not_found"
)

// UnplayableError reports a track the catalog refuses to serve.
type UnplayableError struct {
	TrackID string
	Reason  Reason
}

func (e *UnplayableError) Error() string {
	return fmt.Sprintf("track %s unplayable: %s", e.TrackID, e.Reason)
}

// Client is a catalog API client. Requests are rate limited client-side
// so bursts of queue navigation cannot hammer the API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	// FallbackSources are tried in order when the primary source has no
	// playable URL for a track.
	FallbackSources []string
}

// NewClient creates a catalog client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// trackResponse mirrors the catalog's track object.
type trackResponse struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album"`
	Duration float64 `json:"duration"` // seconds
}

func (t trackResponse) toTrack() queue.Track {
	return queue.Track{
		ID:       t.ID,
		Matched:  true,
		Type:     queue.TypeOnline,
		Title:    t.Title,
		Artist:   t.Artist,
		Album:    t.Album,
		Duration: time.Duration(t.Duration * float64(time.Second)),
	}
}

// Track fetches track metadata.
func (c *Client) Track(ctx context.Context, id string) (queue.Track, error) {
	var resp trackResponse
	params := url.Values{"id": {id}}
	if err := c.get(ctx, "/track", params, &resp); err != nil {
		return queue.Track{}, err
	}
	return resp.toTrack(), nil
}

// urlResponse mirrors the catalog's URL resolution object.
type urlResponse struct {
	URL    string `json:"url"`
	Reason Reason `json:"reason"`
}

// PlayURL resolves a playable URL for a track, trying the primary source
// first and then each configured fallback source in priority order.
// When every source refuses, the primary source's reason is returned
// inside an UnplayableError.
func (c *Client) PlayURL(ctx context.Context, id string) (string, error) {
	sources := append([]string{""}, c.FallbackSources...)

	reason := ReasonNotFound
	for i, source := range sources {
		params := url.Values{"id": {id}}
		if source != "" {
			params.Set("source", source)
		}

		var resp urlResponse
		err := c.get(ctx, "/track/url", params, &resp)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return "", err
		}
		if resp.URL != "" {
			return resp.URL, nil
		}
		if i == 0 && resp.Reason != ReasonNone {
			reason = resp.Reason
		}
	}
	return "", &UnplayableError{TrackID: id, Reason: reason}
}

// Lyrics fetches the raw multi-channel lyric payload for a track.
// Implements lyrics.Fetcher.
func (c *Client) Lyrics(ctx context.Context, trackID string) (lyrics.Payload, error) {
	var p lyrics.Payload
	params := url.Values{"id": {trackID}}
	if err := c.get(ctx, "/lyric", params, &p); err != nil {
		return lyrics.Payload{}, err
	}
	return p, nil
}

// RadioNext fetches the next personal radio track.
func (c *Client) RadioNext(ctx context.Context) (queue.Track, error) {
	var resp trackResponse
	if err := c.get(ctx, "/radio/next", nil, &resp); err != nil {
		return queue.Track{}, err
	}
	return resp.toTrack(), nil
}
