// Package radio implements the personal radio fallback: an endless,
// server-supplied track stream used when no explicit playlist is active.
// The next track is always pre-fetched so advancement does not block on
// the network under normal conditions.
package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mlevasseur/chorus/internal/queue"
)

// ErrTimeout is returned when every fetch attempt failed; it surfaces to
// the user instead of silently stalling playback.
var ErrTimeout = errors.New("radio fetch timed out")

// ErrNoSource is returned when radio mode is used without a catalog.
var ErrNoSource = errors.New("no radio source configured")

// Source supplies the next algorithmic radio track.
type Source interface {
	Next(ctx context.Context) (queue.Track, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (queue.Track, error)

func (f SourceFunc) Next(ctx context.Context) (queue.Track, error) {
	return f(ctx)
}

// Config holds the retry policy. The counts are fixed constants in
// spirit but configurable in practice.
type Config struct {
	Retries int           // fetch attempts before giving up (default 5)
	Backoff time.Duration // fixed delay between attempts (default 1s)
}

// DefaultConfig returns the stock retry policy.
func DefaultConfig() Config {
	return Config{Retries: 5, Backoff: time.Second}
}

func (c Config) withDefaults() Config {
	if c.Retries <= 0 {
		c.Retries = 5
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	return c
}

// State is a snapshot of the radio prefetch machinery.
type State struct {
	Current *queue.Track
	Next    *queue.Track
	Loading bool
}

// Radio manages radio playback state.
type Radio struct {
	mu      sync.Mutex
	source  Source
	cfg     Config
	enabled bool
	current *queue.Track
	next    *queue.Track
	loading bool
	trash   map[string]bool
	gen     uint64
}

// New creates a Radio over the given source.
func New(source Source, cfg Config) *Radio {
	return &Radio{
		source: source,
		cfg:    cfg.withDefaults(),
		trash:  make(map[string]bool),
	}
}

// Enable turns radio mode on.
func (r *Radio) Enable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
}

// Disable turns radio mode off and drops prefetched state.
func (r *Radio) Disable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = false
	r.gen++
	r.current = nil
	r.next = nil
	r.loading = false
}

// IsEnabled reports whether radio mode is on.
func (r *Radio) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// StateSnapshot returns the current/next/loading view.
func (r *Radio) StateSnapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{Current: r.current, Next: r.next, Loading: r.loading}
}

// Current returns the radio track playing now, if any.
func (r *Radio) Current() (queue.Track, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return queue.Track{}, false
	}
	return *r.current, true
}

// Trash returns the excluded track ids, for persistence.
func (r *Radio) Trash() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.trash))
	for id := range r.trash {
		ids = append(ids, id)
	}
	return ids
}

// MoveToTrash excludes a track from future radio selection. A prefetched
// next track that lands in the trash is dropped and replaced.
func (r *Radio) MoveToTrash(id string) {
	r.mu.Lock()
	r.trash[id] = true
	refetch := r.next != nil && r.next.ID == id
	if refetch {
		r.next = nil
	}
	gen := r.gen
	r.mu.Unlock()

	if refetch {
		go r.prefetch(gen)
	}
}

// Advance produces the next radio track. The prefetched track is used
// when available; otherwise the source is polled with the configured
// retry policy. A successful advance always kicks off the next prefetch.
func (r *Radio) Advance(ctx context.Context) (queue.Track, error) {
	r.mu.Lock()
	if t := r.takeNextLocked(); t != nil {
		r.current = t
		gen := r.gen
		r.mu.Unlock()
		go r.prefetch(gen)
		return *t, nil
	}
	gen := r.gen
	r.mu.Unlock()

	t, err := r.fetchWithRetry(ctx)
	if err != nil {
		return queue.Track{}, err
	}

	r.mu.Lock()
	r.current = &t
	r.mu.Unlock()
	go r.prefetch(gen)
	return t, nil
}

// takeNextLocked consumes the prefetched track unless it was trashed
// after prefetching.
func (r *Radio) takeNextLocked() *queue.Track {
	if r.next == nil || r.trash[r.next.ID] {
		r.next = nil
		return nil
	}
	t := r.next
	r.next = nil
	return t
}

// fetchWithRetry polls the source up to cfg.Retries times with a fixed
// backoff, skipping trashed tracks, before surfacing a timeout.
func (r *Radio) fetchWithRetry(ctx context.Context) (queue.Track, error) {
	if r.source == nil {
		return queue.Track{}, ErrNoSource
	}
	var lastErr error
	for attempt := 0; attempt < r.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return queue.Track{}, ctx.Err()
			case <-time.After(r.cfg.Backoff):
			}
		}

		t, err := r.source.Next(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		r.mu.Lock()
		trashed := r.trash[t.ID]
		r.mu.Unlock()
		if trashed {
			continue
		}
		return t, nil
	}
	if lastErr != nil {
		return queue.Track{}, fmt.Errorf("%w: %v", ErrTimeout, lastErr)
	}
	return queue.Track{}, ErrTimeout
}

// prefetch fills the next slot in the background. Results for an
// outdated generation (radio disabled meanwhile) are discarded.
func (r *Radio) prefetch(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || r.next != nil {
		r.mu.Unlock()
		return
	}
	r.loading = true
	r.mu.Unlock()

	t, err := r.fetchWithRetry(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = false
	if gen != r.gen || err != nil {
		return
	}
	r.next = &t
}
