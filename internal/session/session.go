// Package session resolves a track id to a playable audio source and to
// the track's lyric timeline, bridging the queue and the scheduler.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dhowden/tag"

	"github.com/mlevasseur/chorus/internal/catalog"
	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/queue"
)

// LocalStore looks up local track records. The library that fills it
// (file scanning, metadata caching) is an external collaborator.
type LocalStore interface {
	TrackByID(id string) (queue.Track, bool)
}

// StreamResolver resolves stream-type tracks to playable URLs.
type StreamResolver interface {
	Resolve(ctx context.Context, trackID string) (string, error)
}

// CatalogClient is the subset of the catalog API the session needs.
type CatalogClient interface {
	Track(ctx context.Context, id string) (queue.Track, error)
	PlayURL(ctx context.Context, id string) (string, error)
}

// AudioSource is a resolved playback input.
type AudioSource struct {
	URL   string // remote source, empty for local files
	Path  string // local file path, empty for remote sources
	Local bool
}

// Activation is the combined outcome of audio and lyric resolution for
// one track.
type Activation struct {
	Track       queue.Track
	Audio       AudioSource
	Timeline    lyrics.Timeline
	Payload     lyrics.Payload
	LyricSource string
	Err         error
	Reason      catalog.Reason
}

// Unplayable reports whether audio resolution failed entirely.
func (a Activation) Unplayable() bool {
	return a.Err != nil
}

// Session resolves tracks. All lookups take a context so a track change
// can cancel in-flight work for the previous track.
type Session struct {
	local   LocalStore
	stream  StreamResolver
	catalog CatalogClient
	source  *lyrics.Source
}

// New creates a session. Any collaborator may be nil; the corresponding
// resolution step is skipped.
func New(local LocalStore, streams StreamResolver, cat CatalogClient, source *lyrics.Source) *Session {
	return &Session{local: local, stream: streams, catalog: cat, source: source}
}

// Activate resolves audio and lyrics for a track concurrently. The lyric
// fetch never blocks audio resolution; an empty timeline means "no
// lyrics" and is not a failure.
func (s *Session) Activate(ctx context.Context, track queue.Track, opts lyrics.Options) Activation {
	type lyricResult struct {
		tl      lyrics.Timeline
		payload lyrics.Payload
		source  string
	}
	lyricCh := make(chan lyricResult, 1)
	go func() {
		tl, p, src := s.FetchTimeline(ctx, track, opts)
		lyricCh <- lyricResult{tl: tl, payload: p, source: src}
	}()

	act := Activation{Track: track}
	audio, resolved, err := s.ResolveAudio(ctx, track)
	if err != nil {
		act.Err = err
		var ue *catalog.UnplayableError
		if errors.As(err, &ue) {
			act.Reason = ue.Reason
		} else if errors.Is(err, catalog.ErrNotFound) {
			act.Reason = catalog.ReasonNotFound
		}
	} else {
		act.Track = resolved
		act.Audio = audio
	}

	select {
	case lr := <-lyricCh:
		act.Timeline = lr.tl
		act.Payload = lr.payload
		act.LyricSource = lr.source
	case <-ctx.Done():
	}
	return act
}

// ResolveAudio finds a playable source for a track, in order: a local
// record with a direct path, a previously resolved stream URL or the
// streaming servers, then the catalog API with its fallback sources.
// The returned track carries any metadata picked up along the way.
func (s *Session) ResolveAudio(ctx context.Context, track queue.Track) (AudioSource, queue.Track, error) {
	// 1. Local record with a direct playable path.
	if t, ok := s.localTrack(track); ok {
		if _, err := os.Stat(t.FilePath); err == nil {
			fillLocalMeta(&t)
			return AudioSource{Path: t.FilePath, Local: true}, t, nil
		}
	}

	// 2. Previously resolved stream URL, then the streaming servers.
	if track.SourceURL != "" {
		return AudioSource{URL: track.SourceURL}, track, nil
	}
	if track.Type == queue.TypeStream && s.stream != nil {
		u, err := s.stream.Resolve(ctx, track.ID)
		if err == nil {
			track.SourceURL = u
			return AudioSource{URL: u}, track, nil
		}
	}

	// 3. Fresh catalog lookup.
	if s.catalog == nil {
		return AudioSource{}, track, fmt.Errorf("track %s: %w", track.ID, catalog.ErrNotFound)
	}
	if t, err := s.catalog.Track(ctx, track.ID); err == nil {
		t.FilePath = track.FilePath
		track = t
	}
	u, err := s.catalog.PlayURL(ctx, track.ID)
	if err != nil {
		return AudioSource{}, track, err
	}
	track.SourceURL = u
	return AudioSource{URL: u}, track, nil
}

// FetchTimeline retrieves and parses lyrics for a track. Any failure
// yields an empty timeline: the caller treats it as "no lyrics". The raw
// payload is returned alongside so the timeline can be rebuilt later
// under different options without refetching.
func (s *Session) FetchTimeline(ctx context.Context, track queue.Track, opts lyrics.Options) (lyrics.Timeline, lyrics.Payload, string) {
	if s.source == nil {
		return nil, lyrics.Payload{}, "not_found"
	}
	res := s.source.Fetch(ctx, lyrics.TrackInfo{
		ID:       track.ID,
		FilePath: track.FilePath,
		Local:    track.Type == queue.TypeLocal,
	})
	if opts.Duration <= 0 && track.Duration > 0 {
		opts.Duration = track.Duration.Seconds()
	}
	return lyrics.Parse(res.Payload, opts), res.Payload, res.Source
}

func (s *Session) localTrack(track queue.Track) (queue.Track, bool) {
	if track.FilePath != "" {
		return track, true
	}
	if s.local == nil {
		return queue.Track{}, false
	}
	t, ok := s.local.TrackByID(track.ID)
	if !ok || t.FilePath == "" {
		return queue.Track{}, false
	}
	return t, true
}

// fillLocalMeta reads file tags for a local track whose record lacks
// title or artist. Failures leave the record as-is.
func fillLocalMeta(t *queue.Track) {
	if t.Title != "" && t.Artist != "" {
		return
	}
	f, err := os.Open(t.FilePath)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return
	}
	if t.Title == "" {
		t.Title = m.Title()
	}
	if t.Artist == "" {
		t.Artist = m.Artist()
	}
	if t.Album == "" {
		t.Album = m.Album()
	}
}
