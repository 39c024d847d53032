package lyrics

import (
	"context"
	"os"
	"path/filepath"
)

// Fetcher retrieves a raw lyric payload for a catalog track.
type Fetcher interface {
	Lyrics(ctx context.Context, trackID string) (Payload, error)
}

// TrackInfo carries what the source needs to locate lyrics for a track.
type TrackInfo struct {
	ID       string
	FilePath string // set for local tracks; sidecar lookup uses it
	Local    bool
}

// FetchResult is the outcome of a lyrics lookup.
type FetchResult struct {
	Payload Payload
	Source  string // "sidecar", "cache", "api", or "not_found"
	Err     error
}

// Source provides lyric payloads from sidecar files, the persistent
// cache, or the remote catalog, in that order.
type Source struct {
	fetcher Fetcher
	cache   *Cache
	// Classify routes unlabeled auxiliary channels; nil uses DetectAux.
	Classify Classifier
}

// NewSource creates a lyrics source. Both fetcher and cache may be nil,
// in which case the corresponding step is skipped.
func NewSource(fetcher Fetcher, cache *Cache) *Source {
	return &Source{fetcher: fetcher, cache: cache}
}

// Fetch retrieves the lyric payload for a track using the priority order:
// local sidecar file, cached payload, remote catalog API. A miss at every
// step is a valid "no lyrics" result, not an error.
func (s *Source) Fetch(ctx context.Context, track TrackInfo) FetchResult {
	if track.Local && track.FilePath != "" {
		if p, ok := s.loadSidecar(track.FilePath); ok {
			return FetchResult{Payload: p, Source: "sidecar"}
		}
	}

	if s.cache != nil && track.ID != "" {
		if p, ok := s.cache.Get(track.ID); ok {
			return FetchResult{Payload: p, Source: "cache"}
		}
	}

	if s.fetcher == nil || track.ID == "" {
		return FetchResult{Source: "not_found"}
	}

	p, err := s.fetcher.Lyrics(ctx, track.ID)
	if err != nil {
		return FetchResult{Source: "not_found", Err: err}
	}
	if p.IsEmpty() {
		return FetchResult{Source: "not_found"}
	}

	if s.cache != nil {
		_ = s.cache.Put(track.ID, p)
	}
	return FetchResult{Payload: p, Source: "api"}
}

// loadSidecar reads a .lrc file next to the audio file. A second sidecar
// with the .aux.lrc suffix, when present, is routed into the translation
// or romanization channel by the classifier.
func (s *Source) loadSidecar(audioPath string) (Payload, bool) {
	base := audioPath[:len(audioPath)-len(filepath.Ext(audioPath))]

	data, err := os.ReadFile(base + ".lrc")
	if err != nil {
		return Payload{}, false
	}
	p := Payload{Lyric: ChannelFromString(string(data))}

	if aux, err := os.ReadFile(base + ".aux.lrc"); err == nil {
		RouteAux(&p, ChannelFromString(string(aux)), s.Classify)
	}
	return p, true
}
