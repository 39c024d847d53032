package queue

import "time"

// TrackType identifies where a track's audio comes from.
type TrackType int

const (
	// TypeOnline is a catalog track whose URL is resolved via the API.
	TypeOnline TrackType = iota
	// TypeLocal is a file on disk.
	TypeLocal
	// TypeStream is a track served by a self-hosted streaming server.
	TypeStream
)

// String returns the type name.
func (t TrackType) String() string {
	switch t {
	case TypeOnline:
		return "online"
	case TypeLocal:
		return "local"
	case TypeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// Track is a reference to a playable track. Matched reports whether a
// local file has been matched to a catalog id; unmatched local tracks get
// their id substituted in place once a match is found.
type Track struct {
	ID        string
	Matched   bool
	Type      TrackType
	FilePath  string
	SourceURL string
	Title     string
	Artist    string
	Album     string
	Duration  time.Duration
}
