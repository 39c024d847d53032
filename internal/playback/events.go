package playback

import (
	"time"

	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/queue"
	"github.com/mlevasseur/chorus/internal/scheduler"
)

// StateChange is emitted when playback state changes.
type StateChange struct {
	Previous State
	Current  State
}

// TrackChange is emitted when playback starts on a different track.
//
// Emitted when a track is activated: replace with autoplay, next,
// previous, jump, automatic advance on track end, id substitution of
// the playing track, and radio fallback. Queue edits that do not start
// playback do not emit it.
type TrackChange struct {
	Previous *queue.Track
	Current  *queue.Track
	Index    int // position in the active queue projection, -1 for radio tracks
	Radio    bool
}

// QueueChange is emitted when the queue contents or projection change.
type QueueChange struct {
	IDs   []string
	Index int
}

// ModeChange is emitted when repeat, shuffle, or radio mode changes.
type ModeChange struct {
	Repeat  queue.RepeatMode
	Shuffle bool
	Radio   bool
}

// PositionChange is emitted when a seek occurs.
type PositionChange struct {
	Position time.Duration
}

// LineChange is emitted when the active lyric line index changes.
// Index -1 means before the first line, len(timeline) means past the
// last line.
type LineChange struct {
	Index int
}

// WordChange is emitted when a word-timed channel's active word index
// changes.
type WordChange struct {
	Channel scheduler.WordChannel
	Index   int
}

// TimelineChange is emitted when the playing track's timeline is rebuilt
// under new lyric options. Track changes carry their timeline on
// TrackChange instead.
type TimelineChange struct {
	Timeline lyrics.Timeline
}

// ErrorEvent is emitted when an error occurs during playback.
type ErrorEvent struct {
	Operation string // e.g. "play", "resolve", "radio"
	TrackID   string
	Reason    string // unplayable reason code if known
	Err       error
}
