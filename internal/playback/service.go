package playback

import (
	"time"

	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/queue"
	"github.com/mlevasseur/chorus/internal/scheduler"
)

// PlaylistSource identifies where the queue contents came from: an
// album, a playlist, a search result. It is informational; the queue
// itself only holds track ids.
type PlaylistSource struct {
	Type string
	ID   string
}

// Service defines the playback service contract.
type Service interface {
	// Playback control
	Play() error
	Pause() error
	Stop() error
	Toggle() error
	Next() error
	Previous() error
	Seek(delta time.Duration) error
	SeekTo(position time.Duration) error
	SetRate(rate float64)
	Rate() float64

	// Queue navigation (starts playback)
	JumpTo(index int) error

	// Queue manipulation
	ReplacePlaylist(source PlaylistSource, tracks []queue.Track, index int) error
	LoadQueue(source PlaylistSource, tracks []queue.Track, index int, playNext []string)
	AddToPlayNext(tracks []queue.Track, playNow, atHead bool)
	Substitute(oldID string, replacement queue.Track)
	Source() PlaylistSource

	// State queries
	State() State
	IsPlaying() bool
	Position() time.Duration
	Duration() time.Duration
	Current() *queue.Track
	QueueIDs() []string
	QueueTracks() []queue.Track
	PlayNextIDs() []string
	QueueIndex() int

	// Mode control
	RepeatMode() queue.RepeatMode
	SetRepeatMode(mode queue.RepeatMode)
	CycleRepeatMode() queue.RepeatMode
	Shuffle() bool
	SetShuffle(enabled bool)
	ToggleShuffle() bool

	// Personal radio
	SetRadio(enabled bool)
	RadioEnabled() bool
	MoveToRadioTrash(trackID string)

	// Synced lyrics
	Timeline() lyrics.Timeline
	LineIndex() int
	WordIndex(ch scheduler.WordChannel) int
	SetLyricOffset(seconds float64)
	LyricOptions() lyrics.Options
	SetLyricOptions(opts lyrics.Options)

	// Event subscription
	Subscribe() *Subscription

	// Lifecycle
	Close() error
}
