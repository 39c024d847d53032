// Package scheduler keeps the active lyric line and word indices in step
// with the audio engine's playback position. It never polls: after each
// recomputation it arms a single one-shot timer for the next entry start,
// corrected for the current position, offset and rate, and on fire it
// relocates from scratch rather than incrementing blindly.
package scheduler

import (
	"sync"
	"time"

	"github.com/mlevasseur/chorus/internal/lyrics"
)

// WordChannel names an independently tracked word-level list.
type WordChannel int

const (
	// WordsLyric tracks the primary lyric's word timing.
	WordsLyric WordChannel = iota
	// WordsTranslation tracks the translation's word timing.
	WordsTranslation
)

// String returns the channel name.
func (c WordChannel) String() string {
	switch c {
	case WordsLyric:
		return "lyric"
	case WordsTranslation:
		return "translation"
	default:
		return "unknown"
	}
}

// PositionSource exposes the audio engine's playback clock. The engine is
// a black box; the scheduler only ever reads the authoritative position
// from it, never accumulates ticks.
type PositionSource interface {
	Position() time.Duration
}

// tracker follows one ordered list of timed entries with its own one-shot
// timer, so a long line with short translation words is not starved by
// the line-level cadence.
type tracker struct {
	locate    func(pos float64) int
	nextStart func(idx int) (float64, bool)
	emit      func(idx int)

	index int
	timer *time.Timer
	gen   uint64
}

func (t *tracker) stop() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

// Scheduler walks a Timeline against a position source. All methods are
// safe for concurrent use; at most one timer per channel is pending at
// any time, and every state change cancels pending timers before
// re-arming.
type Scheduler struct {
	mu sync.Mutex

	pos     PositionSource
	onLine  func(int)
	onWord  func(WordChannel, int)
	rate    float64
	offset  float64
	playing bool
	closed  bool

	line  *tracker
	words map[WordChannel]*tracker
}

// New creates a scheduler. onLine and onWord receive every recomputed
// index; either may be nil.
func New(pos PositionSource, onLine func(int), onWord func(WordChannel, int)) *Scheduler {
	if onLine == nil {
		onLine = func(int) {}
	}
	if onWord == nil {
		onWord = func(WordChannel, int) {}
	}
	return &Scheduler{
		pos:    pos,
		onLine: onLine,
		onWord: onWord,
		rate:   1,
		line:   &tracker{index: -1},
		words:  make(map[WordChannel]*tracker),
	}
}

// SetTimeline swaps in a freshly built timeline. Indices from the
// previous timeline are never assumed valid: every channel relocates from
// scratch. Passing an empty timeline clears all channels.
func (s *Scheduler) SetTimeline(tl lyrics.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopAllLocked()

	s.line = &tracker{
		index:  -1,
		locate: tl.Locate,
		// The entry after the last line is its own end, so the exhausted
		// state (index == len) is still emitted on time.
		nextStart: func(idx int) (float64, bool) {
			if start, ok := tl.NextStart(idx); ok {
				return start, true
			}
			if idx >= 0 && idx < len(tl) {
				return tl[idx].End, true
			}
			return 0, false
		},
		emit: s.onLine,
	}

	s.words = make(map[WordChannel]*tracker)
	if ws := collectWords(tl, WordsLyric); len(ws) > 0 {
		s.words[WordsLyric] = s.wordTracker(WordsLyric, ws)
	}
	if ws := collectWords(tl, WordsTranslation); len(ws) > 0 {
		s.words[WordsTranslation] = s.wordTracker(WordsTranslation, ws)
	}

	s.syncLocked()
}

func (s *Scheduler) wordTracker(ch WordChannel, ws []lyrics.Word) *tracker {
	return &tracker{
		index: -1,
		locate: func(pos float64) int {
			return lyrics.LocateWord(ws, pos)
		},
		nextStart: func(idx int) (float64, bool) {
			next := idx + 1
			if next >= 0 && next < len(ws) {
				return ws[next].Start, true
			}
			if idx >= 0 && idx < len(ws) {
				return ws[idx].End, true
			}
			return 0, false
		},
		emit: func(idx int) { s.onWord(ch, idx) },
	}
}

// collectWords flattens a channel's word lists across all lines into one
// time-ordered list. Lines are already sorted by start, and words within
// a line are ordered, so the result needs no sorting pass.
func collectWords(tl lyrics.Timeline, ch WordChannel) []lyrics.Word {
	var out []lyrics.Word
	for _, l := range tl {
		switch ch {
		case WordsLyric:
			out = append(out, l.Words...)
		case WordsTranslation:
			if l.Translation != nil {
				out = append(out, l.Translation.Words...)
			}
		}
	}
	return out
}

// Play resumes index tracking, relocating immediately.
func (s *Scheduler) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = true
	s.syncLocked()
}

// Pause cancels all pending timers without losing the current indices.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.stopAllLocked()
}

// Sync recomputes all indices from the current position and re-arms.
// Call it after a seek; it is idempotent and never errors, whatever the
// position.
func (s *Scheduler) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncLocked()
}

// SetRate re-arms every pending timer using the new rate against the same
// target entry. Rates are clamped to a small positive floor.
func (s *Scheduler) SetRate(rate float64) {
	if rate <= 0 {
		rate = 0.01
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate = rate
	s.syncLocked()
}

// SetOffset shifts the effective position by the given amount (may be
// negative) and resynchronizes.
func (s *Scheduler) SetOffset(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = seconds
	s.syncLocked()
}

// LineIndex returns the current line index (-1 before the first line,
// timeline length past the last).
func (s *Scheduler) LineIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.line.index
}

// WordIndex returns the current word index for a channel, or -1 when the
// channel has no word timing.
func (s *Scheduler) WordIndex(ch WordChannel) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.words[ch]; ok {
		return t.index
	}
	return -1
}

// Close cancels all timers. The scheduler must not be reused after.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.stopAllLocked()
}

func (s *Scheduler) stopAllLocked() {
	s.line.stop()
	for _, t := range s.words {
		t.stop()
	}
}

// syncLocked recomputes every channel from the authoritative clock and
// re-arms. Cancelling before re-arming guarantees at most one pending
// timer per channel.
func (s *Scheduler) syncLocked() {
	if s.closed {
		return
	}
	pos := s.positionLocked()
	s.syncTracker(s.line, pos)
	for _, t := range s.words {
		s.syncTracker(t, pos)
	}
}

func (s *Scheduler) positionLocked() float64 {
	var p float64
	if s.pos != nil {
		p = s.pos.Position().Seconds()
	}
	return p + s.offset
}

func (s *Scheduler) syncTracker(t *tracker, pos float64) {
	t.stop()
	if t.locate == nil {
		return
	}
	t.index = t.locate(pos)
	t.emit(t.index)
	if s.playing {
		s.armTracker(t, pos)
	}
}

// armTracker schedules the next wake-up with drift correction: the delay
// is recomputed from the clock every time, never accumulated.
func (s *Scheduler) armTracker(t *tracker, pos float64) {
	next, ok := t.nextStart(t.index)
	if !ok {
		return
	}
	drift := next - pos
	if drift < 0 {
		drift = 0
	}
	delay := time.Duration(drift / s.rate * float64(time.Second))
	gen := t.gen
	t.timer = time.AfterFunc(delay, func() {
		s.fire(t, gen)
	})
}

// fire relocates a single channel after its timer expires. Timers armed
// before an intervening seek, pause, rate change or timeline swap carry a
// stale generation and are ignored.
func (s *Scheduler) fire(t *tracker, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != t.gen || !s.playing {
		return
	}
	s.syncTracker(t, s.positionLocked())
}
