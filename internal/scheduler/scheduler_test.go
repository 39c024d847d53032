package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/mlevasseur/chorus/internal/lyrics"
)

// manualClock is a position source set directly by the test.
type manualClock struct {
	mu  sync.Mutex
	pos time.Duration
}

func (c *manualClock) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

func (c *manualClock) set(d time.Duration) {
	c.mu.Lock()
	c.pos = d
	c.mu.Unlock()
}

// runningClock advances in real time from a base position.
type runningClock struct {
	start time.Time
}

func (c *runningClock) Position() time.Duration {
	return time.Since(c.start)
}

// recorder collects emitted indices.
type recorder struct {
	mu    sync.Mutex
	lines []int
	words map[WordChannel][]int
}

func newRecorder() *recorder {
	return &recorder{words: make(map[WordChannel][]int)}
}

func (r *recorder) onLine(i int) {
	r.mu.Lock()
	r.lines = append(r.lines, i)
	r.mu.Unlock()
}

func (r *recorder) onWord(ch WordChannel, i int) {
	r.mu.Lock()
	r.words[ch] = append(r.words[ch], i)
	r.mu.Unlock()
}

func (r *recorder) lastLine() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return -2
	}
	return r.lines[len(r.lines)-1]
}

func (r *recorder) lineLog() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, len(r.lines))
	copy(out, r.lines)
	return out
}

func smallTimeline() lyrics.Timeline {
	return lyrics.Timeline{
		{Start: 0.03, End: 0.06, Text: "a"},
		{Start: 0.06, End: 0.09, Text: "b"},
		{Start: 0.09, End: 0.12, Text: "c"},
	}
}

func TestScheduler_EmitsOnTimelineSet(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	s := New(clock, rec.onLine, rec.onWord)
	defer s.Close()

	s.SetTimeline(smallTimeline())

	if got := rec.lastLine(); got != -1 {
		t.Errorf("index after set at pos 0 = %d, want -1", got)
	}
	if got := s.LineIndex(); got != -1 {
		t.Errorf("LineIndex() = %d, want -1", got)
	}
}

func TestScheduler_SeekRelocatesImmediately(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	s := New(clock, rec.onLine, rec.onWord)
	defer s.Close()
	s.SetTimeline(smallTimeline())

	clock.set(70 * time.Millisecond)
	s.Sync()
	if got := s.LineIndex(); got != 1 {
		t.Errorf("LineIndex after seek to 70ms = %d, want 1", got)
	}

	// Seeking backwards relocates too; locate is pure and idempotent.
	clock.set(10 * time.Millisecond)
	s.Sync()
	if got := s.LineIndex(); got != -1 {
		t.Errorf("LineIndex after seek to 10ms = %d, want -1", got)
	}

	// Past the last line's end: one past last.
	clock.set(500 * time.Millisecond)
	s.Sync()
	if got := s.LineIndex(); got != 3 {
		t.Errorf("LineIndex past end = %d, want 3", got)
	}
}

func TestScheduler_AdvancesWhilePlaying(t *testing.T) {
	clock := &runningClock{start: time.Now()}
	rec := newRecorder()
	s := New(clock, rec.onLine, rec.onWord)
	defer s.Close()

	s.SetTimeline(smallTimeline())
	s.Play()

	deadline := time.After(2 * time.Second)
	for s.LineIndex() != 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler never reached the end, log %v", rec.lineLog())
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Emitted indices must never move backwards during forward playback.
	log := rec.lineLog()
	for i := 1; i < len(log); i++ {
		if log[i] < log[i-1] {
			t.Fatalf("emission log went backwards: %v", log)
		}
	}
}

func TestScheduler_PauseKeepsIndices(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	s := New(clock, rec.onLine, rec.onWord)
	defer s.Close()
	s.SetTimeline(smallTimeline())

	clock.set(40 * time.Millisecond)
	s.Play()
	if got := s.LineIndex(); got != 0 {
		t.Fatalf("LineIndex = %d, want 0", got)
	}

	s.Pause()
	if got := s.LineIndex(); got != 0 {
		t.Errorf("LineIndex after pause = %d, want 0 (kept)", got)
	}
}

func TestScheduler_WordChannels(t *testing.T) {
	tl := lyrics.Timeline{
		{
			Start: 0, End: 1, Text: "ab",
			Words: []lyrics.Word{
				{Start: 0, End: 0.5, Text: "a"},
				{Start: 0.5, End: 1, Text: "b"},
			},
			Translation: &lyrics.AuxText{
				Text: "xy",
				Words: []lyrics.Word{
					{Start: 0, End: 0.25, Text: "x"},
					{Start: 0.25, End: 1, Text: "y"},
				},
			},
		},
		{
			Start: 1, End: 2, Text: "c",
			Words: []lyrics.Word{{Start: 1, End: 2, Text: "c"}},
		},
	}

	clock := &manualClock{}
	rec := newRecorder()
	s := New(clock, rec.onLine, rec.onWord)
	defer s.Close()
	s.SetTimeline(tl)

	clock.set(600 * time.Millisecond)
	s.Sync()
	if got := s.WordIndex(WordsLyric); got != 1 {
		t.Errorf("lyric word index at 0.6s = %d, want 1", got)
	}
	if got := s.WordIndex(WordsTranslation); got != 1 {
		t.Errorf("translation word index at 0.6s = %d, want 1", got)
	}

	clock.set(1500 * time.Millisecond)
	s.Sync()
	if got := s.WordIndex(WordsLyric); got != 2 {
		t.Errorf("lyric word index at 1.5s = %d, want 2 (second line)", got)
	}
	// Translation has no words past the first line: one past last.
	if got := s.WordIndex(WordsTranslation); got != 2 {
		t.Errorf("translation word index at 1.5s = %d, want 2", got)
	}
}

func TestScheduler_TimelineSwapResetsIndices(t *testing.T) {
	clock := &manualClock{}
	rec := newRecorder()
	s := New(clock, rec.onLine, rec.onWord)
	defer s.Close()

	s.SetTimeline(smallTimeline())
	clock.set(100 * time.Millisecond)
	s.Sync()
	if got := s.LineIndex(); got != 2 {
		t.Fatalf("LineIndex = %d, want 2", got)
	}

	// Swapping in a new timeline relocates from scratch against it.
	s.SetTimeline(lyrics.Timeline{{Start: 5, End: 6, Text: "later"}})
	if got := s.LineIndex(); got != -1 {
		t.Errorf("LineIndex after swap = %d, want -1", got)
	}

	// An empty swap clears everything.
	s.SetTimeline(nil)
	if got := s.LineIndex(); got != -1 {
		t.Errorf("LineIndex after empty swap = %d, want -1", got)
	}
	if got := s.WordIndex(WordsLyric); got != -1 {
		t.Errorf("WordIndex after empty swap = %d, want -1", got)
	}
}

func TestScheduler_SetRateResyncs(t *testing.T) {
	clock := &manualClock{}
	s := New(clock, nil, nil)
	defer s.Close()
	s.SetTimeline(smallTimeline())

	clock.set(40 * time.Millisecond)
	s.Play()
	s.SetRate(2.0)
	if got := s.LineIndex(); got != 0 {
		t.Errorf("LineIndex after rate change = %d, want 0", got)
	}
	// Non-positive rates are clamped rather than dividing by zero.
	s.SetRate(0)
	if got := s.LineIndex(); got != 0 {
		t.Errorf("LineIndex after zero rate = %d, want 0", got)
	}
}
