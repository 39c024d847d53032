// Package lyrics provides parsing of timed lyric payloads into a unified
// timeline and lookup of the active line for a playback position.
package lyrics

import "sort"

// Word is a single timed word (or syllable) within a line.
// Times are in seconds from track start. End is always >= Start.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// AuxText is translation or romanization text attached to a line,
// optionally with its own word timing.
type AuxText struct {
	Text  string
	Words []Word
}

// Line is a single timed lyric line. End is backfilled from the next
// line's start (or the track duration for the last line) when the source
// format carries no explicit end.
type Line struct {
	Start        float64
	End          float64
	Text         string
	Words        []Word
	Translation  *AuxText
	Romanization *AuxText
}

// Timeline is an ordered-by-start sequence of lines. A Timeline is
// immutable once built: track changes and display-mode changes rebuild it
// wholesale rather than mutating in place.
type Timeline []Line

// Locate returns the index of the last line whose start is at or before
// pos. It returns -1 when pos precedes the first line and len(t) when pos
// is at or past the end of the last line. Both are valid states, not
// errors. Locate is pure and safe to call repeatedly after seeks.
func (t Timeline) Locate(pos float64) int {
	if len(t) == 0 {
		return -1
	}
	if pos < t[0].Start {
		return -1
	}
	if pos >= t[len(t)-1].End {
		return len(t)
	}
	// First line with start > pos; the active line is the one before it.
	i := sort.Search(len(t), func(i int) bool {
		return t[i].Start > pos
	})
	return i - 1
}

// LocateWord returns the index of the last word whose start is at or
// before pos, with the same -1 / len(words) boundary semantics as Locate.
func LocateWord(words []Word, pos float64) int {
	if len(words) == 0 {
		return -1
	}
	if pos < words[0].Start {
		return -1
	}
	if pos >= words[len(words)-1].End {
		return len(words)
	}
	i := sort.Search(len(words), func(i int) bool {
		return words[i].Start > pos
	})
	return i - 1
}

// NextStart returns the start time of the line following index i, or
// ok=false when i is already at or past the last line.
func (t Timeline) NextStart(i int) (float64, bool) {
	next := i + 1
	if next < 0 || next >= len(t) {
		return 0, false
	}
	return t[next].Start, true
}

// Duration returns the end time of the last line, or 0 for an empty
// timeline.
func (t Timeline) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].End
}

// insert places l into t keeping ascending start order. Lines sharing a
// start time keep insertion order, so the primary channel's line stays
// first in its start-time bucket when auxiliary channels are processed
// later.
func insert(t Timeline, l Line) Timeline {
	i := sort.Search(len(t), func(i int) bool {
		return t[i].Start > l.Start
	})
	t = append(t, Line{})
	copy(t[i+1:], t[i:])
	t[i] = l
	return t
}

// findStart returns the index of the first line starting exactly at start,
// or -1 if none does.
func (t Timeline) findStart(start float64) int {
	i := sort.Search(len(t), func(i int) bool {
		return t[i].Start >= start
	})
	if i < len(t) && t[i].Start == start {
		return i
	}
	return -1
}
