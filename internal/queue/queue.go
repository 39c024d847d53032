// Package queue implements the playback queue state machine: natural
// ordering, an on-demand shuffle projection, repeat semantics and a
// priority play-next queue. The queue holds track ids only; resolving an
// id to something playable is the session's job.
package queue

import "math/rand/v2"

// RepeatMode defines the repeat behavior.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

// String returns the repeat mode name.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "Off"
	case RepeatAll:
		return "All"
	case RepeatOne:
		return "One"
	default:
		return "Unknown"
	}
}

// StepResult reports the outcome of an Advance or Retreat.
type StepResult int

const (
	// StepOK means a track id was produced.
	StepOK StepResult = iota
	// StepStop means the queue ran out with repeat off; playback stops.
	StepStop
	// StepEmpty means the queue holds no tracks at all; callers with a
	// radio source may fall back to it.
	StepEmpty
)

// Queue is the ordered track-id sequence with its shuffle projection.
// It is a plain data structure: the owning service serializes access.
type Queue struct {
	order    []string
	shuffled []string
	current  int    // index into the active list, -1 if nothing selected
	override string // play-next id currently playing, "" if none
	repeat   RepeatMode
	shuffle  bool
	playNext []string
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{current: -1}
}

// active returns the list playback order follows right now.
func (q *Queue) active() []string {
	if q.shuffle {
		return q.shuffled
	}
	return q.order
}

// Current returns the id playing now: the play-next override when one is
// active, otherwise the id at the natural position.
func (q *Queue) Current() (string, bool) {
	if q.override != "" {
		return q.override, true
	}
	a := q.active()
	if q.current < 0 || q.current >= len(a) {
		return "", false
	}
	return a[q.current], true
}

// CurrentIndex returns the position in the active list (-1 if none).
// A playing play-next entry does not move it.
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Order returns a copy of the natural order.
func (q *Queue) Order() []string {
	out := make([]string, len(q.order))
	copy(out, q.order)
	return out
}

// Shuffled returns a copy of the shuffle projection.
func (q *Queue) Shuffled() []string {
	out := make([]string, len(q.shuffled))
	copy(out, q.shuffled)
	return out
}

// PlayNext returns a copy of the pending play-next entries.
func (q *Queue) PlayNext() []string {
	out := make([]string, len(q.playNext))
	copy(out, q.playNext)
	return out
}

// Len returns the number of tracks in the natural order.
func (q *Queue) Len() int {
	return len(q.order)
}

// IsEmpty reports whether the queue holds no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.order) == 0
}

// Repeat returns the repeat mode.
func (q *Queue) Repeat() RepeatMode {
	return q.repeat
}

// SetRepeat sets the repeat mode.
func (q *Queue) SetRepeat(m RepeatMode) {
	q.repeat = m
}

// Shuffle reports whether shuffle is on.
func (q *Queue) Shuffle() bool {
	return q.shuffle
}

// Replace installs a new natural order, clears the play-next queue, and
// selects the track at autoplayIndex. The shuffle projection is
// regenerated with the selected id first when shuffle is on.
func (q *Queue) Replace(ids []string, autoplayIndex int) (string, bool) {
	q.order = make([]string, len(ids))
	copy(q.order, ids)
	q.playNext = nil
	q.override = ""

	if len(q.order) == 0 {
		q.shuffled = nil
		q.current = -1
		return "", false
	}
	if autoplayIndex < 0 || autoplayIndex >= len(q.order) {
		autoplayIndex = 0
	}
	q.current = autoplayIndex
	if q.shuffle {
		q.regenShuffle(q.order[autoplayIndex], true)
	}
	return q.mustCurrent(), true
}

// Advance moves to the next track: the play-next queue first (consumed
// exactly once, natural position untouched), then repeat-one replay, then
// the natural successor, wrapping only under repeat-all.
func (q *Queue) Advance() (string, StepResult) {
	if len(q.playNext) > 0 {
		q.override = q.playNext[0]
		q.playNext = q.playNext[1:]
		return q.override, StepOK
	}

	if q.repeat == RepeatOne {
		if id, ok := q.Current(); ok {
			return id, StepOK
		}
	}

	q.override = ""
	a := q.active()
	if len(a) == 0 {
		return "", StepEmpty
	}

	next := q.current + 1
	if next >= len(a) {
		if q.repeat != RepeatAll {
			return "", StepStop
		}
		next = 0
	}
	q.current = next
	return a[next], StepOK
}

// Retreat moves to the previous track, wrapping to the last index only
// under repeat-all.
func (q *Queue) Retreat() (string, StepResult) {
	if q.repeat == RepeatOne {
		if id, ok := q.Current(); ok {
			return id, StepOK
		}
	}

	q.override = ""
	a := q.active()
	if len(a) == 0 {
		return "", StepEmpty
	}

	prev := q.current - 1
	if prev < 0 {
		if q.repeat != RepeatAll {
			return "", StepStop
		}
		prev = len(a) - 1
	}
	q.current = prev
	return a[prev], StepOK
}

// JumpTo selects the track at index in the natural order.
func (q *Queue) JumpTo(index int) (string, bool) {
	if index < 0 || index >= len(q.order) {
		return "", false
	}
	q.override = ""
	id := q.order[index]
	if q.shuffle {
		q.current = indexOf(q.shuffled, id)
	} else {
		q.current = index
	}
	return id, true
}

// AddToPlayNext queues ids for priority playback. With atHead they go in
// front of entries already waiting.
func (q *Queue) AddToPlayNext(ids []string, atHead bool) {
	if len(ids) == 0 {
		return
	}
	if atHead {
		q.playNext = append(append([]string{}, ids...), q.playNext...)
	} else {
		q.playNext = append(q.playNext, ids...)
	}
}

// SetShuffle toggles the shuffle projection. Turning it on generates a
// permutation with the currently playing id always first; turning it off
// recomputes the natural index by value lookup, not by position.
func (q *Queue) SetShuffle(on bool) {
	if on == q.shuffle {
		return
	}
	if on {
		cur, ok := q.currentNatural()
		q.shuffle = true
		q.regenShuffle(cur, ok)
		return
	}
	cur, ok := q.currentNatural()
	q.shuffle = false
	q.shuffled = nil
	if ok {
		q.current = indexOf(q.order, cur)
	} else {
		q.current = -1
	}
}

// Substitute replaces every occurrence of oldID with newID, in place, in
// both the natural order and the shuffle projection. Queue length and
// relative order never change. Used when an unmatched local track is
// matched to a catalog id.
func (q *Queue) Substitute(oldID, newID string) {
	for i, id := range q.order {
		if id == oldID {
			q.order[i] = newID
		}
	}
	for i, id := range q.shuffled {
		if id == oldID {
			q.shuffled[i] = newID
		}
	}
	if q.override == oldID {
		q.override = newID
	}
}

// regenShuffle rebuilds the projection: the currently playing id first,
// then a permutation of the remaining ids.
func (q *Queue) regenShuffle(cur string, ok bool) {
	rest := make([]string, 0, len(q.order))
	used := false
	for _, id := range q.order {
		if ok && !used && id == cur {
			used = true
			continue
		}
		rest = append(rest, id)
	}
	rand.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	if ok {
		q.shuffled = append([]string{cur}, rest...)
		q.current = 0
	} else {
		q.shuffled = rest
		q.current = -1
	}
}

// currentNatural returns the id at the natural position, ignoring any
// play-next override.
func (q *Queue) currentNatural() (string, bool) {
	a := q.active()
	if q.current < 0 || q.current >= len(a) {
		return "", false
	}
	return a[q.current], true
}

func (q *Queue) mustCurrent() string {
	id, _ := q.Current()
	return id
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
