package lyricview

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/playback"
	"github.com/mlevasseur/chorus/internal/scheduler"
)

func testTimeline() lyrics.Timeline {
	return lyrics.Timeline{
		{Start: 0, End: 2, Text: "first line"},
		{Start: 2, End: 4, Text: "second line", Translation: &lyrics.AuxText{Text: "deuxième ligne"}},
		{Start: 4, End: 6, Text: "third line"},
	}
}

func update(m Model, msg tea.Msg) Model {
	m, _ = m.Update(msg)
	return m
}

func TestViewMarksActiveLine(t *testing.T) {
	m := New(false)
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	m = update(m, TimelineMsg{Timeline: testTimeline()})
	m = update(m, LineMsg{Index: 1})

	view := m.View()
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, "second line") && !strings.Contains(line, "▶") {
			t.Errorf("active line not marked: %q", line)
		}
		if strings.Contains(line, "first line") && strings.Contains(line, "▶") {
			t.Errorf("inactive line marked: %q", line)
		}
	}
}

func TestTranslationShownUnderActiveLine(t *testing.T) {
	m := New(false)
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	m = update(m, TimelineMsg{Timeline: testTimeline()})
	m = update(m, LineMsg{Index: 1})

	if !strings.Contains(m.View(), "deuxième ligne") {
		t.Error("translation of the active line not rendered")
	}

	m = update(m, LineMsg{Index: 0})
	if strings.Contains(m.View(), "deuxième ligne") {
		t.Error("translation rendered for inactive line")
	}
}

func TestTranslationToggle(t *testing.T) {
	m := New(false)
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	m = update(m, TimelineMsg{Timeline: testTimeline()})
	m = update(m, LineMsg{Index: 1})

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'t'}})
	if strings.Contains(m.View(), "deuxième ligne") {
		t.Error("translation still rendered after toggle off")
	}
}

func TestWordHighlightSplitsLine(t *testing.T) {
	tl := lyrics.Timeline{
		{
			Start: 0, End: 2, Text: "hello world",
			Words: []lyrics.Word{
				{Start: 0, End: 1, Text: "hello "},
				{Start: 1, End: 2, Text: "world"},
			},
		},
	}
	m := New(true)
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	m = update(m, TimelineMsg{Timeline: tl, WordLevel: true})
	m = update(m, LineMsg{Index: 0})
	m = update(m, WordMsg{Channel: scheduler.WordsLyric, Index: 0})

	view := m.View()
	if !strings.Contains(view, "hello ") || !strings.Contains(view, "world") {
		t.Errorf("word-timed line lost text: %q", view)
	}
}

func TestWordBaseUsesFlattenedIndices(t *testing.T) {
	tl := lyrics.Timeline{
		{Start: 0, End: 1, Text: "ab", Words: []lyrics.Word{{Text: "a"}, {Text: "b"}}},
		{Start: 1, End: 2, Text: "cd", Words: []lyrics.Word{{Text: "c"}, {Text: "d"}}},
	}
	m := New(true)
	m = update(m, TimelineMsg{Timeline: tl, WordLevel: true})

	if got := m.wordBaseFor(1); got != 2 {
		t.Errorf("wordBaseFor(1) = %d, want 2", got)
	}
	if got := m.wordBaseFor(0); got != 0 {
		t.Errorf("wordBaseFor(0) = %d, want 0", got)
	}
}

func TestTimelineResetsState(t *testing.T) {
	m := New(false)
	m = update(m, TimelineMsg{Timeline: testTimeline()})
	m = update(m, LineMsg{Index: 2})
	m = update(m, TimelineMsg{Timeline: testTimeline()})

	if m.line != -1 {
		t.Errorf("line = %d after timeline swap, want -1", m.line)
	}
	if m.scrollOffset != 0 {
		t.Errorf("scrollOffset = %d after timeline swap, want 0", m.scrollOffset)
	}
}

func TestManualScrollDisablesAutoScroll(t *testing.T) {
	lines := make(lyrics.Timeline, 30)
	for i := range lines {
		lines[i] = lyrics.Line{Start: float64(i), End: float64(i + 1), Text: "line"}
	}
	m := New(false)
	m = update(m, tea.WindowSizeMsg{Width: 40, Height: 10})
	m = update(m, TimelineMsg{Timeline: lines})

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	if m.autoScroll {
		t.Error("autoScroll still set after manual scroll")
	}
	if m.scrollOffset != 1 {
		t.Errorf("scrollOffset = %d, want 1", m.scrollOffset)
	}

	m = update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'c'}})
	if !m.autoScroll {
		t.Error("autoScroll not restored by c")
	}
}

func TestErrorShownUntilNextTimeline(t *testing.T) {
	m := New(false)
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 20})
	m = update(m, TimelineMsg{Timeline: testTimeline()})
	m = update(m, ErrorMsg{Message: "Failed to fetch radio track: timeout"})

	if !strings.Contains(m.View(), "Failed to fetch radio track") {
		t.Error("error message not rendered")
	}

	m = update(m, TimelineMsg{Timeline: testTimeline()})
	if strings.Contains(m.View(), "Failed to fetch radio track") {
		t.Error("error message survived a timeline swap")
	}
}

func TestErrorShownWithoutTimeline(t *testing.T) {
	m := New(false)
	m = update(m, ErrorMsg{Message: "Failed to resolve track 'region_locked': unplayable"})

	if !strings.Contains(m.View(), "Failed to resolve track") {
		t.Error("error message not rendered on empty view")
	}
}

func TestFormatEventMapsOperations(t *testing.T) {
	cases := []struct {
		event playback.ErrorEvent
		want  string
	}{
		{
			playback.ErrorEvent{Operation: "radio", Err: errors.New("timed out")},
			"Failed to fetch radio track: timed out",
		},
		{
			playback.ErrorEvent{Operation: "resolve", TrackID: "t1", Reason: "region_locked", Err: errors.New("unplayable")},
			"Failed to resolve track 'region_locked': unplayable",
		},
		{
			playback.ErrorEvent{Operation: "play", TrackID: "t2", Err: errors.New("decode failed")},
			"Failed to start playback 't2': decode failed",
		},
	}
	for _, c := range cases {
		if got := formatEvent(c.event); got != c.want {
			t.Errorf("formatEvent(%s) = %q, want %q", c.event.Operation, got, c.want)
		}
	}
}

func TestEmptyTimelineShowsTrackInfo(t *testing.T) {
	m := New(false)
	m = update(m, TimelineMsg{Title: "Song", Artist: "Artist"})

	view := m.View()
	if !strings.Contains(view, "No lyrics") || !strings.Contains(view, "Song - Artist") {
		t.Errorf("empty view = %q", view)
	}
}
