// Package lyricview renders synchronized lyrics as a bubbletea model,
// driven by the playback service's line and word indices.
package lyricview

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/mlevasseur/chorus/internal/lyrics"
	"github.com/mlevasseur/chorus/internal/scheduler"
)

// TimelineMsg replaces the displayed timeline, on a track change or
// when the timeline is rebuilt under new lyric options.
type TimelineMsg struct {
	Timeline  lyrics.Timeline
	Title     string
	Artist    string
	WordLevel bool
}

// LineMsg moves the active line highlight.
type LineMsg struct {
	Index int
}

// WordMsg moves the active word highlight of a word-timed channel.
type WordMsg struct {
	Channel scheduler.WordChannel
	Index   int
}

// PositionMsg updates the footer clock.
type PositionMsg struct {
	Position time.Duration
	Duration time.Duration
}

// ErrorMsg surfaces a playback error in the footer. It stays visible
// until the next track change.
type ErrorMsg struct {
	Message string
}

var (
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	sungStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("219"))
	normalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	auxStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("109")).Italic(true)
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// Model displays a lyric timeline with the active line centered.
type Model struct {
	timeline lyrics.Timeline
	title    string
	artist   string

	line     int // -1 before the first line, len(timeline) past the last
	word     int // active word in the current line's primary channel
	wordBase int // global index of the current line's first word

	position time.Duration
	duration time.Duration
	errMsg   string

	width, height int
	scrollOffset  int
	autoScroll    bool

	wordLevel       bool
	showTranslation bool
	showRomaji      bool
}

// New creates a lyric view. Word-level highlighting applies only to
// timelines that carry word timing.
func New(wordLevel bool) Model {
	return Model{
		line:            -1,
		word:            -1,
		autoScroll:      true,
		wordLevel:       wordLevel,
		showTranslation: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.autoScroll {
			m.centerCurrentLine()
		}
	case TimelineMsg:
		m.timeline = msg.Timeline
		m.title = msg.Title
		m.artist = msg.Artist
		m.wordLevel = msg.WordLevel
		m.line = -1
		m.word = -1
		m.wordBase = 0
		m.scrollOffset = 0
		m.autoScroll = true
		m.errMsg = ""
	case ErrorMsg:
		m.errMsg = msg.Message
	case LineMsg:
		if msg.Index != m.line {
			m.line = msg.Index
			m.word = -1
			m.wordBase = m.wordBaseFor(msg.Index)
			if m.autoScroll {
				m.centerCurrentLine()
			}
		}
	case WordMsg:
		if msg.Channel == scheduler.WordsLyric {
			m.word = msg.Index
		}
	case PositionMsg:
		m.position = msg.Position
		m.duration = msg.Duration
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.autoScroll = false
		if m.scrollOffset < m.maxScroll() {
			m.scrollOffset++
		}
	case "k", "up":
		m.autoScroll = false
		if m.scrollOffset > 0 {
			m.scrollOffset--
		}
	case "g":
		m.autoScroll = false
		m.scrollOffset = 0
	case "G":
		m.autoScroll = false
		m.scrollOffset = m.maxScroll()
	case "c":
		m.autoScroll = true
		m.centerCurrentLine()
	case "t":
		m.showTranslation = !m.showTranslation
	case "r":
		m.showRomaji = !m.showRomaji
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if len(m.timeline) == 0 {
		return m.renderEmpty()
	}

	rows := m.renderRows()

	visible := m.visibleHeight()
	if visible <= 0 || visible > len(rows) {
		visible = len(rows)
	}
	start := min(m.scrollOffset, max(len(rows)-visible, 0))
	end := min(start+visible, len(rows))

	var sb strings.Builder
	sb.WriteString(strings.Join(rows[start:end], "\n"))
	sb.WriteString("\n\n")
	if m.errMsg != "" {
		sb.WriteString(errorStyle.Render(m.errMsg))
		sb.WriteString("\n")
	}
	sb.WriteString(footerStyle.Render(m.buildFooter()))
	return sb.String()
}

func (m Model) renderEmpty() string {
	track := m.title
	if m.artist != "" {
		track += " - " + m.artist
	}
	var sb strings.Builder
	sb.WriteString(normalStyle.Render("No lyrics"))
	if track != "" {
		sb.WriteString("\n\n")
		sb.WriteString(normalStyle.Render(track))
	}
	if m.errMsg != "" {
		sb.WriteString("\n\n")
		sb.WriteString(errorStyle.Render(m.errMsg))
	}
	return sb.String()
}

// renderRows builds one row per timeline line plus optional auxiliary
// rows beneath the active line. Rows are padded to a uniform width so
// the view does not jitter as the highlight moves.
func (m Model) renderRows() []string {
	maxw := 0
	for _, line := range m.timeline {
		if w := runewidth.StringWidth(line.Text); w > maxw {
			maxw = w
		}
	}

	rows := make([]string, 0, len(m.timeline)+2)
	for i, line := range m.timeline {
		if i == m.line {
			rows = append(rows, "▶ "+m.renderActiveLine(line))
			if m.showTranslation && line.Translation != nil {
				rows = append(rows, "  "+auxStyle.Render(line.Translation.Text))
			}
			if m.showRomaji && line.Romanization != nil {
				rows = append(rows, "  "+auxStyle.Render(line.Romanization.Text))
			}
			continue
		}
		rows = append(rows, "  "+normalStyle.Render(padToWidth(line.Text, maxw)))
	}
	return rows
}

// renderActiveLine highlights the sung portion of a word-timed line.
func (m Model) renderActiveLine(line lyrics.Line) string {
	if !m.wordLevel || len(line.Words) == 0 || m.word < m.wordBase {
		return currentStyle.Render(line.Text)
	}

	active := m.word - m.wordBase
	if active >= len(line.Words) {
		active = len(line.Words) - 1
	}

	var sung, rest strings.Builder
	for i, w := range line.Words {
		if i <= active {
			sung.WriteString(w.Text)
		} else {
			rest.WriteString(w.Text)
		}
	}
	return sungStyle.Render(sung.String()) + currentStyle.Render(rest.String())
}

// wordBaseFor returns the global word index of a line's first word.
// The scheduler emits indices into the flattened word list.
func (m Model) wordBaseFor(line int) int {
	base := 0
	for i := 0; i < line && i < len(m.timeline); i++ {
		base += len(m.timeline[i].Words)
	}
	return base
}

func (m *Model) centerCurrentLine() {
	if m.line < 0 {
		m.scrollOffset = 0
		return
	}
	m.scrollOffset = max(0, min(m.line-m.visibleHeight()/2, m.maxScroll()))
}

func (m Model) visibleHeight() int {
	return max(m.height-4, 5)
}

func (m Model) maxScroll() int {
	total := len(m.timeline)
	visible := m.visibleHeight()
	if total <= visible {
		return 0
	}
	return total - visible
}

func (m Model) buildFooter() string {
	var parts []string
	if m.duration > 0 {
		parts = append(parts, fmt.Sprintf("%s / %s",
			formatDuration(m.position), formatDuration(m.duration)))
	}
	if m.autoScroll {
		parts = append(parts, "synced")
	} else {
		parts = append(parts, "c sync")
	}
	if m.maxScroll() > 0 {
		parts = append(parts, "j/k scroll")
	}
	return strings.Join(parts, " · ")
}

// formatDuration formats a duration as mm:ss.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	mins := d / time.Minute
	secs := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// padToWidth right-pads a rendered row to a fixed display width.
func padToWidth(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
