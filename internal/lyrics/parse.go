package lyrics

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// RawChannel is one lyric channel as delivered on the wire: either a
// single newline-delimited string, an array of lines, or an object
// wrapping either form under "lines". The variants are resolved once at
// decode time; the rest of the parser only ever sees physical lines.
type RawChannel struct {
	Lines []string
}

// UnmarshalJSON accepts "a\nb", ["a","b"] and {"lines": ...}.
func (c *RawChannel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Lines = splitLines(s)
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		c.Lines = arr
		return nil
	}
	var obj struct {
		Lines json.RawMessage `json:"lines"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Lines == nil {
		return nil
	}
	var inner RawChannel
	if err := inner.UnmarshalJSON(obj.Lines); err != nil {
		return err
	}
	c.Lines = inner.Lines
	return nil
}

// MarshalJSON writes the array form, the canonical one for re-caching.
func (c RawChannel) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Lines)
}

// ChannelFromString builds a channel from a newline-delimited blob.
func ChannelFromString(s string) RawChannel {
	return RawChannel{Lines: splitLines(s)}
}

// ChannelFromLines builds a channel from pre-split lines.
func ChannelFromLines(lines []string) RawChannel {
	return RawChannel{Lines: lines}
}

// IsEmpty reports whether the channel carries no lines.
func (c RawChannel) IsEmpty() bool {
	return len(c.Lines) == 0
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

// Payload is a full lyric bundle for one track: a line-timed and a
// word-timed primary channel plus translation and romanization
// auxiliaries, each in line-timed or word-timed form.
type Payload struct {
	Lyric            RawChannel `json:"lyric"`
	WordLyric        RawChannel `json:"wordLyric"`
	Translation      RawChannel `json:"translation"`
	WordTranslation  RawChannel `json:"wordTranslation"`
	Romanization     RawChannel `json:"romanization"`
	WordRomanization RawChannel `json:"wordRomanization"`
}

// IsEmpty reports whether no channel carries any lines.
func (p Payload) IsEmpty() bool {
	return p.Lyric.IsEmpty() && p.WordLyric.IsEmpty() &&
		p.Translation.IsEmpty() && p.WordTranslation.IsEmpty() &&
		p.Romanization.IsEmpty() && p.WordRomanization.IsEmpty()
}

// Options controls timeline construction.
type Options struct {
	// Duration is the track duration in seconds, used as the end of the
	// last line when the format carries no explicit line ends.
	Duration float64
	// WordLevel selects the word-timed primary channel when available.
	// Toggling it rebuilds the timeline; a Timeline is never patched.
	WordLevel bool
	// WordLevelTranslation attaches word timing from the word-timed
	// translation channel when available.
	WordLevelTranslation bool
}

// Regular expressions for the wire grammars.
var (
	// [mm:ss] / [mm:ss.ff] / [mm:ss.fff]
	lineTimeRe = regexp.MustCompile(`\[(\d+):(\d+(?:\.\d+)?)\]`)

	// [startMs,durationMs] / [startMs,durationMs,flags] word-timed line header
	wordHeaderRe = regexp.MustCompile(`^\[(\d+),(\d+)(?:,(\d+))?\]`)

	// (startMs,durationMs,flags) inline word group
	wordGroupRe = regexp.MustCompile(`\((\d+),(\d+)(?:,(\d+))?\)`)
)

// Parse normalizes a payload into a single time-ordered Timeline.
// Malformed lines are skipped; a payload that yields no lines returns an
// empty Timeline, which callers must treat as "no lyrics", not an error.
// Parse is pure: the same payload always yields the same Timeline.
func Parse(p Payload, opts Options) Timeline {
	primary := p.Lyric
	wordTimed := false
	if opts.WordLevel && !p.WordLyric.IsEmpty() {
		primary = p.WordLyric
		wordTimed = true
	} else if primary.IsEmpty() && !p.WordLyric.IsEmpty() {
		primary = p.WordLyric
		wordTimed = true
	}

	var tl Timeline
	for _, raw := range primary.Lines {
		for _, l := range parsePhysicalLine(raw, wordTimed) {
			tl = insert(tl, l)
		}
	}

	attachAux(tl, p.Translation, auxTranslation, false)
	if opts.WordLevelTranslation {
		attachAux(tl, p.WordTranslation, auxTranslation, true)
	}
	attachAux(tl, p.Romanization, auxRomanization, false)
	attachAux(tl, p.WordRomanization, auxRomanization, true)

	tl = backfillEnds(tl, opts.Duration)
	tl = postFilter(tl, opts.Duration)
	return tl
}

// parsePhysicalLine parses one physical line into zero or more timed
// lines. A line with several leading timestamps repeats the same text at
// each start time. Lines with no recognizable timestamp are skipped.
func parsePhysicalLine(raw string, wordTimed bool) []Line {
	raw = strings.TrimRight(raw, "\r")
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	if wordTimed {
		if l, ok := parseWordTimedLine(raw); ok {
			return []Line{l}
		}
		// Word-timed channels may still carry plain [mm:ss] credit lines.
	}

	starts, rest := leadingTimestamps(raw)
	if len(starts) == 0 {
		return nil
	}

	if words, text, ok := parseSubWordText(starts[len(starts)-1], rest); ok {
		return []Line{{Start: starts[len(starts)-1], Text: text, Words: words}}
	}

	text := strings.TrimSpace(rest)
	lines := make([]Line, 0, len(starts))
	for _, start := range starts {
		lines = append(lines, Line{Start: start, Text: text})
	}
	return lines
}

// leadingTimestamps extracts the run of [mm:ss.fff] groups at the head of
// the line and returns their values plus the remaining text.
func leadingTimestamps(raw string) ([]float64, string) {
	var starts []float64
	rest := raw
	for {
		loc := lineTimeRe.FindStringSubmatchIndex(rest)
		if loc == nil || loc[0] != 0 {
			break
		}
		ts, ok := parseClock(rest[loc[2]:loc[3]], rest[loc[4]:loc[5]])
		if ok {
			starts = append(starts, ts)
		}
		rest = rest[loc[1]:]
	}
	return starts, rest
}

// parseClock converts "mm" + "ss(.fff)" into seconds.
func parseClock(mm, ss string) (float64, bool) {
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(ss, 64)
	if err != nil {
		return 0, false
	}
	return float64(minutes)*60 + seconds, true
}

// parseWordTimedLine parses the word-timed grammar:
//
//	[startMs,durationMs,flags]text(startMs,durationMs,flags)text...
//
// Each (start,duration,flags) group times the text segment preceding it;
// trailing untimed text joins the last word. Returns ok=false when the
// line does not carry the word-timed header.
func parseWordTimedLine(raw string) (Line, bool) {
	h := wordHeaderRe.FindStringSubmatch(raw)
	if h == nil {
		return Line{}, false
	}
	startMs, err1 := strconv.ParseInt(h[1], 10, 64)
	durMs, err2 := strconv.ParseInt(h[2], 10, 64)
	if err1 != nil || err2 != nil {
		return Line{}, false
	}

	line := Line{
		Start: float64(startMs) / 1000,
		End:   float64(startMs+durMs) / 1000,
	}

	body := raw[len(h[0]):]
	groups := wordGroupRe.FindAllStringSubmatchIndex(body, -1)
	if len(groups) == 0 {
		line.Text = strings.TrimSpace(body)
		return line, true
	}

	prev := 0
	for _, g := range groups {
		text := body[prev:g[0]]
		prev = g[1]
		ws, e1 := strconv.ParseInt(body[g[2]:g[3]], 10, 64)
		wd, e2 := strconv.ParseInt(body[g[4]:g[5]], 10, 64)
		if e1 != nil || e2 != nil || text == "" {
			continue
		}
		line.Words = append(line.Words, Word{
			Start: float64(ws) / 1000,
			End:   float64(ws+wd) / 1000,
			Text:  text,
		})
	}
	if prev < len(body) && len(line.Words) > 0 {
		line.Words[len(line.Words)-1].Text += body[prev:]
	}

	var b strings.Builder
	for _, w := range line.Words {
		b.WriteString(w.Text)
	}
	line.Text = strings.TrimSpace(b.String())
	return line, true
}

// parseSubWordText parses the secondary word-level form where repeated
// bracket timestamps inside the text each introduce the next word:
//
//	[t0]first[t1]second[t2]third
//
// The word introduced last has no successor timestamp; its end is patched
// during end backfill. Returns ok=false when the text holds no inner
// timestamps.
func parseSubWordText(lineStart float64, rest string) ([]Word, string, bool) {
	locs := lineTimeRe.FindAllStringSubmatchIndex(rest, -1)
	if len(locs) == 0 {
		return nil, "", false
	}

	starts := []float64{lineStart}
	segments := []string{rest[:locs[0][0]]}
	for i, loc := range locs {
		ts, ok := parseClock(rest[loc[2]:loc[3]], rest[loc[4]:loc[5]])
		if !ok {
			continue
		}
		end := len(rest)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		starts = append(starts, ts)
		segments = append(segments, rest[loc[1]:end])
	}

	var words []Word
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(seg)
		if seg == "" {
			continue
		}
		w := Word{Start: starts[i], Text: seg}
		if i+1 < len(starts) {
			w.End = starts[i+1]
		}
		words = append(words, w)
	}
	if len(words) == 0 {
		return nil, "", false
	}
	return words, strings.TrimSpace(b.String()), true
}

type auxKindInternal int

const (
	auxTranslation auxKindInternal = iota
	auxRomanization
)

// attachAux parses an auxiliary channel and attaches each of its lines to
// the primary line sharing the exact same start time. Auxiliary lines
// with no matching primary start are dropped silently.
func attachAux(tl Timeline, ch RawChannel, kind auxKindInternal, wordTimed bool) {
	if ch.IsEmpty() || len(tl) == 0 {
		return
	}
	for _, raw := range ch.Lines {
		for _, al := range parsePhysicalLine(raw, wordTimed) {
			if strings.TrimSpace(al.Text) == "" {
				continue
			}
			i := tl.findStart(al.Start)
			if i < 0 {
				continue
			}
			aux := &AuxText{Text: al.Text, Words: al.Words}
			switch kind {
			case auxTranslation:
				tl[i].Translation = aux
			case auxRomanization:
				tl[i].Romanization = aux
			}
		}
	}
}

// backfillEnds fills every missing line end with the start of its
// successor, or the track duration for the last line. Word lists whose
// final word has no end get the owning line's end.
func backfillEnds(tl Timeline, duration float64) Timeline {
	for i := range tl {
		if tl[i].End <= tl[i].Start {
			if next, ok := tl.NextStart(i); ok {
				tl[i].End = next
			} else if duration > tl[i].Start {
				tl[i].End = duration
			} else {
				tl[i].End = tl[i].Start
			}
		}
		if n := len(tl[i].Words); n > 0 && tl[i].Words[n-1].End <= tl[i].Words[n-1].Start {
			tl[i].Words[n-1].End = tl[i].End
		}
	}
	return tl
}

// instrumentalSentinels are phrases providers substitute for lyrics on
// instrumental tracks.
var instrumentalSentinels = []string{
	"纯音乐，请欣赏",
	"纯音乐",
	"此歌曲为没有填词的纯音乐，请您欣赏",
	"instrumental",
	"pure music",
}

func isInstrumentalSentinel(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.Trim(t, "[]()（）")
	for _, s := range instrumentalSentinels {
		if t == s {
			return true
		}
	}
	return false
}

// postFilter drops lines that are empty after trimming and collapses an
// all-sentinel timeline into a single credits line spanning the track.
func postFilter(tl Timeline, duration float64) Timeline {
	out := tl[:0]
	for _, l := range tl {
		l.Text = strings.TrimSpace(l.Text)
		if l.Text == "" {
			continue
		}
		out = append(out, l)
	}
	if len(out) == 0 {
		return Timeline{}
	}

	allSentinel := true
	for _, l := range out {
		if !isInstrumentalSentinel(l.Text) {
			allSentinel = false
			break
		}
	}
	if allSentinel {
		end := duration
		if end <= 0 {
			end = out[len(out)-1].End
		}
		return Timeline{{Start: 0, End: end, Text: out[0].Text}}
	}
	return out
}
