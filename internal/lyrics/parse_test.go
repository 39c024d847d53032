package lyrics

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestParse_LineTimed(t *testing.T) {
	p := Payload{Lyric: ChannelFromString("[00:01.000]A\n[00:05.000]B")}
	tl := Parse(p, Options{Duration: 180})

	if len(tl) != 2 {
		t.Fatalf("len(tl) = %d, want 2", len(tl))
	}
	if tl[0].Start != 1.0 || tl[0].End != 5.0 || tl[0].Text != "A" {
		t.Errorf("line 0 = %+v, want start=1 end=5 text=A", tl[0])
	}
	if tl[1].Start != 5.0 || tl[1].End != 180 || tl[1].Text != "B" {
		t.Errorf("line 1 = %+v, want start=5 end=180 text=B", tl[1])
	}
}

func TestParse_MultiTimestampRepeats(t *testing.T) {
	p := Payload{Lyric: ChannelFromString("[00:02.00][00:08.00]chorus\n[00:04.00]verse")}
	tl := Parse(p, Options{Duration: 60})

	if len(tl) != 3 {
		t.Fatalf("len(tl) = %d, want 3", len(tl))
	}
	wantText := []string{"chorus", "verse", "chorus"}
	wantStart := []float64{2, 4, 8}
	for i := range tl {
		if tl[i].Text != wantText[i] || tl[i].Start != wantStart[i] {
			t.Errorf("line %d = %q@%v, want %q@%v",
				i, tl[i].Text, tl[i].Start, wantText[i], wantStart[i])
		}
	}
	// Ends backfilled from successors
	if tl[0].End != 4 || tl[1].End != 8 || tl[2].End != 60 {
		t.Errorf("ends = %v %v %v, want 4 8 60", tl[0].End, tl[1].End, tl[2].End)
	}
}

func TestParse_WordTimed(t *testing.T) {
	p := Payload{WordLyric: ChannelFromString("[100,2000,0]Hel(100,500,0)lo(600,1500,0) world")}
	tl := Parse(p, Options{Duration: 60, WordLevel: true})

	if len(tl) != 1 {
		t.Fatalf("len(tl) = %d, want 1", len(tl))
	}
	l := tl[0]
	if l.Start != 0.1 || l.End != 2.1 {
		t.Errorf("line span = [%v,%v], want [0.1,2.1]", l.Start, l.End)
	}
	if len(l.Words) == 0 {
		t.Fatal("no words parsed")
	}
	// Word durations must sum to the declared line duration, in order.
	var sum float64
	prev := math.Inf(-1)
	for _, w := range l.Words {
		if w.End < w.Start {
			t.Errorf("word %q end %v < start %v", w.Text, w.End, w.Start)
		}
		if w.Start < prev {
			t.Errorf("word %q out of order", w.Text)
		}
		prev = w.Start
		sum += w.End - w.Start
	}
	if math.Abs(sum-2.0) > 1e-9 {
		t.Errorf("word duration sum = %v, want 2.0", sum)
	}
	if l.Text != "Hello world" {
		t.Errorf("line text = %q, want %q", l.Text, "Hello world")
	}
}

func TestParse_SubWordTimed(t *testing.T) {
	p := Payload{Lyric: ChannelFromString("[00:01.00]He[00:01.50]llo [00:02.00]world")}
	tl := Parse(p, Options{Duration: 10})

	if len(tl) != 1 {
		t.Fatalf("len(tl) = %d, want 1", len(tl))
	}
	l := tl[0]
	if len(l.Words) != 3 {
		t.Fatalf("len(words) = %d, want 3", len(l.Words))
	}
	if l.Words[0].Start != 1.0 || l.Words[0].End != 1.5 {
		t.Errorf("word 0 = %+v, want [1.0,1.5]", l.Words[0])
	}
	if l.Words[1].Start != 1.5 || l.Words[1].End != 2.0 {
		t.Errorf("word 1 = %+v, want [1.5,2.0]", l.Words[1])
	}
	// Last word end patched to the line end during backfill.
	if l.Words[2].Start != 2.0 || l.Words[2].End != l.End {
		t.Errorf("word 2 = %+v, want start=2.0 end=%v", l.Words[2], l.End)
	}
	if l.Text != "Hello world" {
		t.Errorf("text = %q, want %q", l.Text, "Hello world")
	}
}

func TestParse_TranslationAlignment(t *testing.T) {
	p := Payload{
		Lyric:       ChannelFromString("[00:01.00]first\n[00:03.00]second"),
		Translation: ChannelFromString("[00:01.00]premier\n[00:07.00]orphan"),
	}
	tl := Parse(p, Options{Duration: 10})

	if len(tl) != 2 {
		t.Fatalf("len(tl) = %d, want 2", len(tl))
	}
	if tl[0].Translation == nil || tl[0].Translation.Text != "premier" {
		t.Errorf("line 0 translation = %+v, want premier", tl[0].Translation)
	}
	// Aux line with no matching primary start is dropped silently.
	if tl[1].Translation != nil {
		t.Errorf("line 1 translation = %+v, want nil", tl[1].Translation)
	}
}

func TestParse_TranslationMultiTimestamp(t *testing.T) {
	// One translation aligned to several original lines.
	p := Payload{
		Lyric:        ChannelFromString("[00:01.00]a\n[00:02.00]b"),
		Romanization: ChannelFromString("[00:01.00][00:02.00]ro"),
	}
	tl := Parse(p, Options{Duration: 10})

	for i := range tl {
		if tl[i].Romanization == nil || tl[i].Romanization.Text != "ro" {
			t.Errorf("line %d romanization = %+v, want ro", i, tl[i].Romanization)
		}
	}
}

func TestParse_MalformedLinesSkipped(t *testing.T) {
	p := Payload{Lyric: ChannelFromString("garbage\n[xx:yy]nope\n[00:01.00]good\n\n[:]")}
	tl := Parse(p, Options{Duration: 10})

	if len(tl) != 1 || tl[0].Text != "good" {
		t.Errorf("tl = %+v, want single line %q", tl, "good")
	}
}

func TestParse_EmptyPayload(t *testing.T) {
	tl := Parse(Payload{}, Options{Duration: 10})
	if len(tl) != 0 {
		t.Errorf("len(tl) = %d, want 0", len(tl))
	}
	tl = Parse(Payload{Lyric: ChannelFromString("no timestamps at all")}, Options{})
	if len(tl) != 0 {
		t.Errorf("unparseable payload: len(tl) = %d, want 0", len(tl))
	}
}

func TestParse_EmptyLinesDropped(t *testing.T) {
	p := Payload{Lyric: ChannelFromString("[00:01.00]   \n[00:02.00]kept")}
	tl := Parse(p, Options{Duration: 10})
	if len(tl) != 1 || tl[0].Text != "kept" {
		t.Errorf("tl = %+v, want single %q line", tl, "kept")
	}
}

func TestParse_InstrumentalCollapse(t *testing.T) {
	p := Payload{Lyric: ChannelFromString("[00:00.00]纯音乐，请欣赏\n[00:30.00]纯音乐，请欣赏")}
	tl := Parse(p, Options{Duration: 120})

	if len(tl) != 1 {
		t.Fatalf("len(tl) = %d, want 1", len(tl))
	}
	if tl[0].Start != 0 || tl[0].End != 120 {
		t.Errorf("credits line span = [%v,%v], want [0,120]", tl[0].Start, tl[0].End)
	}
}

func TestParse_Idempotent(t *testing.T) {
	p := Payload{
		Lyric:       ChannelFromString("[00:01.00]a\n[00:02.00]b"),
		Translation: ChannelFromString("[00:01.00]x"),
	}
	a := Parse(p, Options{Duration: 10})
	b := Parse(p, Options{Duration: 10})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("parse not idempotent:\n%+v\n%+v", a, b)
	}
}

func TestRawChannel_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"string", `"[00:01.00]a\n[00:02.00]b"`, []string{"[00:01.00]a", "[00:02.00]b"}},
		{"array", `["[00:01.00]a","[00:02.00]b"]`, []string{"[00:01.00]a", "[00:02.00]b"}},
		{"object", `{"lines":"[00:01.00]a"}`, []string{"[00:01.00]a"}},
		{"object array", `{"lines":["[00:01.00]a"]}`, []string{"[00:01.00]a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RawChannel
			if err := json.Unmarshal([]byte(tt.in), &c); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual(c.Lines, tt.want) {
				t.Errorf("Lines = %v, want %v", c.Lines, tt.want)
			}
		})
	}
}

func TestDetectAux(t *testing.T) {
	tests := []struct {
		text string
		want AuxKind
	}{
		{"你好世界", AuxTranslation},
		{"こんにちは", AuxTranslation},
		{"안녕", AuxTranslation},
		{"konnichiwa sekai", AuxRomanization},
		{"ni hao", AuxRomanization},
	}
	for _, tt := range tests {
		if got := DetectAux(tt.text); got != tt.want {
			t.Errorf("DetectAux(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestRouteAux(t *testing.T) {
	var p Payload
	RouteAux(&p, ChannelFromString("[00:01.00]你好"), nil)
	if p.Translation.IsEmpty() || !p.Romanization.IsEmpty() {
		t.Error("CJK aux should route to translation")
	}

	var q Payload
	RouteAux(&q, ChannelFromString("[00:01.00]ni hao"), nil)
	if q.Romanization.IsEmpty() || !q.Translation.IsEmpty() {
		t.Error("latin aux should route to romanization")
	}

	// Pluggable classifier wins over the default heuristic.
	var r Payload
	RouteAux(&r, ChannelFromString("[00:01.00]ni hao"), func(string) AuxKind {
		return AuxTranslation
	})
	if r.Translation.IsEmpty() {
		t.Error("custom classifier should route to translation")
	}
}
