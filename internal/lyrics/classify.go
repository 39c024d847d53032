package lyrics

import "unicode"

// AuxKind labels an auxiliary lyric channel.
type AuxKind int

const (
	AuxUnknown AuxKind = iota
	AuxTranslation
	AuxRomanization
)

// String returns the kind name.
func (k AuxKind) String() string {
	switch k {
	case AuxTranslation:
		return "translation"
	case AuxRomanization:
		return "romanization"
	default:
		return "unknown"
	}
}

// Classifier decides whether an unlabeled auxiliary channel is a
// translation or a romanization. Some providers return a single untyped
// auxiliary blob, and the guess is a known source of misclassification
// for mixed-script lyrics, so the heuristic is pluggable rather than
// baked in.
type Classifier func(text string) AuxKind

// DetectAux is the default Classifier: text containing CJK code points is
// treated as a translation, anything else as a romanization.
func DetectAux(text string) AuxKind {
	for _, r := range text {
		if unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) ||
			unicode.Is(unicode.Hangul, r) {
			return AuxTranslation
		}
	}
	return AuxRomanization
}

// RouteAux places an unlabeled auxiliary channel into the right slot of a
// payload using the given classifier (DetectAux when nil). The channel's
// timed text is stripped of timestamps before classification so the
// heuristic only sees script content.
func RouteAux(p *Payload, ch RawChannel, classify Classifier) {
	if ch.IsEmpty() {
		return
	}
	if classify == nil {
		classify = DetectAux
	}
	var sample []byte
	for _, l := range ch.Lines {
		sample = append(sample, lineTimeRe.ReplaceAllString(l, "")...)
		sample = append(sample, '\n')
	}
	switch classify(string(sample)) {
	case AuxRomanization:
		p.Romanization = ch
	default:
		p.Translation = ch
	}
}
