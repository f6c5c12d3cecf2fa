package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind classifies how a segment was terminated.
type Kind int

const (
	// KindNone marks trailing text with no terminating punctuation.
	KindNone Kind = iota
	// KindClause marks a segment closed by clause punctuation (comma, colon, ...).
	KindClause
	// KindSentence marks a segment closed by sentence punctuation (period, question mark, ...).
	KindSentence
)

func (k Kind) String() string {
	switch k {
	case KindClause:
		return "clause"
	case KindSentence:
		return "sentence"
	default:
		return "none"
	}
}

// Segment is one clause of input text together with the punctuation run
// that closed it.
type Segment struct {
	Text       string
	Terminator string
	Kind       Kind
}

var sentenceMarks = map[rune]bool{
	'.': true, '!': true, '?': true,
	'؟': true, '۔': true, '。': true, '！': true, '？': true, '…': true,
	'‼': true, '⁇': true, '⁈': true, '⁉': true, '।': true, '॥': true,
}

var clauseMarks = map[rune]bool{
	',': true, ';': true, ':': true,
	'،': true, '؛': true, '、': true, '，': true, '；': true, '：': true,
}

// ASCII marks that also appear inside tokens ("3.14", "1,000", "e.g", "12:30").
var ambiguousMarks = map[rune]bool{'.': true, ',': true, ':': true, ';': true}

// IsTerminator reports whether r ends a clause or a sentence.
func IsTerminator(r rune) bool {
	return sentenceMarks[r] || clauseMarks[r]
}

// SplitClauses splits normalized text into clauses in source order.
//
// Sentence punctuation (. ! ? and script equivalents) and clause punctuation
// (, ; : and script equivalents) close the current clause. Marks separated
// only by whitespace form a single terminator run; the run is a sentence
// terminator if any of its marks is. An ASCII mark directly followed by a
// letter or digit is treated as part of the word. Text after the last mark
// becomes a final segment with an empty terminator. Empty or whitespace-only
// input yields no segments.
func SplitClauses(s string) []Segment {
	var segs []Segment

	start := 0
	i := 0

	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isBreak(s, i, r, size) {
			i += size
			continue
		}

		term, kind, next := scanRun(s, i)
		segs = append(segs, Segment{
			Text:       strings.TrimSpace(s[start:i]),
			Terminator: term,
			Kind:       kind,
		})

		start = next
		i = next
	}

	if rest := strings.TrimSpace(s[start:]); rest != "" {
		segs = append(segs, Segment{Text: rest, Kind: KindNone})
	}

	return segs
}

func isBreak(s string, i int, r rune, size int) bool {
	if !IsTerminator(r) {
		return false
	}

	if !ambiguousMarks[r] {
		return true
	}

	if i+size >= len(s) {
		return true
	}

	next, _ := utf8.DecodeRuneInString(s[i+size:])

	return !unicode.IsLetter(next) && !unicode.IsDigit(next)
}

// scanRun consumes the punctuation run starting at i and returns the run
// without whitespace, its kind and the offset just past it.
func scanRun(s string, i int) (string, Kind, int) {
	var b strings.Builder

	kind := KindClause
	end := i

	for j := i; j < len(s); {
		r, size := utf8.DecodeRuneInString(s[j:])

		switch {
		case IsTerminator(r):
			b.WriteRune(r)

			if sentenceMarks[r] {
				kind = KindSentence
			}

			j += size
			end = j
		case unicode.IsSpace(r):
			j += size
		default:
			return b.String(), kind, end
		}
	}

	return b.String(), kind, end
}
