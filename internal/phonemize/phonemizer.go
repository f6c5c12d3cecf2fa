// Package phonemize turns text into clauses of phoneme symbols using a
// linguistic engine behind a serializing gateway.
package phonemize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/example/go-piper-phonemize/internal/inventory"
	"github.com/example/go-piper-phonemize/internal/text"
	"github.com/example/go-piper-phonemize/internal/voice"
)

// ErrInvalidUTF8 marks input that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("input is not valid UTF-8")

// PhonemizationError wraps any failure while phonemizing. Clause is the
// zero-based clause index, or -1 when the failure is not tied to a clause.
type PhonemizationError struct {
	Voice  string
	Clause int
	Err    error
}

func (e *PhonemizationError) Error() string {
	if e.Clause >= 0 {
		return fmt.Sprintf("phonemize %s clause %d: %v", e.Voice, e.Clause, e.Err)
	}

	return fmt.Sprintf("phonemize %s: %v", e.Voice, e.Err)
}

func (e *PhonemizationError) Unwrap() error { return e.Err }

// Clause is one clause of input and its phoneme symbols.
type Clause struct {
	Text       string
	Terminator string
	Kind       text.Kind
	// Sentence is the zero-based index of the sentence holding the clause.
	Sentence int
	Phonemes []string
}

// Segmenter splits a phonetic word into phoneme symbols.
type Segmenter interface {
	Segment(phonetic string) []string
}

type options struct {
	segmenter Segmenter
}

type Option func(*options)

// WithSegmenter splits words with s (typically an inventory) instead of
// one symbol per codepoint.
func WithSegmenter(s Segmenter) Option {
	return func(o *options) { o.segmenter = s }
}

// Phonemizer resolves voices and transcribes text clause by clause.
type Phonemizer struct {
	catalog *voice.Catalog
	gateway *Gateway
	logger  *slog.Logger
}

func New(catalog *voice.Catalog, gateway *Gateway, logger *slog.Logger) *Phonemizer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Phonemizer{catalog: catalog, gateway: gateway, logger: logger}
}

// Phonemize segments input into clauses and transcribes each one. All
// clauses of a call are transcribed inside a single engine session. Empty
// input yields no clauses; a clause with no words yields no phonemes. On
// failure no partial result is returned.
func (p *Phonemizer) Phonemize(ctx context.Context, input, voiceID string, opts ...Option) ([]Clause, error) {
	v, err := p.catalog.Resolve(voiceID)
	if err != nil {
		return nil, err
	}

	if !utf8.ValidString(input) {
		return nil, &PhonemizationError{Voice: v.ID, Clause: -1, Err: ErrInvalidUTF8}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	segs := text.SplitClauses(text.Normalize(input))
	if len(segs) == 0 {
		return []Clause{}, nil
	}

	sess, err := p.gateway.Begin(ctx, v)
	if err != nil {
		return nil, &PhonemizationError{Voice: v.ID, Clause: -1, Err: err}
	}
	defer sess.Close()

	clauses := make([]Clause, len(segs))
	sentence := 0

	for i, seg := range segs {
		c := Clause{
			Text:       seg.Text,
			Terminator: seg.Terminator,
			Kind:       seg.Kind,
			Sentence:   sentence,
			Phonemes:   []string{},
		}

		if seg.Text != "" {
			words, err := sess.Transcribe(ctx, seg.Text)
			if err != nil {
				return nil, &PhonemizationError{Voice: v.ID, Clause: i, Err: err}
			}

			c.Phonemes = symbols(words, o.segmenter)
		}

		clauses[i] = c

		if seg.Kind == text.KindSentence {
			sentence++
		}
	}

	p.logger.Debug("phonemized",
		"voice", v.ID,
		"engine", p.gateway.Engine(),
		"clauses", len(clauses),
		"sentences", sentence,
	)

	return clauses, nil
}

// symbols decomposes each word to NFD, strips punctuation and invisible
// characters, and joins the words' symbols with the word boundary symbol.
func symbols(words []string, seg Segmenter) []string {
	out := []string{}

	for _, w := range words {
		w = strings.Map(func(r rune) rune {
			if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsControl(r) || unicode.Is(unicode.Cf, r) {
				return -1
			}

			return r
		}, norm.NFD.String(w))
		if w == "" {
			continue
		}

		if len(out) > 0 {
			out = append(out, inventory.WordBoundary)
		}

		if seg != nil {
			out = append(out, seg.Segment(w)...)
			continue
		}

		for _, r := range w {
			out = append(out, string(r))
		}
	}

	return out
}
