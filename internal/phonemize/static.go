package phonemize

import (
	"context"
	"strings"
	"unicode"

	"github.com/example/go-piper-phonemize/internal/voice"
)

// StaticEngine transcribes from fixed per-voice lexicons. Words missing
// from the lexicon are spelled out as their lower-cased letters. It is used
// for fixtures and tests where engine output must be exact.
type StaticEngine struct {
	// Lexicons maps voice id → lower-cased word → phonetic string.
	Lexicons map[string]map[string]string

	voice string
}

func (e *StaticEngine) Name() string { return "static" }

func (e *StaticEngine) SetVoice(v voice.Voice) error {
	e.voice = v.ID
	return nil
}

func (e *StaticEngine) Transcribe(ctx context.Context, text string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lex := e.Lexicons[e.voice]

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.Is(unicode.Mn, r) && r != '\''
	})

	words := make([]string, 0, len(fields))

	for _, f := range fields {
		w := strings.ToLower(f)
		if p, ok := lex[w]; ok {
			words = append(words, p)
			continue
		}

		words = append(words, w)
	}

	return words, nil
}

func (e *StaticEngine) Close() error { return nil }
