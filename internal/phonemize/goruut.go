package phonemize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/neurlang/goruut/dicts"
	"github.com/neurlang/goruut/lib"
	"github.com/neurlang/goruut/models/requests"
	"github.com/neurlang/goruut/models/responses"

	"github.com/example/go-piper-phonemize/internal/voice"
)

var (
	// ErrWordLimit is returned when goruut refuses a clause for having too
	// many words.
	ErrWordLimit = errors.New("goruut: word limit exceeded")
	// ErrNoTranscription is returned when goruut yields no phonetic words
	// for text that contains letters or digits.
	ErrNoTranscription = errors.New("goruut: no transcription")
)

// GoruutEngine transcribes in-process with the goruut phonemizer.
type GoruutEngine struct {
	sentence func(requests.PhonemizeSentence) responses.PhonemizeSentence
	language string
}

func NewGoruutEngine() *GoruutEngine {
	return &GoruutEngine{sentence: lib.NewPhonemizer(nil).Sentence}
}

func (e *GoruutEngine) Name() string { return "goruut" }

// SetVoice fails for languages goruut ships no dictionary for.
func (e *GoruutEngine) SetVoice(v voice.Voice) error {
	if v.Language == "" {
		return fmt.Errorf("voice %q has no language for goruut", v.ID)
	}

	if err := checkGoruutLanguage(v.Language); err != nil {
		return fmt.Errorf("voice %q: %w", v.ID, err)
	}

	e.language = v.Language

	return nil
}

func (e *GoruutEngine) Transcribe(ctx context.Context, text string) ([]string, error) {
	if e.language == "" {
		return nil, errors.New("goruut: no voice selected")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp := e.sentence(requests.PhonemizeSentence{
		Language: e.language,
		Sentence: text,
	})
	if resp.ErrorWordLimitExceeded {
		return nil, fmt.Errorf("%w (%s, %d bytes)", ErrWordLimit, e.language, len(text))
	}

	words := make([]string, 0, len(resp.Words))
	for _, w := range resp.Words {
		if p := strings.TrimSpace(w.Phonetic); p != "" {
			words = append(words, p)
		}
	}

	if len(words) == 0 && speakable(text) {
		return nil, fmt.Errorf("%w for %s text %q", ErrNoTranscription, e.language, text)
	}

	return words, nil
}

func (e *GoruutEngine) Close() error { return nil }

func checkGoruutLanguage(language string) error {
	if _, err := dicts.GetDict(language, "language.json"); err != nil {
		return fmt.Errorf("goruut has no language %q: %w", language, err)
	}

	return nil
}

// speakable reports whether s holds anything an engine should pronounce.
func speakable(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
