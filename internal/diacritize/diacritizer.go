// Package diacritize restores Arabic short-vowel marks (tashkeel) with a
// character-level sequence model.
package diacritize

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/example/go-piper-phonemize/internal/text"
)

// Diacritizer inserts predicted marks after the Arabic letters of its input.
// It is safe for concurrent use when its Model is.
type Diacritizer struct {
	model Model
	vocab *Vocabulary
}

func New(model Model, vocab *Vocabulary) *Diacritizer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}

	return &Diacritizer{model: model, vocab: vocab}
}

// Restore returns s with diacritics predicted for every Arabic letter.
// Existing marks are discarded first, so Strip(Restore(s)) == Strip(s).
// Text without Arabic letters is returned without running the model.
func (d *Diacritizer) Restore(ctx context.Context, s string) (string, error) {
	base := Strip(s)

	var b strings.Builder

	b.Grow(len(base) * 2)

	for _, chunk := range text.ChunkRunes(base, d.vocab.MaxLen) {
		runes := []rune(chunk)
		if !containsLetter(runes) {
			b.WriteString(chunk)
			continue
		}

		classes, err := d.model.Predict(ctx, d.vocab.Encode(runes))
		if err != nil {
			return "", fmt.Errorf("predict: %w", err)
		}

		if len(classes) != len(runes) {
			return "", fmt.Errorf("predict: got %d classes for %d characters", len(classes), len(runes))
		}

		for i, r := range runes {
			b.WriteRune(r)

			if !isLetter(r) {
				continue
			}

			mark, err := d.vocab.Mark(classes[i])
			if err != nil {
				return "", err
			}

			b.WriteString(mark)
		}
	}

	return b.String(), nil
}

func (d *Diacritizer) Close() error {
	return d.model.Close()
}

// Strip removes Arabic diacritic marks, leaving base characters in order.
func Strip(s string) string {
	return strings.Map(func(r rune) rune {
		if isMark(r) {
			return -1
		}

		return r
	}, s)
}

// arabicMarks lists the combining marks of the Arabic blocks. Most carry
// the Inherited script property, so unicode.Arabic does not cover them.
var arabicMarks = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061a, Stride: 1},
		{Lo: 0x064b, Hi: 0x065f, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06d6, Hi: 0x06dc, Stride: 1},
		{Lo: 0x06df, Hi: 0x06e4, Stride: 1},
		{Lo: 0x06e7, Hi: 0x06e8, Stride: 1},
		{Lo: 0x06ea, Hi: 0x06ed, Stride: 1},
		{Lo: 0x08d3, Hi: 0x08e1, Stride: 1},
		{Lo: 0x08e3, Hi: 0x08ff, Stride: 1},
	},
}

func isMark(r rune) bool {
	return unicode.Is(arabicMarks, r)
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r) && unicode.Is(unicode.Arabic, r)
}

func containsLetter(runes []rune) bool {
	for _, r := range runes {
		if isLetter(r) {
			return true
		}
	}

	return false
}
