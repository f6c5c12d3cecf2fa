package diacritize

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

//go:embed vocabulary.json
var defaultVocabulary []byte

// Vocabulary maps characters to model input ids and model output classes to
// diacritic marks.
type Vocabulary struct {
	MaxLen     int              `json:"max_len"`
	PadID      int64            `json:"pad_id"`
	UnknownID  int64            `json:"unknown_id"`
	InputName  string           `json:"input_name"`
	OutputName string           `json:"output_name"`
	Chars      map[string]int64 `json:"input_chars"`
	Classes    []string         `json:"output_classes"`

	charIDs map[rune]int64
}

// DefaultVocabulary returns the built-in Arabic vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := parseVocabulary(defaultVocabulary)
	if err != nil {
		panic(fmt.Sprintf("embedded vocabulary: %v", err))
	}

	return v
}

// LoadVocabulary reads a vocabulary JSON file. Missing scalar fields take
// the built-in defaults.
func LoadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}

	v, err := parseVocabulary(data)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}

	return v, nil
}

// VocabularyFor returns the sidecar vocabulary next to a model file
// (model.onnx → model.json) or the built-in vocabulary when there is none.
func VocabularyFor(modelPath string) (*Vocabulary, error) {
	sidecar := strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".json"

	v, err := LoadVocabulary(sidecar)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultVocabulary(), nil
	}

	return v, err
}

func parseVocabulary(data []byte) (*Vocabulary, error) {
	v := &Vocabulary{
		MaxLen:     315,
		UnknownID:  1,
		InputName:  "char_inputs",
		OutputName: "logits",
	}

	err := sonic.Unmarshal(data, v)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if v.MaxLen <= 0 {
		return nil, fmt.Errorf("max_len must be positive, got %d", v.MaxLen)
	}

	if len(v.Chars) == 0 {
		return nil, errors.New("input_chars is empty")
	}

	if len(v.Classes) == 0 {
		return nil, errors.New("output_classes is empty")
	}

	v.charIDs = make(map[rune]int64, len(v.Chars))

	for s, id := range v.Chars {
		if utf8.RuneCountInString(s) != 1 {
			return nil, fmt.Errorf("input char %q is not a single codepoint", s)
		}

		r, _ := utf8.DecodeRuneInString(s)
		v.charIDs[r] = id
	}

	for i, mark := range v.Classes {
		for _, r := range mark {
			if !isMark(r) {
				return nil, fmt.Errorf("output class %d contains non-diacritic %U", i, r)
			}
		}
	}

	return v, nil
}

// Encode maps runes to input ids. Unmapped runes use UnknownID.
func (v *Vocabulary) Encode(runes []rune) []int64 {
	ids := make([]int64, len(runes))
	for i, r := range runes {
		id, ok := v.charIDs[r]
		if !ok {
			id = v.UnknownID
		}

		ids[i] = id
	}

	return ids
}

// Mark returns the diacritic string for an output class.
func (v *Vocabulary) Mark(class int) (string, error) {
	if class < 0 || class >= len(v.Classes) {
		return "", fmt.Errorf("output class %d out of range [0,%d)", class, len(v.Classes))
	}

	return v.Classes[class], nil
}
