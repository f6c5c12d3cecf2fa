// Package voice resolves voice identifiers to the language settings used by
// the phonemization pipeline.
package voice

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
)

// Voice describes one supported voice.
type Voice struct {
	ID string `json:"id"`
	// Language is the language name understood by the native engine.
	Language string `json:"language"`
	// Espeak is the espeak-ng voice name used by the cli engine.
	Espeak string `json:"espeak"`
	// Diacritize marks voices whose orthography omits vowel marks.
	Diacritize bool `json:"diacritize,omitempty"`
	// Inventory optionally points at a phoneme inventory file.
	Inventory string `json:"inventory,omitempty"`
	// DiacritizerModel optionally overrides the configured model path.
	DiacritizerModel string `json:"diacritizer_model,omitempty"`
	License          string `json:"license,omitempty"`
}

// UnsupportedVoiceError is returned when a voice id is not in the catalog.
type UnsupportedVoiceError struct {
	ID string
}

func (e *UnsupportedVoiceError) Error() string {
	return fmt.Sprintf("unsupported voice %q", e.ID)
}

var builtin = []Voice{
	{ID: "en-us", Language: "English", Espeak: "en-us"},
	{ID: "de", Language: "German", Espeak: "de"},
	{ID: "fr", Language: "French", Espeak: "fr-fr"},
	{ID: "es", Language: "Spanish", Espeak: "es"},
	{ID: "it", Language: "Italian", Espeak: "it"},
	{ID: "ru", Language: "Russian", Espeak: "ru"},
	{ID: "nl", Language: "Dutch", Espeak: "nl"},
	{ID: "pl", Language: "Polish", Espeak: "pl"},
	{ID: "cs", Language: "Czech", Espeak: "cs"},
	{ID: "tr", Language: "Turkish", Espeak: "tr"},
	{ID: "sw", Language: "Swahili", Espeak: "sw"},
	{ID: "fa", Language: "Farsi", Espeak: "fa"},
	{ID: "ar", Language: "Arabic", Espeak: "ar", Diacritize: true},
}

// Builtin returns the voices available without a manifest.
func Builtin() []Voice {
	return append([]Voice(nil), builtin...)
}

type manifest struct {
	Voices []Voice `json:"voices"`
}

// Catalog is an immutable set of voices keyed by normalized id.
type Catalog struct {
	voices []Voice
	byID   map[string]Voice
}

// NewCatalog builds a catalog from voices. Later entries replace earlier
// ones with the same id.
func NewCatalog(voices ...Voice) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Voice, len(voices))}

	for _, v := range voices {
		if strings.TrimSpace(v.ID) == "" {
			return nil, errors.New("voice with empty id")
		}

		if v.Language == "" && v.Espeak == "" {
			return nil, fmt.Errorf("voice %q has neither language nor espeak name", v.ID)
		}

		v.ID = normalizeID(v.ID)
		c.byID[v.ID] = v
	}

	c.voices = make([]Voice, 0, len(c.byID))
	for _, v := range c.byID {
		c.voices = append(c.voices, v)
	}

	sort.Slice(c.voices, func(i, j int) bool { return c.voices[i].ID < c.voices[j].ID })

	return c, nil
}

// LoadCatalog returns the built-in voices merged with the entries of the
// manifest at manifestPath. A missing manifest yields the built-ins only.
// Relative inventory and model paths are resolved against the manifest's
// directory.
func LoadCatalog(manifestPath string) (*Catalog, error) {
	if manifestPath == "" {
		return NewCatalog(builtin...)
	}

	data, err := os.ReadFile(manifestPath)
	if errors.Is(err, os.ErrNotExist) {
		return NewCatalog(builtin...)
	}

	if err != nil {
		return nil, fmt.Errorf("read voice manifest: %w", err)
	}

	var m manifest

	err = sonic.Unmarshal(data, &m)
	if err != nil {
		return nil, fmt.Errorf("decode voice manifest: %w", err)
	}

	seen := make(map[string]bool, len(m.Voices))
	baseDir := filepath.Dir(manifestPath)

	for i := range m.Voices {
		v := &m.Voices[i]

		id := normalizeID(v.ID)
		if id != "" && seen[id] {
			return nil, fmt.Errorf("duplicate voice id %q", v.ID)
		}

		seen[id] = true
		v.Inventory = resolve(baseDir, v.Inventory)
		v.DiacritizerModel = resolve(baseDir, v.DiacritizerModel)
	}

	return NewCatalog(append(Builtin(), m.Voices...)...)
}

// Resolve looks up a voice. Ids are matched case-insensitively and
// "_" is accepted in place of "-".
func (c *Catalog) Resolve(id string) (Voice, error) {
	v, ok := c.byID[normalizeID(id)]
	if !ok {
		return Voice{}, &UnsupportedVoiceError{ID: id}
	}

	return v, nil
}

// List returns all voices sorted by id.
func (c *Catalog) List() []Voice {
	return append([]Voice(nil), c.voices...)
}

func normalizeID(id string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(id)), "_", "-")
}

func resolve(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}

	return filepath.Clean(filepath.Join(baseDir, p))
}
