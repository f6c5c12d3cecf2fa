package inventory

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/example/go-piper-phonemize/internal/memo"
	"github.com/example/go-piper-phonemize/internal/voice"
)

var extensions = []string{".json", ".yaml", ".yml"}

// Store resolves and caches inventories. Each voice and each file path is
// loaded at most once per process.
type Store struct {
	dir     string
	catalog *voice.Catalog

	byVoice memo.Map[string, *Inventory]
	byPath  memo.Map[string, *Inventory]
}

// NewStore returns a store that looks for <dir>/<voice>.{json,yaml,yml}
// when a voice does not name an inventory file itself.
func NewStore(dir string, catalog *voice.Catalog) *Store {
	return &Store{dir: dir, catalog: catalog}
}

// Load returns the inventory for voiceID. Resolution order: the voice's
// own inventory path, a file named after the voice in the inventory
// directory, then the embedded default.
func (s *Store) Load(voiceID string) (*Inventory, error) {
	v, err := s.catalog.Resolve(voiceID)
	if err != nil {
		return nil, err
	}

	return s.byVoice.Get(v.ID, func() (*Inventory, error) {
		path, err := s.pathFor(v)
		if err != nil {
			return nil, err
		}

		if path == "" {
			return Default(), nil
		}

		return s.LoadFile(path)
	})
}

// LoadFile loads the inventory at path, caching by cleaned path.
func (s *Store) LoadFile(path string) (*Inventory, error) {
	path = filepath.Clean(path)

	return s.byPath.Get(path, func() (*Inventory, error) {
		return LoadFile(path)
	})
}

// Source reports which file backs a voice's inventory, or "" for the
// embedded default.
func (s *Store) Source(voiceID string) (string, error) {
	v, err := s.catalog.Resolve(voiceID)
	if err != nil {
		return "", err
	}

	return s.pathFor(v)
}

func (s *Store) pathFor(v voice.Voice) (string, error) {
	if v.Inventory != "" {
		return v.Inventory, nil
	}

	if s.dir == "" {
		return "", nil
	}

	for _, ext := range extensions {
		candidate := filepath.Join(s.dir, v.ID+ext)

		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}

		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}

	return "", nil
}
