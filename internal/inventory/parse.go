package inventory

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format is an inventory file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath infers the format from a file extension. Unknown
// extensions are treated as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

//go:embed default.json
var defaultInventory []byte

var loadDefault = sync.OnceValues(func() (*Inventory, error) {
	return parse("embedded default inventory", defaultInventory, FormatJSON)
})

// Default returns the embedded IPA inventory used when a voice ships none.
func Default() *Inventory {
	inv, err := loadDefault()
	if err != nil {
		panic(err)
	}

	return inv
}

// Parse decodes an inventory document. Two shapes are accepted: a flat
// object mapping symbols and reserved names to ids, or an object with a
// "phoneme_id_map" field (and optional "voice"). Ids may be integers or
// single-element integer arrays.
func Parse(data []byte, format Format) (*Inventory, error) {
	return parse("", data, format)
}

// LoadFile reads and parses the inventory at path.
func LoadFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}

	return parse(path, data, FormatFromPath(path))
}

func parse(source string, data []byte, format Format) (*Inventory, error) {
	var doc map[string]any

	var err error

	switch format {
	case FormatJSON, "":
		err = sonic.Unmarshal(data, &doc)
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	default:
		return nil, &InventoryFormatError{Source: source, Reason: fmt.Sprintf("unknown format %q", format)}
	}

	if err != nil {
		return nil, &InventoryFormatError{Source: source, Reason: "decode", Err: err}
	}

	if doc == nil {
		return nil, &InventoryFormatError{Source: source, Reason: "empty document"}
	}

	voiceName := ""
	table := doc

	if raw, ok := doc["phoneme_id_map"]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, &InventoryFormatError{Source: source, Reason: "phoneme_id_map is not an object"}
		}

		table = m

		if v, ok := doc["voice"].(string); ok {
			voiceName = v
		}
	}

	entries := make(map[string]int64, len(table))

	for key, raw := range table {
		id, err := toID(raw)
		if err != nil {
			return nil, &InventoryFormatError{Source: source, Reason: fmt.Sprintf("symbol %q", key), Err: err}
		}

		sym := key
		if !isReservedName(key) {
			sym = norm.NFD.String(key)
		}

		if prev, dup := entries[sym]; dup && prev != id {
			return nil, &InventoryFormatError{
				Source: source,
				Reason: fmt.Sprintf("symbol %q maps to both %d and %d after normalization", sym, prev, id),
			}
		}

		entries[sym] = id
	}

	return newInventory(source, voiceName, entries)
}

var errNotInteger = errors.New("id is not an integer")

func toID(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, errNotInteger
		}

		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > 1<<53 {
			return 0, errNotInteger
		}

		return int64(n), nil
	case []any:
		if len(n) != 1 {
			return 0, fmt.Errorf("id array has %d elements, want 1", len(n))
		}

		return toID(n[0])
	default:
		return 0, fmt.Errorf("%w: %T", errNotInteger, v)
	}
}
