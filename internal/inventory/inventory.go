// Package inventory loads phoneme inventories: the mapping from phoneme
// symbols to the integer ids a voice model was trained on, plus the reserved
// structural ids.
package inventory

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

// Reserved token names.
const (
	PAD             = "PAD"
	BOS             = "BOS"
	EOS             = "EOS"
	ClauseBreak     = "CLAUSE_BREAK"
	SymbolSeparator = "SYMBOL_SEPARATOR"
)

// WordBoundary is the phoneme symbol emitted between words.
const WordBoundary = " "

// InventoryFormatError reports a malformed or inconsistent inventory.
type InventoryFormatError struct {
	Source string
	Reason string
	Err    error
}

func (e *InventoryFormatError) Error() string {
	src := e.Source
	if src == "" {
		src = "inventory"
	}

	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", src, e.Reason, e.Err)
	}

	return fmt.Sprintf("%s: %s", src, e.Reason)
}

func (e *InventoryFormatError) Unwrap() error { return e.Err }

// Inventory is an immutable phoneme symbol → id table. It is safe for
// concurrent use.
type Inventory struct {
	voice string
	ids   map[string]int64

	pad         int64
	hasPad      bool
	bos         int64
	eos         int64
	clauseBreak int64
	separator   int64

	maxSymbolRunes int
}

// Voice returns the voice name recorded in the inventory file, if any.
func (inv *Inventory) Voice() string { return inv.voice }

// ID returns the id of a phoneme symbol.
func (inv *Inventory) ID(symbol string) (int64, bool) {
	id, ok := inv.ids[symbol]
	return id, ok
}

func (inv *Inventory) BOS() int64         { return inv.bos }
func (inv *Inventory) EOS() int64         { return inv.eos }
func (inv *Inventory) ClauseBreak() int64 { return inv.clauseBreak }
func (inv *Inventory) Separator() int64   { return inv.separator }

// PAD returns the padding id when the inventory defines one.
func (inv *Inventory) PAD() (int64, bool) { return inv.pad, inv.hasPad }

// Len returns the number of phoneme symbols, excluding reserved tokens.
func (inv *Inventory) Len() int { return len(inv.ids) }

// Symbols returns the phoneme symbols sorted by id, then by symbol.
func (inv *Inventory) Symbols() []string {
	out := make([]string, 0, len(inv.ids))
	for s := range inv.ids {
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := inv.ids[out[i]], inv.ids[out[j]]
		if a != b {
			return a < b
		}

		return out[i] < out[j]
	})

	return out
}

// Map returns the full table including reserved tokens.
func (inv *Inventory) Map() map[string]int64 {
	m := make(map[string]int64, len(inv.ids)+5)
	for s, id := range inv.ids {
		m[s] = id
	}

	m[BOS] = inv.bos
	m[EOS] = inv.eos
	m[ClauseBreak] = inv.clauseBreak
	m[SymbolSeparator] = inv.separator

	if inv.hasPad {
		m[PAD] = inv.pad
	}

	return m
}

// Segment splits a phonetic string into inventory symbols by greedy longest
// match. Codepoints that start no known symbol are returned as single-rune
// symbols so the encoder can report them.
func (inv *Inventory) Segment(phonetic string) []string {
	if phonetic == "" {
		return nil
	}

	runes := []rune(phonetic)
	out := make([]string, 0, len(runes))

	for i := 0; i < len(runes); {
		n := min(inv.maxSymbolRunes, len(runes)-i)

		for ; n > 1; n-- {
			if _, ok := inv.ids[string(runes[i:i+n])]; ok {
				break
			}
		}

		out = append(out, string(runes[i:i+n]))
		i += n
	}

	return out
}

func newInventory(source, voice string, entries map[string]int64) (*Inventory, error) {
	fail := func(format string, args ...any) error {
		return &InventoryFormatError{Source: source, Reason: fmt.Sprintf(format, args...)}
	}

	inv := &Inventory{voice: voice, ids: make(map[string]int64, len(entries)), maxSymbolRunes: 1}

	required := []struct {
		name string
		dst  *int64
	}{
		{BOS, &inv.bos},
		{EOS, &inv.eos},
		{ClauseBreak, &inv.clauseBreak},
		{SymbolSeparator, &inv.separator},
	}

	reserved := make(map[int64]string, 5)

	for _, r := range required {
		id, ok := entries[r.name]
		if !ok {
			return nil, fail("missing reserved token %s", r.name)
		}

		if other, dup := reserved[id]; dup {
			return nil, fail("reserved tokens %s and %s share id %d", other, r.name, id)
		}

		reserved[id] = r.name
		*r.dst = id
	}

	if id, ok := entries[PAD]; ok {
		if other, dup := reserved[id]; dup && other != SymbolSeparator {
			return nil, fail("reserved tokens %s and %s share id %d", other, PAD, id)
		}

		if _, dup := reserved[id]; !dup {
			reserved[id] = PAD
		}

		inv.pad, inv.hasPad = id, true
	}

	for sym, id := range entries {
		if id < 0 {
			return nil, fail("negative id %d for %q", id, sym)
		}

		if isReservedName(sym) {
			continue
		}

		if sym == "" {
			return nil, fail("empty phoneme symbol")
		}

		if name, clash := reserved[id]; clash {
			return nil, fail("phoneme %q uses id %d reserved for %s", sym, id, name)
		}

		inv.ids[sym] = id

		if n := utf8.RuneCountInString(sym); n > inv.maxSymbolRunes {
			inv.maxSymbolRunes = n
		}
	}

	return inv, nil
}

func isReservedName(s string) bool {
	switch s {
	case PAD, BOS, EOS, ClauseBreak, SymbolSeparator:
		return true
	}

	return false
}
