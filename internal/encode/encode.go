// Package encode maps clause phoneme sequences to the id sequence fed to a
// voice model.
package encode

import (
	"fmt"

	"github.com/example/go-piper-phonemize/internal/inventory"
)

// UnknownPhonemeError reports a symbol missing from the inventory.
// Clause and Position are zero-based.
type UnknownPhonemeError struct {
	Symbol   string
	Clause   int
	Position int
}

func (e *UnknownPhonemeError) Error() string {
	return fmt.Sprintf("unknown phoneme %q (%U) at clause %d position %d",
		e.Symbol, []rune(e.Symbol), e.Clause, e.Position)
}

// Encode frames clauses as
//
//	BOS c0 CLAUSE_BREAK c1 ... CLAUSE_BREAK cN EOS
//
// where each ci is its clause's ids joined by SYMBOL_SEPARATOR. Empty clauses
// still count, so the output always holds len(clauses)-1 breaks. No input
// encodes to [BOS, EOS].
func Encode(clauses [][]string, inv *inventory.Inventory) ([]int64, error) {
	size := 2
	for _, c := range clauses {
		size += 2 * len(c)
	}

	out := make([]int64, 0, size)
	out = append(out, inv.BOS())

	for i, c := range clauses {
		if i > 0 {
			out = append(out, inv.ClauseBreak())
		}

		var err error

		out, err = appendClause(out, c, i, inv)
		if err != nil {
			return nil, err
		}
	}

	return append(out, inv.EOS()), nil
}

// EncodeClause returns one clause's separator-joined ids without framing.
func EncodeClause(symbols []string, inv *inventory.Inventory) ([]int64, error) {
	return appendClause(make([]int64, 0, 2*len(symbols)), symbols, 0, inv)
}

func appendClause(dst []int64, symbols []string, clause int, inv *inventory.Inventory) ([]int64, error) {
	for j, sym := range symbols {
		id, ok := inv.ID(sym)
		if !ok {
			return nil, &UnknownPhonemeError{Symbol: sym, Clause: clause, Position: j}
		}

		if j > 0 {
			dst = append(dst, inv.Separator())
		}

		dst = append(dst, id)
	}

	return dst, nil
}
