package encode

import (
	"errors"
	"reflect"
	"testing"

	"github.com/example/go-piper-phonemize/internal/inventory"
)

func testInventory(t *testing.T) *inventory.Inventory {
	t.Helper()

	inv, err := inventory.Parse([]byte(
		`{"PAD":0,"SYMBOL_SEPARATOR":0,"BOS":1,"EOS":2,"CLAUSE_BREAK":4," ":3,"a":5,"b":6,"c":7}`,
	), inventory.FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	return inv
}

func TestEncode(t *testing.T) {
	inv := testInventory(t)

	tests := []struct {
		name    string
		clauses [][]string
		want    []int64
	}{
		{
			name:    "no clauses",
			clauses: nil,
			want:    []int64{1, 2},
		},
		{
			name:    "two single-symbol clauses",
			clauses: [][]string{{"a"}, {"b"}},
			want:    []int64{1, 5, 4, 6, 2},
		},
		{
			name:    "separator between symbols",
			clauses: [][]string{{"a", "b", "c"}},
			want:    []int64{1, 5, 0, 6, 0, 7, 2},
		},
		{
			name:    "word boundary is an ordinary symbol",
			clauses: [][]string{{"a", " ", "b"}},
			want:    []int64{1, 5, 0, 3, 0, 6, 2},
		},
		{
			name:    "empty clause keeps its breaks",
			clauses: [][]string{{"a"}, {}, {"b"}},
			want:    []int64{1, 5, 4, 4, 6, 2},
		},
		{
			name:    "single empty clause",
			clauses: [][]string{{}},
			want:    []int64{1, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.clauses, inv)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Encode(%q) = %v; want %v", tt.clauses, got, tt.want)
			}
		})
	}
}

func TestEncode_ClauseBreakCount(t *testing.T) {
	inv := testInventory(t)

	clauses := [][]string{{"a"}, {"b", "c"}, {}, {"c"}, {"a", "a"}}

	got, err := Encode(clauses, inv)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	breaks := 0
	for _, id := range got {
		if id == inv.ClauseBreak() {
			breaks++
		}
	}

	if breaks != len(clauses)-1 {
		t.Errorf("CLAUSE_BREAK count = %d; want %d", breaks, len(clauses)-1)
	}

	if got[0] != inv.BOS() || got[len(got)-1] != inv.EOS() {
		t.Errorf("framing = %d...%d; want BOS...EOS", got[0], got[len(got)-1])
	}
}

func TestEncode_UnknownPhoneme(t *testing.T) {
	inv := testInventory(t)

	_, err := Encode([][]string{{"a"}, {"b", "ʘ"}}, inv)

	var ue *UnknownPhonemeError
	if !errors.As(err, &ue) {
		t.Fatalf("Encode error = %v; want UnknownPhonemeError", err)
	}

	if ue.Symbol != "ʘ" || ue.Clause != 1 || ue.Position != 1 {
		t.Errorf("UnknownPhonemeError = %+v; want symbol ʘ clause 1 position 1", *ue)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	inv := testInventory(t)
	clauses := [][]string{{"a", "b"}, {"c"}}

	first, err := Encode(clauses, inv)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	for range 10 {
		again, _ := Encode(clauses, inv)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Encode not deterministic: %v vs %v", first, again)
		}
	}
}

func TestEncodeClause(t *testing.T) {
	inv := testInventory(t)

	got, err := EncodeClause([]string{"c", "a"}, inv)
	if err != nil {
		t.Fatalf("EncodeClause: %v", err)
	}

	if want := []int64{7, 0, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("EncodeClause = %v; want %v", got, want)
	}

	if got, _ := EncodeClause(nil, inv); len(got) != 0 {
		t.Errorf("EncodeClause(nil) = %v; want empty", got)
	}

	if _, err := EncodeClause([]string{"z"}, inv); err == nil {
		t.Error("EncodeClause(z) = nil; want error")
	}
}

func TestEncode_DefaultInventoryExample(t *testing.T) {
	got, err := Encode([][]string{{"a"}, {"b"}}, inventory.Default())
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if want := []int64{1, 5, 4, 6, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %v; want %v", got, want)
	}
}
