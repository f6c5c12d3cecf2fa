package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/go-piper-phonemize/internal/inventory"
)

const smallInventory = `{"PAD": 0, "SYMBOL_SEPARATOR": 0, "BOS": 1, "EOS": 2, "CLAUSE_BREAK": 4, "a": 5}`

func TestWriteInventory_JSON(t *testing.T) {
	inv, err := inventory.Parse([]byte(smallInventory), inventory.FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var buf bytes.Buffer
	if err := writeInventory(&buf, inv, "json"); err != nil {
		t.Fatalf("writeInventory: %v", err)
	}

	var got map[string]int64
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got["a"] != 5 || got["BOS"] != 1 || got["CLAUSE_BREAK"] != 4 {
		t.Errorf("unexpected map %v", got)
	}
}

func TestWriteInventory_Table(t *testing.T) {
	inv, err := inventory.Parse([]byte(smallInventory), inventory.FormatJSON)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var buf bytes.Buffer
	if err := writeInventory(&buf, inv, "table"); err != nil {
		t.Fatalf("writeInventory: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"SYMBOL", "BOS", "CLAUSE_BREAK", "PAD", `"a"`} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	if err := writeInventory(&buf, inv, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestValidateInventories(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", smallInventory)
	bad := writeFile(t, dir, "bad.json", `{"a": 5}`)

	var buf bytes.Buffer
	if err := validateInventories(&buf, []string{good}); err != nil {
		t.Fatalf("validate good: %v", err)
	}

	if !strings.Contains(buf.String(), "ok   "+good) {
		t.Errorf("unexpected output %q", buf.String())
	}

	buf.Reset()

	if err := validateInventories(&buf, []string{good, bad}); err == nil {
		t.Fatal("expected error for invalid inventory")
	}

	if !strings.Contains(buf.String(), "FAIL "+bad) {
		t.Errorf("unexpected output %q", buf.String())
	}
}
