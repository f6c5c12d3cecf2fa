package voice

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}

func TestLoadCatalog_NoManifestUsesBuiltins(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/manifest.json"} {
		c, err := LoadCatalog(path)
		if err != nil {
			t.Fatalf("LoadCatalog(%q): %v", path, err)
		}

		if got, want := len(c.List()), len(Builtin()); got != want {
			t.Errorf("LoadCatalog(%q) has %d voices; want %d", path, got, want)
		}
	}
}

func TestResolve(t *testing.T) {
	c, err := NewCatalog(Builtin()...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	tests := []struct {
		id       string
		wantID   string
		wantLang string
	}{
		{"en-us", "en-us", "English"},
		{"EN_US", "en-us", "English"},
		{" ar ", "ar", "Arabic"},
	}

	for _, tt := range tests {
		v, err := c.Resolve(tt.id)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", tt.id, err)
		}

		if v.ID != tt.wantID || v.Language != tt.wantLang {
			t.Errorf("Resolve(%q) = %+v; want id %q language %q", tt.id, v, tt.wantID, tt.wantLang)
		}
	}
}

func TestResolve_Unsupported(t *testing.T) {
	c, err := NewCatalog(Builtin()...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	_, err = c.Resolve("klingon")

	var uv *UnsupportedVoiceError
	if !errors.As(err, &uv) {
		t.Fatalf("Resolve(klingon) error = %v; want UnsupportedVoiceError", err)
	}

	if uv.ID != "klingon" {
		t.Errorf("UnsupportedVoiceError.ID = %q; want %q", uv.ID, "klingon")
	}
}

func TestBuiltin_OnlyArabicDiacritizes(t *testing.T) {
	for _, v := range Builtin() {
		if v.Diacritize != (v.ID == "ar") {
			t.Errorf("voice %q Diacritize = %v", v.ID, v.Diacritize)
		}
	}
}

func TestLoadCatalog_ManifestMergesAndResolvesPaths(t *testing.T) {
	path := writeManifest(t, `{"voices":[
		{"id":"ar","language":"Arabic","espeak":"ar","diacritize":true,"inventory":"inv/ar.json","diacritizer_model":"models/tashkeel.ort"},
		{"id":"en-gb","language":"English","espeak":"en-gb","inventory":"/abs/en.json"}
	]}`)
	dir := filepath.Dir(path)

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	if got, want := len(c.List()), len(Builtin())+1; got != want {
		t.Errorf("catalog has %d voices; want %d", got, want)
	}

	ar, err := c.Resolve("ar")
	if err != nil {
		t.Fatalf("Resolve(ar): %v", err)
	}

	if want := filepath.Join(dir, "inv", "ar.json"); ar.Inventory != want {
		t.Errorf("ar.Inventory = %q; want %q", ar.Inventory, want)
	}

	if want := filepath.Join(dir, "models", "tashkeel.ort"); ar.DiacritizerModel != want {
		t.Errorf("ar.DiacritizerModel = %q; want %q", ar.DiacritizerModel, want)
	}

	gb, err := c.Resolve("en-gb")
	if err != nil {
		t.Fatalf("Resolve(en-gb): %v", err)
	}

	if gb.Inventory != "/abs/en.json" {
		t.Errorf("en-gb.Inventory = %q; want absolute path kept", gb.Inventory)
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{bad json`},
		{"empty id", `{"voices":[{"id":"","language":"English"}]}`},
		{"no language", `{"voices":[{"id":"xx"}]}`},
		{"duplicate id", `{"voices":[{"id":"xx","language":"English"},{"id":"XX","language":"German"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCatalog(writeManifest(t, tt.body)); err == nil {
				t.Error("LoadCatalog() = nil; want error")
			}
		})
	}
}

func TestList_SortedAndCopied(t *testing.T) {
	c, err := NewCatalog(Voice{ID: "b", Language: "B"}, Voice{ID: "a", Language: "A"})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	list := c.List()
	if list[0].ID != "a" || list[1].ID != "b" {
		t.Fatalf("List() order = %q, %q; want a, b", list[0].ID, list[1].ID)
	}

	list[0].ID = "mutated"

	if c.List()[0].ID != "a" {
		t.Error("List() exposed internal slice")
	}
}
