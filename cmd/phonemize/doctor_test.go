package main

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/example/go-piper-phonemize/internal/voice"
)

func TestCollectModelFiles(t *testing.T) {
	catalog, err := voice.NewCatalog(
		voice.Voice{ID: "en-us", Language: "English"},
		voice.Voice{ID: "ar", Language: "Arabic", Diacritize: true},
		voice.Voice{ID: "ar-x", Language: "Arabic", Diacritize: true, DiacritizerModel: "/m/custom.ort"},
		voice.Voice{ID: "ar-y", Language: "Arabic", Diacritize: true},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	got := collectModelFiles("/m/default.ort", catalog)

	want := []string{"/m/default.ort", "/m/custom.ort"}
	if len(got) != 2 || !sameSet(got, want) {
		t.Errorf("collectModelFiles = %v; want %v", got, want)
	}

	if !anyDiacritizes(catalog) {
		t.Error("anyDiacritizes = false")
	}
}

func TestCollectInventoryFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "en-us.json", "{}")
	b := writeFile(t, dir, "de.yaml", "{}")
	writeFile(t, dir, "notes.txt", "")

	catalog, err := voice.NewCatalog(voice.Voice{ID: "fr", Language: "French", Inventory: "/inv/fr.json"})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	got := collectInventoryFiles(dir, catalog)

	want := []string{filepath.Clean("/inv/fr.json"), a, b}
	if !sameSet(got, want) || len(got) != len(want) {
		t.Errorf("collectInventoryFiles = %v; want %v", got, want)
	}

	if got := collectInventoryFiles("", catalog); !reflect.DeepEqual(got, []string{"/inv/fr.json"}) {
		t.Errorf("without dir = %v", got)
	}
}

func sameSet(a, b []string) bool {
	m := map[string]int{}
	for _, s := range a {
		m[s]++
	}

	for _, s := range b {
		m[s]--
	}

	for _, n := range m {
		if n != 0 {
			return false
		}
	}

	return true
}
