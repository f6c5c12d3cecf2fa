package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/phonemize"
)

func slogInfo(msg string)  { slog.Info(msg) }
func slogDebug(msg string) { slog.Debug(msg) }

// testApp builds the full pipeline on the static engine with an empty
// inventory directory, so the embedded default inventory is used.
func testApp(t *testing.T, lex map[string]map[string]string) *app {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Paths.InventoryDir = t.TempDir()
	cfg.Paths.VoicesManifest = filepath.Join(t.TempDir(), "voices.json")

	a, err := newAppWithEngine(cfg, &phonemize.StaticEngine{Lexicons: lex})
	if err != nil {
		t.Fatalf("newAppWithEngine: %v", err)
	}

	t.Cleanup(func() { _ = a.Close() })

	return a
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	return path
}
