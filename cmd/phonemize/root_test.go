package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/example/go-piper-phonemize/internal/config"
)

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"run", "diacritize", "inventory", "voices", "serve", "nats", "health", "doctor", "bench"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentConfigFlags(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"config", "phonemizer-voice", "phonemizer-backend", "paths-inventory-dir", "log-format"} {
		if root.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected --%s persistent flag to be registered", name)
		}
	}
}

func TestSetupLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		var buf bytes.Buffer

		setupLogger(&buf, "info", format)
		slogInfo("hello")

		if !strings.Contains(buf.String(), "hello") {
			t.Errorf("format %s: log output %q missing message", format, buf.String())
		}
	}
}

func TestSetupLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer

	setupLogger(&buf, "not-a-level", "json")
	slogDebug("hidden")
	slogInfo("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestRequireConfig_FailsWhenNotInitialized(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.Config{}

	_, err := requireConfig()
	if err == nil {
		t.Fatal("expected error when config is not loaded")
	}
}

func TestRequireConfig_SucceedsWhenLoaded(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.DefaultConfig()

	got, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig returned unexpected error: %v", err)
	}

	if got.Phonemizer.Voice != "en-us" {
		t.Errorf("unexpected voice: %q", got.Phonemizer.Voice)
	}
}

func TestRootCmd_VoicesEndToEnd(t *testing.T) {
	orig := activeCfg

	t.Cleanup(func() { activeCfg = orig })

	var out bytes.Buffer

	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"voices", "--format", "json", "--paths-voices-manifest", t.TempDir() + "/none.json"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !strings.Contains(out.String(), `"id":"en-us"`) {
		t.Errorf("voices output missing en-us: %s", out.String())
	}
}
