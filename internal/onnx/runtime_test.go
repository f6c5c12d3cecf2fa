package onnx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-piper-phonemize/internal/config"
)

func writeFakeLib(t *testing.T, name string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("fake"), 0o644); err != nil {
		t.Fatalf("write fake lib: %v", err)
	}

	return p
}

func TestDetectRuntimePrefersConfig(t *testing.T) {
	lib := writeFakeLib(t, "libonnxruntime.so.1.22.0")
	t.Setenv("PHONEMIZE_ORT_LIB", writeFakeLib(t, "other.so"))
	t.Setenv("ORT_VERSION", "")

	info, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: lib})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.LibraryPath != lib {
		t.Fatalf("expected %q, got %q", lib, info.LibraryPath)
	}

	if info.Version != "1.22.0" {
		t.Fatalf("expected version inferred from file name, got %q", info.Version)
	}
}

func TestDetectRuntimePrefersPhonemizeEnvOverORTLibraryPath(t *testing.T) {
	lib := writeFakeLib(t, "libonnxruntime.so")

	t.Setenv("PHONEMIZE_ORT_LIB", lib)
	t.Setenv("ORT_LIBRARY_PATH", filepath.Join(t.TempDir(), "does-not-exist"))

	info, err := DetectRuntime(config.RuntimeConfig{})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.LibraryPath != lib {
		t.Fatalf("expected %q, got %q", lib, info.LibraryPath)
	}
}

func TestDetectRuntimeMissingPath(t *testing.T) {
	_, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: "/nonexistent/libonnxruntime.so"})
	if err == nil {
		t.Fatal("expected error for missing library")
	}
}

func TestDetectRuntimeExplicitVersion(t *testing.T) {
	lib := writeFakeLib(t, "libonnxruntime.so")

	info, err := DetectRuntime(config.RuntimeConfig{ORTLibraryPath: lib, ORTVersion: "1.20.1"})
	if err != nil {
		t.Fatalf("DetectRuntime failed: %v", err)
	}

	if info.Version != "1.20.1" {
		t.Fatalf("expected version 1.20.1, got %q", info.Version)
	}
}

func TestDetectRuntimeSource(t *testing.T) {
	lib := writeFakeLib(t, "libonnxruntime.so")

	tests := []struct {
		name   string
		cfg    config.RuntimeConfig
		env    map[string]string
		search []string
		want   string
	}{
		{"config", config.RuntimeConfig{ORTLibraryPath: lib}, nil, nil, "config"},
		{"phonemize env", config.RuntimeConfig{}, map[string]string{"PHONEMIZE_ORT_LIB": lib}, nil, "PHONEMIZE_ORT_LIB"},
		{"ort env", config.RuntimeConfig{}, map[string]string{"ORT_LIBRARY_PATH": lib}, nil, "ORT_LIBRARY_PATH"},
		{"search", config.RuntimeConfig{}, nil, []string{filepath.Join(t.TempDir(), "absent.so"), lib}, "search"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PHONEMIZE_ORT_LIB", "")
			t.Setenv("ORT_LIBRARY_PATH", "")

			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			saved := searchPaths
			searchPaths = tt.search
			t.Cleanup(func() { searchPaths = saved })

			info, err := DetectRuntime(tt.cfg)
			if err != nil {
				t.Fatalf("DetectRuntime: %v", err)
			}

			if info.Source != tt.want || info.LibraryPath != lib {
				t.Errorf("got (%s, %s); want (%s, %s)", info.LibraryPath, info.Source, lib, tt.want)
			}
		})
	}
}

func TestDetectRuntimeNotFound(t *testing.T) {
	t.Setenv("PHONEMIZE_ORT_LIB", "")
	t.Setenv("ORT_LIBRARY_PATH", "")

	saved := searchPaths
	searchPaths = nil
	t.Cleanup(func() { searchPaths = saved })

	if _, err := DetectRuntime(config.RuntimeConfig{}); !errors.Is(err, ErrRuntimeNotFound) {
		t.Fatalf("DetectRuntime error = %v; want ErrRuntimeNotFound", err)
	}
}
