// Package testutil provides shared skip helpers for integration tests.
//
// Each helper calls t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireONNXRuntime(t)
//	    model := testutil.RequireDiacritizerModel(t)
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// RequireEspeak skips the test if the espeak-ng binary is not found in PATH
// or at the path given by the PHONEMIZE_PHONEMIZER_CLI_PATH environment
// variable. It returns the resolved executable.
func RequireEspeak(tb testing.TB) string {
	tb.Helper()

	exe := os.Getenv("PHONEMIZE_PHONEMIZER_CLI_PATH")
	if exe == "" {
		exe = "espeak-ng"
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		tb.Skipf("espeak-ng binary not available (%q not in PATH); set PHONEMIZE_PHONEMIZER_CLI_PATH to override", exe)
		return ""
	}

	return path
}

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. It checks (in order): the ORT_LIBRARY_PATH env var, then the
// PHONEMIZE_ORT_LIB env var, then common system library paths.
func RequireONNXRuntime(tb testing.TB) {
	tb.Helper()

	for _, env := range []string{"ORT_LIBRARY_PATH", "PHONEMIZE_ORT_LIB"} {
		if p := os.Getenv(env); p != "" {
			// #nosec G703 -- Integration tests intentionally accept explicit env-provided local library paths.
			_, err := os.Stat(p)
			if err == nil {
				return // found
			}

			tb.Skipf("ONNX Runtime library not found at %s=%q", env, p)

			return
		}
	}
	// Fall back to common system locations.
	candidates := []string{
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	}
	for _, p := range candidates {
		_, err := os.Stat(p)
		if err == nil {
			return // found
		}
	}

	tb.Skip("ONNX Runtime shared library not found; set ORT_LIBRARY_PATH or PHONEMIZE_ORT_LIB")
}

// RequireDiacritizerModel skips the test unless a tashkeel model is present
// at PHONEMIZE_PATHS_DIACRITIZER_MODEL or models/libtashkeel_model.ort under
// the repository root. It returns the model path.
func RequireDiacritizerModel(tb testing.TB) string {
	tb.Helper()

	p := os.Getenv("PHONEMIZE_PATHS_DIACRITIZER_MODEL")
	if p == "" {
		p = filepath.Join(RepoRoot(), "models", "libtashkeel_model.ort")
	}

	_, err := os.Stat(p)
	if err != nil {
		tb.Skipf("diacritizer model not available at %q; set PHONEMIZE_PATHS_DIACRITIZER_MODEL", p)
		return ""
	}

	return p
}

// RepoRoot walks up from the working directory to the directory holding
// go.mod. It falls back to "." when none is found.
func RepoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}

	for {
		_, err := os.Stat(filepath.Join(dir, "go.mod"))
		if err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}

		dir = parent
	}
}
