package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/example/go-piper-phonemize/internal/config"
)

// ErrRuntimeNotFound is returned when no ONNX Runtime library is configured
// and none is installed in a known location.
var ErrRuntimeNotFound = errors.New("onnx runtime library not found")

// RuntimeInfo describes the ONNX Runtime shared library diacritization
// models run on.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
	// Source says where the path came from: "config", the environment
	// variable name, or "search".
	Source string
}

var versionPattern = regexp.MustCompile(`[0-9]+\.[0-9]+\.[0-9]+`)

var searchPaths = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"C:/onnxruntime/lib/onnxruntime.dll",
}

// DetectRuntime locates the ONNX Runtime library from cfg, then the
// PHONEMIZE_ORT_LIB and ORT_LIBRARY_PATH variables, then well-known paths.
// A named library that does not exist is an error; the search never
// falls through past it.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	path, source := locateLibrary(cfg.ORTLibraryPath)
	if path == "" {
		return RuntimeInfo{}, ErrRuntimeNotFound
	}

	info := RuntimeInfo{LibraryPath: path, Source: source}

	if _, err := os.Stat(path); err != nil {
		return info, fmt.Errorf("onnx runtime library from %s: %w", source, err)
	}

	info.Version = libraryVersion(cfg.ORTVersion, path)

	return info, nil
}

func locateLibrary(configured string) (path, source string) {
	if configured != "" {
		return configured, "config"
	}

	for _, env := range []string{"PHONEMIZE_ORT_LIB", "ORT_LIBRARY_PATH"} {
		if p := os.Getenv(env); p != "" {
			return p, env
		}
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			return p, "search"
		}
	}

	return "", ""
}

// libraryVersion prefers an explicit version, then ORT_VERSION, then a
// x.y.z found in the library file name.
func libraryVersion(configured, path string) string {
	for _, v := range []string{configured, os.Getenv("ORT_VERSION"), versionPattern.FindString(filepath.Base(path))} {
		if v != "" {
			return v
		}
	}

	return "unknown"
}
