package config

import (
	"fmt"
	"strings"
)

const (
	BackendNative = "native"
	BackendCLI    = "cli"
)

// NormalizeBackend canonicalizes a phonemizer backend name. "goruut" is an
// alias for native, "espeak" and "espeak-ng" for cli.
func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendNative
	}
	switch backend {
	case BackendNative, BackendCLI:
		return backend, nil
	case "goruut":
		return BackendNative, nil
	case "espeak", "espeak-ng":
		return BackendCLI, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s|goruut|espeak-ng)",
			raw,
			BackendNative,
			BackendCLI,
		)
	}
}
