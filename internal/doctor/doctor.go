// Package doctor provides environment preflight checks for phonemize.
package doctor

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/example/go-piper-phonemize/internal/inventory"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Oldest espeak-ng release whose --ipa output matches the inventories.
const (
	minEspeakMajor = 1
	minEspeakMinor = 49
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// EspeakVersion returns the first line of `espeak-ng --version`.
	EspeakVersion VersionFunc
	// SkipEspeak skips the espeak-ng check (native backend).
	SkipEspeak bool
	// ORTRuntime describes the detected ONNX Runtime library.
	ORTRuntime VersionFunc
	// SkipORT skips the runtime check when no voice needs diacritics.
	SkipORT bool
	// ModelFiles are diacritization models to verify on disk.
	ModelFiles []string
	// InventoryFiles are parsed and validated as phoneme inventories.
	InventoryFiles []string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- espeak-ng --------------------------------------------------------
	switch {
	case cfg.SkipEspeak:
		fmt.Fprintf(w, "%s espeak-ng: skipped\n", PassMark)
	case cfg.EspeakVersion == nil:
		res.fail("espeak-ng: no version probe configured")
		fmt.Fprintf(w, "%s espeak-ng: not configured\n", FailMark)
	default:
		line, err := cfg.EspeakVersion()
		if err != nil {
			res.fail(fmt.Sprintf("espeak-ng: %v", err))
			fmt.Fprintf(w, "%s espeak-ng: not found (%v)\n", FailMark, err)
		} else if verErr := checkEspeakVersion(line); verErr != nil {
			res.fail(fmt.Sprintf("espeak-ng: %v", verErr))
			fmt.Fprintf(w, "%s espeak-ng %s: %v\n", FailMark, line, verErr)
		} else {
			fmt.Fprintf(w, "%s espeak-ng: %s\n", PassMark, line)
		}
	}

	// ---- ONNX Runtime -----------------------------------------------------
	switch {
	case cfg.SkipORT:
		fmt.Fprintf(w, "%s onnx runtime: skipped\n", PassMark)
	case cfg.ORTRuntime == nil:
		res.fail("onnx runtime: no probe configured")
		fmt.Fprintf(w, "%s onnx runtime: not configured\n", FailMark)
	default:
		desc, err := cfg.ORTRuntime()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s\n", PassMark, desc)
		}
	}

	// ---- diacritization models --------------------------------------------
	for _, path := range cfg.ModelFiles {
		if _, err := os.Stat(path); err != nil {
			res.fail(fmt.Sprintf("diacritizer model %q: %v", path, err))
			fmt.Fprintf(w, "%s diacritizer model %s: not found\n", FailMark, path)
		} else {
			fmt.Fprintf(w, "%s diacritizer model: %s\n", PassMark, path)
		}
	}

	// ---- phoneme inventories ----------------------------------------------
	for _, path := range cfg.InventoryFiles {
		inv, err := inventory.LoadFile(path)
		if err != nil {
			res.fail(fmt.Sprintf("inventory %q: %v", path, err))
			fmt.Fprintf(w, "%s inventory %s: %v\n", FailMark, path, err)
		} else {
			fmt.Fprintf(w, "%s inventory: %s (%d symbols)\n", PassMark, path, inv.Len())
		}
	}

	return res
}

// checkEspeakVersion returns an error if the version in line is older than
// 1.49. line is the first line of `espeak-ng --version`, e.g.
// "eSpeak NG text-to-speech: 1.51  Data at: /usr/share/espeak-ng-data".
func checkEspeakVersion(line string) error {
	ver := versionField(line)
	if ver == "" {
		return fmt.Errorf("no version number in %q", line)
	}

	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}

	if major < minEspeakMajor || (major == minEspeakMajor && minor < minEspeakMinor) {
		return fmt.Errorf("requires espeak-ng >=%d.%d, got %d.%d", minEspeakMajor, minEspeakMinor, major, minor)
	}

	return nil
}

func versionField(line string) string {
	for _, f := range strings.Fields(line) {
		if f[0] >= '0' && f[0] <= '9' && strings.Contains(f, ".") {
			return f
		}
	}

	return ""
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}

	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}

	minor, err = strconv.Atoi(strings.TrimRightFunc(parts[1], func(r rune) bool { return r < '0' || r > '9' }))
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}

	return major, minor, nil
}
