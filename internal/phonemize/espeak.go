package phonemize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/example/go-piper-phonemize/internal/voice"
)

// EspeakEngine shells out to espeak-ng in IPA mode.
type EspeakEngine struct {
	exe     string
	dataDir string
	voice   string
}

// NewEspeakEngine uses exe (default "espeak-ng") and, when set, the
// espeak-ng-data directory dataDir.
func NewEspeakEngine(exe, dataDir string) *EspeakEngine {
	if exe == "" {
		exe = "espeak-ng"
	}

	return &EspeakEngine{exe: exe, dataDir: dataDir}
}

func (e *EspeakEngine) Name() string { return "espeak-ng" }

func (e *EspeakEngine) SetVoice(v voice.Voice) error {
	if v.Espeak == "" {
		return fmt.Errorf("voice %q has no espeak-ng voice", v.ID)
	}

	e.voice = v.Espeak

	return nil
}

func (e *EspeakEngine) Transcribe(ctx context.Context, text string) ([]string, error) {
	if e.voice == "" {
		return nil, errors.New("espeak-ng: no voice selected")
	}

	args := []string{"-q", "--ipa", "-v", e.voice}
	if e.dataDir != "" {
		args = append(args, "--path="+e.dataDir)
	}

	args = append(args, "--stdin")

	cmd := exec.CommandContext(ctx, e.exe, args...)
	cmd.Stdin = strings.NewReader(text)

	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, mapEspeakError(err, stderr.String())
	}

	return strings.Fields(out.String()), nil
}

func (e *EspeakEngine) Close() error { return nil }

// Version returns the first line of `espeak-ng --version`.
func (e *EspeakEngine) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.exe, "--version").Output()
	if err != nil {
		return "", mapEspeakError(err, "")
	}

	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")

	return line, nil
}

func mapEspeakError(err error, stderr string) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("espeak-ng executable not found; set --phonemizer-cli-path or PHONEMIZE_PHONEMIZER_CLI_PATH: %w", err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(stderr); msg != "" {
			return fmt.Errorf("espeak-ng failed: %s: %w", msg, err)
		}

		return fmt.Errorf("espeak-ng returned non-zero exit: %w", err)
	}

	return err
}
