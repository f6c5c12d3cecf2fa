package phonemize

import (
	"context"
	"fmt"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/voice"
)

// Engine converts text to phonetic words for one voice at a time.
// Implementations are stateful and not safe for concurrent use; callers go
// through a Gateway.
type Engine interface {
	Name() string
	SetVoice(v voice.Voice) error
	// Transcribe returns one phonetic string per word of text, in order.
	Transcribe(ctx context.Context, text string) ([]string, error)
	Close() error
}

// NewEngine builds the engine selected by cfg.Backend.
func NewEngine(cfg config.PhonemizerConfig, dataDir string) (Engine, error) {
	backend, err := config.NormalizeBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.BackendCLI:
		return NewEspeakEngine(cfg.CLIPath, dataDir), nil
	case config.BackendNative:
		return NewGoruutEngine(), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}
}
