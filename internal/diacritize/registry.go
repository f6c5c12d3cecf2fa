package diacritize

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/memo"
	"github.com/example/go-piper-phonemize/internal/onnx"
)

// ModelLoadError reports a diacritization model that could not be loaded.
// The failure is remembered for the life of the Registry.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load diacritization model %s: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// Loader builds a Diacritizer for a model path.
type Loader func(path string) (*Diacritizer, error)

// ONNXLoader loads models through ONNX Runtime, with the vocabulary taken
// from the model's sidecar file when present.
func ONNXLoader(rt config.RuntimeConfig) Loader {
	return func(path string) (*Diacritizer, error) {
		_, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		vocab, err := VocabularyFor(path)
		if err != nil {
			return nil, err
		}

		info, err := onnx.DetectRuntime(rt)
		if err != nil {
			return nil, err
		}

		runner, err := onnx.NewRunner("tashkeel", path, onnx.RunnerConfig{
			LibraryPath: info.LibraryPath,
			APIVersion:  rt.ORTAPIVersion,
			Input:       vocab.InputName,
			Output:      vocab.OutputName,
		})
		if err != nil {
			return nil, err
		}

		return New(NewONNXModel(runner), vocab), nil
	}
}

// Registry loads each model path at most once and shares the result.
type Registry struct {
	load   Loader
	logger *slog.Logger
	models memo.Map[string, *Diacritizer]
}

func NewRegistry(load Loader, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{load: load, logger: logger}
}

// Get returns the diacritizer for modelPath, loading it on first use.
func (r *Registry) Get(modelPath string) (*Diacritizer, error) {
	path := filepath.Clean(modelPath)

	return r.models.Get(path, func() (*Diacritizer, error) {
		d, err := r.load(path)
		if err != nil {
			r.logger.Error("diacritization model load failed", "path", path, "error", err)
			return nil, &ModelLoadError{Path: path, Err: err}
		}

		r.logger.Info("diacritization model loaded", "path", path)

		return d, nil
	})
}

// Restore diacritizes text with the model at modelPath.
func (r *Registry) Restore(ctx context.Context, text, modelPath string) (string, error) {
	d, err := r.Get(modelPath)
	if err != nil {
		return "", err
	}

	return d.Restore(ctx, text)
}

// Close releases every loaded model.
func (r *Registry) Close() error {
	var err error

	r.models.Range(func(_ string, d *Diacritizer) {
		err = multierr.Append(err, d.Close())
	})

	return err
}
