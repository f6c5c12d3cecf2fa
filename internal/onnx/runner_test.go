package onnx

import (
	"context"
	"testing"

	"github.com/example/go-piper-phonemize/internal/config"
	"github.com/example/go-piper-phonemize/internal/testutil"
)

func TestPickTensor(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		names   []string
		got     string
		wantErr bool
	}{
		{"exact", "logits", []string{"classes", "logits"}, "logits", false},
		{"single fallback", "logits", []string{"output_0"}, "output_0", false},
		{"ambiguous", "logits", []string{"a", "b"}, "", true},
		{"empty graph", "char_inputs", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickTensor("output", tt.want, tt.names)
			if (err != nil) != tt.wantErr {
				t.Fatalf("pickTensor error = %v; wantErr %v", err, tt.wantErr)
			}

			if got != tt.got {
				t.Errorf("pickTensor = %q; want %q", got, tt.got)
			}
		})
	}
}

func TestNewRunnerBadLibrary(t *testing.T) {
	_, err := NewRunner("tashkeel", "/nonexistent/model.onnx", RunnerConfig{
		LibraryPath: "/nonexistent/libonnxruntime.so",
	})
	if err == nil {
		t.Fatal("expected error for missing ORT library")
	}
}

func TestRunnerDiacritizerModel(t *testing.T) {
	testutil.RequireONNXRuntime(t)
	modelPath := testutil.RequireDiacritizerModel(t)

	info, err := DetectRuntime(config.RuntimeConfig{})
	if err != nil {
		t.Skipf("ONNX Runtime library not detected: %v", err)
	}

	runner, err := NewRunner("tashkeel", modelPath, RunnerConfig{
		LibraryPath: info.LibraryPath,
		Input:       "char_inputs",
		Output:      "logits",
	})
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	defer runner.Close()

	out, err := runner.Run(context.Background(), []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if shape := out.Shape(); len(shape) < 2 || shape[1] != 3 {
		t.Errorf("output shape = %v; want [1 3 ...]", shape)
	}

	runner.Close()
	runner.Close()
}
