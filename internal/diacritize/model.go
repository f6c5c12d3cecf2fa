package diacritize

import (
	"context"
	"fmt"

	"github.com/example/go-piper-phonemize/internal/onnx"
)

// Model predicts one diacritic class per input position.
type Model interface {
	Predict(ctx context.Context, ids []int64) ([]int, error)
	Close() error
}

// ONNXModel runs a character-level tashkeel graph. The graph takes an int64
// [1,T] input and returns either float32 logits [1,T,C] or int64 classes [1,T].
type ONNXModel struct {
	runner onnx.GraphRunner
}

func NewONNXModel(runner onnx.GraphRunner) *ONNXModel {
	return &ONNXModel{runner: runner}
}

func (m *ONNXModel) Predict(ctx context.Context, ids []int64) ([]int, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	out, err := m.runner.Run(ctx, ids)
	if err != nil {
		return nil, err
	}

	classes, err := decodeClasses(out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.runner.Name(), err)
	}

	if len(classes) != len(ids) {
		return nil, fmt.Errorf("%s: got %d predictions for %d inputs", m.runner.Name(), len(classes), len(ids))
	}

	return classes, nil
}

func (m *ONNXModel) Close() error {
	m.runner.Close()
	return nil
}

func decodeClasses(t *onnx.Tensor) ([]int, error) {
	shape := t.Shape()

	switch t.DType() {
	case onnx.DTypeInt64:
		data, err := onnx.ExtractInt64(t)
		if err != nil {
			return nil, err
		}

		classes := make([]int, len(data))
		for i, c := range data {
			classes[i] = int(c)
		}

		return classes, nil
	case onnx.DTypeFloat32:
		if len(shape) != 3 || shape[2] < 1 {
			return nil, fmt.Errorf("logits shape %v, want [1 T C]", shape)
		}

		data, err := onnx.ExtractFloat32(t)
		if err != nil {
			return nil, err
		}

		return argmax(data, int(shape[2])), nil
	default:
		return nil, fmt.Errorf("unsupported output dtype %s", t.DType())
	}
}

// argmax picks the highest-scoring class per row of width n.
func argmax(logits []float32, n int) []int {
	rows := len(logits) / n
	out := make([]int, rows)

	for r := range rows {
		row := logits[r*n : (r+1)*n]
		best := 0

		for c := 1; c < n; c++ {
			if row[c] > row[best] {
				best = c
			}
		}

		out[r] = best
	}

	return out
}
