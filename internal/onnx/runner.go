package onnx

import (
	"context"
	"fmt"
	"slices"
	"strings"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
)

// RunnerConfig holds the ORT library and the graph tensors a tashkeel
// session reads and writes.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
	// Input names the int64 [1,T] character-id tensor and Output the
	// per-character prediction. A graph with a single input or output
	// uses it whatever it is called.
	Input  string
	Output string
}

// Runner feeds character-id sequences through one ONNX graph.
type Runner struct {
	name    string
	input   string
	output  string
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

var _ GraphRunner = (*Runner)(nil)

// NewRunner loads the model at path and resolves its input and output
// tensors against cfg.
func NewRunner(name, path string, cfg RunnerConfig) (*Runner, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = 23
	}

	r := &Runner{name: name}

	var err error

	r.runtime, err = ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime for %s: %w", name, err)
	}

	r.env, err = r.runtime.NewEnv("phonemize-"+name, ort.LoggingLevelWarning)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("ort env for %s: %w", name, err)
	}

	r.session, err = r.runtime.NewSession(r.env, path, nil)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("load %s model %s: %w", name, path, err)
	}

	r.input, err = pickTensor("input", cfg.Input, r.session.InputNames())
	if err == nil {
		r.output, err = pickTensor("output", cfg.Output, r.session.OutputNames())
	}

	if err != nil {
		r.Close()
		return nil, fmt.Errorf("%s model %s: %w", name, path, err)
	}

	return r, nil
}

// pickTensor resolves a configured tensor name among the graph's names.
func pickTensor(kind, want string, names []string) (string, error) {
	if slices.Contains(names, want) {
		return want, nil
	}

	if len(names) == 1 {
		return names[0], nil
	}

	return "", fmt.Errorf("graph has no %s %q (has %s)", kind, want, strings.Join(names, ", "))
}

// Run feeds ids as a [1,len(ids)] batch and returns the output tensor.
func (r *Runner) Run(ctx context.Context, ids []int64) (*Tensor, error) {
	in, err := ort.NewTensorValue(r.runtime, ids, []int64{1, int64(len(ids))})
	if err != nil {
		return nil, fmt.Errorf("%s input: %w", r.name, err)
	}
	defer in.Close()

	outs, err := r.session.Run(ctx, map[string]*ort.Value{r.input: in}, ort.WithOutputNames(r.output))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", r.name, err)
	}

	defer func() {
		for _, v := range outs {
			if v != nil {
				v.Close()
			}
		}
	}()

	v := outs[r.output]
	if v == nil {
		return nil, fmt.Errorf("run %s: output %q not produced", r.name, r.output)
	}

	return fromORT(v)
}

// Close releases all ORT resources. Safe to call multiple times.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}

	if r.env != nil {
		r.env.Close()
		r.env = nil
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
		r.runtime = nil
	}
}

func (r *Runner) Name() string { return r.name }

// fromORT copies a prediction out of ORT memory: float32 logits or int64
// class ids.
func fromORT(v *ort.Value) (*Tensor, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("output element type: %w", err)
	}

	switch elemType {
	case ort.ONNXTensorElementDataTypeFloat:
		data, shape, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	case ort.ONNXTensorElementDataTypeInt64:
		data, shape, err := ort.GetTensorData[int64](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	default:
		return nil, fmt.Errorf("output element type %d is neither float32 nor int64", elemType)
	}
}
