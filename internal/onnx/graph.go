package onnx

import "context"

// GraphRunner runs a character-level graph: one int64 [1,T] sequence in,
// one prediction tensor out. Runner implements it over ONNX Runtime.
type GraphRunner interface {
	Run(ctx context.Context, ids []int64) (*Tensor, error)
	Name() string
	Close()
}
