package model

import (
	"context"

	"github.com/menta2k/region-tensor/pkg/types"
)

// Model is the inference boundary: one canonical tensor in, one out.
// Implementations may block; they should honour ctx cancellation.
type Model interface {
	Infer(ctx context.Context, in types.Tensor) (types.Tensor, error)
}

// Func adapts a plain function to the Model interface
type Func func(ctx context.Context, in types.Tensor) (types.Tensor, error)

// Infer calls f
func (f Func) Infer(ctx context.Context, in types.Tensor) (types.Tensor, error) {
	return f(ctx, in)
}

// Identity returns its input unchanged
var Identity Model = Func(func(ctx context.Context, in types.Tensor) (types.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return in.Clone(), nil
})

// Invert returns 1-v for every sample
var Invert Model = Func(func(ctx context.Context, in types.Tensor) (types.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make(types.Tensor, len(in))
	for i, v := range in {
		out[i] = 1 - v
	}
	return out, nil
})
