package nn

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// DefaultNormEps is the LayerNorm epsilon used by GPT-2.
const DefaultNormEps = 1e-5

// LayerNorm applies Layer Normalization over an input tensor along the last dimension.
//
// Formula: Y = scale * (X - mean(X)) / sqrt(var(X) + eps) + shift
//
// The variance is the biased (population) variance. Scale starts at one and
// shift at zero; InitPolicy leaves both untouched.
//
// Example:
//
//	ln := nn.NewLayerNorm(768, nn.DefaultNormEps, backend)
//	output := ln.Forward(hidden) // [..., 768] -> [..., 768]
type LayerNorm[B tensor.Backend] struct {
	Scale   *Parameter[B] // learnable scale [d_model]
	Shift   *Parameter[B] // learnable shift [d_model]
	Epsilon float32       // numerical stability constant
}

// NewLayerNorm creates a new LayerNorm layer over a feature dimension of
// size normalizedShape.
func NewLayerNorm[B tensor.Backend](normalizedShape int, epsilon float32, backend B) *LayerNorm[B] {
	if normalizedShape <= 0 {
		panic(fmt.Sprintf("LayerNorm: normalized shape must be positive, got %d", normalizedShape))
	}
	return &LayerNorm[B]{
		Scale:   NewParameter("scale", tensor.Ones[float32](tensor.Shape{normalizedShape}, backend)),
		Shift:   NewParameter("shift", tensor.Zeros[float32](tensor.Shape{normalizedShape}, backend)),
		Epsilon: epsilon,
	}
}

// Forward applies LayerNorm to the input tensor.
//
// Algorithm:
//  1. mean = mean(x) along last dimension (keepdim=true)
//  2. centered = x - mean
//  3. variance = mean(centered^2) along last dimension
//  4. norm = centered * rsqrt(variance + epsilon)
//  5. output = scale * norm + shift
func (l *LayerNorm[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != l.Scale.Shape()[0] {
		panic(fmt.Sprintf("LayerNorm.Forward: expected input [..., %d], got shape %v", l.Scale.Shape()[0], shape))
	}

	mean := x.MeanDim(-1, true)
	centered := x.Sub(mean)
	variance := centered.Mul(centered).MeanDim(-1, true)
	norm := centered.Mul(variance.AddScalar(l.Epsilon).Rsqrt())

	// [..., d_model] * [d_model] broadcasts over the leading dims.
	return norm.Mul(l.Scale.Tensor()).Add(l.Shift.Tensor())
}

// Parameters returns the learnable parameters (scale and shift).
func (l *LayerNorm[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.Scale, l.Shift}
}

// Register adds scale and shift to sd under prefix.
func (l *LayerNorm[B]) Register(sd *StateDict[B], prefix string) {
	sd.Add(join(prefix, "scale"), l.Scale)
	sd.Add(join(prefix, "shift"), l.Shift)
}
