package nn

import (
	"github.com/born-ml/gpt2/internal/tensor"
)

// GELU applies the tanh approximation of the Gaussian Error Linear Unit:
//
//	GELU(x) = 0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 * x^3)))
//
// This is the variant GPT-2 was trained with; it differs slightly from the
// exact erf form.
type GELU[B tensor.Backend] struct{}

// NewGELU creates a new GELU activation.
func NewGELU[B tensor.Backend]() *GELU[B] {
	return &GELU[B]{}
}

// Forward applies GELU element-wise.
func (g *GELU[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return x.GELU()
}

// Parameters returns nil (activations have no parameters).
func (g *GELU[B]) Parameters() []*Parameter[B] {
	return nil
}
