// Package nn implements the layers of a GPT-2 style transformer.
//
// The layer set is closed and small:
//   - Linear: fully connected layer with an explicit init Scaling
//   - LayerNorm: normalization over the feature dimension
//   - Embedding: lookup table for token and position vectors
//   - CausalSelfAttention: multi-head masked self-attention
//   - MLP: position-wise feed-forward network with GELU
//   - Block: pre-norm transformer block
//
// Every layer registers its parameters in a StateDict under hierarchical
// names, which is what initialization and checkpoint import operate on.
package nn

import (
	"github.com/born-ml/gpt2/internal/tensor"
)

// Module is the common interface of all layers that map a float tensor to a
// float tensor.
//
// Every NN module must implement:
//   - Forward: Compute output from input
//   - Parameters: Return all trainable parameters
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module in
	// construction order. Buffers are not included.
	Parameters() []*Parameter[B]
}

// Registrar is implemented by layers that can add their parameters and
// buffers to a StateDict under a name prefix.
type Registrar[B tensor.Backend] interface {
	Register(sd *StateDict[B], prefix string)
}

// Initializable is implemented by layers that InitPolicy knows how to fill.
// Composite layers forward the call to their children in construction order.
type Initializable interface {
	Initialize(p *InitPolicy)
}

// join builds a hierarchical parameter name.
func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
