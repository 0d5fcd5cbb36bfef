package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/gpt2/internal/tensor"
)

// CausalSelfAttention implements masked multi-head self-attention.
//
// Architecture:
//
//	qkv = InputProjection(x)                 [B, T, 3C]
//	q, k, v = split(qkv)                     3 x [B, T, C]
//	q, k, v -> [B, H, T, D]                  D = C / H
//	y = softmax(q k^T / sqrt(D) + mask) v    [B, H, T, D]
//	y -> [B, T, C]
//	out = OutputProjection(y)                [B, T, C]
//
// The output projection feeds the residual stream and is built with
// ScaleResidual. The causal mask is a buffer shared by every layer of a
// model; it is never trained or imported.
type CausalSelfAttention[B tensor.Backend] struct {
	InputProjection  *Linear[B] // [3C, C]
	OutputProjection *Linear[B] // [C, C]
	Mask             *Parameter[B]
	NumHeads         int
	HeadDim          int
	EmbedDim         int
}

// NewCausalSelfAttention creates the attention layer.
//
// Parameters:
//   - embedDim: Embedding dimension C (must be divisible by numHeads)
//   - numHeads: Number of attention heads H
//   - mask: Causal mask buffer of shape [1, 1, block, block] (see CausalMask)
//   - backend: Computation backend
func NewCausalSelfAttention[B tensor.Backend](embedDim, numHeads int, mask *Parameter[B], backend B) *CausalSelfAttention[B] {
	if numHeads <= 0 || embedDim%numHeads != 0 {
		panic(fmt.Sprintf("CausalSelfAttention: embed_dim (%d) must be divisible by num_heads (%d)", embedDim, numHeads))
	}
	if s := mask.Shape(); len(s) != 4 || s[0] != 1 || s[1] != 1 || s[2] != s[3] {
		panic(fmt.Sprintf("CausalSelfAttention: mask must be [1, 1, n, n], got %v", s))
	}

	return &CausalSelfAttention[B]{
		InputProjection:  NewLinear(embedDim, 3*embedDim, true, ScaleStandard, backend),
		OutputProjection: NewLinear(embedDim, embedDim, true, ScaleResidual, backend),
		Mask:             mask,
		NumHeads:         numHeads,
		HeadDim:          embedDim / numHeads,
		EmbedDim:         embedDim,
	}
}

// Forward computes causal self-attention: [B, T, C] -> [B, T, C].
func (a *CausalSelfAttention[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	out, _ := a.ForwardWithWeights(x)
	return out
}

// ForwardWithWeights is Forward that also returns the attention
// probabilities [B, H, T, T]. Row t is zero beyond column t.
func (a *CausalSelfAttention[B]) ForwardWithWeights(
	x *tensor.Tensor[float32, B],
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != a.EmbedDim {
		panic(fmt.Sprintf("CausalSelfAttention.Forward: expected [batch, seq, %d], got %v", a.EmbedDim, shape))
	}
	batch, seq := shape[0], shape[1]

	qkv := a.InputProjection.Forward(x).Chunk(3, -1)
	q := a.splitHeads(qkv[0], batch, seq)
	k := a.splitHeads(qkv[1], batch, seq)
	v := a.splitHeads(qkv[2], batch, seq)

	scale := float32(1.0 / math.Sqrt(float64(a.HeadDim)))
	y, weights := ScaledDotProductAttention(q, k, v, maskWindow(a.Mask.Tensor(), seq), scale)

	// [B, H, T, D] -> [B, T, H, D] -> [B, T, C]
	y = y.Transpose(0, 2, 1, 3).Reshape(batch, seq, a.EmbedDim)

	return a.OutputProjection.Forward(y), weights
}

// splitHeads reshapes [B, T, C] to [B, H, T, D].
func (a *CausalSelfAttention[B]) splitHeads(x *tensor.Tensor[float32, B], batch, seq int) *tensor.Tensor[float32, B] {
	return x.Reshape(batch, seq, a.NumHeads, a.HeadDim).Transpose(0, 2, 1, 3)
}

// Parameters returns the projection weights and biases.
func (a *CausalSelfAttention[B]) Parameters() []*Parameter[B] {
	params := a.InputProjection.Parameters()
	return append(params, a.OutputProjection.Parameters()...)
}

// Register adds the projections and the mask buffer to sd under prefix.
func (a *CausalSelfAttention[B]) Register(sd *StateDict[B], prefix string) {
	a.InputProjection.Register(sd, join(prefix, "input_projection"))
	a.OutputProjection.Register(sd, join(prefix, "output_projection"))
	sd.AddBuffer(join(prefix, "mask"), a.Mask)
}

// Initialize fills both projections.
func (a *CausalSelfAttention[B]) Initialize(p *InitPolicy) {
	a.InputProjection.Initialize(p)
	a.OutputProjection.Initialize(p)
}
