package nn

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// BlockConfig defines the shape of a transformer Block.
type BlockConfig struct {
	EmbedDim int     // d_model (e.g., 768 for GPT-2)
	NumHeads int     // Number of attention heads (e.g., 12 for GPT-2)
	NormEps  float32 // LayerNorm epsilon
}

// Block implements a pre-norm transformer block.
//
// Architecture:
//
//	x → LN1 → Attention → + → LN2 → MLP → + → output
//	│_____________________↑│_____________↑
//	      (residual)           (residual)
//
// Normalization is applied to each sub-layer's input, never to the
// residual sum.
type Block[B tensor.Backend] struct {
	Config BlockConfig
	LN1    *LayerNorm[B]
	Attn   *CausalSelfAttention[B]
	LN2    *LayerNorm[B]
	MLP    *MLP[B]
}

// NewBlock creates a transformer block that uses the shared causal mask.
func NewBlock[B tensor.Backend](config BlockConfig, mask *Parameter[B], backend B) *Block[B] {
	if config.EmbedDim <= 0 {
		panic(fmt.Sprintf("Block: embedDim must be positive, got %d", config.EmbedDim))
	}
	if config.NumHeads <= 0 {
		panic(fmt.Sprintf("Block: numHeads must be positive, got %d", config.NumHeads))
	}
	if config.NormEps <= 0 {
		panic(fmt.Sprintf("Block: normEps must be positive, got %g", config.NormEps))
	}

	return &Block[B]{
		Config: config,
		LN1:    NewLayerNorm(config.EmbedDim, config.NormEps, backend),
		Attn:   NewCausalSelfAttention(config.EmbedDim, config.NumHeads, mask, backend),
		LN2:    NewLayerNorm(config.EmbedDim, config.NormEps, backend),
		MLP:    NewMLP(config.EmbedDim, backend),
	}
}

// Forward computes [batch, seq, embed_dim] -> [batch, seq, embed_dim]:
//
//	x = x + Attn(LN1(x))
//	x = x + MLP(LN2(x))
func (b *Block[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	x = x.Add(b.Attn.Forward(b.LN1.Forward(x)))
	return x.Add(b.MLP.Forward(b.LN2.Forward(x)))
}

// Parameters returns all trainable parameters in construction order.
func (b *Block[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	params = append(params, b.LN1.Parameters()...)
	params = append(params, b.Attn.Parameters()...)
	params = append(params, b.LN2.Parameters()...)
	params = append(params, b.MLP.Parameters()...)
	return params
}

// Register adds the block's parameters and buffers to sd under prefix.
func (b *Block[B]) Register(sd *StateDict[B], prefix string) {
	b.LN1.Register(sd, join(prefix, "ln1"))
	b.Attn.Register(sd, join(prefix, "attn"))
	b.LN2.Register(sd, join(prefix, "ln2"))
	b.MLP.Register(sd, join(prefix, "mlp"))
}

// Initialize fills the attention and MLP projections.
// The LayerNorms keep their identity defaults.
func (b *Block[B]) Initialize(p *InitPolicy) {
	b.Attn.Initialize(p)
	b.MLP.Initialize(p)
}
