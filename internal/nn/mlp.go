package nn

import (
	"github.com/born-ml/gpt2/internal/tensor"
)

// MLP is the position-wise feed-forward network of a transformer block:
//
//	MLP(x) = DownProjection(GELU(UpProjection(x)))
//
// UpProjection widens C to 4C; DownProjection maps back to C and is built
// with ScaleResidual because its output joins the residual stream.
type MLP[B tensor.Backend] struct {
	UpProjection   *Linear[B] // [4C, C]
	Activation     *GELU[B]
	DownProjection *Linear[B] // [C, 4C]
}

// NewMLP creates the feed-forward network for embedding dimension embedDim.
func NewMLP[B tensor.Backend](embedDim int, backend B) *MLP[B] {
	hidden := 4 * embedDim
	return &MLP[B]{
		UpProjection:   NewLinear(embedDim, hidden, true, ScaleStandard, backend),
		Activation:     NewGELU[B](),
		DownProjection: NewLinear(hidden, embedDim, true, ScaleResidual, backend),
	}
}

// Forward computes [B, T, C] -> [B, T, C].
func (m *MLP[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.DownProjection.Forward(m.Activation.Forward(m.UpProjection.Forward(x)))
}

// Parameters returns the projection weights and biases.
func (m *MLP[B]) Parameters() []*Parameter[B] {
	params := m.UpProjection.Parameters()
	return append(params, m.DownProjection.Parameters()...)
}

// Register adds both projections to sd under prefix.
func (m *MLP[B]) Register(sd *StateDict[B], prefix string) {
	m.UpProjection.Register(sd, join(prefix, "up_projection"))
	m.DownProjection.Register(sd, join(prefix, "down_projection"))
}

// Initialize fills both projections.
func (m *MLP[B]) Initialize(p *InitPolicy) {
	m.UpProjection.Initialize(p)
	m.DownProjection.Initialize(p)
}
