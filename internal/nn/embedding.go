package nn

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// Embedding is a lookup table that maps discrete indices to dense vectors.
//
// Architecture:
//   - Weight: [NumEmbed, EmbedDim] learnable parameter
//   - Forward: indices [batch, seq] -> embeddings [batch, seq, EmbedDim]
//
// Example:
//
//	embed := nn.NewEmbedding[B](50257, 768, backend)
//	ids := tensor.MustFromSlice([]int32{15496, 11}, tensor.Shape{1, 2}, backend)
//	vectors := embed.Forward(ids) // [1, 2, 768]
type Embedding[B tensor.Backend] struct {
	Weight   *Parameter[B] // Embedding weight matrix [NumEmbed, EmbedDim]
	NumEmbed int           // Number of embeddings (vocabulary size)
	EmbedDim int           // Embedding dimension (vector size)
}

// NewEmbedding creates a zero-filled Embedding layer.
// InitPolicy assigns the initial values.
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B) *Embedding[B] {
	if numEmbeddings <= 0 || embeddingDim <= 0 {
		panic(fmt.Sprintf("Embedding: sizes must be positive, got %dx%d", numEmbeddings, embeddingDim))
	}
	weight := tensor.Zeros[float32](tensor.Shape{numEmbeddings, embeddingDim}, backend)
	return &Embedding[B]{
		Weight:   NewParameter("weight", weight),
		NumEmbed: numEmbeddings,
		EmbedDim: embeddingDim,
	}
}

// Forward looks up the vectors for indices.
// Output shape is indices.Shape() + [EmbedDim].
//
// Panics if any index is outside [0, NumEmbed).
func (e *Embedding[B]) Forward(indices *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.Weight.Tensor().Embedding(indices)
}

// Parameters returns the embedding table.
func (e *Embedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.Weight}
}

// Register adds the table to sd under prefix.
func (e *Embedding[B]) Register(sd *StateDict[B], prefix string) {
	sd.Add(join(prefix, "weight"), e.Weight)
}

// Initialize draws every entry from N(0, base std).
func (e *Embedding[B]) Initialize(p *InitPolicy) {
	p.Normal(e.Weight.Tensor().Data(), p.StdFor(ScaleStandard))
}
