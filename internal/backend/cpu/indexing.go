package cpu

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// Embedding performs an embedding lookup.
// weight: [numEmbeddings, embeddingDim]
// indices: int32 tensor of any shape
// Returns: [...indices.shape, embeddingDim].
//
// Panics if any index is outside [0, numEmbeddings).
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D [num_embeddings, embedding_dim], got %v", wShape))
	}
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: indices must be int32, got %s", indices.DType()))
	}
	requireFloat32("embedding", weight)

	numEmbeddings, embeddingDim := wShape[0], wShape[1]

	outShape := append(indices.Shape().Clone(), embeddingDim)
	result := cpu.alloc("embedding", outShape, tensor.Float32)

	table, dst := weight.AsFloat32(), result.AsFloat32()
	for i, idx := range indices.AsInt32() {
		if idx < 0 || int(idx) >= numEmbeddings {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", idx, numEmbeddings))
		}
		row := int(idx) * embeddingDim
		copy(dst[i*embeddingDim:(i+1)*embeddingDim], table[row:row+embeddingDim])
	}

	return result
}
