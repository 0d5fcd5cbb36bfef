package cpu

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// Chunk splits x into n equal parts along dim.
// The dimension size must be divisible by n.
//
// Example: a [B, T, 3C] projection chunked into 3 along dim 2 gives
// three [B, T, C] tensors.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	if n <= 0 {
		panic(fmt.Sprintf("chunk: n must be positive, got %d", n))
	}
	if shape[dim]%n != 0 {
		panic(fmt.Sprintf("chunk: dimension %d (size %d) not divisible by %d", dim, shape[dim], n))
	}

	outer, size, inner := splitAround(shape, dim)
	chunkSize := size / n
	elem := x.DType().Size()
	rowBytes := chunkSize * inner * elem
	src := x.Data()

	chunkShape := shape.Clone()
	chunkShape[dim] = chunkSize

	results := make([]*tensor.RawTensor, n)
	for c := 0; c < n; c++ {
		out := cpu.alloc("chunk", chunkShape, x.DType())
		dst := out.Data()
		for o := 0; o < outer; o++ {
			srcStart := ((o*size + c*chunkSize) * inner) * elem
			copy(dst[o*rowBytes:(o+1)*rowBytes], src[srcStart:srcStart+rowBytes])
		}
		results[c] = out
	}
	return results
}
