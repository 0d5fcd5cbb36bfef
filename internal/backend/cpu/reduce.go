package cpu

import (
	"github.com/born-ml/gpt2/internal/tensor"
)

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - x: input tensor
//   - dim: dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: if true, keep the reduced dimension with size 1
//
// Example:
//
//	x := [[1, 2, 3], [4, 5, 6]]  // shape [2, 3]
//	SumDim(x, -1, true)   // [[6], [15]]  shape [2, 1]
//	SumDim(x, -1, false)  // [6, 15]      shape [2]
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	return cpu.reduce("SumDim", x, dim, keepDim, 1)
}

// MeanDim computes the mean along the specified dimension.
func (cpu *CPUBackend) MeanDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	size := shape[shape.NormalizeDim(dim)]
	return cpu.reduce("MeanDim", x, dim, keepDim, 1/float64(size))
}

func (cpu *CPUBackend) reduce(op string, x *tensor.RawTensor, dim int, keepDim bool, scale float64) *tensor.RawTensor {
	requireFloat32(op, x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := cpu.alloc(op, outShape, tensor.Float32)
	src, dst := x.AsFloat32(), result.AsFloat32()
	outer, size, inner := splitAround(shape, dim)

	// Accumulate in float64 so long rows do not lose precision.
	for o := 0; o < outer; o++ {
		for n := 0; n < inner; n++ {
			base := o*size*inner + n
			sum := 0.0
			for i := 0; i < size; i++ {
				sum += float64(src[base+i*inner])
			}
			dst[o*inner+n] = float32(sum * scale)
		}
	}

	return result
}
