package cpu

import (
	"math"

	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tensor"
)

// geluCoeff is sqrt(2/pi).
var geluCoeff = math.Sqrt(2 / math.Pi)

// GELU applies the tanh approximation of the Gaussian error linear unit:
//
//	0.5 * x * (1 + tanh(sqrt(2/pi) * (x + 0.044715 * x^3)))
func (cpu *CPUBackend) GELU(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("gelu", x, func(v float32) float32 {
		xf := float64(v)
		return float32(0.5 * xf * (1 + math.Tanh(geluCoeff*(xf+0.044715*xf*xf*xf))))
	})
}

// Softmax computes softmax along the specified dimension.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)) for all j in dimension.
//
// Subtracting the slice maximum keeps exp from overflowing; slices where
// every entry is -Inf produce zeros instead of NaN. Slices are independent
// and run in parallel.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	requireFloat32("softmax", x)
	shape := x.Shape()
	dim = shape.NormalizeDim(dim)

	result := cpu.alloc("softmax", shape, tensor.Float32)
	src, dst := x.AsFloat32(), result.AsFloat32()
	outer, size, inner := splitAround(shape, dim)

	parallel.ForBatch(outer, inner, func(o, n int) {
		base := o*size*inner + n

		maxVal := math.Inf(-1)
		for i := 0; i < size; i++ {
			maxVal = math.Max(maxVal, float64(src[base+i*inner]))
		}
		if math.IsInf(maxVal, -1) {
			for i := 0; i < size; i++ {
				dst[base+i*inner] = 0
			}
			return
		}

		sum := 0.0
		for i := 0; i < size; i++ {
			e := math.Exp(float64(src[base+i*inner]) - maxVal)
			dst[base+i*inner] = float32(e)
			sum += e
		}
		for i := 0; i < size; i++ {
			dst[base+i*inner] = float32(float64(dst[base+i*inner]) / sum)
		}
	}, cpu.parallel)

	return result
}
