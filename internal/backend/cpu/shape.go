package cpu

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// Reshape returns a copy of x with a new shape.
// A single -1 dimension is inferred from the element count.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	shape := newShape.Clone()
	infer := -1
	known := 1
	for i, d := range shape {
		if d == -1 {
			if infer >= 0 {
				panic(fmt.Sprintf("reshape: only one dimension can be inferred, got %v", newShape))
			}
			infer = i
			continue
		}
		known *= d
	}
	if infer >= 0 {
		if known <= 0 || x.NumElements()%known != 0 {
			panic(fmt.Sprintf("reshape: cannot infer dimension of %v for %d elements", newShape, x.NumElements()))
		}
		shape[infer] = x.NumElements() / known
	}

	result, err := x.WithShape(shape)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose permutes the dimensions of x.
// With no axes the last two dimensions are swapped.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		if ndim < 2 {
			panic(fmt.Sprintf("transpose: need at least 2 dimensions, got %dD", ndim))
		}
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = i
		}
		axes[ndim-1], axes[ndim-2] = axes[ndim-2], axes[ndim-1]
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		ax = shape.NormalizeDim(ax)
		if seen[ax] {
			panic(fmt.Sprintf("transpose: repeated axis %d in %v", ax, axes))
		}
		seen[ax] = true
		axes[i] = ax
		outShape[i] = shape[ax]
	}

	result := cpu.alloc("transpose", outShape, x.DType())

	elem := x.DType().Size()
	src, dst := x.Data(), result.Data()
	inStrides := x.Strides()

	// Source strides reordered to follow the output's dimension order.
	permStrides := make([]int, ndim)
	for i, ax := range axes {
		permStrides[i] = inStrides[ax]
	}

	coord := make([]int, ndim)
	srcIdx := 0
	for outIdx := 0; outIdx < result.NumElements(); outIdx++ {
		copy(dst[outIdx*elem:(outIdx+1)*elem], src[srcIdx*elem:(srcIdx+1)*elem])

		// Advance the output coordinate like an odometer.
		for d := ndim - 1; d >= 0; d-- {
			coord[d]++
			srcIdx += permStrides[d]
			if coord[d] < outShape[d] {
				break
			}
			srcIdx -= coord[d] * permStrides[d]
			coord[d] = 0
		}
	}

	return result
}
