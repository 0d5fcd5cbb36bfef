package cpu

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tensor"
)

// BatchMatMul performs batched matrix multiplication.
// Supports 3D and 4D tensors with batch dimensions.
//
// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
//
// The last two dimensions are treated as matrix dimensions.
// All leading dimensions must match. Each matrix in the batch is
// multiplied independently, so the batch is split across goroutines.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape := a.Shape()
	bShape := b.Shape()
	ndim := len(aShape)

	if ndim < 3 {
		panic(fmt.Sprintf("BatchMatMul: inputs must be at least 3D, got %dD", ndim))
	}
	if len(bShape) != ndim {
		panic(fmt.Sprintf("BatchMatMul: dimension mismatch, got %dD and %dD", ndim, len(bShape)))
	}
	requireFloat32("BatchMatMul", a)
	requireFloat32("BatchMatMul", b)

	for i := 0; i < ndim-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("BatchMatMul: batch dimension mismatch at dim %d: %d vs %d", i, aShape[i], bShape[i]))
		}
	}

	m := aShape[ndim-2]
	k1 := aShape[ndim-1]
	k2 := bShape[ndim-2]
	n := bShape[ndim-1]

	if k1 != k2 {
		panic(fmt.Sprintf("BatchMatMul: inner dimension mismatch: %d vs %d", k1, k2))
	}

	batchSize := 1
	for i := 0; i < ndim-2; i++ {
		batchSize *= aShape[i]
	}

	outShape := make(tensor.Shape, ndim)
	copy(outShape, aShape[:ndim-2])
	outShape[ndim-2] = m
	outShape[ndim-1] = n

	result := cpu.alloc("BatchMatMul", outShape, tensor.Float32)

	c, aData, bData := result.AsFloat32(), a.AsFloat32(), b.AsFloat32()
	sizeA, sizeB, sizeC := m*k1, k1*n, m*n
	parallel.For(batchSize, func(i int) {
		gemm(c[i*sizeC:(i+1)*sizeC], aData[i*sizeA:(i+1)*sizeA], bData[i*sizeB:(i+1)*sizeB], m, k1, n)
	}, cpu.parallel)

	return result
}
