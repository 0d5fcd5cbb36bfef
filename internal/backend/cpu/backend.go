// Package cpu implements the CPU backend with gonum BLAS matrix multiply.
//
// All arithmetic kernels operate on float32 data; int32 tensors are accepted
// wherever an operation only moves data (reshape, transpose, chunk) and as
// embedding indices. Every operation allocates its result, inputs are never
// modified.
package cpu

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tensor"
)

var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend implements tensor operations on CPU.
type CPUBackend struct {
	device   tensor.Device
	parallel parallel.Config
}

// New creates a new CPU backend that parallelises batched kernels across
// all available cores.
func New() *CPUBackend {
	return NewWithConfig(parallel.DefaultConfig())
}

// NewWithConfig creates a CPU backend with an explicit parallelism config.
// parallel.Sequential() gives a single-threaded backend.
func NewWithConfig(cfg parallel.Config) *CPUBackend {
	return &CPUBackend{
		device:   tensor.CPU,
		parallel: cfg,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

func (cpu *CPUBackend) binary(op string, a, b *tensor.RawTensor, f func(x, y float32) float32) *tensor.RawTensor {
	requireFloat32(op, a)
	requireFloat32(op, b)

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", op, err))
	}

	result := cpu.alloc(op, outShape, tensor.Float32)
	dst := result.AsFloat32()
	aData, bData := a.AsFloat32(), b.AsFloat32()

	if !needsBroadcast {
		for i := range dst {
			dst[i] = f(aData[i], bData[i])
		}
		return result
	}

	// Fast path for the common [..., N] op [N] bias pattern.
	if len(b.Shape()) == 1 && b.Shape()[0] == outShape[len(outShape)-1] && a.Shape().Equal(outShape) {
		n := len(bData)
		for i := range dst {
			dst[i] = f(aData[i], bData[i%n])
		}
		return result
	}

	outStrides := outShape.ComputeStrides()
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)
	for i := range dst {
		dst[i] = f(
			aData[computeFlatIndex(i, outStrides, aStrides)],
			bData[computeFlatIndex(i, outStrides, bStrides)],
		)
	}
	return result
}

func (cpu *CPUBackend) alloc(op string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", op, err))
	}
	return result
}

func requireFloat32(op string, x *tensor.RawTensor) {
	if x.DType() != tensor.Float32 {
		panic(fmt.Sprintf("%s: unsupported dtype %s (only float32 supported)", op, x.DType()))
	}
}
