package cpu

import (
	"math"

	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tensor"
)

// elementwiseChunk is the smallest slice of a unary op handed to a worker.
const elementwiseChunk = 1 << 14

// Exp computes element-wise exponential: exp(x).
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("exp", x, func(v float32) float32 {
		return float32(math.Exp(float64(v)))
	})
}

// Log computes element-wise natural logarithm: ln(x).
// Non-positive inputs follow math.Log (-Inf for 0, NaN below).
func (cpu *CPUBackend) Log(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("log", x, func(v float32) float32 {
		return float32(math.Log(float64(v)))
	})
}

// Sqrt computes element-wise square root.
func (cpu *CPUBackend) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("sqrt", x, func(v float32) float32 {
		return float32(math.Sqrt(float64(v)))
	})
}

// Rsqrt computes element-wise reciprocal square root: 1/sqrt(x).
func (cpu *CPUBackend) Rsqrt(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("rsqrt", x, func(v float32) float32 {
		return float32(1 / math.Sqrt(float64(v)))
	})
}

// Tanh computes element-wise hyperbolic tangent.
func (cpu *CPUBackend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return cpu.unary("tanh", x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

func (cpu *CPUBackend) unary(op string, x *tensor.RawTensor, f func(float32) float32) *tensor.RawTensor {
	requireFloat32(op, x)
	result := cpu.alloc(op, x.Shape(), tensor.Float32)
	src, dst := x.AsFloat32(), result.AsFloat32()

	cfg := cpu.parallel
	cfg.MinChunkSize = max(cfg.MinChunkSize, elementwiseChunk)
	parallel.ForRange(len(src), func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = f(src[i])
		}
	}, cfg)
	return result
}
