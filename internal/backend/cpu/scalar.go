package cpu

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat32("MulScalar", scalar)
	return cpu.unary("MulScalar", x, func(v float32) float32 { return v * s })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	s := toFloat32("AddScalar", scalar)
	return cpu.unary("AddScalar", x, func(v float32) float32 { return v + s })
}

func toFloat32(op string, scalar any) float32 {
	switch s := scalar.(type) {
	case float32:
		return s
	case float64:
		return float32(s)
	case int:
		return float32(s)
	case int32:
		return float32(s)
	case int64:
		return float32(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", op, scalar))
	}
}
