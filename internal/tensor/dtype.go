// Package tensor provides the core tensor types used by the GPT-2 model.
package tensor

import "fmt"

// DType constrains tensor element types. Activations and weights are
// float32; token ids and targets are int32.
type DType interface {
	~float32 | ~int32
}

// DataType is the runtime tag of a tensor's element type.
type DataType int

// Element types.
const (
	Float32 DataType = iota
	Int32
)

// Size returns the byte width of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	default:
		panic(fmt.Sprintf("tensor: unknown data type %d", int(dt)))
	}
}

func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Int32:
		return "int32"
	default:
		return "unknown"
	}
}

func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float32:
		return Float32
	case int32:
		return Int32
	default:
		panic(fmt.Sprintf("tensor: unsupported element type %T", dummy))
	}
}
