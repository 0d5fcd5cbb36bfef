package nn

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// Scaling selects the standard deviation InitPolicy uses for a Linear weight.
// It is fixed at the construction site of each layer.
type Scaling int

const (
	// ScaleStandard draws weights with the base standard deviation.
	ScaleStandard Scaling = iota
	// ScaleResidual marks a projection whose output is added straight into
	// the residual stream; its std is shrunk by (2 * num_layers)^-0.5.
	ScaleResidual
)

// String returns the scaling name.
func (s Scaling) String() string {
	switch s {
	case ScaleStandard:
		return "standard"
	case ScaleResidual:
		return "residual"
	default:
		return "unknown"
	}
}

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [..., in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the optional bias vector with shape [out_features]
//   - y is the output tensor with shape [..., out_features]
//
// Parameters are allocated zero-filled; InitPolicy assigns their values.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(768, 3072, true, nn.ScaleStandard, backend)
//	output := layer.Forward(input) // [B, T, 768] -> [B, T, 3072]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features], nil when disabled
	Scaling     Scaling
}

// NewLinear creates a new Linear layer.
//
// Parameters:
//   - inFeatures: Number of input features
//   - outFeatures: Number of output features
//   - useBias: Whether to allocate a bias vector
//   - scaling: Init scaling for the weight
//   - backend: Backend to use for tensor operations
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, useBias bool, scaling Scaling, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("Linear: features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	l := &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", tensor.Zeros[float32](tensor.Shape{outFeatures, inFeatures}, backend)),
		Scaling:     scaling,
	}
	if useBias {
		l.bias = NewParameter("bias", tensor.Zeros[float32](tensor.Shape{outFeatures}, backend))
	}
	return l
}

// NewLinearWithWeight creates a bias-free Linear layer around an existing
// weight parameter. The parameter is shared, not copied, which is how the
// output head is tied to the token embedding table.
func NewLinearWithWeight[B tensor.Backend](weight *Parameter[B], scaling Scaling) *Linear[B] {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Linear: weight must be 2D [out, in], got %v", shape))
	}
	return &Linear[B]{
		inFeatures:  shape[1],
		outFeatures: shape[0],
		weight:      weight,
		Scaling:     scaling,
	}
}

// Forward computes the output of the linear layer.
//
// Leading dimensions are flattened for the matrix multiply and restored
// afterwards, so both [N, in] and [B, T, in] inputs are accepted.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) == 0 || inputShape[len(inputShape)-1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input [..., %d], got shape %v", l.inFeatures, inputShape))
	}

	rows := input.NumElements() / l.inFeatures
	x2D := input
	if len(inputShape) != 2 {
		x2D = input.Reshape(rows, l.inFeatures)
	}

	// [rows, in] @ [in, out] = [rows, out]
	output := x2D.MatMul(l.weight.Tensor().T())

	if l.bias != nil {
		output = output.Add(l.bias.Tensor())
	}

	if len(inputShape) != 2 {
		outShape := append(inputShape[:len(inputShape)-1:len(inputShape)-1], l.outFeatures)
		output = output.Reshape(outShape...)
	}
	return output
}

// Parameters returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Register adds the layer's parameters to sd under prefix.
func (l *Linear[B]) Register(sd *StateDict[B], prefix string) {
	for _, p := range l.Parameters() {
		sd.Add(join(prefix, p.Name()), p)
	}
}

// Initialize draws the weight from N(0, std) where std depends on Scaling,
// and zeroes the bias.
func (l *Linear[B]) Initialize(p *InitPolicy) {
	p.Normal(l.weight.Tensor().Data(), p.StdFor(l.Scaling))
	if l.bias != nil {
		clear(l.bias.Tensor().Data())
	}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter, or nil.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}
