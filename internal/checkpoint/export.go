package checkpoint

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/nn"
	"github.com/born-ml/gpt2/internal/tensor"
)

// Export converts sd into a foreign checkpoint under conv. It is the
// inverse of Import: transposed weights are transposed back and the tied
// head is written only when the source stores it. Buffers are omitted.
//
// The returned tensors are copies; mutating them does not touch the model.
func Export[B tensor.Backend](sd *nn.StateDict[B], conv *Convention) (map[string]*tensor.RawTensor, error) {
	names := localNames(sd, conv)
	out := make(map[string]*tensor.RawTensor, len(names))

	for _, local := range names {
		foreign, ok := conv.ForeignName(local)
		if !ok {
			return nil, &AlignmentError{
				Kind:    ErrUnknownParameter,
				Name:    local,
				Details: fmt.Sprintf("no %s name for model parameter", conv.Source),
			}
		}
		p, _ := sd.Get(local)
		src := p.Tensor().Raw()

		if !conv.IsTransposed(foreign) {
			out[foreign] = src.Clone()
			continue
		}

		shape := src.Shape()
		if len(shape) != 2 {
			return nil, &AlignmentError{
				Kind:    ErrShapeMismatch,
				Name:    local,
				Details: fmt.Sprintf("cannot transpose %v", shape),
			}
		}
		dst := tensor.MustNewRaw(shape.Reverse(), tensor.Float32, src.Device())
		transpose2D(dst.AsFloat32(), src.AsFloat32(), shape[0], shape[1])
		out[foreign] = dst
	}
	return out, nil
}
