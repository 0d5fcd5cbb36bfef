package checkpoint

import (
	"fmt"
	"slices"

	"github.com/born-ml/gpt2/internal/nn"
	"github.com/born-ml/gpt2/internal/tensor"
)

// copyStep is one verified assignment, applied only after every check passed.
type copyStep[B tensor.Backend] struct {
	name      string
	src       *tensor.RawTensor
	dst       *nn.Parameter[B]
	transpose bool
}

// Import copies a foreign checkpoint into the parameters of sd in place.
//
// Steps:
//  1. Local names: every trainable entry (buffers excluded; the tied head
//     alias excluded when the source omits it).
//  2. Foreign names: every entry the convention does not mark as a buffer.
//  3. The two counts must agree (ErrParameterCount).
//  4. Each foreign name must map to a distinct local name (ErrUnknownParameter).
//  5. Shapes must match, reversed for transposed weights (ErrShapeMismatch),
//     and values must be float32 (ErrUnsupportedDType).
//  6. Entries sharing one parameter (the head and the token table) must
//     hold equal values (ErrTiedMismatch).
//  7. Only then are values copied, transposing where the convention says so.
//
// On error no parameter has been modified.
func Import[B tensor.Backend](sd *nn.StateDict[B], foreign map[string]*tensor.RawTensor, conv *Convention) error {
	local := localNames(sd, conv)

	foreignNames := make([]string, 0, len(foreign))
	for name := range foreign {
		if !conv.IsBuffer(name) {
			foreignNames = append(foreignNames, name)
		}
	}
	slices.Sort(foreignNames)

	if len(foreignNames) != len(local) {
		return &AlignmentError{
			Kind: ErrParameterCount,
			Details: fmt.Sprintf("checkpoint (%s) has %d parameters, model has %d",
				conv.Source, len(foreignNames), len(local)),
		}
	}

	wanted := make(map[string]bool, len(local))
	for _, name := range local {
		wanted[name] = true
	}

	plan := make([]copyStep[B], 0, len(foreignNames))
	for _, name := range foreignNames {
		localName, ok := conv.LocalName(name)
		if !ok || !wanted[localName] {
			return &AlignmentError{
				Kind:    ErrUnknownParameter,
				Name:    name,
				Details: fmt.Sprintf("no matching model parameter under %s naming", conv.Source),
			}
		}
		delete(wanted, localName)

		dst, _ := sd.Get(localName)
		step, err := verify(name, localName, foreign[name], dst, conv.IsTransposed(name))
		if err != nil {
			return err
		}
		plan = append(plan, step)
	}
	if err := checkTied(plan); err != nil {
		return err
	}

	for _, step := range plan {
		step.apply()
	}
	return nil
}

// localNames lists the names Import must fill, in StateDict order.
func localNames[B tensor.Backend](sd *nn.StateDict[B], conv *Convention) []string {
	var names []string
	for _, e := range sd.Entries() {
		if e.Kind != nn.KindParam {
			continue
		}
		if e.IsAlias() && !conv.IncludesHead() {
			continue
		}
		names = append(names, e.Name)
	}
	return names
}

func verify[B tensor.Backend](foreign, local string, src *tensor.RawTensor, dst *nn.Parameter[B], transpose bool) (copyStep[B], error) {
	if src.DType() != tensor.Float32 {
		return copyStep[B]{}, &AlignmentError{
			Kind:    ErrUnsupportedDType,
			Name:    foreign,
			Details: fmt.Sprintf("got %s, want float32", src.DType()),
		}
	}

	want := dst.Shape()
	if transpose {
		if len(want) != 2 {
			return copyStep[B]{}, &AlignmentError{
				Kind:    ErrShapeMismatch,
				Name:    foreign,
				Details: fmt.Sprintf("transposed weight needs a 2D target, %s is %v", local, want),
			}
		}
		want = want.Reverse()
	}
	if !src.Shape().Equal(want) {
		return copyStep[B]{}, &AlignmentError{
			Kind:    ErrShapeMismatch,
			Name:    foreign,
			Details: fmt.Sprintf("checkpoint shape %v, expected %v for %s (transposed=%t)", src.Shape(), want, local, transpose),
		}
	}

	return copyStep[B]{name: foreign, src: src, dst: dst, transpose: transpose}, nil
}

// checkTied rejects a plan that would write different values into one
// shared parameter.
func checkTied[B tensor.Backend](plan []copyStep[B]) error {
	seen := make(map[*nn.Parameter[B]]copyStep[B], len(plan))
	for _, step := range plan {
		prev, ok := seen[step.dst]
		if !ok {
			seen[step.dst] = step
			continue
		}
		if prev.transpose != step.transpose || !slices.Equal(prev.src.AsFloat32(), step.src.AsFloat32()) {
			return &AlignmentError{
				Kind:    ErrTiedMismatch,
				Name:    step.name,
				Details: fmt.Sprintf("values differ from %s, which fills the same parameter", prev.name),
			}
		}
	}
	return nil
}

func (s copyStep[B]) apply() {
	dst := s.dst.Tensor().Data()
	if !s.transpose {
		copy(dst, s.src.AsFloat32())
		return
	}
	shape := s.src.Shape()
	transpose2D(dst, s.src.AsFloat32(), shape[0], shape[1])
}

// transpose2D writes the [cols, rows] transpose of a row-major [rows, cols]
// matrix into dst.
func transpose2D(dst, src []float32, rows, cols int) {
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			dst[c*rows+r] = src[r*cols+c]
		}
	}
}
