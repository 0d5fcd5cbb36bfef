package nn

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/born-ml/gpt2/internal/tensor"
)

// CrossEntropyLoss computes the mean cross-entropy between logits and
// integer class targets.
//
// Mathematical Formulation:
//
//	Loss_i = logsumexp(logits_i) - logits_i[target_i]
//	Loss   = mean_i(Loss_i)
//
// The log-sum-exp is evaluated in float64 with the row max factored out,
// so large logits do not overflow.
//
// Usage:
//
//	criterion := nn.NewCrossEntropyLoss[Backend](backend)
//	loss := criterion.Forward(logits, targets) // [N, V], [N] -> scalar
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{
		backend: backend,
	}
}

// Forward computes the loss.
//
// Parameters:
//   - logits: Unnormalized scores with shape [N, num_classes]
//   - targets: Class indices with shape [N], values in [0, num_classes)
//
// Returns a scalar tensor (shape []).
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("CrossEntropyLoss: logits must be 2D [N, num_classes], got %v", shape))
	}
	n, numClasses := shape[0], shape[1]
	if ts := targets.Shape(); len(ts) != 1 || ts[0] != n {
		panic(fmt.Sprintf("CrossEntropyLoss: targets must be [%d], got %v", n, ts))
	}

	data := logits.Data()
	row := make([]float64, numClasses)
	total := 0.0
	for i, target := range targets.Data() {
		if target < 0 || int(target) >= numClasses {
			panic(fmt.Sprintf("CrossEntropyLoss: target %d out of range [0, %d)", target, numClasses))
		}
		for j, v := range data[i*numClasses : (i+1)*numClasses] {
			row[j] = float64(v)
		}
		total += floats.LogSumExp(row) - row[target]
	}

	loss := tensor.Zeros[float32](tensor.Shape{}, c.backend)
	loss.Data()[0] = float32(total / float64(n))
	return loss
}
