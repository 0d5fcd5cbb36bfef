package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/gpt2/internal/tensor"
)

// ScaledDotProductAttention computes attention using the scaled dot-product mechanism.
//
//	Attention(Q, K, V) = softmax(QK^T * scale + mask) * V
//
// Parameters:
//   - query: Query tensor [batch, heads, seq_q, head_dim]
//   - key: Key tensor [batch, heads, seq_k, head_dim]
//   - value: Value tensor [batch, heads, seq_k, head_dim]
//   - mask: Optional additive mask broadcastable to [batch, heads, seq_q, seq_k], or nil
//   - scale: Scaling factor (0 for auto-compute as 1/sqrt(head_dim))
//
// Returns:
//   - output: Attended values [batch, heads, seq_q, head_dim]
//   - weights: Attention probabilities [batch, heads, seq_q, seq_k]
func ScaledDotProductAttention[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[float32, B],
	scale float32,
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	validateAttentionInputs(query, key, value)

	if scale == 0 {
		scale = float32(1.0 / math.Sqrt(float64(query.Shape()[3])))
	}

	// Q @ K^T: [batch, heads, seq_q, head_dim] @ [batch, heads, head_dim, seq_k]
	scores := query.BatchMatMul(key.Transpose(0, 1, 3, 2)).MulScalar(scale)

	if mask != nil {
		scores = scores.Add(mask)
	}

	// Softmax over keys; the backend subtracts the row max first.
	weights := scores.Softmax(-1)

	return weights.BatchMatMul(value), weights
}

func validateAttentionInputs[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
) {
	if len(query.Shape()) != 4 {
		panic("ScaledDotProductAttention: query must be 4D [batch, heads, seq_q, head_dim]")
	}
	if len(key.Shape()) != 4 {
		panic("ScaledDotProductAttention: key must be 4D [batch, heads, seq_k, head_dim]")
	}
	if len(value.Shape()) != 4 {
		panic("ScaledDotProductAttention: value must be 4D [batch, heads, seq_k, head_dim]")
	}
	if query.Shape()[3] != key.Shape()[3] {
		panic(fmt.Sprintf("ScaledDotProductAttention: query and key head_dim differ: %d vs %d",
			query.Shape()[3], key.Shape()[3]))
	}
	if key.Shape()[2] != value.Shape()[2] {
		panic(fmt.Sprintf("ScaledDotProductAttention: key and value seq length differ: %d vs %d",
			key.Shape()[2], value.Shape()[2]))
	}
}

// CausalMask creates an additive causal attention mask.
//
// Position i may attend to positions j <= i. Entries above the diagonal are
// -inf and the rest are 0, so adding the mask to the scores before softmax
// gives masked positions zero probability.
//
// Shape: [1, 1, seq_len, seq_len] (broadcastable to [batch, heads, seq, seq])
//
//	// For seq_len=3:
//	// [[0, -inf, -inf],
//	//  [0,    0, -inf],
//	//  [0,    0,    0]]
func CausalMask[B tensor.Backend](seqLen int, backend B) *tensor.Tensor[float32, B] {
	mask := tensor.Zeros[float32](tensor.Shape{1, 1, seqLen, seqLen}, backend)

	negInf := float32(math.Inf(-1))
	data := mask.Data()
	for i := 0; i < seqLen; i++ {
		for j := i + 1; j < seqLen; j++ {
			data[i*seqLen+j] = negInf
		}
	}
	return mask
}

// maskWindow returns the top-left [1, 1, t, t] window of a [1, 1, n, n] mask.
func maskWindow[B tensor.Backend](mask *tensor.Tensor[float32, B], t int) *tensor.Tensor[float32, B] {
	n := mask.Shape()[3]
	if t > n {
		panic(fmt.Sprintf("causal mask covers %d positions, got sequence of %d", n, t))
	}
	if t == n {
		return mask
	}

	out := tensor.Zeros[float32](tensor.Shape{1, 1, t, t}, mask.Backend())
	src, dst := mask.Data(), out.Data()
	for i := 0; i < t; i++ {
		copy(dst[i*t:(i+1)*t], src[i*n:i*n+t])
	}
	return out
}
