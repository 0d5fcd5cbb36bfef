package gpt

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/backend/cpu"
	"github.com/born-ml/gpt2/internal/nn"
	"github.com/born-ml/gpt2/internal/tensor"
)

type testBackend = *cpu.CPUBackend

var (
	_ nn.Registrar[testBackend] = (*Model[testBackend])(nil)
	_ nn.Initializable          = (*Model[testBackend])(nil)
)

func tinyConfig() Config {
	return Config{
		BlockSize: 8,
		VocabSize: 32,
		NumLayers: 2,
		NumHeads:  2,
		EmbedDim:  16,
		NormEps:   1e-5,
	}
}

func ids(t *testing.T, b testBackend, batch, seq int, values ...int32) *tensor.Tensor[int32, testBackend] {
	t.Helper()
	data := make([]int32, batch*seq)
	for i := range data {
		data[i] = values[i%len(values)]
	}
	x, err := tensor.FromSlice(data, tensor.Shape{batch, seq}, b)
	require.NoError(t, err)
	return x
}

func TestNewPanicsOnInvalidConfig(t *testing.T) {
	cfg := tinyConfig()
	cfg.EmbedDim = 15
	assert.PanicsWithValue(t,
		"gpt.New: invalid config: embed dim (15) must be divisible by num heads (2)",
		func() { New(cfg, cpu.New()) })
}

func TestForwardShape(t *testing.T) {
	b := cpu.New()
	m := New(tinyConfig(), b)

	for _, tc := range []struct{ batch, seq int }{{1, 1}, {2, 3}, {3, 7}} {
		t.Run(fmt.Sprintf("B%d_T%d", tc.batch, tc.seq), func(t *testing.T) {
			res := m.Forward(ids(t, b, tc.batch, tc.seq, 1, 5, 9, 31), nil)
			assert.Equal(t, tensor.Shape{tc.batch, tc.seq, 32}, res.Logits.Shape())
			assert.False(t, res.HasLoss())
		})
	}
}

func TestForwardCapacity(t *testing.T) {
	b := cpu.New()
	m := New(tinyConfig(), b)

	assert.PanicsWithValue(t,
		"gpt.Forward: cannot forward sequence of length 8, maximum is 7 (block size 8)",
		func() { m.Forward(ids(t, b, 1, 8, 0), nil) })
	assert.NotPanics(t, func() { m.Forward(ids(t, b, 1, 7, 0), nil) })
}

func TestForwardIsCausal(t *testing.T) {
	b := cpu.New()
	m := New(tinyConfig(), b)

	base := m.Forward(ids(t, b, 2, 6, 3, 1, 4, 1, 5, 9), nil).Logits.Data()
	perturbed := m.Forward(ids(t, b, 2, 6, 3, 1, 4, 2, 6, 5), nil).Logits.Data()

	// Positions 0..2 only see tokens 3, 1, 4 in both runs.
	vocab, seqLen := 32, 6
	for batch := 0; batch < 2; batch++ {
		start := batch * seqLen * vocab
		assert.InDeltaSlice(t, base[start:start+3*vocab], perturbed[start:start+3*vocab], 1e-6)
		assert.NotEqual(t, base[start+3*vocab:start+4*vocab], perturbed[start+3*vocab:start+4*vocab])
	}
}

func TestWeightTying(t *testing.T) {
	b := cpu.New()
	m := New(tinyConfig(), b)

	assert.Same(t, m.TokenEmbedding.Weight, m.Head.Weight())

	m.TokenEmbedding.Weight.Tensor().Set(42, 3, 4)
	assert.Equal(t, float32(42), m.Head.Weight().Tensor().At(3, 4))

	m.Head.Weight().Tensor().Set(-1, 0, 0)
	assert.Equal(t, float32(-1), m.TokenEmbedding.Weight.Tensor().At(0, 0))

	head, ok := m.StateDict().Get(HeadWeightName)
	require.True(t, ok)
	tok, ok := m.StateDict().Get("embedding.token.weight")
	require.True(t, ok)
	assert.Same(t, tok, head)
}

func TestStateDictLayout(t *testing.T) {
	m := NewUninitialized(tinyConfig(), cpu.New())
	names := m.StateDict().Names()

	assert.Equal(t, "embedding.token.weight", names[0])
	assert.Equal(t, "embedding.position.weight", names[1])
	assert.Equal(t, "block.0.ln1.scale", names[2])
	assert.Equal(t, "block.1.ln1.scale", names[2+13])
	assert.Equal(t, []string{"final_norm.scale", "final_norm.shift", "head.weight"}, names[len(names)-3:])

	// 2 embeddings + 2 blocks * (12 params + 1 mask) + 2 norm + head alias
	assert.Len(t, names, 2+2*13+2+1)
	assert.Len(t, m.StateDict().Trainable(), 2+2*12+2+1)
	assert.Len(t, m.Parameters(), 2+2*12+2)

	// Every block shares one mask tensor.
	m0, _ := m.StateDict().Get("block.0.attn.mask")
	m1, _ := m.StateDict().Get("block.1.attn.mask")
	assert.Same(t, m0, m1)
}

func TestNumParams(t *testing.T) {
	cfg := tinyConfig()
	m := NewUninitialized(cfg, cpu.New())
	assert.Equal(t, cfg.NumParams(), m.NumParams(false))
	assert.Equal(t, cfg.NumParams()-cfg.BlockSize*cfg.EmbedDim, m.NumParams(true))
}

func TestInitialization(t *testing.T) {
	cfg := tinyConfig()
	m := New(cfg, cpu.New())

	nonZero := func(p *nn.Parameter[testBackend]) bool {
		for _, v := range p.Tensor().Data() {
			if v != 0 {
				return true
			}
		}
		return false
	}

	assert.True(t, nonZero(m.TokenEmbedding.Weight))
	assert.True(t, nonZero(m.PositionEmbedding.Weight))
	for _, block := range m.Blocks {
		assert.True(t, nonZero(block.Attn.OutputProjection.Weight()))
		assert.False(t, nonZero(block.Attn.OutputProjection.Bias()))
		assert.Equal(t, nn.ScaleResidual, block.Attn.OutputProjection.Scaling)
		assert.Equal(t, nn.ScaleResidual, block.MLP.DownProjection.Scaling)
	}

	// Same seed, same model.
	again := New(cfg, cpu.New())
	assert.Equal(t, m.TokenEmbedding.Weight.Tensor().Data(), again.TokenEmbedding.Weight.Tensor().Data())

	// Uninitialized means zero weights and identity norms.
	u := NewUninitialized(cfg, cpu.New())
	assert.False(t, nonZero(u.TokenEmbedding.Weight))
	assert.Equal(t, float32(1), u.FinalNorm.Scale.Tensor().At(0))
}

func TestLossAtInitialization(t *testing.T) {
	cfg := tinyConfig()
	cfg.VocabSize = DefaultVocabSize
	cfg.NumLayers = 1
	b := cpu.New()
	m := New(cfg, b)

	res := m.Forward(ids(t, b, 1, 1, 0), ids(t, b, 1, 1, 0))
	require.True(t, res.HasLoss())
	assert.Equal(t, tensor.Shape{1, 1, DefaultVocabSize}, res.Logits.Shape())

	loss := float64(res.Loss.Item())
	assert.False(t, math.IsNaN(loss) || math.IsInf(loss, 0))
	assert.InDelta(t, math.Log(DefaultVocabSize), loss, 0.5)
}

func TestForwardTargetsShapeMismatch(t *testing.T) {
	b := cpu.New()
	m := New(tinyConfig(), b)
	assert.Panics(t, func() { m.Forward(ids(t, b, 1, 3, 0), ids(t, b, 1, 2, 0)) })
}
