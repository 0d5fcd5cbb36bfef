package generate

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/backend/cpu"
	"github.com/born-ml/gpt2/internal/gpt"
	"github.com/born-ml/gpt2/internal/tensor"
)

type testBackend = *cpu.CPUBackend

// countingModel predicts (last token + 1) mod vocab at every position and
// records the shape of each input.
type countingModel struct {
	vocab     int
	blockSize int
	backend   testBackend
	inputs    []tensor.Shape
	onForward func()
}

func (m *countingModel) Forward(ids, _ *tensor.Tensor[int32, testBackend]) gpt.ForwardResult[testBackend] {
	m.inputs = append(m.inputs, ids.Shape().Clone())
	if m.onForward != nil {
		m.onForward()
	}

	shape := ids.Shape()
	batch, seq := shape[0], shape[1]
	logits := make([]float32, batch*seq*m.vocab)
	for i, id := range ids.Data() {
		logits[i*m.vocab+(int(id)+1)%m.vocab] = 10
	}
	return gpt.ForwardResult[testBackend]{
		Logits: tensor.MustFromSlice(logits, tensor.Shape{batch, seq, m.vocab}, m.backend),
	}
}

func (m *countingModel) BlockSize() int       { return m.blockSize }
func (m *countingModel) Backend() testBackend { return m.backend }

func greedy() SamplingConfig {
	return SamplingConfig{Temperature: 0}
}

func TestGenerateAppendsTokens(t *testing.T) {
	model := &countingModel{vocab: 10, blockSize: 16, backend: cpu.New()}
	g := NewGenerator[testBackend](model, greedy())

	seqs, err := g.Generate(context.Background(), []int32{7, 8}, 4, 3)
	require.NoError(t, err)
	require.Len(t, seqs, 3)
	for _, seq := range seqs {
		assert.Equal(t, []int32{7, 8, 9, 0, 1, 2}, seq)
	}

	// One forward per new token, each over the whole batch.
	require.Len(t, model.inputs, 4)
	assert.Equal(t, tensor.Shape{3, 2}, model.inputs[0])
	assert.Equal(t, tensor.Shape{3, 5}, model.inputs[3])
}

func TestGenerateCropsContext(t *testing.T) {
	model := &countingModel{vocab: 10, blockSize: 4, backend: cpu.New()}
	g := NewGenerator[testBackend](model, greedy())

	seqs, err := g.Generate(context.Background(), []int32{1, 2, 3, 4, 5}, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, seqs[0])

	for _, shape := range model.inputs {
		assert.Equal(t, tensor.Shape{1, 3}, shape, "context must stay below the block size")
	}
}

func TestGenerateZeroTokens(t *testing.T) {
	model := &countingModel{vocab: 10, blockSize: 4, backend: cpu.New()}
	seqs, err := NewGenerator[testBackend](model, greedy()).Generate(context.Background(), []int32{3}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]int32{{3}, {3}}, seqs)
	assert.Empty(t, model.inputs)
}

func TestGenerateValidation(t *testing.T) {
	g := NewGenerator[testBackend](&countingModel{vocab: 10, blockSize: 4, backend: cpu.New()}, greedy())

	_, err := g.Generate(context.Background(), nil, 3, 1)
	assert.ErrorIs(t, err, ErrEmptyPrompt)

	_, err = g.Generate(context.Background(), []int32{1}, 3, 0)
	assert.Error(t, err)

	_, err = g.Generate(context.Background(), []int32{1}, -1, 1)
	assert.Error(t, err)
}

func TestGenerateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := &countingModel{vocab: 10, blockSize: 16, backend: cpu.New()}
	model.onForward = func() {
		if len(model.inputs) == 2 {
			cancel()
		}
	}

	seqs, err := NewGenerator[testBackend](model, greedy()).Generate(ctx, []int32{0}, 10, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int32{0, 1, 2}, seqs[0])
}

func TestGenerateWithModel(t *testing.T) {
	cfg := gpt.Config{BlockSize: 8, VocabSize: 32, NumLayers: 2, NumHeads: 2, EmbedDim: 16, NormEps: 1e-5}
	model := gpt.New(cfg, cpu.New())

	run := func() [][]int32 {
		g := NewGenerator[testBackend](model, SamplingConfig{Temperature: 1, TopK: 5, Seed: 42})
		seqs, err := g.Generate(context.Background(), []int32{1, 2, 3}, 10, 2)
		require.NoError(t, err)
		return seqs
	}

	seqs := run()
	require.Len(t, seqs, 2)
	for _, seq := range seqs {
		assert.Len(t, seq, 13)
		assert.Equal(t, []int32{1, 2, 3}, seq[:3])
		for _, id := range seq {
			assert.GreaterOrEqual(t, id, int32(0))
			assert.Less(t, id, int32(cfg.VocabSize))
		}
	}
	assert.Equal(t, seqs, run(), "same seed, same samples")
}

// digitTokenizer encodes each byte as its value mod 10.
type digitTokenizer struct{}

func (digitTokenizer) Encode(text string) ([]int32, error) {
	ids := make([]int32, len(text))
	for i := range text {
		ids[i] = int32(text[i]-'0') % 10
	}
	return ids, nil
}

func (digitTokenizer) Decode(ids []int32) (string, error) {
	var sb strings.Builder
	for _, id := range ids {
		fmt.Fprint(&sb, id)
	}
	return sb.String(), nil
}

func (digitTokenizer) VocabSize() int  { return 10 }
func (digitTokenizer) EosToken() int32 { return -1 }

func TestGenerateText(t *testing.T) {
	model := &countingModel{vocab: 10, blockSize: 16, backend: cpu.New()}
	out, err := NewGenerator[testBackend](model, greedy()).GenerateText(context.Background(), digitTokenizer{}, "78", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"78901", "78901"}, out)
}
