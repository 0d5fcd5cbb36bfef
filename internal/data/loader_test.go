package data

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/backend/cpu"
)

func stream(n int) []int32 {
	out := make([]int32, n)
	for i := range out {
		out[i] = int32(i)
	}
	return out
}

// wordTokenizer maps each whitespace-separated word to its length.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) ([]int32, error) {
	var ids []int32
	for _, w := range strings.Fields(text) {
		ids = append(ids, int32(len(w)))
	}
	return ids, nil
}

func (wordTokenizer) Decode([]int32) (string, error) { return "", nil }
func (wordTokenizer) VocabSize() int                 { return 64 }
func (wordTokenizer) EosToken() int32                { return -1 }

func TestNewLoaderValidation(t *testing.T) {
	b := cpu.New()

	_, err := NewLoader(stream(12), 2, 6, b)
	assert.ErrorIs(t, err, ErrTooFewTokens)

	_, err = NewLoader(stream(13), 2, 6, b)
	assert.NoError(t, err)

	_, err = NewLoader(stream(13), 0, 6, b)
	assert.Error(t, err)
}

func TestNextShiftsTargets(t *testing.T) {
	l, err := NewLoader(stream(20), 2, 3, cpu.New())
	require.NoError(t, err)

	batch := l.Next()
	assert.Equal(t, []int{2, 3}, []int(batch.Inputs.Shape()))
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, batch.Inputs.Data())
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, batch.Targets.Data())
	assert.Equal(t, 6, l.Position())

	batch = l.Next()
	assert.Equal(t, []int32{6, 7, 8, 9, 10, 11}, batch.Inputs.Data())
	assert.Equal(t, []int32{7, 8, 9, 10, 11, 12}, batch.Targets.Data())
}

func TestNextWraps(t *testing.T) {
	// 20 tokens, windows of 7: starts at 0, 6, 12; 18+7 > 20 wraps.
	l, err := NewLoader(stream(20), 2, 3, cpu.New())
	require.NoError(t, err)
	assert.Equal(t, 3, l.BatchesPerEpoch())

	l.Next()
	l.Next()
	last := l.Next()
	assert.Equal(t, []int32{13, 14, 15, 16, 17, 18}, last.Targets.Data())
	assert.Equal(t, 0, l.Position())

	again := l.Next()
	assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, again.Inputs.Data())
}

func TestNextExactFit(t *testing.T) {
	l, err := NewLoader(stream(7), 2, 3, cpu.New())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		batch := l.Next()
		assert.Equal(t, []int32{0, 1, 2, 3, 4, 5}, batch.Inputs.Data())
	}
}

func TestBatchesDoNotAlias(t *testing.T) {
	tokens := stream(13)
	l, err := NewLoader(tokens, 2, 3, cpu.New())
	require.NoError(t, err)

	batch := l.Next()
	batch.Inputs.Data()[0] = 99
	assert.Equal(t, int32(0), tokens[0])
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("a bb ccc dddd eeeee"), 0o600))

	l, err := FromFile(path, wordTokenizer{}, 2, 2, cpu.New())
	require.NoError(t, err)
	assert.Equal(t, 5, l.NumTokens())

	batch := l.Next()
	assert.Equal(t, []int32{1, 2, 3, 4}, batch.Inputs.Data())
	assert.Equal(t, []int32{2, 3, 4, 5}, batch.Targets.Data())

	_, err = FromFile(filepath.Join(t.TempDir(), "missing.txt"), wordTokenizer{}, 2, 2, cpu.New())
	assert.Error(t, err)

	_, err = FromText("a b", wordTokenizer{}, 2, 2, cpu.New())
	assert.ErrorIs(t, err, ErrTooFewTokens)
}
