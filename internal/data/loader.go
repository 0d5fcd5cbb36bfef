// Package data turns a token stream into fixed-size training batches.
package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/born-ml/gpt2/internal/tensor"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// ErrTooFewTokens is returned when the stream cannot fill a single batch.
var ErrTooFewTokens = errors.New("data: not enough tokens for one batch")

// Batch is one (inputs, targets) pair. Targets are inputs shifted left by
// one position in the token stream.
type Batch[B tensor.Backend] struct {
	Inputs  *tensor.Tensor[int32, B] // [batch, seq]
	Targets *tensor.Tensor[int32, B] // [batch, seq]
}

// Loader walks a token stream in contiguous windows of batch*seq+1 tokens.
// When the next window would run past the end it starts over.
//
// A Loader is not safe for concurrent use.
type Loader[B tensor.Backend] struct {
	tokens  []int32
	batch   int
	seq     int
	pos     int
	backend B
}

// NewLoader creates a loader over tokens. The slice is not copied.
func NewLoader[B tensor.Backend](tokens []int32, batch, seq int, backend B) (*Loader[B], error) {
	if batch <= 0 || seq <= 0 {
		return nil, fmt.Errorf("data: batch (%d) and seq (%d) must be positive", batch, seq)
	}
	if need := batch*seq + 1; len(tokens) < need {
		return nil, fmt.Errorf("%w: have %d, need %d (batch %d, seq %d)", ErrTooFewTokens, len(tokens), need, batch, seq)
	}
	return &Loader[B]{tokens: tokens, batch: batch, seq: seq, backend: backend}, nil
}

// FromText tokenizes text and returns a loader over the result.
func FromText[B tensor.Backend](text string, tok tokenizer.Tokenizer, batch, seq int, backend B) (*Loader[B], error) {
	tokens, err := tok.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("data: tokenize: %w", err)
	}
	return NewLoader(tokens, batch, seq, backend)
}

// FromFile reads and tokenizes a UTF-8 text file.
func FromFile[B tensor.Backend](path string, tok tokenizer.Tokenizer, batch, seq int, backend B) (*Loader[B], error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for dataset loading
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return FromText(string(text), tok, batch, seq, backend)
}

// Next returns the batch at the current position and advances by
// batch*seq tokens.
func (l *Loader[B]) Next() Batch[B] {
	n := l.batch * l.seq
	window := l.tokens[l.pos : l.pos+n+1]

	inputs := make([]int32, n)
	targets := make([]int32, n)
	copy(inputs, window[:n])
	copy(targets, window[1:])

	l.pos += n
	if l.pos+n+1 > len(l.tokens) {
		l.pos = 0
	}

	shape := tensor.Shape{l.batch, l.seq}
	return Batch[B]{
		Inputs:  tensor.MustFromSlice(inputs, shape, l.backend),
		Targets: tensor.MustFromSlice(targets, shape, l.backend),
	}
}

// Reset rewinds to the start of the stream.
func (l *Loader[B]) Reset() {
	l.pos = 0
}

// Position returns the index of the first token of the next batch.
func (l *Loader[B]) Position() int {
	return l.pos
}

// NumTokens returns the length of the token stream.
func (l *Loader[B]) NumTokens() int {
	return len(l.tokens)
}

// BatchesPerEpoch returns how many batches cover the stream once.
func (l *Loader[B]) BatchesPerEpoch() int {
	return len(l.tokens) / (l.batch * l.seq)
}
