package generate

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/born-ml/gpt2/internal/gpt"
	"github.com/born-ml/gpt2/internal/tensor"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// ErrEmptyPrompt is returned when there is no context to continue from.
var ErrEmptyPrompt = errors.New("generate: empty prompt")

// LanguageModel is the model surface the generator needs. *gpt.Model
// implements it.
type LanguageModel[B tensor.Backend] interface {
	// Forward maps [batch, seq] ids to [batch, seq, vocab] logits.
	Forward(ids, targets *tensor.Tensor[int32, B]) gpt.ForwardResult[B]

	// BlockSize returns the context window; inputs must be shorter.
	BlockSize() int

	// Backend returns the backend used to build inputs.
	Backend() B
}

// Generator samples continuations of a prompt.
type Generator[B tensor.Backend] struct {
	model   LanguageModel[B]
	sampler *Sampler
}

// NewGenerator creates a generator for model.
func NewGenerator[B tensor.Backend](model LanguageModel[B], config SamplingConfig) *Generator[B] {
	return &Generator[B]{
		model:   model,
		sampler: NewSampler(config),
	}
}

// Generate returns numSeqs sequences, each the prompt followed by maxTokens
// sampled tokens. All sequences advance together as one batch.
//
// The context fed to the model is cropped to the last BlockSize-1 tokens.
// ctx is checked between steps; on cancellation the sequences generated so
// far are returned with ctx.Err().
func (g *Generator[B]) Generate(ctx context.Context, prompt []int32, maxTokens, numSeqs int) ([][]int32, error) {
	if len(prompt) == 0 {
		return nil, ErrEmptyPrompt
	}
	if maxTokens < 0 || numSeqs <= 0 {
		return nil, fmt.Errorf("generate: maxTokens (%d) must be >= 0 and numSeqs (%d) > 0", maxTokens, numSeqs)
	}

	seqs := make([][]int32, numSeqs)
	for i := range seqs {
		seqs[i] = slices.Grow(slices.Clone(prompt), maxTokens)
	}

	window := g.model.BlockSize() - 1
	for step := 0; step < maxTokens; step++ {
		if err := ctx.Err(); err != nil {
			return seqs, err
		}

		n := len(seqs[0])
		start := max(0, n-window)
		t := n - start

		ids := make([]int32, numSeqs*t)
		for i, seq := range seqs {
			copy(ids[i*t:], seq[start:])
		}
		input := tensor.MustFromSlice(ids, tensor.Shape{numSeqs, t}, g.model.Backend())

		logits := g.model.Forward(input, nil).Logits
		vocab := logits.Shape()[2]
		data := logits.Data()
		for i := range seqs {
			last := (i*t + t - 1) * vocab
			seqs[i] = append(seqs[i], g.sampler.Sample(data[last:last+vocab]))
		}
	}
	return seqs, nil
}

// GenerateText encodes prompt, generates and decodes each sequence,
// prompt included.
func (g *Generator[B]) GenerateText(ctx context.Context, tok tokenizer.Tokenizer, prompt string, maxTokens, numSeqs int) ([]string, error) {
	ids, err := tok.Encode(prompt)
	if err != nil {
		return nil, fmt.Errorf("encode prompt: %w", err)
	}

	seqs, err := g.Generate(ctx, ids, maxTokens, numSeqs)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(seqs))
	for i, seq := range seqs {
		if out[i], err = tok.Decode(seq); err != nil {
			return nil, fmt.Errorf("decode sequence %d: %w", i, err)
		}
	}
	return out, nil
}
