// Package gpt implements the GPT-2 language model: token and position
// embeddings, a stack of pre-norm transformer blocks, a final LayerNorm and
// an output head tied to the token embedding table.
package gpt

import (
	"errors"
	"fmt"
	"slices"
)

// Model type names accepted by ConfigFor.
const (
	GPT2       = "gpt2"
	GPT2Medium = "gpt2-medium"
	GPT2Large  = "gpt2-large"
	GPT2XL     = "gpt2-xl"
)

// Fixed across all published GPT-2 sizes.
const (
	DefaultVocabSize = 50257
	DefaultBlockSize = 1024
)

// ErrUnknownModelType is returned by ConfigFor for an unsupported name.
var ErrUnknownModelType = errors.New("gpt: unknown model type")

// Config describes the model architecture. It is read-only after the
// model is built.
type Config struct {
	BlockSize int     // Context window; sequences must be shorter than this.
	VocabSize int     // Number of token ids.
	NumLayers int     // Number of transformer blocks.
	NumHeads  int     // Attention heads per block.
	EmbedDim  int     // Embedding width; must be divisible by NumHeads.
	NormEps   float32 // LayerNorm epsilon.
}

// DefaultConfig returns the 124M-parameter GPT-2 configuration.
func DefaultConfig() Config {
	return Config{
		BlockSize: DefaultBlockSize,
		VocabSize: DefaultVocabSize,
		NumLayers: 12,
		NumHeads:  12,
		EmbedDim:  768,
		NormEps:   1e-5,
	}
}

var presets = map[string]struct{ layers, heads, embed int }{
	GPT2:       {12, 12, 768},  // 124M params
	GPT2Medium: {24, 16, 1024}, // 350M params
	GPT2Large:  {36, 20, 1280}, // 774M params
	GPT2XL:     {48, 25, 1600}, // 1558M params
}

// ModelTypes returns the supported model type names in size order.
func ModelTypes() []string {
	return []string{GPT2, GPT2Medium, GPT2Large, GPT2XL}
}

// ConfigFor returns the configuration of a published GPT-2 size.
func ConfigFor(modelType string) (Config, error) {
	p, ok := presets[modelType]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q (supported: %v)", ErrUnknownModelType, modelType, ModelTypes())
	}
	cfg := DefaultConfig()
	cfg.NumLayers = p.layers
	cfg.NumHeads = p.heads
	cfg.EmbedDim = p.embed
	return cfg, nil
}

// Validate reports the first invariant the configuration violates.
func (c Config) Validate() error {
	switch {
	case c.BlockSize <= 0:
		return fmt.Errorf("block size must be positive, got %d", c.BlockSize)
	case c.VocabSize <= 0:
		return fmt.Errorf("vocab size must be positive, got %d", c.VocabSize)
	case c.NumLayers < 1:
		return fmt.Errorf("num layers must be at least 1, got %d", c.NumLayers)
	case c.NumHeads <= 0:
		return fmt.Errorf("num heads must be positive, got %d", c.NumHeads)
	case c.EmbedDim <= 0:
		return fmt.Errorf("embed dim must be positive, got %d", c.EmbedDim)
	case c.EmbedDim%c.NumHeads != 0:
		return fmt.Errorf("embed dim (%d) must be divisible by num heads (%d)", c.EmbedDim, c.NumHeads)
	case c.NormEps <= 0:
		return fmt.Errorf("norm eps must be positive, got %g", c.NormEps)
	}
	return nil
}

// NumParams returns the number of distinct trainable scalars a model with
// this configuration holds. The tied output head adds nothing.
func (c Config) NumParams() int {
	perBlock := 12*c.EmbedDim*c.EmbedDim + 13*c.EmbedDim
	return c.VocabSize*c.EmbedDim + c.BlockSize*c.EmbedDim + c.NumLayers*perBlock + 2*c.EmbedDim
}

// IsKnownModelType reports whether ConfigFor accepts name.
func IsKnownModelType(name string) bool {
	return slices.Contains(ModelTypes(), name)
}
