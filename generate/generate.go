// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generate samples text from a GPT-2 model.
//
// Example usage:
//
//	tok, _ := tokenizer.NewGPT2()
//	gen := generate.NewGenerator[*cpu.Backend](model, generate.DefaultSamplingConfig())
//	texts, err := gen.GenerateText(ctx, tok, "Hello, I'm a language model,", 30, 5)
package generate

import (
	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/tensor"
)

// SamplingConfig configures the sampling strategy for text generation.
//
// Parameters:
//   - Temperature: Controls randomness (0 = greedy, 1 = normal, >1 = more random)
//   - TopK: Limits sampling to top K tokens (0 = disabled)
//   - TopP: Nucleus sampling (1.0 = disabled)
//   - Seed: Random seed for reproducibility (-1 = random)
type SamplingConfig = generate.SamplingConfig

// DefaultSamplingConfig returns top-50 sampling at temperature 1 with a
// random seed.
func DefaultSamplingConfig() SamplingConfig {
	return generate.DefaultSamplingConfig()
}

// Sampler samples tokens from logits.
type Sampler = generate.Sampler

// NewSampler creates a new sampler with the given configuration.
func NewSampler(config SamplingConfig) *Sampler {
	return generate.NewSampler(config)
}

// LanguageModel is the model surface a Generator needs.
type LanguageModel[B tensor.Backend] = generate.LanguageModel[B]

// Generator samples continuations of a prompt.
type Generator[B tensor.Backend] = generate.Generator[B]

// ErrEmptyPrompt is returned when there is no context to continue from.
var ErrEmptyPrompt = generate.ErrEmptyPrompt

// NewGenerator creates a generator for model.
func NewGenerator[B tensor.Backend](model LanguageModel[B], config SamplingConfig) *Generator[B] {
	return generate.NewGenerator(model, config)
}
