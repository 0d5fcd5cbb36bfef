// Package generate samples continuations from a GPT-2 model.
//
// Generation is autoregressive: at each step the context is cropped to the
// model's window, forwarded, and one token is drawn per sequence from the
// logits at the last position.
package generate

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

// SamplingConfig configures the sampling strategy for text generation.
type SamplingConfig struct {
	// Temperature controls randomness. 0 = greedy, 1 = normal, >1 = more random.
	Temperature float32

	// TopK limits sampling to top K tokens. 0 = disabled.
	TopK int

	// TopP (nucleus sampling) keeps the smallest set of tokens whose
	// probability mass reaches P. 1.0 = disabled.
	TopP float32

	// Seed for reproducibility. -1 = random.
	Seed int64
}

// DefaultSamplingConfig returns GPT-2 sampling defaults: top-50 at
// temperature 1.
func DefaultSamplingConfig() SamplingConfig {
	return SamplingConfig{
		Temperature: 1.0,
		TopK:        50,
		TopP:        1.0,
		Seed:        -1,
	}
}

// Sampler samples tokens from logits. Not safe for concurrent use.
type Sampler struct {
	config SamplingConfig
	src    rand.Source
}

// NewSampler creates a new sampler with the given configuration.
func NewSampler(config SamplingConfig) *Sampler {
	seed := uint64(config.Seed) //nolint:gosec // G115: sign is irrelevant for a seed
	if config.Seed < 0 {
		seed = rand.Uint64()
	}
	return &Sampler{
		config: config,
		src:    rand.NewPCG(seed, seed^0xda942042e4dd58b5),
	}
}

// Sample returns the next token ID from one row of logits.
//
// The sampling process:
//  1. Apply temperature scaling (argmax if temperature = 0)
//  2. Softmax
//  3. Keep the TopK most likely tokens
//  4. Of those, keep the nucleus reaching TopP
//  5. Draw from the renormalised candidates
func (s *Sampler) Sample(logits []float32) int32 {
	x := make([]float64, len(logits))
	for i, v := range logits {
		x[i] = float64(v)
	}

	if s.config.Temperature <= 0 {
		return int32(floats.MaxIdx(x)) //nolint:gosec // vocab size is bounded by model architecture
	}
	if s.config.Temperature != 1 {
		floats.Scale(1/float64(s.config.Temperature), x)
	}

	probs := softmax(x)
	candidates := s.candidates(probs)

	weights := make([]float64, len(candidates))
	for i, idx := range candidates {
		weights[i] = probs[idx]
	}
	pick := distuv.NewCategorical(weights, s.src).Rand()
	return int32(candidates[int(pick)]) //nolint:gosec // vocab size is bounded by model architecture
}

// candidates returns token indices in descending probability, cut by TopK
// and TopP. At least one token is always kept.
func (s *Sampler) candidates(probs []float64) []int {
	sorted := slices.Clone(probs)
	order := make([]int, len(probs))
	floats.Argsort(sorted, order)
	slices.Reverse(order)

	if k := s.config.TopK; k > 0 && k < len(order) {
		order = order[:k]
	}

	if p := float64(s.config.TopP); p > 0 && p < 1 {
		var kept, total float64
		for _, idx := range order {
			total += probs[idx]
		}
		for i, idx := range order {
			kept += probs[idx]
			if kept >= p*total {
				order = order[:i+1]
				break
			}
		}
	}
	return order
}

// softmax converts logits to probabilities via log-sum-exp.
func softmax(x []float64) []float64 {
	lse := floats.LogSumExp(x)
	probs := make([]float64, len(x))
	for i, v := range x {
		probs[i] = math.Exp(v - lse)
	}
	return probs
}
