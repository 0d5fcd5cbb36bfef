package nn

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// InitConfig configures InitPolicy.
type InitConfig struct {
	Std       float64 // Base standard deviation for linear weights and embeddings.
	NumLayers int     // Depth used to shrink residual projections.
	Seed      uint64  // Seed of the random source; equal seeds give equal weights.
}

// DefaultInitConfig returns the GPT-2 initialization for a model with
// numLayers blocks: std 0.02 and seed 1337.
func DefaultInitConfig(numLayers int) InitConfig {
	return InitConfig{
		Std:       0.02,
		NumLayers: numLayers,
		Seed:      1337,
	}
}

// InitPolicy assigns initial parameter values by layer kind:
//   - Linear weight: N(0, Std), or N(0, Std * (2*NumLayers)^-0.5) for ScaleResidual
//   - Linear bias: 0
//   - Embedding table: N(0, Std)
//   - LayerNorm: untouched (scale 1, shift 0)
//
// An InitPolicy draws from one random stream, so results depend on the order
// layers are visited. Not safe for concurrent use.
type InitPolicy struct {
	cfg InitConfig
	src rand.Source
}

// NewInitPolicy creates a policy from cfg.
func NewInitPolicy(cfg InitConfig) *InitPolicy {
	return &InitPolicy{
		cfg: cfg,
		src: rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15),
	}
}

// Apply initializes every layer reachable from m.
func (p *InitPolicy) Apply(m Initializable) {
	m.Initialize(p)
}

// StdFor returns the standard deviation used for weights with scaling s.
func (p *InitPolicy) StdFor(s Scaling) float64 {
	if s == ScaleResidual && p.cfg.NumLayers > 0 {
		return p.cfg.Std * math.Pow(2*float64(p.cfg.NumLayers), -0.5)
	}
	return p.cfg.Std
}

// Normal overwrites dst with independent draws from N(0, std).
func (p *InitPolicy) Normal(dst []float32, std float64) {
	dist := distuv.Normal{Mu: 0, Sigma: std, Src: p.src}
	for i := range dst {
		dst[i] = float32(dist.Rand())
	}
}
