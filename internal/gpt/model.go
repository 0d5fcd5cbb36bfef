package gpt

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/nn"
	"github.com/born-ml/gpt2/internal/tensor"
)

// ForwardResult holds the output of Model.Forward.
type ForwardResult[B tensor.Backend] struct {
	Logits *tensor.Tensor[float32, B] // [batch, seq, vocab]
	Loss   *tensor.Tensor[float32, B] // scalar, nil when no targets were given
}

// HasLoss reports whether targets were supplied.
func (r ForwardResult[B]) HasLoss() bool {
	return r.Loss != nil
}

// Model is the GPT-2 language model.
//
// Architecture:
//
//	ids → TokenEmbedding + PositionEmbedding
//	    → Blocks[0] → ... → Blocks[N-1]
//	    → FinalNorm → Head → logits
//
// Head.Weight() is the same Parameter as TokenEmbedding.Weight: updating
// either updates both.
type Model[B tensor.Backend] struct {
	Config            Config
	TokenEmbedding    *nn.Embedding[B]
	PositionEmbedding *nn.Embedding[B]
	Blocks            []*nn.Block[B]
	FinalNorm         *nn.LayerNorm[B]
	Head              *nn.Linear[B]

	mask      *nn.Parameter[B] // causal mask shared by every block
	criterion *nn.CrossEntropyLoss[B]
	stateDict *nn.StateDict[B]
	backend   B
}

// New builds a model and initializes it with nn.DefaultInitConfig.
// Panics if cfg is invalid.
func New[B tensor.Backend](cfg Config, backend B) *Model[B] {
	return NewWithInit(cfg, nn.DefaultInitConfig(cfg.NumLayers), backend)
}

// NewWithInit builds a model and initializes it with initCfg.
func NewWithInit[B tensor.Backend](cfg Config, initCfg nn.InitConfig, backend B) *Model[B] {
	m := NewUninitialized(cfg, backend)
	nn.NewInitPolicy(initCfg).Apply(m)
	return m
}

// NewUninitialized builds a model with zero weights and identity
// LayerNorms. It is meant to be filled by a checkpoint import.
// Panics if cfg is invalid.
func NewUninitialized[B tensor.Backend](cfg Config, backend B) *Model[B] {
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("gpt.New: invalid config: %v", err))
	}

	mask := nn.NewParameter("mask", nn.CausalMask(cfg.BlockSize, backend))
	blockCfg := nn.BlockConfig{EmbedDim: cfg.EmbedDim, NumHeads: cfg.NumHeads, NormEps: cfg.NormEps}

	m := &Model[B]{
		Config:            cfg,
		TokenEmbedding:    nn.NewEmbedding(cfg.VocabSize, cfg.EmbedDim, backend),
		PositionEmbedding: nn.NewEmbedding(cfg.BlockSize, cfg.EmbedDim, backend),
		Blocks:            make([]*nn.Block[B], cfg.NumLayers),
		FinalNorm:         nn.NewLayerNorm(cfg.EmbedDim, cfg.NormEps, backend),
		mask:              mask,
		criterion:         nn.NewCrossEntropyLoss(backend),
		backend:           backend,
	}
	for i := range m.Blocks {
		m.Blocks[i] = nn.NewBlock(blockCfg, mask, backend)
	}
	m.Head = nn.NewLinearWithWeight(m.TokenEmbedding.Weight, nn.ScaleStandard)

	m.stateDict = nn.NewStateDict[B]()
	m.Register(m.stateDict, "")
	return m
}

// Forward computes logits for ids and, when targets is non-nil, the mean
// cross-entropy loss over every position.
//
// Shapes:
//   - ids: [batch, seq] int32, values in [0, VocabSize)
//   - targets: [batch, seq] int32 or nil
//   - logits: [batch, seq, VocabSize]
//
// Panics if seq >= BlockSize.
func (m *Model[B]) Forward(ids, targets *tensor.Tensor[int32, B]) ForwardResult[B] {
	shape := ids.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("gpt.Forward: ids must be 2D [batch, seq], got %v", shape))
	}
	batch, seq := shape[0], shape[1]
	if seq >= m.Config.BlockSize {
		panic(fmt.Sprintf("gpt.Forward: cannot forward sequence of length %d, maximum is %d (block size %d)",
			seq, m.Config.BlockSize-1, m.Config.BlockSize))
	}

	positions := tensor.Arange[int32](0, seq, m.backend)
	tok := m.TokenEmbedding.Forward(ids)          // [batch, seq, C]
	pos := m.PositionEmbedding.Forward(positions) // [seq, C]
	x := tok.Add(pos)

	for _, block := range m.Blocks {
		x = block.Forward(x)
	}
	logits := m.Head.Forward(m.FinalNorm.Forward(x))

	result := ForwardResult[B]{Logits: logits}
	if targets != nil {
		if !targets.Shape().Equal(shape) {
			panic(fmt.Sprintf("gpt.Forward: targets shape %v does not match ids shape %v", targets.Shape(), shape))
		}
		result.Loss = m.criterion.Forward(
			logits.Reshape(batch*seq, m.Config.VocabSize),
			targets.Reshape(batch*seq),
		)
	}
	return result
}

// Register adds every parameter and buffer to sd in construction order:
// embeddings, blocks, final norm, then the tied head as an alias.
func (m *Model[B]) Register(sd *nn.StateDict[B], prefix string) {
	m.TokenEmbedding.Register(sd, join(prefix, TokenEmbeddingName))
	m.PositionEmbedding.Register(sd, join(prefix, PositionEmbeddingName))
	for i, block := range m.Blocks {
		block.Register(sd, join(prefix, fmt.Sprintf("%s.%d", BlockName, i)))
	}
	m.FinalNorm.Register(sd, join(prefix, FinalNormName))
	sd.Alias(join(prefix, HeadWeightName), join(prefix, TokenEmbeddingName+".weight"))
}

// Initialize fills the embeddings and every block. The head shares the
// token table and is therefore initialized exactly once.
func (m *Model[B]) Initialize(p *nn.InitPolicy) {
	m.TokenEmbedding.Initialize(p)
	m.PositionEmbedding.Initialize(p)
	for _, block := range m.Blocks {
		block.Initialize(p)
	}
}

// StateDict returns the model's named parameters and buffers.
// The returned dict aliases the live parameters.
func (m *Model[B]) StateDict() *nn.StateDict[B] {
	return m.stateDict
}

// Parameters returns every distinct trainable parameter.
func (m *Model[B]) Parameters() []*nn.Parameter[B] {
	return m.stateDict.Params()
}

// NumParams counts scalar parameters, the tied table once. With
// excludePositions the position embedding is left out, matching the
// usual "non-embedding" count reported for GPT-2.
func (m *Model[B]) NumParams(excludePositions bool) int {
	n := 0
	for _, p := range m.Parameters() {
		n += p.NumElements()
	}
	if excludePositions {
		n -= m.PositionEmbedding.Weight.NumElements()
	}
	return n
}

// BlockSize returns the context window of the model.
func (m *Model[B]) BlockSize() int {
	return m.Config.BlockSize
}

// Backend returns the model's compute backend.
func (m *Model[B]) Backend() B {
	return m.backend
}

// Local parameter name roots.
const (
	TokenEmbeddingName    = "embedding.token"
	PositionEmbeddingName = "embedding.position"
	BlockName             = "block"
	FinalNormName         = "final_norm"
	HeadWeightName        = "head.weight"
)

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
