package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"time"

	"github.com/born-ml/gpt2/internal/backend/cpu"
	"github.com/born-ml/gpt2/internal/checkpoint"
	"github.com/born-ml/gpt2/internal/data"
	"github.com/born-ml/gpt2/internal/generate"
	"github.com/born-ml/gpt2/internal/gpt"
	"github.com/born-ml/gpt2/internal/nn"
	"github.com/born-ml/gpt2/internal/tokenizer"
)

type backend = *cpu.CPUBackend

// modelFlags are shared by every command that builds a model.
type modelFlags struct {
	modelType string
	weights   string
	seed      uint64
	verbose   bool
}

func (m *modelFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.modelType, "model", gpt.GPT2, "Model type: gpt2, gpt2-medium, gpt2-large, gpt2-xl")
	fs.StringVar(&m.weights, "weights", "", "SafeTensors checkpoint (random init when empty)")
	fs.Uint64Var(&m.seed, "init-seed", 1337, "Seed for random initialization")
	fs.BoolVar(&m.verbose, "v", false, "Verbose logging")
}

// build returns a pretrained model when weights is set, otherwise a
// freshly initialized one.
func (m *modelFlags) build(b backend) (*gpt.Model[backend], error) {
	cfg, err := gpt.ConfigFor(m.modelType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if m.weights == "" {
		initCfg := nn.DefaultInitConfig(cfg.NumLayers)
		initCfg.Seed = m.seed
		model := gpt.NewWithInit(cfg, initCfg, b)
		slog.Info("initialized model", "model", m.modelType, "params", model.NumParams(false), "elapsed", time.Since(start))
		return model, nil
	}

	model, err := checkpoint.LoadWithConfig(m.weights, cfg, b)
	if err != nil {
		return nil, err
	}
	slog.Info("loaded model", "model", m.modelType, "path", m.weights, "params", model.NumParams(false), "elapsed", time.Since(start))
	return model, nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	modelType := fs.String("model", "", "Model type (all presets when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogger(false)

	types := gpt.ModelTypes()
	if *modelType != "" {
		types = []string{*modelType}
	}
	for _, name := range types {
		cfg, err := gpt.ConfigFor(name)
		if err != nil {
			return err
		}
		fmt.Printf("%-12s layers=%-3d heads=%-3d embed=%-5d block=%d vocab=%d params=%d\n",
			name, cfg.NumLayers, cfg.NumHeads, cfg.EmbedDim, cfg.BlockSize, cfg.VocabSize, cfg.NumParams())
	}
	return nil
}

func runEval(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	var mf modelFlags
	mf.register(fs)
	dataPath := fs.String("data", "input.txt", "UTF-8 text file to evaluate on")
	tokName := fs.String("tokenizer", tokenizer.EncodingGPT2, "tiktoken encoding, tokenizer.json or a directory holding one")
	batchSize := fs.Int("batch", 4, "Batch size")
	seq := fs.Int("seq", 32, "Sequence length")
	steps := fs.Int("steps", 10, "Number of batches")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogger(mf.verbose)

	cfg, err := gpt.ConfigFor(mf.modelType)
	if err != nil {
		return err
	}
	if err := validateEval(*batchSize, *seq, *steps, cfg.BlockSize); err != nil {
		return err
	}

	b := cpu.New()
	model, err := mf.build(b)
	if err != nil {
		return err
	}

	tok, err := tokenizer.Load(*tokName)
	if err != nil {
		return err
	}
	loader, err := data.FromFile(*dataPath, tok, *batchSize, *seq, b)
	if err != nil {
		return err
	}
	slog.Info("loaded data", "path", *dataPath, "tokens", loader.NumTokens(), "batches_per_epoch", loader.BatchesPerEpoch())

	var total float64
	for step := 0; step < *steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		batch := loader.Next()
		res := model.Forward(batch.Inputs, batch.Targets)
		loss := float64(res.Loss.Item())
		total += loss
		slog.Info("eval", "step", step, "loss", loss, "elapsed", time.Since(start))
	}
	slog.Info("done", "steps", *steps, "mean_loss", total/float64(*steps))
	return nil
}

// validateEval rejects eval flags that would divide by zero or overflow
// the model's context window.
func validateEval(batch, seq, steps, blockSize int) error {
	switch {
	case batch <= 0:
		return fmt.Errorf("-batch must be positive, got %d", batch)
	case steps <= 0:
		return fmt.Errorf("-steps must be positive, got %d", steps)
	case seq <= 0 || seq >= blockSize:
		return fmt.Errorf("-seq must be between 1 and %d, got %d", blockSize-1, seq)
	}
	return nil
}

func runGenerate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var mf modelFlags
	mf.register(fs)
	tokName := fs.String("tokenizer", tokenizer.EncodingGPT2, "tiktoken encoding, tokenizer.json or a directory holding one")
	prompt := fs.String("prompt", "Hello, I'm a language model,", "Text prompt")
	maxTokens := fs.Int("max-tokens", 30, "Tokens to generate per sequence")
	num := fs.Int("num", 5, "Number of sequences")
	temperature := fs.Float64("temperature", 1.0, "Sampling temperature (0 = greedy)")
	topK := fs.Int("top-k", 50, "Top-k sampling (0 = disabled)")
	topP := fs.Float64("top-p", 1.0, "Top-p (nucleus) sampling (1 = disabled)")
	seed := fs.Int64("seed", 42, "Sampling seed (-1 = random)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogger(mf.verbose)

	tok, err := tokenizer.Load(*tokName)
	if err != nil {
		return err
	}
	model, err := mf.build(cpu.New())
	if err != nil {
		return err
	}

	gen := generate.NewGenerator[backend](model, generate.SamplingConfig{
		Temperature: float32(*temperature),
		TopK:        *topK,
		TopP:        float32(*topP),
		Seed:        *seed,
	})

	start := time.Now()
	texts, err := gen.GenerateText(ctx, tok, *prompt, *maxTokens, *num)
	if err != nil {
		return err
	}
	slog.Debug("generated", "sequences", *num, "tokens", *maxTokens, "elapsed", time.Since(start))

	for _, text := range texts {
		fmt.Println(">", text)
	}
	return nil
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	modelType := fs.String("model", gpt.GPT2, "Model type")
	weights := fs.String("weights", "", "SafeTensors checkpoint (required)")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogger(*verbose)
	if *weights == "" {
		return errors.New("-weights is required")
	}

	cfg, err := gpt.ConfigFor(*modelType)
	if err != nil {
		return err
	}
	model := gpt.NewUninitialized(cfg, cpu.New())
	conv, err := checkpoint.LoadInto(model, *weights)
	if err != nil {
		return err
	}
	slog.Info("checkpoint matches model",
		"model", *modelType,
		"source", conv.Source,
		"params", model.NumParams(false),
		"non_embedding_params", model.NumParams(true))
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	var mf modelFlags
	mf.register(fs)
	out := fs.String("out", "model.safetensors", "Output SafeTensors file")
	source := fs.String("source", string(checkpoint.SourceHFStateDict), "Naming convention: hf-state-dict, hf-model or hf-hub")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogger(mf.verbose)

	model, err := mf.build(cpu.New())
	if err != nil {
		return err
	}
	if err := checkpoint.Save(model, *out, checkpoint.Source(*source)); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	slog.Info("exported", "path", *out, "source", *source)
	return nil
}
