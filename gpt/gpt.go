// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package gpt is the public API of the GPT-2 model.
//
// Example:
//
//	backend := cpu.New()
//	model := gpt.New(gpt.DefaultConfig(), backend)
//
//	ids, _ := tensor.FromSlice([]int32{15496, 11, 314, 1101}, tensor.Shape{1, 4}, backend)
//	res := model.Forward(ids, nil)
//	// res.Logits: [1, 4, 50257]
package gpt

import (
	"github.com/born-ml/gpt2/internal/gpt"
	"github.com/born-ml/gpt2/internal/nn"
	"github.com/born-ml/gpt2/tensor"
)

// Model type names accepted by ConfigFor.
const (
	GPT2       = gpt.GPT2
	GPT2Medium = gpt.GPT2Medium
	GPT2Large  = gpt.GPT2Large
	GPT2XL     = gpt.GPT2XL
)

// Vocabulary and context size shared by every published GPT-2.
const (
	DefaultVocabSize = gpt.DefaultVocabSize
	DefaultBlockSize = gpt.DefaultBlockSize
)

// ErrUnknownModelType is returned by ConfigFor for an unsupported name.
var ErrUnknownModelType = gpt.ErrUnknownModelType

// Config describes the model architecture.
type Config = gpt.Config

// Model is the GPT-2 language model.
type Model[B tensor.Backend] = gpt.Model[B]

// ForwardResult holds logits and, when targets were given, the loss.
type ForwardResult[B tensor.Backend] = gpt.ForwardResult[B]

// InitConfig configures weight initialization.
type InitConfig = nn.InitConfig

// DefaultConfig returns the 124M-parameter configuration.
func DefaultConfig() Config {
	return gpt.DefaultConfig()
}

// ConfigFor returns the configuration of a published GPT-2 size.
func ConfigFor(modelType string) (Config, error) {
	return gpt.ConfigFor(modelType)
}

// ModelTypes lists the names ConfigFor accepts.
func ModelTypes() []string {
	return gpt.ModelTypes()
}

// DefaultInitConfig returns std 0.02 with a fixed seed.
func DefaultInitConfig(numLayers int) InitConfig {
	return nn.DefaultInitConfig(numLayers)
}

// New builds and initializes a model. Panics if cfg is invalid.
func New[B tensor.Backend](cfg Config, backend B) *Model[B] {
	return gpt.New(cfg, backend)
}

// NewWithInit builds a model initialized with initCfg.
func NewWithInit[B tensor.Backend](cfg Config, initCfg InitConfig, backend B) *Model[B] {
	return gpt.NewWithInit(cfg, initCfg, backend)
}

// NewUninitialized builds a zero-weight model to be filled from a checkpoint.
func NewUninitialized[B tensor.Backend](cfg Config, backend B) *Model[B] {
	return gpt.NewUninitialized(cfg, backend)
}
