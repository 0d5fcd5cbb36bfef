// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package checkpoint loads and saves GPT-2 weights in SafeTensors files
// written by the HuggingFace transformers library.
//
// Example:
//
//	backend := cpu.New()
//	model, err := checkpoint.LoadPretrained("gpt2/model.safetensors", gpt.GPT2, backend)
//	if err != nil {
//	    log.Fatal(err)
//	}
package checkpoint

import (
	"github.com/born-ml/gpt2/internal/checkpoint"
	"github.com/born-ml/gpt2/internal/gpt"
	"github.com/born-ml/gpt2/tensor"
)

// Source identifies a foreign checkpoint layout.
type Source = checkpoint.Source

// Known sources.
const (
	// SourceHFStateDict is GPT2LMHeadModel.state_dict(): "transformer."
	// prefixed names plus lm_head.weight.
	SourceHFStateDict = checkpoint.SourceHFStateDict

	// SourceHFModel is what save_pretrained writes for GPT2LMHeadModel:
	// "transformer." prefixed names, lm_head dropped as a tied duplicate.
	SourceHFModel = checkpoint.SourceHFModel

	// SourceHFHub is the model.safetensors published on the hub: bare names,
	// no lm_head.
	SourceHFHub = checkpoint.SourceHFHub
)

// Convention describes one foreign naming and layout scheme.
type Convention = checkpoint.Convention

// AlignmentError reports why a checkpoint cannot be mapped onto a model.
type AlignmentError = checkpoint.AlignmentError

// Errors, test with errors.Is.
var (
	ErrParameterCount   = checkpoint.ErrParameterCount
	ErrShapeMismatch    = checkpoint.ErrShapeMismatch
	ErrUnknownParameter = checkpoint.ErrUnknownParameter
	ErrUnsupportedDType = checkpoint.ErrUnsupportedDType
	ErrUnknownSource    = checkpoint.ErrUnknownSource
	ErrTiedMismatch     = checkpoint.ErrTiedMismatch
)

// Lookup returns the convention for source.
func Lookup(source Source) (*Convention, error) {
	return checkpoint.Lookup(source)
}

// Sources lists the registered sources.
func Sources() []Source {
	return checkpoint.Sources()
}

// LoadPretrained builds a model of a published size and fills it from path.
func LoadPretrained[B tensor.Backend](path, modelType string, backend B) (*gpt.Model[B], error) {
	return checkpoint.LoadPretrained(path, modelType, backend)
}

// LoadWithConfig builds a model for cfg and fills it from path.
func LoadWithConfig[B tensor.Backend](path string, cfg gpt.Config, backend B) (*gpt.Model[B], error) {
	return checkpoint.LoadWithConfig(path, cfg, backend)
}

// LoadInto fills an existing model from path. On error the model is unchanged.
func LoadInto[B tensor.Backend](model *gpt.Model[B], path string) (*Convention, error) {
	return checkpoint.LoadInto(model, path)
}

// Save writes the model's parameters to path under source's naming.
func Save[B tensor.Backend](model *gpt.Model[B], path string, source Source) error {
	return checkpoint.Save(model, path, source)
}

// Import copies foreign tensors into the model. Either every parameter is
// written or none is.
func Import[B tensor.Backend](model *gpt.Model[B], foreign map[string]*tensor.RawTensor, conv *Convention) error {
	return checkpoint.Import(model.StateDict(), foreign, conv)
}

// Export returns copies of the model's parameters under conv's naming.
func Export[B tensor.Backend](model *gpt.Model[B], conv *Convention) (map[string]*tensor.RawTensor, error) {
	return checkpoint.Export(model.StateDict(), conv)
}

// ReadSafeTensors reads every tensor in a SafeTensors file as float32.
func ReadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	return checkpoint.ReadSafeTensors(path)
}

// WriteSafeTensors writes float32 tensors to a SafeTensors file.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	return checkpoint.WriteSafeTensors(path, tensors, metadata)
}
