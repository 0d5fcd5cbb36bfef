// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer converts between text and GPT-2 token ids.
//
// Example:
//
//	tok, err := tokenizer.NewGPT2()
//	ids, err := tok.Encode("Hello, I'm a language model,")
package tokenizer

import (
	"github.com/born-ml/gpt2/internal/tokenizer"
)

// Tokenizer converts text to token ids and back.
type Tokenizer = tokenizer.Tokenizer

// TikToken is the tiktoken-go backed tokenizer.
type TikToken = tokenizer.TikToken

// HFTokenizer loads a HuggingFace tokenizer.json.
type HFTokenizer = tokenizer.HFTokenizer

// EncodingGPT2 is the tiktoken encoding shared by all GPT-2 sizes.
const EncodingGPT2 = tokenizer.EncodingGPT2

// NewGPT2 returns the GPT-2 byte-level BPE tokenizer.
func NewGPT2() (*TikToken, error) {
	return tokenizer.NewGPT2()
}

// NewTikToken creates a tokenizer for a tiktoken encoding or model name.
func NewTikToken(name string) (*TikToken, error) {
	return tokenizer.NewTikToken(name)
}

// NewHFTokenizer loads the tokenizer.json at path.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	return tokenizer.NewHFTokenizer(path)
}

// Load resolves a tokenizer.json path, a directory holding one, or a
// tiktoken encoding name.
func Load(nameOrPath string) (Tokenizer, error) {
	return tokenizer.Load(nameOrPath)
}
