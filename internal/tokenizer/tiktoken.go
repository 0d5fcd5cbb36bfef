package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// EncodingGPT2 is the byte-level BPE used by every GPT-2 size.
	EncodingGPT2 = "r50k_base"

	// gpt2VocabSize counts the 50000 merges, 256 byte tokens and <|endoftext|>.
	gpt2VocabSize = 50257
	gpt2EndOfText = 50256
)

// TikToken wraps pkoukk/tiktoken-go.
//
// The BPE ranks are downloaded and cached by tiktoken-go on first use
// (see TIKTOKEN_CACHE_DIR).
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
}

// NewGPT2 returns the GPT-2 tokenizer.
func NewGPT2() (*TikToken, error) {
	return NewTikToken(EncodingGPT2)
}

// NewTikToken creates a tokenizer for a tiktoken encoding name. The model
// name "gpt2" is accepted as an alias for r50k_base.
func NewTikToken(name string) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(name)
	if err != nil {
		var modelErr error
		encoding, modelErr = tiktoken.EncodingForModel(name)
		if modelErr != nil {
			return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", name, err)
		}
	}

	return &TikToken{
		encoding: encoding,
		name:     name,
	}, nil
}

// Encode converts text to token IDs. Special tokens in text are encoded as
// ordinary text.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.EncodeOrdinary(text)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || int(tok) >= gpt2VocabSize {
			return "", fmt.Errorf("token %d at position %d out of range [0, %d)", tok, i, gpt2VocabSize)
		}
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the vocabulary size, 50257 for GPT-2.
func (t *TikToken) VocabSize() int {
	return gpt2VocabSize
}

// EosToken returns the <|endoftext|> id.
func (t *TikToken) EosToken() int32 {
	return gpt2EndOfText
}

// Name returns the name the tokenizer was created with.
func (t *TikToken) Name() string {
	return t.name
}
