package tokenizer

import (
	"fmt"

	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HFTokenizer loads a HuggingFace tokenizer.json, such as the one shipped
// with the gpt2 hub repository.
type HFTokenizer struct {
	tk        *tk.Tokenizer
	vocabSize int
	eos       int32
}

// NewHFTokenizer loads the tokenizer.json at path.
func NewHFTokenizer(path string) (*HFTokenizer, error) {
	t, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer.json %s: %w", path, err)
	}

	vocab := t.GetVocab(true)
	h := &HFTokenizer{tk: t, vocabSize: len(vocab), eos: -1}
	if id, ok := vocab[EndOfText]; ok {
		h.eos = int32(id) //nolint:gosec // G115: vocab ids fit in int32
	}
	return h, nil
}

// Encode converts text to token IDs without adding special tokens.
func (h *HFTokenizer) Encode(text string) ([]int32, error) {
	enc, err := h.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	out := make([]int32, len(enc.Ids))
	for i, id := range enc.Ids {
		out[i] = int32(id) //nolint:gosec // G115: vocab ids fit in int32
	}
	return out, nil
}

// Decode converts token IDs back to text, keeping special tokens.
func (h *HFTokenizer) Decode(tokens []int32) (string, error) {
	ids := make([]int, len(tokens))
	for i, tok := range tokens {
		if tok < 0 || int(tok) >= h.vocabSize {
			return "", fmt.Errorf("token %d at position %d out of range [0, %d)", tok, i, h.vocabSize)
		}
		ids[i] = int(tok)
	}
	return h.tk.Decode(ids, false), nil
}

// VocabSize returns the vocabulary size including added tokens.
func (h *HFTokenizer) VocabSize() int {
	return h.vocabSize
}

// EosToken returns the <|endoftext|> id, or -1 when the vocabulary lacks it.
func (h *HFTokenizer) EosToken() int32 {
	return h.eos
}
