package tokenizer

import (
	"fmt"
	"os"
	"path/filepath"
)

// EndOfText is the GPT-2 end-of-text marker.
const EndOfText = "<|endoftext|>"

// Tokenizer converts text to token ids and back.
type Tokenizer interface {
	// Encode converts text to token IDs.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// EosToken returns the end-of-text token ID, or -1 if there is none.
	EosToken() int32
}

// Load resolves nameOrPath to a tokenizer.
//
// It tries, in order:
//  1. a tokenizer.json file, or a directory containing one
//  2. a tiktoken encoding name ("r50k_base", "gpt2")
func Load(nameOrPath string) (Tokenizer, error) {
	if info, err := os.Stat(nameOrPath); err == nil {
		path := nameOrPath
		if info.IsDir() {
			path = filepath.Join(nameOrPath, "tokenizer.json")
		}
		tok, err := NewHFTokenizer(path)
		if err != nil {
			return nil, err
		}
		return tok, nil
	}

	if tok, err := NewTikToken(nameOrPath); err == nil {
		return tok, nil
	}
	return nil, fmt.Errorf("failed to load tokenizer from %q", nameOrPath)
}
