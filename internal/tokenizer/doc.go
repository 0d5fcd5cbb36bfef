// Package tokenizer converts between text and GPT-2 token ids.
//
// Two implementations are provided:
//   - TikToken: the GPT-2 byte-level BPE (r50k_base) via tiktoken-go
//   - HFTokenizer: any HuggingFace tokenizer.json via sugarme/tokenizer
//
// Example usage:
//
//	tok, err := tokenizer.NewGPT2()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, err := tok.Encode("Hello, I'm a language model,")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	text, err := tok.Decode(ids)
package tokenizer
