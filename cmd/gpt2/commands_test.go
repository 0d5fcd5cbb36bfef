package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/gpt2/internal/gpt"
)

func TestValidateEval(t *testing.T) {
	block := gpt.DefaultBlockSize

	tests := []struct {
		name              string
		batch, seq, steps int
		wantErr           string
	}{
		{name: "defaults", batch: 4, seq: 32, steps: 10},
		{name: "longest window", batch: 1, seq: block - 1, steps: 1},
		{name: "zero steps", batch: 4, seq: 32, steps: 0, wantErr: "-steps"},
		{name: "zero batch", batch: 0, seq: 32, steps: 1, wantErr: "-batch"},
		{name: "zero seq", batch: 4, seq: 0, steps: 1, wantErr: "-seq"},
		{name: "seq at block size", batch: 4, seq: block, steps: 1, wantErr: "-seq"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEval(tt.batch, tt.seq, tt.steps, block)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
