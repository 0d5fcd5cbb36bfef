// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a float32 CPU backend with:
//   - Pure Go implementation (no CGO)
//   - gonum BLAS matrix multiplication
//   - Batched matmul spread across goroutines
//   - NumPy-compatible broadcasting
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/gpt2/backend/cpu"
//	    "github.com/born-ml/gpt2/gpt"
//	)
//
//	func main() {
//	    backend := cpu.New()
//	    model := gpt.New(gpt.DefaultConfig(), backend)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Each tensor operation
// is isolated and does not share mutable state.
package cpu
