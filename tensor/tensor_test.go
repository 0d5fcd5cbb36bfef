// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/backend/cpu"
	"github.com/born-ml/gpt2/tensor"
)

func TestCreation(t *testing.T) {
	backend := cpu.New()

	pos := tensor.Arange[int32](0, 5, backend)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, pos.Data())
	assert.Equal(t, tensor.Int32, pos.DType())

	steps := tensor.Arange[float32](2, 4, backend)
	assert.Equal(t, []float32{2, 3}, steps.Data())

	sum := tensor.Ones[float32](tensor.Shape{2, 2}, backend).Add(tensor.Full[float32](tensor.Shape{2, 2}, 2, backend))
	assert.Equal(t, []float32{3, 3, 3, 3}, sum.Data())
	assert.Equal(t, tensor.Float32, tensor.Zeros[float32](tensor.Shape{1}, backend).DType())
}

func TestFromSliceAndRaw(t *testing.T) {
	backend := cpu.New()

	ids, err := tensor.FromSlice([]int32{15496, 11, 314}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	assert.Equal(t, int32(314), ids.At(0, 2))

	_, err = tensor.FromSlice([]int32{1, 2}, tensor.Shape{3}, backend)
	assert.Error(t, err)

	raw, err := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	assert.Equal(t, 6, raw.NumElements())

	shape, _, err := tensor.BroadcastShapes(tensor.Shape{2, 1}, tensor.Shape{3})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, shape)
}
