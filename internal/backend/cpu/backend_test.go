package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/gpt2/internal/parallel"
	"github.com/born-ml/gpt2/internal/tensor"
)

func raw(t *testing.T, data []float32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsFloat32(), data)
	return r
}

func rawInt32(t *testing.T, data []int32, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.NewRaw(tensor.Shape(shape), tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(r.AsInt32(), data)
	return r
}

func TestBinaryOps(t *testing.T) {
	cpu := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	tests := []struct {
		name string
		b    *tensor.RawTensor
		op   func(a, b *tensor.RawTensor) *tensor.RawTensor
		want []float32
	}{
		{"add same shape", raw(t, []float32{1, 1, 1, 1, 1, 1}, 2, 3), cpu.Add, []float32{2, 3, 4, 5, 6, 7}},
		{"add bias row", raw(t, []float32{10, 20, 30}, 3), cpu.Add, []float32{11, 22, 33, 14, 25, 36}},
		{"sub column", raw(t, []float32{1, 4}, 2, 1), cpu.Sub, []float32{0, 1, 2, 0, 1, 2}},
		{"mul scalar-shaped", raw(t, []float32{2}, 1), cpu.Mul, []float32{2, 4, 6, 8, 10, 12}},
		{"div", raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3), cpu.Div, []float32{1, 1, 1, 1, 1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := append([]float32(nil), a.AsFloat32()...)
			got := tt.op(a, tt.b)
			assert.Equal(t, tensor.Shape{2, 3}, got.Shape())
			assert.InDeltaSlice(t, tt.want, got.AsFloat32(), 1e-6)
			assert.Equal(t, before, a.AsFloat32(), "inputs must not be modified")
		})
	}
}

func TestBinaryIncompatibleShapesPanics(t *testing.T) {
	cpu := New()
	assert.Panics(t, func() {
		cpu.Add(raw(t, make([]float32, 6), 2, 3), raw(t, make([]float32, 4), 2, 2))
	})
}

func TestMatMul(t *testing.T) {
	cpu := New()
	a := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
	b := raw(t, []float32{7, 8, 9, 10, 11, 12}, 3, 2)

	c := cpu.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, c.Shape())
	assert.InDeltaSlice(t, []float32{58, 64, 139, 154}, c.AsFloat32(), 1e-5)

	assert.Panics(t, func() { cpu.MatMul(a, a) })
}

func TestBatchMatMulMatchesSequential(t *testing.T) {
	batch, m, k, n := 6, 3, 4, 5
	aData := make([]float32, batch*m*k)
	bData := make([]float32, batch*k*n)
	for i := range aData {
		aData[i] = float32(i%7) - 3
	}
	for i := range bData {
		bData[i] = float32(i%5) * 0.5
	}

	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})
	seq := NewWithConfig(parallel.Sequential())

	a := raw(t, aData, 2, 3, m, k)
	b := raw(t, bData, 2, 3, k, n)
	got := par.BatchMatMul(a, b)
	want := seq.BatchMatMul(a, b)

	assert.Equal(t, tensor.Shape{2, 3, m, n}, got.Shape())
	assert.Equal(t, want.AsFloat32(), got.AsFloat32())

	// Spot-check one batch entry against 2D MatMul.
	first := seq.MatMul(raw(t, aData[:m*k], m, k), raw(t, bData[:k*n], k, n))
	assert.Equal(t, first.AsFloat32(), got.AsFloat32()[:m*n])
}

func TestParallelKernelsMatchSequential(t *testing.T) {
	data := make([]float32, 3*5*7)
	for i := range data {
		data[i] = float32(i%11)*0.37 - 2
	}
	par := NewWithConfig(parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1})
	seq := NewWithConfig(parallel.Sequential())

	for _, dim := range []int{0, 1, -1} {
		want := seq.Softmax(raw(t, data, 3, 5, 7), dim)
		got := par.Softmax(raw(t, data, 3, 5, 7), dim)
		assert.Equal(t, want.AsFloat32(), got.AsFloat32(), "softmax dim %d", dim)
	}

	big := make([]float32, 3*elementwiseChunk+5)
	for i := range big {
		big[i] = float32(i%13) - 6
	}
	want := seq.GELU(raw(t, big, len(big)))
	got := par.GELU(raw(t, big, len(big)))
	assert.Equal(t, want.AsFloat32(), got.AsFloat32())
}

func TestReshape(t *testing.T) {
	cpu := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	y := cpu.Reshape(x, tensor.Shape{3, -1})
	assert.Equal(t, tensor.Shape{3, 2}, y.Shape())
	assert.Equal(t, x.AsFloat32(), y.AsFloat32())

	assert.Panics(t, func() { cpu.Reshape(x, tensor.Shape{4, 2}) })
	assert.Panics(t, func() { cpu.Reshape(x, tensor.Shape{-1, -1}) })
}

func TestTranspose(t *testing.T) {
	cpu := New()

	t.Run("matrix", func(t *testing.T) {
		x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)
		y := cpu.Transpose(x)
		assert.Equal(t, tensor.Shape{3, 2}, y.Shape())
		assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, y.AsFloat32())
	})

	t.Run("heads permutation round trip", func(t *testing.T) {
		data := make([]float32, 2*3*4*5)
		for i := range data {
			data[i] = float32(i)
		}
		x := raw(t, data, 2, 3, 4, 5)
		y := cpu.Transpose(x, 0, 2, 1, 3)
		assert.Equal(t, tensor.Shape{2, 4, 3, 5}, y.Shape())

		// y[b,h,t,d] == x[b,t,h,d]
		assert.Equal(t, data[1*60+2*20+3*5+4], y.AsFloat32()[1*60+3*15+2*5+4])

		back := cpu.Transpose(y, 0, 2, 1, 3)
		assert.Equal(t, data, back.AsFloat32())
	})

	t.Run("int32", func(t *testing.T) {
		x := rawInt32(t, []int32{1, 2, 3, 4}, 2, 2)
		assert.Equal(t, []int32{1, 3, 2, 4}, cpu.Transpose(x).AsInt32())
	})
}

func TestChunk(t *testing.T) {
	cpu := New()
	// [1, 2, 6]: two rows, three chunks of width 2 along the last dim.
	x := raw(t, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, 1, 2, 6)

	parts := cpu.Chunk(x, 3, -1)
	require.Len(t, parts, 3)
	assert.Equal(t, tensor.Shape{1, 2, 2}, parts[0].Shape())
	assert.Equal(t, []float32{1, 2, 7, 8}, parts[0].AsFloat32())
	assert.Equal(t, []float32{3, 4, 9, 10}, parts[1].AsFloat32())
	assert.Equal(t, []float32{5, 6, 11, 12}, parts[2].AsFloat32())

	assert.Panics(t, func() { cpu.Chunk(x, 4, -1) })
}

func TestMathOps(t *testing.T) {
	cpu := New()
	x := raw(t, []float32{1, 4, 9}, 3)

	assert.InDeltaSlice(t, []float32{1, 2, 3}, cpu.Sqrt(x).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{1, 0.5, 1.0 / 3}, cpu.Rsqrt(x).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{0, float32(math.Log(4)), float32(math.Log(9))}, cpu.Log(x).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{float32(math.E)}, cpu.Exp(raw(t, []float32{1}, 1)).AsFloat32(), 1e-5)
	assert.InDeltaSlice(t, []float32{0, float32(math.Tanh(1))}, cpu.Tanh(raw(t, []float32{0, 1}, 2)).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{3, 12, 27}, cpu.MulScalar(x, float32(3)).AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{2, 5, 10}, cpu.AddScalar(x, 1.0).AsFloat32(), 1e-6)

	assert.Panics(t, func() { cpu.Exp(rawInt32(t, []int32{1}, 1)) })
}

func TestGELU(t *testing.T) {
	cpu := New()
	x := raw(t, []float32{-3, -1, 0, 1, 3}, 5)
	got := cpu.GELU(x).AsFloat32()

	// Reference values of the tanh approximation.
	want := []float32{-0.0036373, -0.1588080, 0, 0.8411920, 2.9963627}
	assert.InDeltaSlice(t, want, got, 1e-5)
}

func TestSoftmax(t *testing.T) {
	cpu := New()

	t.Run("rows sum to one", func(t *testing.T) {
		x := raw(t, []float32{1, 2, 3, 1, 1, 1}, 2, 3)
		y := cpu.Softmax(x, -1).AsFloat32()
		assert.InDelta(t, 1.0, y[0]+y[1]+y[2], 1e-6)
		assert.InDeltaSlice(t, []float32{1.0 / 3, 1.0 / 3, 1.0 / 3}, y[3:], 1e-6)
		assert.Greater(t, y[2], y[1])
	})

	t.Run("large values stay finite", func(t *testing.T) {
		x := raw(t, []float32{1000, 1001}, 1, 2)
		y := cpu.Softmax(x, 1).AsFloat32()
		assert.InDelta(t, 0.2689414, y[0], 1e-6)
		assert.InDelta(t, 0.7310586, y[1], 1e-6)
	})

	t.Run("masked entries", func(t *testing.T) {
		inf := float32(math.Inf(-1))
		x := raw(t, []float32{0, inf, inf, 0}, 2, 2)
		y := cpu.Softmax(x, -1).AsFloat32()
		assert.Equal(t, []float32{1, 0, 0, 1}, y)
	})

	t.Run("along first dim", func(t *testing.T) {
		x := raw(t, []float32{0, 5, 0, 5}, 2, 2)
		y := cpu.Softmax(x, 0).AsFloat32()
		assert.InDeltaSlice(t, []float32{0.5, 0.5, 0.5, 0.5}, y, 1e-6)
	})
}

func TestReductions(t *testing.T) {
	cpu := New()
	x := raw(t, []float32{1, 2, 3, 4, 5, 6}, 2, 3)

	s := cpu.SumDim(x, -1, true)
	assert.Equal(t, tensor.Shape{2, 1}, s.Shape())
	assert.Equal(t, []float32{6, 15}, s.AsFloat32())

	s0 := cpu.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, s0.Shape())
	assert.Equal(t, []float32{5, 7, 9}, s0.AsFloat32())

	m := cpu.MeanDim(x, 1, false)
	assert.Equal(t, tensor.Shape{2}, m.Shape())
	assert.InDeltaSlice(t, []float32{2, 5}, m.AsFloat32(), 1e-6)
}

func TestEmbedding(t *testing.T) {
	cpu := New()
	weight := raw(t, []float32{0, 0, 1, 1, 2, 2}, 3, 2)
	idx := rawInt32(t, []int32{2, 0, 1, 2}, 2, 2)

	out := cpu.Embedding(weight, idx)
	assert.Equal(t, tensor.Shape{2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{2, 2, 0, 0, 1, 1, 2, 2}, out.AsFloat32())

	assert.Panics(t, func() { cpu.Embedding(weight, rawInt32(t, []int32{3}, 1)) })
	assert.Panics(t, func() { cpu.Embedding(weight, raw(t, []float32{0}, 1)) })
}
