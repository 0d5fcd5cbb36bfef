package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations and always
// return newly allocated results.
//
// Implementations:
//   - CPU: pure Go element-wise kernels with gonum BLAS matrix multiply
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul performs batched matrix multiplication over the leading dims.
	// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
	// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations (element-wise with scalar).
	MulScalar(x *RawTensor, scalar any) *RawTensor
	AddScalar(x *RawTensor, scalar any) *RawTensor

	// Math operations (element-wise).
	Exp(x *RawTensor) *RawTensor
	Log(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Rsqrt(x *RawTensor) *RawTensor
	Tanh(x *RawTensor) *RawTensor

	// Activation functions.
	GELU(x *RawTensor) *RawTensor             // tanh approximation
	Softmax(x *RawTensor, dim int) *RawTensor // numerically stable, along dimension

	// Reduction operations.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor
	MeanDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Manipulation operations.
	Chunk(x *RawTensor, n, dim int) []*RawTensor // split into n equal parts

	// Indexing operations.
	Embedding(weight, indices *RawTensor) *RawTensor // lookup rows by int32 indices

	// Metadata.
	Name() string
	Device() Device
}
