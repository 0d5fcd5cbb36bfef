package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"github.com/born-ml/gpt2/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// maxHeaderSize bounds the JSON header we are willing to allocate.
const maxHeaderSize = 100 * 1024 * 1024

// SafeTensorsDType represents SafeTensors data type tags.
type SafeTensorsDType string

// SafeTensors dtypes understood by the reader. All are decoded to float32.
const (
	SafeTensorsF16  SafeTensorsDType = "F16"
	SafeTensorsBF16 SafeTensorsDType = "BF16"
	SafeTensorsF32  SafeTensorsDType = "F32"
	SafeTensorsF64  SafeTensorsDType = "F64"
)

func (d SafeTensorsDType) size() (int, bool) {
	switch d {
	case SafeTensorsF16, SafeTensorsBF16:
		return 2, true
	case SafeTensorsF32:
		return 4, true
	case SafeTensorsF64:
		return 8, true
	default:
		return 0, false
	}
}

// SafeTensorInfo describes a tensor in SafeTensors format.
type SafeTensorInfo struct {
	DType       SafeTensorsDType `json:"dtype"`
	Shape       []int            `json:"shape"`
	DataOffsets [2]int64         `json:"data_offsets"` // [start, end) relative to the data section
}

// SafeTensorsReader reads SafeTensors files.
type SafeTensorsReader struct {
	file       *os.File
	tensors    map[string]SafeTensorInfo
	metadata   map[string]string
	dataOffset int64
}

// OpenSafeTensors opens a SafeTensors file and parses its header.
// Tensor data is read lazily.
func OpenSafeTensors(path string) (*SafeTensorsReader, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newSafeTensorsReader(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newSafeTensorsReader(file *os.File) (*SafeTensorsReader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > maxHeaderSize || int64(headerSize)+8 > stat.Size() { //nolint:gosec // G115: bounded above
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r := &SafeTensorsReader{
		file:       file,
		tensors:    make(map[string]SafeTensorInfo, len(raw)),
		dataOffset: int64(8 + headerSize), //nolint:gosec // G115: bounded by file size
	}
	dataSize := stat.Size() - r.dataOffset

	for key, value := range raw {
		if key == "__metadata__" {
			if err := json.Unmarshal(value, &r.metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info SafeTensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		if err := validateInfo(key, info, dataSize); err != nil {
			return nil, err
		}
		r.tensors[key] = info
	}
	return r, nil
}

func validateInfo(name string, info SafeTensorInfo, dataSize int64) error {
	start, end := info.DataOffsets[0], info.DataOffsets[1]
	if start < 0 || end < start || end > dataSize {
		return fmt.Errorf("%w: tensor %s at [%d, %d), data section is %d bytes", ErrOutOfBounds, name, start, end, dataSize)
	}
	elem, ok := info.DType.size()
	if !ok {
		return nil // rejected when read, so unrelated tensors stay loadable
	}
	n := int64(tensor.Shape(info.Shape).NumElements())
	if n*int64(elem) != end-start {
		return fmt.Errorf("tensor %s: shape %v with dtype %s needs %d bytes, header gives %d",
			name, info.Shape, info.DType, n*int64(elem), end-start)
	}
	return nil
}

// Close closes the underlying file.
func (r *SafeTensorsReader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the optional __metadata__ map.
func (r *SafeTensorsReader) Metadata() map[string]string {
	return r.metadata
}

// TensorNames returns all tensor names, sorted.
func (r *SafeTensorsReader) TensorNames() []string {
	names := make([]string, 0, len(r.tensors))
	for name := range r.tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TensorInfo returns header information for one tensor.
func (r *SafeTensorsReader) TensorInfo(name string) (SafeTensorInfo, error) {
	info, ok := r.tensors[name]
	if !ok {
		return SafeTensorInfo{}, fmt.Errorf("tensor %s not found", name)
	}
	return info, nil
}

// ReadTensor reads one tensor and decodes it to float32.
func (r *SafeTensorsReader) ReadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	if _, ok := info.DType.size(); !ok {
		return nil, &AlignmentError{Kind: ErrUnsupportedDType, Name: name, Details: string(info.DType)}
	}

	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	data := make([]byte, info.DataOffsets[1]-info.DataOffsets[0])
	if _, err := r.file.ReadAt(data, r.dataOffset+info.DataOffsets[0]); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}

	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor %s: %w", name, err)
	}
	decodeFloat32(raw.AsFloat32(), data, info.DType)
	return raw, nil
}

// ReadAll reads every tensor in the file.
func (r *SafeTensorsReader) ReadAll() (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(r.tensors))
	for _, name := range r.TensorNames() {
		t, err := r.ReadTensor(name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

// ReadSafeTensors opens path, reads every tensor and closes the file.
func ReadSafeTensors(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	r, err := OpenSafeTensors(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = r.Close()
	}()

	tensors, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return tensors, r.Metadata(), nil
}

func decodeFloat32(dst []float32, data []byte, dtype SafeTensorsDType) {
	switch dtype {
	case SafeTensorsF32:
		for i := range dst {
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
	case SafeTensorsF64:
		for i := range dst {
			dst[i] = float32(math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:])))
		}
	case SafeTensorsF16:
		for i := range dst {
			dst[i] = float16ToFloat32(binary.LittleEndian.Uint16(data[i*2:]))
		}
	case SafeTensorsBF16:
		for i := range dst {
			dst[i] = math.Float32frombits(uint32(binary.LittleEndian.Uint16(data[i*2:])) << 16)
		}
	}
}

// float16ToFloat32 converts IEEE 754 half precision to float32.
func float16ToFloat32(h uint16) float32 {
	sign := uint32(h>>15) << 31
	exp := int32(h>>10) & 0x1F
	mant := uint32(h & 0x3FF)

	switch {
	case exp == 0 && mant == 0:
		return math.Float32frombits(sign)
	case exp == 0:
		// Subnormal: shift until the implicit bit appears.
		e := int32(1)
		for mant&0x400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x3FF
		return math.Float32frombits(sign | uint32(e+127-15)<<23 | mant<<13) //nolint:gosec // G115: e+112 > 0
	case exp == 0x1F:
		return math.Float32frombits(sign | 0x7F800000 | mant<<13)
	default:
		return math.Float32frombits(sign | uint32(exp+127-15)<<23 | mant<<13) //nolint:gosec // G115: exp in [1, 30]
	}
}

// SafeTensorHeader represents a tensor in a written SafeTensors header.
type SafeTensorHeader struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// WriteSafeTensors writes float32 tensors to a SafeTensors file.
// Tensors are written in alphabetical order by name.
func WriteSafeTensors(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	//nolint:gosec // G304: File path comes from user input, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := EncodeSafeTensors(file, tensors, metadata); err != nil {
		_ = file.Close() // Best effort close on error
		return fmt.Errorf("%s: %w", path, err)
	}
	return file.Close()
}

// EncodeSafeTensors writes tensors in SafeTensors format to w.
// The header is padded with spaces to an 8-byte boundary.
func EncodeSafeTensors(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name, raw := range tensors {
		if raw.DType() != tensor.Float32 {
			return &AlignmentError{Kind: ErrUnsupportedDType, Name: name, Details: raw.DType().String()}
		}
		names = append(names, name)
	}
	slices.Sort(names)

	header := make(map[string]any, len(names)+1)
	if len(metadata) > 0 {
		header["__metadata__"] = metadata
	}

	var offset int64
	for _, name := range names {
		raw := tensors[name]
		size := int64(raw.ByteSize())

		shape := make([]int64, len(raw.Shape()))
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}

		header[name] = SafeTensorHeader{
			DType:       string(SafeTensorsF32),
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	for len(headerJSON)%8 != 0 {
		headerJSON = append(headerJSON, ' ')
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	// Data is stored little-endian; RawTensor bytes are host order, which
	// is little-endian on every platform we build for.
	for _, name := range names {
		if _, err := w.Write(tensors[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}
