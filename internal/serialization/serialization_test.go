package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile() *File {
	return &File{
		Header: Header{
			ModelType:    "MLP",
			Topology:     []int{2, 3},
			Activations:  []string{"sigmoid"},
			LearningRate: 0.25,
			Metadata:     map[string]string{"dataset": "xor"},
		},
		Tensors: []Tensor{
			{Name: "layers.1.weight", Shape: []int{3, 2}, Data: []float64{1, -2, 3.5, math.Pi, 0, -1e-9}},
			{Name: "layers.1.bias", Shape: []int{3}, Data: []float64{0.5, math.MaxFloat64, math.SmallestNonzeroFloat64}},
		},
	}
}

func encode(t *testing.T, f *File) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := Encode(&buf, f)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	return buf.Bytes()
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	f := testFile()
	data := encode(t, f)

	got, err := Decode(bytes.NewReader(data), ReaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, got.Header.FormatVersion)
	assert.Equal(t, "MLP", got.Header.ModelType)
	assert.Equal(t, []int{2, 3}, got.Header.Topology)
	assert.Equal(t, []string{"sigmoid"}, got.Header.Activations)
	assert.Equal(t, 0.25, got.Header.LearningRate)
	assert.Equal(t, "xor", got.Header.Metadata["dataset"])
	assert.False(t, got.Header.CreatedAt.IsZero())
	require.Len(t, got.Header.Tensors, 2)

	require.Len(t, got.Tensors, 2)
	for i, want := range f.Tensors {
		assert.Equal(t, want.Name, got.Tensors[i].Name)
		assert.Equal(t, want.Shape, got.Tensors[i].Shape)
		assert.Equal(t, want.Data, got.Tensors[i].Data, "values must be bit-exact")
	}

	bias, ok := got.Tensor("layers.1.bias")
	require.True(t, ok)
	assert.Equal(t, 3, bias.NumElements())

	_, ok = got.Tensor("layers.9.bias")
	assert.False(t, ok)
}

func TestEncode_Layout(t *testing.T) {
	f := testFile()
	f.Header.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	data := encode(t, f)

	assert.Equal(t, MagicBytes, string(data[0:4]))
	assert.Equal(t, uint32(FormatVersion), binary.LittleEndian.Uint32(data[4:8]))
	assert.Equal(t, FlagHasMetadata, binary.LittleEndian.Uint32(data[8:12]))

	headerSize := binary.LittleEndian.Uint64(data[16:24])
	dataSize := binary.LittleEndian.Uint64(data[24:32])
	assert.Equal(t, uint64((6+3)*8), dataSize)

	// The data section starts on an aligned boundary and runs to the end.
	dataStart := len(data) - int(dataSize)
	assert.Zero(t, dataStart%HeaderAlignment)
	assert.GreaterOrEqual(t, dataStart, FixedHeaderSize+int(headerSize))

	var stored Checksum
	copy(stored[:], data[ChecksumOffset:ChecksumOffset+ChecksumSize])
	assert.Equal(t, ChecksumOf(data[dataStart:]), stored)

	first := math.Float64frombits(binary.LittleEndian.Uint64(data[dataStart:]))
	assert.Equal(t, 1.0, first)

	// Same input, same bytes.
	assert.Equal(t, data, encode(t, f))
}

func TestEncode_NoMetadataFlag(t *testing.T) {
	f := testFile()
	f.Header.Metadata = nil
	data := encode(t, f)
	assert.Zero(t, binary.LittleEndian.Uint32(data[8:12]))
}

func TestEncode_InvalidTensors(t *testing.T) {
	tests := []struct {
		name   string
		tensor Tensor
	}{
		{"empty name", Tensor{Name: "", Shape: []int{1}, Data: []float64{1}}},
		{"path name", Tensor{Name: "../weight", Shape: []int{1}, Data: []float64{1}}},
		{"separator", Tensor{Name: "layers/0", Shape: []int{1}, Data: []float64{1}}},
		{"data length", Tensor{Name: "w", Shape: []int{2, 2}, Data: []float64{1, 2, 3}}},
		{"zero dimension", Tensor{Name: "w", Shape: []int{0, 3}, Data: nil}},
		{"negative dimension", Tensor{Name: "w", Shape: []int{-1, -2}, Data: []float64{1, 2}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := Encode(&buf, &File{Tensors: []Tensor{tt.tensor}})
			require.Error(t, err)
			assert.Zero(t, buf.Len(), "nothing is written on validation failure")
		})
	}
}

func TestDecode_InvalidMagic(t *testing.T) {
	data := encode(t, testFile())
	copy(data[0:4], "BORN")

	_, err := Decode(bytes.NewReader(data), ReaderOptions{})
	require.ErrorIs(t, err, ErrInvalidMagic)
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	data := encode(t, testFile())
	binary.LittleEndian.PutUint32(data[4:8], 99)

	_, err := Decode(bytes.NewReader(data), ReaderOptions{})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Contains(t, err.Error(), "99")
}

func TestDecode_SizeLimits(t *testing.T) {
	t.Run("header", func(t *testing.T) {
		data := encode(t, testFile())
		binary.LittleEndian.PutUint64(data[16:24], MaxHeaderSize+1)
		_, err := Decode(bytes.NewReader(data), ReaderOptions{})
		require.ErrorIs(t, err, ErrHeaderTooLarge)
	})

	t.Run("data", func(t *testing.T) {
		data := encode(t, testFile())
		binary.LittleEndian.PutUint64(data[24:32], MaxDataSize+1)
		_, err := Decode(bytes.NewReader(data), ReaderOptions{})
		require.ErrorIs(t, err, ErrDataTooLarge)
	})
}

func TestDecode_Checksum(t *testing.T) {
	data := encode(t, testFile())
	data[len(data)-1] ^= 0x01

	_, err := Decode(bytes.NewReader(data), ReaderOptions{})
	require.ErrorIs(t, err, ErrChecksumMismatch)

	f, err := Decode(bytes.NewReader(data), ReaderOptions{SkipChecksumValidation: true})
	require.NoError(t, err)
	assert.NotEqual(t, testFile().Tensors[1].Data, f.Tensors[1].Data)
}

func TestDecode_Truncated(t *testing.T) {
	data := encode(t, testFile())

	for _, n := range []int{0, 10, FixedHeaderSize, FixedHeaderSize + 5, len(data) - 1} {
		_, err := Decode(bytes.NewReader(data[:n]), ReaderOptions{})
		assert.Error(t, err, "truncated to %d bytes", n)
	}
}

func TestDecode_BadHeaderJSON(t *testing.T) {
	data := encode(t, testFile())
	data[FixedHeaderSize] = '!'

	_, err := Decode(bytes.NewReader(data), ReaderOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header JSON")
}

// rawFile assembles a .mlp stream around an arbitrary header, bypassing
// Encode so that tensor metadata can be inconsistent with the data.
func rawFile(t *testing.T, h Header, data []byte) []byte {
	t.Helper()
	headerJSON, err := json.Marshal(h)
	require.NoError(t, err)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	sum := ChecksumOf(data)
	copy(fixed[ChecksumOffset:], sum[:])

	var buf bytes.Buffer
	buf.Write(fixed)
	buf.Write(headerJSON)
	buf.Write(make([]byte, padding(int64(FixedHeaderSize+len(headerJSON)))))
	buf.Write(data)
	return buf.Bytes()
}

func TestDecode_RawFileIsValid(t *testing.T) {
	h := Header{ModelType: "MLP", Tensors: []TensorMeta{
		{Name: "w", DType: DTypeFloat64, Shape: []int{1}, Offset: 0, Size: 8},
	}}
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, math.Float64bits(2.5))

	f, err := Decode(bytes.NewReader(rawFile(t, h, data)), ReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float64{2.5}, f.Tensors[0].Data)
}

// TestDecode_HugeOffsets: offsets whose end overflows int64 are rejected at
// every validation level instead of slicing out of range.
func TestDecode_HugeOffsets(t *testing.T) {
	tests := []struct {
		name  string
		metas []TensorMeta
	}{
		{"offset near max", []TensorMeta{
			{Name: "w", DType: DTypeFloat64, Shape: []int{1}, Offset: math.MaxInt64 - 7, Size: 8},
		}},
		{"offset at max", []TensorMeta{
			{Name: "w", DType: DTypeFloat64, Shape: []int{1}, Offset: math.MaxInt64, Size: 8},
		}},
		{"second tensor", []TensorMeta{
			{Name: "a", DType: DTypeFloat64, Shape: []int{1}, Offset: 0, Size: 8},
			{Name: "b", DType: DTypeFloat64, Shape: []int{1}, Offset: math.MaxInt64 - 3, Size: 8},
		}},
		{"element count overflow", []TensorMeta{
			{Name: "w", DType: DTypeFloat64, Shape: []int{1 << 61, 1}, Offset: 0, Size: 8},
		}},
	}

	levels := []ValidationLevel{ValidationStrict, ValidationNormal, ValidationNone}
	for _, tt := range tests {
		for _, level := range levels {
			t.Run(tt.name, func(t *testing.T) {
				raw := rawFile(t, Header{ModelType: "MLP", Tensors: tt.metas}, make([]byte, 16))

				var err error
				require.NotPanics(t, func() {
					_, err = Decode(bytes.NewReader(raw), ReaderOptions{ValidationLevel: level})
				})
				assert.Error(t, err, "validation level %d", level)
			})
		}
	}
}

func TestDecode_DataSizeBeyondStream(t *testing.T) {
	data := encode(t, testFile())
	binary.LittleEndian.PutUint64(data[24:32], MaxDataSize)

	_, err := Decode(bytes.NewReader(data), ReaderOptions{})
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantType string
	}{
		{"valid", []TensorMeta{{Name: "a", Offset: 0, Size: 16}, {Name: "b", Offset: 16, Size: 8}}, 24, ""},
		{"overlap", []TensorMeta{{Name: "a", Offset: 0, Size: 16}, {Name: "b", Offset: 8, Size: 8}}, 24, "offset_overlap"},
		{"out of bounds", []TensorMeta{{Name: "a", Offset: 16, Size: 16}}, 24, "out_of_bounds"},
		{"negative", []TensorMeta{{Name: "a", Offset: -8, Size: 8}}, 24, "negative_offset"},
		{"end overflows", []TensorMeta{{Name: "a", Offset: math.MaxInt64 - 7, Size: 8}}, 24, "out_of_bounds"},
		{"size beyond data", []TensorMeta{{Name: "a", Offset: 0, Size: math.MaxInt64}}, 24, "out_of_bounds"},
		{"overlap unsorted", []TensorMeta{{Name: "b", Offset: 8, Size: 16}, {Name: "a", Offset: 0, Size: 16}}, 24, "offset_overlap"},
		{"empty data", nil, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantType == "" {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.wantType, verr.Type)
		})
	}
}

func TestValidateHeader(t *testing.T) {
	meta := func(name string, offset int64) TensorMeta {
		return TensorMeta{Name: name, DType: DTypeFloat64, Shape: []int{2}, Offset: offset, Size: 16}
	}

	t.Run("duplicate name", func(t *testing.T) {
		h := &Header{Tensors: []TensorMeta{meta("a", 0), meta("a", 16)}}
		var verr *ValidationError
		require.ErrorAs(t, ValidateHeader(h, 32, ValidationStrict), &verr)
		assert.Equal(t, "duplicate_name", verr.Type)
	})

	t.Run("dtype", func(t *testing.T) {
		m := meta("a", 0)
		m.DType = "float32"
		h := &Header{Tensors: []TensorMeta{m}}
		require.ErrorIs(t, ValidateHeader(h, 16, ValidationStrict), ErrUnsupportedDType)
	})

	t.Run("size mismatch", func(t *testing.T) {
		m := meta("a", 0)
		m.Size = 24
		h := &Header{Tensors: []TensorMeta{m}}
		var verr *ValidationError
		require.ErrorAs(t, ValidateHeader(h, 24, ValidationStrict), &verr)
		assert.Equal(t, "size_mismatch", verr.Type)
	})

	t.Run("overlap only checked when strict", func(t *testing.T) {
		h := &Header{Tensors: []TensorMeta{meta("a", 0), meta("b", 8)}}
		assert.Error(t, ValidateHeader(h, 32, ValidationStrict))
		assert.NoError(t, ValidateHeader(h, 32, ValidationNormal))
		assert.NoError(t, ValidateHeader(h, 32, ValidationNone))
	})
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Type: "offset_overlap", Tensor: "a", Tensor2: "b", Details: "regions overlap"}
	assert.Contains(t, err.Error(), "offset_overlap")
	assert.Contains(t, err.Error(), "a")
	assert.Contains(t, err.Error(), "b")
}

func TestWriteFileReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.mlp")
	require.NoError(t, WriteFile(path, testFile()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	f, err := ReadFile(path, ReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, testFile().Tensors[0].Data, f.Tensors[0].Data)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.mlp"), ReaderOptions{})
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	sum := ChecksumOf([]byte("weights"))

	assert.Equal(t, sum, ChecksumOf([]byte("weights")))
	assert.NoError(t, sum.Verify([]byte("weights")))

	err := sum.Verify([]byte("weightz"))
	require.ErrorIs(t, err, ErrChecksumMismatch)
	assert.Contains(t, err.Error(), "stored")
}
