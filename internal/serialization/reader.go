package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
)

// ReaderOptions configures Decode and ReadFile.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level; the zero value is ValidationStrict
}

// Decode reads a .mlp stream from r.
func Decode(r io.Reader, opts ReaderOptions) (*File, error) {
	fixedHeader := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedHeader); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}

	// 0x00-0x03: Magic bytes
	if string(fixedHeader[0:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	// 0x04-0x07: Version
	version := binary.LittleEndian.Uint32(fixedHeader[4:8])
	if version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, version, FormatVersion)
	}

	// 0x10-0x17: Header size
	headerSize := binary.LittleEndian.Uint64(fixedHeader[16:24])
	if headerSize > MaxHeaderSize {
		return nil, ErrHeaderTooLarge
	}

	// 0x18-0x1F: Data size
	dataSize := binary.LittleEndian.Uint64(fixedHeader[24:32])
	if dataSize > MaxDataSize {
		return nil, ErrDataTooLarge
	}

	// 0x20-0x3F: SHA-256 checksum
	var stored Checksum
	copy(stored[:], fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header JSON: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	pad := padding(int64(FixedHeaderSize) + int64(headerSize))
	if _, err := io.CopyN(io.Discard, r, pad); err != nil {
		return nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	data, err := io.ReadAll(io.LimitReader(r, int64(dataSize)))
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if uint64(len(data)) != dataSize {
		return nil, fmt.Errorf("failed to read tensor data: %w", io.ErrUnexpectedEOF)
	}

	if !opts.SkipChecksumValidation {
		if err := stored.Verify(data); err != nil {
			return nil, err
		}
	}

	//nolint:gosec // G115: dataSize is bounded by MaxDataSize
	if err := ValidateHeader(&header, int64(dataSize), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	tensors := make([]Tensor, 0, len(header.Tensors))
	for _, meta := range header.Tensors {
		t, err := decodeTensor(meta, data)
		if err != nil {
			return nil, err
		}
		tensors = append(tensors, t)
	}

	return &File{Header: header, Tensors: tensors}, nil
}

func decodeTensor(meta TensorMeta, data []byte) (Tensor, error) {
	if meta.DType != DTypeFloat64 {
		return Tensor{}, fmt.Errorf("%w: tensor %q has dtype %q", ErrUnsupportedDType, meta.Name, meta.DType)
	}
	n := numElements(meta.Shape)
	if n < 0 || meta.Size != int64(n)*8 || !inBounds(meta.Offset, meta.Size, int64(len(data))) {
		return Tensor{}, fmt.Errorf("%w: %q (offset %d, size %d, shape %v)", ErrInvalidTensor, meta.Name, meta.Offset, meta.Size, meta.Shape)
	}

	raw := data[meta.Offset : meta.Offset+meta.Size]
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}

	return Tensor{
		Name:  meta.Name,
		Shape: append([]int(nil), meta.Shape...),
		Data:  values,
	}, nil
}

// ReadFile decodes the .mlp file at path.
func ReadFile(path string, opts ReaderOptions) (*File, error) {
	//nolint:gosec // G304: File path comes from the caller, which is expected for model loading
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return Decode(bytes.NewReader(content), opts)
}
