package serialization

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"
)

// Encode writes f to w in .mlp format and returns the number of bytes written.
//
// Header.Tensors, Header.FormatVersion and, when zero, Header.CreatedAt are
// filled in from the tensors; every other header field is written as given.
// Tensor data is laid out in the order of f.Tensors.
func Encode(w io.Writer, f *File) (int64, error) {
	header := f.Header
	header.FormatVersion = FormatVersion
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Calculate tensor offsets
	var currentOffset int64
	header.Tensors = make([]TensorMeta, 0, len(f.Tensors))
	for _, t := range f.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return 0, err
		}
		if t.NumElements() != len(t.Data) {
			return 0, fmt.Errorf("%w: %q has shape %v but %d values", ErrInvalidTensor, t.Name, t.Shape, len(t.Data))
		}
		meta := TensorMeta{
			Name:   t.Name,
			DType:  DTypeFloat64,
			Shape:  append([]int(nil), t.Shape...),
			Offset: currentOffset,
			Size:   int64(len(t.Data)) * 8,
		}
		if err := ValidateTensorMeta(meta); err != nil {
			return 0, err
		}
		header.Tensors = append(header.Tensors, meta)
		currentOffset += meta.Size
	}

	// Collect tensor data for the checksum
	data := make([]byte, currentOffset)
	var pos int
	for _, t := range f.Tensors {
		for _, v := range t.Data {
			binary.LittleEndian.PutUint64(data[pos:], math.Float64bits(v))
			pos += 8
		}
	}
	checksum := ChecksumOf(data)

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal header: %w", err)
	}

	fixedHeader := make([]byte, FixedHeaderSize)

	// 0x00-0x03: Magic bytes
	copy(fixedHeader[0:4], MagicBytes)

	// 0x04-0x07: Version
	binary.LittleEndian.PutUint32(fixedHeader[4:8], uint32(FormatVersion))

	// 0x08-0x0B: Flags
	flags := uint32(0)
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	binary.LittleEndian.PutUint32(fixedHeader[8:12], flags)

	// 0x0C-0x0F: Reserved (0)

	// 0x10-0x17: Header size
	binary.LittleEndian.PutUint64(fixedHeader[16:24], uint64(len(headerJSON)))

	// 0x18-0x1F: Data size
	binary.LittleEndian.PutUint64(fixedHeader[24:32], uint64(len(data)))

	// 0x20-0x3F: SHA-256 checksum
	copy(fixedHeader[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	var written int64
	write := func(b []byte, what string) error {
		n, err := w.Write(b)
		written += int64(n)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", what, err)
		}
		return nil
	}

	if err := write(fixedHeader, "fixed header"); err != nil {
		return written, err
	}
	if err := write(headerJSON, "header JSON"); err != nil {
		return written, err
	}
	if pad := padding(int64(FixedHeaderSize + len(headerJSON))); pad > 0 {
		if err := write(make([]byte, pad), "padding"); err != nil {
			return written, err
		}
	}
	if err := write(data, "tensor data"); err != nil {
		return written, err
	}

	return written, nil
}

// WriteFile encodes f into the file at path, replacing any existing file.
func WriteFile(path string, f *File) (err error) {
	//nolint:gosec // G304: File path comes from the caller, which is expected for model saving
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, file.Close())
	}()

	_, err = Encode(file, f)
	return err
}
