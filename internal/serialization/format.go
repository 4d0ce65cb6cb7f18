package serialization

import (
	"math"
	"time"
)

// Format constants.
const (
	MagicBytes      = "MLPS"
	FormatVersion   = 1    // v1: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Data section starts on a 64-byte boundary
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// DTypeFloat64 is the only element type stored in .mlp files.
const DTypeFloat64 = "float64"

// Flags for the .mlp format.
const (
	FlagHasMetadata uint32 = 1 << 2 // bit 2: custom metadata included
)

// Header represents the JSON header in a .mlp file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .mlp format
	ModelType     string            `json:"model_type"`     // Type of model (e.g., "MLP")
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	Topology      []int             `json:"topology"`       // Layer widths, input layer first
	Activations   []string          `json:"activations"`    // Activation of every non-input layer
	LearningRate  float64           `json:"learning_rate"`  // Learning rate the model trains with
	Tensors       []TensorMeta      `json:"tensors"`        // Tensor metadata, in data order
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// TensorMeta describes a tensor in the .mlp file.
type TensorMeta struct {
	Name   string `json:"name"`   // Tensor name (e.g., "layers.1.weight")
	DType  string `json:"dtype"`  // Data type, always "float64"
	Shape  []int  `json:"shape"`  // Tensor shape, row-major
	Offset int64  `json:"offset"` // Offset in the data section (bytes from start of tensor data)
	Size   int64  `json:"size"`   // Size in bytes
}

// Tensor is a named, row-major block of float64 values.
type Tensor struct {
	Name  string
	Shape []int
	Data  []float64
}

// NumElements returns the product of the shape dimensions.
func (t Tensor) NumElements() int {
	return numElements(t.Shape)
}

// File is the decoded content of a .mlp file.
type File struct {
	Header  Header
	Tensors []Tensor
}

// Tensor returns the tensor with the given name.
func (f *File) Tensor(name string) (Tensor, bool) {
	for _, t := range f.Tensors {
		if t.Name == name {
			return t, true
		}
	}
	return Tensor{}, false
}

// numElements returns the product of shape, or -1 if a dimension is
// negative or the byte size of the product would overflow an int.
func numElements(shape []int) int {
	n := 1
	for _, d := range shape {
		if d < 0 || (d > 0 && n > math.MaxInt/8/d) {
			return -1
		}
		n *= d
	}
	return n
}

// padding returns the number of zero bytes that align pos to HeaderAlignment.
func padding(pos int64) int64 {
	return (HeaderAlignment - (pos % HeaderAlignment)) % HeaderAlignment
}
