package nn

import (
	"fmt"
	"io"
	"slices"

	"github.com/born-ml/mlp/internal/activation"
	"github.com/born-ml/mlp/internal/serialization"
)

// ModelType is the model type recorded in .mlp files written by this package.
const ModelType = "MLP"

// Save writes the network to a .mlp file at path.
//
// The file records the topology, activations and learning rate together
// with every layer's parameters, so Load can rebuild the network without
// any other information.
//
// Example:
//
//	if err := net.Save("value.mlp"); err != nil {
//	    log.Fatal(err)
//	}
//	restored, err := nn.Load("value.mlp")
func (n *Network) Save(path string) error {
	if err := serialization.WriteFile(path, n.file()); err != nil {
		return fmt.Errorf("failed to save network: %w", err)
	}
	return nil
}

// WriteTo writes the network in .mlp format to w.
func (n *Network) WriteTo(w io.Writer) (int64, error) {
	return serialization.Encode(w, n.file())
}

// file builds the serialized form: every layer's weight in layer order,
// followed by every layer's bias in layer order.
func (n *Network) file() *serialization.File {
	snap := n.Snapshot()

	activations := make([]string, 0, len(n.layers)-1)
	for _, kind := range n.Activations() {
		activations = append(activations, kind.String())
	}

	tensors := make([]serialization.Tensor, 0, 2*len(n.layers))
	for i, l := range n.layers {
		tensors = append(tensors, serialization.Tensor{
			Name:  weightName(i),
			Shape: []int{l.OutputWidth(), l.InputWidth()},
			Data:  snap.Weights[i],
		})
	}
	for i, l := range n.layers {
		tensors = append(tensors, serialization.Tensor{
			Name:  biasName(i),
			Shape: []int{l.OutputWidth()},
			Data:  snap.Biases[i],
		})
	}

	return &serialization.File{
		Header: serialization.Header{
			ModelType:    ModelType,
			Topology:     n.Topology(),
			Activations:  activations,
			LearningRate: n.learningRate,
		},
		Tensors: tensors,
	}
}

// Load reads a network from a .mlp file written by Save.
func Load(path string) (*Network, error) {
	f, err := serialization.ReadFile(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to load network: %w", err)
	}
	return fromFile(f)
}

// ReadFrom reads a network in .mlp format from r.
func ReadFrom(r io.Reader) (*Network, error) {
	f, err := serialization.Decode(r, serialization.ReaderOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read network: %w", err)
	}
	return fromFile(f)
}

func fromFile(f *serialization.File) (*Network, error) {
	if f.Header.ModelType != ModelType {
		return nil, fmt.Errorf("unexpected model type %q, want %q", f.Header.ModelType, ModelType)
	}

	kinds, err := activation.ParseAll(f.Header.Activations)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidActivation, err)
	}

	n, err := NewNetwork(Config{
		Topology:     f.Header.Topology,
		LearningRate: f.Header.LearningRate,
		Activations:  kinds,
	})
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Weights: make([][]float64, len(n.layers)),
		Biases:  make([][]float64, len(n.layers)),
	}
	for i, l := range n.layers {
		w, err := tensorData(f, weightName(i), []int{l.OutputWidth(), l.InputWidth()})
		if err != nil {
			return nil, err
		}
		b, err := tensorData(f, biasName(i), []int{l.OutputWidth()})
		if err != nil {
			return nil, err
		}
		snap.Weights[i] = w
		snap.Biases[i] = b
	}

	if err := n.Restore(snap); err != nil {
		return nil, err
	}
	return n, nil
}

func tensorData(f *serialization.File, name string, shape []int) ([]float64, error) {
	t, ok := f.Tensor(name)
	if !ok {
		return nil, fmt.Errorf("%w: missing tensor %q", ErrShapeMismatch, name)
	}
	if !slices.Equal(t.Shape, shape) {
		return nil, fmt.Errorf("%w: tensor %q has shape %v, want %v", ErrShapeMismatch, name, t.Shape, shape)
	}
	return t.Data, nil
}

func weightName(layer int) string {
	return fmt.Sprintf("layers.%d.weight", layer)
}

func biasName(layer int) string {
	return fmt.Sprintf("layers.%d.bias", layer)
}
