package nn

import "fmt"

// Snapshot is a copy of every layer's parameters, in layer order.
//
// Weights[i] holds the weight matrix of layer i flattened in row-major
// order (see Layer.Weight) and Biases[i] its bias vector. The input layer
// is included so that both slices have one entry per topology element.
type Snapshot struct {
	Weights [][]float64 `json:"weights"`
	Biases  [][]float64 `json:"biases"`
}

// Layers returns the number of layers described by the snapshot.
func (s *Snapshot) Layers() int {
	return len(s.Weights)
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Weights: make([][]float64, len(s.Weights)),
		Biases:  make([][]float64, len(s.Biases)),
	}
	for i, w := range s.Weights {
		c.Weights[i] = append([]float64(nil), w...)
	}
	for i, b := range s.Biases {
		c.Biases[i] = append([]float64(nil), b...)
	}
	return c
}

// Snapshot copies the parameters of every layer.
func (n *Network) Snapshot() *Snapshot {
	s := &Snapshot{
		Weights: make([][]float64, len(n.layers)),
		Biases:  make([][]float64, len(n.layers)),
	}
	for i, l := range n.layers {
		s.Weights[i] = l.Weight()
		s.Biases[i] = l.Bias()
	}
	return s
}

// Restore writes the parameters of s into the network, layer by layer.
//
// The snapshot must have one entry per layer and every entry must match the
// size of the corresponding layer. Everything is checked before the first
// layer is written, so on error the network is unchanged.
func (n *Network) Restore(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("Restore: %w", ErrNilSnapshot)
	}
	if len(s.Weights) != len(n.layers) {
		return shapeError("Restore", "weight layers", len(n.layers), len(s.Weights))
	}
	if len(s.Biases) != len(n.layers) {
		return shapeError("Restore", "bias layers", len(n.layers), len(s.Biases))
	}
	for i, l := range n.layers {
		rows, cols := l.weight.Dims()
		if len(s.Weights[i]) != rows*cols {
			return shapeError("Restore", fmt.Sprintf("layer %d weight", i), rows*cols, len(s.Weights[i]))
		}
		if len(s.Biases[i]) != rows {
			return shapeError("Restore", fmt.Sprintf("layer %d bias", i), rows, len(s.Biases[i]))
		}
	}

	for i, l := range n.layers {
		if err := l.SetWeight(s.Weights[i]); err != nil {
			return err
		}
		if err := l.SetBias(s.Biases[i]); err != nil {
			return err
		}
	}
	return nil
}
