package nn

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/born-ml/mlp/internal/activation"
	"gonum.org/v1/gonum/mat"
)

// Config holds the configuration of a Network.
type Config struct {
	Topology     []int             // Output width of every layer; Topology[0] is the input width
	LearningRate float64           // Step size shared by every layer (must be positive)
	Activations  []activation.Kind // One per non-input layer; empty means tanh everywhere
	Rand         *rand.Rand        // Source for parameter initialization; nil uses the global source
}

func (c Config) validate() error {
	if len(c.Topology) == 0 {
		return fmt.Errorf("%w: at least one layer is required", ErrInvalidTopology)
	}
	for i, width := range c.Topology {
		if width <= 0 {
			return fmt.Errorf("%w: layer %d has width %d", ErrInvalidTopology, i, width)
		}
	}
	if err := checkLearningRate(c.LearningRate); err != nil {
		return err
	}
	if len(c.Activations) != 0 && len(c.Activations) != len(c.Topology)-1 {
		return fmt.Errorf("%w: got %d activations for %d non-input layers",
			ErrInvalidActivation, len(c.Activations), len(c.Topology)-1)
	}
	for i, kind := range c.Activations {
		if !kind.Valid() {
			return fmt.Errorf("%w: layer %d: %v", ErrInvalidActivation, i+1, kind)
		}
	}
	return nil
}

// Network is a multi-layer perceptron trained online, one sample at a time.
//
// The first layer is a pass-through input layer of width Topology[0];
// every following layer i maps Topology[i-1] values to Topology[i]
// values. Data flows left to right on inference, and error signals flow
// right to left on training.
//
// A Network is not safe for concurrent use: Infer and Train overwrite
// per-layer caches.
//
// Example:
//
//	net, err := nn.NewNetwork(nn.Config{
//	    Topology:     []int{2, 2, 1},
//	    LearningRate: 0.5,
//	    Activations:  []activation.Kind{activation.Tanh, activation.Sigmoid},
//	})
//	if err != nil {
//	    return err
//	}
//	err = net.Train(inputs, targets, 5000)
//	out, err := net.Infer([]float64{1, 0})
type Network struct {
	topology     []int
	learningRate float64
	layers       []*Layer
}

// NewNetwork builds a network from cfg.
func NewNetwork(cfg Config) (*Network, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	topology := append([]int(nil), cfg.Topology...)
	layers := make([]*Layer, len(topology))

	// The input layer never transforms, so its input width is arbitrary.
	input, err := NewLayer(topology[0], 1, cfg.LearningRate, activation.Linear, cfg.Rand)
	if err != nil {
		return nil, fmt.Errorf("layer 0: %w", err)
	}
	layers[0] = input

	for i := 1; i < len(topology); i++ {
		kind := activation.Tanh
		if len(cfg.Activations) > 0 {
			kind = cfg.Activations[i-1]
		}
		l, err := NewLayer(topology[i], topology[i-1], cfg.LearningRate, kind, cfg.Rand)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = l
	}

	layers[0].MarkAsInput()
	layers[len(layers)-1].MarkAsOutput()

	return &Network{
		topology:     topology,
		learningRate: cfg.LearningRate,
		layers:       layers,
	}, nil
}

// Topology returns a copy of the layer widths.
func (n *Network) Topology() []int {
	return append([]int(nil), n.topology...)
}

// LearningRate returns the learning rate shared by all layers.
func (n *Network) LearningRate() float64 {
	return n.learningRate
}

// Activations returns the activation of every non-input layer.
func (n *Network) Activations() []activation.Kind {
	kinds := make([]activation.Kind, 0, len(n.layers)-1)
	for _, l := range n.layers[1:] {
		kinds = append(kinds, l.Activation())
	}
	return kinds
}

// InputWidth returns the width expected by Infer and Train inputs.
func (n *Network) InputWidth() int {
	return n.topology[0]
}

// OutputWidth returns the width of Infer results and Train targets.
func (n *Network) OutputWidth() int {
	return n.topology[len(n.topology)-1]
}

// Len returns the number of layers, including the input layer.
func (n *Network) Len() int {
	return len(n.layers)
}

// Layer returns the layer at index i.
//
// Panics if index is out of bounds.
func (n *Network) Layer(i int) *Layer {
	if i < 0 || i >= len(n.layers) {
		panic("Network.Layer: index out of bounds")
	}
	return n.layers[i]
}

// Infer runs a forward pass and returns the output of the last layer.
//
// Parameters are never modified; only the layer caches are overwritten.
func (n *Network) Infer(input []float64) ([]float64, error) {
	if len(input) != n.InputWidth() {
		return nil, shapeError("Infer", "input", n.InputWidth(), len(input))
	}
	out := n.forward(mat.NewVecDense(len(input), input))
	return vecData(out), nil
}

func (n *Network) forward(input *mat.VecDense) *mat.VecDense {
	out := input
	for _, l := range n.layers {
		out = l.forward(out)
	}
	return out
}

// Train runs epochs passes of online gradient descent over the dataset.
//
// Within each epoch the samples are visited in the given order; every
// sample performs a forward pass, propagates the error from the output
// layer back to the first hidden layer and then updates every non-input
// layer before the next sample is seen. The order is never shuffled.
//
// The whole dataset is validated before training starts: on any shape
// error no parameter is modified.
func (n *Network) Train(inputs, targets [][]float64, epochs int) error {
	if epochs < 1 {
		return fmt.Errorf("Train: %w: got %d", ErrInvalidEpochs, epochs)
	}
	xs, ys, err := n.dataset("Train", inputs, targets)
	if err != nil {
		return err
	}

	for e := 0; e < epochs; e++ {
		for i := range xs {
			n.step(xs[i], ys[i])
		}
	}
	return nil
}

// step trains on a single sample.
func (n *Network) step(input, target *mat.VecDense) {
	n.forward(input)

	signal := target
	for i := len(n.layers) - 1; i > 0; i-- {
		signal = n.layers[i].backward(signal)
	}

	for i := 1; i < len(n.layers); i++ {
		n.layers[i].apply(n.layers[i-1].activatedOut)
	}
}

// dataset validates a set of samples and converts it to vectors.
func (n *Network) dataset(op string, inputs, targets [][]float64) ([]*mat.VecDense, []*mat.VecDense, error) {
	if len(inputs) != len(targets) {
		return nil, nil, shapeError(op, "targets", len(inputs), len(targets))
	}

	xs := make([]*mat.VecDense, len(inputs))
	ys := make([]*mat.VecDense, len(targets))
	for i := range inputs {
		if len(inputs[i]) != n.InputWidth() {
			return nil, nil, shapeError(op, fmt.Sprintf("input %d", i), n.InputWidth(), len(inputs[i]))
		}
		if len(targets[i]) != n.OutputWidth() {
			return nil, nil, shapeError(op, fmt.Sprintf("target %d", i), n.OutputWidth(), len(targets[i]))
		}
		xs[i] = mat.NewVecDense(len(inputs[i]), inputs[i])
		ys[i] = mat.NewVecDense(len(targets[i]), targets[i])
	}
	return xs, ys, nil
}

// Loss returns the mean over all samples of the mean squared error between
// the network output and the target.
func (n *Network) Loss(inputs, targets [][]float64) (float64, error) {
	xs, ys, err := n.dataset("Loss", inputs, targets)
	if err != nil {
		return 0, err
	}
	if len(xs) == 0 {
		return 0, nil
	}

	var total float64
	for i := range xs {
		out := n.forward(xs[i])
		total += mse(out.RawVector().Data, ys[i].RawVector().Data)
	}
	return total / float64(len(xs)), nil
}

// Describe returns a dump of the parameters of every non-input layer.
func (n *Network) Describe() string {
	var b strings.Builder
	for i := 1; i < len(n.layers); i++ {
		fmt.Fprintf(&b, "\n<Layer %d>\n", i+1)
		b.WriteString(n.layers[i].Describe())
	}
	return b.String()
}

func vecData(v *mat.VecDense) []float64 {
	data := make([]float64, v.Len())
	for i := range data {
		data[i] = v.AtVec(i)
	}
	return data
}
