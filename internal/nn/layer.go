package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/born-ml/mlp/internal/activation"
	"gonum.org/v1/gonum/mat"
)

// Layer is a fully connected layer with its activation and the caches
// needed for backpropagation.
//
// Performs the transformation: a = f(W·x + b)
// where:
//   - x is the input vector with length InputWidth()
//   - W is the weight matrix with shape [OutputWidth(), InputWidth()]
//   - b is the bias vector with length OutputWidth()
//   - f is the activation selected by Activation()
//
// A layer marked as the input layer performs no transform: its output is
// a copy of its input and it has nothing to update. A layer marked as the
// output layer treats the signal passed to Backward as the target vector.
//
// Forward, Backward and Apply share per-layer caches, so for training
// they must be called in that order for one sample at a time. Network
// drives this sequence; direct use is meant for tests and tooling.
type Layer struct {
	weight       *mat.Dense    // [outputWidth, inputWidth]
	bias         *mat.VecDense // [outputWidth]
	activation   activation.Kind
	learningRate float64
	isInput      bool
	isOutput     bool

	// Caches. Valid only between a Forward call and the matching
	// Backward/Apply calls; every use overwrites them.
	linearOut    *mat.VecDense // W·x + b of the last Forward
	activatedOut *mat.VecDense // f(linearOut), or the copied input for the input layer
	delta        *mat.VecDense // error signal of the last Backward
}

// NewLayer creates a layer mapping inputWidth values to outputWidth values.
//
// Weights are drawn from U(-1, 1)/sqrt(inputWidth) and biases from
// U(-1, 1)/sqrt(outputWidth). A nil rng uses the global random source.
//
// Returns ErrInvalidActivation if kind is not a supported activation,
// ErrInvalidTopology for non-positive widths and ErrInvalidLearningRate
// for a learning rate that is not a positive finite number.
func NewLayer(outputWidth, inputWidth int, learningRate float64, kind activation.Kind, rng *rand.Rand) (*Layer, error) {
	if outputWidth <= 0 || inputWidth <= 0 {
		return nil, fmt.Errorf("%w: layer widths must be positive, got %dx%d", ErrInvalidTopology, outputWidth, inputWidth)
	}
	if err := checkLearningRate(learningRate); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidActivation, kind)
	}

	return &Layer{
		weight:       mat.NewDense(outputWidth, inputWidth, uniformScaled(rng, outputWidth*inputWidth, inputWidth)),
		bias:         mat.NewVecDense(outputWidth, uniformScaled(rng, outputWidth, outputWidth)),
		activation:   kind,
		learningRate: learningRate,
		linearOut:    mat.NewVecDense(outputWidth, nil),
		activatedOut: mat.NewVecDense(outputWidth, nil),
		delta:        mat.NewVecDense(outputWidth, nil),
	}, nil
}

func checkLearningRate(lr float64) error {
	if !(lr > 0) || math.IsInf(lr, 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidLearningRate, lr)
	}
	return nil
}

// MarkAsInput makes the layer a pass-through input layer.
func (l *Layer) MarkAsInput() {
	l.isInput = true
}

// MarkAsOutput makes the layer compare its output against a target in Backward.
func (l *Layer) MarkAsOutput() {
	l.isOutput = true
}

// IsInput reports whether the layer is the input layer.
func (l *Layer) IsInput() bool {
	return l.isInput
}

// IsOutput reports whether the layer is the output layer.
func (l *Layer) IsOutput() bool {
	return l.isOutput
}

// InputWidth returns the number of values the layer consumes.
func (l *Layer) InputWidth() int {
	_, c := l.weight.Dims()
	return c
}

// OutputWidth returns the number of values the layer produces.
func (l *Layer) OutputWidth() int {
	r, _ := l.weight.Dims()
	return r
}

// LearningRate returns the step size used by Apply.
func (l *Layer) LearningRate() float64 {
	return l.learningRate
}

// Activation returns the activation kind of the layer.
func (l *Layer) Activation() activation.Kind {
	return l.activation
}

// SetActivation replaces the activation and, with it, its derivative.
func (l *Layer) SetActivation(kind activation.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidActivation, kind)
	}
	l.activation = kind
	return nil
}

// Forward computes the layer output for input and caches it.
//
// The input layer copies input unchanged. Any other layer computes
// W·input + b and applies its activation.
//
// The returned vector is a copy; the layer keeps its own cache for the
// matching Backward and Apply calls.
func (l *Layer) Forward(input *mat.VecDense) (*mat.VecDense, error) {
	want := l.InputWidth()
	if l.isInput {
		want = l.OutputWidth()
	}
	if input.Len() != want {
		return nil, shapeError("Forward", "input", want, input.Len())
	}
	return mat.VecDenseCopyOf(l.forward(input)), nil
}

func (l *Layer) forward(input *mat.VecDense) *mat.VecDense {
	if l.isInput {
		l.activatedOut.CopyVec(input)
		return l.activatedOut
	}
	l.linearOut.MulVec(l.weight, input)
	l.linearOut.AddVec(l.linearOut, l.bias)
	l.activation.Apply(l.activatedOut, l.linearOut)
	return l.activatedOut
}

// Backward computes and caches the layer's error signal and returns the
// signal for the previous layer.
//
// For the output layer, signal is the target vector and the error signal
// is f'(z) ⊙ (a - target). For a hidden layer, signal is the value
// returned by the following layer's Backward and the error signal is
// f'(z) ⊙ signal. Both return Wᵀ·δ. The input layer returns signal
// unchanged.
func (l *Layer) Backward(signal *mat.VecDense) (*mat.VecDense, error) {
	if signal.Len() != l.OutputWidth() {
		return nil, shapeError("Backward", "signal", l.OutputWidth(), signal.Len())
	}
	return l.backward(signal), nil
}

func (l *Layer) backward(signal *mat.VecDense) *mat.VecDense {
	if l.isInput {
		return signal
	}

	l.activation.Derivative(l.delta, l.linearOut)
	if l.isOutput {
		var diff mat.VecDense
		diff.SubVec(l.activatedOut, signal)
		l.delta.MulElemVec(l.delta, &diff)
	} else {
		l.delta.MulElemVec(l.delta, signal)
	}

	upstream := mat.NewVecDense(l.InputWidth(), nil)
	upstream.MulVec(l.weight.T(), l.delta)
	return upstream
}

// Apply performs one gradient descent step using the cached error signal:
//
//	W -= lr * (δ ⊗ lastInput)
//	b -= lr * δ
//
// lastInput must be the input given to the matching Forward call. The
// input layer has no parameters and ignores the call.
func (l *Layer) Apply(lastInput *mat.VecDense) error {
	if l.isInput {
		return nil
	}
	if lastInput.Len() != l.InputWidth() {
		return shapeError("Apply", "last input", l.InputWidth(), lastInput.Len())
	}
	l.apply(lastInput)
	return nil
}

func (l *Layer) apply(lastInput *mat.VecDense) {
	if l.isInput {
		return
	}
	l.weight.RankOne(l.weight, -l.learningRate, l.delta, lastInput)
	l.bias.AddScaledVec(l.bias, -l.learningRate, l.delta)
}

// Weight returns a row-major copy of the weight matrix: element (i, j) is
// at index i*InputWidth()+j.
func (l *Layer) Weight() []float64 {
	rows, cols := l.weight.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, l.weight.RawRowView(i)...)
	}
	return data
}

// Bias returns a copy of the bias vector.
func (l *Layer) Bias() []float64 {
	return vecData(l.bias)
}

// SetWeight replaces the weight matrix from row-major data, the layout
// returned by Weight. The layer is left unchanged on a length mismatch.
func (l *Layer) SetWeight(data []float64) error {
	rows, cols := l.weight.Dims()
	if len(data) != rows*cols {
		return shapeError("SetWeight", "weight", rows*cols, len(data))
	}
	l.weight.Copy(mat.NewDense(rows, cols, data))
	return nil
}

// SetBias replaces the bias vector. The layer is left unchanged on a
// length mismatch.
func (l *Layer) SetBias(data []float64) error {
	n := l.bias.Len()
	if len(data) != n {
		return shapeError("SetBias", "bias", n, len(data))
	}
	l.bias.CopyVec(mat.NewVecDense(n, data))
	return nil
}

// Describe returns a human-readable dump of the weight and bias values.
func (l *Layer) Describe() string {
	return fmt.Sprintf("weight\n%v\n\nbias\n%v\n",
		mat.Formatted(l.weight, mat.Squeeze()),
		mat.Formatted(l.bias, mat.Squeeze()))
}
