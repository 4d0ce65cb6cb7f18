// Package activation implements the elementwise activation functions used by
// dense layers, each paired with its derivative.
//
// A Kind selects both the function and its derivative.
package activation

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrUnknown is returned for activation kinds or names outside the supported set.
var ErrUnknown = errors.New("unknown activation")

// Kind identifies an activation function and its derivative.
//
// The numeric values match the activation codes used by existing model
// files and callers (1 = tanh, 2 = sigmoid, 3 = linear). The zero value is
// not a valid Kind.
type Kind int

// Supported activation kinds.
const (
	Tanh    Kind = 1
	Sigmoid Kind = 2
	Linear  Kind = 3
)

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case Tanh, Sigmoid, Linear:
		return true
	default:
		return false
	}
}

// String returns the lower-case name of the activation.
func (k Kind) String() string {
	switch k {
	case Tanh:
		return "tanh"
	case Sigmoid:
		return "sigmoid"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Parse converts a name such as "tanh", "sigmoid" or "linear" to a Kind.
// Matching is case-insensitive and ignores surrounding whitespace.
func Parse(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	case "linear":
		return Linear, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
}

// ParseAll parses a list of names, failing on the first unknown one.
func ParseAll(names []string) ([]Kind, error) {
	kinds := make([]Kind, len(names))
	for i, name := range names {
		k, err := Parse(name)
		if err != nil {
			return nil, fmt.Errorf("activation %d: %w", i, err)
		}
		kinds[i] = k
	}
	return kinds, nil
}

// Func evaluates the activation at x.
//
// Panics if k is not valid.
func (k Kind) Func(x float64) float64 {
	switch k {
	case Tanh:
		return math.Tanh(x)
	case Sigmoid:
		return sigmoid(x)
	case Linear:
		return x
	default:
		panic(fmt.Sprintf("activation: Func on invalid %v", k))
	}
}

// Deriv evaluates the derivative of the activation at the pre-activation
// input x.
//
// Panics if k is not valid.
func (k Kind) Deriv(x float64) float64 {
	switch k {
	case Tanh:
		c := math.Cosh(x)
		return 1 / (c * c)
	case Sigmoid:
		s := sigmoid(x)
		return s * (1 - s)
	case Linear:
		return 1
	default:
		panic(fmt.Sprintf("activation: Deriv on invalid %v", k))
	}
}

// Apply stores the activation of every element of x in dst.
// dst is resized to the length of x when it is empty; dst and x may be the
// same vector.
func (k Kind) Apply(dst, x *mat.VecDense) {
	k.mapVec(dst, x, k.Func)
}

// Derivative stores the derivative evaluated at every element of x in dst.
// dst is resized to the length of x when it is empty; dst and x may be the
// same vector.
func (k Kind) Derivative(dst, x *mat.VecDense) {
	k.mapVec(dst, x, k.Deriv)
}

func (k Kind) mapVec(dst, x *mat.VecDense, f func(float64) float64) {
	n := x.Len()
	if dst != x {
		if dst.IsEmpty() {
			dst.ReuseAsVec(n)
		} else if dst.Len() != n {
			panic(mat.ErrShape)
		}
	}
	for i := 0; i < n; i++ {
		dst.SetVec(i, f(x.AtVec(i)))
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
