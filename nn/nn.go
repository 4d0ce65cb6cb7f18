// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"io"
	"math/rand/v2"

	"github.com/born-ml/mlp/internal/activation"
	"github.com/born-ml/mlp/internal/nn"
)

// Activation selects the nonlinearity of a layer.
type Activation = activation.Kind

// Supported activations.
const (
	Tanh    = activation.Tanh
	Sigmoid = activation.Sigmoid
	Linear  = activation.Linear
)

// ParseActivation returns the activation with the given name
// ("tanh", "sigmoid" or "linear", case-insensitive).
func ParseActivation(name string) (Activation, error) {
	return activation.Parse(name)
}

// ParseActivations parses a list of activation names.
func ParseActivations(names []string) ([]Activation, error) {
	return activation.ParseAll(names)
}

// Network is a multi-layer perceptron trained online, one sample at a time.
type Network = nn.Network

// Config holds the configuration of a Network.
type Config = nn.Config

// NewNetwork builds a network from cfg.
//
// Example:
//
//	net, err := nn.NewNetwork(nn.Config{
//	    Topology:     []int{4, 8, 3},
//	    LearningRate: 0.05,
//	})
func NewNetwork(cfg Config) (*Network, error) {
	return nn.NewNetwork(cfg)
}

// Layer is a fully connected layer with its activation.
type Layer = nn.Layer

// NewLayer creates a standalone layer mapping inputWidth values to
// outputWidth values. A nil rng uses the global random source.
func NewLayer(outputWidth, inputWidth int, learningRate float64, kind Activation, rng *rand.Rand) (*Layer, error) {
	return nn.NewLayer(outputWidth, inputWidth, learningRate, kind, rng)
}

// Snapshot is a copy of every layer's parameters.
type Snapshot = nn.Snapshot

// ShapeError reports a vector or parameter of the wrong size.
type ShapeError = nn.ShapeError

// Errors returned by this package.
var (
	ErrInvalidTopology     = nn.ErrInvalidTopology
	ErrInvalidLearningRate = nn.ErrInvalidLearningRate
	ErrInvalidActivation   = nn.ErrInvalidActivation
	ErrInvalidEpochs       = nn.ErrInvalidEpochs
	ErrShapeMismatch       = nn.ErrShapeMismatch
	ErrNilSnapshot         = nn.ErrNilSnapshot
	ErrUnknownActivation   = activation.ErrUnknown
)

// MSE returns the mean squared error between prediction and target.
func MSE(prediction, target []float64) (float64, error) {
	return nn.MSE(prediction, target)
}

// Load reads a network from a .mlp file written by Network.Save.
func Load(path string) (*Network, error) {
	return nn.Load(path)
}

// ReadFrom reads a network in .mlp format from r.
func ReadFrom(r io.Reader) (*Network, error) {
	return nn.ReadFrom(r)
}
