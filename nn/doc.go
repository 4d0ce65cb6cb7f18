// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides a small multi-layer perceptron trained with online
// stochastic gradient descent.
//
// # Overview
//
// This package contains:
//   - Network: a stack of fully connected layers with a pass-through input layer
//   - Layer: a fully connected layer with its activation
//   - Activations: Tanh, Sigmoid, Linear
//   - Snapshots: copying parameters out of a network and back in
//   - Persistence: the .mlp file format (Save, Load, WriteTo, ReadFrom)
//
// # Basic Usage
//
//	import "github.com/born-ml/mlp/nn"
//
//	func main() {
//	    net, err := nn.NewNetwork(nn.Config{
//	        Topology:     []int{2, 2, 1},
//	        LearningRate: 0.5,
//	        Activations:  []nn.Activation{nn.Tanh, nn.Sigmoid},
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    inputs := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
//	    targets := [][]float64{{0}, {1}, {1}, {0}}
//	    if err := net.Train(inputs, targets, 5000); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    out, err := net.Infer([]float64{1, 0})
//	}
//
// # Topology
//
// Topology[0] is the input width. Layer 0 copies its input unchanged; every
// following layer i computes f(W·x + b) with W of shape
// [Topology[i], Topology[i-1]]. When Config.Activations is empty every
// non-input layer uses tanh.
//
// # Training
//
// Train visits the samples in order, once per epoch. Each sample is pushed
// forward, its squared error is propagated back through the layers and every
// layer is updated before the next sample. The dataset is validated up front,
// so a shape error never leaves the network half-trained.
//
// # Parameters
//
// Weights are exposed in row-major order: element (i, j) of a layer's weight
// matrix is at index i*InputWidth()+j of Layer.Weight and of the entries of
// Snapshot.Weights.
package nn
