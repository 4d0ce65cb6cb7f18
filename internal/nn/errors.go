package nn

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrInvalidTopology     = errors.New("invalid topology")
	ErrInvalidLearningRate = errors.New("learning rate must be positive")
	ErrInvalidActivation   = errors.New("invalid activation")
	ErrInvalidEpochs       = errors.New("epoch count must be positive")
	ErrShapeMismatch       = errors.New("shape mismatch")
	ErrNilSnapshot         = errors.New("nil snapshot")
)

// ShapeError describes a vector or parameter whose size does not match the
// network it is given to. It matches ErrShapeMismatch with errors.Is.
type ShapeError struct {
	Op   string // Operation that rejected the value (e.g. "Train", "SetWeight")
	Item string // What was mismatched (e.g. "input 3", "layer 1 weight")
	Want int    // Expected length
	Got  int    // Actual length
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s: want %d, got %d", e.Op, ErrShapeMismatch, e.Item, e.Want, e.Got)
}

// Unwrap returns ErrShapeMismatch.
func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

func shapeError(op, item string, want, got int) error {
	return &ShapeError{Op: op, Item: item, Want: want, Got: got}
}
