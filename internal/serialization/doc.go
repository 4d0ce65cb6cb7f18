// Package serialization implements the .mlp file format used to persist
// network parameters.
//
// The format is a fixed binary header followed by JSON metadata and the
// raw parameter data:
//
//	Format Structure:
//	  [0x00-0x03: Magic "MLPS"]
//	  [0x04-0x07: Version (uint32 LE)]
//	  [0x08-0x0B: Flags (uint32 LE)]
//	  [0x0C-0x0F: Reserved]
//	  [0x10-0x17: Header Size (uint64 LE)]
//	  [0x18-0x1F: Data Size (uint64 LE)]
//	  [0x20-0x3F: SHA-256 checksum of the data section]
//	  [Header: JSON metadata]
//	  [Padding: zero bytes up to a 64-byte boundary]
//	  [Data: float64 values, little endian]
//
// Tensors are written in the order given by the caller and their offsets
// are recorded in the header. Readers validate magic, version, header
// size, tensor names, offsets and checksum before returning any data.
//
// Example usage:
//
//	f := &serialization.File{
//	    Header:  serialization.Header{ModelType: "MLP", Topology: []int{2, 2, 1}},
//	    Tensors: []serialization.Tensor{{Name: "layers.1.weight", Shape: []int{2, 2}, Data: w}},
//	}
//	if err := serialization.WriteFile("model.mlp", f); err != nil {
//	    log.Fatal(err)
//	}
//
//	loaded, err := serialization.ReadFile("model.mlp", serialization.ReaderOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
package serialization
