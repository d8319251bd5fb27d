// Package nn implements neural network modules for the Tapir toolkit.
//
// This package provides the building blocks the attention engine is
// assembled from:
//   - Module interface: base interface for all NN components
//   - Parameter: named parameter tensors
//   - Linear: fully connected layer
//   - Embedding: lookup table mapping indices to dense vectors
//   - ScaledDotProductAttention and CausalMask
//   - Dropout: inverted dropout regularization
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics.
package nn

import (
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Every NN module must implement:
//   - Forward: compute output from input
//   - Parameters: return all parameters
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	//
	// The input tensor should have the appropriate shape for this module.
	// For example, Linear expects [batch_size, in_features].
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all parameters of this module, including any
	// nested module parameters. Returns an empty slice for modules
	// without parameters.
	Parameters() []*Parameter[B]
}
