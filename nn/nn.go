// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/tapir-nmt/tapir/internal/nn"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Module interface defines the common interface for all neural network modules.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a named parameter tensor in a neural network.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new parameter with the given name and tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear represents a fully connected (dense) layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(512, 512, backend)
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Embedding represents a lookup table mapping indices to dense vectors.
type Embedding[B tensor.Backend] = nn.Embedding[B]

// NewEmbedding creates a new embedding layer with Xavier initialization.
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B) *Embedding[B] {
	return nn.NewEmbedding(numEmbeddings, embeddingDim, backend)
}

// NewEmbeddingWithWeight creates an embedding layer around an existing
// [num_embeddings, embedding_dim] weight matrix.
func NewEmbeddingWithWeight[B tensor.Backend](weight *tensor.Tensor[float32, B], backend B) *Embedding[B] {
	return nn.NewEmbeddingWithWeight(weight, backend)
}

// Attention primitives

// ScaledDotProductAttention computes softmax(QK^T * scale) @ V for 4D
// [batch, heads, seq, head_dim] tensors. Pass scale 0 to use
// 1/sqrt(head_dim).
func ScaledDotProductAttention[B tensor.Backend](
	query, key, value *tensor.Tensor[float32, B],
	mask *tensor.Tensor[float32, B],
	scale float32,
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	return nn.ScaledDotProductAttention(query, key, value, mask, scale)
}

// CausalMask creates an additive [1, 1, seqQ, seqK] mask with -inf above
// the diagonal.
func CausalMask[B tensor.Backend](seqQ, seqK int, backend B) *tensor.Tensor[float32, B] {
	return nn.CausalMask(seqQ, seqK, backend)
}

// Regularization

// Dropout applies inverted dropout with the given keep probability.
// In evaluation mode (train=false) the input is returned unchanged.
func Dropout[B tensor.Backend](input *tensor.Tensor[float32, B], keepProb float32, train bool) *tensor.Tensor[float32, B] {
	return nn.Dropout(input, keepProb, train)
}

// Initializers

// Xavier initializes a tensor using Xavier/Glorot uniform initialization.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}
