package nn

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Embedding implements a lookup table mapping integer indices to dense
// vectors. The weight matrix has shape [num_embeddings, embedding_dim];
// row i is the vector for index i.
type Embedding[B tensor.Backend] struct {
	numEmbeddings int
	embeddingDim  int
	weight        *Parameter[B] // [num_embeddings, embedding_dim]
	backend       B
}

// NewEmbedding creates an Embedding with a Xavier-initialized weight matrix.
func NewEmbedding[B tensor.Backend](numEmbeddings, embeddingDim int, backend B) *Embedding[B] {
	weight := Xavier(numEmbeddings, embeddingDim, tensor.Shape{numEmbeddings, embeddingDim}, backend)
	return NewEmbeddingWithWeight(weight, backend)
}

// NewEmbeddingWithWeight creates an Embedding around an existing weight
// matrix. The matrix must be 2D [num_embeddings, embedding_dim].
func NewEmbeddingWithWeight[B tensor.Backend](weight *tensor.Tensor[float32, B], backend B) *Embedding[B] {
	shape := weight.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("NewEmbeddingWithWeight: weight must be 2D, got shape %v", shape))
	}
	return &Embedding[B]{
		numEmbeddings: shape[0],
		embeddingDim:  shape[1],
		weight:        NewParameter("weight", weight),
		backend:       backend,
	}
}

// Lookup gathers embedding vectors for the given indices.
// The result has shape indices.Shape() + [embedding_dim].
func (e *Embedding[B]) Lookup(indices *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.weight.Tensor().Embedding(indices)
}

// Parameters returns [weight].
func (e *Embedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.weight}
}

// Weight returns the weight parameter.
func (e *Embedding[B]) Weight() *Parameter[B] {
	return e.weight
}

// NumEmbeddings returns the vocabulary size.
func (e *Embedding[B]) NumEmbeddings() int {
	return e.numEmbeddings
}

// EmbeddingDim returns the embedding dimension.
func (e *Embedding[B]) EmbeddingDim() int {
	return e.embeddingDim
}
