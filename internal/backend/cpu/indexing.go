package cpu

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Embedding gathers rows of a [vocab, dim] weight matrix by int32 indices.
// The result has shape indices.Shape() + [dim].
func (cpu *CPUBackend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D, got %v", wShape))
	}
	if indices.DType() != tensor.Int32 {
		panic(fmt.Sprintf("embedding: indices must be int32, got %s", indices.DType()))
	}

	vocab, embDim := wShape[0], wShape[1]
	outShape := append(indices.Shape().Clone(), embDim)
	result := cpu.alloc(outShape, weight.DType())

	switch weight.DType() {
	case tensor.Float32:
		embeddingKernel(result.AsFloat32(), weight.AsFloat32(), indices.AsInt32(), vocab, embDim)
	case tensor.Float64:
		embeddingKernel(result.AsFloat64(), weight.AsFloat64(), indices.AsInt32(), vocab, embDim)
	default:
		panic(fmt.Sprintf("embedding: unsupported dtype %s", weight.DType()))
	}
	return result
}

func embeddingKernel[T tensor.DType](dst, weight []T, indices []int32, vocab, embDim int) {
	for i, id := range indices {
		if id < 0 || int(id) >= vocab {
			panic(fmt.Sprintf("embedding: index %d out of range [0, %d)", id, vocab))
		}
		copy(dst[i*embDim:(i+1)*embDim], weight[int(id)*embDim:(int(id)+1)*embDim])
	}
}
