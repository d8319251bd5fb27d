package cpu

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Reshape returns a copy of the tensor with a new shape.
// The number of elements must be preserved.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}

	result := cpu.alloc(newShape, t.DType())
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions and materializes the result
// contiguously. With no axes it reverses all dimensions.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	if len(axes) == 0 {
		axes = make([]int, len(shape))
		for i := range axes {
			axes[i] = len(shape) - 1 - i
		}
	}
	if len(axes) != len(shape) {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", len(shape), len(axes)))
	}

	seen := make([]bool, len(shape))
	outShape := make(tensor.Shape, len(shape))
	for i, axis := range axes {
		if axis < 0 || axis >= len(shape) || seen[axis] {
			panic(fmt.Sprintf("transpose: invalid axes %v for shape %v", axes, shape))
		}
		seen[axis] = true
		outShape[i] = shape[axis]
	}

	result := cpu.alloc(outShape, t.DType())
	switch t.DType() {
	case tensor.Float32:
		transposeKernel(result.AsFloat32(), t.AsFloat32(), shape, outShape, axes)
	case tensor.Float64:
		transposeKernel(result.AsFloat64(), t.AsFloat64(), shape, outShape, axes)
	case tensor.Int32:
		transposeKernel(result.AsInt32(), t.AsInt32(), shape, outShape, axes)
	default:
		panic(fmt.Sprintf("transpose: unsupported dtype %s", t.DType()))
	}
	return result
}

func transposeKernel[T tensor.DType](dst, src []T, inShape, outShape tensor.Shape, axes []int) {
	inStrides := inShape.ComputeStrides()
	outStrides := outShape.ComputeStrides()
	for i := range dst {
		srcIdx := 0
		for d := range outShape {
			coord := (i / outStrides[d]) % outShape[d]
			srcIdx += coord * inStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
}

// Cat concatenates tensors along the given dimension.
// All tensors must share dtype and shape except along dim.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors to concatenate")
	}

	first := tensors[0].Shape()
	if dim < 0 {
		dim += len(first)
	}
	if dim < 0 || dim >= len(first) {
		panic(fmt.Sprintf("cat: dimension %d out of range for shape %v", dim, first))
	}

	outShape := first.Clone()
	for _, t := range tensors[1:] {
		s := t.Shape()
		if len(s) != len(first) {
			panic(fmt.Sprintf("cat: rank mismatch: %v vs %v", first, s))
		}
		for d := range s {
			if d != dim && s[d] != first[d] {
				panic(fmt.Sprintf("cat: shapes %v and %v differ outside dimension %d", first, s, dim))
			}
		}
		outShape[dim] += s[dim]
	}

	result := cpu.alloc(outShape, tensors[0].DType())

	elemSize := tensors[0].DType().Size()
	outer := 1
	for _, d := range first[:dim] {
		outer *= d
	}
	inner := elemSize
	for _, d := range first[dim+1:] {
		inner *= d
	}

	out := result.Data()
	rowSize := outShape[dim] * inner
	offset := 0
	for _, t := range tensors {
		in := t.Data()
		chunk := t.Shape()[dim] * inner
		for o := 0; o < outer; o++ {
			copy(out[o*rowSize+offset:o*rowSize+offset+chunk], in[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}
	return result
}

// Chunk splits the tensor into n equal parts along the given dimension.
func (cpu *CPUBackend) Chunk(x *tensor.RawTensor, n, dim int) []*tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if n <= 0 || shape[dim]%n != 0 {
		panic(fmt.Sprintf("chunk: cannot split dimension of size %d into %d parts", shape[dim], n))
	}

	partShape := shape.Clone()
	partShape[dim] = shape[dim] / n

	elemSize := x.DType().Size()
	outer := 1
	for _, d := range shape[:dim] {
		outer *= d
	}
	inner := elemSize
	for _, d := range shape[dim+1:] {
		inner *= d
	}

	in := x.Data()
	rowSize := shape[dim] * inner
	chunkSize := partShape[dim] * inner

	parts := make([]*tensor.RawTensor, n)
	for p := 0; p < n; p++ {
		part := cpu.alloc(partShape, x.DType())
		out := part.Data()
		for o := 0; o < outer; o++ {
			copy(out[o*chunkSize:(o+1)*chunkSize], in[o*rowSize+p*chunkSize:o*rowSize+(p+1)*chunkSize])
		}
		parts[p] = part
	}
	return parts
}

// Unsqueeze inserts a dimension of size 1 at the given position.
func (cpu *CPUBackend) Unsqueeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape) + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for shape %v", dim, shape))
	}

	newShape := make(tensor.Shape, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return cpu.Reshape(x, newShape)
}

// Squeeze removes a dimension of size 1 at the given position.
func (cpu *CPUBackend) Squeeze(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("squeeze: dimension %d out of range for shape %v", dim, shape))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, expected 1", dim, shape[dim]))
	}

	newShape := make(tensor.Shape, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	return cpu.Reshape(x, newShape)
}
