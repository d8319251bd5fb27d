package cpu

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// SumDim sums along the given dimension.
// If keepDim is true the reduced dimension is kept with size 1.
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumdim: dimension %d out of range for shape %v", dim, shape))
	}

	outShape := make(tensor.Shape, 0, len(shape))
	for i, d := range shape {
		if i == dim {
			if keepDim {
				outShape = append(outShape, 1)
			}
			continue
		}
		outShape = append(outShape, d)
	}

	result := cpu.alloc(outShape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		sumDimKernel(result.AsFloat32(), x.AsFloat32(), shape, dim)
	case tensor.Float64:
		sumDimKernel(result.AsFloat64(), x.AsFloat64(), shape, dim)
	case tensor.Int32:
		sumDimKernel(result.AsInt32(), x.AsInt32(), shape, dim)
	default:
		panic(fmt.Sprintf("sumdim: unsupported dtype %s", x.DType()))
	}
	return result
}

func sumDimKernel[T tensor.DType](dst, src []T, shape tensor.Shape, dim int) {
	strides := shape.ComputeStrides()
	dimSize, dimStride := shape[dim], strides[dim]

	for o := range dst {
		base := (o/dimStride)*dimStride*dimSize + o%dimStride
		var sum T
		for i := 0; i < dimSize; i++ {
			sum += src[base+i*dimStride]
		}
		dst[o] = sum
	}
}
