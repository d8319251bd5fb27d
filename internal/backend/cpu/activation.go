package cpu

import (
	"fmt"
	"math"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Softmax applies the softmax function along the given dimension.
// The maximum is subtracted before exponentiation for numerical stability.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("softmax: dimension %d out of range for shape %v", dim, shape))
	}

	result := cpu.alloc(shape, x.DType())
	switch x.DType() {
	case tensor.Float32:
		softmaxKernel(result.AsFloat32(), x.AsFloat32(), shape, dim)
	case tensor.Float64:
		softmaxKernel(result.AsFloat64(), x.AsFloat64(), shape, dim)
	default:
		panic(fmt.Sprintf("softmax: unsupported dtype %s", x.DType()))
	}
	return result
}

func softmaxKernel[T float32 | float64](dst, src []T, shape tensor.Shape, dim int) {
	strides := shape.ComputeStrides()
	dimSize, dimStride := shape[dim], strides[dim]

	rows := shape.NumElements() / max(dimSize, 1)
	for r := 0; r < rows; r++ {
		base := (r/dimStride)*dimStride*dimSize + r%dimStride

		maxVal := T(math.Inf(-1))
		for i := 0; i < dimSize; i++ {
			if v := src[base+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		var sum T
		for i := 0; i < dimSize; i++ {
			e := T(math.Exp(float64(src[base+i*dimStride] - maxVal)))
			dst[base+i*dimStride] = e
			sum += e
		}
		for i := 0; i < dimSize; i++ {
			dst[base+i*dimStride] /= sum
		}
	}
}
