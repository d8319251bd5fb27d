package cpu

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: requires 2D tensors, got %v and %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions must match: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := cpu.alloc(tensor.Shape{m, n}, a.DType())

	switch a.DType() {
	case tensor.Float32:
		matmulKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), m, k, n)
	case tensor.Float64:
		matmulKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), m, k, n)
	default:
		panic(fmt.Sprintf("matmul: unsupported dtype %s", a.DType()))
	}
	return result
}

// BatchMatMul performs batched matrix multiplication for 3D or 4D tensors.
// Leading dimensions are treated as batch dimensions and must match.
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 3 && len(aShape) != 4 {
		panic(fmt.Sprintf("batchmatmul: requires 3D or 4D tensors, got %v", aShape))
	}
	if len(aShape) != len(bShape) {
		panic(fmt.Sprintf("batchmatmul: rank mismatch: %v vs %v", aShape, bShape))
	}

	batch := 1
	for i := 0; i < len(aShape)-2; i++ {
		if aShape[i] != bShape[i] {
			panic(fmt.Sprintf("batchmatmul: batch dimensions must match: %v vs %v", aShape, bShape))
		}
		batch *= aShape[i]
	}

	m, k := aShape[len(aShape)-2], aShape[len(aShape)-1]
	n := bShape[len(bShape)-1]
	if bShape[len(bShape)-2] != k {
		panic(fmt.Sprintf("batchmatmul: inner dimensions must match: %v @ %v", aShape, bShape))
	}

	outShape := append(aShape[:len(aShape)-2].Clone(), m, n)
	result := cpu.alloc(outShape, a.DType())

	switch a.DType() {
	case tensor.Float32:
		batchMatmulKernel(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), batch, m, k, n)
	case tensor.Float64:
		batchMatmulKernel(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), batch, m, k, n)
	default:
		panic(fmt.Sprintf("batchmatmul: unsupported dtype %s", a.DType()))
	}
	return result
}

// matmulKernel computes dst = a @ b with the ikj loop order for
// cache-friendly row access.
func matmulKernel[T tensor.DType](dst, a, b []T, m, k, n int) {
	for i := 0; i < m; i++ {
		for l := 0; l < k; l++ {
			av := a[i*k+l]
			if av == 0 {
				continue
			}
			row := b[l*n : (l+1)*n]
			out := dst[i*n : (i+1)*n]
			for j := range row {
				out[j] += av * row[j]
			}
		}
	}
}

func batchMatmulKernel[T tensor.DType](dst, a, b []T, batch, m, k, n int) {
	for bi := 0; bi < batch; bi++ {
		matmulKernel(dst[bi*m*n:(bi+1)*m*n], a[bi*m*k:(bi+1)*m*k], b[bi*k*n:(bi+1)*k*n], m, k, n)
	}
}
