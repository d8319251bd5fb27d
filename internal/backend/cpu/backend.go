// Package cpu implements the pure-Go CPU backend for tensor operations.
package cpu

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Verify that CPUBackend implements the backend interface.
var _ tensor.Backend = (*CPUBackend)(nil)

// CPUBackend implements tensor operations on the CPU.
// All operations allocate a fresh result tensor; inputs are never mutated.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// alloc creates a result tensor or panics.
// Shape validity is the caller's invariant at this layer.
func (cpu *CPUBackend) alloc(shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	raw, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("cpu: failed to allocate result tensor: %v", err))
	}
	return raw
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b, addKernel)
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b, subKernel)
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b, mulKernel)
}

// Div performs element-wise division with broadcasting.
func (cpu *CPUBackend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("div", a, b, divKernel)
}

// binaryKernel selects the per-dtype implementation of a binary op.
type binaryKernel struct {
	f32 func(x, y float32) float32
	f64 func(x, y float64) float64
	i32 func(x, y int32) int32
}

var (
	addKernel = binaryKernel{
		f32: func(x, y float32) float32 { return x + y },
		f64: func(x, y float64) float64 { return x + y },
		i32: func(x, y int32) int32 { return x + y },
	}
	subKernel = binaryKernel{
		f32: func(x, y float32) float32 { return x - y },
		f64: func(x, y float64) float64 { return x - y },
		i32: func(x, y int32) int32 { return x - y },
	}
	mulKernel = binaryKernel{
		f32: func(x, y float32) float32 { return x * y },
		f64: func(x, y float64) float64 { return x * y },
		i32: func(x, y int32) int32 { return x * y },
	}
	divKernel = binaryKernel{
		f32: func(x, y float32) float32 { return x / y },
		f64: func(x, y float64) float64 { return x / y },
		i32: func(x, y int32) int32 { return x / y },
	}
)

func (cpu *CPUBackend) binaryOp(name string, a, b *tensor.RawTensor, kernel binaryKernel) *tensor.RawTensor {
	if a.DType() != b.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch: %s vs %s", name, a.DType(), b.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result := cpu.alloc(outShape, a.DType())
	switch a.DType() {
	case tensor.Float32:
		binaryElementWise(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), a.Shape(), b.Shape(), outShape, needsBroadcast, kernel.f32)
	case tensor.Float64:
		binaryElementWise(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), a.Shape(), b.Shape(), outShape, needsBroadcast, kernel.f64)
	case tensor.Int32:
		binaryElementWise(result.AsInt32(), a.AsInt32(), b.AsInt32(), a.Shape(), b.Shape(), outShape, needsBroadcast, kernel.i32)
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, a.DType()))
	}
	return result
}

// binaryElementWise applies op element-wise, with a fast path for
// same-shape inputs and a strided path for broadcasting.
func binaryElementWise[T tensor.DType](dst, a, b []T, aShape, bShape, outShape tensor.Shape, needsBroadcast bool, op func(x, y T) T) {
	if !needsBroadcast {
		for i := range dst {
			dst[i] = op(a[i], b[i])
		}
		return
	}

	outStrides := outShape.ComputeStrides()
	aIndex := newBroadcastIndexer(outShape, outStrides, aShape)
	bIndex := newBroadcastIndexer(outShape, outStrides, bShape)
	for i := range dst {
		dst[i] = op(a[aIndex(i)], b[bIndex(i)])
	}
}

// newBroadcastIndexer returns a function mapping a flat output index to the
// flat source index under right-aligned broadcasting of srcShape to outShape.
func newBroadcastIndexer(outShape tensor.Shape, outStrides []int, srcShape tensor.Shape) func(int) int {
	srcStrides := srcShape.ComputeStrides()
	offset := len(outShape) - len(srcShape)

	return func(flat int) int {
		srcIdx := 0
		for d := offset; d < len(outShape); d++ {
			if srcShape[d-offset] == 1 {
				continue
			}
			coord := (flat / outStrides[d]) % outShape[d]
			srcIdx += coord * srcStrides[d-offset]
		}
		return srcIdx
	}
}
