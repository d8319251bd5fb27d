package cpu

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("mulscalar", x, scalar,
		func(v, s float32) float32 { return v * s },
		func(v, s float64) float64 { return v * s })
}

// AddScalar adds a scalar to every element.
func (cpu *CPUBackend) AddScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("addscalar", x, scalar,
		func(v, s float32) float32 { return v + s },
		func(v, s float64) float64 { return v + s })
}

// DivScalar divides every element by a scalar.
func (cpu *CPUBackend) DivScalar(x *tensor.RawTensor, scalar any) *tensor.RawTensor {
	return cpu.scalarOp("divscalar", x, scalar,
		func(v, s float32) float32 { return v / s },
		func(v, s float64) float64 { return v / s })
}

func (cpu *CPUBackend) scalarOp(name string, x *tensor.RawTensor, scalar any,
	op32 func(v, s float32) float32, op64 func(v, s float64) float64) *tensor.RawTensor {

	result := cpu.alloc(x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		s := scalarAsFloat64(name, scalar)
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i := range src {
			dst[i] = op32(src[i], float32(s))
		}
	case tensor.Float64:
		s := scalarAsFloat64(name, scalar)
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i := range src {
			dst[i] = op64(src[i], s)
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}
	return result
}

func scalarAsFloat64(name string, scalar any) float64 {
	switch s := scalar.(type) {
	case float32:
		return float64(s)
	case float64:
		return s
	case int:
		return float64(s)
	case int32:
		return float64(s)
	default:
		panic(fmt.Sprintf("%s: unsupported scalar type %T", name, scalar))
	}
}
