package cpu

import (
	"fmt"
	"math"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Exp computes e^x element-wise.
func (cpu *CPUBackend) Exp(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.alloc(x.Shape(), x.DType())
	switch x.DType() {
	case tensor.Float32:
		src, dst := x.AsFloat32(), result.AsFloat32()
		for i := range src {
			dst[i] = float32(math.Exp(float64(src[i])))
		}
	case tensor.Float64:
		src, dst := x.AsFloat64(), result.AsFloat64()
		for i := range src {
			dst[i] = math.Exp(src[i])
		}
	default:
		panic(fmt.Sprintf("exp: unsupported dtype %s", x.DType()))
	}
	return result
}
