package nn

import (
	"math"
	"math/rand"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Xavier initializes a tensor using Xavier/Glorot uniform initialization.
//
// Values are drawn uniformly from [-limit, limit] where
// limit = sqrt(6 / (fanIn + fanOut)). This keeps activation variance
// stable across layers at the start of training.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	limit := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))

	t := tensor.Zeros[float32](shape, backend)
	data := t.Data()
	for i := range data {
		data[i] = (rand.Float32()*2 - 1) * limit
	}
	return t
}

// Zeros initializes a tensor with zeros.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, backend)
}

// Ones initializes a tensor with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return tensor.Ones[float32](shape, backend)
}

// RandomNormal initializes a tensor with values drawn from N(0, stddev).
func RandomNormal[B tensor.Backend](shape tensor.Shape, stddev float32, backend B) *tensor.Tensor[float32, B] {
	t := tensor.Randn[float32](shape, backend)
	if stddev != 1 {
		return t.MulScalar(stddev)
	}
	return t
}
