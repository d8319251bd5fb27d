package nn

import (
	"fmt"
	"math/rand"

	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Dropout applies inverted dropout to a tensor.
//
// Each element is kept with probability keepProb and scaled by 1/keepProb,
// so the expected value of the output matches the input. In evaluation mode
// (train=false), or with keepProb >= 1, the input is returned unchanged.
func Dropout[B tensor.Backend](input *tensor.Tensor[float32, B], keepProb float32, train bool) *tensor.Tensor[float32, B] {
	if !train || keepProb >= 1 {
		return input
	}
	if keepProb <= 0 {
		panic(fmt.Sprintf("Dropout: keep probability must be positive, got %v", keepProb))
	}

	output := input.Clone()
	scale := 1 / keepProb
	data := output.Data()
	for i := range data {
		if rand.Float32() >= keepProb {
			data[i] = 0
		} else {
			data[i] *= scale
		}
	}
	return output
}
