package model

import "github.com/tapir-nmt/tapir/internal/tensor"

// Attendable is implemented by model parts that expose a sequence of
// hidden states an attention mechanism can attend over.
type Attendable[B tensor.Backend] interface {
	// TemporalStates returns the states to attend over, shaped
	// [batch, time, state_size].
	TemporalStates() *tensor.Tensor[float32, B]

	// TemporalMask returns a [batch, time] validity mask with 1 for real
	// positions and 0 for padding, or nil when every position is valid.
	TemporalMask() *tensor.Tensor[float32, B]

	// StateSize returns the dimensionality of a single state vector.
	StateSize() int
}
