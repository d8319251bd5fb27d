package attention

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// LoopState accumulates the outputs of an autoregressive decode loop: the
// context vector of every step and, per head, the attention distribution
// over the keys. A LoopState is immutable; Step returns a new state with
// the latest step appended.
type LoopState[B tensor.Backend] struct {
	// contexts[t] is the [batch, dimension] context of step t.
	contexts []*tensor.Tensor[float32, B]
	// headWeights[h][t] is the [batch, time_k] distribution of head h
	// at step t.
	headWeights [][]*tensor.Tensor[float32, B]
}

// InitialLoopState returns an empty loop state for this attention.
func (m *MultiHeadAttention[B]) InitialLoopState() *LoopState[B] {
	return &LoopState[B]{
		headWeights: make([][]*tensor.Tensor[float32, B], m.numHeads),
	}
}

// Length returns the number of recorded steps.
func (ls *LoopState[B]) Length() int {
	return len(ls.contexts)
}

// Contexts returns the per-step context vectors in step order.
func (ls *LoopState[B]) Contexts() []*tensor.Tensor[float32, B] {
	return ls.contexts
}

// Step runs the attention for one decoder step.
//
// The query has shape [batch, channels]. The step index must equal the
// number of steps recorded so far; steps cannot be skipped or rewritten.
//
// Returns the [batch, dimension] context for this step and the loop state
// with the step appended. Causal masking does not apply here: a decoder
// step attends over the full key sequence.
func (m *MultiHeadAttention[B]) Step(
	query *tensor.Tensor[float32, B],
	loopState *LoopState[B],
	step int,
) (*tensor.Tensor[float32, B], *LoopState[B]) {
	if len(query.Shape()) != 2 {
		panic(fmt.Sprintf("attention: step query must be 2D [batch, channels], got shape %v", query.Shape()))
	}
	if step != loopState.Length() {
		panic(fmt.Sprintf("attention: step %d does not follow the %d recorded steps", step, loopState.Length()))
	}

	// [batch, channels] -> [batch, 1, channels]
	context3d, weights4d := m.Compute(query.Unsqueeze(1), false)

	// context: [batch, 1, dim] -> [batch, dim]
	context := context3d.Squeeze(1)

	// weights: [batch, heads, 1, time_k] -> per-head [batch, time_k]
	perHead := weights4d.Chunk(m.numHeads, 1)

	next := &LoopState[B]{
		contexts:    append(append([]*tensor.Tensor[float32, B]{}, loopState.contexts...), context),
		headWeights: make([][]*tensor.Tensor[float32, B], m.numHeads),
	}
	for h := 0; h < m.numHeads; h++ {
		headWeights := perHead[h].Squeeze(1).Squeeze(1)
		next.headWeights[h] = append(append([]*tensor.Tensor[float32, B]{}, loopState.headWeights[h]...), headWeights)
	}

	return context, next
}

// FinalizeLoop stacks the recorded per-head attention distributions into
// histories named "<key>_head<i>", each shaped [time, batch, time_k].
// Finalizing an empty loop state records zero-length histories.
func (m *MultiHeadAttention[B]) FinalizeLoop(key string, loopState *LoopState[B]) {
	for h := 0; h < m.numHeads; h++ {
		stacked := tensor.Stack(loopState.headWeights[h], 0, m.backend)
		m.histories[fmt.Sprintf("%s_head%d", key, h)] = stacked
	}
}

// History returns the attention history recorded under the given key,
// including the "_head<i>" suffix.
//
// Returns an error wrapping model.ErrLookup for unknown keys.
func (m *MultiHeadAttention[B]) History(key string) (*tensor.Tensor[float32, B], error) {
	history, ok := m.histories[key]
	if !ok {
		return nil, fmt.Errorf("%w: key %q not among attention histories", model.ErrLookup, key)
	}
	return history, nil
}

// HistoryKeys returns the names of all recorded histories.
func (m *MultiHeadAttention[B]) HistoryKeys() []string {
	keys := make([]string, 0, len(m.histories))
	for k := range m.histories {
		keys = append(keys, k)
	}
	return keys
}

// StackedContexts stacks the recorded context vectors into a
// [time, batch, dimension] tensor. An empty loop state yields a
// zero-length tensor.
func (m *MultiHeadAttention[B]) StackedContexts(loopState *LoopState[B]) *tensor.Tensor[float32, B] {
	return tensor.Stack(loopState.contexts, 0, m.backend)
}
