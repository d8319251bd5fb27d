package attention

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapir-nmt/tapir/internal/backend/cpu"
	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

func newLoopFixture(t *testing.T, numHeads int) (*MultiHeadAttention[*cpu.CPUBackend], *cpu.CPUBackend) {
	t.Helper()
	backend := cpu.New()

	states := tensor.Randn[float32](tensor.Shape{2, 5, 4}, backend)
	keys := &stubAttendable{states: states}

	m, err := New("att", numHeads, keys, nil, 1.0, backend)
	require.NoError(t, err)
	return m, backend
}

func TestStepAccumulatesContextsAndWeights(t *testing.T) {
	m, backend := newLoopFixture(t, 2)

	state := m.InitialLoopState()
	assert.Equal(t, 0, state.Length())

	var context *tensor.Tensor[float32, *cpu.CPUBackend]
	for step := 0; step < 3; step++ {
		query := tensor.Randn[float32](tensor.Shape{2, 4}, backend)
		context, state = m.Step(query, state, step)

		assert.Equal(t, tensor.Shape{2, 4}, context.Shape())
		assert.Equal(t, step+1, state.Length())
	}

	stacked := m.StackedContexts(state)
	assert.Equal(t, tensor.Shape{3, 2, 4}, stacked.Shape())
}

func TestStepIsImmutable(t *testing.T) {
	m, backend := newLoopFixture(t, 1)

	initial := m.InitialLoopState()
	query := tensor.Randn[float32](tensor.Shape{2, 4}, backend)

	_, next := m.Step(query, initial, 0)

	// The previous state is untouched; branching decode paths can reuse it.
	assert.Equal(t, 0, initial.Length())
	assert.Equal(t, 1, next.Length())

	_, other := m.Step(query, initial, 0)
	assert.Equal(t, 1, other.Length())
}

func TestStepRejectsOutOfOrderIndex(t *testing.T) {
	m, backend := newLoopFixture(t, 1)

	state := m.InitialLoopState()
	query := tensor.Randn[float32](tensor.Shape{2, 4}, backend)

	assert.Panics(t, func() {
		m.Step(query, state, 1)
	})
}

func TestFinalizeLoopRecordsPerHeadHistories(t *testing.T) {
	m, backend := newLoopFixture(t, 2)

	state := m.InitialLoopState()
	for step := 0; step < 3; step++ {
		query := tensor.Randn[float32](tensor.Shape{2, 4}, backend)
		_, state = m.Step(query, state, step)
	}
	m.FinalizeLoop("decoder", state)

	for _, key := range []string{"decoder_head0", "decoder_head1"} {
		history, err := m.History(key)
		require.NoError(t, err, "missing history %s", key)
		// [time, batch, time_k]
		assert.Equal(t, tensor.Shape{3, 2, 5}, history.Shape())
	}
}

func TestFinalizeEmptyLoopGivesZeroLengthHistory(t *testing.T) {
	m, _ := newLoopFixture(t, 1)

	m.FinalizeLoop("decoder", m.InitialLoopState())

	history, err := m.History("decoder_head0")
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0}, history.Shape())
	assert.Equal(t, 0, history.NumElements())
}

func TestHistoryUnknownKey(t *testing.T) {
	m, _ := newLoopFixture(t, 1)

	_, err := m.History("nonexistent_head0")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrLookup)
}

func TestHistoryKeys(t *testing.T) {
	m, backend := newLoopFixture(t, 2)

	state := m.InitialLoopState()
	query := tensor.Randn[float32](tensor.Shape{2, 4}, backend)
	_, state = m.Step(query, state, 0)
	m.FinalizeLoop("run", state)

	keys := m.HistoryKeys()
	assert.ElementsMatch(t, []string{"run_head0", "run_head1"}, keys)
}
