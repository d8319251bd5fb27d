package attention

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapir-nmt/tapir/internal/backend/cpu"
	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/nn"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// stubAttendable exposes fixed states and mask for testing.
type stubAttendable struct {
	states *tensor.Tensor[float32, *cpu.CPUBackend]
	mask   *tensor.Tensor[float32, *cpu.CPUBackend]
}

func (s *stubAttendable) TemporalStates() *tensor.Tensor[float32, *cpu.CPUBackend] {
	return s.states
}

func (s *stubAttendable) TemporalMask() *tensor.Tensor[float32, *cpu.CPUBackend] {
	return s.mask
}

func (s *stubAttendable) StateSize() int {
	return s.states.Shape()[2]
}

func newStub(t *testing.T, backend *cpu.CPUBackend, states []float32, shape tensor.Shape, mask []float32) *stubAttendable {
	t.Helper()
	st, err := tensor.FromSlice(states, shape, backend)
	require.NoError(t, err)

	stub := &stubAttendable{states: st}
	if mask != nil {
		mk, err := tensor.FromSlice(mask, tensor.Shape{shape[0], shape[1]}, backend)
		require.NoError(t, err)
		stub.mask = mk
	}
	return stub
}

func TestNewRejectsZeroHeads(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, make([]float32, 4), tensor.Shape{1, 2, 2}, nil)

	_, err := New("att", 0, keys, nil, 1.0, backend)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestNewRejectsIndivisibleDimension(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, make([]float32, 20), tensor.Shape{1, 2, 10}, nil)

	_, err := New("att", 3, keys, nil, 1.0, backend)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.Contains(t, err.Error(), "model dimension (10) must be divisible by the number of attention heads (3)")
}

func TestNewRejectsBadDropoutKeep(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, make([]float32, 4), tensor.Shape{1, 2, 2}, nil)

	for _, keep := range []float32{0, -0.5, 1.5} {
		_, err := New("att", 1, keys, nil, keep, backend)
		require.Error(t, err, "keep=%v", keep)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	}

	_, err := New("att", 1, keys, nil, 1.0, backend)
	assert.NoError(t, err, "keep=1 is a valid no-dropout configuration")
}

func TestNewRejectsNilKeys(t *testing.T) {
	backend := cpu.New()
	_, err := New[*cpu.CPUBackend]("att", 1, nil, nil, 1.0, backend)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestContextVectorSize(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, make([]float32, 8), tensor.Shape{1, 2, 4}, nil)
	values := newStub(t, backend, make([]float32, 12), tensor.Shape{1, 2, 6}, nil)

	m, err := New("att", 2, keys, values, 1.0, backend)
	require.NoError(t, err)
	assert.Equal(t, 6, m.ContextVectorSize())

	// With values omitted, the keys encoder provides them.
	m2, err := New("att", 2, keys, nil, 1.0, backend)
	require.NoError(t, err)
	assert.Equal(t, 4, m2.ContextVectorSize())
}

// withIdentityOutput makes the output projection a no-op so that raw
// attention results are observable.
func withIdentityOutput(m *MultiHeadAttention[*cpu.CPUBackend], backend *cpu.CPUBackend) {
	dim := m.dimension
	copy(m.outputProj.Weight().Tensor().Data(), tensor.Eye[float32](dim, backend).Data())
	for i := range m.outputProj.Bias().Tensor().Data() {
		m.outputProj.Bias().Tensor().Data()[i] = 0
	}
}

func TestComputeWeightsSumToOne(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, []float32{
		1, 0, 0, 1, 1, 1,
	}, tensor.Shape{1, 3, 2}, nil)

	m, err := New("att", 1, keys, nil, 1.0, backend)
	require.NoError(t, err)

	query, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{1, 1, 2}, backend)
	require.NoError(t, err)

	context, weights := m.Compute(query, false)

	assert.Equal(t, tensor.Shape{1, 1, 2}, context.Shape())
	require.Equal(t, tensor.Shape{1, 1, 1, 3}, weights.Shape())

	var sum float32
	for k := 0; k < 3; k++ {
		sum += weights.At(0, 0, 0, k)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestComputeMaskedKeyGetsZeroWeight(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, []float32{
		1, 0, 0, 1, 1, 1,
	}, tensor.Shape{1, 3, 2}, []float32{1, 1, 0})

	m, err := New("att", 1, keys, nil, 1.0, backend)
	require.NoError(t, err)

	query, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{1, 1, 2}, backend)
	require.NoError(t, err)

	_, weights := m.Compute(query, false)

	// The padded key is exactly zero; the rest renormalize to one.
	assert.Zero(t, weights.At(0, 0, 0, 2))
	sum := weights.At(0, 0, 0, 0) + weights.At(0, 0, 0, 1)
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestComputeFullyMaskedRowIsZeroNotNaN(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, []float32{
		1, 0, 0, 1,
	}, tensor.Shape{1, 2, 2}, []float32{0, 0})

	m, err := New("att", 1, keys, nil, 1.0, backend)
	require.NoError(t, err)
	withIdentityOutput(m, backend)

	query, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{1, 1, 2}, backend)
	require.NoError(t, err)

	context, weights := m.Compute(query, false)

	for k := 0; k < 2; k++ {
		w := weights.At(0, 0, 0, k)
		assert.False(t, math.IsNaN(float64(w)), "weight %d is NaN", k)
		assert.InDelta(t, 0, w, 1e-4)
	}
	for d := 0; d < 2; d++ {
		c := context.At(0, 0, d)
		assert.False(t, math.IsNaN(float64(c)), "context %d is NaN", d)
		assert.InDelta(t, 0, c, 1e-4)
	}
}

func TestComputeCausalZeroesFutureKeys(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, []float32{
		1, 0, 0, 1, 1, 1,
	}, tensor.Shape{1, 3, 2}, nil)

	m, err := New("att", 1, keys, nil, 1.0, backend)
	require.NoError(t, err)

	query, err := tensor.FromSlice([]float32{
		1, 0, 0, 1, 1, 1,
	}, tensor.Shape{1, 3, 2}, backend)
	require.NoError(t, err)

	_, weights := m.Compute(query, true)

	for q := 0; q < 3; q++ {
		for k := q + 1; k < 3; k++ {
			assert.Zero(t, weights.At(0, 0, q, k), "future key %d visible to query %d", k, q)
		}
	}

	// The first query has exactly one visible key.
	assert.InDelta(t, 1.0, weights.At(0, 0, 0, 0), 1e-6)
}

func TestSingleHeadMatchesScaledDotProduct(t *testing.T) {
	backend := cpu.New()

	keyData := []float32{0.3, -0.2, 0.5, 0.9, -0.4, 0.1, 0.7, 0.2}
	keys := newStub(t, backend, keyData, tensor.Shape{1, 4, 2}, nil)

	m, err := New("att", 1, keys, nil, 1.0, backend)
	require.NoError(t, err)
	withIdentityOutput(m, backend)

	queryData := []float32{0.6, -0.1, 0.2, 0.8}
	query, err := tensor.FromSlice(queryData, tensor.Shape{1, 2, 2}, backend)
	require.NoError(t, err)

	gotContext, gotWeights := m.Compute(query, false)

	// Reference: the plain 4D attention primitive with the same scaling.
	q4, err := tensor.FromSlice(queryData, tensor.Shape{1, 1, 2, 2}, backend)
	require.NoError(t, err)
	k4, err := tensor.FromSlice(keyData, tensor.Shape{1, 1, 4, 2}, backend)
	require.NoError(t, err)

	wantContext, wantWeights := nn.ScaledDotProductAttention(q4, k4, k4, nil, 0)

	require.Equal(t, tensor.Shape{1, 1, 2, 4}, gotWeights.Shape())
	for i, want := range wantWeights.Data() {
		assert.InDelta(t, want, gotWeights.Data()[i], 1e-5, "weights differ at %d", i)
	}
	for i, want := range wantContext.Data() {
		assert.InDelta(t, want, gotContext.Data()[i], 1e-5, "context differs at %d", i)
	}
}

func TestMultiHeadShapesAndDistributions(t *testing.T) {
	backend := cpu.New()

	states := tensor.Randn[float32](tensor.Shape{2, 5, 8}, backend)
	keys := &stubAttendable{states: states}

	m, err := New("att", 4, keys, nil, 1.0, backend)
	require.NoError(t, err)

	query := tensor.Randn[float32](tensor.Shape{2, 3, 6}, backend)
	context, weights := m.Compute(query, false)

	assert.Equal(t, tensor.Shape{2, 3, 8}, context.Shape())
	require.Equal(t, tensor.Shape{2, 4, 3, 5}, weights.Shape())

	for b := 0; b < 2; b++ {
		for h := 0; h < 4; h++ {
			for q := 0; q < 3; q++ {
				var sum float32
				for k := 0; k < 5; k++ {
					sum += weights.At(b, h, q, k)
				}
				assert.InDelta(t, 1.0, sum, 1e-4, "batch %d head %d query %d", b, h, q)
			}
		}
	}

	// The query projection is created on first use and reused afterwards.
	proj := m.queryProj
	require.NotNil(t, proj)
	m.Compute(query, false)
	assert.Same(t, proj, m.queryProj)
}

func TestDropoutKeepsDistributionsInEvalMode(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, []float32{1, 0, 0, 1}, tensor.Shape{1, 2, 2}, nil)

	m, err := New("att", 1, keys, nil, 0.5, backend)
	require.NoError(t, err)

	query, err := tensor.FromSlice([]float32{1, 0}, tensor.Shape{1, 1, 2}, backend)
	require.NoError(t, err)

	// Eval mode: identical runs give identical weights despite keep < 1.
	_, first := m.Compute(query, false)
	_, second := m.Compute(query, false)
	assert.Equal(t, first.Data(), second.Data())
}

func TestParametersGrowWithHeads(t *testing.T) {
	backend := cpu.New()
	keys := newStub(t, backend, make([]float32, 8), tensor.Shape{1, 2, 4}, nil)

	single, err := New("att", 1, keys, nil, 1.0, backend)
	require.NoError(t, err)
	// Output projection only: weight and bias.
	assert.Len(t, single.Parameters(), 2)

	multi, err := New("att", 2, keys, nil, 1.0, backend)
	require.NoError(t, err)
	// Keys, values, and output projections before the first Compute.
	assert.Len(t, multi.Parameters(), 6)
}
