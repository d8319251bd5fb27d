// Package attention implements the multi-head scaled dot-product attention
// mechanism from Vaswani et al. (2017), together with the loop-state
// machinery that collects per-step attention distributions during
// autoregressive decoding.
//
// See arxiv.org/abs/1706.03762
package attention

import (
	"fmt"
	"math"

	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/nn"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// maskEpsilon keeps the renormalization denominator positive when a whole
// row of attention weights is masked out.
const maskEpsilon = 1e-8

// MultiHeadAttention attends over the temporal states of an Attendable
// with one or more scaled dot-product heads.
//
// The model dimension is the state size of the keys. With more than one
// head, queries, keys and values are linearly projected to the model
// dimension and split head-wise; with a single head they are used as-is.
// The query is scaled by 1/sqrt(headDim) before the energies are computed.
type MultiHeadAttention[B tensor.Backend] struct {
	name        string
	numHeads    int
	keys        model.Attendable[B]
	values      model.Attendable[B]
	dropoutKeep float32
	backend     B

	dimension     int
	headDim       int
	scalingFactor float32

	// queryProj is created on the first Compute call, once the query
	// channel size is known.
	queryProj  *nn.Linear[B]
	keysProj   *nn.Linear[B]
	valsProj   *nn.Linear[B]
	outputProj *nn.Linear[B]

	train     bool
	histories map[string]*tensor.Tensor[float32, B]
}

// New creates a MultiHeadAttention over the states of the keys encoder.
// If values is nil, the keys encoder also provides the values.
//
// Returns an error wrapping model.ErrConfiguration when numHeads is not
// positive, dropoutKeep is outside (0, 1], or the model dimension is not
// divisible by the number of heads.
func New[B tensor.Backend](
	name string,
	numHeads int,
	keys model.Attendable[B],
	values model.Attendable[B],
	dropoutKeep float32,
	backend B,
) (*MultiHeadAttention[B], error) {
	if numHeads <= 0 {
		return nil, fmt.Errorf("%w: number of heads must be greater than zero, got %d",
			model.ErrConfiguration, numHeads)
	}
	if dropoutKeep <= 0 || dropoutKeep > 1 {
		return nil, fmt.Errorf("%w: dropout keep probability must be inside (0, 1], got %v",
			model.ErrConfiguration, dropoutKeep)
	}
	if keys == nil {
		return nil, fmt.Errorf("%w: keys encoder must not be nil", model.ErrConfiguration)
	}
	if values == nil {
		values = keys
	}

	dimension := keys.StateSize()
	if dimension%numHeads != 0 {
		return nil, fmt.Errorf("%w: model dimension (%d) must be divisible by the number of attention heads (%d)",
			model.ErrConfiguration, dimension, numHeads)
	}

	headDim := dimension / numHeads
	m := &MultiHeadAttention[B]{
		name:          name,
		numHeads:      numHeads,
		keys:          keys,
		values:        values,
		dropoutKeep:   dropoutKeep,
		backend:       backend,
		dimension:     dimension,
		headDim:       headDim,
		scalingFactor: float32(1 / math.Sqrt(float64(headDim))),
		histories:     make(map[string]*tensor.Tensor[float32, B]),
	}

	if numHeads > 1 {
		m.keysProj = nn.NewLinear(keys.StateSize(), dimension, backend)
		m.valsProj = nn.NewLinear(values.StateSize(), dimension, backend)
	}
	m.outputProj = nn.NewLinear(dimension, dimension, backend)

	return m, nil
}

// NewScaledDotProduct creates a single-head scaled dot-product attention.
func NewScaledDotProduct[B tensor.Backend](
	name string,
	keys model.Attendable[B],
	values model.Attendable[B],
	dropoutKeep float32,
	backend B,
) (*MultiHeadAttention[B], error) {
	return New(name, 1, keys, values, dropoutKeep, backend)
}

// Name returns the attention mechanism's name.
func (m *MultiHeadAttention[B]) Name() string {
	return m.name
}

// NumHeads returns the number of attention heads.
func (m *MultiHeadAttention[B]) NumHeads() int {
	return m.numHeads
}

// ContextVectorSize returns the dimensionality of the context vectors
// produced by this attention.
func (m *MultiHeadAttention[B]) ContextVectorSize() int {
	return m.values.StateSize()
}

// SetTrain switches between training mode, where attention dropout is
// active, and evaluation mode.
func (m *MultiHeadAttention[B]) SetTrain(train bool) {
	m.train = train
}

// Parameters returns the parameters of all projection layers that exist.
func (m *MultiHeadAttention[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, layer := range []*nn.Linear[B]{m.queryProj, m.keysProj, m.valsProj, m.outputProj} {
		if layer != nil {
			params = append(params, layer.Parameters()...)
		}
	}
	return params
}

// Compute runs the attention for a batch of queries.
//
// The query has shape [batch, time_q, channels]. With causal set, each
// query position can only attend to key positions at or before it.
//
// Returns the context vectors [batch, time_q, dimension] and the attention
// weights [batch, heads, time_q, time_k]. The weights reflect validity
// masking and, in training mode, attention dropout.
func (m *MultiHeadAttention[B]) Compute(query *tensor.Tensor[float32, B], causal bool) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	if len(query.Shape()) != 3 {
		panic(fmt.Sprintf("attention: query must be 3D [batch, time, channels], got shape %v", query.Shape()))
	}

	keys := m.keys.TemporalStates()
	values := m.values.TemporalStates()

	queryProj, keysProj, valsProj := query, keys, values
	if m.numHeads > 1 {
		if m.queryProj == nil {
			m.queryProj = nn.NewLinear(query.Shape()[2], m.dimension, m.backend)
		}
		queryProj = forward3d(m.queryProj, query)
		keysProj = forward3d(m.keysProj, keys)
		valsProj = forward3d(m.valsProj, values)
	} else if query.Shape()[2] != m.dimension {
		panic(fmt.Sprintf("attention: single-head query channels (%d) must match the model dimension (%d)",
			query.Shape()[2], m.dimension))
	}

	// Scale the query before splitting it into heads.
	queryScaled := queryProj.MulScalar(m.scalingFactor)

	q := m.splitForHeads(queryScaled)
	k := m.splitForHeads(keysProj)
	v := m.splitForHeads(valsProj)

	// Energies: [batch, heads, time_q, time_k].
	energies := q.BatchMatMul(k.Transpose(0, 1, 3, 2))

	if causal {
		energies = energies.Add(nn.CausalMask(q.Shape()[2], k.Shape()[2], m.backend))
	}

	weights := energies.Softmax(-1)

	if mask := m.keys.TemporalMask(); mask != nil {
		weights = maskWeights(weights, mask)
	}

	weights = nn.Dropout(weights, m.dropoutKeep, m.train)

	// Context: [batch, heads, time_q, head_dim], merged back to
	// [batch, time_q, dimension].
	context4d := weights.BatchMatMul(v)
	shape := context4d.Shape()
	context := context4d.Transpose(0, 2, 1, 3).Reshape(shape[0], shape[2], m.dimension)

	context = forward3d(m.outputProj, context)
	return context, weights
}

// splitForHeads reshapes [batch, time, dim] to [batch, heads, time, head_dim].
func (m *MultiHeadAttention[B]) splitForHeads(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	return x.Reshape(shape[0], shape[1], m.numHeads, m.headDim).Transpose(0, 2, 1, 3)
}

// maskWeights zeroes the weights of invalid key positions and renormalizes
// each distribution. A small epsilon keeps fully masked rows at zero
// instead of NaN.
func maskWeights[B tensor.Backend](weights, mask *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	// mask: [batch, time_k] -> [batch, 1, 1, time_k]
	masked := weights.Mul(mask.Unsqueeze(1).Unsqueeze(1))
	norm := masked.SumDim(3, true).AddScalar(maskEpsilon)
	return masked.Div(norm)
}

// forward3d applies a Linear layer to a [batch, time, channels] tensor by
// flattening the batch and time dimensions.
func forward3d[B tensor.Backend](layer *nn.Linear[B], x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := x.Shape()
	flat := x.Reshape(shape[0]*shape[1], shape[2])
	out := layer.Forward(flat)
	return out.Reshape(shape[0], shape[1], layer.OutFeatures())
}
