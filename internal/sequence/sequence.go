// Package sequence provides embedded input sequences for attention models.
//
// An EmbeddedFactorSequence turns one or more parallel series of tokenized
// sentences (factors) into a single batch of dense temporal states: each
// factor is indexed through its vocabulary, embedded through its own
// embedding matrix, and the factor embeddings are concatenated along the
// feature axis.
package sequence

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tapir-nmt/tapir/internal/data"
	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/nn"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Factor describes one input factor: where its sentences come from, which
// vocabulary indexes them, and how wide its embeddings are.
type Factor struct {
	// DataID names the dataset series holding the factor's sentences.
	DataID string
	// Vocabulary maps the factor's words to indices.
	Vocabulary data.Vocabulary
	// EmbeddingSize is the width of the factor's embedding vectors.
	EmbeddingSize int
}

// EmbeddedFactorSequence embeds parallel sentence factors into temporal
// states that attention mechanisms can attend over. It implements
// model.Attendable once fed with data.
type EmbeddedFactorSequence[B tensor.Backend] struct {
	name      string
	factors   []Factor
	maxLength int
	addStart  bool
	addEnd    bool
	backend   B
	logger    zerolog.Logger

	embeddings []*nn.Embedding[B]

	// Populated by Feed.
	inputs []*tensor.Tensor[int32, B]
	states *tensor.Tensor[float32, B]
	mask   *tensor.Tensor[float32, B]
	train  bool
}

var _ model.Attendable[tensor.Backend] = (*EmbeddedFactorSequence[tensor.Backend])(nil)

// Option configures an EmbeddedFactorSequence.
type Option func(*options)

type options struct {
	maxLength int
	addStart  bool
	addEnd    bool
	logger    zerolog.Logger
}

// WithMaxLength truncates sentences to at most n tokens before boundary
// symbols are added.
func WithMaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

// WithStartSymbol prepends the start-of-sentence symbol to every sentence.
func WithStartSymbol() Option {
	return func(o *options) { o.addStart = true }
}

// WithEndSymbol appends the end-of-sentence symbol to every sentence.
func WithEndSymbol() Option {
	return func(o *options) { o.addEnd = true }
}

// WithLogger sets the logger used for feed diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates an EmbeddedFactorSequence from one or more factors.
// Embedding matrices are created eagerly with Xavier initialization.
//
// Returns an error wrapping model.ErrConfiguration when no factors are
// given, a factor is incomplete, an embedding size is not positive, or the
// maximum length is negative.
func New[B tensor.Backend](name string, factors []Factor, backend B, opts ...Option) (*EmbeddedFactorSequence[B], error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: sequence %q needs at least one factor", model.ErrConfiguration, name)
	}
	if o.maxLength < 0 {
		return nil, fmt.Errorf("%w: maximum sequence length must be a positive integer, got %d",
			model.ErrConfiguration, o.maxLength)
	}

	s := &EmbeddedFactorSequence[B]{
		name:       name,
		factors:    factors,
		maxLength:  o.maxLength,
		addStart:   o.addStart,
		addEnd:     o.addEnd,
		backend:    backend,
		logger:     o.logger,
		embeddings: make([]*nn.Embedding[B], len(factors)),
	}

	for i, factor := range factors {
		if factor.Vocabulary == nil {
			return nil, fmt.Errorf("%w: factor %d of sequence %q has no vocabulary",
				model.ErrConfiguration, i, name)
		}
		if factor.DataID == "" {
			return nil, fmt.Errorf("%w: factor %d of sequence %q has no data series ID",
				model.ErrConfiguration, i, name)
		}
		if factor.EmbeddingSize <= 0 {
			return nil, fmt.Errorf("%w: embedding size must be a positive integer, got %d",
				model.ErrConfiguration, factor.EmbeddingSize)
		}
		s.embeddings[i] = nn.NewEmbedding(factor.Vocabulary.Size(), factor.EmbeddingSize, backend)
	}

	return s, nil
}

// NewEmbedded creates a single-factor sequence, the common case of one
// vocabulary over one data series.
func NewEmbedded[B tensor.Backend](
	name string,
	vocabulary data.Vocabulary,
	dataID string,
	embeddingSize int,
	backend B,
	opts ...Option,
) (*EmbeddedFactorSequence[B], error) {
	return New(name, []Factor{{
		DataID:        dataID,
		Vocabulary:    vocabulary,
		EmbeddingSize: embeddingSize,
	}}, backend, opts...)
}

// Name returns the sequence name.
func (s *EmbeddedFactorSequence[B]) Name() string {
	return s.name
}

// StateSize returns the width of a temporal state vector, the sum of all
// factor embedding sizes.
func (s *EmbeddedFactorSequence[B]) StateSize() int {
	size := 0
	for _, factor := range s.factors {
		size += factor.EmbeddingSize
	}
	return size
}

// EmbeddingMatrix returns the embedding weight of the i-th factor,
// shaped [vocabulary_size, embedding_size].
func (s *EmbeddedFactorSequence[B]) EmbeddingMatrix(i int) *tensor.Tensor[float32, B] {
	return s.embeddings[i].Weight().Tensor()
}

// Parameters returns the embedding parameters of all factors.
func (s *EmbeddedFactorSequence[B]) Parameters() []*nn.Parameter[B] {
	var params []*nn.Parameter[B]
	for _, emb := range s.embeddings {
		params = append(params, emb.Parameters()...)
	}
	return params
}

// Feed tensorizes and embeds a batch from the dataset.
//
// Every factor series is indexed through its vocabulary and padded to the
// longest sentence in the batch. All factors of one sentence must have the
// same length; a mismatch returns an error wrapping model.ErrData. After a
// successful Feed, TemporalStates and TemporalMask serve the batch. The
// train flag marks the batch as a training batch for downstream consumers.
func (s *EmbeddedFactorSequence[B]) Feed(dataset data.Dataset, train bool) error {
	var refMask [][]float32
	var refID string

	inputs := make([]*tensor.Tensor[int32, B], len(s.factors))
	embedded := make([]*tensor.Tensor[float32, B], len(s.factors))

	for i, factor := range s.factors {
		sentences, err := dataset.Series(factor.DataID)
		if err != nil {
			return fmt.Errorf("sequence %q: %w", s.name, err)
		}

		indices, mask := data.SentencesToTensor(
			factor.Vocabulary, sentences, s.maxLength, s.addStart, s.addEnd)

		if refMask == nil {
			refMask, refID = mask, factor.DataID
		} else if err := masksMatch(refMask, mask); err != nil {
			return fmt.Errorf("%w: the lengths of factors %q and %q do not match: %v",
				model.ErrData, refID, factor.DataID, err)
		}

		indexTensor, err := flattenIndices(indices, s.backend)
		if err != nil {
			return fmt.Errorf("sequence %q: %w", s.name, err)
		}
		inputs[i] = indexTensor
		embedded[i] = s.embeddings[i].Lookup(indexTensor)
	}

	states := embedded[0]
	if len(embedded) > 1 {
		states = tensor.Cat(embedded, 2, s.backend)
	}

	mask, err := flattenMask(refMask, s.backend)
	if err != nil {
		return fmt.Errorf("sequence %q: %w", s.name, err)
	}

	s.inputs = inputs
	s.states = states
	s.mask = mask
	s.train = train

	s.logger.Debug().
		Str("sequence", s.name).
		Int("batch", states.Shape()[0]).
		Int("length", states.Shape()[1]).
		Int("state_size", states.Shape()[2]).
		Int("factors", len(s.factors)).
		Bool("train", train).
		Msg("fed sequence batch")

	return nil
}

// TemporalStates returns the embedded batch, shaped
// [batch, time, state_size]. Panics when called before Feed.
func (s *EmbeddedFactorSequence[B]) TemporalStates() *tensor.Tensor[float32, B] {
	if s.states == nil {
		panic(fmt.Sprintf("sequence %q: TemporalStates called before Feed", s.name))
	}
	return s.states
}

// TemporalMask returns the [batch, time] validity mask of the fed batch.
// Panics when called before Feed.
func (s *EmbeddedFactorSequence[B]) TemporalMask() *tensor.Tensor[float32, B] {
	if s.mask == nil {
		panic(fmt.Sprintf("sequence %q: TemporalMask called before Feed", s.name))
	}
	return s.mask
}

// Train reports whether the last fed batch was a training batch.
func (s *EmbeddedFactorSequence[B]) Train() bool {
	return s.train
}

// Inputs returns the index tensors of the fed batch, one [batch, time]
// tensor per factor. Panics when called before Feed.
func (s *EmbeddedFactorSequence[B]) Inputs() []*tensor.Tensor[int32, B] {
	if s.inputs == nil {
		panic(fmt.Sprintf("sequence %q: Inputs called before Feed", s.name))
	}
	return s.inputs
}

func masksMatch(a, b [][]float32) error {
	if len(a) != len(b) {
		return fmt.Errorf("batch sizes %d and %d differ", len(a), len(b))
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return fmt.Errorf("batch padded to lengths %d and %d", len(a[i]), len(b[i]))
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return fmt.Errorf("sentence %d differs at position %d", i, j)
			}
		}
	}
	return nil
}

func flattenIndices[B tensor.Backend](rows [][]int32, backend B) (*tensor.Tensor[int32, B], error) {
	batch := len(rows)
	length := 0
	if batch > 0 {
		length = len(rows[0])
	}

	flat := make([]int32, 0, batch*length)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return tensor.FromSlice(flat, tensor.Shape{batch, length}, backend)
}

func flattenMask[B tensor.Backend](rows [][]float32, backend B) (*tensor.Tensor[float32, B], error) {
	batch := len(rows)
	length := 0
	if batch > 0 {
		length = len(rows[0])
	}

	flat := make([]float32, 0, batch*length)
	for _, row := range rows {
		flat = append(flat, row...)
	}
	return tensor.FromSlice(flat, tensor.Shape{batch, length}, backend)
}
