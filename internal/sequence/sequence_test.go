package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapir-nmt/tapir/internal/attention"
	"github.com/tapir-nmt/tapir/internal/backend/cpu"
	"github.com/tapir-nmt/tapir/internal/data"
	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

func newVocab(t *testing.T, words ...string) *data.WordVocabulary {
	t.Helper()
	v, err := data.NewWordVocabulary(words)
	require.NoError(t, err)
	return v
}

func TestNewValidation(t *testing.T) {
	backend := cpu.New()
	vocab := newVocab(t, "a", "b")

	t.Run("no factors", func(t *testing.T) {
		_, err := New[*cpu.CPUBackend]("seq", nil, backend)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("zero embedding size", func(t *testing.T) {
		_, err := NewEmbedded("seq", vocab, "source", 0, backend)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("missing vocabulary", func(t *testing.T) {
		_, err := New("seq", []Factor{{DataID: "source", EmbeddingSize: 4}}, backend)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("missing data id", func(t *testing.T) {
		_, err := New("seq", []Factor{{Vocabulary: vocab, EmbeddingSize: 4}}, backend)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})

	t.Run("negative max length", func(t *testing.T) {
		_, err := NewEmbedded("seq", vocab, "source", 4, backend, WithMaxLength(-1))
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrConfiguration)
	})
}

func TestStateSizeSumsFactors(t *testing.T) {
	backend := cpu.New()
	words := newVocab(t, "hello", "world")
	tags := newVocab(t, "INTJ", "NOUN")

	seq, err := New("seq", []Factor{
		{DataID: "source", Vocabulary: words, EmbeddingSize: 6},
		{DataID: "tags", Vocabulary: tags, EmbeddingSize: 2},
	}, backend)
	require.NoError(t, err)

	assert.Equal(t, 8, seq.StateSize())
}

func TestFeedSingleFactor(t *testing.T) {
	backend := cpu.New()
	vocab := newVocab(t, "hello", "world")

	seq, err := NewEmbedded("seq", vocab, "source", 4, backend)
	require.NoError(t, err)

	ds, err := data.NewInMemoryDataset(map[string][][]string{
		"source": {
			{"hello", "world"},
			{"hello"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, seq.Feed(ds, false))

	states := seq.TemporalStates()
	assert.Equal(t, tensor.Shape{2, 2, 4}, states.Shape())

	mask := seq.TemporalMask()
	require.Equal(t, tensor.Shape{2, 2}, mask.Shape())
	assert.Equal(t, []float32{1, 1, 1, 0}, mask.Data())

	inputs := seq.Inputs()
	require.Len(t, inputs, 1)
	assert.Equal(t, []int32{4, 5, 4, data.PadIndex}, inputs[0].Data())

	// The embedded state of "hello" matches its embedding matrix row.
	row := seq.EmbeddingMatrix(0)
	for d := 0; d < 4; d++ {
		assert.Equal(t, row.At(4, d), states.At(0, 0, d))
	}
}

func TestFeedMultiFactorConcatenation(t *testing.T) {
	backend := cpu.New()
	words := newVocab(t, "hello", "world")
	tags := newVocab(t, "INTJ", "NOUN")

	seq, err := New("seq", []Factor{
		{DataID: "source", Vocabulary: words, EmbeddingSize: 3},
		{DataID: "tags", Vocabulary: tags, EmbeddingSize: 2},
	}, backend)
	require.NoError(t, err)

	ds, err := data.NewInMemoryDataset(map[string][][]string{
		"source": {{"hello", "world"}},
		"tags":   {{"INTJ", "NOUN"}},
	})
	require.NoError(t, err)

	require.NoError(t, seq.Feed(ds, false))

	states := seq.TemporalStates()
	require.Equal(t, tensor.Shape{1, 2, 5}, states.Shape())

	// The first three features come from the word factor, the last two
	// from the tag factor.
	wordRow := seq.EmbeddingMatrix(0)
	tagRow := seq.EmbeddingMatrix(1)
	for d := 0; d < 3; d++ {
		assert.Equal(t, wordRow.At(4, d), states.At(0, 0, d))
	}
	for d := 0; d < 2; d++ {
		assert.Equal(t, tagRow.At(4, d), states.At(0, 0, 3+d))
	}
}

func TestFeedFactorLengthMismatch(t *testing.T) {
	backend := cpu.New()
	words := newVocab(t, "hello", "world")
	tags := newVocab(t, "INTJ")

	seq, err := New("seq", []Factor{
		{DataID: "source", Vocabulary: words, EmbeddingSize: 3},
		{DataID: "tags", Vocabulary: tags, EmbeddingSize: 2},
	}, backend)
	require.NoError(t, err)

	ds, err := data.NewInMemoryDataset(map[string][][]string{
		"source": {{"hello", "world"}},
		"tags":   {{"INTJ"}},
	})
	require.NoError(t, err)

	err = seq.Feed(ds, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrData)
}

func TestFeedUnknownSeries(t *testing.T) {
	backend := cpu.New()
	vocab := newVocab(t, "hello")

	seq, err := NewEmbedded("seq", vocab, "missing", 4, backend)
	require.NoError(t, err)

	ds, err := data.NewInMemoryDataset(map[string][][]string{
		"source": {{"hello"}},
	})
	require.NoError(t, err)

	err = seq.Feed(ds, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrLookup)
}

func TestFeedBoundarySymbols(t *testing.T) {
	backend := cpu.New()
	vocab := newVocab(t, "hi")

	seq, err := NewEmbedded("seq", vocab, "source", 4, backend,
		WithStartSymbol(), WithEndSymbol())
	require.NoError(t, err)

	ds, err := data.NewInMemoryDataset(map[string][][]string{
		"source": {{"hi"}},
	})
	require.NoError(t, err)

	require.NoError(t, seq.Feed(ds, false))

	inputs := seq.Inputs()
	assert.Equal(t, []int32{data.StartIndex, 4, data.EndIndex}, inputs[0].Data())
	assert.Equal(t, []float32{1, 1, 1}, seq.TemporalMask().Data())
}

func TestTemporalStatesBeforeFeedPanics(t *testing.T) {
	backend := cpu.New()
	vocab := newVocab(t, "hello")

	seq, err := NewEmbedded("seq", vocab, "source", 4, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { seq.TemporalStates() })
	assert.Panics(t, func() { seq.TemporalMask() })
	assert.Panics(t, func() { seq.Inputs() })
}

// The sequence plugs directly into the attention engine as its Attendable.
func TestSequenceFeedsAttention(t *testing.T) {
	backend := cpu.New()
	vocab := newVocab(t, "the", "cat", "sat")

	seq, err := NewEmbedded("seq", vocab, "source", 8, backend)
	require.NoError(t, err)

	ds, err := data.NewInMemoryDataset(map[string][][]string{
		"source": {
			{"the", "cat", "sat"},
			{"the", "cat"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, seq.Feed(ds, false))

	att, err := attention.New[*cpu.CPUBackend]("att", 2, seq, nil, 1.0, backend)
	require.NoError(t, err)
	assert.Equal(t, 8, att.ContextVectorSize())

	state := att.InitialLoopState()
	var context *tensor.Tensor[float32, *cpu.CPUBackend]
	for step := 0; step < 2; step++ {
		query := tensor.Randn[float32](tensor.Shape{2, 8}, backend)
		context, state = att.Step(query, state, step)
		assert.Equal(t, tensor.Shape{2, 8}, context.Shape())
	}
	att.FinalizeLoop("decoder", state)

	history, err := att.History("decoder_head0")
	require.NoError(t, err)
	// [time=2, batch=2, keys=3]
	assert.Equal(t, tensor.Shape{2, 2, 3}, history.Shape())

	// The padded position of the short sentence never receives weight.
	for step := 0; step < 2; step++ {
		assert.Zero(t, history.At(step, 1, 2))
	}
}
