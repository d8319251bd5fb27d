// Package data provides vocabularies and datasets feeding the sequence
// layer: word-to-index mappings, padding-aware batch tensorization, and
// in-memory datasets of sentence series.
package data

import (
	"fmt"

	"github.com/tapir-nmt/tapir/internal/model"
)

// Reserved vocabulary slots. Every vocabulary maps these four symbols to
// fixed indices so that padding and sentence boundaries are stable across
// vocabularies.
const (
	PadIndex   int32 = 0
	StartIndex int32 = 1
	EndIndex   int32 = 2
	UnkIndex   int32 = 3
)

// Special token surface forms.
const (
	PadToken   = "<pad>"
	StartToken = "<s>"
	EndToken   = "</s>"
	UnkToken   = "<unk>"
)

// Vocabulary maps between word strings and integer indices.
// Index 0..3 are reserved for the special tokens above.
type Vocabulary interface {
	// Size returns the number of entries, including the special tokens.
	Size() int

	// Index returns the index for a word, or UnkIndex for unknown words.
	Index(word string) int32

	// Word returns the surface form for an index.
	Word(index int32) string
}

// WordVocabulary is a fixed word-level vocabulary.
type WordVocabulary struct {
	words   []string
	indices map[string]int32
}

var _ Vocabulary = (*WordVocabulary)(nil)

// NewWordVocabulary builds a vocabulary from a word list. The special
// tokens are prepended automatically; duplicates in the list are an error.
func NewWordVocabulary(words []string) (*WordVocabulary, error) {
	all := append([]string{PadToken, StartToken, EndToken, UnkToken}, words...)

	v := &WordVocabulary{
		words:   all,
		indices: make(map[string]int32, len(all)),
	}
	for i, w := range all {
		if _, ok := v.indices[w]; ok {
			return nil, fmt.Errorf("%w: duplicate word %q", model.ErrConfiguration, w)
		}
		v.indices[w] = int32(i)
	}
	return v, nil
}

// Size returns the number of entries, including the special tokens.
func (v *WordVocabulary) Size() int {
	return len(v.words)
}

// Index returns the index for a word, or UnkIndex for unknown words.
func (v *WordVocabulary) Index(word string) int32 {
	if idx, ok := v.indices[word]; ok {
		return idx
	}
	return UnkIndex
}

// Word returns the surface form for an index.
func (v *WordVocabulary) Word(index int32) string {
	if index < 0 || int(index) >= len(v.words) {
		return UnkToken
	}
	return v.words[index]
}

// SentencesToTensor converts a batch of tokenized sentences into index and
// mask matrices of shape [batch, time].
//
// Sentences longer than maxLength are truncated before boundary symbols are
// added (maxLength <= 0 disables truncation). With addStart the StartIndex
// symbol is prepended; with addEnd the EndIndex symbol is appended. Shorter
// sentences are padded with PadIndex up to the longest sentence in the
// batch. The mask holds 1 for real positions (boundary symbols included)
// and 0 for padding.
func SentencesToTensor(v Vocabulary, sentences [][]string, maxLength int, addStart, addEnd bool) ([][]int32, [][]float32) {
	indexed := make([][]int32, len(sentences))
	maxLen := 0
	for i, sentence := range sentences {
		if maxLength > 0 && len(sentence) > maxLength {
			sentence = sentence[:maxLength]
		}

		row := make([]int32, 0, len(sentence)+2)
		if addStart {
			row = append(row, StartIndex)
		}
		for _, word := range sentence {
			row = append(row, v.Index(word))
		}
		if addEnd {
			row = append(row, EndIndex)
		}

		indexed[i] = row
		if len(row) > maxLen {
			maxLen = len(row)
		}
	}

	indices := make([][]int32, len(indexed))
	masks := make([][]float32, len(indexed))
	for i, row := range indexed {
		padded := make([]int32, maxLen)
		mask := make([]float32, maxLen)
		copy(padded, row)
		for j := range row {
			mask[j] = 1
		}
		indices[i] = padded
		masks[i] = mask
	}
	return indices, masks
}
