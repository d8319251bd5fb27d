package data

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/tapir-nmt/tapir/internal/model"
)

const (
	// encodingCL100kBase is the encoding used by GPT-4 and GPT-3.5-turbo.
	encodingCL100kBase = "cl100k_base"
	// encodingP50kBase is the encoding used by GPT-3 and Codex.
	encodingP50kBase = "p50k_base"
	// encodingR50kBase is the encoding used by older GPT-3 models.
	encodingR50kBase = "r50k_base"
)

// TiktokenVocabulary adapts an OpenAI BPE encoding from
// pkoukk/tiktoken-go to the Vocabulary interface.
//
// BPE token IDs are shifted up by four positions so that the reserved
// special indices (pad, start, end, unk) keep their fixed slots. A word is
// mapped to the ID of its first BPE token; use Tokenize to split text into
// BPE piece strings first so that the word-to-index mapping is lossless.
type TiktokenVocabulary struct {
	encoding *tiktoken.Tiktoken
	name     string
}

var _ Vocabulary = (*TiktokenVocabulary)(nil)

// reservedSlots is the shift applied to BPE token IDs.
const reservedSlots = 4

// NewTiktokenVocabulary creates a vocabulary backed by the named encoding.
//
// Supported encodings: "cl100k_base", "p50k_base", "r50k_base".
func NewTiktokenVocabulary(encodingName string) (*TiktokenVocabulary, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load tiktoken encoding %q: %v",
			model.ErrConfiguration, encodingName, err)
	}

	return &TiktokenVocabulary{
		encoding: encoding,
		name:     encodingName,
	}, nil
}

// Size returns the vocabulary size including the reserved special slots.
//
// tiktoken-go does not expose the vocabulary size, so the known sizes of
// the supported encodings are hardcoded.
func (v *TiktokenVocabulary) Size() int {
	switch v.name {
	case encodingCL100kBase:
		return 100256 + reservedSlots
	case encodingP50kBase, encodingR50kBase:
		return 50257 + reservedSlots
	default:
		return 100000 + reservedSlots
	}
}

// Index returns the shifted ID of the word's first BPE token. The special
// token surface forms map to their reserved indices; empty words map to
// UnkIndex.
func (v *TiktokenVocabulary) Index(word string) int32 {
	switch word {
	case PadToken:
		return PadIndex
	case StartToken:
		return StartIndex
	case EndToken:
		return EndIndex
	case UnkToken:
		return UnkIndex
	}

	tokens := v.encoding.EncodeOrdinary(word)
	if len(tokens) == 0 {
		return UnkIndex
	}
	return int32(tokens[0]) + reservedSlots
}

// Word decodes a shifted BPE token ID back to its piece string.
func (v *TiktokenVocabulary) Word(index int32) string {
	switch index {
	case PadIndex:
		return PadToken
	case StartIndex:
		return StartToken
	case EndIndex:
		return EndToken
	case UnkIndex:
		return UnkToken
	}
	if index < reservedSlots {
		return UnkToken
	}
	return v.encoding.Decode([]int{int(index - reservedSlots)})
}

// Tokenize splits text into BPE piece strings. Feeding these pieces
// through Index reconstructs the BPE encoding exactly.
func (v *TiktokenVocabulary) Tokenize(text string) []string {
	tokens := v.encoding.EncodeOrdinary(text)
	pieces := make([]string, len(tokens))
	for i, tok := range tokens {
		pieces[i] = v.encoding.Decode([]int{tok})
	}
	return pieces
}

// Name returns the encoding name.
func (v *TiktokenVocabulary) Name() string {
	return v.name
}
