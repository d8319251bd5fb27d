// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package data provides vocabularies and datasets for the Tapir toolkit.
//
// Vocabularies map between word strings and integer indices, with four
// reserved slots for padding, sentence boundaries, and unknown words.
// Datasets hold named parallel series of tokenized sentences.
package data

import (
	"github.com/tapir-nmt/tapir/internal/data"
)

// Reserved vocabulary slots.
const (
	PadIndex   = data.PadIndex
	StartIndex = data.StartIndex
	EndIndex   = data.EndIndex
	UnkIndex   = data.UnkIndex
)

// Special token surface forms.
const (
	PadToken   = data.PadToken
	StartToken = data.StartToken
	EndToken   = data.EndToken
	UnkToken   = data.UnkToken
)

// Vocabulary maps between word strings and integer indices.
type Vocabulary = data.Vocabulary

// WordVocabulary is a fixed word-level vocabulary.
type WordVocabulary = data.WordVocabulary

// NewWordVocabulary builds a vocabulary from a word list. The special
// tokens are prepended automatically.
func NewWordVocabulary(words []string) (*WordVocabulary, error) {
	return data.NewWordVocabulary(words)
}

// TiktokenVocabulary adapts an OpenAI BPE encoding to the Vocabulary
// interface.
type TiktokenVocabulary = data.TiktokenVocabulary

// NewTiktokenVocabulary creates a vocabulary backed by the named encoding.
//
// Supported encodings: "cl100k_base", "p50k_base", "r50k_base".
func NewTiktokenVocabulary(encodingName string) (*TiktokenVocabulary, error) {
	return data.NewTiktokenVocabulary(encodingName)
}

// Dataset provides named series of tokenized sentences.
type Dataset = data.Dataset

// InMemoryDataset is a Dataset backed by a map of series.
type InMemoryDataset = data.InMemoryDataset

// NewInMemoryDataset builds a dataset from named series. All series must
// hold the same number of sentences.
func NewInMemoryDataset(series map[string][][]string) (*InMemoryDataset, error) {
	return data.NewInMemoryDataset(series)
}

// SentencesToTensor converts a batch of tokenized sentences into index and
// mask matrices of shape [batch, time].
func SentencesToTensor(v Vocabulary, sentences [][]string, maxLength int, addStart, addEnd bool) ([][]int32, [][]float32) {
	return data.SentencesToTensor(v, sentences, maxLength, addStart, addEnd)
}
