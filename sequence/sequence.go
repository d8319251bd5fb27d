// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package sequence provides embedded input sequences for attention models.
//
// An EmbeddedFactorSequence embeds one or more parallel sentence factors
// into dense temporal states and implements model.Attendable once fed with
// a dataset batch.
//
// Example:
//
//	backend := cpu.New()
//	seq, err := sequence.NewEmbedded("source", vocab, "source", 512, backend,
//	    sequence.WithEndSymbol())
//	if err != nil {
//	    return err
//	}
//	if err := seq.Feed(dataset, false); err != nil {
//	    return err
//	}
package sequence

import (
	"github.com/tapir-nmt/tapir/internal/data"
	"github.com/tapir-nmt/tapir/internal/sequence"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// EmbeddedFactorSequence embeds parallel sentence factors into temporal
// states that attention mechanisms can attend over.
type EmbeddedFactorSequence[B tensor.Backend] = sequence.EmbeddedFactorSequence[B]

// Factor describes one input factor of a sequence.
type Factor = sequence.Factor

// Option configures an EmbeddedFactorSequence.
type Option = sequence.Option

// WithMaxLength truncates sentences to at most n tokens before boundary
// symbols are added.
func WithMaxLength(n int) Option { return sequence.WithMaxLength(n) }

// WithStartSymbol prepends the start-of-sentence symbol to every sentence.
func WithStartSymbol() Option { return sequence.WithStartSymbol() }

// WithEndSymbol appends the end-of-sentence symbol to every sentence.
func WithEndSymbol() Option { return sequence.WithEndSymbol() }

// WithLogger sets the logger used for feed diagnostics.
var WithLogger = sequence.WithLogger

// New creates an EmbeddedFactorSequence from one or more factors.
func New[B tensor.Backend](name string, factors []Factor, backend B, opts ...Option) (*EmbeddedFactorSequence[B], error) {
	return sequence.New(name, factors, backend, opts...)
}

// NewEmbedded creates a single-factor sequence.
func NewEmbedded[B tensor.Backend](
	name string,
	vocabulary data.Vocabulary,
	dataID string,
	embeddingSize int,
	backend B,
	opts ...Option,
) (*EmbeddedFactorSequence[B], error) {
	return sequence.NewEmbedded(name, vocabulary, dataID, embeddingSize, backend, opts...)
}
