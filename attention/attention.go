// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package attention provides the multi-head scaled dot-product attention
// engine from Vaswani et al. (2017).
//
// An attention mechanism is created over an Attendable, the provider of
// the key and value states. It supports two modes of use: batch-wise
// Compute over whole query sequences, and step-wise decoding through
// Step, InitialLoopState and FinalizeLoop, which records per-head
// attention histories for inspection.
//
// Example:
//
//	backend := cpu.New()
//	att, err := attention.New("encoder_attention", 8, encoder, nil, 0.9, backend)
//	if err != nil {
//	    return err
//	}
//	context, weights := att.Compute(queries, false)
package attention

import (
	"github.com/tapir-nmt/tapir/internal/attention"
	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// MultiHeadAttention attends over the temporal states of an Attendable
// with one or more scaled dot-product heads.
type MultiHeadAttention[B tensor.Backend] = attention.MultiHeadAttention[B]

// LoopState accumulates per-step contexts and attention distributions
// during autoregressive decoding.
type LoopState[B tensor.Backend] = attention.LoopState[B]

// New creates a MultiHeadAttention over the states of the keys encoder.
// If values is nil, the keys encoder also provides the values.
func New[B tensor.Backend](
	name string,
	numHeads int,
	keys model.Attendable[B],
	values model.Attendable[B],
	dropoutKeep float32,
	backend B,
) (*MultiHeadAttention[B], error) {
	return attention.New(name, numHeads, keys, values, dropoutKeep, backend)
}

// NewScaledDotProduct creates a single-head scaled dot-product attention.
func NewScaledDotProduct[B tensor.Backend](
	name string,
	keys model.Attendable[B],
	values model.Attendable[B],
	dropoutKeep float32,
	backend B,
) (*MultiHeadAttention[B], error) {
	return attention.NewScaledDotProduct(name, keys, values, dropoutKeep, backend)
}
