// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network building blocks for the Tapir toolkit.
//
// It exposes the layers and primitives the attention engine is built from:
// linear projections, embeddings, the scaled dot-product attention
// primitive, causal masks, and dropout.
//
// Example:
//
//	backend := cpu.New()
//	layer := nn.NewLinear(512, 512, backend)
//	out := layer.Forward(input)
package nn
