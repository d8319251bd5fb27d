// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package model exposes the shared contracts between model parts: the
// Attendable interface consumed by attention mechanisms and the error
// taxonomy used across the toolkit.
package model

import (
	"github.com/tapir-nmt/tapir/internal/model"
	"github.com/tapir-nmt/tapir/internal/tensor"
)

// Attendable is implemented by model parts that expose a sequence of
// hidden states an attention mechanism can attend over.
type Attendable[B tensor.Backend] = model.Attendable[B]

// Sentinel errors. Test with errors.Is.
var (
	// ErrConfiguration reports invalid construction-time arguments.
	ErrConfiguration = model.ErrConfiguration

	// ErrData reports malformed runtime input.
	ErrData = model.ErrData

	// ErrLookup reports a reference to something that does not exist.
	ErrLookup = model.ErrLookup
)
