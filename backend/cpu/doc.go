// Copyright 2026 Tapir NMT Toolkit. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// # Overview
//
// This package implements a CPU backend with:
//   - Pure Go implementation (no CGO)
//   - Float32 and Float64 support
//   - Batched matrix multiplication for attention workloads
//   - NumPy-compatible broadcasting
//
// # Basic Usage
//
//	import (
//	    "github.com/tapir-nmt/tapir/backend/cpu"
//	    "github.com/tapir-nmt/tapir/tensor"
//	    "github.com/tapir-nmt/tapir/nn"
//	)
//
//	func main() {
//	    backend := cpu.New()
//
//	    x := tensor.Zeros[float32](tensor.Shape{2, 3}, backend)
//	    y := tensor.Ones[float32](tensor.Shape{2, 3}, backend)
//	    z := x.Add(y)
//
//	    model := nn.NewLinear(512, 512, backend)
//	}
//
// # Thread Safety
//
// The CPU backend is safe for concurrent use. Every operation allocates a
// fresh result tensor and never mutates its inputs.
package cpu
