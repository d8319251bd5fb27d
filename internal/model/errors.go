// Package model defines the shared contracts between model parts: the
// Attendable interface that attention mechanisms consume, and the error
// taxonomy used across construction, data feeding, and lookups.
package model

import "errors"

// Sentinel errors for the three failure categories surfaced by model
// components. Wrap them with fmt.Errorf("%w: ...") so callers can test
// with errors.Is.
var (
	// ErrConfiguration reports invalid construction-time arguments,
	// such as mismatched option lengths or a non-divisible head count.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrData reports malformed runtime input, such as factor series
	// whose sentence lengths disagree.
	ErrData = errors.New("invalid data")

	// ErrLookup reports a reference to something that does not exist,
	// such as an unknown history key or dataset series.
	ErrLookup = errors.New("lookup failed")
)
