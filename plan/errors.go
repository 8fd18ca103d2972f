// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"errors"
	"fmt"
)

// ErrUnknownRequirement is returned when the dispatcher is handed a
// requirement type outside the closed set defined by this package.
var ErrUnknownRequirement = errors.New("unknown signing requirement")

// DigestError wraps a failure of the transaction digest engine. It is fatal
// for the affected input's signing attempt: a retry needs better input data,
// typically a complete previous output set, not a second attempt.
type DigestError struct {
	// InputIndex is the input whose digest could not be computed.
	InputIndex int

	// Err is the originating digest engine failure.
	Err error
}

// Error implements the error interface.
func (e *DigestError) Error() string {
	return fmt.Sprintf("sighash digest for input %d: %v", e.InputIndex,
		e.Err)
}

// Unwrap returns the originating failure.
func (e *DigestError) Unwrap() error {
	return e.Err
}
