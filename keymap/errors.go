// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package keymap

import (
	"errors"
	"fmt"

	"github.com/15IITian/bdk/plan"
)

// ErrMultiPathKey is returned when a looked up entry is a multi-path
// extended key. Such an entry names several derivation paths at once and
// cannot resolve to one private key.
var ErrMultiPathKey = errors.New("multi-path extended key does not resolve " +
	"to a single private key")

// DerivationError is returned when walking an extended key along a plan
// key's derivation path fails.
type DerivationError struct {
	// KeyID identifies the store entry whose derivation failed.
	KeyID plan.KeyID

	// Err is the underlying hdkeychain failure.
	Err error
}

// Error implements the error interface.
func (e *DerivationError) Error() string {
	return fmt.Sprintf("deriving from key %v: %v", e.KeyID, e.Err)
}

// Unwrap returns the wrapped error.
func (e *DerivationError) Unwrap() error {
	return e.Err
}

// UnsupportedKeyFormError is returned when a store entry holds secret
// material of a form the resolver cannot turn into a private key. The known
// key was found, so this is distinct from a plain miss.
type UnsupportedKeyFormError struct {
	// KeyID identifies the offending store entry.
	KeyID plan.KeyID

	// Err describes why the entry cannot resolve.
	Err error
}

// Error implements the error interface.
func (e *UnsupportedKeyFormError) Error() string {
	return fmt.Sprintf("unsupported key form for %v: %v", e.KeyID, e.Err)
}

// Unwrap returns the wrapped error.
func (e *UnsupportedKeyFormError) Unwrap() error {
	return e.Err
}
