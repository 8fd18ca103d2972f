// Copyright (c) 2015 The btcsuite developers
// Copyright (c) 2015 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zero contains functions to clear secret data from memory.
package zero

// Bytes sets all bytes in the passed slice to zero.  This is used to
// explicitly clear private key material from memory.
func Bytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
