// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zero_test

import (
	"testing"

	. "github.com/15IITian/bdk/internal/zero"
)

var (
	bytes32 = make([]byte, 32) // typical key size
	bytes64 = make([]byte, 64) // typical seed size
)

func BenchmarkBytes32(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Bytes(bytes32)
	}
}

func BenchmarkBytes64(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Bytes(bytes64)
	}
}
