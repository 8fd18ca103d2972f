// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"crypto/sha256"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160"
)

// ripemd160Image returns the RIPEMD160 image of the given preimage.
func ripemd160Image(preimage []byte) Ripemd160Digest {
	hasher := ripemd160.New()
	hasher.Write(preimage)

	var digest Ripemd160Digest
	copy(digest[:], hasher.Sum(nil))

	return digest
}

// hash160Image returns the RIPEMD160(SHA256) image of the given preimage.
func hash160Image(preimage []byte) Hash160Digest {
	var digest Hash160Digest
	copy(digest[:], btcutil.Hash160(preimage))

	return digest
}

// TestPreimageStore checks that one added secret is served under all four
// image forms and that the store keeps its own copy.
func TestPreimageStore(t *testing.T) {
	t.Parallel()

	store := NewPreimageStore()
	preimage := []byte("hash lock secret")

	shaDigest := store.AddPreimage(preimage)
	require.Equal(t, Sha256Digest(sha256.Sum256(preimage)), shaDigest)

	got, ok := store.Sha256Preimage(shaDigest)
	require.True(t, ok)
	require.Equal(t, preimage, got)

	got, ok = store.Hash256Preimage(
		Hash256Digest(chainhash.DoubleHashH(preimage)),
	)
	require.True(t, ok)
	require.Equal(t, preimage, got)

	got, ok = store.Ripemd160Preimage(ripemd160Image(preimage))
	require.True(t, ok)
	require.Equal(t, preimage, got)

	got, ok = store.Hash160Preimage(hash160Image(preimage))
	require.True(t, ok)
	require.Equal(t, preimage, got)

	// Unknown images miss without error.
	_, ok = store.Sha256Preimage(Sha256Digest{1})
	require.False(t, ok)

	// Mutating the caller's slice must not reach the stored copy.
	preimage[0] ^= 0xff
	got, ok = store.Sha256Preimage(shaDigest)
	require.True(t, ok)
	require.NotEqual(t, preimage[0], got[0])
}

// TestSatisfyPreimages checks that available preimages are recorded under
// the image that demanded them and that missing ones turn the result false
// without raising an error.
func TestSatisfyPreimages(t *testing.T) {
	t.Parallel()

	store := NewPreimageStore()
	knownSecret := []byte("known secret")
	knownDigest := store.AddPreimage(knownSecret)

	missingSecret := []byte("still unrevealed")
	missingDigest := Sha256Digest(sha256.Sum256(missingSecret))

	reqs := NewRequirements(nil)
	reqs.Sha256Images.Add(knownDigest)
	reqs.Sha256Images.Add(missingDigest)

	// Act: only one of the two required preimages is available.
	material := NewSatisfactionMaterial()
	complete := SatisfyPreimages(reqs, store, material)

	// Assert: the served preimage was recorded, the attempt stays
	// incomplete.
	require.False(t, complete)
	require.Len(t, material.Sha256Preimages, 1)
	require.Equal(t, knownSecret, material.Sha256Preimages[knownDigest])

	// Revealing the second secret completes the requirement.
	store.AddPreimage(missingSecret)

	complete = SatisfyPreimages(reqs, store, material)
	require.True(t, complete)
	require.Len(t, material.Sha256Preimages, 2)
	require.Equal(t, missingSecret, material.Sha256Preimages[missingDigest])
}

// TestSatisfyPreimagesClosureSource checks the closure adapter, including
// its treatment of unset algorithms.
func TestSatisfyPreimagesClosureSource(t *testing.T) {
	t.Parallel()

	secret := []byte("closure served secret")
	shaDigest := Sha256Digest(sha256.Sum256(secret))

	source := PreimageClosures{
		Sha256Fn: func(digest Sha256Digest) ([]byte, bool) {
			if digest == shaDigest {
				return secret, true
			}

			return nil, false
		},
	}

	reqs := NewRequirements(nil)
	reqs.Sha256Images.Add(shaDigest)

	material := NewSatisfactionMaterial()
	require.True(t, SatisfyPreimages(reqs, source, material))
	require.Equal(t, secret, material.Sha256Preimages[shaDigest])

	// An algorithm without a closure misses every image.
	reqs.Hash160Images.Add(hash160Image(secret))
	require.False(t, SatisfyPreimages(reqs, source, material))
	require.Empty(t, material.Hash160Preimages)
}

// TestSatisfyPreimagesAllClasses checks that one secret can serve hash locks
// of every supported algorithm at once.
func TestSatisfyPreimagesAllClasses(t *testing.T) {
	t.Parallel()

	store := NewPreimageStore()
	secret := []byte("shared secret")
	shaDigest := store.AddPreimage(secret)

	hash256Digest := Hash256Digest(chainhash.DoubleHashH(secret))
	ripemdDigest := ripemd160Image(secret)
	h160Digest := hash160Image(secret)

	reqs := NewRequirements(nil)
	reqs.Sha256Images.Add(shaDigest)
	reqs.Hash256Images.Add(hash256Digest)
	reqs.Ripemd160Images.Add(ripemdDigest)
	reqs.Hash160Images.Add(h160Digest)
	require.True(t, reqs.RequiresHashPreimages())

	material := NewSatisfactionMaterial()
	require.True(t, SatisfyPreimages(reqs, store, material))

	require.Equal(t, secret, material.Sha256Preimages[shaDigest])
	require.Equal(t, secret, material.Hash256Preimages[hash256Digest])
	require.Equal(t, secret, material.Ripemd160Preimages[ripemdDigest])
	require.Equal(t, secret, material.Hash160Preimages[h160Digest])
	require.False(t, material.Empty())
	require.Equal(t, 0, material.NumSigs())
}
