// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"golang.org/x/crypto/ripemd160"
)

// PreimageSource looks up the preimages of hash locks. Like key lookups, a
// missing preimage is a value, not an error: the holder of the preimage may
// simply be another party.
type PreimageSource interface {
	// Sha256Preimage returns the preimage of a single-SHA256 image.
	Sha256Preimage(digest Sha256Digest) ([]byte, bool)

	// Hash256Preimage returns the preimage of a double-SHA256 image.
	Hash256Preimage(digest Hash256Digest) ([]byte, bool)

	// Ripemd160Preimage returns the preimage of a RIPEMD160 image.
	Ripemd160Preimage(digest Ripemd160Digest) ([]byte, bool)

	// Hash160Preimage returns the preimage of a RIPEMD160(SHA256) image.
	Hash160Preimage(digest Hash160Digest) ([]byte, bool)
}

// PreimageClosures implements PreimageSource with plain functions. A nil
// function reports every image of its algorithm as missing.
type PreimageClosures struct {
	Sha256Fn    func(Sha256Digest) ([]byte, bool)
	Hash256Fn   func(Hash256Digest) ([]byte, bool)
	Ripemd160Fn func(Ripemd160Digest) ([]byte, bool)
	Hash160Fn   func(Hash160Digest) ([]byte, bool)
}

// Sha256Preimage invokes the sha256 closure.
func (c PreimageClosures) Sha256Preimage(
	digest Sha256Digest) ([]byte, bool) {

	if c.Sha256Fn == nil {
		return nil, false
	}

	return c.Sha256Fn(digest)
}

// Hash256Preimage invokes the hash256 closure.
func (c PreimageClosures) Hash256Preimage(
	digest Hash256Digest) ([]byte, bool) {

	if c.Hash256Fn == nil {
		return nil, false
	}

	return c.Hash256Fn(digest)
}

// Ripemd160Preimage invokes the ripemd160 closure.
func (c PreimageClosures) Ripemd160Preimage(
	digest Ripemd160Digest) ([]byte, bool) {

	if c.Ripemd160Fn == nil {
		return nil, false
	}

	return c.Ripemd160Fn(digest)
}

// Hash160Preimage invokes the hash160 closure.
func (c PreimageClosures) Hash160Preimage(
	digest Hash160Digest) ([]byte, bool) {

	if c.Hash160Fn == nil {
		return nil, false
	}

	return c.Hash160Fn(digest)
}

// A compile time check to ensure that PreimageClosures implements the
// interface.
var _ PreimageSource = PreimageClosures{}

// PreimageStore is an in-memory PreimageSource. Every added preimage is
// indexed under all four hash algorithms, so one secret satisfies whichever
// form the descriptor committed to.
type PreimageStore struct {
	sha256Images    map[Sha256Digest][]byte
	hash256Images   map[Hash256Digest][]byte
	ripemd160Images map[Ripemd160Digest][]byte
	hash160Images   map[Hash160Digest][]byte
}

// A compile time check to ensure that PreimageStore implements the
// interface.
var _ PreimageSource = (*PreimageStore)(nil)

// NewPreimageStore returns an empty preimage store.
func NewPreimageStore() *PreimageStore {
	return &PreimageStore{
		sha256Images:    make(map[Sha256Digest][]byte),
		hash256Images:   make(map[Hash256Digest][]byte),
		ripemd160Images: make(map[Ripemd160Digest][]byte),
		hash160Images:   make(map[Hash160Digest][]byte),
	}
}

// AddPreimage indexes a copy of the given preimage by its image under every
// supported hash algorithm and returns its single-SHA256 image.
func (s *PreimageStore) AddPreimage(preimage []byte) Sha256Digest {
	img := append([]byte(nil), preimage...)

	shaDigest := Sha256Digest(sha256.Sum256(img))
	s.sha256Images[shaDigest] = img

	s.hash256Images[Hash256Digest(chainhash.DoubleHashH(img))] = img

	hasher := ripemd160.New()
	hasher.Write(img)
	var ripemdDigest Ripemd160Digest
	copy(ripemdDigest[:], hasher.Sum(nil))
	s.ripemd160Images[ripemdDigest] = img

	var h160Digest Hash160Digest
	copy(h160Digest[:], btcutil.Hash160(img))
	s.hash160Images[h160Digest] = img

	return shaDigest
}

// Sha256Preimage returns the preimage of a single-SHA256 image.
func (s *PreimageStore) Sha256Preimage(digest Sha256Digest) ([]byte, bool) {
	preimage, ok := s.sha256Images[digest]
	return preimage, ok
}

// Hash256Preimage returns the preimage of a double-SHA256 image.
func (s *PreimageStore) Hash256Preimage(digest Hash256Digest) ([]byte, bool) {
	preimage, ok := s.hash256Images[digest]
	return preimage, ok
}

// Ripemd160Preimage returns the preimage of a RIPEMD160 image.
func (s *PreimageStore) Ripemd160Preimage(
	digest Ripemd160Digest) ([]byte, bool) {

	preimage, ok := s.ripemd160Images[digest]
	return preimage, ok
}

// Hash160Preimage returns the preimage of a RIPEMD160(SHA256) image.
func (s *PreimageStore) Hash160Preimage(digest Hash160Digest) ([]byte, bool) {
	preimage, ok := s.hash160Images[digest]
	return preimage, ok
}

// SatisfyPreimages copies every required preimage the source can serve into
// material, recording each under the image that demanded it. It reports
// whether all requirements were met. Missing preimages behave like missing
// keys during signing: the result turns false but no error is raised.
func SatisfyPreimages(reqs *Requirements, source PreimageSource,
	material *SatisfactionMaterial) bool {

	complete := true

	for _, digest := range reqs.Sha256Images.ToSlice() {
		preimage, ok := source.Sha256Preimage(digest)
		if !ok {
			complete = false
			continue
		}
		material.Sha256Preimages[digest] = preimage
	}

	for _, digest := range reqs.Hash256Images.ToSlice() {
		preimage, ok := source.Hash256Preimage(digest)
		if !ok {
			complete = false
			continue
		}
		material.Hash256Preimages[digest] = preimage
	}

	for _, digest := range reqs.Ripemd160Images.ToSlice() {
		preimage, ok := source.Ripemd160Preimage(digest)
		if !ok {
			complete = false
			continue
		}
		material.Ripemd160Preimages[digest] = preimage
	}

	for _, digest := range reqs.Hash160Images.ToSlice() {
		preimage, ok := source.Hash160Preimage(digest)
		if !ok {
			complete = false
			continue
		}
		material.Hash160Preimages[digest] = preimage
	}

	return complete
}
