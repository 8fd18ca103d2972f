// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package plan signs the spending plans compiled from output descriptors. A
// plan names the keys and hash preimages the chosen spend path of an output
// needs. The signer gathers the satisfaction material those requirements
// call for and leaves witness assembly to the caller.
package plan

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/crypto/ripemd160"
)

// Sha256Digest is the image of a single-SHA256 hash lock.
type Sha256Digest [sha256.Size]byte

// Hash256Digest is the image of a double-SHA256 hash lock.
type Hash256Digest [chainhash.HashSize]byte

// Ripemd160Digest is the image of a RIPEMD160 hash lock.
type Ripemd160Digest [ripemd160.Size]byte

// Hash160Digest is the image of a RIPEMD160(SHA256) hash lock.
type Hash160Digest [ripemd160.Size]byte

// RequiredSignatures describes the signatures needed to spend one output, as
// compiled from its descriptor. The concrete type selects the signing scheme
// of the output's script class. Exactly one scheme applies to a requirement
// and it is fixed at construction.
type RequiredSignatures interface {
	// requiredSigs seals the set of signing schemes known to the signer.
	requiredSigs()
}

// Legacy requires pre-segwit ECDSA signatures, covering P2PK, P2PKH and
// P2SH redeem scripts.
type Legacy struct {
	// Keys are the keys signatures are wanted from, in descriptor order.
	// Multisig scripts list more than one.
	Keys []PlanKey

	// RedeemScript is the script code the legacy digest commits to: the
	// previous output script, or the redeem script when spending P2SH.
	RedeemScript []byte
}

// SegwitV0 requires BIP143 witness-v0 ECDSA signatures, covering P2WPKH and
// P2WSH outputs.
type SegwitV0 struct {
	// Keys are the keys signatures are wanted from, in descriptor order.
	Keys []PlanKey

	// WitnessScript is the script code of the BIP143 digest: the witness
	// script for P2WSH, or the implied pay-to-pubkey-hash script for
	// P2WPKH.
	WitnessScript []byte
}

// TapKey requires a single Schnorr signature for a taproot key-path spend.
type TapKey struct {
	// Key is the internal key of the output.
	Key PlanKey

	// MerkleRoot is the root of the output's script tree, committed to by
	// the taproot output tweak. It is None for outputs without script
	// paths, which commit to the empty tree instead.
	MerkleRoot fn.Option[chainhash.Hash]
}

// TapScript requires Schnorr signatures for a taproot script-path spend of
// one specific leaf.
type TapScript struct {
	// Leaf is the script leaf being spent. Its script and version pin
	// the digest the signatures commit to.
	Leaf txscript.TapLeaf

	// Keys are the keys the leaf script wants signatures from, in
	// descriptor order.
	Keys []PlanKey
}

func (Legacy) requiredSigs()    {}
func (SegwitV0) requiredSigs()  {}
func (TapKey) requiredSigs()    {}
func (TapScript) requiredSigs() {}

// LeafHash returns the tapscript leaf hash committing to the leaf's script
// and version.
func (t TapScript) LeafHash() chainhash.Hash {
	return t.Leaf.TapHash()
}

// Requirements collects everything a spending plan demands for one output:
// the signatures of its script class plus any hash preimages its script
// commits to.
type Requirements struct {
	// Signatures is the signature requirement of the output, nil when the
	// output can be spent without signatures.
	Signatures RequiredSignatures

	// Sha256Images holds the required single-SHA256 hash lock images.
	Sha256Images fn.Set[Sha256Digest]

	// Hash256Images holds the required double-SHA256 hash lock images.
	Hash256Images fn.Set[Hash256Digest]

	// Ripemd160Images holds the required RIPEMD160 hash lock images.
	Ripemd160Images fn.Set[Ripemd160Digest]

	// Hash160Images holds the required RIPEMD160(SHA256) hash lock
	// images.
	Hash160Images fn.Set[Hash160Digest]
}

// NewRequirements returns an empty requirement set around the given
// signature requirement.
func NewRequirements(sigs RequiredSignatures) *Requirements {
	return &Requirements{
		Signatures:      sigs,
		Sha256Images:    fn.NewSet[Sha256Digest](),
		Hash256Images:   fn.NewSet[Hash256Digest](),
		Ripemd160Images: fn.NewSet[Ripemd160Digest](),
		Hash160Images:   fn.NewSet[Hash160Digest](),
	}
}

// RequiresHashPreimages reports whether satisfying the plan needs at least
// one hash preimage on top of its signatures.
func (r *Requirements) RequiresHashPreimages() bool {
	return len(r.Sha256Images) > 0 || len(r.Hash256Images) > 0 ||
		len(r.Ripemd160Images) > 0 || len(r.Hash160Images) > 0
}
