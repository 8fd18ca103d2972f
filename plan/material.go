// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
)

// SchnorrSig is a produced BIP340 signature tagged with the sighash mode it
// commits to.
type SchnorrSig struct {
	// Sig is the 64-byte Schnorr signature.
	Sig *schnorr.Signature

	// SigHashType is the sighash mode the signature commits to.
	SigHashType txscript.SigHashType
}

// Serialize returns the witness form of the signature: the 64 signature
// bytes with the sighash type appended, unless it is the default mode which
// is encoded by omission.
func (s SchnorrSig) Serialize() []byte {
	sig := s.Sig.Serialize()
	if s.SigHashType == txscript.SigHashDefault {
		return sig
	}

	return append(sig, byte(s.SigHashType))
}

// ECDSASig is a produced ECDSA signature tagged with the sighash mode it
// commits to.
type ECDSASig struct {
	// Sig is the ECDSA signature.
	Sig *ecdsa.Signature

	// SigHashType is the sighash mode the signature commits to.
	SigHashType txscript.SigHashType
}

// Serialize returns the script form of the signature: the DER encoding with
// the sighash type appended.
func (s ECDSASig) Serialize() []byte {
	return append(s.Sig.Serialize(), byte(s.SigHashType))
}

// SatisfactionMaterial accumulates everything produced while satisfying the
// plans of one signing attempt: signatures keyed by the descriptor key they
// belong to and revealed hash preimages keyed by their images. Entries are
// only ever added or overwritten, never removed. Recording a second
// signature under the same descriptor key replaces the first.
type SatisfactionMaterial struct {
	// SchnorrSigs holds the produced taproot signatures.
	SchnorrSigs map[KeyID]SchnorrSig

	// EcdsaSigs holds the produced legacy and witness-v0 signatures.
	EcdsaSigs map[KeyID]ECDSASig

	// Sha256Preimages holds the revealed single-SHA256 preimages.
	Sha256Preimages map[Sha256Digest][]byte

	// Hash256Preimages holds the revealed double-SHA256 preimages.
	Hash256Preimages map[Hash256Digest][]byte

	// Ripemd160Preimages holds the revealed RIPEMD160 preimages.
	Ripemd160Preimages map[Ripemd160Digest][]byte

	// Hash160Preimages holds the revealed RIPEMD160(SHA256) preimages.
	Hash160Preimages map[Hash160Digest][]byte
}

// NewSatisfactionMaterial returns an empty accumulator.
func NewSatisfactionMaterial() *SatisfactionMaterial {
	return &SatisfactionMaterial{
		SchnorrSigs:        make(map[KeyID]SchnorrSig),
		EcdsaSigs:          make(map[KeyID]ECDSASig),
		Sha256Preimages:    make(map[Sha256Digest][]byte),
		Hash256Preimages:   make(map[Hash256Digest][]byte),
		Ripemd160Preimages: make(map[Ripemd160Digest][]byte),
		Hash160Preimages:   make(map[Hash160Digest][]byte),
	}
}

// NumSigs returns the number of signatures recorded so far.
func (m *SatisfactionMaterial) NumSigs() int {
	return len(m.SchnorrSigs) + len(m.EcdsaSigs)
}

// Empty reports whether no signatures or preimages have been recorded yet.
func (m *SatisfactionMaterial) Empty() bool {
	return m.NumSigs() == 0 && len(m.Sha256Preimages) == 0 &&
		len(m.Hash256Preimages) == 0 &&
		len(m.Ripemd160Preimages) == 0 && len(m.Hash160Preimages) == 0
}

// Merge copies every entry of other into m. Entries of other win on
// collision, matching the overwrite semantics of recording.
func (m *SatisfactionMaterial) Merge(other *SatisfactionMaterial) {
	for key, sig := range other.SchnorrSigs {
		m.SchnorrSigs[key] = sig
	}
	for key, sig := range other.EcdsaSigs {
		m.EcdsaSigs[key] = sig
	}
	for digest, preimage := range other.Sha256Preimages {
		m.Sha256Preimages[digest] = preimage
	}
	for digest, preimage := range other.Hash256Preimages {
		m.Hash256Preimages[digest] = preimage
	}
	for digest, preimage := range other.Ripemd160Preimages {
		m.Ripemd160Preimages[digest] = preimage
	}
	for digest, preimage := range other.Hash160Preimages {
		m.Hash160Preimages[digest] = preimage
	}
}
