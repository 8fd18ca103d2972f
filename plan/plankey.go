// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// KeyIDSize is the serialized size of a KeyID. It matches the length of a
// compressed secp256k1 public key.
const KeyIDSize = btcec.PubKeyBytesLenCompressed

// KeyID is the stable identity of a descriptor key, encoded as a compressed
// public key. Depending on where it appears in a PlanKey it either names the
// slot a produced signature is recorded under or addresses secret material in
// a key store.
type KeyID [KeyIDSize]byte

// NewKeyID returns the identity of the given public key.
func NewKeyID(pubKey *btcec.PublicKey) KeyID {
	var id KeyID
	copy(id[:], pubKey.SerializeCompressed())
	return id
}

// NewKeyIDFromBytes converts a serialized compressed public key into a KeyID.
func NewKeyIDFromBytes(b []byte) (KeyID, error) {
	var id KeyID
	if len(b) != KeyIDSize {
		return id, fmt.Errorf("invalid key id length %d, want %d",
			len(b), KeyIDSize)
	}
	copy(id[:], b)

	return id, nil
}

// PubKey parses the identity back into a public key.
func (k KeyID) PubKey() (*btcec.PublicKey, error) {
	return btcec.ParsePubKey(k[:])
}

// String returns the hex encoding of the identity.
func (k KeyID) String() string {
	return hex.EncodeToString(k[:])
}

// PlanKey describes one key a spending plan wants a signature from. It is
// immutable once constructed and carries no secret material.
type PlanKey struct {
	// DescriptorKey is the identity a produced signature is recorded
	// under in the satisfaction material. It is never used to look up
	// secret material.
	DescriptorKey KeyID

	// LookupKey is the identity used to find secret material in the key
	// store. It is kept separate from DescriptorKey because one
	// descriptor key can have several equivalent lookup forms, most
	// commonly the un-derived extended root it descends from.
	LookupKey KeyID

	// DerivationPath is the relative child path to apply when the stored
	// material is an extended root, empty for non-hierarchical keys.
	// Indexes at or above 2^31 address hardened children.
	DerivationPath []uint32
}
