// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package keymap stores secret key material indexed by the public key it
// belongs to and resolves the keys named by spending plans to concrete
// private keys.
package keymap

import (
	"fmt"

	"github.com/15IITian/bdk/internal/zero"
	"github.com/15IITian/bdk/plan"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
)

// privKeyLen is the length of a serialized secp256k1 private key.
const privKeyLen = 32

// SecretKey is the secret material stored for one lookup key. The concrete
// forms are SingleKey, ExtendedKey and MultiPathKey.
type SecretKey interface {
	// Zero wipes the key material from memory.
	Zero()

	// secretKey keeps the set of key forms closed.
	secretKey()
}

// SingleKey holds a bare private key. It resolves as-is.
type SingleKey struct {
	PrivKey *btcec.PrivateKey
}

func (SingleKey) secretKey() {}

// Zero wipes the private key.
func (k SingleKey) Zero() {
	k.PrivKey.Zero()
}

// ExtendedKey holds a BIP32 private root. Resolution derives along the plan
// key's derivation path before extracting the private key.
type ExtendedKey struct {
	Root *hdkeychain.ExtendedKey
}

func (ExtendedKey) secretKey() {}

// Zero wipes the extended key.
func (k ExtendedKey) Zero() {
	k.Root.Zero()
}

// MultiPathKey holds a BIP32 private root that a descriptor references with
// several derivation paths at once. The entry is kept so a lookup can tell
// it apart from an unknown key, but it does not resolve to a private key.
type MultiPathKey struct {
	Root *hdkeychain.ExtendedKey

	// Paths are the derivation paths the descriptor names for this root.
	Paths [][]uint32
}

func (MultiPathKey) secretKey() {}

// Zero wipes the extended key.
func (k MultiPathKey) Zero() {
	k.Root.Zero()
}

// KeyMap maps lookup keys to the secret material backing them. It implements
// plan.SecretSource.
//
// The zero value is not usable, construct the map with New. A KeyMap is not
// safe for concurrent mutation, but resolution only reads it, so a fully
// populated map may serve several signing goroutines at once.
type KeyMap struct {
	entries map[plan.KeyID]SecretKey
}

// A compile time check to ensure that KeyMap implements the interface.
var _ plan.SecretSource = (*KeyMap)(nil)

// New returns an empty key map.
func New() *KeyMap {
	return &KeyMap{
		entries: make(map[plan.KeyID]SecretKey),
	}
}

// InsertPrivKey adds a bare private key, indexed under its compressed public
// key. The returned id is the lookup key a plan carries to find it.
func (m *KeyMap) InsertPrivKey(privKey *btcec.PrivateKey) plan.KeyID {
	id := plan.NewKeyID(privKey.PubKey())
	m.entries[id] = SingleKey{PrivKey: privKey}

	log.Tracef("Stored private key %v", id)

	return id
}

// InsertPrivKeyBytes adds a bare private key from its 32 byte serialization.
// The passed slice is zeroed before returning, so the map holds the only
// copy of the secret.
func (m *KeyMap) InsertPrivKeyBytes(secret []byte) (plan.KeyID, error) {
	if len(secret) != privKeyLen {
		return plan.KeyID{}, fmt.Errorf("invalid private key length "+
			"%d", len(secret))
	}

	privKey, _ := btcec.PrivKeyFromBytes(secret)
	zero.Bytes(secret)

	return m.InsertPrivKey(privKey), nil
}

// InsertSeed adds the BIP32 master key generated from the given seed. The
// seed is zeroed before returning, whether or not the master key could be
// generated from it.
func (m *KeyMap) InsertSeed(seed []byte,
	net *chaincfg.Params) (plan.KeyID, error) {

	root, err := hdkeychain.NewMaster(seed, net)
	zero.Bytes(seed)
	if err != nil {
		return plan.KeyID{}, err
	}

	return m.InsertExtendedKey(root)
}

// InsertExtendedKey adds a BIP32 private root, indexed under the compressed
// public key of the root itself. Plans carrying this lookup key have their
// derivation path applied at resolution time.
func (m *KeyMap) InsertExtendedKey(
	root *hdkeychain.ExtendedKey) (plan.KeyID, error) {

	if !root.IsPrivate() {
		return plan.KeyID{}, hdkeychain.ErrNotPrivExtKey
	}

	pubKey, err := root.ECPubKey()
	if err != nil {
		return plan.KeyID{}, err
	}

	id := plan.NewKeyID(pubKey)
	m.entries[id] = ExtendedKey{Root: root}

	log.Tracef("Stored extended key %v", id)

	return id, nil
}

// InsertMultiPathKey adds a BIP32 private root that is referenced with
// several derivation paths. The entry never resolves to a private key, it
// only makes the key's presence known to lookups.
func (m *KeyMap) InsertMultiPathKey(root *hdkeychain.ExtendedKey,
	paths [][]uint32) (plan.KeyID, error) {

	if !root.IsPrivate() {
		return plan.KeyID{}, hdkeychain.ErrNotPrivExtKey
	}

	pubKey, err := root.ECPubKey()
	if err != nil {
		return plan.KeyID{}, err
	}

	id := plan.NewKeyID(pubKey)
	m.entries[id] = MultiPathKey{Root: root, Paths: paths}

	log.Tracef("Stored multi-path extended key %v", id)

	return id, nil
}

// LookupSecret returns the secret material stored under the given id.
func (m *KeyMap) LookupSecret(id plan.KeyID) (SecretKey, bool) {
	secret, ok := m.entries[id]
	return secret, ok
}

// NumKeys returns the number of stored entries.
func (m *KeyMap) NumKeys() int {
	return len(m.entries)
}

// ResolvePrivKey returns the private key a plan key refers to. An unknown
// lookup key is not an error, the signer simply skips keys it has no
// material for.
//
// This method implements plan.SecretSource.
func (m *KeyMap) ResolvePrivKey(key *plan.PlanKey) (*btcec.PrivateKey, bool,
	error) {

	secret, ok := m.entries[key.LookupKey]
	if !ok {
		return nil, false, nil
	}

	switch s := secret.(type) {
	// A bare private key resolves as-is, the derivation path only
	// applies to extended keys.
	case SingleKey:
		return s.PrivKey, true, nil

	case ExtendedKey:
		privKey, err := derivePrivKey(s.Root, key.DerivationPath)
		if err != nil {
			return nil, false, &DerivationError{
				KeyID: key.LookupKey,
				Err:   err,
			}
		}

		log.Tracef("Derived private key for %v along a %d step path",
			key.LookupKey, len(key.DerivationPath))

		return privKey, true, nil

	case MultiPathKey:
		return nil, false, &UnsupportedKeyFormError{
			KeyID: key.LookupKey,
			Err:   ErrMultiPathKey,
		}

	default:
		return nil, false, &UnsupportedKeyFormError{
			KeyID: key.LookupKey,
			Err:   fmt.Errorf("unknown secret form %T", secret),
		}
	}
}

// Zero wipes every stored secret and empties the map.
func (m *KeyMap) Zero() {
	for id, secret := range m.entries {
		secret.Zero()
		delete(m.entries, id)
	}
}

// derivePrivKey walks the extended key along the path and extracts the
// private key at its end. Hardened steps carry the hardened bit in the
// child index itself.
func derivePrivKey(root *hdkeychain.ExtendedKey,
	path []uint32) (*btcec.PrivateKey, error) {

	currentKey := root
	for _, childIndex := range path {
		var err error
		currentKey, err = currentKey.Derive(childIndex)
		if err != nil {
			return nil, err
		}
	}

	return currentKey.ECPrivKey()
}
