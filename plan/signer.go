// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"fmt"

	"github.com/15IITian/bdk/sighash"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SecretSource resolves a plan key to the private key that can sign for it.
//
// Implementations report a missing key as ok=false with a nil error: not
// holding a key is an expected outcome when several cosigners share one
// descriptor, never a failure. Errors are reserved for held keys that cannot
// be used, such as a failed child derivation. Implementations must be safe
// for concurrent use.
type SecretSource interface {
	// ResolvePrivKey returns the signing key for the given plan key,
	// deriving it when the stored material is an extended root.
	ResolvePrivKey(key *PlanKey) (*btcec.PrivateKey, bool, error)
}

// SecretClosure implements SecretSource with a plain function.
type SecretClosure func(key *PlanKey) (*btcec.PrivateKey, bool, error)

// ResolvePrivKey invokes the closure.
func (f SecretClosure) ResolvePrivKey(key *PlanKey) (*btcec.PrivateKey, bool,
	error) {

	return f(key)
}

// SignParams bundles the per-input context of one signing call.
type SignParams struct {
	// InputIndex is the transaction input being signed.
	InputIndex int

	// Keys is the key store consulted for secret material.
	Keys SecretSource

	// Cache is the digest engine of the transaction being signed. It
	// carries the transaction and the outputs it spends, and is shared
	// between the inputs of the transaction.
	Cache *sighash.Cache

	// SchnorrSigHashType overrides the sighash mode of taproot
	// signatures. Unset means SigHashDefault.
	SchnorrSigHashType fn.Option[txscript.SigHashType]

	// ECDSASigHashType overrides the sighash mode of legacy and
	// witness-v0 signatures. Unset means SigHashAll.
	ECDSASigHashType fn.Option[txscript.SigHashType]
}

// schnorrSigHashType returns the sighash mode of taproot signatures.
func (p *SignParams) schnorrSigHashType() txscript.SigHashType {
	return p.SchnorrSigHashType.UnwrapOr(txscript.SigHashDefault)
}

// ecdsaSigHashType returns the sighash mode of ECDSA signatures.
func (p *SignParams) ecdsaSigHashType() txscript.SigHashType {
	return p.ECDSASigHashType.UnwrapOr(txscript.SigHashAll)
}

// Sign produces every signature the requirement asks for that the key store
// can serve, recording the results in material under each key's descriptor
// identity.
//
// The boolean result reports whether at least one new signature was
// recorded. Missing keys are skipped, never failed: a false result with a
// nil error means the store held none of the requirement's keys, and the
// caller is free to retry with another store or to satisfy an alternative
// script path instead.
//
// Errors mean the requirement cannot be satisfied as stated. Digest engine
// failures surface as *DigestError; key store failures propagate unchanged.
// Material is left untouched whenever an error is returned.
func Sign(reqs RequiredSignatures, p *SignParams,
	material *SatisfactionMaterial) (bool, error) {

	switch r := reqs.(type) {
	case TapKey:
		return signTapKey(r, p, material)

	case TapScript:
		return signTapScript(r, p, material)

	case SegwitV0:
		digest, err := p.Cache.WitnessV0Digest(
			p.InputIndex, r.WitnessScript, p.ecdsaSigHashType(),
		)
		if err != nil {
			return false, &DigestError{
				InputIndex: p.InputIndex,
				Err:        err,
			}
		}

		return signECDSA(r.Keys, digest, p, material)

	case Legacy:
		digest, err := p.Cache.LegacyDigest(
			p.InputIndex, r.RedeemScript, p.ecdsaSigHashType(),
		)
		if err != nil {
			return false, &DigestError{
				InputIndex: p.InputIndex,
				Err:        err,
			}
		}

		return signECDSA(r.Keys, digest, p, material)

	default:
		return false, fmt.Errorf("%w: %T", ErrUnknownRequirement, reqs)
	}
}

// signTapKey signs a taproot key-path spend. The resolved internal key is
// tweaked with the script tree commitment before signing, per BIP341.
func signTapKey(r TapKey, p *SignParams,
	material *SatisfactionMaterial) (bool, error) {

	hashType := p.schnorrSigHashType()
	digest, err := p.Cache.TapKeyDigest(p.InputIndex, hashType)
	if err != nil {
		return false, &DigestError{InputIndex: p.InputIndex, Err: err}
	}

	privKey, ok, err := p.Keys.ResolvePrivKey(&r.Key)
	if err != nil {
		return false, err
	}
	if !ok {
		log.Tracef("Input %d: no secret material for taproot "+
			"internal key %v", p.InputIndex, r.Key.LookupKey)
		return false, nil
	}

	// The output tweak commits the internal key to the script tree root,
	// or to the empty tree for outputs without script paths.
	merkleRoot := fn.MapOptionZ(
		r.MerkleRoot, func(root chainhash.Hash) []byte {
			return root[:]
		},
	)
	tweakedPrivKey := txscript.TweakTaprootPrivKey(*privKey, merkleRoot)
	defer tweakedPrivKey.Zero()

	sig, err := schnorr.Sign(tweakedPrivKey, digest)
	if err != nil {
		return false, fmt.Errorf("unable to sign input %d: %w",
			p.InputIndex, err)
	}

	material.SchnorrSigs[r.Key.DescriptorKey] = SchnorrSig{
		Sig:         sig,
		SigHashType: hashType,
	}

	log.Debugf("Input %d: produced taproot key-path signature for %v",
		p.InputIndex, r.Key.DescriptorKey)

	return true, nil
}

// signTapScript signs a taproot script-path spend of one leaf. Script-path
// signatures are made with the bare resolved keys: the taproot output tweak
// never applies inside a leaf script.
func signTapScript(r TapScript, p *SignParams,
	material *SatisfactionMaterial) (bool, error) {

	hashType := p.schnorrSigHashType()
	digest, err := p.Cache.TapScriptDigest(p.InputIndex, r.Leaf, hashType)
	if err != nil {
		return false, &DigestError{InputIndex: p.InputIndex, Err: err}
	}

	// Produced signatures are staged first so that a failing key later in
	// the list cannot leave a half-recorded requirement behind.
	staged := make(map[KeyID]SchnorrSig, len(r.Keys))
	for i := range r.Keys {
		planKey := &r.Keys[i]

		privKey, ok, err := p.Keys.ResolvePrivKey(planKey)
		if err != nil {
			return false, err
		}
		if !ok {
			log.Tracef("Input %d: no secret material for leaf "+
				"key %v", p.InputIndex, planKey.LookupKey)
			continue
		}

		sig, err := schnorr.Sign(privKey, digest)
		if err != nil {
			return false, fmt.Errorf("unable to sign input %d "+
				"with leaf key %v: %w", p.InputIndex,
				planKey.LookupKey, err)
		}

		staged[planKey.DescriptorKey] = SchnorrSig{
			Sig:         sig,
			SigHashType: hashType,
		}
	}

	for key, sig := range staged {
		material.SchnorrSigs[key] = sig
	}

	if len(staged) > 0 {
		log.Debugf("Input %d: produced %d tapscript %s for leaf %v",
			p.InputIndex, len(staged),
			pickNoun(len(staged), "signature", "signatures"),
			r.LeafHash())
	}

	return len(staged) > 0, nil
}

// signECDSA runs the shared key loop of the two pre-taproot schemes:
// resolve each key, sign the digest, record the result. No tweaking applies
// to these classes.
func signECDSA(keys []PlanKey, digest []byte, p *SignParams,
	material *SatisfactionMaterial) (bool, error) {

	hashType := p.ecdsaSigHashType()

	staged := make(map[KeyID]ECDSASig, len(keys))
	for i := range keys {
		planKey := &keys[i]

		privKey, ok, err := p.Keys.ResolvePrivKey(planKey)
		if err != nil {
			return false, err
		}
		if !ok {
			log.Tracef("Input %d: no secret material for key %v",
				p.InputIndex, planKey.LookupKey)
			continue
		}

		staged[planKey.DescriptorKey] = ECDSASig{
			Sig:         ecdsa.Sign(privKey, digest),
			SigHashType: hashType,
		}
	}

	for key, sig := range staged {
		material.EcdsaSigs[key] = sig
	}

	return len(staged) > 0, nil
}
