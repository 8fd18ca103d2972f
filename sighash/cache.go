// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package sighash computes the transaction digests that signatures commit
// to. A Cache wraps one unsigned transaction together with the outputs it
// spends and serves the digest of every script class, reusing the hash
// midstates that are shared between the inputs of the transaction.
package sighash

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// MissingPrevOutError is returned when a digest needs a previous output the
// cache's fetcher does not know. Taproot digests commit to every output
// spent by the transaction, witness-v0 digests to the value of their own.
type MissingPrevOutError struct {
	// OutPoint identifies the unknown previous output.
	OutPoint wire.OutPoint
}

// Error implements the error interface.
func (e *MissingPrevOutError) Error() string {
	return fmt.Sprintf("no previous output known for %v", e.OutPoint)
}

// Cache computes and caches signature digests for one transaction.
//
// The wrapped transaction and previous output fetcher must not be mutated
// while the cache is in use. Under that condition the digest methods are
// safe for concurrent use: the shared midstates are populated exactly once,
// and Prewarm forces that population up front so that parallel signers only
// ever read the cache.
type Cache struct {
	tx       *wire.MsgTx
	prevOuts txscript.PrevOutputFetcher

	once   sync.Once
	hashes *txscript.TxSigHashes
}

// NewCache returns a digest cache for the given transaction spending the
// outputs known to prevOuts.
func NewCache(tx *wire.MsgTx, prevOuts txscript.PrevOutputFetcher) *Cache {
	return &Cache{
		tx:       tx,
		prevOuts: prevOuts,
	}
}

// Tx returns the transaction the cache computes digests for.
func (c *Cache) Tx() *wire.MsgTx {
	return c.tx
}

// FetchPrevOut returns the spent output of the given outpoint, or nil when
// it is unknown.
func (c *Cache) FetchPrevOut(op wire.OutPoint) *wire.TxOut {
	return c.prevOuts.FetchPrevOutput(op)
}

// SigHashes returns the shared hash midstates of the transaction, for
// example to hand to a script engine when verifying produced witnesses. The
// taproot midstates are only meaningful when the fetcher knows every output
// the transaction spends.
func (c *Cache) SigHashes() *txscript.TxSigHashes {
	return c.midstates()
}

// Prewarm populates the transaction-wide hash midstates. Calling it before
// fanning signing work out across goroutines leaves only read operations on
// the shared cache.
func (c *Cache) Prewarm() {
	c.midstates()
}

// midstates returns the hash midstates shared by all inputs, computing them
// on first use. Unknown previous outputs are padded so that the midstates
// of a partially known transaction can still be computed; the digest
// methods verify the outputs their class actually commits to.
func (c *Cache) midstates() *txscript.TxSigHashes {
	c.once.Do(func() {
		c.hashes = txscript.NewTxSigHashes(
			c.tx, &paddedPrevOutFetcher{fetcher: c.prevOuts},
		)
	})

	return c.hashes
}

// paddedPrevOutFetcher substitutes an empty output for every outpoint the
// wrapped fetcher does not know. The midstate computation dereferences all
// outputs it fetches, but only the taproot midstates commit to the fetched
// contents, and the taproot digest methods check the real fetcher against
// every spent output before reading those.
type paddedPrevOutFetcher struct {
	fetcher txscript.PrevOutputFetcher
}

// A compile-time assertion to ensure that paddedPrevOutFetcher matches the
// PrevOutputFetcher interface.
var _ txscript.PrevOutputFetcher = (*paddedPrevOutFetcher)(nil)

// FetchPrevOutput returns the previous output of the given outpoint, or an
// empty placeholder output when it is unknown.
func (f *paddedPrevOutFetcher) FetchPrevOutput(op wire.OutPoint) *wire.TxOut {
	if prevOut := f.fetcher.FetchPrevOutput(op); prevOut != nil {
		return prevOut
	}

	return &wire.TxOut{}
}

// TapKeyDigest returns the BIP341 key-path spend digest of the given input.
func (c *Cache) TapKeyDigest(idx int,
	hashType txscript.SigHashType) ([]byte, error) {

	if err := c.checkInputIndex(idx); err != nil {
		return nil, err
	}
	if err := c.checkAllPrevOuts(); err != nil {
		return nil, err
	}

	return txscript.CalcTaprootSignatureHash(
		c.midstates(), hashType, c.tx, idx, c.prevOuts,
	)
}

// TapScriptDigest returns the BIP342 script-path spend digest of the given
// input for one specific leaf.
func (c *Cache) TapScriptDigest(idx int, leaf txscript.TapLeaf,
	hashType txscript.SigHashType) ([]byte, error) {

	if err := c.checkInputIndex(idx); err != nil {
		return nil, err
	}
	if err := c.checkAllPrevOuts(); err != nil {
		return nil, err
	}

	return txscript.CalcTapscriptSignaturehash(
		c.midstates(), hashType, c.tx, idx, c.prevOuts, leaf,
	)
}

// WitnessV0Digest returns the BIP143 digest of the given input over the
// passed script code. The value being spent is read from the input's
// previous output.
func (c *Cache) WitnessV0Digest(idx int, scriptCode []byte,
	hashType txscript.SigHashType) ([]byte, error) {

	if err := c.checkInputIndex(idx); err != nil {
		return nil, err
	}

	op := c.tx.TxIn[idx].PreviousOutPoint
	prevOut := c.prevOuts.FetchPrevOutput(op)
	if prevOut == nil {
		return nil, &MissingPrevOutError{OutPoint: op}
	}

	return txscript.CalcWitnessSigHash(
		scriptCode, c.midstates(), hashType, c.tx, idx, prevOut.Value,
	)
}

// LegacyDigest returns the pre-segwit digest of the given input over the
// passed script code. Legacy digests commit to no previous output data, so
// the cache's fetcher is not consulted.
func (c *Cache) LegacyDigest(idx int, scriptCode []byte,
	hashType txscript.SigHashType) ([]byte, error) {

	if err := c.checkInputIndex(idx); err != nil {
		return nil, err
	}

	return txscript.CalcSignatureHash(scriptCode, hashType, c.tx, idx)
}

// checkInputIndex ensures the given index addresses an input of the wrapped
// transaction.
func (c *Cache) checkInputIndex(idx int) error {
	if idx < 0 || idx >= len(c.tx.TxIn) {
		return fmt.Errorf("input index %d out of range for "+
			"transaction with %d inputs", idx, len(c.tx.TxIn))
	}

	return nil
}

// checkAllPrevOuts ensures the fetcher knows every output the transaction
// spends, which the taproot digest classes commit to.
func (c *Cache) checkAllPrevOuts() error {
	for i := range c.tx.TxIn {
		op := c.tx.TxIn[i].PreviousOutPoint
		if c.prevOuts.FetchPrevOutput(op) == nil {
			return &MissingPrevOutError{OutPoint: op}
		}
	}

	return nil
}
