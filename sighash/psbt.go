// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sighash

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
)

// PrevOutFetcherFromPsbt returns a previous output fetcher backed by the
// UTXO information carried in the given packet. Inputs that carry neither
// UTXO form, or that have no packet input section at all, are skipped;
// digests needing them fail with a MissingPrevOutError when requested.
func PrevOutFetcherFromPsbt(packet *psbt.Packet) *txscript.MultiPrevOutFetcher {
	fetcher := txscript.NewMultiPrevOutFetcher(nil)
	for idx, txIn := range packet.UnsignedTx.TxIn {
		// A hand-built packet can carry fewer input sections than the
		// unsigned transaction has inputs.
		if idx >= len(packet.Inputs) {
			break
		}
		in := packet.Inputs[idx]

		switch {
		// If the non-witness UTXO (the full previous transaction) is
		// present, the spent output is looked up in it.
		case in.NonWitnessUtxo != nil:
			prevIndex := txIn.PreviousOutPoint.Index
			if prevIndex >= uint32(len(in.NonWitnessUtxo.TxOut)) {
				continue
			}
			fetcher.AddPrevOut(
				txIn.PreviousOutPoint,
				in.NonWitnessUtxo.TxOut[prevIndex],
			)

		// With a witness UTXO the spent output is available directly.
		case in.WitnessUtxo != nil:
			fetcher.AddPrevOut(
				txIn.PreviousOutPoint, in.WitnessUtxo,
			)
		}
	}

	return fetcher
}

// NewCacheFromPsbt returns a digest cache for the packet's unsigned
// transaction, spending the outputs declared by its inputs.
func NewCacheFromPsbt(packet *psbt.Packet) *Cache {
	return NewCache(packet.UnsignedTx, PrevOutFetcherFromPsbt(packet))
}
