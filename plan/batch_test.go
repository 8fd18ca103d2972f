// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan_test

import (
	"context"
	"testing"

	"github.com/15IITian/bdk/keymap"
	"github.com/15IITian/bdk/plan"
	"github.com/15IITian/bdk/sighash"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// createTwoInputTestTx creates a transaction spending the two given outputs
// and a digest cache that knows both of them.
func createTwoInputTestTx(prevOut0, prevOut1 *wire.TxOut) (*wire.MsgTx,
	*sighash.Cache) {

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 1}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(150000, nil))

	fetcher := txscript.NewMultiPrevOutFetcher(
		map[wire.OutPoint]*wire.TxOut{
			{Index: 0}: prevOut0,
			{Index: 1}: prevOut1,
		},
	)

	return tx, sighash.NewCache(tx, fetcher)
}

// TestSignAllMixedInputs checks that a batch over inputs of different script
// classes yields per-input material that satisfies each spent output.
func TestSignAllMixedInputs(t *testing.T) {
	t.Parallel()

	// Arrange: one key spending a P2TR output on input 0 and a P2WPKH
	// output on input 1.
	privKey, pubKey := deterministicPrivKey(t)

	outputKey := txscript.ComputeTaprootOutputKey(pubKey, nil)
	trScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())
	wpkhScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(pubKeyHash).
		Script()
	require.NoError(t, err)

	scriptCode, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	prevOut0 := wire.NewTxOut(100000, trScript)
	prevOut1 := wire.NewTxOut(100000, wpkhScript)
	tx, cache := createTwoInputTestTx(prevOut0, prevOut1)

	keys := keymap.New()
	privKeyCopy, _ := btcec.PrivKeyFromBytes(privKey.Serialize())
	id := keys.InsertPrivKey(privKeyCopy)

	inputs := map[int]plan.InputSigner{
		0: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
		1: {Reqs: plan.SegwitV0{
			Keys:          []plan.PlanKey{planKeyFor(id)},
			WitnessScript: scriptCode,
		}},
	}

	// Act.
	materials, err := plan.SignAll(
		context.Background(), cache, keys, inputs,
	)

	// Assert: both inputs got their signature and both witnesses pass the
	// script engine.
	require.NoError(t, err)
	require.Len(t, materials, 2)

	schnorrSig, ok := materials[0].SchnorrSigs[id]
	require.True(t, ok)
	require.Empty(t, materials[0].EcdsaSigs)

	ecdsaSig, ok := materials[1].EcdsaSigs[id]
	require.True(t, ok)
	require.Empty(t, materials[1].SchnorrSigs)

	tx.TxIn[0].Witness = wire.TxWitness{schnorrSig.Serialize()}
	tx.TxIn[1].Witness = wire.TxWitness{
		ecdsaSig.Serialize(), pubKey.SerializeCompressed(),
	}

	verifyInput(t, cache, prevOut0, 0)
	verifyInput(t, cache, prevOut1, 1)
}

// TestSignAllDistinctDigestsPerInput checks that one key signing two inputs
// produces two different signatures, which is why the batch result is keyed
// by input index.
func TestSignAllDistinctDigestsPerInput(t *testing.T) {
	t.Parallel()

	privKey, pubKey := deterministicPrivKey(t)

	outputKey := txscript.ComputeTaprootOutputKey(pubKey, nil)
	trScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	prevOut0 := wire.NewTxOut(100000, trScript)
	prevOut1 := wire.NewTxOut(200000, trScript)
	tx, cache := createTwoInputTestTx(prevOut0, prevOut1)

	keys := keymap.New()
	privKeyCopy, _ := btcec.PrivKeyFromBytes(privKey.Serialize())
	id := keys.InsertPrivKey(privKeyCopy)

	inputs := map[int]plan.InputSigner{
		0: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
		1: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
	}

	materials, err := plan.SignAll(
		context.Background(), cache, keys, inputs,
	)
	require.NoError(t, err)
	require.Len(t, materials, 2)

	sig0 := materials[0].SchnorrSigs[id]
	sig1 := materials[1].SchnorrSigs[id]
	require.NotEqual(t, sig0.Serialize(), sig1.Serialize())

	tx.TxIn[0].Witness = wire.TxWitness{sig0.Serialize()}
	tx.TxIn[1].Witness = wire.TxWitness{sig1.Serialize()}

	verifyInput(t, cache, prevOut0, 0)
	verifyInput(t, cache, prevOut1, 1)
}

// TestSignAllUnknownKeys checks that inputs whose keys the store does not
// hold still yield an entry, just an empty one.
func TestSignAllUnknownKeys(t *testing.T) {
	t.Parallel()

	_, pubKey := deterministicPrivKey(t)

	outputKey := txscript.ComputeTaprootOutputKey(pubKey, nil)
	trScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	prevOut0 := wire.NewTxOut(100000, trScript)
	prevOut1 := wire.NewTxOut(200000, trScript)
	_, cache := createTwoInputTestTx(prevOut0, prevOut1)

	id := plan.NewKeyID(pubKey)
	inputs := map[int]plan.InputSigner{
		0: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
		1: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
	}

	materials, err := plan.SignAll(
		context.Background(), cache, keymap.New(), inputs,
	)
	require.NoError(t, err)
	require.Len(t, materials, 2)
	require.True(t, materials[0].Empty())
	require.True(t, materials[1].Empty())
}

// TestSignAllFailingInput checks that one failing input fails the whole
// batch with its index attached.
func TestSignAllFailingInput(t *testing.T) {
	t.Parallel()

	privKey, pubKey := deterministicPrivKey(t)

	outputKey := txscript.ComputeTaprootOutputKey(pubKey, nil)
	trScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	prevOut0 := wire.NewTxOut(100000, trScript)
	prevOut1 := wire.NewTxOut(200000, trScript)
	_, cache := createTwoInputTestTx(prevOut0, prevOut1)

	keys := keymap.New()
	privKeyCopy, _ := btcec.PrivKeyFromBytes(privKey.Serialize())
	id := keys.InsertPrivKey(privKeyCopy)

	// Input 7 does not exist on the two input transaction.
	inputs := map[int]plan.InputSigner{
		0: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
		7: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
	}

	materials, err := plan.SignAll(
		context.Background(), cache, keys, inputs,
	)
	require.ErrorContains(t, err, "input 7")

	var digestErr *plan.DigestError
	require.ErrorAs(t, err, &digestErr)
	require.Equal(t, 7, digestErr.InputIndex)
	require.Nil(t, materials)
}

// TestSignAllPsbtMissingUtxo checks that a packet input carrying no UTXO
// information fails its own signing work with a digest error while the batch
// machinery and the other inputs keep working.
func TestSignAllPsbtMissingUtxo(t *testing.T) {
	t.Parallel()

	privKey, pubKey := deterministicPrivKey(t)

	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())
	wpkhScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_0).
		AddData(pubKeyHash).
		Script()
	require.NoError(t, err)

	scriptCode, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	require.NoError(t, err)

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 1}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(150000, nil))

	// The second input carries neither UTXO form.
	witnessOut := wire.NewTxOut(100000, wpkhScript)
	packet := &psbt.Packet{
		UnsignedTx: tx,
		Inputs:     []psbt.PInput{{WitnessUtxo: witnessOut}, {}},
	}
	cache := sighash.NewCacheFromPsbt(packet)

	keys := keymap.New()
	privKeyCopy, _ := btcec.PrivKeyFromBytes(privKey.Serialize())
	id := keys.InsertPrivKey(privKeyCopy)

	// A batch without any signing work populates the midstates and comes
	// back empty.
	materials, err := plan.SignAll(
		context.Background(), cache, keys, map[int]plan.InputSigner{},
	)
	require.NoError(t, err)
	require.Empty(t, materials)

	v0Reqs := plan.SegwitV0{
		Keys:          []plan.PlanKey{planKeyFor(id)},
		WitnessScript: scriptCode,
	}

	// The first input's digest commits only to its own spent output, so
	// its signing work succeeds.
	materials, err = plan.SignAll(
		context.Background(), cache, keys, map[int]plan.InputSigner{
			0: {Reqs: v0Reqs},
		},
	)
	require.NoError(t, err)
	require.Len(t, materials, 1)

	ecdsaSig, ok := materials[0].EcdsaSigs[id]
	require.True(t, ok)

	tx.TxIn[0].Witness = wire.TxWitness{
		ecdsaSig.Serialize(), pubKey.SerializeCompressed(),
	}
	verifyInput(t, cache, witnessOut, 0)

	// The second input's work fails with the missing output attached.
	materials, err = plan.SignAll(
		context.Background(), cache, keys, map[int]plan.InputSigner{
			0: {Reqs: v0Reqs},
			1: {Reqs: v0Reqs},
		},
	)
	require.ErrorContains(t, err, "input 1")

	var digestErr *plan.DigestError
	require.ErrorAs(t, err, &digestErr)
	require.Equal(t, 1, digestErr.InputIndex)

	var missingErr *sighash.MissingPrevOutError
	require.ErrorAs(t, err, &missingErr)
	require.Equal(t, tx.TxIn[1].PreviousOutPoint, missingErr.OutPoint)
	require.Nil(t, materials)
}

// TestSignAllCanceledContext checks that an already canceled context stops
// the batch before any signing work.
func TestSignAllCanceledContext(t *testing.T) {
	t.Parallel()

	privKey, pubKey := deterministicPrivKey(t)

	outputKey := txscript.ComputeTaprootOutputKey(pubKey, nil)
	trScript, err := txscript.PayToTaprootScript(outputKey)
	require.NoError(t, err)

	prevOut0 := wire.NewTxOut(100000, trScript)
	prevOut1 := wire.NewTxOut(200000, trScript)
	_, cache := createTwoInputTestTx(prevOut0, prevOut1)

	keys := keymap.New()
	privKeyCopy, _ := btcec.PrivKeyFromBytes(privKey.Serialize())
	id := keys.InsertPrivKey(privKeyCopy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	materials, err := plan.SignAll(
		ctx, cache, keys, map[int]plan.InputSigner{
			0: {Reqs: plan.TapKey{Key: planKeyFor(id)}},
		},
	)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, materials)
}
