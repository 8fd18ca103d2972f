// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/15IITian/bdk/sighash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/davecgh/go-spew/spew"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// InputSigner describes the signing work for one input of a transaction: the
// spend path's requirement and the sighash modes its signatures commit to.
type InputSigner struct {
	// Reqs is the signing requirement of the input's chosen spend path.
	Reqs RequiredSignatures

	// SchnorrSigHashType overrides the sighash type of Schnorr signatures
	// produced for this input. SigHashDefault when unset.
	SchnorrSigHashType fn.Option[txscript.SigHashType]

	// ECDSASigHashType overrides the sighash type of ECDSA signatures
	// produced for this input. SigHashAll when unset.
	ECDSASigHashType fn.Option[txscript.SigHashType]
}

// SignAll runs the signing dispatch for every listed input of the cache's
// transaction concurrently and returns the satisfaction material gathered
// per input index. An input whose keys are all unknown to the secret source
// still succeeds and yields empty material.
//
// The materials stay separate per input because the same key produces a
// different signature for each input's digest. The first input that fails
// cancels the remaining work and its error, wrapped with the input index, is
// returned.
func SignAll(ctx context.Context, cache *sighash.Cache, keys SecretSource,
	inputs map[int]InputSigner) (map[int]*SatisfactionMaterial, error) {

	// Populate the transaction-wide midstates before fanning out so the
	// goroutines below only ever read the shared cache.
	cache.Prewarm()

	var (
		mtx       sync.Mutex
		materials = make(map[int]*SatisfactionMaterial, len(inputs))
	)

	eg, egCtx := errgroup.WithContext(ctx)
	for idx, signer := range inputs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}

			material := NewSatisfactionMaterial()
			params := &SignParams{
				InputIndex:         idx,
				Keys:               keys,
				Cache:              cache,
				SchnorrSigHashType: signer.SchnorrSigHashType,
				ECDSASigHashType:   signer.ECDSASigHashType,
			}

			modified, err := Sign(signer.Reqs, params, material)
			if err != nil {
				return fmt.Errorf("input %d: %w", idx, err)
			}

			if !modified {
				log.Debugf("No signatures produced for "+
					"input %d", idx)
			}

			mtx.Lock()
			defer mtx.Unlock()
			materials[idx] = material

			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	log.Tracef("Signed %d %s: %v", len(inputs),
		pickNoun(len(inputs), "input", "inputs"),
		newLogClosure(func() string {
			return spew.Sdump(materials)
		}))

	return materials, nil
}
