// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package plan

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/tlv"
	"golang.org/x/crypto/ripemd160"
)

const (
	typeMaterialSchnorrSigs        tlv.Type = 1
	typeMaterialEcdsaSigs          tlv.Type = 2
	typeMaterialSha256Preimages    tlv.Type = 3
	typeMaterialHash256Preimages   tlv.Type = 4
	typeMaterialRipemd160Preimages tlv.Type = 5
	typeMaterialHash160Preimages   tlv.Type = 6
)

// preimageEntry is the serialization form of one preimage map entry.
type preimageEntry struct {
	digest   []byte
	preimage []byte
}

// Encode writes the material to w as a TLV stream. The encoding is
// deterministic: map entries are written in ascending key order, so equal
// material always serializes to equal bytes.
func (m *SatisfactionMaterial) Encode(w io.Writer) error {
	var (
		shaEntries     = sha256PreimageEntries(m.Sha256Preimages)
		hash256Entries = hash256PreimageEntries(m.Hash256Preimages)
		ripemdEntries  = ripemd160PreimageEntries(m.Ripemd160Preimages)
		hash160Entries = hash160PreimageEntries(m.Hash160Preimages)
	)

	tlvStream, err := tlv.NewStream(
		tlv.MakeDynamicRecord(
			typeMaterialSchnorrSigs, &m.SchnorrSigs,
			func() uint64 {
				return recordSize(
					schnorrSigsEncoder, &m.SchnorrSigs,
				)
			}, schnorrSigsEncoder, schnorrSigsDecoder,
		),
		tlv.MakeDynamicRecord(
			typeMaterialEcdsaSigs, &m.EcdsaSigs,
			func() uint64 {
				return recordSize(
					ecdsaSigsEncoder, &m.EcdsaSigs,
				)
			}, ecdsaSigsEncoder, ecdsaSigsDecoder,
		),
		preimagesRecord(typeMaterialSha256Preimages, &shaEntries),
		preimagesRecord(typeMaterialHash256Preimages, &hash256Entries),
		preimagesRecord(typeMaterialRipemd160Preimages, &ripemdEntries),
		preimagesRecord(typeMaterialHash160Preimages, &hash160Entries),
	)
	if err != nil {
		return err
	}

	return tlvStream.Encode(w)
}

// Decode replaces the material's content with the TLV stream read from r.
func (m *SatisfactionMaterial) Decode(r io.Reader) error {
	var (
		shaEntries     []preimageEntry
		hash256Entries []preimageEntry
		ripemdEntries  []preimageEntry
		hash160Entries []preimageEntry
	)

	fresh := NewSatisfactionMaterial()
	m.SchnorrSigs = fresh.SchnorrSigs
	m.EcdsaSigs = fresh.EcdsaSigs

	tlvStream, err := tlv.NewStream(
		tlv.MakeDynamicRecord(
			typeMaterialSchnorrSigs, &m.SchnorrSigs,
			func() uint64 {
				return recordSize(
					schnorrSigsEncoder, &m.SchnorrSigs,
				)
			}, schnorrSigsEncoder, schnorrSigsDecoder,
		),
		tlv.MakeDynamicRecord(
			typeMaterialEcdsaSigs, &m.EcdsaSigs,
			func() uint64 {
				return recordSize(
					ecdsaSigsEncoder, &m.EcdsaSigs,
				)
			}, ecdsaSigsEncoder, ecdsaSigsDecoder,
		),
		preimagesRecord(typeMaterialSha256Preimages, &shaEntries),
		preimagesRecord(typeMaterialHash256Preimages, &hash256Entries),
		preimagesRecord(typeMaterialRipemd160Preimages, &ripemdEntries),
		preimagesRecord(typeMaterialHash160Preimages, &hash160Entries),
	)
	if err != nil {
		return err
	}

	if _, err := tlvStream.DecodeWithParsedTypes(r); err != nil {
		return err
	}

	m.Sha256Preimages = make(map[Sha256Digest][]byte, len(shaEntries))
	for _, entry := range shaEntries {
		if len(entry.digest) != sha256.Size {
			return fmt.Errorf("invalid sha256 image length %d",
				len(entry.digest))
		}
		var digest Sha256Digest
		copy(digest[:], entry.digest)
		m.Sha256Preimages[digest] = entry.preimage
	}

	m.Hash256Preimages = make(
		map[Hash256Digest][]byte, len(hash256Entries),
	)
	for _, entry := range hash256Entries {
		if len(entry.digest) != sha256.Size {
			return fmt.Errorf("invalid hash256 image length %d",
				len(entry.digest))
		}
		var digest Hash256Digest
		copy(digest[:], entry.digest)
		m.Hash256Preimages[digest] = entry.preimage
	}

	m.Ripemd160Preimages = make(
		map[Ripemd160Digest][]byte, len(ripemdEntries),
	)
	for _, entry := range ripemdEntries {
		if len(entry.digest) != ripemd160.Size {
			return fmt.Errorf("invalid ripemd160 image length %d",
				len(entry.digest))
		}
		var digest Ripemd160Digest
		copy(digest[:], entry.digest)
		m.Ripemd160Preimages[digest] = entry.preimage
	}

	m.Hash160Preimages = make(
		map[Hash160Digest][]byte, len(hash160Entries),
	)
	for _, entry := range hash160Entries {
		if len(entry.digest) != ripemd160.Size {
			return fmt.Errorf("invalid hash160 image length %d",
				len(entry.digest))
		}
		var digest Hash160Digest
		copy(digest[:], entry.digest)
		m.Hash160Preimages[digest] = entry.preimage
	}

	return nil
}

// preimagesRecord returns the dynamic TLV record of one preimage entry
// slice.
func preimagesRecord(typ tlv.Type, entries *[]preimageEntry) tlv.Record {
	return tlv.MakeDynamicRecord(
		typ, entries, func() uint64 {
			return recordSize(preimageEntriesEncoder, entries)
		}, preimageEntriesEncoder, preimageEntriesDecoder,
	)
}

// sortedKeyIDs returns the map's keys in ascending byte order so that
// encoding the map is deterministic.
func sortedKeyIDs[V any](m map[KeyID]V) []KeyID {
	keys := make([]KeyID, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return bytes.Compare(keys[i][:], keys[j][:]) < 0
	})

	return keys
}

// schnorrSigsEncoder is a custom TLV encoder for the Schnorr signature map.
func schnorrSigsEncoder(w io.Writer, val interface{}, buf *[8]byte) error {
	if sigs, ok := val.(*map[KeyID]SchnorrSig); ok {
		for _, key := range sortedKeyIDs(*sigs) {
			sig := (*sigs)[key]

			if _, err := w.Write(key[:]); err != nil {
				return err
			}
			if _, err := w.Write(sig.Sig.Serialize()); err != nil {
				return err
			}
			err := tlv.WriteVarInt(
				w, uint64(sig.SigHashType), buf,
			)
			if err != nil {
				return err
			}
		}

		return nil
	}

	return tlv.NewTypeForEncodingErr(val, "map[KeyID]SchnorrSig")
}

// schnorrSigsDecoder is a custom TLV decoder for the Schnorr signature map.
func schnorrSigsDecoder(r io.Reader, val interface{}, buf *[8]byte,
	l uint64) error {

	if sigs, ok := val.(*map[KeyID]SchnorrSig); ok {
		decoded := make(map[KeyID]SchnorrSig)

		// A limited reader returns EOF once the record has been
		// consumed, which ends the entry loop cleanly.
		innerReader := io.LimitedReader{
			R: r,
			N: int64(l),
		}

		for {
			var key KeyID
			_, err := io.ReadFull(&innerReader, key[:])
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}

			var sigBytes [schnorr.SignatureSize]byte
			_, err = io.ReadFull(&innerReader, sigBytes[:])
			if err != nil {
				return err
			}
			sig, err := schnorr.ParseSignature(sigBytes[:])
			if err != nil {
				return err
			}

			hashType, err := tlv.ReadVarInt(&innerReader, buf)
			if err != nil {
				return err
			}
			if hashType > math.MaxUint32 {
				return fmt.Errorf("invalid sighash type %d",
					hashType)
			}

			decoded[key] = SchnorrSig{
				Sig: sig,
				SigHashType: txscript.SigHashType(
					hashType,
				),
			}
		}

		*sigs = decoded
		return nil
	}

	return tlv.NewTypeForDecodingErr(val, "map[KeyID]SchnorrSig", l, l)
}

// ecdsaSigsEncoder is a custom TLV encoder for the ECDSA signature map.
func ecdsaSigsEncoder(w io.Writer, val interface{}, buf *[8]byte) error {
	if sigs, ok := val.(*map[KeyID]ECDSASig); ok {
		for _, key := range sortedKeyIDs(*sigs) {
			sig := (*sigs)[key]

			if _, err := w.Write(key[:]); err != nil {
				return err
			}

			derBytes := sig.Sig.Serialize()
			err := tlv.WriteVarInt(
				w, uint64(len(derBytes)), buf,
			)
			if err != nil {
				return err
			}
			if _, err := w.Write(derBytes); err != nil {
				return err
			}

			err = tlv.WriteVarInt(w, uint64(sig.SigHashType), buf)
			if err != nil {
				return err
			}
		}

		return nil
	}

	return tlv.NewTypeForEncodingErr(val, "map[KeyID]ECDSASig")
}

// ecdsaSigsDecoder is a custom TLV decoder for the ECDSA signature map.
func ecdsaSigsDecoder(r io.Reader, val interface{}, buf *[8]byte,
	l uint64) error {

	if sigs, ok := val.(*map[KeyID]ECDSASig); ok {
		decoded := make(map[KeyID]ECDSASig)

		innerReader := io.LimitedReader{
			R: r,
			N: int64(l),
		}

		for {
			var key KeyID
			_, err := io.ReadFull(&innerReader, key[:])
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}

			derLen, err := tlv.ReadVarInt(&innerReader, buf)
			if err != nil {
				return err
			}
			if derLen > uint64(innerReader.N) {
				return fmt.Errorf("invalid signature length "+
					"%d", derLen)
			}

			derBytes := make([]byte, derLen)
			if _, err := io.ReadFull(&innerReader, derBytes); err != nil {
				return err
			}
			sig, err := ecdsa.ParseDERSignature(derBytes)
			if err != nil {
				return err
			}

			hashType, err := tlv.ReadVarInt(&innerReader, buf)
			if err != nil {
				return err
			}
			if hashType > math.MaxUint32 {
				return fmt.Errorf("invalid sighash type %d",
					hashType)
			}

			decoded[key] = ECDSASig{
				Sig: sig,
				SigHashType: txscript.SigHashType(
					hashType,
				),
			}
		}

		*sigs = decoded
		return nil
	}

	return tlv.NewTypeForDecodingErr(val, "map[KeyID]ECDSASig", l, l)
}

// preimageEntriesEncoder is a custom TLV encoder for a preimage entry slice.
func preimageEntriesEncoder(w io.Writer, val interface{}, buf *[8]byte) error {
	if entries, ok := val.(*[]preimageEntry); ok {
		for _, entry := range *entries {
			err := tlv.WriteVarInt(
				w, uint64(len(entry.digest)), buf,
			)
			if err != nil {
				return err
			}
			if _, err := w.Write(entry.digest); err != nil {
				return err
			}

			err = tlv.WriteVarInt(
				w, uint64(len(entry.preimage)), buf,
			)
			if err != nil {
				return err
			}
			if _, err := w.Write(entry.preimage); err != nil {
				return err
			}
		}

		return nil
	}

	return tlv.NewTypeForEncodingErr(val, "[]preimageEntry")
}

// preimageEntriesDecoder is a custom TLV decoder for a preimage entry slice.
func preimageEntriesDecoder(r io.Reader, val interface{}, buf *[8]byte,
	l uint64) error {

	if entries, ok := val.(*[]preimageEntry); ok {
		var decoded []preimageEntry

		innerReader := io.LimitedReader{
			R: r,
			N: int64(l),
		}

		for {
			digestLen, err := tlv.ReadVarInt(&innerReader, buf)
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}
			if digestLen > uint64(innerReader.N) {
				return fmt.Errorf("invalid image length %d",
					digestLen)
			}

			digest := make([]byte, digestLen)
			if _, err := io.ReadFull(&innerReader, digest); err != nil {
				return err
			}

			preimageLen, err := tlv.ReadVarInt(&innerReader, buf)
			if err != nil {
				return err
			}
			if preimageLen > uint64(innerReader.N) {
				return fmt.Errorf("invalid preimage length "+
					"%d", preimageLen)
			}

			preimage := make([]byte, preimageLen)
			_, err = io.ReadFull(&innerReader, preimage)
			if err != nil {
				return err
			}

			decoded = append(decoded, preimageEntry{
				digest:   digest,
				preimage: preimage,
			})
		}

		*entries = decoded
		return nil
	}

	return tlv.NewTypeForDecodingErr(val, "[]preimageEntry", l, l)
}

// sha256PreimageEntries flattens the map into entries sorted by image so
// encoding is deterministic.
func sha256PreimageEntries(m map[Sha256Digest][]byte) []preimageEntry {
	entries := make([]preimageEntry, 0, len(m))
	for digest, preimage := range m {
		entries = append(entries, preimageEntry{
			digest:   append([]byte(nil), digest[:]...),
			preimage: preimage,
		})
	}
	sortPreimageEntries(entries)

	return entries
}

// hash256PreimageEntries flattens the map into entries sorted by image.
func hash256PreimageEntries(m map[Hash256Digest][]byte) []preimageEntry {
	entries := make([]preimageEntry, 0, len(m))
	for digest, preimage := range m {
		entries = append(entries, preimageEntry{
			digest:   append([]byte(nil), digest[:]...),
			preimage: preimage,
		})
	}
	sortPreimageEntries(entries)

	return entries
}

// ripemd160PreimageEntries flattens the map into entries sorted by image.
func ripemd160PreimageEntries(m map[Ripemd160Digest][]byte) []preimageEntry {
	entries := make([]preimageEntry, 0, len(m))
	for digest, preimage := range m {
		entries = append(entries, preimageEntry{
			digest:   append([]byte(nil), digest[:]...),
			preimage: preimage,
		})
	}
	sortPreimageEntries(entries)

	return entries
}

// hash160PreimageEntries flattens the map into entries sorted by image.
func hash160PreimageEntries(m map[Hash160Digest][]byte) []preimageEntry {
	entries := make([]preimageEntry, 0, len(m))
	for digest, preimage := range m {
		entries = append(entries, preimageEntry{
			digest:   append([]byte(nil), digest[:]...),
			preimage: preimage,
		})
	}
	sortPreimageEntries(entries)

	return entries
}

// sortPreimageEntries orders entries by ascending image bytes.
func sortPreimageEntries(entries []preimageEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return bytes.Compare(entries[i].digest, entries[j].digest) < 0
	})
}

// recordSize returns the amount of bytes this TLV record will occupy when
// encoded.
func recordSize(encoder tlv.Encoder, v interface{}) uint64 {
	var (
		b   bytes.Buffer
		buf [8]byte
	)

	// We know that encoding works since the tests pass in the build this
	// file is checked into, so we'll simplify things and simply encode it
	// ourselves then report the total amount of bytes used.
	if err := encoder(&b, v, &buf); err != nil {
		// This should never error out, but we log it just in case it
		// does.
		log.Errorf("encoding the record failed: %v", err)
	}

	return uint64(len(b.Bytes()))
}
