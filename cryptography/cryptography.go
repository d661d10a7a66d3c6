// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package cryptography

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/ed25519"
	"golang.org/x/crypto/sha3"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// sizes of the fixed cryptographic values
const (
	PublicKeySize  = 32
	SignatureSize  = 64
	SeedLength     = 55
	subseedSize    = 32
	privateKeySize = 32
)

// PublicKey - identity of an entity, computor or contract
type PublicKey [PublicKeySize]byte

// Signature - detached signature over a 32 byte digest
type Signature [SignatureSize]byte

// Subseed - secret derived from a seed, the only input to signing
type Subseed [subseedSize]byte

// PrivateKey - secret key derived from the subseed
type PrivateKey [privateKeySize]byte

// Crypto - the hash and signature primitives consumed by every
// other component
type Crypto interface {
	Hash32(data []byte) merkle.Digest
	Hash64to32(data *[2 * merkle.DigestLength]byte) merkle.Digest
	Sign(subseed Subseed, publicKey PublicKey, digest merkle.Digest) Signature
	Verify(publicKey PublicKey, digest merkle.Digest, signature Signature) bool
	DeriveKeys(seed string) (Subseed, PrivateKey, PublicKey, error)
}

type standard struct{}

// New - sha3-256 hashing with ed25519 signatures
func New() Crypto {
	return standard{}
}

// Hash32 - digest of arbitrary bytes
func (standard) Hash32(data []byte) merkle.Digest {
	return merkle.Digest(sha3.Sum256(data))
}

// Hash64to32 - compress two digests into one
func (standard) Hash64to32(data *[2 * merkle.DigestLength]byte) merkle.Digest {
	return merkle.Digest(sha3.Sum256(data[:]))
}

// Sign - sign a digest with the key derived from the subseed
func (s standard) Sign(subseed Subseed, publicKey PublicKey, digest merkle.Digest) Signature {
	privateKey := s.privateKey(subseed)
	key := ed25519.NewKeyFromSeed(privateKey[:])

	signature := Signature{}
	copy(signature[:], ed25519.Sign(key, digest[:]))
	return signature
}

// Verify - check a signature made by Sign
func (standard) Verify(publicKey PublicKey, digest merkle.Digest, signature Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(publicKey[:]), digest[:], signature[:])
}

// DeriveKeys - seed must be 55 lower case letters
func (s standard) DeriveKeys(seed string) (Subseed, PrivateKey, PublicKey, error) {
	if SeedLength != len(seed) {
		return Subseed{}, PrivateKey{}, PublicKey{}, fault.ErrInvalidSeed
	}
	for i := 0; i < len(seed); i += 1 {
		if seed[i] < 'a' || seed[i] > 'z' {
			return Subseed{}, PrivateKey{}, PublicKey{}, fault.ErrInvalidSeed
		}
	}

	subseed := Subseed(s.Hash32([]byte(seed)))
	privateKey := s.privateKey(subseed)
	key := ed25519.NewKeyFromSeed(privateKey[:])

	publicKey := PublicKey{}
	copy(publicKey[:], key.Public().(ed25519.PublicKey))
	return subseed, privateKey, publicKey, nil
}

func (s standard) privateKey(subseed Subseed) PrivateKey {
	return PrivateKey(s.Hash32(subseed[:]))
}

// IsZero - the empty slot sentinel
func (publicKey PublicKey) IsZero() bool {
	return PublicKey{} == publicKey
}

// String - hex form for logging
func (publicKey PublicKey) String() string {
	return hex.EncodeToString(publicKey[:])
}

// MarshalText - hex text
func (publicKey PublicKey) MarshalText() ([]byte, error) {
	buffer := make([]byte, hex.EncodedLen(len(publicKey)))
	hex.Encode(buffer, publicKey[:])
	return buffer, nil
}

// UnmarshalText - from hex text
func (publicKey *PublicKey) UnmarshalText(s []byte) error {
	if PublicKeySize != hex.DecodedLen(len(s)) {
		return fault.ErrInvalidPublicKey
	}
	buffer := make([]byte, PublicKeySize)
	if _, err := hex.Decode(buffer, s); nil != err {
		return fault.ErrInvalidPublicKey
	}
	copy(publicKey[:], buffer)
	return nil
}

// PublicKeyFromHex - parse a configuration or command line key
func PublicKeyFromHex(s string) (PublicKey, error) {
	publicKey := PublicKey{}
	err := publicKey.UnmarshalText([]byte(s))
	return publicKey, err
}

// ContractPublicKey - identity of the entity owned by a contract
func ContractPublicKey(contractIndex uint) PublicKey {
	publicKey := PublicKey{}
	binary.LittleEndian.PutUint64(publicKey[:8], uint64(contractIndex))
	return publicKey
}

// ContractIndex - inverse of ContractPublicKey
//
// returns false for keys that are not contract identities
func ContractIndex(publicKey PublicKey, maximum uint) (uint, bool) {
	for _, b := range publicKey[8:] {
		if 0 != b {
			return 0, false
		}
	}
	index := binary.LittleEndian.Uint64(publicKey[:8])
	if 0 == index || index >= uint64(maximum) {
		return 0, false
	}
	return uint(index), true
}
