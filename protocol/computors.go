// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

const (
	computorsKeysOffset      = 2
	computorsSignatureOffset = computorsKeysOffset + constants.NumberOfComputors*cryptography.PublicKeySize

	// ComputorsSize - bytes in a committee announcement
	ComputorsSize = computorsSignatureOffset + cryptography.SignatureSize
)

// Computors - the committee of an epoch as announced by the arbitrator
type Computors struct {
	Epoch      uint16
	PublicKeys [constants.NumberOfComputors]cryptography.PublicKey
	Signature  cryptography.Signature
}

// Type - message type
func (c *Computors) Type() uint8 {
	return BroadcastComputorsType
}

// Pack - fixed size payload
func (c *Computors) Pack() []byte {
	buffer := make([]byte, ComputorsSize)
	binary.LittleEndian.PutUint16(buffer, c.Epoch)
	n := computorsKeysOffset
	for i := range c.PublicKeys {
		n += copy(buffer[n:], c.PublicKeys[i][:])
	}
	copy(buffer[computorsSignatureOffset:], c.Signature[:])
	return buffer
}

// UnpackComputors - decode a committee announcement
func UnpackComputors(payload []byte) (*Computors, error) {
	if ComputorsSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	c := &Computors{
		Epoch: binary.LittleEndian.Uint16(payload),
	}
	n := computorsKeysOffset
	for i := range c.PublicKeys {
		n += copy(c.PublicKeys[i][:], payload[n:])
	}
	copy(c.Signature[:], payload[computorsSignatureOffset:])
	return c, nil
}

// SigningDigest - hash of the payload without the signature
func (c *Computors) SigningDigest(hasher merkle.Hasher) merkle.Digest {
	return hasher.Hash32(c.Pack()[:computorsSignatureOffset])
}

// Sign - fill in the arbitrator signature
func (c *Computors) Sign(crypto cryptography.Crypto, subseed cryptography.Subseed, arbitrator cryptography.PublicKey) {
	c.Signature = crypto.Sign(subseed, arbitrator, c.SigningDigest(crypto))
}

// Verify - check the arbitrator signature
func (c *Computors) Verify(crypto cryptography.Crypto, arbitrator cryptography.PublicKey) bool {
	return crypto.Verify(arbitrator, c.SigningDigest(crypto), c.Signature)
}
