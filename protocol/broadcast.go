// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// payload kinds of a broadcast message
const (
	MiningSolutionPayload = 0
	miningSolutionSize    = 1 + merkle.DigestLength
)

const (
	broadcastSourceOffset      = 0
	broadcastDestinationOffset = broadcastSourceOffset + cryptography.PublicKeySize
	broadcastNonceOffset       = broadcastDestinationOffset + cryptography.PublicKeySize
	broadcastPayloadOffset     = broadcastNonceOffset + merkle.DigestLength

	// MinBroadcastMessageSize - a message with no payload
	MinBroadcastMessageSize = broadcastPayloadOffset + cryptography.SignatureSize
)

// BroadcastMessage - a signed message relayed to every peer
type BroadcastMessage struct {
	SourcePublicKey      cryptography.PublicKey
	DestinationPublicKey cryptography.PublicKey
	GammingNonce         merkle.Digest
	Payload              []byte
	Signature            cryptography.Signature
}

// Type - message type
func (b *BroadcastMessage) Type() uint8 {
	return BroadcastMessageType
}

// Pack - variable size payload
func (b *BroadcastMessage) Pack() []byte {
	buffer := make([]byte, MinBroadcastMessageSize+len(b.Payload))
	copy(buffer[broadcastSourceOffset:], b.SourcePublicKey[:])
	copy(buffer[broadcastDestinationOffset:], b.DestinationPublicKey[:])
	copy(buffer[broadcastNonceOffset:], b.GammingNonce[:])
	n := broadcastPayloadOffset + copy(buffer[broadcastPayloadOffset:], b.Payload)
	copy(buffer[n:], b.Signature[:])
	return buffer
}

// UnpackBroadcastMessage - decode a broadcast message
func UnpackBroadcastMessage(payload []byte) (*BroadcastMessage, error) {
	if len(payload) < MinBroadcastMessageSize {
		return nil, fault.ErrInvalidMessageSize
	}
	b := &BroadcastMessage{}
	copy(b.SourcePublicKey[:], payload[broadcastSourceOffset:])
	copy(b.DestinationPublicKey[:], payload[broadcastDestinationOffset:])
	copy(b.GammingNonce[:], payload[broadcastNonceOffset:])
	end := len(payload) - cryptography.SignatureSize
	if end > broadcastPayloadOffset {
		b.Payload = make([]byte, end-broadcastPayloadOffset)
		copy(b.Payload, payload[broadcastPayloadOffset:end])
	}
	copy(b.Signature[:], payload[end:])
	return b, nil
}

// SigningDigest - hash of every byte before the signature
func (b *BroadcastMessage) SigningDigest(hasher merkle.Hasher) merkle.Digest {
	buffer := b.Pack()
	return hasher.Hash32(buffer[:len(buffer)-cryptography.SignatureSize])
}

// Sign - fill in the signature
func (b *BroadcastMessage) Sign(c cryptography.Crypto, subseed cryptography.Subseed) {
	b.Signature = c.Sign(subseed, b.SourcePublicKey, b.SigningDigest(c))
}

// Verify - check the signature against the source key
func (b *BroadcastMessage) Verify(c cryptography.Crypto) bool {
	return c.Verify(b.SourcePublicKey, b.SigningDigest(c), b.Signature)
}

// MiningSolution - the nonce carried by a mining solution payload
func (b *BroadcastMessage) MiningSolution() (merkle.Digest, bool) {
	nonce := merkle.Digest{}
	if miningSolutionSize != len(b.Payload) || MiningSolutionPayload != b.Payload[0] {
		return nonce, false
	}
	copy(nonce[:], b.Payload[1:])
	return nonce, true
}

// MiningSolutionPayloadBytes - build the payload for a nonce
func MiningSolutionPayloadBytes(nonce merkle.Digest) []byte {
	payload := make([]byte, miningSolutionSize)
	payload[0] = MiningSolutionPayload
	copy(payload[1:], nonce[:])
	return payload
}
