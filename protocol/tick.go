// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// offsets of the fields
const (
	tickComputorIndexOffset = 0
	tickEpochOffset         = tickComputorIndexOffset + 2
	tickTickOffset          = tickEpochOffset + 2
	tickTimeOffset          = tickTickOffset + 4
	tickDigestsOffset       = tickTimeOffset + civil.Size
	tickSignatureOffset     = tickDigestsOffset + tickDigestCount*merkle.DigestLength

	// TickSize - bytes in a tick vote
	TickSize = tickSignatureOffset + cryptography.SignatureSize

	tickDigestCount = 8
)

// Tick - one computor's signed vote on the outcome of a tick
type Tick struct {
	ComputorIndex uint16
	Epoch         uint16
	Tick          uint32
	Time          civil.Time

	PrevSpectrumDigest merkle.Digest
	PrevUniverseDigest merkle.Digest
	PrevComputerDigest merkle.Digest

	SaltedSpectrumDigest merkle.Digest
	SaltedUniverseDigest merkle.Digest
	SaltedComputerDigest merkle.Digest

	TransactionDigest                 merkle.Digest
	ExpectedNextTickTransactionDigest merkle.Digest

	Signature cryptography.Signature
}

// Type - message type
func (t *Tick) Type() uint8 {
	return BroadcastTickType
}

func (t *Tick) digests() []*merkle.Digest {
	return []*merkle.Digest{
		&t.PrevSpectrumDigest,
		&t.PrevUniverseDigest,
		&t.PrevComputerDigest,
		&t.SaltedSpectrumDigest,
		&t.SaltedUniverseDigest,
		&t.SaltedComputerDigest,
		&t.TransactionDigest,
		&t.ExpectedNextTickTransactionDigest,
	}
}

// Pack - fixed size payload
func (t *Tick) Pack() []byte {
	buffer := make([]byte, TickSize)
	binary.LittleEndian.PutUint16(buffer[tickComputorIndexOffset:], t.ComputorIndex)
	binary.LittleEndian.PutUint16(buffer[tickEpochOffset:], t.Epoch)
	binary.LittleEndian.PutUint32(buffer[tickTickOffset:], t.Tick)
	t.Time.PackInto(buffer[tickTimeOffset:])
	n := tickDigestsOffset
	for _, d := range t.digests() {
		n += copy(buffer[n:], d[:])
	}
	copy(buffer[tickSignatureOffset:], t.Signature[:])
	return buffer
}

// UnpackTick - decode a tick vote payload
func UnpackTick(payload []byte) (*Tick, error) {
	if TickSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	time, err := civil.Unpack(payload[tickTimeOffset:])
	if nil != err {
		return nil, err
	}
	t := &Tick{
		ComputorIndex: binary.LittleEndian.Uint16(payload[tickComputorIndexOffset:]),
		Epoch:         binary.LittleEndian.Uint16(payload[tickEpochOffset:]),
		Tick:          binary.LittleEndian.Uint32(payload[tickTickOffset:]),
		Time:          time,
	}
	n := tickDigestsOffset
	for _, d := range t.digests() {
		n += copy(d[:], payload[n:])
	}
	copy(t.Signature[:], payload[tickSignatureOffset:])
	return t, nil
}

// SigningDigest - digest signed by the computor
//
// hash of the payload without the signature, computor index XOR message type
func (t *Tick) SigningDigest(hasher merkle.Hasher) merkle.Digest {
	buffer := t.Pack()
	binary.LittleEndian.PutUint16(buffer[tickComputorIndexOffset:], t.ComputorIndex^BroadcastTickType)
	return hasher.Hash32(buffer[:tickSignatureOffset])
}

// Essence - digest of the fields every agreeing computor must share
func (t *Tick) Essence(hasher merkle.Hasher) merkle.Digest {
	buffer := make([]byte, civil.Size+4*merkle.DigestLength)
	t.Time.PackInto(buffer)
	n := civil.Size
	n += copy(buffer[n:], t.PrevSpectrumDigest[:])
	n += copy(buffer[n:], t.PrevUniverseDigest[:])
	n += copy(buffer[n:], t.PrevComputerDigest[:])
	copy(buffer[n:], t.TransactionDigest[:])
	return hasher.Hash32(buffer)
}

// Sign - fill in the signature
func (t *Tick) Sign(c cryptography.Crypto, subseed cryptography.Subseed, publicKey cryptography.PublicKey) {
	t.Signature = c.Sign(subseed, publicKey, t.SigningDigest(c))
}

// Verify - check the signature against the computor's key
func (t *Tick) Verify(c cryptography.Crypto, publicKey cryptography.PublicKey) bool {
	return c.Verify(publicKey, t.SigningDigest(c), t.Signature)
}
