// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// offsets of the fields
const (
	tickDataComputorIndexOffset = 0
	tickDataEpochOffset         = tickDataComputorIndexOffset + 2
	tickDataTickOffset          = tickDataEpochOffset + 2
	tickDataTimeOffset          = tickDataTickOffset + 4
	tickDataTimelockOffset      = tickDataTimeOffset + civil.Size
	tickDataDigestsOffset       = tickDataTimelockOffset + merkle.DigestLength
	tickDataFeesOffset          = tickDataDigestsOffset + constants.NumberOfTransactionsPerTick*merkle.DigestLength
	tickDataSignatureOffset     = tickDataFeesOffset + constants.MaxNumberOfContracts*8

	// TickDataSize - bytes in a tick data record
	TickDataSize = tickDataSignatureOffset + cryptography.SignatureSize
)

// TickData - the transaction set proposed for a tick by its leader
//
// unused transaction slots hold the zero digest
type TickData struct {
	ComputorIndex      uint16
	Epoch              uint16
	Tick               uint32
	Time               civil.Time
	Timelock           merkle.Digest
	TransactionDigests [constants.NumberOfTransactionsPerTick]merkle.Digest
	ContractFees       [constants.MaxNumberOfContracts]int64
	Signature          cryptography.Signature
}

// Type - message type
func (t *TickData) Type() uint8 {
	return BroadcastFutureTickDataType
}

// Pack - fixed size payload
func (t *TickData) Pack() []byte {
	buffer := make([]byte, TickDataSize)
	binary.LittleEndian.PutUint16(buffer[tickDataComputorIndexOffset:], t.ComputorIndex)
	binary.LittleEndian.PutUint16(buffer[tickDataEpochOffset:], t.Epoch)
	binary.LittleEndian.PutUint32(buffer[tickDataTickOffset:], t.Tick)
	t.Time.PackInto(buffer[tickDataTimeOffset:])
	copy(buffer[tickDataTimelockOffset:], t.Timelock[:])
	n := tickDataDigestsOffset
	for i := range t.TransactionDigests {
		n += copy(buffer[n:], t.TransactionDigests[i][:])
	}
	for _, fee := range t.ContractFees {
		binary.LittleEndian.PutUint64(buffer[n:], uint64(fee))
		n += 8
	}
	copy(buffer[tickDataSignatureOffset:], t.Signature[:])
	return buffer
}

// UnpackTickData - decode a tick data payload
func UnpackTickData(payload []byte) (*TickData, error) {
	if TickDataSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	time, err := civil.Unpack(payload[tickDataTimeOffset:])
	if nil != err {
		return nil, err
	}
	t := &TickData{
		ComputorIndex: binary.LittleEndian.Uint16(payload[tickDataComputorIndexOffset:]),
		Epoch:         binary.LittleEndian.Uint16(payload[tickDataEpochOffset:]),
		Tick:          binary.LittleEndian.Uint32(payload[tickDataTickOffset:]),
		Time:          time,
	}
	copy(t.Timelock[:], payload[tickDataTimelockOffset:])
	n := tickDataDigestsOffset
	for i := range t.TransactionDigests {
		n += copy(t.TransactionDigests[i][:], payload[n:])
	}
	for i := range t.ContractFees {
		t.ContractFees[i] = int64(binary.LittleEndian.Uint64(payload[n:]))
		n += 8
	}
	copy(t.Signature[:], payload[tickDataSignatureOffset:])
	return t, nil
}

// SigningDigest - hash of the payload without the signature, computor
// index XOR message type
func (t *TickData) SigningDigest(hasher merkle.Hasher) merkle.Digest {
	buffer := t.Pack()
	binary.LittleEndian.PutUint16(buffer[tickDataComputorIndexOffset:], t.ComputorIndex^BroadcastFutureTickDataType)
	return hasher.Hash32(buffer[:tickDataSignatureOffset])
}

// Digest - the transaction digest a tick vote carries for this data
func (t *TickData) Digest(hasher merkle.Hasher) merkle.Digest {
	return hasher.Hash32(t.Pack())
}

// Sign - fill in the signature
func (t *TickData) Sign(c cryptography.Crypto, subseed cryptography.Subseed, publicKey cryptography.PublicKey) {
	t.Signature = c.Sign(subseed, publicKey, t.SigningDigest(c))
}

// Verify - check the signature against the leader's key
func (t *TickData) Verify(c cryptography.Crypto, publicKey cryptography.PublicKey) bool {
	return c.Verify(publicKey, t.SigningDigest(c), t.Signature)
}

// NumberOfTransactions - count of non-empty slots
func (t *TickData) NumberOfTransactions() int {
	n := 0
	for i := range t.TransactionDigests {
		if !t.TransactionDigests[i].IsZero() {
			n += 1
		}
	}
	return n
}

// Valid - the time fields form a real calendar date
func (t *TickData) Valid() error {
	if !t.Time.Valid() {
		return fault.ErrInvalidTimeFields
	}
	return nil
}
