// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spectrum

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
)

// byte sizes for various fields
const (
	publicKeySize = cryptography.PublicKeySize
	amountSize    = 8
	countSize     = 4
	tickSize      = 4
)

// offsets of the fields
const (
	publicKeyOffset          = 0
	incomingAmountOffset     = publicKeyOffset + publicKeySize
	outgoingAmountOffset     = incomingAmountOffset + amountSize
	incomingTransfersOffset  = outgoingAmountOffset + amountSize
	outgoingTransfersOffset  = incomingTransfersOffset + countSize
	latestIncomingTickOffset = outgoingTransfersOffset + countSize
	latestOutgoingTickOffset = latestIncomingTickOffset + tickSize

	// EntitySize - bytes in a packed entity
	EntitySize = latestOutgoingTickOffset + tickSize
)

// PackedEntity - fixed record as stored in a snapshot and hashed
// into the spectrum digest
type PackedEntity [EntitySize]byte

// Entity - the balance record of one public key
//
// the balance is IncomingAmount - OutgoingAmount and can never be negative
type Entity struct {
	PublicKey                  cryptography.PublicKey `json:"publicKey"`
	IncomingAmount             int64                  `json:"incomingAmount,string"`
	OutgoingAmount             int64                  `json:"outgoingAmount,string"`
	NumberOfIncomingTransfers  uint32                 `json:"numberOfIncomingTransfers"`
	NumberOfOutgoingTransfers  uint32                 `json:"numberOfOutgoingTransfers"`
	LatestIncomingTransferTick uint32                 `json:"latestIncomingTransferTick"`
	LatestOutgoingTransferTick uint32                 `json:"latestOutgoingTransferTick"`
}

// Balance - spendable amount
func (entity *Entity) Balance() int64 {
	return entity.IncomingAmount - entity.OutgoingAmount
}

// Pack - convert to the fixed record
func (entity *Entity) Pack() PackedEntity {
	record := PackedEntity{}
	entity.PackInto(record[:])
	return record
}

// PackInto - write the fixed record to the front of a buffer
func (entity *Entity) PackInto(buffer []byte) {
	copy(buffer[publicKeyOffset:], entity.PublicKey[:])
	binary.LittleEndian.PutUint64(buffer[incomingAmountOffset:], uint64(entity.IncomingAmount))
	binary.LittleEndian.PutUint64(buffer[outgoingAmountOffset:], uint64(entity.OutgoingAmount))
	binary.LittleEndian.PutUint32(buffer[incomingTransfersOffset:], entity.NumberOfIncomingTransfers)
	binary.LittleEndian.PutUint32(buffer[outgoingTransfersOffset:], entity.NumberOfOutgoingTransfers)
	binary.LittleEndian.PutUint32(buffer[latestIncomingTickOffset:], entity.LatestIncomingTransferTick)
	binary.LittleEndian.PutUint32(buffer[latestOutgoingTickOffset:], entity.LatestOutgoingTransferTick)
}

// Unpack - turn a byte slice into an entity
func Unpack(buffer []byte) (*Entity, error) {
	if len(buffer) < EntitySize {
		return nil, fault.ErrRecordTruncated
	}

	entity := &Entity{
		IncomingAmount:             int64(binary.LittleEndian.Uint64(buffer[incomingAmountOffset:])),
		OutgoingAmount:             int64(binary.LittleEndian.Uint64(buffer[outgoingAmountOffset:])),
		NumberOfIncomingTransfers:  binary.LittleEndian.Uint32(buffer[incomingTransfersOffset:]),
		NumberOfOutgoingTransfers:  binary.LittleEndian.Uint32(buffer[outgoingTransfersOffset:]),
		LatestIncomingTransferTick: binary.LittleEndian.Uint32(buffer[latestIncomingTickOffset:]),
		LatestOutgoingTransferTick: binary.LittleEndian.Uint32(buffer[latestOutgoingTickOffset:]),
	}
	copy(entity.PublicKey[:], buffer[publicKeyOffset:incomingAmountOffset])

	if entity.OutgoingAmount < 0 || entity.OutgoingAmount > entity.IncomingAmount {
		return nil, fault.ErrInsufficientBalance
	}
	return entity, nil
}
