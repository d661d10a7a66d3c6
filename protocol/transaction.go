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

// offsets of the fixed part
const (
	transactionSourceOffset      = 0
	transactionDestinationOffset = transactionSourceOffset + cryptography.PublicKeySize
	transactionAmountOffset      = transactionDestinationOffset + cryptography.PublicKeySize
	transactionTickOffset        = transactionAmountOffset + 8
	transactionInputTypeOffset   = transactionTickOffset + 4
	transactionInputSizeOffset   = transactionInputTypeOffset + 2
	transactionInputOffset       = transactionInputSizeOffset + 2

	// MinTransactionSize - a transaction without input
	MinTransactionSize = transactionInputOffset + cryptography.SignatureSize

	// MaxTransactionSize - a transaction with the largest input
	MaxTransactionSize = MinTransactionSize + constants.MaxInputSize
)

// Transaction - a signed transfer, optionally invoking a contract procedure
type Transaction struct {
	SourcePublicKey      cryptography.PublicKey
	DestinationPublicKey cryptography.PublicKey
	Amount               int64
	Tick                 uint32
	InputType            uint16
	Input                []byte
	Signature            cryptography.Signature
}

// Type - message type
func (t *Transaction) Type() uint8 {
	return BroadcastTransactionType
}

// Size - bytes in the packed form
func (t *Transaction) Size() int {
	return MinTransactionSize + len(t.Input)
}

// Pack - variable size payload
func (t *Transaction) Pack() []byte {
	buffer := make([]byte, t.Size())
	copy(buffer[transactionSourceOffset:], t.SourcePublicKey[:])
	copy(buffer[transactionDestinationOffset:], t.DestinationPublicKey[:])
	binary.LittleEndian.PutUint64(buffer[transactionAmountOffset:], uint64(t.Amount))
	binary.LittleEndian.PutUint32(buffer[transactionTickOffset:], t.Tick)
	binary.LittleEndian.PutUint16(buffer[transactionInputTypeOffset:], t.InputType)
	binary.LittleEndian.PutUint16(buffer[transactionInputSizeOffset:], uint16(len(t.Input)))
	n := transactionInputOffset + copy(buffer[transactionInputOffset:], t.Input)
	copy(buffer[n:], t.Signature[:])
	return buffer
}

// UnpackTransaction - decode a transaction payload
//
// the declared input size must account for every remaining byte
func UnpackTransaction(payload []byte) (*Transaction, error) {
	if len(payload) < MinTransactionSize {
		return nil, fault.ErrInvalidMessageSize
	}
	inputSize := int(binary.LittleEndian.Uint16(payload[transactionInputSizeOffset:]))
	if inputSize > constants.MaxInputSize {
		return nil, fault.ErrInvalidInputSize
	}
	if MinTransactionSize+inputSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}

	t := &Transaction{
		Amount:    int64(binary.LittleEndian.Uint64(payload[transactionAmountOffset:])),
		Tick:      binary.LittleEndian.Uint32(payload[transactionTickOffset:]),
		InputType: binary.LittleEndian.Uint16(payload[transactionInputTypeOffset:]),
	}
	copy(t.SourcePublicKey[:], payload[transactionSourceOffset:])
	copy(t.DestinationPublicKey[:], payload[transactionDestinationOffset:])
	if inputSize > 0 {
		t.Input = make([]byte, inputSize)
		copy(t.Input, payload[transactionInputOffset:])
	}
	copy(t.Signature[:], payload[transactionInputOffset+inputSize:])
	return t, nil
}

// SigningDigest - hash of every byte before the signature
func (t *Transaction) SigningDigest(hasher merkle.Hasher) merkle.Digest {
	buffer := t.Pack()
	return hasher.Hash32(buffer[:len(buffer)-cryptography.SignatureSize])
}

// Digest - identity of the transaction, covering the signature
func (t *Transaction) Digest(hasher merkle.Hasher) merkle.Digest {
	return hasher.Hash32(t.Pack())
}

// Sign - fill in the signature
func (t *Transaction) Sign(c cryptography.Crypto, subseed cryptography.Subseed) {
	t.Signature = c.Sign(subseed, t.SourcePublicKey, t.SigningDigest(c))
}

// Verify - check the signature against the source key
func (t *Transaction) Verify(c cryptography.Crypto) bool {
	return c.Verify(t.SourcePublicKey, t.SigningDigest(c), t.Signature)
}

// Valid - field checks that need no state
func (t *Transaction) Valid() error {
	if t.SourcePublicKey.IsZero() || t.DestinationPublicKey.IsZero() {
		return fault.ErrZeroPublicKey
	}
	if t.Amount < 0 || t.Amount > constants.MaxAmount {
		return fault.ErrInvalidAmount
	}
	if len(t.Input) > constants.MaxInputSize {
		return fault.ErrInvalidInputSize
	}
	return nil
}
