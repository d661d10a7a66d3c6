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
	"github.com/bitmark-inc/quorumd/util"
)

// NumberOfExchangedPeers - addresses in a peer exchange
const NumberOfExchangedPeers = 4

// ExchangePublicPeers - a few public addresses known to the sender
type ExchangePublicPeers struct {
	Peers [NumberOfExchangedPeers]util.IPv4
}

// Type - message type
func (e *ExchangePublicPeers) Type() uint8 { return ExchangePublicPeersType }

// Pack - fixed size payload
func (e *ExchangePublicPeers) Pack() []byte {
	buffer := make([]byte, 4*NumberOfExchangedPeers)
	for i := range e.Peers {
		copy(buffer[4*i:], e.Peers[i][:])
	}
	return buffer
}

// UnpackExchangePublicPeers - decode a peer exchange
func UnpackExchangePublicPeers(payload []byte) (*ExchangePublicPeers, error) {
	if 4*NumberOfExchangedPeers != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	e := &ExchangePublicPeers{}
	for i := range e.Peers {
		copy(e.Peers[i][:], payload[4*i:])
	}
	return e, nil
}

// RequestQuorumTick - ask for the votes of a tick not already held
//
// a set bit in VoteFlags marks a computor whose vote the requester has
type RequestQuorumTick struct {
	Tick      uint32
	VoteFlags [constants.ComputorFlagsSize]byte
}

// Type - message type
func (r *RequestQuorumTick) Type() uint8 { return RequestQuorumTickType }

// Pack - fixed size payload
func (r *RequestQuorumTick) Pack() []byte {
	buffer := make([]byte, 4+constants.ComputorFlagsSize)
	binary.LittleEndian.PutUint32(buffer, r.Tick)
	copy(buffer[4:], r.VoteFlags[:])
	return buffer
}

// Has - requester already holds this computor's vote
func (r *RequestQuorumTick) Has(computorIndex uint) bool {
	return 0 != r.VoteFlags[computorIndex>>3]&(1<<(computorIndex&7))
}

// UnpackRequestQuorumTick - decode
func UnpackRequestQuorumTick(payload []byte) (*RequestQuorumTick, error) {
	if 4+constants.ComputorFlagsSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	r := &RequestQuorumTick{
		Tick: binary.LittleEndian.Uint32(payload),
	}
	copy(r.VoteFlags[:], payload[4:])
	return r, nil
}

// RequestTickData - ask for the tick data of a tick
type RequestTickData struct {
	Tick uint32
}

// Type - message type
func (r *RequestTickData) Type() uint8 { return RequestTickDataType }

// Pack - fixed size payload
func (r *RequestTickData) Pack() []byte {
	buffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(buffer, r.Tick)
	return buffer
}

// UnpackRequestTickData - decode
func UnpackRequestTickData(payload []byte) (*RequestTickData, error) {
	if 4 != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	return &RequestTickData{Tick: binary.LittleEndian.Uint32(payload)}, nil
}

// RequestTickTransactions - ask for the transactions of a tick
//
// a set bit in TransactionFlags marks a slot the requester has
type RequestTickTransactions struct {
	Tick             uint32
	TransactionFlags [constants.TransactionFlagsSize]byte
}

// Type - message type
func (r *RequestTickTransactions) Type() uint8 { return RequestTickTransactionsType }

// Pack - fixed size payload
func (r *RequestTickTransactions) Pack() []byte {
	buffer := make([]byte, 4+constants.TransactionFlagsSize)
	binary.LittleEndian.PutUint32(buffer, r.Tick)
	copy(buffer[4:], r.TransactionFlags[:])
	return buffer
}

// Has - requester already holds the transaction of this slot
func (r *RequestTickTransactions) Has(slot uint) bool {
	return 0 != r.TransactionFlags[slot>>3]&(1<<(slot&7))
}

// UnpackRequestTickTransactions - decode
func UnpackRequestTickTransactions(payload []byte) (*RequestTickTransactions, error) {
	if 4+constants.TransactionFlagsSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	r := &RequestTickTransactions{
		Tick: binary.LittleEndian.Uint32(payload),
	}
	copy(r.TransactionFlags[:], payload[4:])
	return r, nil
}

// CurrentTickInfoSize - bytes in a tick status response
const CurrentTickInfoSize = 16

// CurrentTickInfo - a node's tick status
type CurrentTickInfo struct {
	TickDuration            uint16
	Epoch                   uint16
	Tick                    uint32
	NumberOfAlignedVotes    uint16
	NumberOfMisalignedVotes uint16
	InitialTick             uint32
}

// Type - message type
func (c *CurrentTickInfo) Type() uint8 { return RespondCurrentTickInfoType }

// Pack - fixed size payload
func (c *CurrentTickInfo) Pack() []byte {
	buffer := make([]byte, CurrentTickInfoSize)
	binary.LittleEndian.PutUint16(buffer[0:], c.TickDuration)
	binary.LittleEndian.PutUint16(buffer[2:], c.Epoch)
	binary.LittleEndian.PutUint32(buffer[4:], c.Tick)
	binary.LittleEndian.PutUint16(buffer[8:], c.NumberOfAlignedVotes)
	binary.LittleEndian.PutUint16(buffer[10:], c.NumberOfMisalignedVotes)
	binary.LittleEndian.PutUint32(buffer[12:], c.InitialTick)
	return buffer
}

// UnpackCurrentTickInfo - decode
func UnpackCurrentTickInfo(payload []byte) (*CurrentTickInfo, error) {
	if CurrentTickInfoSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	return &CurrentTickInfo{
		TickDuration:            binary.LittleEndian.Uint16(payload[0:]),
		Epoch:                   binary.LittleEndian.Uint16(payload[2:]),
		Tick:                    binary.LittleEndian.Uint32(payload[4:]),
		NumberOfAlignedVotes:    binary.LittleEndian.Uint16(payload[8:]),
		NumberOfMisalignedVotes: binary.LittleEndian.Uint16(payload[10:]),
		InitialTick:             binary.LittleEndian.Uint32(payload[12:]),
	}, nil
}

// RequestEntity - ask for the balance record of a key
type RequestEntity struct {
	PublicKey cryptography.PublicKey
}

// Type - message type
func (r *RequestEntity) Type() uint8 { return RequestEntityType }

// Pack - fixed size payload
func (r *RequestEntity) Pack() []byte {
	return append([]byte{}, r.PublicKey[:]...)
}

// UnpackRequestEntity - decode
func UnpackRequestEntity(payload []byte) (*RequestEntity, error) {
	if cryptography.PublicKeySize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	r := &RequestEntity{}
	copy(r.PublicKey[:], payload)
	return r, nil
}

// RequestContractIPO - ask for the bids of a contract IPO
type RequestContractIPO struct {
	ContractIndex uint32
}

// Type - message type
func (r *RequestContractIPO) Type() uint8 { return RequestContractIPOType }

// Pack - fixed size payload
func (r *RequestContractIPO) Pack() []byte {
	buffer := make([]byte, 4)
	binary.LittleEndian.PutUint32(buffer, r.ContractIndex)
	return buffer
}

// UnpackRequestContractIPO - decode
func UnpackRequestContractIPO(payload []byte) (*RequestContractIPO, error) {
	if 4 != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	return &RequestContractIPO{ContractIndex: binary.LittleEndian.Uint32(payload)}, nil
}
