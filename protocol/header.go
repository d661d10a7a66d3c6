// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/fault"
)

// message types, the numeric values are fixed by the wire protocol
const (
	ExchangePublicPeersType     = 0
	BroadcastMessageType        = 1
	BroadcastComputorsType      = 2
	BroadcastTickType           = 3
	BroadcastFutureTickDataType = 8
	RequestComputorsType        = 11
	RequestQuorumTickType       = 14
	RequestTickDataType         = 16
	BroadcastTransactionType    = 24
	RequestCurrentTickInfoType  = 27
	RespondCurrentTickInfoType  = 28
	RequestTickTransactionsType = 29
	RequestEntityType           = 31
	RespondEntityType           = 32
	RequestContractIPOType      = 33
	RespondContractIPOType      = 34
	EndResponseType             = 35
	ProcessSpecialCommandType   = 255
)

// envelope sizes
const (
	HeaderSize     = 8
	MaxMessageSize = 1<<24 - 1
)

// Header - envelope in front of every message
//
// Size counts the header itself; a zero Dejavu asks receivers not to
// deduplicate the message
type Header struct {
	Size   uint32
	Type   uint8
	Dejavu uint32
}

// PackInto - write the 8 header bytes to the front of a buffer
func (h Header) PackInto(buffer []byte) {
	buffer[0] = byte(h.Size)
	buffer[1] = byte(h.Size >> 8)
	buffer[2] = byte(h.Size >> 16)
	buffer[3] = h.Type
	binary.LittleEndian.PutUint32(buffer[4:], h.Dejavu)
}

// UnpackHeader - read and validate a header
func UnpackHeader(buffer []byte) (Header, error) {
	if len(buffer) < HeaderSize {
		return Header{}, fault.ErrMessageTooShort
	}
	h := Header{
		Size:   uint32(buffer[0]) | uint32(buffer[1])<<8 | uint32(buffer[2])<<16,
		Type:   buffer[3],
		Dejavu: binary.LittleEndian.Uint32(buffer[4:]),
	}
	if h.Size < HeaderSize {
		return Header{}, fault.ErrInvalidMessageSize
	}
	return h, nil
}

// Frame - header followed by payload
func Frame(messageType uint8, dejavu uint32, payload []byte) ([]byte, error) {
	size := HeaderSize + len(payload)
	if size > MaxMessageSize {
		return nil, fault.ErrInvalidMessageSize
	}
	buffer := make([]byte, size)
	Header{
		Size:   uint32(size),
		Type:   messageType,
		Dejavu: dejavu,
	}.PackInto(buffer)
	copy(buffer[HeaderSize:], payload)
	return buffer, nil
}

// FrameMessage - frame a typed message
func FrameMessage(m Message, dejavu uint32) ([]byte, error) {
	return Frame(m.Type(), dejavu, m.Pack())
}
