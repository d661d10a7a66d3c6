// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"github.com/bitmark-inc/quorumd/fault"
)

// Message - a decoded payload
type Message interface {
	Type() uint8
	Pack() []byte
}

// Decode - turn a payload into the typed message for its header type
func Decode(messageType uint8, payload []byte) (Message, error) {
	var m Message
	var err error

	switch messageType {
	case ExchangePublicPeersType:
		m, err = UnpackExchangePublicPeers(payload)
	case BroadcastMessageType:
		m, err = UnpackBroadcastMessage(payload)
	case BroadcastComputorsType:
		m, err = UnpackComputors(payload)
	case BroadcastTickType:
		m, err = UnpackTick(payload)
	case BroadcastFutureTickDataType:
		m, err = UnpackTickData(payload)
	case RequestComputorsType:
		m, err = emptyMessage(payload, &RequestComputors{})
	case RequestQuorumTickType:
		m, err = UnpackRequestQuorumTick(payload)
	case RequestTickDataType:
		m, err = UnpackRequestTickData(payload)
	case BroadcastTransactionType:
		m, err = UnpackTransaction(payload)
	case RequestCurrentTickInfoType:
		m, err = emptyMessage(payload, &RequestCurrentTickInfo{})
	case RespondCurrentTickInfoType:
		m, err = UnpackCurrentTickInfo(payload)
	case RequestTickTransactionsType:
		m, err = UnpackRequestTickTransactions(payload)
	case RequestEntityType:
		m, err = UnpackRequestEntity(payload)
	case RespondEntityType:
		m, err = UnpackRespondEntity(payload)
	case RequestContractIPOType:
		m, err = UnpackRequestContractIPO(payload)
	case RespondContractIPOType:
		m, err = UnpackRespondContractIPO(payload)
	case EndResponseType:
		m, err = emptyMessage(payload, &EndResponse{})
	case ProcessSpecialCommandType:
		m, err = UnpackSpecialCommand(payload)
	default:
		return nil, fault.ErrUnknownMessageType
	}

	if nil != err {
		return nil, err
	}
	return m, nil
}

func emptyMessage(payload []byte, m Message) (Message, error) {
	if 0 != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	return m, nil
}

// RequestComputors - ask for the current committee
type RequestComputors struct{}

// Type - message type
func (*RequestComputors) Type() uint8 { return RequestComputorsType }

// Pack - no payload
func (*RequestComputors) Pack() []byte { return nil }

// RequestCurrentTickInfo - ask for the node's tick status
type RequestCurrentTickInfo struct{}

// Type - message type
func (*RequestCurrentTickInfo) Type() uint8 { return RequestCurrentTickInfoType }

// Pack - no payload
func (*RequestCurrentTickInfo) Pack() []byte { return nil }

// EndResponse - terminates a multi record response
type EndResponse struct{}

// Type - message type
func (*EndResponse) Type() uint8 { return EndResponseType }

// Pack - no payload
func (*EndResponse) Pack() []byte { return nil }
