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
)

const (
	respondIPOKeysOffset   = 8
	respondIPOPricesOffset = respondIPOKeysOffset + constants.ContractIPOShares*cryptography.PublicKeySize

	// RespondContractIPOSize - bytes in an IPO response
	RespondContractIPOSize = respondIPOPricesOffset + constants.ContractIPOShares*8
)

// RespondContractIPO - the retained bids of a contract IPO
type RespondContractIPO struct {
	ContractIndex uint32
	Tick          uint32
	PublicKeys    [constants.ContractIPOShares]cryptography.PublicKey
	Prices        [constants.ContractIPOShares]int64
}

// Type - message type
func (r *RespondContractIPO) Type() uint8 { return RespondContractIPOType }

// Pack - fixed size payload
func (r *RespondContractIPO) Pack() []byte {
	buffer := make([]byte, RespondContractIPOSize)
	binary.LittleEndian.PutUint32(buffer[0:], r.ContractIndex)
	binary.LittleEndian.PutUint32(buffer[4:], r.Tick)
	n := respondIPOKeysOffset
	for i := range r.PublicKeys {
		n += copy(buffer[n:], r.PublicKeys[i][:])
	}
	for _, p := range r.Prices {
		binary.LittleEndian.PutUint64(buffer[n:], uint64(p))
		n += 8
	}
	return buffer
}

// UnpackRespondContractIPO - decode
func UnpackRespondContractIPO(payload []byte) (*RespondContractIPO, error) {
	if RespondContractIPOSize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	r := &RespondContractIPO{
		ContractIndex: binary.LittleEndian.Uint32(payload[0:]),
		Tick:          binary.LittleEndian.Uint32(payload[4:]),
	}
	n := respondIPOKeysOffset
	for i := range r.PublicKeys {
		n += copy(r.PublicKeys[i][:], payload[n:])
	}
	for i := range r.Prices {
		r.Prices[i] = int64(binary.LittleEndian.Uint64(payload[n:]))
		n += 8
	}
	return r, nil
}
