// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/spectrum"
)

const (
	respondEntityTickOffset     = spectrum.EntitySize
	respondEntityIndexOffset    = respondEntityTickOffset + 4
	respondEntitySiblingsOffset = respondEntityIndexOffset + 4

	// RespondEntitySize - bytes in an entity response
	RespondEntitySize = respondEntitySiblingsOffset + constants.SpectrumDepth*merkle.DigestLength
)

// RespondEntity - an entity with its proof against the spectrum digest
//
// SpectrumIndex is -1 for an unknown key; unused upper siblings of a
// smaller spectrum are zero
type RespondEntity struct {
	Entity        spectrum.Entity
	Tick          uint32
	SpectrumIndex int32
	Siblings      [constants.SpectrumDepth]merkle.Digest
}

// Type - message type
func (r *RespondEntity) Type() uint8 { return RespondEntityType }

// Pack - fixed size payload
func (r *RespondEntity) Pack() []byte {
	buffer := make([]byte, RespondEntitySize)
	r.Entity.PackInto(buffer)
	binary.LittleEndian.PutUint32(buffer[respondEntityTickOffset:], r.Tick)
	binary.LittleEndian.PutUint32(buffer[respondEntityIndexOffset:], uint32(r.SpectrumIndex))
	n := respondEntitySiblingsOffset
	for i := range r.Siblings {
		n += copy(buffer[n:], r.Siblings[i][:])
	}
	return buffer
}

// UnpackRespondEntity - decode
func UnpackRespondEntity(payload []byte) (*RespondEntity, error) {
	if RespondEntitySize != len(payload) {
		return nil, fault.ErrInvalidMessageSize
	}
	entity, err := spectrum.Unpack(payload)
	if nil != err {
		return nil, err
	}
	r := &RespondEntity{
		Entity:        *entity,
		Tick:          binary.LittleEndian.Uint32(payload[respondEntityTickOffset:]),
		SpectrumIndex: int32(binary.LittleEndian.Uint32(payload[respondEntityIndexOffset:])),
	}
	n := respondEntitySiblingsOffset
	for i := range r.Siblings {
		n += copy(r.Siblings[i][:], payload[n:])
	}
	return r, nil
}
