// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// operator command types, carried in the top byte of the nonce
const (
	GetProposalAndBallotCommand = 1
	SetProposalAndBallotCommand = 2
)

// sizes of the command bodies
const (
	ProposalURISize       = 255
	getProposalSize       = 2
	proposalBodySize      = 2 + ProposalURISize + 1
	minSpecialCommandSize = 8 + cryptography.SignatureSize

	nonceMask = 1<<56 - 1
)

// SpecialCommand - an operator command signed by the operator key
type SpecialCommand struct {
	NonceAndType uint64
	Body         []byte
	Signature    cryptography.Signature
}

// NewSpecialCommand - combine nonce and command type
func NewSpecialCommand(command uint8, nonce uint64, body []byte) *SpecialCommand {
	return &SpecialCommand{
		NonceAndType: uint64(command)<<56 | nonce&nonceMask,
		Body:         body,
	}
}

// Type - message type
func (s *SpecialCommand) Type() uint8 { return ProcessSpecialCommandType }

// Command - command type
func (s *SpecialCommand) Command() uint8 {
	return uint8(s.NonceAndType >> 56)
}

// Nonce - the ever increasing part
func (s *SpecialCommand) Nonce() uint64 {
	return s.NonceAndType & nonceMask
}

// Pack - variable size payload
func (s *SpecialCommand) Pack() []byte {
	buffer := make([]byte, minSpecialCommandSize+len(s.Body))
	binary.LittleEndian.PutUint64(buffer, s.NonceAndType)
	n := 8 + copy(buffer[8:], s.Body)
	copy(buffer[n:], s.Signature[:])
	return buffer
}

// UnpackSpecialCommand - decode a signed command
func UnpackSpecialCommand(payload []byte) (*SpecialCommand, error) {
	if len(payload) < minSpecialCommandSize {
		return nil, fault.ErrInvalidMessageSize
	}
	end := len(payload) - cryptography.SignatureSize
	s := &SpecialCommand{
		NonceAndType: binary.LittleEndian.Uint64(payload),
		Body:         append([]byte{}, payload[8:end]...),
	}
	copy(s.Signature[:], payload[end:])
	return s, nil
}

// SigningDigest - hash of every byte before the signature
func (s *SpecialCommand) SigningDigest(hasher merkle.Hasher) merkle.Digest {
	buffer := s.Pack()
	return hasher.Hash32(buffer[:len(buffer)-cryptography.SignatureSize])
}

// Sign - fill in the operator signature
func (s *SpecialCommand) Sign(c cryptography.Crypto, subseed cryptography.Subseed, operator cryptography.PublicKey) {
	s.Signature = c.Sign(subseed, operator, s.SigningDigest(c))
}

// Verify - check the operator signature
func (s *SpecialCommand) Verify(c cryptography.Crypto, operator cryptography.PublicKey) bool {
	return c.Verify(operator, s.SigningDigest(c), s.Signature)
}

// Response - the unsigned echo sent back to the operator
func (s *SpecialCommand) Response(body []byte) ([]byte, error) {
	buffer := make([]byte, 8+len(body))
	binary.LittleEndian.PutUint64(buffer, s.NonceAndType)
	copy(buffer[8:], body)
	return Frame(ProcessSpecialCommandType, 0, buffer)
}

// ParseSpecialResponse - split an operator response payload
func ParseSpecialResponse(payload []byte) (uint64, []byte, error) {
	if len(payload) < 8 {
		return 0, nil, fault.ErrInvalidMessageSize
	}
	return binary.LittleEndian.Uint64(payload), payload[8:], nil
}

// ProposalBody - computor proposal and ballot as carried by the
// proposal commands and their responses
type ProposalBody struct {
	ComputorIndex uint16
	URI           [ProposalURISize]byte
	Ballot        uint8
}

// Pack - fixed size body
func (p *ProposalBody) Pack() []byte {
	buffer := make([]byte, proposalBodySize)
	binary.LittleEndian.PutUint16(buffer, p.ComputorIndex)
	copy(buffer[2:], p.URI[:])
	buffer[2+ProposalURISize] = p.Ballot
	return buffer
}

// UnpackProposalBody - decode a set command or response body
func UnpackProposalBody(body []byte) (*ProposalBody, error) {
	if proposalBodySize != len(body) {
		return nil, fault.ErrInvalidMessageSize
	}
	p := &ProposalBody{
		ComputorIndex: binary.LittleEndian.Uint16(body),
		Ballot:        body[2+ProposalURISize],
	}
	copy(p.URI[:], body[2:])
	return p, nil
}

// GetProposalBody - body of a get command
func GetProposalBody(computorIndex uint16) []byte {
	buffer := make([]byte, getProposalSize)
	binary.LittleEndian.PutUint16(buffer, computorIndex)
	return buffer
}

// UnpackGetProposalBody - computor index of a get command
func UnpackGetProposalBody(body []byte) (uint16, error) {
	if getProposalSize != len(body) {
		return 0, fault.ErrInvalidMessageSize
	}
	return binary.LittleEndian.Uint16(body), nil
}
