// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package system

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// Version - current layout of the persisted blob
const Version = 1

// sizes of the variable parts
const (
	ProposalURISize = 255
	MaxSolutions    = 65536
	solutionSize    = cryptography.PublicKeySize + merkle.DigestLength + 4
)

// Proposal - one computor's governance proposal and its ballot
type Proposal struct {
	URI    [ProposalURISize]byte
	Ballot uint8
}

// Solution - a recorded mining solution
type Solution struct {
	ComputorPublicKey cryptography.PublicKey
	Nonce             merkle.Digest
	Score             uint32
}

// System - process wide consensus state
//
// fields are accessed under the embedded lock; the tick thread is the
// only writer of the tick counters
type System struct {
	sync.RWMutex

	Epoch             uint16
	Tick              uint32
	InitialTick       uint32
	LatestCreatedTick uint32
	EpochStart        civil.Time
	OperatorNonce     uint64

	ComputorsEpoch  uint16
	Computors       [constants.NumberOfComputors]cryptography.PublicKey
	FutureComputors [constants.NumberOfComputors]cryptography.PublicKey

	Proposals   [constants.NumberOfComputors]Proposal
	FeeReserves [constants.MaxNumberOfContracts]int64
	Solutions   []Solution

	// weighted count of aligned votes, the basis of epoch revenue
	RevenuePoints [constants.NumberOfComputors]uint64

	// number of transactions of each tick since InitialTick
	TickTransactionCounts []uint16
}

// New - empty state for a first epoch
func New(epoch uint16, initialTick uint32, start civil.Time) *System {
	return &System{
		Epoch:       epoch,
		Tick:        initialTick,
		InitialTick: initialTick,
		EpochStart:  start,
	}
}

// fixed part offsets
const (
	versionOffset           = 0
	epochOffset             = versionOffset + 2
	tickOffset              = epochOffset + 2
	initialTickOffset       = tickOffset + 4
	latestCreatedTickOffset = initialTickOffset + 4
	epochStartOffset        = latestCreatedTickOffset + 4
	operatorNonceOffset     = epochStartOffset + civil.Size
	computorsEpochOffset    = operatorNonceOffset + 8
	computorsOffset         = computorsEpochOffset + 2
	futureComputorsOffset   = computorsOffset + constants.NumberOfComputors*cryptography.PublicKeySize
	proposalsOffset         = futureComputorsOffset + constants.NumberOfComputors*cryptography.PublicKeySize
	feeReservesOffset       = proposalsOffset + constants.NumberOfComputors*(ProposalURISize+1)
	revenuePointsOffset     = feeReservesOffset + constants.MaxNumberOfContracts*8
	solutionCountOffset     = revenuePointsOffset + constants.NumberOfComputors*8
	fixedSize               = solutionCountOffset + 4
)

// Pack - persistent form
func (s *System) Pack() []byte {
	s.RLock()
	defer s.RUnlock()

	size := fixedSize + len(s.Solutions)*solutionSize + 4 + 2*len(s.TickTransactionCounts)
	buffer := make([]byte, size)

	binary.LittleEndian.PutUint16(buffer[versionOffset:], Version)
	binary.LittleEndian.PutUint16(buffer[epochOffset:], s.Epoch)
	binary.LittleEndian.PutUint32(buffer[tickOffset:], s.Tick)
	binary.LittleEndian.PutUint32(buffer[initialTickOffset:], s.InitialTick)
	binary.LittleEndian.PutUint32(buffer[latestCreatedTickOffset:], s.LatestCreatedTick)
	s.EpochStart.PackInto(buffer[epochStartOffset:])
	binary.LittleEndian.PutUint64(buffer[operatorNonceOffset:], s.OperatorNonce)
	binary.LittleEndian.PutUint16(buffer[computorsEpochOffset:], s.ComputorsEpoch)

	n := computorsOffset
	for i := range s.Computors {
		n += copy(buffer[n:], s.Computors[i][:])
	}
	for i := range s.FutureComputors {
		n += copy(buffer[n:], s.FutureComputors[i][:])
	}
	for i := range s.Proposals {
		n += copy(buffer[n:], s.Proposals[i].URI[:])
		buffer[n] = s.Proposals[i].Ballot
		n += 1
	}
	for _, f := range s.FeeReserves {
		binary.LittleEndian.PutUint64(buffer[n:], uint64(f))
		n += 8
	}
	for _, r := range s.RevenuePoints {
		binary.LittleEndian.PutUint64(buffer[n:], r)
		n += 8
	}

	binary.LittleEndian.PutUint32(buffer[n:], uint32(len(s.Solutions)))
	n += 4
	for _, solution := range s.Solutions {
		n += copy(buffer[n:], solution.ComputorPublicKey[:])
		n += copy(buffer[n:], solution.Nonce[:])
		binary.LittleEndian.PutUint32(buffer[n:], solution.Score)
		n += 4
	}

	binary.LittleEndian.PutUint32(buffer[n:], uint32(len(s.TickTransactionCounts)))
	n += 4
	for _, c := range s.TickTransactionCounts {
		binary.LittleEndian.PutUint16(buffer[n:], c)
		n += 2
	}
	return buffer
}

// Unpack - restore from the persistent form
func Unpack(buffer []byte) (*System, error) {
	if len(buffer) < fixedSize+4 {
		return nil, fault.ErrRecordTruncated
	}
	if Version != binary.LittleEndian.Uint16(buffer[versionOffset:]) {
		return nil, fault.ErrUnsupportedSystemVersion
	}

	start, err := civil.Unpack(buffer[epochStartOffset:])
	if nil != err {
		return nil, err
	}

	s := &System{
		Epoch:             binary.LittleEndian.Uint16(buffer[epochOffset:]),
		Tick:              binary.LittleEndian.Uint32(buffer[tickOffset:]),
		InitialTick:       binary.LittleEndian.Uint32(buffer[initialTickOffset:]),
		LatestCreatedTick: binary.LittleEndian.Uint32(buffer[latestCreatedTickOffset:]),
		EpochStart:        start,
		OperatorNonce:     binary.LittleEndian.Uint64(buffer[operatorNonceOffset:]),
		ComputorsEpoch:    binary.LittleEndian.Uint16(buffer[computorsEpochOffset:]),
	}

	n := computorsOffset
	for i := range s.Computors {
		n += copy(s.Computors[i][:], buffer[n:])
	}
	for i := range s.FutureComputors {
		n += copy(s.FutureComputors[i][:], buffer[n:])
	}
	for i := range s.Proposals {
		n += copy(s.Proposals[i].URI[:], buffer[n:])
		s.Proposals[i].Ballot = buffer[n]
		n += 1
	}
	for i := range s.FeeReserves {
		s.FeeReserves[i] = int64(binary.LittleEndian.Uint64(buffer[n:]))
		n += 8
	}
	for i := range s.RevenuePoints {
		s.RevenuePoints[i] = binary.LittleEndian.Uint64(buffer[n:])
		n += 8
	}

	count := int(binary.LittleEndian.Uint32(buffer[n:]))
	n += 4
	if count > MaxSolutions || len(buffer) < n+count*solutionSize+4 {
		return nil, fault.ErrRecordTruncated
	}
	s.Solutions = make([]Solution, count)
	for i := range s.Solutions {
		n += copy(s.Solutions[i].ComputorPublicKey[:], buffer[n:])
		n += copy(s.Solutions[i].Nonce[:], buffer[n:])
		s.Solutions[i].Score = binary.LittleEndian.Uint32(buffer[n:])
		n += 4
	}

	count = int(binary.LittleEndian.Uint32(buffer[n:]))
	n += 4
	if len(buffer) != n+2*count {
		return nil, fault.ErrRecordTruncated
	}
	s.TickTransactionCounts = make([]uint16, count)
	for i := range s.TickTransactionCounts {
		s.TickTransactionCounts[i] = binary.LittleEndian.Uint16(buffer[n:])
		n += 2
	}
	return s, nil
}

// AddSolution - record a solution once
//
// returns false for a repeat or when the list is full
func (s *System) AddSolution(solution Solution) bool {
	s.Lock()
	defer s.Unlock()

	if len(s.Solutions) >= MaxSolutions {
		return false
	}
	for _, existing := range s.Solutions {
		if existing.ComputorPublicKey == solution.ComputorPublicKey && existing.Nonce == solution.Nonce {
			return false
		}
	}
	s.Solutions = append(s.Solutions, solution)
	return true
}

// AcceptOperatorNonce - special commands carry an ever increasing nonce
func (s *System) AcceptOperatorNonce(nonce uint64) bool {
	s.Lock()
	defer s.Unlock()

	if nonce <= s.OperatorNonce {
		return false
	}
	s.OperatorNonce = nonce
	return true
}

// SetProposal - replace a computor's proposal and ballot
func (s *System) SetProposal(computorIndex uint, proposal Proposal) error {
	if computorIndex >= constants.NumberOfComputors {
		return fault.ErrInvalidComputorIndex
	}
	s.Lock()
	s.Proposals[computorIndex] = proposal
	s.Unlock()
	return nil
}

// Proposal - a computor's proposal and ballot
func (s *System) Proposal(computorIndex uint) (Proposal, error) {
	if computorIndex >= constants.NumberOfComputors {
		return Proposal{}, fault.ErrInvalidComputorIndex
	}
	s.RLock()
	defer s.RUnlock()
	return s.Proposals[computorIndex], nil
}

// RecordTickTransactions - count of a processed tick, used for revenue
func (s *System) RecordTickTransactions(tick uint32, count uint16) {
	s.Lock()
	defer s.Unlock()

	if tick < s.InitialTick {
		return
	}
	offset := int(tick - s.InitialTick)
	for len(s.TickTransactionCounts) <= offset {
		s.TickTransactionCounts = append(s.TickTransactionCounts, 0)
	}
	s.TickTransactionCounts[offset] = count
}

// Computor - public key of the computor at an index in the current epoch
func (s *System) Computor(index uint) (cryptography.PublicKey, bool) {
	if index >= constants.NumberOfComputors {
		return cryptography.PublicKey{}, false
	}
	s.RLock()
	defer s.RUnlock()
	return s.Computors[index], !s.Computors[index].IsZero()
}

// ComputorIndex - index of a public key in the current committee
func (s *System) ComputorIndex(publicKey cryptography.PublicKey) (uint, bool) {
	if publicKey.IsZero() {
		return 0, false
	}
	s.RLock()
	defer s.RUnlock()
	for i := range s.Computors {
		if s.Computors[i] == publicKey {
			return uint(i), true
		}
	}
	return 0, false
}

// SetComputors - install the committee announced for an epoch
func (s *System) SetComputors(epoch uint16, publicKeys [constants.NumberOfComputors]cryptography.PublicKey) {
	s.Lock()
	defer s.Unlock()
	s.ComputorsEpoch = epoch
	s.Computors = publicKeys
}

// AddFeeReserve - credit a contract's fee reserve
func (s *System) AddFeeReserve(contractIndex uint, amount int64) {
	if contractIndex >= constants.MaxNumberOfContracts {
		return
	}
	s.Lock()
	s.FeeReserves[contractIndex] += amount
	s.Unlock()
}

// CurrentTick - epoch and tick under the lock
func (s *System) CurrentTick() (uint16, uint32) {
	s.RLock()
	defer s.RUnlock()
	return s.Epoch, s.Tick
}

// SetFutureComputors - install the committee announced for the next epoch
func (s *System) SetFutureComputors(publicKeys [constants.NumberOfComputors]cryptography.PublicKey) {
	s.Lock()
	s.FutureComputors = publicKeys
	s.Unlock()
}

// AddRevenuePoints - credit the computors of an agreed tick
func (s *System) AddRevenuePoints(computorIndices []uint, points uint64) {
	s.Lock()
	defer s.Unlock()
	for _, i := range computorIndices {
		if i < constants.NumberOfComputors {
			s.RevenuePoints[i] += points
		}
	}
}

// BeginEpoch - move to the next epoch starting at a tick
//
// the announced future committee replaces the current one when there
// is one; per epoch records are cleared
func (s *System) BeginEpoch(initialTick uint32, start civil.Time) {
	s.Lock()
	defer s.Unlock()

	s.Epoch += 1
	s.Tick = initialTick
	s.InitialTick = initialTick
	s.EpochStart = start

	empty := [constants.NumberOfComputors]cryptography.PublicKey{}
	if s.FutureComputors != empty {
		s.Computors = s.FutureComputors
		s.ComputorsEpoch = s.Epoch
		s.FutureComputors = empty
	}

	s.Solutions = nil
	s.TickTransactionCounts = nil
	s.RevenuePoints = [constants.NumberOfComputors]uint64{}
}

// SetTick - advance the current tick
func (s *System) SetTick(tick uint32) {
	s.Lock()
	s.Tick = tick
	s.Unlock()
}
