// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"time"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/request"
)

// maximum transactions a leader puts into one tick data
const proposalLimit = constants.NumberOfTransactionsPerTick

// digest bound to the voting computor
func salted(c cryptography.Crypto, publicKey cryptography.PublicKey, digest merkle.Digest) merkle.Digest {
	var buffer [2 * merkle.DigestLength]byte
	copy(buffer[:], publicKey[:])
	copy(buffer[merkle.DigestLength:], digest[:])
	return c.Hash64to32(&buffer)
}

// build the vote of one computor on the current tick
func (e *Engine) ballot(computorIndex uint, publicKey cryptography.PublicKey) *protocol.Tick {
	epoch, current := e.System.CurrentTick()

	t := &protocol.Tick{
		ComputorIndex:        uint16(computorIndex),
		Epoch:                epoch,
		Tick:                 current,
		Time:                 e.tickTime,
		PrevSpectrumDigest:   e.prev[0],
		PrevUniverseDigest:   e.prev[1],
		PrevComputerDigest:   e.prev[2],
		SaltedSpectrumDigest: salted(e.Crypto, publicKey, e.post[0]),
		SaltedUniverseDigest: salted(e.Crypto, publicKey, e.post[1]),
		SaltedComputerDigest: salted(e.Crypto, publicKey, e.post[2]),
		TransactionDigest:    e.dataDigest,
	}
	if next, ok := e.TickData.Get(current + 1); ok {
		t.ExpectedNextTickTransactionDigest = next.Digest(e.Crypto)
	}
	return t
}

// sign, store and broadcast the votes of the local computors, then
// propose tick data for any tick a local computor leads
func (e *Engine) vote() {
	e.essence = e.ballot(0, cryptography.PublicKey{}).Essence(e.Crypto)

	for _, c := range e.computors {
		index, ok := e.System.ComputorIndex(c.PublicKey)
		if !ok {
			continue
		}
		t := e.ballot(index, c.PublicKey)
		t.Sign(e.Crypto, c.Subseed, c.PublicKey)
		if _, err := e.Votes.Store(t); nil != err {
			e.log.Errorf("tick: %d  computor: %d  vote error: %s", t.Tick, index, err)
			continue
		}
		e.broadcast(t, request.NewDejavu())
	}

	e.propose()
}

func (e *Engine) propose() {
	epoch, current := e.System.CurrentTick()
	target := current + constants.TickTransactionsPublicationOffset
	leader := uint(target) % constants.NumberOfComputors

	if e.TickData.Has(target) {
		return
	}
	for _, c := range e.computors {
		index, ok := e.System.ComputorIndex(c.PublicKey)
		if !ok || index != leader {
			continue
		}

		data := &protocol.TickData{
			ComputorIndex: uint16(index),
			Epoch:         epoch,
			Tick:          target,
			Time:          civil.FromTime(time.Now().UTC()),
			Timelock:      e.essence,
		}
		for i, d := range e.Pool.ForTick(target, proposalLimit) {
			data.TransactionDigests[i] = d
		}
		data.Sign(e.Crypto, c.Subseed, c.PublicKey)

		if _, err := e.TickData.Store(data); nil != err {
			e.log.Errorf("tick: %d  proposal error: %s", target, err)
			return
		}
		e.System.Lock()
		e.System.LatestCreatedTick = target
		e.System.Unlock()

		e.broadcast(data, request.NewDejavu())
		e.log.Infof("tick: %d  proposed transactions: %d", target, data.NumberOfTransactions())
		return
	}
}

// check whether a quorum of the non-faulty votes agrees with the local
// outcome; dissenters of an agreed tick are flagged as faulty
func (e *Engine) quorum() bool {
	_, current := e.System.CurrentTick()

	votes := e.Votes.Tick(current)
	groups := make(map[merkle.Digest][]uint)
	for i := range votes {
		index := uint(votes[i].ComputorIndex)
		if e.Faulty(index) {
			continue
		}
		essence := votes[i].Essence(e.Crypto)
		groups[essence] = append(groups[essence], index)
	}

	majority := merkle.Digest{}
	highest := 0
	total := 0
	for essence, members := range groups {
		total += len(members)
		if len(members) > highest {
			majority = essence
			highest = len(members)
		}
	}

	e.Lock()
	e.aligned = uint16(len(groups[e.essence]))
	e.misaligned = uint16(total) - e.aligned
	e.tickNumberOfComputors = 0
	if highest >= constants.Quorum && majority == e.essence {
		e.tickNumberOfComputors = uint16(highest)
	}
	e.Unlock()

	if highest < constants.Quorum {
		e.requestVotes(current)
		return false
	}
	if majority != e.essence {
		e.Misaligned.Increment()
		e.log.Warnf("tick: %d  misaligned: local: %s  majority: %s  votes: %d", current, e.essence, majority, highest)
		return false
	}

	for essence, members := range groups {
		if essence == majority {
			continue
		}
		for _, index := range members {
			e.Flag(index)
		}
	}
	e.System.AddRevenuePoints(groups[majority], revenueWeight(e.transactionCount()))
	return true
}

// a vote of the agreeing majority
func (e *Engine) majorityVote(t uint32) (protocol.Tick, bool) {
	votes := e.Votes.Tick(t)
	for i := range votes {
		if votes[i].Essence(e.Crypto) == e.essence {
			return votes[i], true
		}
	}
	return protocol.Tick{}, false
}
