// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/contract"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/mode"
	"github.com/bitmark-inc/quorumd/protocol"
)

// decide the transaction set of the current tick and make sure every
// part of it is held locally
func (e *Engine) collect() bool {
	_, current := e.System.CurrentTick()

	digest, decided := e.transactionDigest(current)
	if !decided {
		e.requestVotes(current - 1)
		e.requestVotes(current)
		return false
	}

	if digest.IsZero() {
		e.data = nil
		e.dataDigest = merkle.Digest{}
		return true
	}

	data, ok := e.TickData.Get(current)
	if !ok || data.Digest(e.Crypto) != digest {
		e.log.Debugf("tick: %d  missing tick data: %s", current, digest)
		e.Mode.Set(mode.Synchronising)
		e.request(&protocol.RequestTickData{Tick: current})
		return false
	}

	r := &protocol.RequestTickTransactions{Tick: current}
	missing := 0
	for i, d := range data.TransactionDigests {
		if d.IsZero() {
			continue
		}
		if _, ok := e.Pool.Get(d); ok {
			r.TransactionFlags[i>>3] |= 1 << (uint(i) & 7)
		} else {
			missing += 1
		}
	}
	if missing > 0 {
		e.log.Debugf("tick: %d  missing transactions: %d", current, missing)
		e.Mode.Set(mode.Synchronising)
		e.request(r)
		return false
	}

	e.data = data
	e.dataDigest = digest
	return true
}

// ask peers for the votes of a tick not yet held
func (e *Engine) requestVotes(t uint32) {
	if t < e.initialTick() {
		return
	}
	e.request(&protocol.RequestQuorumTick{Tick: t, VoteFlags: e.Votes.Flags(t)})
}

func (e *Engine) initialTick() uint32 {
	e.System.RLock()
	defer e.System.RUnlock()
	return e.System.InitialTick
}

// transaction digest of a tick as settled by the votes
//
// the initial tick of an epoch is always empty; otherwise a quorum on
// the tick's own votes decides, then a quorum on the expectation carried
// by the previous tick's votes, and the tick is empty once no non-empty
// expectation can still reach a quorum
func (e *Engine) transactionDigest(t uint32) (merkle.Digest, bool) {
	if t <= e.initialTick() {
		return merkle.Digest{}, true
	}

	if d, n := e.plurality(t, func(vote *protocol.Tick) merkle.Digest { return vote.TransactionDigest }); n >= constants.Quorum {
		return d, true
	}

	expected := make(map[merkle.Digest]int)
	votes := e.Votes.Tick(t - 1)
	for i := range votes {
		if e.Faulty(uint(votes[i].ComputorIndex)) {
			continue
		}
		expected[votes[i].ExpectedNextTickTransactionDigest] += 1
	}

	highest := 0
	for d, n := range expected {
		if d.IsZero() {
			continue
		}
		if n >= constants.Quorum {
			return d, true
		}
		if n > highest {
			highest = n
		}
	}
	if highest+constants.NumberOfComputors-len(votes) < constants.Quorum {
		return merkle.Digest{}, true
	}
	return merkle.Digest{}, false
}

// most common value of a field over the non-faulty votes of a tick
func (e *Engine) plurality(t uint32, field func(*protocol.Tick) merkle.Digest) (merkle.Digest, int) {
	counts := make(map[merkle.Digest]int)
	best := merkle.Digest{}
	highest := 0
	votes := e.Votes.Tick(t)
	for i := range votes {
		if e.Faulty(uint(votes[i].ComputorIndex)) {
			continue
		}
		d := field(&votes[i])
		counts[d] += 1
		if counts[d] > highest {
			best = d
			highest = counts[d]
		}
	}
	return best, highest
}

// run the tick: BEGIN_TICK, the transactions in slot order, END_TICK
func (e *Engine) digest() {
	epoch, current := e.System.CurrentTick()

	e.prev = e.digests()

	switch {
	case nil != e.data:
		e.tickTime = e.data.Time
	case !e.lastTime.IsZero():
		e.tickTime = e.lastTime
	default:
		e.tickTime = e.epochStart()
	}

	e.Contracts.RunPhase(contract.BeginTick, epoch, current)
	count := e.execute(epoch, current)
	e.Contracts.RunPhase(contract.EndTick, epoch, current)
	e.System.RecordTickTransactions(current, count)

	e.post = e.digests()
}

func (e *Engine) digests() [3]merkle.Digest {
	return [3]merkle.Digest{
		e.Spectrum.Digest(),
		e.Universe.Digest(),
		e.Contracts.Digest(),
	}
}

// apply the transactions of the adopted tick data
func (e *Engine) execute(epoch uint16, current uint32) uint16 {
	if nil == e.data {
		return 0
	}

	count := uint16(0)
	for _, d := range e.data.TransactionDigests {
		if d.IsZero() {
			continue
		}
		tx, ok := e.Pool.Get(d)
		if !ok || tx.Tick != current {
			continue
		}
		count += 1
		e.apply(tx, epoch, current)
	}
	e.Transactions.Add(uint64(count))
	return count
}

// a transaction whose source cannot pay is skipped
func (e *Engine) apply(tx *protocol.Transaction, epoch uint16, current uint32) {
	log := e.log

	slot, ok := e.Spectrum.Find(tx.SourcePublicKey)
	if !ok {
		log.Debugf("tick: %d  unknown source: %s", current, tx.SourcePublicKey)
		return
	}
	if tx.Amount > 0 {
		if !e.Spectrum.Debit(slot, tx.Amount, current) {
			log.Debugf("tick: %d  insufficient balance: %s", current, tx.SourcePublicKey)
			return
		}
		if _, err := e.Spectrum.Credit(tx.DestinationPublicKey, tx.Amount, current); nil != err {
			log.Errorf("tick: %d  credit: %s  error: %s", current, tx.DestinationPublicKey, err)
			return
		}
	}

	index, ok := cryptography.ContractIndex(tx.DestinationPublicKey, constants.MaxNumberOfContracts)
	if !ok {
		return
	}
	if _, ok := e.Contracts.Contract(index); !ok {
		return
	}

	if e.Contracts.InIPO(index, epoch) && contract.BidInputType == tx.InputType {
		price, quantity, err := contract.ParseBid(tx.Input)
		if nil != err {
			log.Debugf("tick: %d  contract: %d  bid error: %s", current, index, err)
			return
		}
		ipo, _ := e.Contracts.IPO(index)
		if _, err := ipo.Bid(e.Spectrum, tx.SourcePublicKey, price, quantity, current); nil != err {
			log.Debugf("tick: %d  contract: %d  bid error: %s", current, index, err)
		}
		return
	}

	err := e.Contracts.Invoke(index, tx.SourcePublicKey, tx.Amount, tx.InputType, tx.Input, epoch, current)
	if nil != err {
		log.Debugf("tick: %d  contract: %d  procedure: %d  error: %s", current, index, tx.InputType, err)
	}
}
