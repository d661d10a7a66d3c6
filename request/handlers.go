// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package request

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/contract"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/spectrum"
	"github.com/bitmark-inc/quorumd/system"
	"github.com/bitmark-inc/quorumd/tick"
	"github.com/bitmark-inc/quorumd/util"
)

// AddressBook - receives peer addresses from exchanges
type AddressBook interface {
	Add(address util.IPv4) bool
}

// Status - source of the current tick information
type Status interface {
	TickInfo() protocol.CurrentTickInfo
}

// Faults - receives computors caught signing conflicting votes
type Faults interface {
	Flag(computorIndex uint)
}

// Dependencies - node state reached by the handlers
type Dependencies struct {
	Crypto     cryptography.Crypto
	System     *system.System
	Spectrum   *spectrum.Store
	Contracts  *contract.Scheduler
	Votes      *tick.Votes
	TickData   *tick.DataStore
	Pool       *tick.Pool
	Score      contract.ScoreOracle
	Addresses  AddressBook
	Status     Status
	Faults     Faults
	Operator   cryptography.PublicKey
	Arbitrator cryptography.PublicKey
}

// Handlers - per type processing of dequeued requests
type Handlers struct {
	Dependencies

	log       *logger.L
	responses *messagebus.Queue
	stats     *Statistics

	// the arbitrator signed committee announcements
	sync.Mutex
	computors map[uint16]*protocol.Computors
}

// NewHandlers - handlers answering onto a response queue
func NewHandlers(dependencies Dependencies, responses *messagebus.Queue, stats *Statistics) *Handlers {
	return &Handlers{
		Dependencies: dependencies,
		log:          logger.New("worker"),
		responses:    responses,
		stats:        stats,
		computors:    make(map[uint16]*protocol.Computors),
	}
}

// Dispatch - process one request
func (h *Handlers) Dispatch(m messagebus.Message) {
	switch item := m.Item.(type) {

	case *protocol.ExchangePublicPeers:
		for _, address := range item.Peers {
			if address.IsPublic() && nil != h.Addresses {
				h.Addresses.Add(address)
			}
		}

	case *protocol.BroadcastMessage:
		if h.broadcastMessage(item) {
			h.rebroadcast(m)
		}

	case *protocol.Computors:
		if h.broadcastComputors(item) {
			h.rebroadcast(m)
		}

	case *protocol.Tick:
		if h.broadcastTick(item) {
			h.rebroadcast(m)
		}

	case *protocol.TickData:
		if h.broadcastTickData(item) {
			h.rebroadcast(m)
		}

	case *protocol.Transaction:
		if h.broadcastTransaction(item) {
			h.rebroadcast(m)
		}

	case *protocol.RequestComputors:
		epoch, _ := h.System.CurrentTick()
		h.Lock()
		c, ok := h.computors[epoch]
		h.Unlock()
		if ok {
			h.respond(m.Peer, c)
		}

	case *protocol.RequestQuorumTick:
		for _, vote := range h.Votes.Tick(item.Tick) {
			if !item.Has(uint(vote.ComputorIndex)) {
				v := vote
				h.respond(m.Peer, &v)
			}
		}
		h.respond(m.Peer, &protocol.EndResponse{})

	case *protocol.RequestTickData:
		if data, ok := h.TickData.Get(item.Tick); ok {
			h.respond(m.Peer, data)
		} else {
			h.respond(m.Peer, &protocol.EndResponse{})
		}

	case *protocol.RequestCurrentTickInfo:
		if nil != h.Status {
			info := h.Status.TickInfo()
			h.respond(m.Peer, &info)
		}

	case *protocol.RequestTickTransactions:
		if data, ok := h.TickData.Get(item.Tick); ok {
			for i, digest := range data.TransactionDigests {
				if digest.IsZero() || item.Has(uint(i)) {
					continue
				}
				if tx, ok := h.Pool.Get(digest); ok {
					h.respond(m.Peer, tx)
				}
			}
		}
		h.respond(m.Peer, &protocol.EndResponse{})

	case *protocol.RequestEntity:
		h.respond(m.Peer, h.entity(item.PublicKey))

	case *protocol.RequestContractIPO:
		if r, ok := h.contractIPO(uint(item.ContractIndex)); ok {
			h.respond(m.Peer, r)
		} else {
			h.respond(m.Peer, &protocol.EndResponse{})
		}

	case *protocol.SpecialCommand:
		h.specialCommand(m.Peer, item)

	default:
		h.log.Debugf("peer: %d  no handler for type: %d", m.Peer, m.Type)
	}
}

func (h *Handlers) invalidSignature(what string) bool {
	h.stats.InvalidSignature.Increment()
	h.log.Debugf("%s: invalid signature", what)
	return false
}

// mining solutions addressed to a computor are scored and recorded
func (h *Handlers) broadcastMessage(b *protocol.BroadcastMessage) bool {
	if !b.Verify(h.Crypto) {
		return h.invalidSignature("broadcast message")
	}
	nonce, ok := b.MiningSolution()
	if !ok || nil == h.Score {
		return true
	}
	if _, ok := h.System.ComputorIndex(b.DestinationPublicKey); !ok {
		return true
	}
	solution := system.Solution{
		ComputorPublicKey: b.DestinationPublicKey,
		Nonce:             nonce,
		Score:             h.Score.Score(b.DestinationPublicKey, nonce),
	}
	if h.System.AddSolution(solution) {
		h.log.Infof("solution: computor: %s  score: %d", solution.ComputorPublicKey, solution.Score)
	}
	return true
}

// committee of this epoch or the next
func (h *Handlers) broadcastComputors(c *protocol.Computors) bool {
	if !c.Verify(h.Crypto, h.Arbitrator) {
		return h.invalidSignature("computors")
	}
	epoch, _ := h.System.CurrentTick()

	h.Lock()
	existing, seen := h.computors[c.Epoch]
	if seen && existing.PublicKeys == c.PublicKeys {
		h.Unlock()
		return false
	}
	switch c.Epoch {
	case epoch:
		h.System.SetComputors(c.Epoch, c.PublicKeys)
	case epoch + 1:
		h.System.SetFutureComputors(c.PublicKeys)
	default:
		h.Unlock()
		return false
	}
	h.computors[c.Epoch] = c
	for e := range h.computors {
		if e < epoch {
			delete(h.computors, e)
		}
	}
	h.Unlock()

	h.log.Infof("computors: epoch: %d", c.Epoch)
	return true
}

// a vote from a member of the current committee
func (h *Handlers) broadcastTick(t *protocol.Tick) bool {
	epoch, _ := h.System.CurrentTick()
	if t.Epoch != epoch {
		return false
	}
	publicKey, ok := h.System.Computor(uint(t.ComputorIndex))
	if !ok {
		return false
	}
	if !t.Verify(h.Crypto, publicKey) {
		return h.invalidSignature("tick")
	}
	stored, err := h.Votes.Store(t)
	if fault.ErrConflictingRecord == err {
		h.log.Warnf("tick: %d  computor: %d  signed a conflicting vote", t.Tick, t.ComputorIndex)
		if nil != h.Faults {
			h.Faults.Flag(uint(t.ComputorIndex))
		}
		return false
	}
	if nil != err {
		h.log.Debugf("tick: %d  computor: %d  error: %s", t.Tick, t.ComputorIndex, err)
		return false
	}
	return stored
}

// tick data must come from the leader of its tick
func (h *Handlers) broadcastTickData(data *protocol.TickData) bool {
	epoch, current := h.System.CurrentTick()
	if data.Epoch != epoch || data.Tick < current {
		return false
	}
	if uint(data.Tick)%constants.NumberOfComputors != uint(data.ComputorIndex) {
		return false
	}
	if err := data.Valid(); nil != err {
		h.log.Warnf("tick data: %d  computor: %d  error: %s", data.Tick, data.ComputorIndex, err)
		return false
	}
	publicKey, ok := h.System.Computor(uint(data.ComputorIndex))
	if !ok {
		return false
	}
	if !data.Verify(h.Crypto, publicKey) {
		return h.invalidSignature("tick data")
	}
	stored, err := h.TickData.Store(data)
	if nil != err {
		h.log.Debugf("tick data: %d  error: %s", data.Tick, err)
		return false
	}
	return stored
}

// only transactions for future ticks are kept
func (h *Handlers) broadcastTransaction(tx *protocol.Transaction) bool {
	if err := tx.Valid(); nil != err {
		return false
	}
	_, current := h.System.CurrentTick()
	if tx.Tick <= current {
		return false
	}
	if !tx.Verify(h.Crypto) {
		return h.invalidSignature("transaction")
	}
	added, err := h.Pool.Add(tx.Digest(h.Crypto), tx)
	if nil != err {
		h.log.Warnf("transaction pool: error: %s", err)
		return false
	}
	return added
}

func (h *Handlers) entity(publicKey cryptography.PublicKey) *protocol.RespondEntity {
	_, current := h.System.CurrentTick()
	r := &protocol.RespondEntity{
		Tick:          current,
		SpectrumIndex: -1,
	}
	r.Entity.PublicKey = publicKey

	entity, slot, siblings, ok := h.Spectrum.Proof(publicKey)
	if ok {
		r.Entity = entity
		r.SpectrumIndex = int32(slot)
		copy(r.Siblings[:], siblings)
	}
	return r
}

func (h *Handlers) contractIPO(index uint) (*protocol.RespondContractIPO, bool) {
	epoch, current := h.System.CurrentTick()
	if nil == h.Contracts || !h.Contracts.InIPO(index, epoch) {
		return nil, false
	}
	ipo, ok := h.Contracts.IPO(index)
	if !ok {
		return nil, false
	}
	r := &protocol.RespondContractIPO{
		ContractIndex: uint32(index),
		Tick:          current,
	}
	r.PublicKeys, r.Prices = ipo.Entries()
	return r, true
}

func (h *Handlers) specialCommand(peer uint64, s *protocol.SpecialCommand) {
	if !s.Verify(h.Crypto, h.Operator) {
		h.invalidSignature("special command")
		return
	}
	if !h.System.AcceptOperatorNonce(s.Nonce()) {
		h.log.Warnf("special command: stale nonce: %d", s.Nonce())
		return
	}

	body := []byte(nil)
	switch s.Command() {

	case protocol.GetProposalAndBallotCommand:
		index, err := protocol.UnpackGetProposalBody(s.Body)
		if nil != err {
			return
		}
		proposal, err := h.System.Proposal(uint(index))
		if nil != err {
			return
		}
		p := &protocol.ProposalBody{
			ComputorIndex: index,
			URI:           proposal.URI,
			Ballot:        proposal.Ballot,
		}
		body = p.Pack()

	case protocol.SetProposalAndBallotCommand:
		p, err := protocol.UnpackProposalBody(s.Body)
		if nil != err {
			return
		}
		err = h.System.SetProposal(uint(p.ComputorIndex), system.Proposal{URI: p.URI, Ballot: p.Ballot})
		if nil != err {
			return
		}
		body = p.Pack()

	default:
		h.log.Warnf("special command: unknown: %d", s.Command())
		return
	}

	h.log.Infof("special command: %d  nonce: %d", s.Command(), s.Nonce())
	frame, err := s.Response(body)
	if nil != err {
		return
	}
	h.stats.Responses.Increment()
	h.responses.Send(messagebus.Message{Peer: peer, Type: protocol.ProcessSpecialCommandType, Frame: frame})
}

// responses to a single peer are never deduplicated by the receiver
func (h *Handlers) respond(peer uint64, m protocol.Message) {
	frame, err := protocol.FrameMessage(m, 0)
	if nil != err {
		h.log.Errorf("respond: type: %d  error: %s", m.Type(), err)
		return
	}
	h.stats.Responses.Increment()
	h.responses.Send(messagebus.Message{Peer: peer, Type: m.Type(), Frame: frame})
}

// forward a validated message to every other peer unchanged
func (h *Handlers) rebroadcast(m messagebus.Message) {
	if 0 == m.Dejavu {
		return
	}
	h.stats.Broadcasts.Increment()
	h.responses.Send(messagebus.Message{
		Peer:   messagebus.Broadcast,
		Except: m.Peer,
		Type:   m.Type,
		Dejavu: m.Dejavu,
		Frame:  m.Frame,
	})
}
