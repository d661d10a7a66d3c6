// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/contract"
	"github.com/bitmark-inc/quorumd/counter"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/mode"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/spectrum"
	"github.com/bitmark-inc/quorumd/storage"
	"github.com/bitmark-inc/quorumd/system"
	"github.com/bitmark-inc/quorumd/tick"
	"github.com/bitmark-inc/quorumd/universe"
)

const (
	// votes and tick data kept behind the current tick for lagging peers
	retainedTicks = 16

	// pause between retries while waiting for votes or data
	minimumInterval = 50 * time.Millisecond
)

// Computor - a local computor identity
type Computor struct {
	Subseed   cryptography.Subseed
	PublicKey cryptography.PublicKey
}

// Publisher - receives the tick and epoch events
type Publisher interface {
	PublishTick(t *protocol.Tick)
	PublishEpoch(epoch uint16, initialTick uint32)
}

// Dependencies - node state driven by the engine
type Dependencies struct {
	Crypto    cryptography.Crypto
	System    *system.System
	Spectrum  *spectrum.Store
	Universe  *universe.Store
	Contracts *contract.Scheduler
	Votes     *tick.Votes
	TickData  *tick.DataStore
	Pool      *tick.Pool
	Persister storage.Persister
	Mode      *mode.Holder
	Responses *messagebus.Queue
	Publisher Publisher
}

// Configuration - engine settings
type Configuration struct {
	TickDuration time.Duration
	Computors    []Computor
	Arbitrator   cryptography.PublicKey
}

// Statistics - engine counters
type Statistics struct {
	Ticks        counter.Counter
	Epochs       counter.Counter
	Misaligned   counter.Counter
	Requests     counter.Counter
	Transactions counter.Counter
}

// Engine - the tick state machine
//
// only the engine process mutates the ledger outside of the contracts
type Engine struct {
	Dependencies
	Statistics

	log          *logger.L
	tickDuration time.Duration
	computors    []Computor
	arbitrator   cryptography.PublicKey

	state state

	// work of the current tick
	data       *protocol.TickData
	dataDigest merkle.Digest
	tickTime   civil.Time
	lastTime   civil.Time
	prev       [3]merkle.Digest
	post       [3]merkle.Digest
	essence    merkle.Digest

	// reported status, and the faulty flags which request workers
	// also set
	sync.Mutex
	faulty                *bitset.BitSet
	aligned               uint16
	misaligned            uint16
	tickNumberOfComputors uint16
}

// New - engine at the start of the current tick
func New(dependencies Dependencies, configuration Configuration) *Engine {
	tickDuration := configuration.TickDuration
	if 0 == tickDuration {
		tickDuration = constants.DefaultTargetTickDuration
	}
	return &Engine{
		Dependencies: dependencies,
		log:          logger.New("consensus"),
		tickDuration: tickDuration,
		computors:    configuration.Computors,
		arbitrator:   configuration.Arbitrator,
		state:        sCollecting,
		faulty:       bitset.New(constants.NumberOfComputors),
	}
}

// State - name of the current state
func (e *Engine) State() string {
	return e.state.String()
}

// Faulty - computor was flagged as faulty this epoch
func (e *Engine) Faulty(computorIndex uint) bool {
	e.Lock()
	defer e.Unlock()
	return e.faulty.Test(computorIndex)
}

// Flag - exclude a computor from the tallies until the epoch ends
func (e *Engine) Flag(computorIndex uint) {
	if computorIndex >= constants.NumberOfComputors {
		return
	}
	e.Lock()
	flagged := e.faulty.Test(computorIndex)
	e.faulty.Set(computorIndex)
	e.Unlock()

	if !flagged {
		_, current := e.System.CurrentTick()
		e.log.Warnf("tick: %d  computor: %d  flagged faulty", current, computorIndex)
	}
}

// TickNumberOfComputors - size of the agreeing majority once the current
// tick reached a quorum, zero before that
func (e *Engine) TickNumberOfComputors() uint16 {
	e.Lock()
	defer e.Unlock()
	return e.tickNumberOfComputors
}

// TickInfo - current status
func (e *Engine) TickInfo() protocol.CurrentTickInfo {
	s := e.System
	s.RLock()
	info := protocol.CurrentTickInfo{
		TickDuration: uint16(e.tickDuration / time.Millisecond),
		Epoch:        s.Epoch,
		Tick:         s.Tick,
		InitialTick:  s.InitialTick,
	}
	s.RUnlock()

	e.Lock()
	info.NumberOfAlignedVotes = e.aligned
	info.NumberOfMisalignedVotes = e.misaligned
	e.Unlock()
	return info
}

// BeginEpoch - run the opening phases of the current epoch on a fresh start
func (e *Engine) BeginEpoch() {
	epoch, current := e.System.CurrentTick()
	e.Contracts.RunPhase(contract.Initialize, epoch, current)
	e.Contracts.RunPhase(contract.BeginEpoch, epoch, current)
	e.log.Infof("begin epoch: %d  tick: %d", epoch, current)
}

// Run - background process driving the state machine
func (e *Engine) Run(args interface{}, shutdown <-chan struct{}) {
	log := e.log
	log.Info("starting…")

	timer := time.After(minimumInterval)
loop:
	for {
		log.Debug("waiting…")
		select {
		case <-shutdown:
			break loop
		case <-timer:
			start := time.Now()
			advanced := false
			if !e.Mode.Is(mode.Halted) {
				advanced = e.start()
			}
			wait := minimumInterval
			if advanced {
				wait = e.tickDuration - time.Since(start)
				if wait < minimumInterval {
					wait = minimumInterval
				}
			}
			timer = time.After(wait)
		}
	}
	log.Info("shutting down…")
	log.Info("stopped")
}

// run transitions until one blocks; true if a tick was completed
func (e *Engine) start() bool {
	_, before := e.System.CurrentTick()
	for e.Step() {
		if _, current := e.System.CurrentTick(); current != before {
			return true
		}
	}
	return false
}

// Step - perform at most one transition
//
// returns false if the current state is waiting for input
func (e *Engine) Step() bool {
	log := e.log
	log.Debugf("current state: %s", e.state)

	switch e.state {

	case sCollecting:
		if !e.collect() {
			return false
		}
		e.state = sDigesting

	case sDigesting:
		e.digest()
		e.state = sVoting

	case sVoting:
		e.vote()
		e.state = sQuorumCheck

	case sQuorumCheck:
		if !e.quorum() {
			return false
		}
		if civil.EpochEnded(e.epochStart(), e.tickTime) {
			e.state = sEpochRollover
		} else {
			e.state = sAdvance
		}

	case sAdvance:
		e.advance()
		e.state = sCollecting

	case sEpochRollover:
		e.rollover()
		e.state = sCollecting

	default:
		log.Criticalf("invalid state: %d", e.state)
		return false
	}
	return true
}

func (e *Engine) epochStart() civil.Time {
	e.System.RLock()
	defer e.System.RUnlock()
	return e.System.EpochStart
}

// send a request for missing input to every peer
func (e *Engine) request(m protocol.Message) {
	frame, err := protocol.FrameMessage(m, 0)
	if nil != err {
		e.log.Errorf("request: type: %d  error: %s", m.Type(), err)
		return
	}
	e.Requests.Increment()
	e.Responses.Send(messagebus.Message{Peer: messagebus.Broadcast, Type: m.Type(), Frame: frame})
}

// send a locally created record to every peer
func (e *Engine) broadcast(m protocol.Message, dejavu uint32) {
	frame, err := protocol.FrameMessage(m, dejavu)
	if nil != err {
		e.log.Errorf("broadcast: type: %d  error: %s", m.Type(), err)
		return
	}
	e.Responses.Send(messagebus.Message{Peer: messagebus.Broadcast, Type: m.Type(), Dejavu: dejavu, Frame: frame})
}

func (e *Engine) advance() {
	_, current := e.System.CurrentTick()

	e.Pool.Prune(current)
	if current > retainedTicks {
		e.Votes.Prune(current - retainedTicks)
		e.TickData.Prune(current - retainedTicks)
	}
	e.lastTime = e.tickTime
	e.System.SetTick(current + 1)
	e.Ticks.Increment()
	e.Mode.Set(mode.Normal)

	if nil != e.Publisher {
		if vote, ok := e.majorityVote(current); ok {
			e.Publisher.PublishTick(&vote)
		}
	}
	e.log.Infof("tick: %d  transactions: %d", current, e.transactionCount())
}

func (e *Engine) transactionCount() int {
	if nil == e.data {
		return 0
	}
	return e.data.NumberOfTransactions()
}
