// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"fmt"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/counter"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// Scheduler - runs contract phases and procedures on a separate
// executor goroutine bounded by a timeout
//
// index 0 of the registry is reserved and must be nil
type Scheduler struct {
	sync.Mutex // protects states and tree

	log       *logger.L
	contracts []Contract
	states    [][]byte
	tree      *merkle.Tree
	ipos      map[uint]*IPO
	ledger    Ledger
	assets    Assets
	timeout   time.Duration

	inFlight sync.Mutex // exactly one batch runs at a time
	jobs     chan func()

	Timeouts counter.Counter
	Panics   counter.Counter
}

// NewScheduler - create a scheduler for a fixed registry of contracts
func NewScheduler(registry []Contract, ledger Ledger, assets Assets, hasher merkle.Hasher, timeout time.Duration) (*Scheduler, error) {
	if len(registry) > constants.MaxNumberOfContracts {
		return nil, fault.ErrInvalidContractIndex
	}
	if len(registry) > 0 && nil != registry[0] {
		return nil, fault.ErrInvalidContractIndex
	}

	s := &Scheduler{
		log:       logger.New("contract"),
		contracts: make([]Contract, constants.MaxNumberOfContracts),
		states:    make([][]byte, constants.MaxNumberOfContracts),
		ipos:      make(map[uint]*IPO),
		ledger:    ledger,
		assets:    assets,
		timeout:   timeout,
	}
	copy(s.contracts, registry)

	for i, c := range s.contracts {
		if nil == c {
			continue
		}
		d := c.Description()
		s.states[i] = make([]byte, d.StateSize)
		s.ipos[uint(i)] = newIPO(uint(i))
		s.log.Infof("contract[%d]: %q  epochs: [%d, %d)  state: %d bytes", i, d.Name, d.ConstructionEpoch, d.DestructionEpoch, d.StateSize)
	}

	tree, err := merkle.NewTree(constants.MaxNumberOfContracts, hasher, stateLeaves{s})
	if nil != err {
		return nil, err
	}
	s.tree = tree

	s.startExecutor()
	return s, nil
}

type stateLeaves struct {
	s *Scheduler
}

// unused slots have no bytes and so a zero digest
func (l stateLeaves) LeafBytes(index uint) []byte {
	return l.s.states[index]
}

func (s *Scheduler) startExecutor() {
	jobs := make(chan func())
	s.jobs = jobs
	go func() {
		for job := range jobs {
			job()
		}
	}()
}

// Stop - release the executor
func (s *Scheduler) Stop() {
	s.inFlight.Lock()
	defer s.inFlight.Unlock()
	if nil != s.jobs {
		close(s.jobs)
		s.jobs = nil
	}
}

// execute one batch; false if it was abandoned by timeout
func (s *Scheduler) execute(what string, run func(f *fence)) bool {
	s.inFlight.Lock()
	defer s.inFlight.Unlock()

	if nil == s.jobs {
		return false
	}

	f := &fence{}
	done := make(chan struct{})
	s.jobs <- func() {
		defer close(done)
		run(f)
	}

	var expired <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-done:
		return true
	case <-expired:
	}

	f.abort()
	s.Timeouts.Increment()
	s.log.Warnf("%s: exceeded: %s  executor abandoned", what, s.timeout)

	// the old executor exits after its current job returns
	close(s.jobs)
	s.startExecutor()
	return false
}

// order of contract indices for a phase
func (s *Scheduler) order(p Phase) []uint {
	order := make([]uint, 0, len(s.contracts))
	for i := range s.contracts {
		if nil != s.contracts[i] {
			order = append(order, uint(i))
		}
	}
	if p.reverse() {
		for l, r := 0, len(order)-1; l < r; l, r = l+1, r-1 {
			order[l], order[r] = order[r], order[l]
		}
	}
	return order
}

func runs(p Phase, d Description, epoch uint16) bool {
	if Initialize == p {
		return d.ConstructionEpoch == epoch && epoch < d.DestructionEpoch
	}
	return active(d, epoch)
}

// RunPhase - run one system procedure across the registry
//
// returns false if the batch was cut off by the timeout; the phase is
// complete either way
func (s *Scheduler) RunPhase(p Phase, epoch uint16, tick uint32) bool {
	what := fmt.Sprintf("%s epoch: %d tick: %d", p, epoch, tick)
	return s.execute(what, func(f *fence) {
		for _, i := range s.order(p) {
			if f.isAborted() {
				return
			}
			c := s.contracts[i]
			if !runs(p, c.Description(), epoch) {
				continue
			}

			ctx := s.newContext(i, epoch, tick, f)
			s.call(i, p.String(), func() {
				switch p {
				case Initialize:
					c.Initialize(ctx)
				case BeginEpoch:
					c.BeginEpoch(ctx)
				case BeginTick:
					c.BeginTick(ctx)
				case EndTick:
					c.EndTick(ctx)
				case EndEpoch:
					c.EndEpoch(ctx)
				}
			})
			s.commit(i, ctx.State, f)
		}
	})
}

// Invoke - run a user procedure of a contract
//
// the invocation reward has already been paid to the contract's entity
func (s *Scheduler) Invoke(contractIndex uint, invocator cryptography.PublicKey, reward int64, inputType uint16, input []byte, epoch uint16, tick uint32) error {
	if contractIndex >= uint(len(s.contracts)) || nil == s.contracts[contractIndex] {
		return fault.ErrContractNotFound
	}
	c := s.contracts[contractIndex]
	if !active(c.Description(), epoch) {
		return fault.ErrContractNotActive
	}

	var err error
	what := fmt.Sprintf("procedure: %d/%d tick: %d", contractIndex, inputType, tick)
	ok := s.execute(what, func(f *fence) {
		ctx := s.newContext(contractIndex, epoch, tick, f)
		ctx.Invocator = invocator
		ctx.InvocationReward = reward
		s.call(contractIndex, what, func() {
			err = c.Procedure(ctx, inputType, input)
		})
		s.commit(contractIndex, ctx.State, f)
	})
	if !ok {
		return fault.ErrContractAborted
	}
	return err
}

// contain a misbehaving contract so the executor survives
func (s *Scheduler) call(index uint, what string, f func()) {
	defer func() {
		if r := recover(); nil != r {
			s.Panics.Increment()
			s.log.Errorf("contract[%d]: %s: panic: %v", index, what, r)
		}
	}()
	f()
}

func (s *Scheduler) newContext(index uint, epoch uint16, tick uint32, f *fence) *Context {
	s.Lock()
	state := make([]byte, len(s.states[index]))
	copy(state, s.states[index])
	s.Unlock()

	return &Context{
		ContractIndex: index,
		Epoch:         epoch,
		Tick:          tick,
		State:         state,
		fence:         f,
		ledger:        s.ledger,
		assets:        s.assets,
	}
}

// state of an aborted batch is discarded
func (s *Scheduler) commit(index uint, state []byte, f *fence) {
	if !f.enter() {
		return
	}
	defer f.leave()

	s.Lock()
	defer s.Unlock()
	if len(state) != len(s.states[index]) {
		s.log.Errorf("contract[%d]: state resized to: %d ignored", index, len(state))
		return
	}
	copy(s.states[index], state)
	s.tree.MarkDirty(index)
}

// Digest - root over all contract states
func (s *Scheduler) Digest() merkle.Digest {
	s.Lock()
	defer s.Unlock()
	return s.tree.Reduce()
}

// Contract - registered contract at an index
func (s *Scheduler) Contract(index uint) (Contract, bool) {
	if index >= uint(len(s.contracts)) || nil == s.contracts[index] {
		return nil, false
	}
	return s.contracts[index], true
}

// Indices - all registered contract indices in ascending order
func (s *Scheduler) Indices() []uint {
	return s.order(BeginTick)
}

// State - copy of a contract's state
func (s *Scheduler) State(index uint) []byte {
	if index >= uint(len(s.states)) {
		return nil
	}
	s.Lock()
	defer s.Unlock()
	if nil == s.states[index] {
		return nil
	}
	state := make([]byte, len(s.states[index]))
	copy(state, s.states[index])
	return state
}

// SetState - replace a contract's state from a snapshot
func (s *Scheduler) SetState(index uint, state []byte) error {
	if _, ok := s.Contract(index); !ok {
		return fault.ErrContractNotFound
	}
	s.Lock()
	defer s.Unlock()
	if len(state) != len(s.states[index]) {
		return fault.ErrSnapshotSizeMismatch
	}
	copy(s.states[index], state)
	s.tree.MarkDirty(index)
	return nil
}

// IPO - the share auction of a contract
func (s *Scheduler) IPO(index uint) (*IPO, bool) {
	ipo, ok := s.ipos[index]
	return ipo, ok
}

// InIPO - contracts auction their shares in the epoch before construction
func (s *Scheduler) InIPO(index uint, epoch uint16) bool {
	c, ok := s.Contract(index)
	if !ok {
		return false
	}
	return c.Description().ConstructionEpoch == epoch+1
}
