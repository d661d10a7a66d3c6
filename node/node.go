// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/background"
	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/consensus"
	"github.com/bitmark-inc/quorumd/contract"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/limitedset"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/mode"
	"github.com/bitmark-inc/quorumd/peer"
	"github.com/bitmark-inc/quorumd/request"
	"github.com/bitmark-inc/quorumd/spectrum"
	"github.com/bitmark-inc/quorumd/storage"
	"github.com/bitmark-inc/quorumd/system"
	"github.com/bitmark-inc/quorumd/tick"
	"github.com/bitmark-inc/quorumd/universe"
)

// Node - the state and processes of one node
type Node struct {
	sync.Mutex

	log  *logger.L
	halt func(error)

	Crypto     cryptography.Crypto
	Mode       *mode.Holder
	System     *system.System
	Spectrum   *spectrum.Store
	Universe   *universe.Store
	Contracts  *contract.Scheduler
	Votes      *tick.Votes
	TickData   *tick.DataStore
	Pool       *tick.Pool
	Requests   *messagebus.Queue
	Responses  *messagebus.Queue
	Statistics *request.Statistics
	Dejavu     *limitedset.LimitedSet
	Pipeline   *request.Pipeline
	Handlers   *request.Handlers
	Engine     *consensus.Engine
	Addresses  *peer.AddressBook

	workers    int
	background *background.T
}

// New - build a node from its configuration
//
// the saved state of persister is restored if there is any, otherwise
// the configured first epoch is opened.  halt is the fail-stop of
// store or queue exhaustion, nil means fault.Halt
func New(configuration Configuration, persister storage.Persister, publisher consensus.Publisher, halt func(error)) (*Node, error) {
	log := logger.New("node")
	log.Info("initialising…")

	c := configuration
	c.defaults()

	n := &Node{
		log:        log,
		halt:       halt,
		Crypto:     cryptography.New(),
		Mode:       mode.New(),
		Statistics: &request.Statistics{},
		Addresses:  peer.NewAddressBook(peer.DefaultAddressExpiry),
		workers:    c.Workers,
	}
	if nil == n.halt {
		n.halt = fault.Halt
	}

	computors := make([]consensus.Computor, 0, len(c.ComputorSeeds))
	for i, seed := range c.ComputorSeeds {
		subseed, _, publicKey, err := n.Crypto.DeriveKeys(seed)
		if nil != err {
			log.Errorf("computor seed[%d] error: %s", i, err)
			return nil, fault.ErrInvalidComputorSeed
		}
		computors = append(computors, consensus.Computor{Subseed: subseed, PublicKey: publicKey})
		log.Infof("computor[%d]: %s", i, publicKey)
	}

	operator, err := optionalKey(c.Operator)
	if nil != err {
		log.Errorf("operator key error: %s", err)
		return nil, err
	}
	arbitrator, err := optionalKey(c.Arbitrator)
	if nil != err {
		log.Errorf("arbitrator key error: %s", err)
		return nil, err
	}

	restored := false
	if nil != persister {
		n.System, err = consensus.LoadSystem(persister)
		if nil == err {
			restored = true
		} else if fault.ErrNotFound != err {
			log.Errorf("load system error: %s", err)
			return nil, err
		}
	}
	if !restored {
		n.System, err = firstEpoch(&c)
		if nil != err {
			log.Errorf("first epoch error: %s", err)
			return nil, err
		}
	}
	epoch, current := n.System.CurrentTick()
	log.Infof("epoch: %d  tick: %d  restored: %v", epoch, current, restored)

	n.Spectrum, err = spectrum.New(c.SpectrumCapacity, n.Crypto, n.failStop)
	if nil != err {
		return nil, err
	}
	n.Universe, err = universe.New(c.AssetsCapacity, n.Crypto, n.failStop)
	if nil != err {
		return nil, err
	}

	registry := []contract.Contract{
		nil, // index zero is never a contract
		contract.NewQUTIL(c.QUTILEpoch),
	}
	n.Contracts, err = contract.NewScheduler(registry, n.Spectrum, n.Universe, n.Crypto, c.contractTimeout())
	if nil != err {
		return nil, err
	}

	n.System.RLock()
	initialTick := n.System.InitialTick
	n.System.RUnlock()
	n.Votes = tick.NewVotes(initialTick, c.TicksPerEpoch)
	n.TickData = tick.NewDataStore(initialTick, c.TicksPerEpoch)
	n.Pool = tick.NewPool(c.PoolSize)

	n.Requests = messagebus.New("requests", c.RequestQueueSize, n.failStop)
	n.Responses = messagebus.New("responses", c.ResponseQueueSize, n.failStop)
	n.Dejavu = limitedset.New(c.DejavuBits, c.DejavuSwapLimit)
	n.Pipeline = request.NewPipeline(n.Crypto, n.Dejavu, n.Requests, n.Statistics)

	dependencies := consensus.Dependencies{
		Crypto:    n.Crypto,
		System:    n.System,
		Spectrum:  n.Spectrum,
		Universe:  n.Universe,
		Contracts: n.Contracts,
		Votes:     n.Votes,
		TickData:  n.TickData,
		Pool:      n.Pool,
		Persister: persister,
		Mode:      n.Mode,
		Responses: n.Responses,
	}
	if nil != publisher {
		dependencies.Publisher = publisher
	}
	n.Engine = consensus.New(dependencies, consensus.Configuration{
		TickDuration: c.tickDuration(),
		Computors:    computors,
		Arbitrator:   arbitrator,
	})

	n.Handlers = request.NewHandlers(request.Dependencies{
		Crypto:     n.Crypto,
		System:     n.System,
		Spectrum:   n.Spectrum,
		Contracts:  n.Contracts,
		Votes:      n.Votes,
		TickData:   n.TickData,
		Pool:       n.Pool,
		Score:      contract.NewDigestScore(n.Crypto),
		Addresses:  n.Addresses,
		Status:     n.Engine,
		Faults:     n.Engine,
		Operator:   operator,
		Arbitrator: arbitrator,
	}, n.Responses, n.Statistics)

	if restored {
		err = n.Engine.Load()
		if nil != err {
			log.Errorf("load state error: %s", err)
			n.Contracts.Stop()
			return nil, err
		}
	} else {
		err = n.genesis(&c, current)
		if nil != err {
			n.Contracts.Stop()
			return nil, err
		}
		n.Engine.BeginEpoch()
	}
	return n, nil
}

// system state of a first start
func firstEpoch(c *Configuration) (*system.System, error) {
	committee, err := c.committee()
	if nil != err {
		return nil, err
	}
	s := system.New(c.InitialEpoch, c.InitialTick, civil.FromTime(time.Now().UTC()))
	s.SetComputors(c.InitialEpoch, committee)
	return s, nil
}

// opening balances of a first start
func (n *Node) genesis(c *Configuration, current uint32) error {
	for i, g := range c.Genesis {
		publicKey, err := cryptography.PublicKeyFromHex(g.PublicKey)
		if nil != err {
			n.log.Errorf("genesis[%d] error: %s", i, err)
			return err
		}
		_, err = n.Spectrum.Credit(publicKey, g.Amount, current)
		if nil != err {
			n.log.Errorf("genesis[%d] error: %s", i, err)
			return err
		}
	}
	n.log.Infof("genesis entities: %d  supply: %d", len(c.Genesis), n.Spectrum.TotalSupply())
	return nil
}

// fail-stop: nothing progresses once a store or queue is exhausted
func (n *Node) failStop(err error) {
	n.Mode.Set(mode.Halted)
	n.log.Criticalf("halt: %s", err)
	n.halt(err)
}

// Start - run the request workers and the tick engine
func (n *Node) Start() error {
	n.Lock()
	defer n.Unlock()

	if nil != n.background {
		return fault.ErrAlreadyInitialised
	}

	processes := request.Workers(n.workers, n.Requests, n.Handlers, n.Statistics)
	processes = append(processes, n.Engine)

	n.log.Info("start background…")
	n.background = background.Start(processes, n.log)
	return nil
}

// Stop - stop every process and save the current state
func (n *Node) Stop() error {
	n.Lock()
	defer n.Unlock()

	if nil == n.background {
		return fault.ErrNotInitialised
	}
	n.log.Info("shutting down…")
	n.background.Stop()
	n.background = nil
	n.Mode.Set(mode.Stopped)

	err := n.Engine.Save()
	if nil != err {
		n.log.Errorf("save error: %s", err)
	}
	n.Contracts.Stop()
	n.log.Info("stopped")
	return err
}
