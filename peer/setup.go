// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"sync"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/background"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/request"
	"github.com/bitmark-inc/quorumd/util"
)

// defaults
const (
	DefaultPort                = 21841
	DefaultMaximumConnections  = 64
	DefaultOutgoingConnections = 8
	DefaultAddressExpiry       = 24 * time.Hour

	// bytes per second of one connection and its burst
	DefaultRateLimit = 1 << 20
	DefaultRateBurst = 4 << 20
)

// Configuration - a block of configuration data
// this is read from a Lua configuration file
type Configuration struct {
	Port                int      `gluamapper:"port" json:"port"`
	Listen              []string `gluamapper:"listen" json:"listen"`
	Announce            []string `gluamapper:"announce" json:"announce"`
	Connect             []string `gluamapper:"connect" json:"connect"`
	PeersFile           string   `gluamapper:"peers_file" json:"peers_file"`
	DNSSeed             string   `gluamapper:"dns_seed" json:"dns_seed"`
	MaximumConnections  int      `gluamapper:"maximum_connections" json:"maximum_connections"`
	OutgoingConnections int      `gluamapper:"outgoing_connections" json:"outgoing_connections"`
	RateLimit           float64  `gluamapper:"rate_limit" json:"rate_limit"`
	RateBurst           int      `gluamapper:"rate_burst" json:"rate_burst"`
}

// Peer - the transport and its address sources
type Peer struct {
	sync.Mutex

	log        *logger.L
	addresses  *AddressBook
	transport  *Transport
	processes  background.Processes
	background *background.T
}

// New - set up the transport without starting it
//
// addresses is shared with the request handlers that learn from peer
// exchanges
func New(configuration *Configuration, addresses *AddressBook, pipeline *request.Pipeline, responses *messagebus.Queue) (*Peer, error) {
	log := logger.New("peer")
	log.Info("initialising…")

	c := *configuration
	if 0 == c.Port {
		c.Port = DefaultPort
	}
	if c.MaximumConnections <= 0 {
		c.MaximumConnections = DefaultMaximumConnections
	}
	if c.OutgoingConnections <= 0 {
		c.OutgoingConnections = DefaultOutgoingConnections
	}
	if 0 == c.RateLimit {
		c.RateLimit = DefaultRateLimit
	}
	if c.RateBurst <= 0 {
		c.RateBurst = DefaultRateBurst
	}

	for _, s := range c.Connect {
		address, err := util.ParseIPv4(s)
		if nil != err {
			log.Errorf("connect: %q  error: %s", s, err)
			return nil, err
		}
		addresses.Pin(address)
	}

	transport, err := newTransport(&c, pipeline, responses, addresses)
	if nil != err {
		log.Errorf("transport error: %s", err)
		return nil, err
	}

	p := &Peer{
		log:       log,
		addresses: addresses,
		transport: transport,
		processes: background.Processes{transport},
	}

	if "" != c.PeersFile {
		w, err := newWatcher(c.PeersFile, addresses)
		if nil != err {
			log.Errorf("peers file: %q  error: %s", c.PeersFile, err)
			return nil, err
		}
		p.processes = append(p.processes, w)
	}
	if "" != c.DNSSeed {
		p.processes = append(p.processes, newSeeder(c.DNSSeed, addresses, nil))
	}
	return p, nil
}

// Addresses - the address book, updated by peer exchanges
func (p *Peer) Addresses() *AddressBook {
	return p.addresses
}

// Statistics - transport counters
func (p *Peer) Statistics() *Statistics {
	return &p.transport.Statistics
}

// Start - run the background processes
func (p *Peer) Start() error {
	p.Lock()
	defer p.Unlock()

	if nil != p.background {
		return fault.ErrAlreadyInitialised
	}
	p.log.Info("start background…")
	p.background = background.Start(p.processes, p.log)
	return nil
}

// Stop - stop every background process
func (p *Peer) Stop() error {
	p.Lock()
	defer p.Unlock()

	if nil == p.background {
		return fault.ErrNotInitialised
	}
	p.log.Info("shutting down…")
	p.background.Stop()
	p.background = nil
	p.log.Info("stopped")
	return nil
}
