// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/request"
	"github.com/bitmark-inc/quorumd/util"
)

// one open TCP stream
type connection struct {
	handle   uint64
	id       string // routing id on the stream socket
	address  util.IPv4
	outgoing bool
	endpoint string // connect endpoint of an outgoing stream
	framer   request.Framer
	limiter  *rate.Limiter
	opened   time.Time
}

// receive bytes, false if the connection exceeded its rate
func (c *connection) allow(n int) bool {
	if nil == c.limiter {
		return true
	}
	return c.limiter.AllowN(time.Now(), n)
}

// table of the open connections
//
// owned by the I/O loop, so not locked; handle 0 is never assigned as
// it addresses every connection on the response queue
type connections struct {
	next     uint64
	byHandle map[uint64]*connection
	byID     map[string]*connection
}

func newConnections() *connections {
	return &connections{
		byHandle: make(map[uint64]*connection),
		byID:     make(map[string]*connection),
	}
}

func (cs *connections) add(c *connection) *connection {
	cs.next += 1
	c.handle = cs.next
	c.opened = time.Now()
	cs.byHandle[c.handle] = c
	cs.byID[c.id] = c
	return c
}

func (cs *connections) remove(c *connection) {
	delete(cs.byHandle, c.handle)
	delete(cs.byID, c.id)
}

func (cs *connections) lookup(id string) (*connection, bool) {
	c, ok := cs.byID[id]
	return c, ok
}

func (cs *connections) count() int {
	return len(cs.byHandle)
}

func (cs *connections) outgoing() int {
	n := 0
	for _, c := range cs.byHandle {
		if c.outgoing {
			n += 1
		}
	}
	return n
}

func (cs *connections) connectedTo(address util.IPv4) bool {
	for _, c := range cs.byHandle {
		if c.address == address {
			return true
		}
	}
	return false
}

// connections a queued message goes to
func (cs *connections) targets(m messagebus.Message) []*connection {
	if messagebus.Broadcast != m.Peer {
		if c, ok := cs.byHandle[m.Peer]; ok {
			return []*connection{c}
		}
		return nil
	}
	targets := make([]*connection, 0, len(cs.byHandle))
	for handle, c := range cs.byHandle {
		if handle != m.Except {
			targets = append(targets, c)
		}
	}
	return targets
}
