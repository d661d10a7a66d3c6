// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/node"
	"github.com/bitmark-inc/quorumd/peer"
	"github.com/bitmark-inc/quorumd/publish"
)

const (
	statsDelay = 60 * time.Second
	mega       = 1048576
)

func memstats() {

	log := logger.New("memory")

	for {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		a := m.Alloc / mega
		t := m.TotalAlloc / mega
		s := m.Sys / mega
		log.Warnf("allocated: %d M  cumulative: %d M  OS virtual: %d M  goroutines: %d", a, t, s, runtime.NumGoroutine())

		time.Sleep(statsDelay)
	}
}

// periodic summary of the traffic counters
func counters(n *node.Node, p *peer.Peer, publisher *publish.Publisher, shutdown <-chan struct{}) {

	log := logger.New("counters")

	for {
		select {
		case <-shutdown:
			return
		case <-time.After(statsDelay):
		}

		r := n.Statistics
		log.Infof("requests: received: %d  duplicate: %d  discarded: %d  processed: %d  invalid signature: %d",
			r.Received.Uint64(), r.Duplicate.Uint64(), r.Discarded.Uint64(), r.Processed.Uint64(), r.InvalidSignature.Uint64())
		log.Infof("responses: %d  broadcasts: %d", r.Responses.Uint64(), r.Broadcasts.Uint64())

		info := n.Engine.TickInfo()
		log.Infof("epoch: %d  tick: %d  aligned: %d  misaligned: %d  state: %s",
			info.Epoch, info.Tick, info.NumberOfAlignedVotes, info.NumberOfMisalignedVotes, n.Engine.State())

		ps := p.Statistics()
		log.Infof("peers: connected: %d  known addresses: %d  limited: %d",
			ps.Connected.Uint64(), n.Addresses.Count(), ps.Limited.Uint64())

		log.Infof("published: %d  dropped: %d", publisher.Sent.Uint64(), publisher.Dropped.Uint64())
	}
}
