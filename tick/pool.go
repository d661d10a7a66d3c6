// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tick

import (
	"bytes"
	"sort"
	"sync"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/protocol"
)

// Pool - verified transactions waiting for their tick
type Pool struct {
	sync.Mutex

	limit   int
	digests map[merkle.Digest]*protocol.Transaction
	ticks   map[uint32][]merkle.Digest
}

// NewPool - empty pool holding at most limit transactions
func NewPool(limit int) *Pool {
	return &Pool{
		limit:   limit,
		digests: make(map[merkle.Digest]*protocol.Transaction),
		ticks:   make(map[uint32][]merkle.Digest),
	}
}

// Add - keep a transaction under its digest
//
// returns false for a transaction already held
func (p *Pool) Add(digest merkle.Digest, tx *protocol.Transaction) (bool, error) {
	p.Lock()
	defer p.Unlock()

	if _, ok := p.digests[digest]; ok {
		return false, nil
	}
	if len(p.digests) >= p.limit {
		return false, fault.ErrTooManyTransactions
	}
	p.digests[digest] = tx
	p.ticks[tx.Tick] = append(p.ticks[tx.Tick], digest)
	return true, nil
}

// Get - transaction by digest
func (p *Pool) Get(digest merkle.Digest) (*protocol.Transaction, bool) {
	p.Lock()
	defer p.Unlock()
	tx, ok := p.digests[digest]
	return tx, ok
}

// ForTick - digests of the transactions for a tick in ascending
// digest order, at most maximum of them
func (p *Pool) ForTick(tick uint32, maximum int) []merkle.Digest {
	p.Lock()
	digests := append([]merkle.Digest{}, p.ticks[tick]...)
	p.Unlock()

	sort.Slice(digests, func(i, j int) bool {
		return bytes.Compare(digests[i][:], digests[j][:]) < 0
	})
	if len(digests) > maximum {
		digests = digests[:maximum]
	}
	return digests
}

// Count - transactions held
func (p *Pool) Count() int {
	p.Lock()
	defer p.Unlock()
	return len(p.digests)
}

// Prune - drop every transaction for the given tick or earlier
func (p *Pool) Prune(tick uint32) int {
	p.Lock()
	defer p.Unlock()

	n := 0
	for t, digests := range p.ticks {
		if t > tick {
			continue
		}
		for _, d := range digests {
			delete(p.digests, d)
			n += 1
		}
		delete(p.ticks, t)
	}
	return n
}
