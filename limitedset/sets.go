// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package limitedset - bounded approximate set of recently seen
// message ids
//
// two generations of bits are kept; an id is seen if either holds it
// and new ids go to the current one; after swapLimit insertions the
// current generation becomes the previous one and a cleared set takes
// its place, so an id is remembered for at least swapLimit and at most
// 2*swapLimit insertions. A replay arriving later than that is not
// recognised, and distinct ids that share a bit are reported as seen.
package limitedset

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/bitmark-inc/quorumd/counter"
)

// LimitedSet - two generation bit set
type LimitedSet struct {
	sync.Mutex

	mask      uint32
	swapLimit uint64
	current   *bitset.BitSet
	previous  *bitset.BitSet

	inserted counter.Counter // since the last swap
	Swaps    counter.Counter
}

// New - set over 2^bits ids swapping every swapLimit insertions
func New(bits uint, swapLimit uint64) *LimitedSet {
	if bits < 1 || bits > 32 {
		bits = 32
	}
	if 0 == swapLimit {
		swapLimit = 1
	}
	size := uint(1) << bits
	return &LimitedSet{
		mask:      uint32(size - 1),
		swapLimit: swapLimit,
		current:   bitset.New(size),
		previous:  bitset.New(size),
	}
}

// Add - record an id
//
// returns true if it was already seen in either generation, in that
// case nothing changes
func (ls *LimitedSet) Add(id uint32) bool {
	bit := uint(id & ls.mask)

	ls.Lock()
	defer ls.Unlock()

	if ls.current.Test(bit) || ls.previous.Test(bit) {
		return true
	}
	ls.current.Set(bit)

	if ls.inserted.Increment() >= ls.swapLimit {
		ls.previous, ls.current = ls.current, ls.previous.ClearAll()
		ls.inserted.Swap(0)
		ls.Swaps.Increment()
	}
	return false
}

// Exists - check for an id without recording it
func (ls *LimitedSet) Exists(id uint32) bool {
	bit := uint(id & ls.mask)

	ls.Lock()
	defer ls.Unlock()
	return ls.current.Test(bit) || ls.previous.Test(bit)
}
