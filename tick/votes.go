// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tick

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/protocol"
)

type slots [constants.NumberOfComputors]*protocol.Tick

// Votes - the signed tick votes of every computor over the epoch window
type Votes struct {
	sync.Mutex

	log    *logger.L
	window window
	ticks  map[uint32]*slots
}

// NewVotes - empty table for the window starting at initialTick
func NewVotes(initialTick uint32, length uint32) *Votes {
	return &Votes{
		log:    logger.New("votes"),
		window: window{initialTick: initialTick, length: length},
		ticks:  make(map[uint32]*slots),
	}
}

// Reset - discard every vote and move the window to a new epoch
func (v *Votes) Reset(initialTick uint32) {
	v.Lock()
	v.window.initialTick = initialTick
	v.ticks = make(map[uint32]*slots)
	v.Unlock()
	v.log.Infof("reset: initial tick: %d", initialTick)
}

// Store - place a vote into its (tick, computor) cell
//
// returns true if the vote was new; an identical vote already in the
// cell is not an error, a different one is a conflict
func (v *Votes) Store(t *protocol.Tick) (bool, error) {
	if t.ComputorIndex >= constants.NumberOfComputors {
		return false, fault.ErrInvalidComputorIndex
	}

	v.Lock()
	defer v.Unlock()

	if !v.window.contains(t.Tick) {
		return false, fault.ErrTickOutsideWindow
	}

	s, ok := v.ticks[t.Tick]
	if !ok {
		s = &slots{}
		v.ticks[t.Tick] = s
	}
	existing := s[t.ComputorIndex]
	if nil != existing {
		if *existing == *t {
			return false, nil
		}
		return false, fault.ErrConflictingRecord
	}

	vote := *t
	s[t.ComputorIndex] = &vote
	return true, nil
}

// Get - a copy of the vote in a cell
func (v *Votes) Get(tick uint32, computorIndex uint) (protocol.Tick, bool) {
	if computorIndex >= constants.NumberOfComputors {
		return protocol.Tick{}, false
	}

	v.Lock()
	defer v.Unlock()

	s, ok := v.ticks[tick]
	if !ok || nil == s[computorIndex] {
		return protocol.Tick{}, false
	}
	return *s[computorIndex], true
}

// Tick - copies of every vote held for a tick, in computor order
func (v *Votes) Tick(tick uint32) []protocol.Tick {
	v.Lock()
	defer v.Unlock()

	s, ok := v.ticks[tick]
	if !ok {
		return nil
	}
	votes := make([]protocol.Tick, 0, constants.NumberOfComputors)
	for _, t := range s {
		if nil != t {
			votes = append(votes, *t)
		}
	}
	return votes
}

// Count - number of votes held for a tick
func (v *Votes) Count(tick uint32) int {
	v.Lock()
	defer v.Unlock()

	n := 0
	if s, ok := v.ticks[tick]; ok {
		for _, t := range s {
			if nil != t {
				n += 1
			}
		}
	}
	return n
}

// Flags - one bit per computor whose vote is held, as carried by a
// quorum tick request
func (v *Votes) Flags(tick uint32) [constants.ComputorFlagsSize]byte {
	flags := [constants.ComputorFlagsSize]byte{}

	v.Lock()
	defer v.Unlock()

	if s, ok := v.ticks[tick]; ok {
		for i, t := range s {
			if nil != t {
				flags[i>>3] |= 1 << (uint(i) & 7)
			}
		}
	}
	return flags
}

// Prune - drop every tick before the given one
func (v *Votes) Prune(before uint32) {
	v.Lock()
	defer v.Unlock()

	for tick := range v.ticks {
		if tick < before {
			delete(v.ticks, tick)
		}
	}
}
