// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tick

import (
	"sync"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/protocol"
)

// DataStore - the transaction set proposed for each tick of the window
type DataStore struct {
	sync.Mutex

	window window
	data   map[uint32]*protocol.TickData
}

// NewDataStore - empty store for the window starting at initialTick
func NewDataStore(initialTick uint32, length uint32) *DataStore {
	return &DataStore{
		window: window{initialTick: initialTick, length: length},
		data:   make(map[uint32]*protocol.TickData),
	}
}

// Reset - discard everything and move the window
func (d *DataStore) Reset(initialTick uint32) {
	d.Lock()
	d.window.initialTick = initialTick
	d.data = make(map[uint32]*protocol.TickData)
	d.Unlock()
}

// Store - keep the first tick data seen for a tick
//
// same rules as the vote table: repeat is a no-op, a different record
// is a conflict
func (d *DataStore) Store(t *protocol.TickData) (bool, error) {
	d.Lock()
	defer d.Unlock()

	if !d.window.contains(t.Tick) {
		return false, fault.ErrTickOutsideWindow
	}
	if existing, ok := d.data[t.Tick]; ok {
		if *existing == *t {
			return false, nil
		}
		return false, fault.ErrConflictingRecord
	}
	data := *t
	d.data[t.Tick] = &data
	return true, nil
}

// Get - the tick data of a tick
//
// the returned record is shared and must not be modified
func (d *DataStore) Get(tick uint32) (*protocol.TickData, bool) {
	d.Lock()
	defer d.Unlock()
	t, ok := d.data[tick]
	return t, ok
}

// Has - tick data is held
func (d *DataStore) Has(tick uint32) bool {
	d.Lock()
	defer d.Unlock()
	_, ok := d.data[tick]
	return ok
}

// Prune - drop every tick before the given one
func (d *DataStore) Prune(before uint32) {
	d.Lock()
	defer d.Unlock()
	for tick := range d.data {
		if tick < before {
			delete(d.data, tick)
		}
	}
}
