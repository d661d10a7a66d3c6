// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spectrum

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// Store - open addressing table of entities keyed by public key
//
// one lock covers the entities, the digest tree and counters
type Store struct {
	sync.Mutex

	log      *logger.L
	halt     func(error)
	capacity uint
	mask     uint
	entities []Entity
	count    uint
	tree     *merkle.Tree
	scratch  PackedEntity
}

// New - create an empty store
//
// capacity must be a power of two, halt is called on capacity exhaustion
func New(capacity uint, hasher merkle.Hasher, halt func(error)) (*Store, error) {
	if 0 == capacity || 0 != capacity&(capacity-1) {
		return nil, fault.ErrCapacityNotPowerOfTwo
	}

	s := &Store{
		log:      logger.New("spectrum"),
		halt:     halt,
		capacity: capacity,
		mask:     capacity - 1,
		entities: make([]Entity, capacity),
	}

	tree, err := merkle.NewTree(capacity, hasher, leaves{s})
	if nil != err {
		return nil, err
	}
	s.tree = tree

	s.log.Infof("capacity: %d", capacity)
	return s, nil
}

// leaf source reading packed records; the caller holds the store lock
type leaves struct {
	s *Store
}

func (l leaves) LeafBytes(index uint) []byte {
	l.s.entities[index].PackInto(l.s.scratch[:])
	return l.s.scratch[:]
}

// home slot of a key
func (s *Store) home(publicKey cryptography.PublicKey) uint {
	return uint(binary.LittleEndian.Uint32(publicKey[:4])) & s.mask
}

// probe for a key: returns the slot holding the key or the first
// empty slot where it would go; false if the table is full
//
// must hold lock
func (s *Store) probe(publicKey cryptography.PublicKey) (uint, bool) {
	slot := s.home(publicKey)
	for i := uint(0); i < s.capacity; i += 1 {
		k := s.entities[slot].PublicKey
		if k == publicKey || k.IsZero() {
			return slot, true
		}
		slot = (slot + 1) & s.mask
	}
	return 0, false
}

// Capacity - number of slots
func (s *Store) Capacity() uint {
	return s.capacity
}

// Find - slot of a public key
func (s *Store) Find(publicKey cryptography.PublicKey) (uint, bool) {
	if publicKey.IsZero() {
		return 0, false
	}

	s.Lock()
	defer s.Unlock()

	slot, ok := s.probe(publicKey)
	if !ok || s.entities[slot].PublicKey.IsZero() {
		return 0, false
	}
	return slot, true
}

// Get - copy of the entity at a slot
func (s *Store) Get(slot uint) (Entity, bool) {
	if slot >= s.capacity {
		return Entity{}, false
	}

	s.Lock()
	defer s.Unlock()

	e := s.entities[slot]
	return e, !e.PublicKey.IsZero()
}

// Entity - copy of the entity for a key with its slot
func (s *Store) Entity(publicKey cryptography.PublicKey) (Entity, uint, bool) {
	slot, ok := s.Find(publicKey)
	if !ok {
		return Entity{}, 0, false
	}
	e, ok := s.Get(slot)
	return e, slot, ok
}

// Balance - zero for unknown keys
func (s *Store) Balance(publicKey cryptography.PublicKey) int64 {
	e, _, ok := s.Entity(publicKey)
	if !ok {
		return 0
	}
	return e.Balance()
}

// Credit - increase the incoming amount of a key, creating its
// entity if absent
func (s *Store) Credit(publicKey cryptography.PublicKey, amount int64, tick uint32) (uint, error) {
	if publicKey.IsZero() {
		return 0, fault.ErrZeroPublicKey
	}
	if amount <= 0 || amount > constants.MaxAmount {
		return 0, fault.ErrInvalidAmount
	}

	s.Lock()
	slot, ok := s.probe(publicKey)
	if !ok {
		s.Unlock()
		s.log.Criticalf("credit: %s  capacity: %d exhausted", publicKey, s.capacity)
		s.halt(fault.ErrSpectrumFull)
		return 0, fault.ErrSpectrumFull
	}

	e := &s.entities[slot]
	if e.PublicKey.IsZero() {
		e.PublicKey = publicKey
		s.count += 1
	}
	e.IncomingAmount += amount
	e.NumberOfIncomingTransfers += 1
	e.LatestIncomingTransferTick = tick
	s.tree.MarkDirty(slot)
	s.Unlock()

	return slot, nil
}

// Debit - decrease the balance at a slot
//
// succeeds only if the balance covers the amount, otherwise the
// entity is not changed
func (s *Store) Debit(slot uint, amount int64, tick uint32) bool {
	if slot >= s.capacity || amount <= 0 {
		return false
	}

	s.Lock()
	defer s.Unlock()

	e := &s.entities[slot]
	if e.PublicKey.IsZero() || e.Balance() < amount {
		return false
	}
	e.OutgoingAmount += amount
	e.NumberOfOutgoingTransfers += 1
	e.LatestOutgoingTransferTick = tick
	s.tree.MarkDirty(slot)
	return true
}

// Transfer - move an amount between two keys
func (s *Store) Transfer(source cryptography.PublicKey, destination cryptography.PublicKey, amount int64, tick uint32) error {
	if amount <= 0 || amount > constants.MaxAmount {
		return fault.ErrInvalidAmount
	}
	if destination.IsZero() {
		return fault.ErrZeroPublicKey
	}
	slot, ok := s.Find(source)
	if !ok {
		return fault.ErrEntityNotFound
	}
	if !s.Debit(slot, amount, tick) {
		return fault.ErrInsufficientBalance
	}
	_, err := s.Credit(destination, amount, tick)
	return err
}

// Count - number of occupied slots
func (s *Store) Count() uint {
	s.Lock()
	defer s.Unlock()
	return s.count
}

// TotalSupply - sum of all balances
func (s *Store) TotalSupply() int64 {
	s.Lock()
	defer s.Unlock()

	total := int64(0)
	for i := range s.entities {
		if !s.entities[i].PublicKey.IsZero() {
			total += s.entities[i].Balance()
		}
	}
	return total
}

// Digest - reduce the digest tree over the current records
func (s *Store) Digest() merkle.Digest {
	s.Lock()
	defer s.Unlock()
	return s.tree.Reduce()
}

// Proof - entity, its slot and the sibling path as of the latest Digest
func (s *Store) Proof(publicKey cryptography.PublicKey) (Entity, uint, []merkle.Digest, bool) {
	slot, ok := s.Find(publicKey)
	if !ok {
		return Entity{}, 0, nil, false
	}

	s.Lock()
	defer s.Unlock()
	return s.entities[slot], slot, s.tree.Siblings(slot), true
}

// Compact - drop zero balance entities and reinsert the others so
// probe sequences are short again
//
// incoming and outgoing totals of the kept entities are unchanged
func (s *Store) Compact() {
	s.Lock()
	defer s.Unlock()

	kept := make([]Entity, 0, s.count)
	for i := range s.entities {
		e := s.entities[i]
		if !e.PublicKey.IsZero() && e.Balance() > 0 {
			kept = append(kept, e)
		}
	}

	before := s.count
	for i := range s.entities {
		s.entities[i] = Entity{}
	}
	s.count = 0

	for _, e := range kept {
		slot, _ := s.probe(e.PublicKey) // cannot fail: fewer entries than before
		s.entities[slot] = e
		s.count += 1
	}
	s.tree.MarkAll()

	s.log.Infof("compact: entities: %d -> %d", before, s.count)
}

// Snapshot - every slot packed in order
func (s *Store) Snapshot() []byte {
	s.Lock()
	defer s.Unlock()

	buffer := make([]byte, s.capacity*EntitySize)
	for i := range s.entities {
		s.entities[i].PackInto(buffer[uint(i)*EntitySize:])
	}
	return buffer
}

// Restore - replace every slot from a snapshot
func (s *Store) Restore(buffer []byte) error {
	if uint(len(buffer)) != s.capacity*EntitySize {
		return fault.ErrSnapshotSizeMismatch
	}

	entities := make([]Entity, s.capacity)
	count := uint(0)
	for i := range entities {
		e, err := Unpack(buffer[uint(i)*EntitySize:])
		if nil != err {
			return err
		}
		entities[i] = *e
		if !e.PublicKey.IsZero() {
			count += 1
		}
	}

	s.Lock()
	s.entities = entities
	s.count = count
	s.tree.MarkAll()
	s.Unlock()

	s.log.Infof("restore: entities: %d", count)
	return nil
}
