// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package universe

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
)

// Store - open addressing table of issuances, ownerships and possessions
type Store struct {
	sync.Mutex

	log      *logger.L
	halt     func(error)
	capacity uint
	mask     uint
	assets   []Asset
	count    uint
	tree     *merkle.Tree
	scratch  PackedAsset
}

// New - create an empty store
//
// capacity must be a power of two, halt is called on capacity exhaustion
func New(capacity uint, hasher merkle.Hasher, halt func(error)) (*Store, error) {
	if 0 == capacity || 0 != capacity&(capacity-1) {
		return nil, fault.ErrCapacityNotPowerOfTwo
	}

	s := &Store{
		log:      logger.New("universe"),
		halt:     halt,
		capacity: capacity,
		mask:     capacity - 1,
		assets:   make([]Asset, capacity),
	}

	tree, err := merkle.NewTree(capacity, hasher, leaves{s})
	if nil != err {
		return nil, err
	}
	s.tree = tree

	s.log.Infof("capacity: %d", capacity)
	return s, nil
}

type leaves struct {
	s *Store
}

func (l leaves) LeafBytes(index uint) []byte {
	l.s.assets[index].PackInto(l.s.scratch[:])
	return l.s.scratch[:]
}

// probe for a slot matching the predicate starting at the key's
// home slot; returns the match or the first empty slot, and false
// for a full table
//
// must hold lock
func (s *Store) probe(publicKey cryptography.PublicKey, match func(*Asset) bool) (uint, bool) {
	slot := uint(binary.LittleEndian.Uint32(publicKey[:4])) & s.mask
	for i := uint(0); i < s.capacity; i += 1 {
		a := &s.assets[slot]
		if Empty == a.Type || (a.PublicKey == publicKey && match(a)) {
			return slot, true
		}
		slot = (slot + 1) & s.mask
	}
	return 0, false
}

// must not hold lock: halt may never return
func (s *Store) exhausted(operation string, err error) {
	if fault.ErrAssetsFull != err {
		return
	}
	s.log.Criticalf("%s: capacity: %d exhausted", operation, s.capacity)
	s.halt(fault.ErrAssetsFull)
}

func matchIssuance(name [NameSize]byte) func(*Asset) bool {
	return func(a *Asset) bool {
		return Issuance == a.Type && a.Name == name
	}
}

func matchHolding(t Type, managingContract uint16, link uint32) func(*Asset) bool {
	return func(a *Asset) bool {
		return t == a.Type && a.ManagingContract == managingContract && a.Link == link
	}
}

// Capacity - number of slots
func (s *Store) Capacity() uint {
	return s.capacity
}

// Count - number of occupied slots
func (s *Store) Count() uint {
	s.Lock()
	defer s.Unlock()
	return s.count
}

// Get - copy of a record
func (s *Store) Get(index uint) (Asset, bool) {
	if index >= s.capacity {
		return Asset{}, false
	}
	s.Lock()
	defer s.Unlock()
	a := s.assets[index]
	return a, Empty != a.Type
}

// OwnershipUnits - units of an ownership record, zero for any other slot
func (s *Store) OwnershipUnits(index uint) int64 {
	a, ok := s.Get(index)
	if !ok || Ownership != a.Type {
		return 0
	}
	return a.NumberOfUnits
}

// PossessionUnits - units of a possession record, zero for any other slot
func (s *Store) PossessionUnits(index uint) int64 {
	a, ok := s.Get(index)
	if !ok || Possession != a.Type {
		return 0
	}
	return a.NumberOfUnits
}

// FindIssuance - index of an issuance by issuer and name
func (s *Store) FindIssuance(issuer cryptography.PublicKey, name [NameSize]byte) (uint, bool) {
	return s.find(issuer, Issuance, matchIssuance(name))
}

// FindOwnership - index of the ownership of an issuance by owner
func (s *Store) FindOwnership(owner cryptography.PublicKey, managingContract uint16, issuanceIndex uint) (uint, bool) {
	return s.find(owner, Ownership, matchHolding(Ownership, managingContract, uint32(issuanceIndex)))
}

// FindPossession - index of the possession of an ownership by possessor
func (s *Store) FindPossession(possessor cryptography.PublicKey, managingContract uint16, ownershipIndex uint) (uint, bool) {
	return s.find(possessor, Possession, matchHolding(Possession, managingContract, uint32(ownershipIndex)))
}

func (s *Store) find(publicKey cryptography.PublicKey, t Type, match func(*Asset) bool) (uint, bool) {
	s.Lock()
	defer s.Unlock()

	slot, ok := s.probe(publicKey, match)
	if !ok || t != s.assets[slot].Type {
		return 0, false
	}
	return slot, true
}

// Issue - create an issuance with all units owned and possessed by
// the issuer under the managing contract
func (s *Store) Issue(issuer cryptography.PublicKey, name string, decimals int8, unit [UnitSize]byte, totalUnits int64, managingContract uint16) (uint, uint, uint, error) {
	if issuer.IsZero() {
		return 0, 0, 0, fault.ErrZeroPublicKey
	}
	packedName, err := NameFromString(name)
	if nil != err {
		return 0, 0, 0, err
	}
	if totalUnits <= 0 || totalUnits > constants.MaxAmount {
		return 0, 0, 0, fault.ErrInvalidUnits
	}

	s.Lock()
	issuanceIndex, ownershipIndex, possessionIndex, err := s.issue(issuer, packedName, decimals, unit, totalUnits, managingContract)
	s.Unlock()

	s.exhausted("issue", err)
	if nil != err {
		return 0, 0, 0, err
	}
	s.log.Infof("issue: %q  issuer: %s  units: %d  indices: %d/%d/%d", name, issuer, totalUnits, issuanceIndex, ownershipIndex, possessionIndex)
	return issuanceIndex, ownershipIndex, possessionIndex, nil
}

// must hold lock
func (s *Store) issue(issuer cryptography.PublicKey, packedName [NameSize]byte, decimals int8, unit [UnitSize]byte, totalUnits int64, managingContract uint16) (uint, uint, uint, error) {
	issuanceIndex, ok := s.probe(issuer, matchIssuance(packedName))
	if !ok {
		return 0, 0, 0, fault.ErrAssetsFull
	}
	if Empty != s.assets[issuanceIndex].Type {
		return 0, 0, 0, fault.ErrAssetExists
	}
	s.assets[issuanceIndex] = Asset{
		PublicKey:             issuer,
		Type:                  Issuance,
		Name:                  packedName,
		NumberOfDecimalPlaces: decimals,
		UnitOfMeasurement:     unit,
	}
	s.occupy(issuanceIndex)

	ownershipIndex, ok := s.probe(issuer, matchHolding(Ownership, managingContract, uint32(issuanceIndex)))
	if !ok {
		return 0, 0, 0, fault.ErrAssetsFull
	}
	s.assets[ownershipIndex] = Asset{
		PublicKey:        issuer,
		Type:             Ownership,
		ManagingContract: managingContract,
		Link:             uint32(issuanceIndex),
		NumberOfUnits:    totalUnits,
	}
	s.occupy(ownershipIndex)

	possessionIndex, ok := s.probe(issuer, matchHolding(Possession, managingContract, uint32(ownershipIndex)))
	if !ok {
		return 0, 0, 0, fault.ErrAssetsFull
	}
	s.assets[possessionIndex] = Asset{
		PublicKey:        issuer,
		Type:             Possession,
		ManagingContract: managingContract,
		Link:             uint32(ownershipIndex),
		NumberOfUnits:    totalUnits,
	}
	s.occupy(possessionIndex)

	return issuanceIndex, ownershipIndex, possessionIndex, nil
}

// mark a just written slot; must hold lock
func (s *Store) occupy(index uint) {
	s.count += 1
	s.tree.MarkDirty(index)
}

// Transfer - move ownership and possession of units to another key
//
// returns the destination ownership and possession indices; nothing
// changes on error
func (s *Store) Transfer(sourceOwnershipIndex uint, sourcePossessionIndex uint, destination cryptography.PublicKey, units int64) (uint, uint, error) {
	if destination.IsZero() {
		return 0, 0, fault.ErrZeroPublicKey
	}
	if units <= 0 || units > constants.MaxAmount {
		return 0, 0, fault.ErrInvalidUnits
	}
	if sourceOwnershipIndex >= s.capacity || sourcePossessionIndex >= s.capacity {
		return 0, 0, fault.ErrAssetNotFound
	}

	s.Lock()
	destinationOwnershipIndex, destinationPossessionIndex, err := s.transfer(sourceOwnershipIndex, sourcePossessionIndex, destination, units)
	s.Unlock()

	s.exhausted("transfer", err)
	return destinationOwnershipIndex, destinationPossessionIndex, err
}

// must hold lock
func (s *Store) transfer(sourceOwnershipIndex uint, sourcePossessionIndex uint, destination cryptography.PublicKey, units int64) (uint, uint, error) {
	ownership := &s.assets[sourceOwnershipIndex]
	possession := &s.assets[sourcePossessionIndex]
	if Ownership != ownership.Type || Possession != possession.Type {
		return 0, 0, fault.ErrAssetTypeMismatch
	}
	if uint(possession.Link) != sourceOwnershipIndex || possession.ManagingContract != ownership.ManagingContract {
		return 0, 0, fault.ErrInconsistentAssetLink
	}
	if possession.NumberOfUnits < units || ownership.NumberOfUnits < units {
		return 0, 0, fault.ErrInsufficientUnits
	}

	managingContract := ownership.ManagingContract
	issuanceIndex := ownership.Link

	destinationOwnershipIndex, ok := s.probe(destination, matchHolding(Ownership, managingContract, issuanceIndex))
	if !ok {
		return 0, 0, fault.ErrAssetsFull
	}
	if Empty == s.assets[destinationOwnershipIndex].Type {
		s.assets[destinationOwnershipIndex] = Asset{
			PublicKey:        destination,
			Type:             Ownership,
			ManagingContract: managingContract,
			Link:             issuanceIndex,
		}
		s.occupy(destinationOwnershipIndex)
	}

	destinationPossessionIndex, ok := s.probe(destination, matchHolding(Possession, managingContract, uint32(destinationOwnershipIndex)))
	if !ok {
		return 0, 0, fault.ErrAssetsFull
	}
	if Empty == s.assets[destinationPossessionIndex].Type {
		s.assets[destinationPossessionIndex] = Asset{
			PublicKey:        destination,
			Type:             Possession,
			ManagingContract: managingContract,
			Link:             uint32(destinationOwnershipIndex),
		}
		s.occupy(destinationPossessionIndex)
	}

	ownership.NumberOfUnits -= units
	possession.NumberOfUnits -= units
	s.assets[destinationOwnershipIndex].NumberOfUnits += units
	s.assets[destinationPossessionIndex].NumberOfUnits += units

	s.tree.MarkDirty(sourceOwnershipIndex)
	s.tree.MarkDirty(sourcePossessionIndex)
	s.tree.MarkDirty(destinationOwnershipIndex)
	s.tree.MarkDirty(destinationPossessionIndex)

	return destinationOwnershipIndex, destinationPossessionIndex, nil
}

// Digest - reduce the digest tree over the current records
func (s *Store) Digest() merkle.Digest {
	s.Lock()
	defer s.Unlock()
	return s.tree.Reduce()
}

// Compact - drop zero unit holdings and reinsert everything else
//
// issuances are placed first, then ownerships and possessions with
// their links rewritten to the new indices
func (s *Store) Compact() {
	s.Lock()
	defer s.Unlock()

	old := s.assets
	before := s.count
	s.assets = make([]Asset, s.capacity)
	s.count = 0

	issuances := make(map[uint32]uint32)
	ownerships := make(map[uint32]uint32)

	for _, t := range []Type{Issuance, Ownership, Possession} {
		for i := range old {
			a := old[i]
			if t != a.Type {
				continue
			}
			var match func(*Asset) bool
			switch t {
			case Issuance:
				match = matchIssuance(a.Name)
			case Ownership:
				if a.NumberOfUnits <= 0 {
					continue
				}
				link, ok := issuances[a.Link]
				if !ok {
					s.log.Errorf("compact: ownership: %d  missing issuance: %d", i, a.Link)
					continue
				}
				a.Link = link
				match = matchHolding(Ownership, a.ManagingContract, a.Link)
			case Possession:
				if a.NumberOfUnits <= 0 {
					continue
				}
				link, ok := ownerships[a.Link]
				if !ok {
					s.log.Errorf("compact: possession: %d  missing ownership: %d", i, a.Link)
					continue
				}
				a.Link = link
				match = matchHolding(Possession, a.ManagingContract, a.Link)
			}

			slot, _ := s.probe(a.PublicKey, match) // cannot fail: fewer entries than before
			s.assets[slot] = a
			s.count += 1

			switch t {
			case Issuance:
				issuances[uint32(i)] = uint32(slot)
			case Ownership:
				ownerships[uint32(i)] = uint32(slot)
			}
		}
	}
	s.tree.MarkAll()

	s.log.Infof("compact: assets: %d -> %d", before, s.count)
}

// Snapshot - every slot packed in order
func (s *Store) Snapshot() []byte {
	s.Lock()
	defer s.Unlock()

	buffer := make([]byte, s.capacity*AssetSize)
	for i := range s.assets {
		s.assets[i].PackInto(buffer[uint(i)*AssetSize:])
	}
	return buffer
}

// Restore - replace every slot from a snapshot
func (s *Store) Restore(buffer []byte) error {
	if uint(len(buffer)) != s.capacity*AssetSize {
		return fault.ErrSnapshotSizeMismatch
	}

	assets := make([]Asset, s.capacity)
	count := uint(0)
	for i := range assets {
		a, err := Unpack(buffer[uint(i)*AssetSize:])
		if nil != err {
			return err
		}
		assets[i] = *a
		if Empty != a.Type {
			count += 1
		}
	}

	s.Lock()
	s.assets = assets
	s.count = count
	s.tree.MarkAll()
	s.Unlock()

	s.log.Infof("restore: assets: %d", count)
	return nil
}
