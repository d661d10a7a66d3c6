// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package merkle

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/bitmark-inc/quorumd/fault"
)

// Hasher - the two hash functions the tree needs
type Hasher interface {
	Hash32(data []byte) Digest
	Hash64to32(data *[2 * DigestLength]byte) Digest
}

// LeafSource - supplies the raw record bytes of one leaf
//
// a zero length record has the zero digest
type LeafSource interface {
	LeafBytes(index uint) []byte
}

// Tree - complete binary digest tree over a fixed number of leaves
//
// structure of digests (same as the full tree of transaction ids):
//   1. leaves digests
//   2. level 1..depth-1 digests
//   3. root digest (last element)
//
// a Tree is not locked; its owner serialises access together with
// the records the leaves are read from
type Tree struct {
	leaves  uint
	depth   uint
	offsets []uint // start of each level in digests
	digests []Digest
	dirty   *bitset.BitSet // one bit per node
	hasher  Hasher
	source  LeafSource
}

// NewTree - create a tree with every leaf flagged so the first
// Reduce computes the complete tree
func NewTree(leaves uint, hasher Hasher, source LeafSource) (*Tree, error) {
	if 0 == leaves || 0 != leaves&(leaves-1) {
		return nil, fault.ErrCapacityNotPowerOfTwo
	}

	depth := uint(0)
	for n := leaves; n > 1; n >>= 1 {
		depth += 1
	}

	offsets := make([]uint, depth+1)
	total := uint(0)
	for level, n := uint(0), leaves; level <= depth; level, n = level+1, n>>1 {
		offsets[level] = total
		total += n
	}

	t := &Tree{
		leaves:  leaves,
		depth:   depth,
		offsets: offsets,
		digests: make([]Digest, total),
		dirty:   bitset.New(total),
		hasher:  hasher,
		source:  source,
	}
	t.MarkAll()
	return t, nil
}

// Leaves - number of leaves
func (t *Tree) Leaves() uint {
	return t.leaves
}

// Depth - number of levels above the leaves
func (t *Tree) Depth() uint {
	return t.depth
}

// MarkDirty - flag a leaf whose record bytes may have changed
func (t *Tree) MarkDirty(leaf uint) {
	if leaf < t.leaves {
		t.dirty.Set(leaf)
	}
}

// MarkAll - flag every leaf, used after a wholesale reload
func (t *Tree) MarkAll() {
	for i := uint(0); i < t.leaves; i += 1 {
		t.dirty.Set(i)
	}
}

// Reduce - recompute only the flagged nodes and return the root
//
// a parent always has a higher index than its children so a single
// ascending pass over the flags visits every child before its parent
func (t *Tree) Reduce() Digest {
	root := uint(len(t.digests) - 1)

	for i, ok := t.dirty.NextSet(0); ok; i, ok = t.dirty.NextSet(i + 1) {
		t.dirty.Clear(i)

		level, local := t.locate(i)
		if 0 == level {
			t.digests[i] = t.leafDigest(i)
		} else {
			left := t.offsets[level-1] + 2*local
			t.digests[i] = t.pair(t.digests[left], t.digests[left+1])
		}

		if i != root {
			t.dirty.Set(t.offsets[level+1] + local/2)
		}
	}
	return t.digests[root]
}

// Root - root computed by the last Reduce
func (t *Tree) Root() Digest {
	return t.digests[len(t.digests)-1]
}

// Leaf - digest of a leaf as of the last Reduce
func (t *Tree) Leaf(leaf uint) Digest {
	if leaf >= t.leaves {
		return Digest{}
	}
	return t.digests[leaf]
}

// Siblings - proof path from a leaf up to (excluding) the root
// as of the last Reduce
func (t *Tree) Siblings(leaf uint) []Digest {
	if leaf >= t.leaves {
		return nil
	}
	siblings := make([]Digest, t.depth)
	local := leaf
	for level := uint(0); level < t.depth; level += 1 {
		siblings[level] = t.digests[t.offsets[level]+(local^1)]
		local >>= 1
	}
	return siblings
}

// Fold - recompute the root from a leaf digest and its siblings
func Fold(hasher Hasher, leafDigest Digest, leaf uint, siblings []Digest) Digest {
	d := leafDigest
	for _, s := range siblings {
		var buffer [2 * DigestLength]byte
		if 0 == leaf&1 {
			copy(buffer[:DigestLength], d[:])
			copy(buffer[DigestLength:], s[:])
		} else {
			copy(buffer[:DigestLength], s[:])
			copy(buffer[DigestLength:], d[:])
		}
		d = hasher.Hash64to32(&buffer)
		leaf >>= 1
	}
	return d
}

// level and position within the level of a node
func (t *Tree) locate(node uint) (uint, uint) {
	level := uint(0)
	for level < t.depth && node >= t.offsets[level+1] {
		level += 1
	}
	return level, node - t.offsets[level]
}

func (t *Tree) leafDigest(leaf uint) Digest {
	record := t.source.LeafBytes(leaf)
	if 0 == len(record) {
		return Digest{}
	}
	return t.hasher.Hash32(record)
}

func (t *Tree) pair(left Digest, right Digest) Digest {
	var buffer [2 * DigestLength]byte
	copy(buffer[:DigestLength], left[:])
	copy(buffer[DigestLength:], right[:])
	return t.hasher.Hash64to32(&buffer)
}
