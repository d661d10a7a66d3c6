// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package spectrum_test

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/spectrum"
)

func TestMain(m *testing.M) {
	dir, _ := os.Getwd()
	err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "spectrum_test.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	})
	if nil != err {
		panic(err)
	}
	rc := m.Run()
	logger.Finalise()
	_ = os.Remove("spectrum_test.log")
	os.Exit(rc)
}

// records halt reasons instead of stopping
type haltRecorder struct {
	reasons []error
}

func (h *haltRecorder) halt(err error) {
	h.reasons = append(h.reasons, err)
}

func newStore(t *testing.T, capacity uint) (*spectrum.Store, *haltRecorder) {
	h := &haltRecorder{}
	s, err := spectrum.New(capacity, cryptography.New(), h.halt)
	require.Nil(t, err, "new store")
	return s, h
}

// keys with a chosen home slot
func key(low byte, tag byte) cryptography.PublicKey {
	k := cryptography.PublicKey{}
	k[0] = low
	k[31] = tag
	return k
}

func TestNewInvalidCapacity(t *testing.T) {
	_, err := spectrum.New(100, cryptography.New(), nil)
	assert.Equal(t, fault.ErrCapacityNotPowerOfTwo, err, "capacity")
}

func TestCreditAndFind(t *testing.T) {
	s, _ := newStore(t, 16)

	k := key(3, 1)
	_, ok := s.Find(k)
	assert.False(t, ok, "absent before credit")

	slot, err := s.Credit(k, 1000, 7)
	assert.Nil(t, err, "credit")
	assert.Equal(t, uint(3), slot, "home slot")

	found, ok := s.Find(k)
	assert.True(t, ok, "present")
	assert.Equal(t, slot, found, "same slot")

	e, ok := s.Get(slot)
	assert.True(t, ok, "get")
	assert.Equal(t, int64(1000), e.IncomingAmount, "incoming")
	assert.Equal(t, uint32(1), e.NumberOfIncomingTransfers, "transfers")
	assert.Equal(t, uint32(7), e.LatestIncomingTransferTick, "tick")

	_, err = s.Credit(k, 0, 8)
	assert.Equal(t, fault.ErrInvalidAmount, err, "zero amount")
	_, err = s.Credit(cryptography.PublicKey{}, 5, 8)
	assert.Equal(t, fault.ErrZeroPublicKey, err, "zero key")
}

func TestLinearProbing(t *testing.T) {
	s, _ := newStore(t, 8)

	// all three share home slot 7 and wrap around
	a, err := s.Credit(key(7, 1), 1, 1)
	assert.Nil(t, err, "a")
	b, err := s.Credit(key(7, 2), 1, 1)
	assert.Nil(t, err, "b")
	c, err := s.Credit(key(15, 3), 1, 1)
	assert.Nil(t, err, "c")

	assert.Equal(t, uint(7), a, "home")
	assert.Equal(t, uint(0), b, "wrapped")
	assert.Equal(t, uint(1), c, "next after wrap")
	assert.Equal(t, uint(3), s.Count(), "count")
}

func TestDebitRejection(t *testing.T) {
	s, _ := newStore(t, 16)
	k := key(1, 1)

	slot, err := s.Credit(k, 1000, 1)
	require.Nil(t, err, "credit")
	require.True(t, s.Debit(slot, 400, 2), "first debit")

	assert.False(t, s.Debit(slot, 700, 3), "debit over balance")

	e, _ := s.Get(slot)
	assert.Equal(t, int64(1000), e.IncomingAmount, "incoming unchanged")
	assert.Equal(t, int64(400), e.OutgoingAmount, "outgoing unchanged")
	assert.Equal(t, int64(600), e.Balance(), "balance")
	assert.Equal(t, uint32(2), e.LatestOutgoingTransferTick, "tick of last accepted debit")

	assert.True(t, s.Debit(slot, 600, 4), "exact balance")
	assert.Equal(t, int64(0), s.Balance(k), "empty")
	assert.False(t, s.Debit(slot, 1, 5), "nothing left")
	assert.False(t, s.Debit(99, 1, 5), "out of range")
}

func TestOutgoingNeverExceedsIncoming(t *testing.T) {
	s, _ := newStore(t, 32)
	keys := []cryptography.PublicKey{key(1, 1), key(2, 2), key(3, 3)}
	for _, k := range keys {
		_, err := s.Credit(k, 100, 1)
		require.Nil(t, err, "credit")
	}

	amounts := []int64{30, 80, 5, 200, 70, 1, 99}
	for i, amount := range amounts {
		src := keys[i%len(keys)]
		dst := keys[(i+1)%len(keys)]
		_ = s.Transfer(src, dst, amount, uint32(i))
		for _, k := range keys {
			e, _, ok := s.Entity(k)
			assert.True(t, ok, "entity")
			assert.True(t, e.OutgoingAmount <= e.IncomingAmount, "step %d: %s", i, k)
		}
	}
	assert.Equal(t, int64(300), s.TotalSupply(), "supply conserved by transfers")
}

func TestTransferErrors(t *testing.T) {
	s, _ := newStore(t, 16)
	a := key(1, 1)
	b := key(2, 2)

	assert.Equal(t, fault.ErrEntityNotFound, s.Transfer(a, b, 10, 1), "unknown source")
	_, err := s.Credit(a, 10, 1)
	require.Nil(t, err, "credit")
	assert.Equal(t, fault.ErrInsufficientBalance, s.Transfer(a, b, 11, 1), "too much")
	assert.Equal(t, fault.ErrInvalidAmount, s.Transfer(a, b, -1, 1), "negative")
	assert.Nil(t, s.Transfer(a, b, 10, 2), "all of it")
	assert.Equal(t, int64(10), s.Balance(b), "destination balance")
}

func TestFullStoreHalts(t *testing.T) {
	s, h := newStore(t, 4)
	for i := byte(1); i <= 4; i += 1 {
		_, err := s.Credit(key(i, i), 1, 1)
		require.Nil(t, err, "credit: %d", i)
	}

	_, err := s.Credit(key(9, 9), 1, 1)
	assert.Equal(t, fault.ErrSpectrumFull, err, "full")
	assert.Equal(t, []error{fault.ErrSpectrumFull}, h.reasons, "halt called")

	// existing keys can still be credited
	_, err = s.Credit(key(2, 2), 1, 2)
	assert.Nil(t, err, "existing key")
}

func TestDigest(t *testing.T) {
	s1, _ := newStore(t, 16)
	s2, _ := newStore(t, 16)

	empty := s1.Digest()
	assert.Equal(t, empty, s2.Digest(), "empty stores agree")

	_, err := s1.Credit(key(5, 1), 50, 1)
	require.Nil(t, err, "credit")
	d1 := s1.Digest()
	assert.NotEqual(t, empty, d1, "changed")
	assert.Equal(t, d1, s1.Digest(), "no intervening mutation")

	_, err = s2.Credit(key(5, 1), 50, 1)
	require.Nil(t, err, "credit")
	assert.Equal(t, d1, s2.Digest(), "same content same digest")
}

func TestCompactPreservesSupply(t *testing.T) {
	s, _ := newStore(t, 16)

	a := key(4, 1)
	b := key(4, 2)
	c := key(4, 3)
	for _, k := range []cryptography.PublicKey{a, b, c} {
		_, err := s.Credit(k, 100, 1)
		require.Nil(t, err, "credit")
	}
	require.Nil(t, s.Transfer(a, c, 100, 2), "empty a")

	before := s.TotalSupply()
	s.Compact()

	assert.Equal(t, before, s.TotalSupply(), "supply")
	assert.Equal(t, uint(2), s.Count(), "zero balance removed")
	_, ok := s.Find(a)
	assert.False(t, ok, "a removed")

	slot, ok := s.Find(b)
	assert.True(t, ok, "b kept")
	assert.Equal(t, uint(4), slot, "b moved to home slot")

	e, _, _ := s.Entity(c)
	assert.Equal(t, int64(200), e.IncomingAmount, "totals kept")
}

func TestSnapshotRestore(t *testing.T) {
	s, _ := newStore(t, 8)
	_, err := s.Credit(key(1, 1), 77, 3)
	require.Nil(t, err, "credit")
	_, err = s.Credit(key(6, 2), 23, 4)
	require.Nil(t, err, "credit")
	digest := s.Digest()

	snapshot := s.Snapshot()
	assert.Equal(t, 8*spectrum.EntitySize, len(snapshot), "size")

	r, _ := newStore(t, 8)
	require.Nil(t, r.Restore(snapshot), "restore")
	assert.Equal(t, digest, r.Digest(), "digest")
	assert.Equal(t, uint(2), r.Count(), "count")
	assert.Equal(t, int64(100), r.TotalSupply(), "supply")

	assert.Equal(t, fault.ErrSnapshotSizeMismatch, r.Restore(snapshot[1:]), "size mismatch")
}

func TestProof(t *testing.T) {
	s, _ := newStore(t, 16)
	c := cryptography.New()
	k := key(9, 9)
	_, err := s.Credit(k, 5, 1)
	require.Nil(t, err, "credit")
	root := s.Digest()

	e, slot, siblings, ok := s.Proof(k)
	require.True(t, ok, "proof")
	assert.Equal(t, 4, len(siblings), "depth")

	record := e.Pack()
	assert.Equal(t, root, merkle.Fold(c, c.Hash32(record[:]), slot, siblings), "proof folds to root")
}
