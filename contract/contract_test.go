// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract_test

import (
	"encoding/binary"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/quorumd/contract"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/spectrum"
	"github.com/bitmark-inc/quorumd/universe"
)

func TestMain(m *testing.M) {
	dir, _ := os.Getwd()
	err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "contract_test.log",
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
	_ = os.Remove("contract_test.log")
	os.Exit(rc)
}

func noHalt(err error) {
	panic(err)
}

func stores(t *testing.T) (*spectrum.Store, *universe.Store) {
	c := cryptography.New()
	ledger, err := spectrum.New(64, c, noHalt)
	require.Nil(t, err, "spectrum")
	assets, err := universe.New(64, c, noHalt)
	require.Nil(t, err, "universe")
	return ledger, assets
}

// records every call in a shared journal
type journal struct {
	sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.Lock()
	j.entries = append(j.entries, s)
	j.Unlock()
}

func (j *journal) get() []string {
	j.Lock()
	defer j.Unlock()
	return append([]string{}, j.entries...)
}

type recorder struct {
	name        string
	description contract.Description
	journal     *journal
	block       chan struct{} // BeginTick waits on this if not nil
}

func (r *recorder) Description() contract.Description { return r.description }
func (r *recorder) Initialize(ctx *contract.Context) { r.journal.add(r.name + ":INITIALIZE") }
func (r *recorder) BeginEpoch(ctx *contract.Context) { r.journal.add(r.name + ":BEGIN_EPOCH") }
func (r *recorder) EndTick(ctx *contract.Context) { r.journal.add(r.name + ":END_TICK") }
func (r *recorder) EndEpoch(ctx *contract.Context) { r.journal.add(r.name + ":END_EPOCH") }

func (r *recorder) BeginTick(ctx *contract.Context) {
	r.journal.add(r.name + ":BEGIN_TICK")
	ctx.State[0] += 1
	if nil != r.block {
		<-r.block
		err := ctx.Transfer(cryptography.PublicKey{9}, 1)
		r.journal.add(r.name + ":after:" + errorString(err))
	}
}

func (r *recorder) Procedure(ctx *contract.Context, inputType uint16, input []byte) error {
	r.journal.add(r.name + ":PROCEDURE")
	if 99 == inputType {
		panic("boom")
	}
	return nil
}

func errorString(err error) string {
	if nil == err {
		return "ok"
	}
	return err.Error()
}

func newRecorder(name string, j *journal, construction uint16, destruction uint16) *recorder {
	return &recorder{
		name: name,
		description: contract.Description{
			Name:              name,
			AssetName:         name,
			ConstructionEpoch: construction,
			DestructionEpoch:  destruction,
			StateSize:         8,
		},
		journal: j,
	}
}

func TestRegistryIndexZeroReserved(t *testing.T) {
	ledger, assets := stores(t)
	j := &journal{}
	_, err := contract.NewScheduler([]contract.Contract{newRecorder("A", j, 1, 10)}, ledger, assets, cryptography.New(), time.Second)
	assert.Equal(t, fault.ErrInvalidContractIndex, err, "index 0")
}

func TestPhaseOrdering(t *testing.T) {
	ledger, assets := stores(t)
	j := &journal{}
	registry := []contract.Contract{
		nil,
		newRecorder("A", j, 5, 100),
		newRecorder("B", j, 3, 100),
		newRecorder("C", j, 5, 6), // destroyed after epoch 5
		newRecorder("D", j, 9, 100),
	}
	s, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	assert.True(t, s.RunPhase(contract.Initialize, 5, 100), "initialize")
	assert.True(t, s.RunPhase(contract.BeginEpoch, 5, 100), "begin epoch")
	assert.True(t, s.RunPhase(contract.BeginTick, 5, 100), "begin tick")
	assert.True(t, s.RunPhase(contract.EndTick, 5, 100), "end tick")
	assert.True(t, s.RunPhase(contract.EndEpoch, 5, 100), "end epoch")

	expected := []string{
		"A:INITIALIZE", "C:INITIALIZE",
		"A:BEGIN_EPOCH", "B:BEGIN_EPOCH", "C:BEGIN_EPOCH",
		"A:BEGIN_TICK", "B:BEGIN_TICK", "C:BEGIN_TICK",
		"C:END_TICK", "B:END_TICK", "A:END_TICK",
		"C:END_EPOCH", "B:END_EPOCH", "A:END_EPOCH",
	}
	assert.Equal(t, expected, j.get(), "journal")

	j.entries = nil
	assert.True(t, s.RunPhase(contract.BeginTick, 6, 200), "epoch 6")
	assert.Equal(t, []string{"A:BEGIN_TICK", "B:BEGIN_TICK"}, j.get(), "C destroyed")
}

func TestStateCommitAndDigest(t *testing.T) {
	ledger, assets := stores(t)
	j := &journal{}
	registry := []contract.Contract{nil, newRecorder("A", j, 1, 100)}
	s, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	before := s.Digest()
	assert.Equal(t, before, s.Digest(), "stable")

	s.RunPhase(contract.BeginTick, 1, 10)
	s.RunPhase(contract.BeginTick, 1, 11)
	assert.Equal(t, byte(2), s.State(1)[0], "committed twice")
	after := s.Digest()
	assert.NotEqual(t, before, after, "digest follows state")

	other, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer other.Stop()
	require.Nil(t, other.SetState(1, s.State(1)), "restore")
	assert.Equal(t, after, other.Digest(), "same state same digest")
	assert.Equal(t, fault.ErrSnapshotSizeMismatch, other.SetState(1, []byte{1}), "size")
	assert.Equal(t, fault.ErrContractNotFound, other.SetState(7, nil), "absent")
}

func TestPhaseTimeoutAbortsMutations(t *testing.T) {
	ledger, assets := stores(t)
	_, err := ledger.Credit(cryptography.ContractPublicKey(1), 100, 1)
	require.Nil(t, err, "fund contract")

	j := &journal{}
	slow := newRecorder("SLOW", j, 1, 100)
	slow.block = make(chan struct{})
	fast := newRecorder("FAST", j, 1, 100)
	registry := []contract.Contract{nil, slow, fast}

	s, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), 50*time.Millisecond)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	assert.False(t, s.RunPhase(contract.BeginTick, 1, 10), "timed out")
	assert.Equal(t, uint64(1), s.Timeouts.Uint64(), "timeout counted")
	assert.Equal(t, []string{"SLOW:BEGIN_TICK"}, j.get(), "later contracts skipped")
	assert.Equal(t, byte(0), s.State(1)[0], "aborted state discarded")

	// release the abandoned call: its mutation must be refused
	close(slow.block)
	for i := 0; i < 200 && len(j.get()) < 2; i += 1 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 2, len(j.get()), "abandoned call finished")
	assert.Equal(t, "SLOW:after:"+fault.ErrContractAborted.Error(), j.get()[1], "mutation refused")
	assert.Equal(t, int64(100), ledger.Balance(cryptography.ContractPublicKey(1)), "balance untouched")

	// a fresh executor serves the next batch
	slow.block = nil
	assert.True(t, s.RunPhase(contract.BeginTick, 1, 11), "next batch")
	assert.Equal(t, byte(1), s.State(2)[0], "fast contract ran")
}

func TestInvoke(t *testing.T) {
	ledger, assets := stores(t)
	j := &journal{}
	registry := []contract.Contract{nil, newRecorder("A", j, 2, 100)}
	s, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	assert.Equal(t, fault.ErrContractNotActive, s.Invoke(1, cryptography.PublicKey{1}, 0, 1, nil, 1, 10), "before construction")
	assert.Equal(t, fault.ErrContractNotFound, s.Invoke(5, cryptography.PublicKey{1}, 0, 1, nil, 2, 10), "not registered")
	assert.Nil(t, s.Invoke(1, cryptography.PublicKey{1}, 0, 1, nil, 2, 10), "invoke")

	assert.Nil(t, s.Invoke(1, cryptography.PublicKey{1}, 0, 99, nil, 2, 10), "panic contained")
	assert.Equal(t, uint64(1), s.Panics.Uint64(), "panic counted")
	assert.Equal(t, []string{"A:PROCEDURE", "A:PROCEDURE"}, j.get(), "journal")
	assert.True(t, s.InIPO(1, 1), "IPO in epoch before construction")
	assert.False(t, s.InIPO(1, 2), "not during construction epoch")
}

func TestQUTILSendToMany(t *testing.T) {
	ledger, assets := stores(t)
	q := contract.NewQUTIL(1)
	s, err := contract.NewScheduler([]contract.Contract{nil, q}, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	invocator := cryptography.PublicKey{0x11}
	self := cryptography.ContractPublicKey(1)
	recipients := []cryptography.PublicKey{{0x21}, {0x22}}
	amounts := []int64{100, 250}

	// invocation reward already paid to the contract
	_, err = ledger.Credit(self, 400, 5)
	require.Nil(t, err, "reward")

	input := contract.PackSendToMany(recipients, amounts)
	require.Nil(t, s.Invoke(1, invocator, 400, contract.SendToManyInputType, input, 1, 5), "send")

	assert.Equal(t, int64(100), ledger.Balance(recipients[0]), "first")
	assert.Equal(t, int64(250), ledger.Balance(recipients[1]), "second")
	assert.Equal(t, int64(40), ledger.Balance(invocator), "change")
	assert.Equal(t, int64(contract.SendToManyFee), ledger.Balance(self), "fee kept")

	state := s.State(1)
	assert.Equal(t, uint64(350), binary.LittleEndian.Uint64(state[0:8]), "total sent")
	assert.Equal(t, uint64(1), binary.LittleEndian.Uint64(state[8:16]), "calls")

	s.RunPhase(contract.EndEpoch, 1, 6)
	assert.Equal(t, int64(0), ledger.Balance(self), "fees burned")

	// reward too small is returned
	_, err = ledger.Credit(self, 50, 7)
	require.Nil(t, err, "reward")
	assert.Equal(t, fault.ErrInsufficientBalance, s.Invoke(1, invocator, 50, contract.SendToManyInputType, input, 1, 7), "short")
	assert.Equal(t, int64(90), ledger.Balance(invocator), "refunded")
	assert.Equal(t, fault.ErrInvalidInputSize, s.Invoke(1, invocator, 0, contract.SendToManyInputType, input[1:], 1, 7), "size")
}

func TestIPOBidAndSettle(t *testing.T) {
	ledger, assets := stores(t)
	j := &journal{}
	registry := []contract.Contract{nil, newRecorder("SHARE", j, 3, 100)}
	s, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	ipo, ok := s.IPO(1)
	require.True(t, ok, "ipo")

	alice := cryptography.PublicKey{0x31}
	bob := cryptography.PublicKey{0x32}
	_, err = ledger.Credit(alice, 1000000, 1)
	require.Nil(t, err, "fund alice")
	_, err = ledger.Credit(bob, 1000000, 1)
	require.Nil(t, err, "fund bob")

	n, err := ipo.Bid(ledger, alice, 100, 676, 2)
	require.Nil(t, err, "alice bid")
	assert.Equal(t, 676, n, "all retained")
	assert.Equal(t, int64(1000000-67600), ledger.Balance(alice), "alice paid")

	n, err = ipo.Bid(ledger, bob, 150, 100, 3)
	require.Nil(t, err, "bob bid")
	assert.Equal(t, 100, n, "bob retained")
	assert.Equal(t, int64(1000000-67600+10000), ledger.Balance(alice), "alice outbid refund")

	n, err = ipo.Bid(ledger, bob, 50, 10, 4)
	require.Nil(t, err, "low bid")
	assert.Equal(t, 0, n, "too low")
	assert.Equal(t, int64(1000000-15000), ledger.Balance(bob), "low bid refunded")

	_, err = ipo.Bid(ledger, cryptography.PublicKey{0x77}, 100, 1, 4)
	assert.Equal(t, fault.ErrEntityNotFound, err, "unknown bidder")

	assert.Equal(t, int64(100), ipo.FinalPrice(), "final price")

	final, raised, err := ipo.Settle(ledger, assets, "SHARE", 5)
	require.Nil(t, err, "settle")
	assert.Equal(t, int64(100), final, "final")
	assert.Equal(t, int64(100*676), raised, "raised")
	assert.Equal(t, int64(1000000-100*100), ledger.Balance(bob), "bob pays final price")

	self := cryptography.ContractPublicKey(1)
	name, _ := universe.NameFromString("SHARE")
	issuance, ok := assets.FindIssuance(self, name)
	require.True(t, ok, "issued")
	o, ok := assets.FindOwnership(bob, 1, issuance)
	require.True(t, ok, "bob owns")
	assert.Equal(t, int64(100), assets.OwnershipUnits(o), "bob shares")
	o, ok = assets.FindOwnership(alice, 1, issuance)
	require.True(t, ok, "alice owns")
	assert.Equal(t, int64(576), assets.OwnershipUnits(o), "alice shares")

	assert.Equal(t, int64(0), ipo.FinalPrice(), "cleared")
}

func TestBidEncoding(t *testing.T) {
	price, quantity, err := contract.ParseBid(contract.PackBid(25, 3))
	assert.Nil(t, err, "parse")
	assert.Equal(t, int64(25), price, "price")
	assert.Equal(t, uint16(3), quantity, "quantity")

	_, _, err = contract.ParseBid(contract.PackBid(0, 3))
	assert.Equal(t, fault.ErrInvalidAmount, err, "zero price")
	_, _, err = contract.ParseBid(contract.PackBid(5, 0))
	assert.Equal(t, fault.ErrInvalidUnits, err, "zero quantity")
	_, _, err = contract.ParseBid([]byte{1})
	assert.Equal(t, fault.ErrInvalidInputSize, err, "size")
}

func TestIPOPack(t *testing.T) {
	ledger, assets := stores(t)
	registry := []contract.Contract{nil, contract.NewQUTIL(4)}
	s, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer s.Stop()

	bidder := cryptography.PublicKey{0x41}
	_, err = ledger.Credit(bidder, 10000, 1)
	require.Nil(t, err, "fund")
	ipo, _ := s.IPO(1)
	_, err = ipo.Bid(ledger, bidder, 7, 3, 2)
	require.Nil(t, err, "bid")

	packed := ipo.Pack()
	assert.Equal(t, contract.IPOSize, len(packed), "size")

	other, err := contract.NewScheduler(registry, ledger, assets, cryptography.New(), time.Second)
	require.Nil(t, err, "scheduler")
	defer other.Stop()
	restored, _ := other.IPO(1)
	require.Nil(t, restored.Unpack(packed), "unpack")
	k1, p1 := ipo.Entries()
	k2, p2 := restored.Entries()
	assert.Equal(t, k1, k2, "keys")
	assert.Equal(t, p1, p2, "prices")
}

func TestDigestScore(t *testing.T) {
	oracle := contract.NewDigestScore(cryptography.New())
	a := oracle.Score(cryptography.PublicKey{1}, [32]byte{2})
	b := oracle.Score(cryptography.PublicKey{1}, [32]byte{2})
	assert.Equal(t, a, b, "deterministic")
	assert.True(t, a <= 256, "bounded")
}
