// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus_test

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/quorumd/civil"
	"github.com/bitmark-inc/quorumd/consensus"
	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/contract"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/mode"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/spectrum"
	"github.com/bitmark-inc/quorumd/storage"
	"github.com/bitmark-inc/quorumd/system"
	"github.com/bitmark-inc/quorumd/tick"
	"github.com/bitmark-inc/quorumd/universe"
)

const initialTick = 1000

type identity struct {
	subseed   cryptography.Subseed
	publicKey cryptography.PublicKey
}

var (
	crypto     = cryptography.New()
	computors  [constants.NumberOfComputors]identity
	arbitrator identity
	epochStart = civil.Time{Hour: 12, Day: 5, Month: 1, Year: 22}
)

func derive(seed string) identity {
	subseed, _, publicKey, err := crypto.DeriveKeys(seed)
	if nil != err {
		panic(err)
	}
	return identity{subseed: subseed, publicKey: publicKey}
}

func TestMain(m *testing.M) {
	dir, _ := os.Getwd()
	err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "consensus_test.log",
		Size:      1048576,
		Count:     10,
		Levels: map[string]string{
			logger.DefaultTag: "critical",
		},
	})
	if nil != err {
		panic(err)
	}

	for i := range computors {
		seed := strings.Repeat("q", cryptography.SeedLength-2) + string(rune('a'+i/26)) + string(rune('a'+i%26))
		computors[i] = derive(seed)
	}
	arbitrator = derive(strings.Repeat("r", cryptography.SeedLength))

	rc := m.Run()
	logger.Finalise()
	_ = os.Remove("consensus_test.log")
	os.Exit(rc)
}

// counts the system procedure calls
type phases struct {
	sync.Mutex
	counts map[string]int
}

func (p *phases) add(name string) {
	p.Lock()
	p.counts[name] += 1
	p.Unlock()
}

func (p *phases) get(name string) int {
	p.Lock()
	defer p.Unlock()
	return p.counts[name]
}

type counting struct {
	phases *phases
}

func (c *counting) Description() contract.Description {
	return contract.Description{
		Name:              "COUNT",
		AssetName:         "COUNT",
		ConstructionEpoch: 1,
		DestructionEpoch:  100,
		StateSize:         8,
	}
}

func (c *counting) Initialize(ctx *contract.Context) { c.phases.add("INITIALIZE") }
func (c *counting) BeginEpoch(ctx *contract.Context) { c.phases.add("BEGIN_EPOCH") }
func (c *counting) EndTick(ctx *contract.Context) { c.phases.add("END_TICK") }
func (c *counting) EndEpoch(ctx *contract.Context) { c.phases.add("END_EPOCH") }

func (c *counting) BeginTick(ctx *contract.Context) {
	c.phases.add("BEGIN_TICK")
	ctx.State[0] += 1
}

func (c *counting) Procedure(ctx *contract.Context, inputType uint16, input []byte) error {
	c.phases.add("PROCEDURE")
	return nil
}

type publisher struct {
	ticks  []uint32
	epochs []uint16
}

func (p *publisher) PublishTick(t *protocol.Tick) {
	p.ticks = append(p.ticks, t.Tick)
}

func (p *publisher) PublishEpoch(epoch uint16, initialTick uint32) {
	p.epochs = append(p.epochs, epoch)
}

type fixture struct {
	system    *system.System
	spectrum  *spectrum.Store
	universe  *universe.Store
	contracts *contract.Scheduler
	votes     *tick.Votes
	tickData  *tick.DataStore
	pool      *tick.Pool
	responses *messagebus.Queue
	mode      *mode.Holder
	phases    *phases
	publisher *publisher
	engine    *consensus.Engine
	halts     []error
}

func (f *fixture) halt(err error) {
	f.halts = append(f.halts, err)
}

func setup(t *testing.T, persister storage.Persister) *fixture {
	f := &fixture{
		phases:    &phases{counts: make(map[string]int)},
		publisher: &publisher{},
		mode:      mode.New(),
	}

	f.system = system.New(1, initialTick, epochStart)
	for i := range computors {
		f.system.Computors[i] = computors[i].publicKey
	}

	var err error
	f.spectrum, err = spectrum.New(2048, crypto, f.halt)
	require.Nil(t, err, "spectrum")
	f.universe, err = universe.New(64, crypto, f.halt)
	require.Nil(t, err, "universe")
	f.contracts, err = contract.NewScheduler([]contract.Contract{nil, &counting{phases: f.phases}}, f.spectrum, f.universe, crypto, time.Second)
	require.Nil(t, err, "scheduler")

	f.votes = tick.NewVotes(initialTick, 1000)
	f.tickData = tick.NewDataStore(initialTick, 1000)
	f.pool = tick.NewPool(100)
	f.responses = messagebus.New("responses", 65536, f.halt)

	f.engine = consensus.New(consensus.Dependencies{
		Crypto:    crypto,
		System:    f.system,
		Spectrum:  f.spectrum,
		Universe:  f.universe,
		Contracts: f.contracts,
		Votes:     f.votes,
		TickData:  f.tickData,
		Pool:      f.pool,
		Persister: persister,
		Mode:      f.mode,
		Responses: f.responses,
		Publisher: f.publisher,
	}, consensus.Configuration{
		TickDuration: time.Second,
		Computors: []consensus.Computor{
			{Subseed: computors[0].subseed, PublicKey: computors[0].publicKey},
		},
		Arbitrator: arbitrator.publicKey,
	})
	return f
}

func (f *fixture) stop() {
	f.contracts.Stop()
}

// run transitions until the engine waits
func (f *fixture) settle() int {
	n := 0
	for f.engine.Step() {
		n += 1
		if n > 100 {
			break
		}
	}
	return n
}

func (f *fixture) current() uint32 {
	_, current := f.system.CurrentTick()
	return current
}

// copy the local vote to computors [from, to) re-signed, after change
func (f *fixture) forge(t *testing.T, from int, to int, change func(*protocol.Tick)) {
	own, ok := f.votes.Get(f.current(), 0)
	require.True(t, ok, "local vote")
	for i := from; i < to; i += 1 {
		v := own
		v.ComputorIndex = uint16(i)
		if nil != change {
			change(&v)
		}
		v.Sign(crypto, computors[i].subseed, computors[i].publicKey)
		stored, err := f.votes.Store(&v)
		require.Nil(t, err, "store vote")
		require.True(t, stored, "stored vote")
	}
}

// signed tick data from the leader of the tick
func (f *fixture) proposal(t *testing.T, tickNumber uint32, when civil.Time, digests ...merkle.Digest) *protocol.TickData {
	leader := uint(tickNumber) % constants.NumberOfComputors
	data := &protocol.TickData{
		ComputorIndex: uint16(leader),
		Epoch:         1,
		Tick:          tickNumber,
		Time:          when,
	}
	copy(data.TransactionDigests[:], digests)
	data.Sign(crypto, computors[leader].subseed, computors[leader].publicKey)
	stored, err := f.tickData.Store(data)
	require.Nil(t, err, "store tick data")
	require.True(t, stored, "stored tick data")
	return data
}

func (f *fixture) drain() []messagebus.Message {
	messages := []messagebus.Message{}
	for {
		m, ok := f.responses.Receive()
		if !ok {
			return messages
		}
		messages = append(messages, m)
	}
}

func hasType(messages []messagebus.Message, messageType uint8) bool {
	for _, m := range messages {
		if m.Type == messageType {
			return true
		}
	}
	return false
}

func TestQuorumRequired(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	assert.Equal(t, 3, f.settle(), "transitions to the quorum check")
	assert.Equal(t, "QuorumCheck", f.engine.State(), "state")

	messages := f.drain()
	assert.True(t, hasType(messages, protocol.BroadcastTickType), "local vote broadcast")

	f.forge(t, 1, constants.Quorum-1, nil)
	assert.Equal(t, 0, f.settle(), "one vote short")
	assert.Equal(t, uint32(initialTick), f.current(), "tick must not advance")
	info := f.engine.TickInfo()
	assert.Equal(t, uint16(constants.Quorum-1), info.NumberOfAlignedVotes, "aligned")
	assert.Equal(t, uint16(0), f.engine.TickNumberOfComputors(), "no agreement yet")

	f.forge(t, constants.Quorum-1, constants.Quorum, nil)
	assert.True(t, f.engine.Step(), "quorum")
	assert.Equal(t, "Advance", f.engine.State(), "state")
	assert.Equal(t, uint16(constants.Quorum), f.engine.TickNumberOfComputors(), "agreeing computors")
	assert.True(t, f.engine.Step(), "advance")
	assert.Equal(t, uint32(initialTick+1), f.current(), "tick advanced")
	assert.Equal(t, "Collecting", f.engine.State(), "state")

	info = f.engine.TickInfo()
	assert.Equal(t, uint16(constants.Quorum), info.NumberOfAlignedVotes, "aligned")
	assert.Equal(t, uint16(0), info.NumberOfMisalignedVotes, "misaligned")
	assert.Equal(t, uint32(initialTick), info.InitialTick, "initial tick")
	assert.Equal(t, uint16(1000), info.TickDuration, "tick duration")

	assert.Equal(t, []uint32{initialTick}, f.publisher.ticks, "published ticks")
	assert.True(t, f.mode.Is(mode.Normal), "mode")
	assert.Equal(t, 1, f.phases.get("BEGIN_TICK"), "begin tick")
	assert.Equal(t, 1, f.phases.get("END_TICK"), "end tick")
	assert.Equal(t, 0, len(f.halts), "halts")
}

func TestDissentersAreFaulty(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	f.settle()
	f.forge(t, 1, constants.Quorum, nil)
	f.forge(t, 600, 601, func(v *protocol.Tick) {
		v.PrevSpectrumDigest[0] ^= 0xff
	})

	f.settle()
	assert.Equal(t, uint32(initialTick+1), f.current(), "tick advanced")
	assert.True(t, f.engine.Faulty(600), "dissenter")
	assert.False(t, f.engine.Faulty(1), "agreeing computor")
	assert.False(t, f.engine.Faulty(601), "silent computor")

	f.system.RLock()
	assert.NotEqual(t, uint64(0), f.system.RevenuePoints[1], "agreeing computor points")
	assert.Equal(t, uint64(0), f.system.RevenuePoints[600], "dissenter points")
	f.system.RUnlock()
}

func TestFlaggedComputorExcluded(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	f.settle()
	f.forge(t, 1, constants.Quorum, nil)
	f.engine.Flag(1)
	f.engine.Flag(constants.NumberOfComputors)
	assert.True(t, f.engine.Faulty(1), "flagged")

	assert.Equal(t, 0, f.settle(), "flagged vote not counted")
	assert.Equal(t, uint32(initialTick), f.current(), "tick")
	assert.Equal(t, uint16(constants.Quorum-1), f.engine.TickInfo().NumberOfAlignedVotes, "aligned")

	f.forge(t, constants.Quorum, constants.Quorum+1, nil)
	f.settle()
	assert.Equal(t, uint32(initialTick+1), f.current(), "tick advanced")
	assert.True(t, f.engine.Faulty(1), "flag lasts the epoch")
}

func TestMisalignedDoesNotAdvance(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	f.settle()
	f.forge(t, 1, constants.Quorum+1, func(v *protocol.Tick) {
		v.PrevUniverseDigest[0] ^= 0xff
	})

	assert.Equal(t, 0, f.settle(), "stuck")
	assert.Equal(t, uint32(initialTick), f.current(), "tick")
	assert.Equal(t, "QuorumCheck", f.engine.State(), "state")

	info := f.engine.TickInfo()
	assert.Equal(t, uint16(1), info.NumberOfAlignedVotes, "aligned")
	assert.Equal(t, uint16(constants.Quorum), info.NumberOfMisalignedVotes, "misaligned")
	assert.Equal(t, uint64(1), f.engine.Misaligned.Uint64(), "misaligned counter")
	assert.False(t, f.engine.Faulty(1), "no flags without agreement")
}

func TestTransactionsOfAdoptedTickData(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	source := derive(strings.Repeat("s", cryptography.SeedLength))
	destination := derive(strings.Repeat("d", cryptography.SeedLength))
	_, err := f.spectrum.Credit(source.publicKey, 1000, 0)
	require.Nil(t, err, "fund source")

	tx := &protocol.Transaction{
		SourcePublicKey:      source.publicKey,
		DestinationPublicKey: destination.publicKey,
		Amount:               100,
		Tick:                 initialTick + 1,
	}
	tx.Sign(crypto, source.subseed)
	digest := tx.Digest(crypto)
	added, err := f.pool.Add(digest, tx)
	require.Nil(t, err, "pool add")
	require.True(t, added, "pool added")

	when := civil.Time{Minute: 1, Hour: 12, Day: 5, Month: 1, Year: 22}
	data := f.proposal(t, initialTick+1, when, digest)
	dataDigest := data.Digest(crypto)

	f.settle()
	own, ok := f.votes.Get(initialTick, 0)
	require.True(t, ok, "local vote")
	assert.Equal(t, dataDigest, own.ExpectedNextTickTransactionDigest, "expected next")
	assert.True(t, own.TransactionDigest.IsZero(), "initial tick is empty")
	assert.Equal(t, epochStart, own.Time, "initial tick time")

	f.forge(t, 1, constants.Quorum, nil)
	f.settle()
	assert.Equal(t, uint32(initialTick+1), f.current(), "tick")
	assert.Equal(t, "QuorumCheck", f.engine.State(), "state")

	assert.Equal(t, int64(900), f.spectrum.Balance(source.publicKey), "source")
	assert.Equal(t, int64(100), f.spectrum.Balance(destination.publicKey), "destination")

	own, ok = f.votes.Get(initialTick+1, 0)
	require.True(t, ok, "local vote")
	assert.Equal(t, dataDigest, own.TransactionDigest, "transaction digest")
	assert.Equal(t, when, own.Time, "tick time")

	f.system.RLock()
	counts := f.system.TickTransactionCounts
	f.system.RUnlock()
	require.Equal(t, 2, len(counts), "recorded ticks")
	assert.Equal(t, uint16(0), counts[0], "initial tick")
	assert.Equal(t, uint16(1), counts[1], "second tick")
}

func TestMissingTickDataIsRequested(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	f.settle()
	expected := merkle.Digest{1, 2, 3}
	f.forge(t, 1, constants.Quorum+1, func(v *protocol.Tick) {
		v.ExpectedNextTickTransactionDigest = expected
	})
	f.settle()
	f.drain()

	assert.Equal(t, uint32(initialTick+1), f.current(), "tick")
	assert.Equal(t, "Collecting", f.engine.State(), "state")
	assert.False(t, f.engine.Step(), "waiting for tick data")
	assert.True(t, f.mode.Is(mode.Synchronising), "mode")
	assert.True(t, hasType(f.drain(), protocol.RequestTickDataType), "tick data requested")
}

func TestUndecidedDigestRequestsVotes(t *testing.T) {
	f := setup(t, nil)
	defer f.stop()

	f.settle()
	f.forge(t, 1, 225, nil)
	f.forge(t, 225, constants.Quorum, func(v *protocol.Tick) {
		v.ExpectedNextTickTransactionDigest = merkle.Digest{7}
	})
	f.settle()
	f.drain()

	// 226 expect a non-empty set and 225 computors have not voted
	assert.Equal(t, uint32(initialTick+1), f.current(), "tick")
	assert.False(t, f.engine.Step(), "undecided")
	assert.Equal(t, "Collecting", f.engine.State(), "state")
	assert.True(t, hasType(f.drain(), protocol.RequestQuorumTickType), "votes requested")
}

func TestRevenues(t *testing.T) {
	points := [constants.NumberOfComputors]uint64{}
	rewards, remainder := consensus.Revenues(points, constants.IssuanceRate)
	share := int64(constants.IssuanceRate / constants.NumberOfComputors)
	for i := range rewards {
		assert.Equal(t, share, rewards[i], "full share without points")
	}
	assert.Equal(t, int64(constants.IssuanceRate)-constants.NumberOfComputors*share, remainder, "remainder")

	for i := range points {
		if i < constants.Quorum {
			points[i] = 10
		} else {
			points[i] = 5
		}
	}
	rewards, remainder = consensus.Revenues(points, constants.IssuanceRate)
	assert.Equal(t, share, rewards[0], "above threshold")
	assert.Equal(t, share/2, rewards[constants.NumberOfComputors-1], "scaled by points")

	total := remainder
	for _, r := range rewards {
		total += r
	}
	assert.Equal(t, int64(constants.IssuanceRate), total, "issuance preserved")
}
