// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/mode"
	"github.com/bitmark-inc/quorumd/node"
	"github.com/bitmark-inc/quorumd/storage"
)

func TestMain(m *testing.M) {
	dir, _ := os.Getwd()
	err := logger.Initialise(logger.Configuration{
		Directory: dir,
		File:      "node_test.log",
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
	_ = os.Remove("node_test.log")
	os.Exit(rc)
}

type haltRecorder struct {
	sync.Mutex
	errors []error
}

func (h *haltRecorder) halt(err error) {
	h.Lock()
	h.errors = append(h.errors, err)
	h.Unlock()
}

func publicKey(t *testing.T, seed string) cryptography.PublicKey {
	_, _, key, err := cryptography.New().DeriveKeys(seed)
	require.Nil(t, err, "derive")
	return key
}

func testConfiguration(t *testing.T) node.Configuration {
	seed := strings.Repeat("a", cryptography.SeedLength)
	return node.Configuration{
		ComputorSeeds:    []string{seed},
		Arbitrator:       publicKey(t, strings.Repeat("r", cryptography.SeedLength)).String(),
		InitialEpoch:     3,
		InitialTick:      5000,
		Computors:        []string{publicKey(t, seed).String()},
		SpectrumCapacity: 1024,
		AssetsCapacity:   64,
		TicksPerEpoch:    1000,
		Workers:          2,
		Genesis: []node.GenesisEntity{
			{PublicKey: publicKey(t, strings.Repeat("b", cryptography.SeedLength)).String(), Amount: 1000000},
			{PublicKey: publicKey(t, strings.Repeat("c", cryptography.SeedLength)).String(), Amount: 2500},
		},
	}
}

func TestFirstStart(t *testing.T) {
	h := &haltRecorder{}
	n, err := node.New(testConfiguration(t), nil, nil, h.halt)
	require.Nil(t, err, "new")
	defer n.Contracts.Stop()

	epoch, current := n.System.CurrentTick()
	assert.Equal(t, uint16(3), epoch, "epoch")
	assert.Equal(t, uint32(5000), current, "tick")
	assert.Equal(t, int64(1002500), n.Spectrum.TotalSupply(), "genesis supply")

	computor, ok := n.System.Computor(0)
	assert.True(t, ok, "committee member")
	assert.Equal(t, publicKey(t, strings.Repeat("a", cryptography.SeedLength)), computor, "committee")

	info := n.Engine.TickInfo()
	assert.Equal(t, uint16(3), info.Epoch, "status epoch")
	assert.Equal(t, uint32(5000), info.InitialTick, "status initial tick")
	assert.Empty(t, h.errors, "no halt")
}

func TestInvalidConfiguration(t *testing.T) {
	c := testConfiguration(t)
	c.ComputorSeeds = []string{"short"}
	_, err := node.New(c, nil, nil, nil)
	assert.Equal(t, fault.ErrInvalidComputorSeed, err, "seed")

	c = testConfiguration(t)
	c.SpectrumCapacity = 1000
	_, err = node.New(c, nil, nil, nil)
	assert.Equal(t, fault.ErrCapacityNotPowerOfTwo, err, "capacity")

	c = testConfiguration(t)
	c.Operator = "not hex"
	_, err = node.New(c, nil, nil, nil)
	assert.NotNil(t, err, "operator key")
}

func TestQueueOverflowHalts(t *testing.T) {
	c := testConfiguration(t)
	c.RequestQueueSize = 1

	h := &haltRecorder{}
	n, err := node.New(c, nil, nil, h.halt)
	require.Nil(t, err, "new")
	defer n.Contracts.Stop()

	assert.True(t, n.Requests.Send(messagebus.Message{Peer: 1}), "first fits")
	assert.False(t, n.Requests.Send(messagebus.Message{Peer: 2}), "second overflows")
	assert.Equal(t, []error{fault.ErrQueueFull}, h.errors, "halt reason")
	assert.True(t, n.Mode.Is(mode.Halted), "halted mode")
}

func TestRestoreSavedState(t *testing.T) {
	dir, err := ioutil.TempDir("", "node")
	require.Nil(t, err, "temp dir")
	defer os.RemoveAll(dir)

	db, err := storage.Open(filepath.Join(dir, "node.leveldb"), storage.ReadWrite)
	require.Nil(t, err, "open")
	defer db.Close()

	first, err := node.New(testConfiguration(t), db, nil, nil)
	require.Nil(t, err, "first")
	require.Nil(t, first.Engine.Save(), "save")
	first.Contracts.Stop()

	c := testConfiguration(t)
	c.Genesis = nil
	c.InitialEpoch = 9
	second, err := node.New(c, db, nil, nil)
	require.Nil(t, err, "second")
	defer second.Contracts.Stop()

	epoch, current := second.System.CurrentTick()
	assert.Equal(t, uint16(3), epoch, "saved epoch wins over configuration")
	assert.Equal(t, uint32(5000), current, "saved tick")
	assert.Equal(t, first.Spectrum.TotalSupply(), second.Spectrum.TotalSupply(), "supply restored")
	assert.Equal(t, first.Spectrum.Digest(), second.Spectrum.Digest(), "spectrum digest restored")
}

func TestStartStop(t *testing.T) {
	n, err := node.New(testConfiguration(t), nil, nil, nil)
	require.Nil(t, err, "new")

	assert.Nil(t, n.Start(), "start")
	assert.Equal(t, fault.ErrAlreadyInitialised, n.Start(), "second start")
	assert.Nil(t, n.Stop(), "stop")
	assert.Equal(t, fault.ErrNotInitialised, n.Stop(), "second stop")
	assert.True(t, n.Mode.Is(mode.Stopped), "stopped")
}
