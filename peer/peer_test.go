// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/util"
)

const testingDirName = "testing"

func TestMain(m *testing.M) {
	_ = os.RemoveAll(testingDirName)
	_ = os.Mkdir(testingDirName, 0700)
	err := logger.Initialise(logger.Configuration{
		Directory: testingDirName,
		File:      "peer.log",
		Size:      50000,
		Count:     10,
		Levels:    map[string]string{logger.DefaultTag: "critical"},
	})
	if nil != err {
		panic(err)
	}
	rc := m.Run()
	logger.Finalise()
	_ = os.RemoveAll(testingDirName)
	os.Exit(rc)
}

func ip(a, b, c, d byte) util.IPv4 {
	return util.IPv4{a, b, c, d}
}

func TestAddressBook(t *testing.T) {
	book := NewAddressBook(time.Hour)

	assert.True(t, book.Add(ip(1, 2, 3, 4)), "first add")
	assert.False(t, book.Add(ip(1, 2, 3, 4)), "second add")
	assert.False(t, book.Add(util.IPv4{}), "zero address")
	book.Pin(ip(5, 6, 7, 8))
	assert.Equal(t, 2, book.Count(), "count")
	assert.True(t, book.Has(ip(5, 6, 7, 8)), "pinned")

	all := book.Sample(10, nil)
	assert.Len(t, all, 2, "sample everything")

	skipped := book.Sample(10, func(a util.IPv4) bool { return ip(1, 2, 3, 4) == a })
	assert.Equal(t, []util.IPv4{ip(5, 6, 7, 8)}, skipped, "skip")

	assert.Len(t, book.Sample(1, nil), 1, "limit")

	book.Remove(ip(1, 2, 3, 4))
	assert.False(t, book.Has(ip(1, 2, 3, 4)), "removed")
}

func TestAddressExpiry(t *testing.T) {
	book := NewAddressBook(20 * time.Millisecond)
	book.Add(ip(1, 1, 1, 1))
	book.Pin(ip(2, 2, 2, 2))
	time.Sleep(50 * time.Millisecond)
	assert.False(t, book.Has(ip(1, 1, 1, 1)), "learned address expired")
	assert.True(t, book.Has(ip(2, 2, 2, 2)), "pinned address kept")
}

func TestParseSeeds(t *testing.T) {
	txts := []string{
		"v=1 quorum=10.0.0.1,10.0.0.2",
		"unrelated text",
		"quorum=bad,10.0.0.3 quorum=::1",
	}
	assert.Equal(t, []util.IPv4{ip(10, 0, 0, 1), ip(10, 0, 0, 2), ip(10, 0, 0, 3)}, ParseSeeds(txts), "seeds")
}

func TestSeeder(t *testing.T) {
	book := NewAddressBook(time.Hour)
	lookup := func(domain string) ([]string, time.Duration, error) {
		assert.Equal(t, "nodes.example.org", domain, "domain")
		return []string{"quorum=1.1.1.1,2.2.2.2"}, 10 * time.Minute, nil
	}
	s := newSeeder("nodes.example.org", book, lookup)
	assert.Equal(t, 10*time.Minute, s.seed(), "next lookup after TTL")
	assert.Equal(t, 2, book.Count(), "addresses added")

	failing := newSeeder("nodes.example.org", book, func(string) ([]string, time.Duration, error) {
		return nil, 0, fault.ErrNotFound
	})
	assert.Equal(t, seedInterval, failing.seed(), "retry interval after failure")
}

func TestReadPeersFile(t *testing.T) {
	name := filepath.Join(testingDirName, "peers")
	err := ioutil.WriteFile(name, []byte("# peers\n1.2.3.4\n\n  5.6.7.8  # second\n"), 0600)
	require.Nil(t, err, "write")

	addresses, err := ReadPeersFile(name)
	assert.Nil(t, err, "read")
	assert.Equal(t, []util.IPv4{ip(1, 2, 3, 4), ip(5, 6, 7, 8)}, addresses, "addresses")

	err = ioutil.WriteFile(name, []byte("1.2.3\n"), 0600)
	require.Nil(t, err, "write")
	_, err = ReadPeersFile(name)
	assert.Equal(t, fault.ErrInvalidIPAddress, err, "invalid line")
}

func TestConnectionTargets(t *testing.T) {
	cs := newConnections()
	a := cs.add(&connection{id: "a", address: ip(1, 1, 1, 1), outgoing: true})
	b := cs.add(&connection{id: "b", address: ip(2, 2, 2, 2)})
	c := cs.add(&connection{id: "c", address: ip(3, 3, 3, 3)})

	assert.NotEqual(t, uint64(messagebus.Broadcast), a.handle, "broadcast handle never assigned")
	assert.Equal(t, 3, cs.count(), "count")
	assert.Equal(t, 1, cs.outgoing(), "outgoing")
	assert.True(t, cs.connectedTo(ip(2, 2, 2, 2)), "connected")

	direct := cs.targets(messagebus.Message{Peer: b.handle})
	assert.Equal(t, []*connection{b}, direct, "one peer")

	all := cs.targets(messagebus.Message{Peer: messagebus.Broadcast, Except: c.handle})
	assert.Len(t, all, 2, "everyone except the source")
	for _, target := range all {
		assert.NotEqual(t, c, target, "source excluded")
	}

	cs.remove(b)
	assert.Nil(t, cs.targets(messagebus.Message{Peer: b.handle}), "closed peer")
	_, ok := cs.lookup("b")
	assert.False(t, ok, "lookup after remove")
}

func TestConnectionRateLimit(t *testing.T) {
	c := &connection{}
	assert.True(t, c.allow(1<<30), "no limiter")
}
