// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/messagebus"
)

type haltRecorder struct {
	sync.Mutex
	reasons []error
}

func (h *haltRecorder) halt(err error) {
	h.Lock()
	h.reasons = append(h.reasons, err)
	h.Unlock()
}

func TestQueue(t *testing.T) {
	h := &haltRecorder{}
	q := messagebus.New("test", 3, h.halt)

	for i := uint8(1); i <= 3; i += 1 {
		assert.True(t, q.Send(messagebus.Message{Type: i}), "send: %d", i)
	}
	assert.Equal(t, 3, q.Len(), "length")

	m, ok := q.Receive()
	assert.True(t, ok, "receive")
	assert.Equal(t, uint8(1), m.Type, "oldest first")

	// wraps around the ring
	assert.True(t, q.Send(messagebus.Message{Type: 4}), "send after receive")
	for i := uint8(2); i <= 4; i += 1 {
		m, ok = q.Receive()
		assert.True(t, ok, "receive: %d", i)
		assert.Equal(t, i, m.Type, "order")
	}
	_, ok = q.Receive()
	assert.False(t, ok, "empty")
	assert.Equal(t, 0, len(h.reasons), "no halt")
}

func TestOverflowHalts(t *testing.T) {
	h := &haltRecorder{}
	q := messagebus.New("test", 1, h.halt)

	assert.True(t, q.Send(messagebus.Message{}), "first")
	assert.False(t, q.Send(messagebus.Message{}), "overflow")
	assert.Equal(t, []error{fault.ErrQueueFull}, h.reasons, "halted")
	assert.Equal(t, 1, q.Len(), "nothing added")
}

func TestWake(t *testing.T) {
	q := messagebus.New("test", 100, func(error) {})

	received := make(chan uint64, 100)
	done := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 4; w += 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if m, ok := q.Receive(); ok {
					received <- m.Peer
					continue
				}
				select {
				case <-done:
					return
				case <-q.Wait():
				case <-time.After(10 * time.Millisecond):
				}
			}
		}()
	}

	for i := uint64(1); i <= 50; i += 1 {
		q.Send(messagebus.Message{Peer: i})
	}

	seen := make(map[uint64]bool)
	timeout := time.After(5 * time.Second)
loop:
	for len(seen) < 50 {
		select {
		case p := <-received:
			seen[p] = true
		case <-timeout:
			break loop
		}
	}
	close(done)
	wg.Wait()
	assert.Equal(t, 50, len(seen), "every message delivered once")
}
