// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import (
	"sync"

	"github.com/bitmark-inc/quorumd/fault"
)

// Broadcast - destination of a message for every connected peer
const Broadcast = 0

// Message - one queued item
//
// for requests Peer is the source and Item the decoded message; for
// responses Peer is the destination (or Broadcast, skipping Except)
// and Frame holds the bytes to send
type Message struct {
	Peer   uint64
	Except uint64
	Type   uint8
	Dejavu uint32
	Item   interface{}
	Frame  []byte
}

// Queue - fixed size ring of messages
type Queue struct {
	sync.Mutex

	name   string
	ring   []Message
	head   int // next to read
	length int

	wake chan struct{}
	halt func(error)
}

// New - create a queue of a fixed size
//
// halt is called if a producer finds the queue full
func New(name string, size int, halt func(error)) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		name: name,
		ring: make([]Message, size),
		wake: make(chan struct{}, 1),
		halt: halt,
	}
}

// Send - append a message
//
// a full queue is fatal: halt is called and false returned
func (q *Queue) Send(m Message) bool {
	q.Lock()
	if q.length == len(q.ring) {
		q.Unlock()
		q.halt(fault.ErrQueueFull)
		return false
	}
	q.ring[(q.head+q.length)%len(q.ring)] = m
	q.length += 1
	q.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Receive - take the oldest message without waiting
func (q *Queue) Receive() (Message, bool) {
	q.Lock()
	defer q.Unlock()

	if 0 == q.length {
		return Message{}, false
	}
	m := q.ring[q.head]
	q.ring[q.head] = Message{}
	q.head = (q.head + 1) % len(q.ring)
	q.length -= 1
	return m, true
}

// Wait - signalled after a send; a consumer that finds the queue
// empty waits on this before retrying
func (q *Queue) Wait() <-chan struct{} {
	return q.wake
}

// Len - messages waiting
func (q *Queue) Len() int {
	q.Lock()
	defer q.Unlock()
	return q.length
}

// Name - for logging
func (q *Queue) Name() string {
	return q.name
}
