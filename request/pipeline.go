// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package request

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/limitedset"
	"github.com/bitmark-inc/quorumd/merkle"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/protocol"
)

// Pipeline - from received frames to the request queue
type Pipeline struct {
	log      *logger.L
	hasher   merkle.Hasher
	salt     uint32
	dejavu   *limitedset.LimitedSet
	requests *messagebus.Queue
	stats    *Statistics
}

// NewPipeline - salted pipeline feeding a request queue
func NewPipeline(hasher merkle.Hasher, dejavu *limitedset.LimitedSet, requests *messagebus.Queue, stats *Statistics) *Pipeline {
	salt := make([]byte, 4)
	_, err := rand.Read(salt)
	fault.PanicIfError("request: random salt", err)
	return &Pipeline{
		log:      logger.New("request"),
		hasher:   hasher,
		salt:     binary.LittleEndian.Uint32(salt),
		dejavu:   dejavu,
		requests: requests,
		stats:    stats,
	}
}

// Receive - accept one framed message from a peer
//
// returns true if the message was queued
func (p *Pipeline) Receive(peer uint64, frame []byte) bool {
	p.stats.Received.Increment()

	header, err := protocol.UnpackHeader(frame)
	if nil != err || int(header.Size) != len(frame) {
		p.stats.Discarded.Increment()
		p.log.Debugf("peer: %d  discard: bad header: %d bytes", peer, len(frame))
		return false
	}

	m, err := protocol.Decode(header.Type, frame[protocol.HeaderSize:])
	if nil != err {
		p.stats.Discarded.Increment()
		p.log.Debugf("peer: %d  discard: type: %d  error: %s", peer, header.Type, err)
		return false
	}

	// zero dejavu is never deduplicated
	if 0 != header.Dejavu && p.dejavu.Add(p.ID(frame)) {
		p.stats.Duplicate.Increment()
		return false
	}

	return p.requests.Send(messagebus.Message{
		Peer:   peer,
		Type:   header.Type,
		Dejavu: header.Dejavu,
		Item:   m,
		Frame:  frame,
	})
}

// ID - the dejavu id of a message: a hash of the frame with the
// process salt in place of the header dejavu
func (p *Pipeline) ID(frame []byte) uint32 {
	salted := append([]byte{}, frame...)
	binary.LittleEndian.PutUint32(salted[4:], p.salt)
	digest := p.hasher.Hash32(salted)
	return binary.LittleEndian.Uint32(digest[:4])
}

// NewDejavu - a random non-zero dejavu for an outgoing broadcast
func NewDejavu() uint32 {
	b := make([]byte, 4)
	for {
		_, err := rand.Read(b)
		fault.PanicIfError("request: random dejavu", err)
		if d := binary.LittleEndian.Uint32(b); 0 != d {
			return d
		}
	}
}
