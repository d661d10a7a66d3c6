// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package publish

import (
	"encoding/binary"
	"sync"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/background"
	"github.com/bitmark-inc/quorumd/counter"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

// topics
const (
	TickTopic  = "tick"
	EpochTopic = "epoch"
)

const (
	publisherZapDomain = "publisher"

	// events waiting for the socket, more are dropped
	queueSize = 256
)

// Configuration - a block of configuration data
// this is read from a Lua configuration file
type Configuration struct {
	Broadcast  []string `gluamapper:"broadcast" json:"broadcast"`
	PrivateKey string   `gluamapper:"private_key" json:"private_key"`
	PublicKey  string   `gluamapper:"public_key" json:"public_key"`
}

// Event - one queued publication
type Event struct {
	Topic string
	Data  []byte
}

// EncodeEpoch - data of an epoch event
func EncodeEpoch(epoch uint16, initialTick uint32) []byte {
	buffer := make([]byte, 6)
	binary.LittleEndian.PutUint16(buffer, epoch)
	binary.LittleEndian.PutUint32(buffer[2:], initialTick)
	return buffer
}

// DecodeEpoch - inverse of EncodeEpoch
func DecodeEpoch(data []byte) (uint16, uint32, error) {
	if 6 != len(data) {
		return 0, 0, fault.ErrRecordTruncated
	}
	return binary.LittleEndian.Uint16(data), binary.LittleEndian.Uint32(data[2:]), nil
}

// Publisher - queues events for the PUB socket
//
// the consensus engine must never wait on the network so a full queue
// drops the event
type Publisher struct {
	sync.Mutex

	Dropped counter.Counter
	Sent    counter.Counter

	log        *logger.L
	socket     *zmq.Socket
	queue      chan Event
	background *background.T
}

// New - a publisher with no socket, events stay queued until Run
func New() *Publisher {
	return &Publisher{
		log:   logger.New("publish"),
		queue: make(chan Event, queueSize),
	}
}

// Bind - open the PUB socket on the configured addresses
func (p *Publisher) Bind(configuration *Configuration) error {
	log := p.log

	privateKey, err := zmqutil.ReadPrivateKeyFile(configuration.PrivateKey)
	if nil != err {
		log.Errorf("read private key file: %q  error: %s", configuration.PrivateKey, err)
		return err
	}
	publicKey, err := zmqutil.ReadPublicKeyFile(configuration.PublicKey)
	if nil != err {
		log.Errorf("read public key file: %q  error: %s", configuration.PublicKey, err)
		return err
	}
	log.Tracef("public key: %x", publicKey)

	socket, err := zmqutil.NewBind(log, zmq.PUB, publisherZapDomain, privateKey, publicKey, configuration.Broadcast)
	if nil != err {
		log.Errorf("bind error: %s", err)
		return err
	}
	p.socket = socket
	return nil
}

// PublishTick - queue the agreed tick record
func (p *Publisher) PublishTick(t *protocol.Tick) {
	p.enqueue(Event{Topic: TickTopic, Data: t.Pack()})
}

// PublishEpoch - queue the start of a new epoch
func (p *Publisher) PublishEpoch(epoch uint16, initialTick uint32) {
	p.enqueue(Event{Topic: EpochTopic, Data: EncodeEpoch(epoch, initialTick)})
}

func (p *Publisher) enqueue(e Event) {
	select {
	case p.queue <- e:
	default:
		p.Dropped.Increment()
		p.log.Warnf("queue full, dropped: %s", e.Topic)
	}
}

// Next - remove a queued event without waiting
func (p *Publisher) Next() (Event, bool) {
	select {
	case e := <-p.queue:
		return e, true
	default:
		return Event{}, false
	}
}

// Run - send queued events until shutdown
func (p *Publisher) Run(args interface{}, shutdown <-chan struct{}) {
	log := p.log
	log.Info("starting…")

loop:
	for {
		log.Debug("waiting…")
		select {
		case <-shutdown:
			break loop
		case e := <-p.queue:
			p.send(e)
		}
	}
	if nil != p.socket {
		p.socket.Close()
	}
	log.Info("stopped")
}

func (p *Publisher) send(e Event) {
	if nil == p.socket {
		return
	}
	_, err := p.socket.Send(e.Topic, zmq.SNDMORE|zmq.DONTWAIT)
	if nil == err {
		_, err = p.socket.SendBytes(e.Data, zmq.DONTWAIT)
	}
	if nil != err {
		p.log.Errorf("send: %s  error: %s", e.Topic, err)
		return
	}
	p.Sent.Increment()
	p.log.Debugf("sent: %s  bytes: %d", e.Topic, len(e.Data))
}

// Start - run the sender in the background
func (p *Publisher) Start() error {
	p.Lock()
	defer p.Unlock()

	if nil != p.background {
		return fault.ErrAlreadyInitialised
	}
	p.background = background.Start(background.Processes{p}, p.log)
	return nil
}

// Stop - stop the sender
func (p *Publisher) Stop() error {
	p.Lock()
	defer p.Unlock()

	if nil == p.background {
		return fault.ErrNotInitialised
	}
	p.log.Info("shutting down…")
	p.background.Stop()
	p.background = nil
	return nil
}
