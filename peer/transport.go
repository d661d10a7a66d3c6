// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"fmt"
	"time"

	zmq "github.com/pebbe/zmq4"
	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/counter"
	"github.com/bitmark-inc/quorumd/messagebus"
	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/request"
	"github.com/bitmark-inc/quorumd/util"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

const (
	transportSignal = "inproc://quorumd-transport-signal"

	pollInterval    = 10 * time.Millisecond
	connectInterval = 5 * time.Second
	connectTimeout  = 30 * time.Second

	// responses sent per loop iteration before polling again
	drainLimit = 1024
)

// Statistics - transport counters
type Statistics struct {
	Accepted  counter.Counter
	Connected counter.Counter
	Refused   counter.Counter
	Dropped   counter.Counter
	Limited   counter.Counter
	BytesIn   counter.Counter
	BytesOut  counter.Counter
}

// an outgoing connection not yet established
type dialing struct {
	address  util.IPv4
	endpoint string
	since    time.Time
}

// Transport - the stream socket and its connections
type Transport struct {
	Statistics

	log       *logger.L
	port      int
	maximum   int
	outbound  int
	rate      rate.Limit
	burst     int
	push      *zmq.Socket // signal send
	pull      *zmq.Socket // signal receive
	socket    *zmq.Socket // raw TCP streams
	pipeline  *request.Pipeline
	responses *messagebus.Queue
	addresses *AddressBook
	own       map[util.IPv4]struct{}

	conns    *connections
	dialing  map[string]dialing
	dialed   uint64
	lastDial time.Time
}

func newTransport(configuration *Configuration, pipeline *request.Pipeline, responses *messagebus.Queue, addresses *AddressBook) (*Transport, error) {
	log := logger.New("peer")
	log.Info("initialising…")

	t := &Transport{
		log:       log,
		port:      configuration.Port,
		maximum:   configuration.MaximumConnections,
		outbound:  configuration.OutgoingConnections,
		rate:      rate.Limit(configuration.RateLimit),
		burst:     configuration.RateBurst,
		pipeline:  pipeline,
		responses: responses,
		addresses: addresses,
		own:       make(map[util.IPv4]struct{}),
		conns:     newConnections(),
		dialing:   make(map[string]dialing),
	}

	for _, s := range configuration.Announce {
		if address, err := util.ParseIPv4(s); nil == err {
			t.own[address] = struct{}{}
		}
	}

	var err error
	t.push, t.pull, err = zmqutil.NewSignalPair(transportSignal)
	if nil != err {
		return nil, err
	}

	t.socket, err = zmqutil.NewStreamSocket(log, configuration.Listen)
	if nil != err {
		t.push.Close()
		t.pull.Close()
		return nil, err
	}
	return t, nil
}

// Run - the I/O loop, owns the stream socket
func (t *Transport) Run(args interface{}, shutdown <-chan struct{}) {

	log := t.log

	log.Info("starting…")

	done := make(chan struct{})
	go func() {
		poller := zmqutil.NewPoller()
		poller.Add(t.socket, zmq.POLLIN)
		poller.Add(t.pull, zmq.POLLIN)
	loop:
		for {
			sockets, err := poller.Poll(pollInterval)
			if nil != err {
				log.Errorf("poll error: %s", err)
			}
			for _, socket := range sockets {
				switch s := socket.Socket; s {
				case t.socket:
					t.receive()
				case t.pull:
					s.RecvMessageBytes(0)
					break loop
				}
			}
			t.drain()
			if time.Since(t.lastDial) >= connectInterval {
				t.dial()
				t.lastDial = time.Now()
			}
		}
		log.Info("shutting down")
		t.pull.Close()
		t.socket.Close()
		log.Info("stopped")
		close(done)
	}()

	log.Info("waiting…")
	<-shutdown
	log.Info("initiate shutdown")
	t.push.SendMessage("stop")
	t.push.Close()
	<-done
}

// one message from the stream socket: a routing id then either data or
// an empty frame for a connect or disconnect
func (t *Transport) receive() {
	log := t.log

	parts, metadata, err := t.socket.RecvMessageBytesWithMetadata(0, "Peer-Address")
	if nil != err {
		log.Errorf("receive error: %s", err)
		return
	}
	if 2 != len(parts) {
		log.Warnf("receive: unexpected parts: %d", len(parts))
		return
	}
	id := string(parts[0])
	data := parts[1]

	c, known := t.conns.lookup(id)
	if 0 == len(data) {
		if known {
			t.closed(c)
		} else {
			t.opened(id, metadata["Peer-Address"])
		}
		return
	}
	if !known {
		return
	}

	t.BytesIn.Add(uint64(len(data)))
	if !c.allow(len(data)) {
		t.Limited.Increment()
		log.Warnf("peer: %d  %s  rate exceeded", c.handle, c.address)
		t.drop(c)
		return
	}
	frames, err := c.framer.Write(data)
	for _, frame := range frames {
		t.pipeline.Receive(c.handle, frame)
	}
	if nil != err {
		log.Warnf("peer: %d  %s  stream error: %s", c.handle, c.address, err)
		t.drop(c)
	}
}

// a new stream, incoming or the result of a dial
func (t *Transport) opened(id string, remote string) {
	log := t.log

	c := &connection{id: id}
	if d, ok := t.dialing[id]; ok {
		delete(t.dialing, id)
		c.outgoing = true
		c.address = d.address
		c.endpoint = d.endpoint
	} else if address, err := util.ParseIPv4(remote); nil == err {
		c.address = address
	}

	if t.conns.count() >= t.maximum {
		t.Refused.Increment()
		log.Debugf("refuse: %s  connections: %d", c.address, t.conns.count())
		t.close(id)
		if "" != c.endpoint {
			t.socket.Disconnect(c.endpoint)
		}
		return
	}

	if t.rate > 0 {
		c.limiter = rate.NewLimiter(t.rate, t.burst)
	}
	t.conns.add(c)
	if c.outgoing {
		t.Connected.Increment()
	} else {
		t.Accepted.Increment()
	}
	log.Infof("peer: %d  %s  opened  outgoing: %v", c.handle, c.address, c.outgoing)

	t.exchange(c)
}

// the remote side closed the stream
func (t *Transport) closed(c *connection) {
	t.conns.remove(c)
	if "" != c.endpoint {
		t.socket.Disconnect(c.endpoint)
	}
	t.log.Infof("peer: %d  %s  closed", c.handle, c.address)
}

// close the stream from this side
func (t *Transport) drop(c *connection) {
	t.Dropped.Increment()
	t.close(c.id)
	t.closed(c)
}

// an empty frame to an id closes its stream
func (t *Transport) close(id string) {
	if _, err := t.socket.SendMessage(id, ""); nil != err {
		t.log.Errorf("close error: %s", err)
	}
}

// tell a new peer about up to four other addresses
func (t *Transport) exchange(c *connection) {
	e := &protocol.ExchangePublicPeers{}
	sample := t.addresses.Sample(len(e.Peers), func(address util.IPv4) bool {
		return address == c.address
	})
	copy(e.Peers[:], sample)
	frame, err := protocol.FrameMessage(e, 0)
	if nil != err {
		t.log.Errorf("exchange error: %s", err)
		return
	}
	t.send(c, frame)
}

func (t *Transport) send(c *connection, frame []byte) {
	if _, err := t.socket.SendMessage(c.id, frame); nil != err {
		t.log.Errorf("peer: %d  send error: %s", c.handle, err)
		return
	}
	t.BytesOut.Add(uint64(len(frame)))
}

// write queued responses and broadcasts to their connections
func (t *Transport) drain() {
	for i := 0; i < drainLimit; i += 1 {
		m, ok := t.responses.Receive()
		if !ok {
			return
		}
		for _, c := range t.conns.targets(m) {
			t.send(c, m.Frame)
		}
	}
}

// open outgoing streams up to the configured count
func (t *Transport) dial() {
	log := t.log

	for id, d := range t.dialing {
		if time.Since(d.since) > connectTimeout {
			log.Debugf("dial: %s  timed out", d.address)
			t.socket.Disconnect(d.endpoint)
			delete(t.dialing, id)
		}
	}

	need := t.outbound - t.conns.outgoing() - len(t.dialing)
	if need <= 0 || t.conns.count() >= t.maximum {
		return
	}

	skip := func(address util.IPv4) bool {
		if _, ok := t.own[address]; ok {
			return true
		}
		for _, d := range t.dialing {
			if d.address == address {
				return true
			}
		}
		return t.conns.connectedTo(address)
	}
	for _, address := range t.addresses.Sample(need, skip) {
		t.dialed += 1
		id := fmt.Sprintf("dial-%d", t.dialed)
		endpoint := fmt.Sprintf("tcp://%s:%d", address, t.port)

		if err := t.socket.SetConnectRid(id); nil != err {
			log.Errorf("dial: %s  routing id error: %s", address, err)
			return
		}
		if err := t.socket.Connect(endpoint); nil != err {
			log.Warnf("dial: %s  error: %s", endpoint, err)
			continue
		}
		t.dialing[id] = dialing{address: address, endpoint: endpoint, since: time.Now()}
		log.Debugf("dial: %s", endpoint)
	}
}
