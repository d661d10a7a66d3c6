// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/bitmark-inc/quorumd/protocol"
	"github.com/bitmark-inc/quorumd/request"
	"github.com/bitmark-inc/quorumd/zmqutil"
)

// a response as read from the peer port
type response struct {
	header  protocol.Header
	payload []byte
}

// one request/response exchange with a node
type connection struct {
	m       *metadata
	stream  *zmqutil.StreamClient
	framer  request.Framer
	pending []response
}

func connect(m *metadata) (*connection, error) {
	stream, err := zmqutil.NewStreamClient(m.connect, m.timeout)
	if nil != err {
		return nil, err
	}
	if m.verbose {
		fmt.Fprintf(m.e, "connected to: %s\n", stream)
	}
	return &connection{
		m:      m,
		stream: stream,
	}, nil
}

func (c *connection) close() {
	c.stream.Close()
}

// send a message without deduplication
func (c *connection) send(message protocol.Message) error {
	frame, err := protocol.FrameMessage(message, 0)
	if nil != err {
		return err
	}
	if c.m.verbose {
		fmt.Fprintf(c.m.e, "send: type: %d  bytes: %d\n", message.Type(), len(frame))
	}
	return c.stream.Send(frame)
}

// the next message of one of the wanted types
//
// a node also sends its peer exchange and broadcasts on the same
// stream so every other type is skipped
func (c *connection) receive(wanted ...uint8) (response, error) {
	for {
		for len(c.pending) > 0 {
			r := c.pending[0]
			c.pending = c.pending[1:]
			for _, t := range wanted {
				if r.header.Type == t {
					return r, nil
				}
			}
			if c.m.verbose {
				fmt.Fprintf(c.m.e, "skip: type: %d  bytes: %d\n", r.header.Type, r.header.Size)
			}
		}

		data, err := c.stream.Receive()
		if nil != err {
			return response{}, err
		}
		messages, err := c.framer.Write(data)
		if nil != err {
			return response{}, err
		}
		for _, message := range messages {
			header, err := protocol.UnpackHeader(message)
			if nil != err {
				return response{}, err
			}
			c.pending = append(c.pending, response{
				header:  header,
				payload: message[protocol.HeaderSize:],
			})
		}
	}
}

// the decoded next message of one of the wanted types
func (c *connection) receiveMessage(wanted ...uint8) (protocol.Message, error) {
	r, err := c.receive(wanted...)
	if nil != err {
		return nil, err
	}
	return protocol.Decode(r.header.Type, r.payload)
}
