// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zmqutil

import (
	"crypto/rand"
	"errors"
	"strings"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/util"
)

const identifierSize = 32

// Client - a CURVE client connection, usually of type zmq.SUB
type Client struct {
	publicKey       []byte
	privateKey      []byte
	serverPublicKey []byte
	address         string
	v6              bool
	socketType      zmq.Type
	socket          *zmq.Socket
	timeout         time.Duration
}

// NewClient - create a client with its own keypair
func NewClient(socketType zmq.Type, privateKey []byte, publicKey []byte, timeout time.Duration) (*Client, error) {

	if len(publicKey) != publicLength {
		return nil, fault.ErrInvalidZMQKey
	}
	if len(privateKey) != privateLength {
		return nil, fault.ErrInvalidZMQKey
	}

	client := &Client{
		publicKey:       make([]byte, publicLength),
		privateKey:      make([]byte, privateLength),
		serverPublicKey: make([]byte, publicLength),
		socketType:      socketType,
		timeout:         timeout,
	}
	copy(client.privateKey, privateKey)
	copy(client.publicKey, publicKey)
	return client, nil
}

// create a socket and connect to specific server with specifed key
func (client *Client) openSocket() error {

	socket, err := zmq.NewSocket(client.socketType)
	if nil != err {
		return err
	}

	// create a secure random identifier
	randomIDBytes := make([]byte, identifierSize)
	_, err = rand.Read(randomIDBytes)
	if nil != err {
		socket.Close()
		return err
	}

	// set up as client
	err = socket.SetCurveServer(0)
	if nil != err {
		goto failure
	}
	err = socket.SetCurvePublickey(string(client.publicKey))
	if nil != err {
		goto failure
	}
	err = socket.SetCurveSecretkey(string(client.privateKey))
	if nil != err {
		goto failure
	}

	// local identitity is a random value
	err = socket.SetIdentity(string(randomIDBytes))
	if nil != err {
		goto failure
	}

	// destination identity is its public key
	err = socket.SetCurveServerkey(string(client.serverPublicKey))
	if nil != err {
		goto failure
	}

	// zero => do not set timeout
	if 0 != client.timeout {
		err = socket.SetRcvtimeo(client.timeout)
		if nil != err {
			goto failure
		}
	}
	err = socket.SetLinger(0)
	if nil != err {
		goto failure
	}

	if zmq.SUB == client.socketType {
		// empty prefix => receive everything
		err = socket.SetSubscribe("")
		if nil != err {
			goto failure
		}
	}

	err = socket.SetIpv6(client.v6)
	if nil != err {
		goto failure
	}

	err = socket.Connect(client.address)
	if nil != err {
		goto failure
	}

	client.socket = socket
	return nil

failure:
	socket.Close()
	return err
}

// Connect - connect to a server, closing any previous connection
func (client *Client) Connect(hostPort string, serverPublicKey []byte) error {

	if len(serverPublicKey) != publicLength {
		return fault.ErrInvalidZMQKey
	}

	err := client.Close()
	if nil != err {
		return err
	}

	address, err := util.CanonicalIPandPort("tcp://", hostPort)
	if nil != err {
		return err
	}

	copy(client.serverPublicKey, serverPublicKey)
	client.address = address
	client.v6 = strings.Contains(address, "[")

	return client.openSocket()
}

// IsConnected - check if connected to a node
func (client *Client) IsConnected() bool {
	return nil != client.socket
}

// Receive - the parts of one message
func (client *Client) Receive(flags zmq.Flag) ([][]byte, error) {
	if nil == client.socket {
		return nil, fault.ErrNotConnected
	}
	return client.socket.RecvMessageBytes(flags)
}

// Close - disconnect and close the socket
func (client *Client) Close() error {
	if nil == client.socket {
		return nil
	}
	client.socket.Disconnect(client.address)
	err := client.socket.Close()
	client.socket = nil
	return err
}

// String - the connected address
func (client *Client) String() string {
	return client.address
}

// routing id given to the one outgoing stream
const streamID = "node"

// StreamClient - one raw TCP connection to a node's peer port
type StreamClient struct {
	address   string
	socket    *zmq.Socket
	timeout   time.Duration
	connected bool
}

// NewStreamClient - connect a raw stream to host:port
//
// a zero timeout waits for ever on receive
func NewStreamClient(hostPort string, timeout time.Duration) (*StreamClient, error) {
	address, err := util.CanonicalIPandPort("tcp://", hostPort)
	if nil != err {
		return nil, err
	}

	socket, err := zmq.NewSocket(zmq.STREAM)
	if nil != err {
		return nil, err
	}
	socket.SetLinger(0)
	socket.SetIpv6(strings.Contains(address, "["))
	if 0 != timeout {
		socket.SetRcvtimeo(timeout)
	}

	err = socket.SetConnectRid(streamID)
	if nil == err {
		err = socket.Connect(address)
	}
	if nil != err {
		socket.Close()
		return nil, err
	}

	return &StreamClient{
		address: address,
		socket:  socket,
		timeout: timeout,
	}, nil
}

// Send - write bytes to the stream
func (client *StreamClient) Send(data []byte) error {
	if nil == client.socket {
		return fault.ErrNotConnected
	}
	_, err := client.socket.SendMessage(streamID, data)
	return err
}

// Receive - the next bytes read from the stream
//
// the empty connect notification is skipped; a disconnect or a
// timeout is an error
func (client *StreamClient) Receive() ([]byte, error) {
	if nil == client.socket {
		return nil, fault.ErrNotConnected
	}
	for {
		parts, err := client.socket.RecvMessageBytes(0)
		if isTimeout(err) {
			return nil, fault.ErrNoResponse
		}
		if nil != err {
			return nil, err
		}
		if 2 != len(parts) {
			continue
		}
		if len(parts[1]) > 0 {
			return parts[1], nil
		}
		if client.connected {
			return nil, fault.ErrNotConnected
		}
		client.connected = true
	}
}

// Close - close the stream
func (client *StreamClient) Close() error {
	if nil == client.socket {
		return nil
	}
	err := client.socket.Close()
	client.socket = nil
	return err
}

// String - the connected address
func (client *StreamClient) String() string {
	return client.address
}

// receive timed out rather than failed
func isTimeout(err error) bool {
	var errno zmq.Errno
	if errors.As(err, &errno) {
		return errno == zmq.AsErrno(syscall.EAGAIN)
	}
	return false
}
