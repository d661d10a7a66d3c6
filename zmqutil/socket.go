// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package zmqutil

import (
	"strings"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/util"
)

const (
	heartbeatInterval = 15 * time.Second
	heartbeatTimeout  = 60 * time.Second
	heartbeatTTL      = 120 * time.Second
)

// NewSignalPair - return a pair of connected push/pull sockets
// for shutdown signalling
func NewSignalPair(signal string) (*zmq.Socket, *zmq.Socket, error) {

	// send half of signalling channel
	push, err := zmq.NewSocket(zmq.PUSH)
	if nil != err {
		return nil, nil, err
	}
	push.SetLinger(0)
	err = push.Bind(signal)
	if nil != err {
		push.Close()
		return nil, nil, err
	}

	// receive half of signalling channel
	pull, err := zmq.NewSocket(zmq.PULL)
	if nil != err {
		push.Close()
		return nil, nil, err
	}
	pull.SetLinger(0)
	err = pull.Connect(signal)
	if nil != err {
		push.Close()
		pull.Close()
		return nil, nil, err
	}

	return push, pull, nil
}

// canonical bind endpoints and whether any is IPv6
func endpoints(listen []string) ([]string, bool, error) {
	bindings := make([]string, 0, len(listen))
	v6 := false
	for _, address := range listen {
		bindTo, err := util.CanonicalIPandPort("tcp://", address)
		if nil != err {
			return nil, false, err
		}
		if strings.Contains(bindTo, "[") {
			v6 = true
		}
		bindings = append(bindings, bindTo)
	}
	return bindings, v6, nil
}

// NewBind - a CURVE server socket bound to a list of addresses
func NewBind(log *logger.L, socketType zmq.Type, zapDomain string, privateKey []byte, publicKey []byte, listen []string) (*zmq.Socket, error) {

	bindings, v6, err := endpoints(listen)
	if nil != err {
		return nil, err
	}

	socket, err := NewServerSocket(socketType, zapDomain, privateKey, publicKey, v6)
	if nil != err {
		return nil, err
	}

	for i, bindTo := range bindings {
		err = socket.Bind(bindTo)
		if nil != err {
			log.Errorf("cannot bind[%d]: %q  error: %s", i, bindTo, err)
			socket.Close()
			return nil, err
		}
		log.Infof("bind[%d]: %q  IPv6: %v", i, bindTo, v6)
	}
	return socket, nil
}

// NewServerSocket - create a socket suitable for a server side connection
func NewServerSocket(socketType zmq.Type, zapDomain string, privateKey []byte, publicKey []byte, v6 bool) (*zmq.Socket, error) {

	if len(privateKey) != privateLength || len(publicKey) != publicLength {
		return nil, fault.ErrInvalidZMQKey
	}

	socket, err := zmq.NewSocket(socketType)
	if nil != err {
		return nil, err
	}

	// allow any client to connect
	zmq.AuthCurveAdd(zapDomain, zmq.CURVE_ALLOW_ANY)

	// domain is servers public key
	socket.SetCurveServer(1)
	socket.SetCurveSecretkey(string(privateKey))
	socket.SetZapDomain(zapDomain)

	socket.SetIdentity(string(publicKey)) // just use public key for identity

	socket.SetIpv6(v6) // conditionally set IPv6 state
	socket.SetLinger(0)

	// heartbeat
	socket.SetHeartbeatIvl(heartbeatInterval)
	socket.SetHeartbeatTimeout(heartbeatTimeout)
	socket.SetHeartbeatTtl(heartbeatTTL)

	return socket, nil
}

// NewStreamSocket - a raw TCP socket bound to every listen address
//
// the same socket is used for outgoing connections, so it exists even
// when nothing is listened on
func NewStreamSocket(log *logger.L, listen []string) (*zmq.Socket, error) {

	bindings, v6, err := endpoints(listen)
	if nil != err {
		return nil, err
	}

	socket, err := zmq.NewSocket(zmq.STREAM)
	if nil != err {
		return nil, err
	}
	socket.SetLinger(0)
	socket.SetIpv6(v6)

	for i, bindTo := range bindings {
		err = socket.Bind(bindTo)
		if nil != err {
			log.Errorf("cannot bind[%d]: %q  error: %s", i, bindTo, err)
			socket.Close()
			return nil, err
		}
		log.Infof("bind[%d]: %q  IPv6: %v", i, bindTo, v6)
	}
	return socket, nil
}
