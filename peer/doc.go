// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package peer - raw TCP transport between nodes
//
// one process owns the ZMQ STREAM socket: it accepts and makes
// connections, splits each byte stream into messages for the request
// pipeline and drains the response queue onto the connections.  Peer
// addresses are learned from the configuration, the peers file, DNS
// seeds and the exchanges of connected peers
package peer
