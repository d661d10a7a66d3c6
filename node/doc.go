// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node - one explicitly owned node context
//
// every store, queue and process of a running node is a field of
// Node and is handed to the components that use it; nothing is kept
// in package globals.  The network transport and the publisher are
// attached by the daemon, so the node itself can run without sockets
package node
