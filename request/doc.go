// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package request - ingestion of peer messages
//
// bytes from each connection are framed, decoded and checked against
// the dejavu set before they reach the request queue; a pool of
// workers dispatches each request by type and queues any response or
// re-broadcast for the network loop
package request
