// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - bounded queues between the network loop and
// the request workers
//
// one queue carries decoded requests towards the workers and another
// carries framed responses and broadcasts back to the network loop;
// a queue never grows and overflowing it halts the node
package messagebus
