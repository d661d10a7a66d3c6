// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package publish - ZMQ PUB of consensus events
//
// subscribers receive two part messages: a topic then its data
//
//   "tick"  - the packed agreed tick record of this node
//   "epoch" - epoch u16 | initial tick u32, little endian
package publish
