// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tick - per tick tables shared by the request workers and
// the consensus engine
//
// the vote table holds one slot per (tick, computor), the data store
// one proposed transaction set per tick and the pool the pending
// transactions referenced by those sets; each is a single resource
// behind its own lock
package tick
