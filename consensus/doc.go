// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package consensus - the tick state machine
//
// each tick the engine settles the transaction set from the votes of
// the committee, applies it together with the contract phases, votes
// on the resulting digests and advances only once a quorum of the
// non-faulty computors agrees with the local outcome; the last tick of
// an epoch pays the computor revenue and opens the next epoch
package consensus
