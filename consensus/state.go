// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

// a state type for the tick process
type state int

// state of the tick process
const (
	// decide the transaction set of the current tick and fetch it
	sCollecting state = iota

	// run the contract phases and apply the transactions
	sDigesting state = iota

	// sign and broadcast the local computors' votes
	sVoting state = iota

	// wait for a quorum of matching votes
	sQuorumCheck state = iota

	// move on to the next tick
	sAdvance state = iota

	// settle the epoch and open the next one
	sEpochRollover state = iota
)

func (state state) String() string {
	switch state {
	case sCollecting:
		return "Collecting"
	case sDigesting:
		return "Digesting"
	case sVoting:
		return "Voting"
	case sQuorumCheck:
		return "QuorumCheck"
	case sAdvance:
		return "Advance"
	case sEpochRollover:
		return "EpochRollover"
	default:
		return "*Unknown*"
	}
}
