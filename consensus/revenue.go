// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package consensus

import (
	"sort"

	"github.com/bitmark-inc/quorumd/constants"
)

// revenue points of one agreed tick by its number of transactions
var revenueTable [constants.NumberOfTransactionsPerTick + 1]uint64

func init() {
	for n := range revenueTable {
		revenueTable[n] = 1024 + uint64(n)
	}
}

func revenueWeight(transactions int) uint64 {
	if transactions < 0 {
		transactions = 0
	}
	if transactions >= len(revenueTable) {
		transactions = len(revenueTable) - 1
	}
	return revenueTable[transactions]
}

// Revenues - split the epoch issuance over the computors
//
// a computor whose points reach the quorum-th highest score receives a
// full share, one below it a share scaled by its points; the remainder
// of the issuance is returned
func Revenues(points [constants.NumberOfComputors]uint64, issuance int64) ([constants.NumberOfComputors]int64, int64) {
	sorted := points
	s := sorted[:]
	sort.Slice(s, func(i, j int) bool { return s[i] > s[j] })
	threshold := sorted[constants.Quorum-1]

	share := issuance / constants.NumberOfComputors
	rewards := [constants.NumberOfComputors]int64{}
	remainder := issuance
	for i, p := range points {
		if 0 == threshold || p >= threshold {
			rewards[i] = share
		} else {
			rewards[i] = int64(uint64(share) * p / threshold)
		}
		remainder -= rewards[i]
	}
	return rewards, remainder
}
