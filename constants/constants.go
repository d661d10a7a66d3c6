// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package constants - fixed protocol parameters shared by every node
package constants

import (
	"time"
)

// committee
const (
	NumberOfComputors = 676
	Quorum            = 2*NumberOfComputors/3 + 1 // 451

	// bytes needed for one bit per computor
	ComputorFlagsSize = (NumberOfComputors + 7) / 8
)

// store capacities, both must be powers of two
const (
	SpectrumCapacity = 1 << 24
	SpectrumDepth    = 24 // number of sibling digests in an entity proof
	AssetsCapacity   = 1 << 24
	AssetsDepth      = 24

	MaxNumberOfContracts = 1024 // leaves of the computer digest tree
)

// tick content
const (
	NumberOfTransactionsPerTick = 1024
	TransactionFlagsSize        = NumberOfTransactionsPerTick / 8
	MaxInputSize                = 1024

	// tick data for tick T is accepted while processing tick T-offset or earlier
	TickTransactionsPublicationOffset = 2

	DefaultMaxNumberOfTicksPerEpoch = 100000
)

// amounts
const (
	IssuanceRate = 1000000000000    // issued per epoch as computor revenue
	MaxAmount    = 1000000000000000 // a single transfer can never exceed this
)

// contract shares sold in an IPO
const (
	ContractIPOShares = NumberOfComputors
)

// epoch boundary: epochs end on the weekday of the epoch start,
// seven days later, at or after this hour
const (
	EpochLength       = 7 * 24 * time.Hour
	EpochBoundaryHour = 12
)

// timing defaults
const (
	DefaultTargetTickDuration    = 1 * time.Second
	DefaultContractPhaseDuration = 1 * time.Second
)
