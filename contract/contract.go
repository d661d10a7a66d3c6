// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/universe"
)

// Phase - one of the system procedures every contract implements
type Phase int

// phases in the order they run within an epoch
const (
	Initialize Phase = iota
	BeginEpoch
	BeginTick
	EndTick
	EndEpoch
)

// String - for logging
func (p Phase) String() string {
	switch p {
	case Initialize:
		return "INITIALIZE"
	case BeginEpoch:
		return "BEGIN_EPOCH"
	case BeginTick:
		return "BEGIN_TICK"
	case EndTick:
		return "END_TICK"
	case EndEpoch:
		return "END_EPOCH"
	default:
		return "*unknown*"
	}
}

// reverse phases visit contracts from the highest index down
func (p Phase) reverse() bool {
	return EndTick == p || EndEpoch == p
}

// Description - static registration data of a contract
//
// the contract runs for epochs in [ConstructionEpoch, DestructionEpoch)
// and its shares are sold by IPO during ConstructionEpoch-1
type Description struct {
	Name              string
	AssetName         string
	ConstructionEpoch uint16
	DestructionEpoch  uint16
	StateSize         uint
}

// Contract - an embedded contract
//
// all methods run on the contract executor and may be abandoned by
// timeout at any point
type Contract interface {
	Description() Description
	Initialize(ctx *Context)
	BeginEpoch(ctx *Context)
	BeginTick(ctx *Context)
	EndTick(ctx *Context)
	EndEpoch(ctx *Context)
	Procedure(ctx *Context, inputType uint16, input []byte) error
}

// Ledger - balance operations available to contracts
type Ledger interface {
	Find(publicKey cryptography.PublicKey) (uint, bool)
	Debit(slot uint, amount int64, tick uint32) bool
	Credit(publicKey cryptography.PublicKey, amount int64, tick uint32) (uint, error)
	Transfer(source cryptography.PublicKey, destination cryptography.PublicKey, amount int64, tick uint32) error
	Balance(publicKey cryptography.PublicKey) int64
}

// Assets - asset operations available to contracts
type Assets interface {
	Get(index uint) (universe.Asset, bool)
	Issue(issuer cryptography.PublicKey, name string, decimals int8, unit [universe.UnitSize]byte, totalUnits int64, managingContract uint16) (uint, uint, uint, error)
	Transfer(sourceOwnershipIndex uint, sourcePossessionIndex uint, destination cryptography.PublicKey, units int64) (uint, uint, error)
}

func active(d Description, epoch uint16) bool {
	return d.ConstructionEpoch <= epoch && epoch < d.DestructionEpoch
}
