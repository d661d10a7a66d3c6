// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"sync"

	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/universe"
)

// fence - shared by every context of one batch
//
// every mutation runs inside enter/leave; abort waits for a running
// mutation to finish and refuses all later ones
type fence struct {
	sync.RWMutex
	aborted bool
}

func (f *fence) enter() bool {
	f.RLock()
	if f.aborted {
		f.RUnlock()
		return false
	}
	return true
}

func (f *fence) leave() {
	f.RUnlock()
}

func (f *fence) abort() {
	f.Lock()
	f.aborted = true
	f.Unlock()
}

func (f *fence) isAborted() bool {
	f.RLock()
	defer f.RUnlock()
	return f.aborted
}

// Context - what a contract sees while one of its methods runs
//
// State is a private copy committed back when the method returns
// without the batch having been aborted
type Context struct {
	ContractIndex    uint
	Epoch            uint16
	Tick             uint32
	Invocator        cryptography.PublicKey
	InvocationReward int64
	State            []byte

	fence  *fence
	ledger Ledger
	assets Assets
}

// Self - identity of the contract's own entity
func (ctx *Context) Self() cryptography.PublicKey {
	return cryptography.ContractPublicKey(ctx.ContractIndex)
}

// Aborted - true once the batch has timed out
func (ctx *Context) Aborted() bool {
	return ctx.fence.isAborted()
}

// Balance - balance of the contract's entity
func (ctx *Context) Balance() int64 {
	return ctx.ledger.Balance(ctx.Self())
}

// Transfer - pay from the contract's entity
func (ctx *Context) Transfer(destination cryptography.PublicKey, amount int64) error {
	if !ctx.fence.enter() {
		return fault.ErrContractAborted
	}
	defer ctx.fence.leave()

	return ctx.ledger.Transfer(ctx.Self(), destination, amount, ctx.Tick)
}

// Burn - destroy an amount held by the contract's entity
func (ctx *Context) Burn(amount int64) error {
	if !ctx.fence.enter() {
		return fault.ErrContractAborted
	}
	defer ctx.fence.leave()

	slot, ok := ctx.ledger.Find(ctx.Self())
	if !ok {
		return fault.ErrEntityNotFound
	}
	if !ctx.ledger.Debit(slot, amount, ctx.Tick) {
		return fault.ErrInsufficientBalance
	}
	return nil
}

// IssueAsset - issue an asset owned by the contract and managed by it
func (ctx *Context) IssueAsset(name string, decimals int8, unit [universe.UnitSize]byte, units int64) (uint, uint, uint, error) {
	if !ctx.fence.enter() {
		return 0, 0, 0, fault.ErrContractAborted
	}
	defer ctx.fence.leave()

	return ctx.assets.Issue(ctx.Self(), name, decimals, unit, units, uint16(ctx.ContractIndex))
}

// TransferShares - move units of a holding managed by this contract
func (ctx *Context) TransferShares(ownershipIndex uint, possessionIndex uint, destination cryptography.PublicKey, units int64) (uint, uint, error) {
	if !ctx.fence.enter() {
		return 0, 0, fault.ErrContractAborted
	}
	defer ctx.fence.leave()

	ownership, ok := ctx.assets.Get(ownershipIndex)
	if !ok {
		return 0, 0, fault.ErrOwnershipNotFound
	}
	if uint(ownership.ManagingContract) != ctx.ContractIndex {
		return 0, 0, fault.ErrInvalidContractIndex
	}
	return ctx.assets.Transfer(ownershipIndex, possessionIndex, destination, units)
}
