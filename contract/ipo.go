// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package contract

import (
	"encoding/binary"
	"sync"

	"github.com/bitmark-inc/quorumd/constants"
	"github.com/bitmark-inc/quorumd/cryptography"
	"github.com/bitmark-inc/quorumd/fault"
	"github.com/bitmark-inc/quorumd/universe"
)

// BidInputType - procedure input type of an IPO bid transaction
const BidInputType = 1

// BidSize - price int64 followed by quantity uint16
const BidSize = 10

// MaxBidQuantity - one bid can take at most every share
const MaxBidQuantity = constants.ContractIPOShares

// IPOSize - bytes in a packed IPO
const IPOSize = constants.ContractIPOShares * (cryptography.PublicKeySize + 8)

// IPO - the retained top bids for the shares of one contract
//
// each entry is one share; a new share bid replaces the lowest priced
// entry if it offers strictly more and the replaced bidder is refunded
type IPO struct {
	sync.Mutex
	contractIndex uint
	publicKeys    [constants.ContractIPOShares]cryptography.PublicKey
	prices        [constants.ContractIPOShares]int64
}

func newIPO(contractIndex uint) *IPO {
	return &IPO{
		contractIndex: contractIndex,
	}
}

// ParseBid - decode the input of a bid transaction
func ParseBid(input []byte) (int64, uint16, error) {
	if BidSize != len(input) {
		return 0, 0, fault.ErrInvalidInputSize
	}
	price := int64(binary.LittleEndian.Uint64(input[0:8]))
	quantity := binary.LittleEndian.Uint16(input[8:10])
	if price <= 0 || price > constants.MaxAmount/constants.ContractIPOShares {
		return 0, 0, fault.ErrInvalidAmount
	}
	if 0 == quantity || quantity > MaxBidQuantity {
		return 0, 0, fault.ErrInvalidUnits
	}
	return price, quantity, nil
}

// PackBid - encode a bid transaction input
func PackBid(price int64, quantity uint16) []byte {
	input := make([]byte, BidSize)
	binary.LittleEndian.PutUint64(input[0:8], uint64(price))
	binary.LittleEndian.PutUint16(input[8:10], quantity)
	return input
}

// Bid - place quantity share bids at a price, paid from the bidder's balance
//
// returns the number of shares retained; every share not retained,
// and every entry displaced, is refunded at once
func (ipo *IPO) Bid(ledger Ledger, bidder cryptography.PublicKey, price int64, quantity uint16, tick uint32) (int, error) {
	slot, ok := ledger.Find(bidder)
	if !ok {
		return 0, fault.ErrEntityNotFound
	}
	total := price * int64(quantity)
	if !ledger.Debit(slot, total, tick) {
		return 0, fault.ErrInsufficientBalance
	}

	ipo.Lock()
	refunds := make(map[cryptography.PublicKey]int64)
	retained := 0
	for q := uint16(0); q < quantity; q += 1 {
		lowest := 0
		for i := 1; i < len(ipo.prices); i += 1 {
			if ipo.prices[i] < ipo.prices[lowest] {
				lowest = i
			}
		}
		if price <= ipo.prices[lowest] {
			refunds[bidder] += price
			continue
		}
		if !ipo.publicKeys[lowest].IsZero() {
			refunds[ipo.publicKeys[lowest]] += ipo.prices[lowest]
		}
		ipo.publicKeys[lowest] = bidder
		ipo.prices[lowest] = price
		retained += 1
	}
	ipo.Unlock()

	for publicKey, amount := range refunds {
		if _, err := ledger.Credit(publicKey, amount, tick); nil != err {
			return retained, err
		}
	}
	return retained, nil
}

// Entries - copy of the current retained bids
func (ipo *IPO) Entries() ([constants.ContractIPOShares]cryptography.PublicKey, [constants.ContractIPOShares]int64) {
	ipo.Lock()
	defer ipo.Unlock()
	return ipo.publicKeys, ipo.prices
}

// FinalPrice - the lowest price among the retained bids, zero if none
func (ipo *IPO) FinalPrice() int64 {
	ipo.Lock()
	defer ipo.Unlock()
	return ipo.finalPrice()
}

func (ipo *IPO) finalPrice() int64 {
	final := int64(0)
	for i, p := range ipo.prices {
		if ipo.publicKeys[i].IsZero() {
			continue
		}
		if 0 == final || p < final {
			final = p
		}
	}
	return final
}

// Settle - charge every winner the final price, issue the shares and
// clear the auction
//
// the shares are issued to the contract entity and moved to each
// winner; unsold shares stay with the contract; returns the final
// price and the amount raised
func (ipo *IPO) Settle(ledger Ledger, assets Assets, assetName string, tick uint32) (int64, int64, error) {
	ipo.Lock()
	publicKeys := ipo.publicKeys
	prices := ipo.prices
	final := ipo.finalPrice()
	ipo.publicKeys = [constants.ContractIPOShares]cryptography.PublicKey{}
	ipo.prices = [constants.ContractIPOShares]int64{}
	ipo.Unlock()

	self := cryptography.ContractPublicKey(ipo.contractIndex)
	_, ownership, possession, err := assets.Issue(self, assetName, 0, [universe.UnitSize]byte{}, constants.ContractIPOShares, uint16(ipo.contractIndex))
	if nil != err {
		return 0, 0, err
	}

	shares := make(map[cryptography.PublicKey]int64)
	order := make([]cryptography.PublicKey, 0, len(publicKeys))
	refunds := make(map[cryptography.PublicKey]int64)
	raised := int64(0)
	for i, publicKey := range publicKeys {
		if publicKey.IsZero() {
			continue
		}
		if _, seen := shares[publicKey]; !seen {
			order = append(order, publicKey)
		}
		shares[publicKey] += 1
		refunds[publicKey] += prices[i] - final
		raised += final
	}

	for _, publicKey := range order {
		if refund := refunds[publicKey]; refund > 0 {
			if _, err := ledger.Credit(publicKey, refund, tick); nil != err {
				return final, raised, err
			}
		}
		if _, _, err := assets.Transfer(ownership, possession, publicKey, shares[publicKey]); nil != err {
			return final, raised, err
		}
	}
	return final, raised, nil
}

// Pack - persistent form of the retained bids
func (ipo *IPO) Pack() []byte {
	ipo.Lock()
	defer ipo.Unlock()

	buffer := make([]byte, IPOSize)
	n := 0
	for i := range ipo.publicKeys {
		n += copy(buffer[n:], ipo.publicKeys[i][:])
	}
	for i := range ipo.prices {
		binary.LittleEndian.PutUint64(buffer[n:], uint64(ipo.prices[i]))
		n += 8
	}
	return buffer
}

// Unpack - restore the retained bids
func (ipo *IPO) Unpack(buffer []byte) error {
	if IPOSize != len(buffer) {
		return fault.ErrSnapshotSizeMismatch
	}

	ipo.Lock()
	defer ipo.Unlock()

	n := 0
	for i := range ipo.publicKeys {
		n += copy(ipo.publicKeys[i][:], buffer[n:])
	}
	for i := range ipo.prices {
		ipo.prices[i] = int64(binary.LittleEndian.Uint64(buffer[n:]))
		n += 8
	}
	return nil
}
