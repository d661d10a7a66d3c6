// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"math/rand"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/quorumd/util"
)

// AddressBook - known peer addresses
//
// learned addresses expire unless seen again, pinned ones never do
type AddressBook struct {
	log   *logger.L
	cache *cache.Cache
}

// NewAddressBook - empty book whose learned entries live for expiry
func NewAddressBook(expiry time.Duration) *AddressBook {
	return &AddressBook{
		log:   logger.New("addresses"),
		cache: cache.New(expiry, expiry/2),
	}
}

// Add - remember a learned address, true if it was not known
func (b *AddressBook) Add(address util.IPv4) bool {
	if address.IsZero() {
		return false
	}
	key := address.String()
	if _, expiry, found := b.cache.GetWithExpiration(key); found {
		if !expiry.IsZero() {
			b.cache.Set(key, address, cache.DefaultExpiration)
		}
		return false
	}
	b.cache.Set(key, address, cache.DefaultExpiration)
	b.log.Debugf("add: %s", key)
	return true
}

// Pin - remember an address permanently
func (b *AddressBook) Pin(address util.IPv4) {
	if address.IsZero() {
		return
	}
	b.cache.Set(address.String(), address, cache.NoExpiration)
}

// Remove - forget an address
func (b *AddressBook) Remove(address util.IPv4) {
	b.cache.Delete(address.String())
}

// Has - address is known
func (b *AddressBook) Has(address util.IPv4) bool {
	_, found := b.cache.Get(address.String())
	return found
}

// Count - number of known addresses
func (b *AddressBook) Count() int {
	return b.cache.ItemCount()
}

// Sample - up to n random addresses not rejected by skip
func (b *AddressBook) Sample(n int, skip func(util.IPv4) bool) []util.IPv4 {
	candidates := make([]util.IPv4, 0, b.cache.ItemCount())
	for _, item := range b.cache.Items() {
		address := item.Object.(util.IPv4)
		if nil != skip && skip(address) {
			continue
		}
		candidates = append(candidates, address)
	}
	rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
